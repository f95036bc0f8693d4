package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/turtlert/internal/command"
	"github.com/runger/turtlert/internal/journal"
)

var replayDelay time.Duration

var replayCmd = &cobra.Command{
	Use:   "replay ID",
	Short: "Send a recorded session to the current backend",
	Long: `Send the drawing commands of a recorded session again.

Queries and the recorded QUIT are not replayed; lines that never reached the
backend are skipped. A fresh QUIT is sent at the end.`,
	GroupID: groupDraw,
	Args:    cobra.ExactArgs(1),
	RunE:    runReplay,
}

func init() {
	replayCmd.Flags().DurationVar(&replayDelay, "delay", 0, "pause between commands")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	store, err := openJournal()
	if err != nil {
		return err
	}
	entries, err := store.Entries(cmd.Context(), args[0])
	store.Close()
	if err != nil {
		return err
	}

	cmds, err := replayable(entries)
	if err != nil {
		return err
	}
	return sendAll(cmd, cmds, replayDelay)
}

// replayable keeps the sent drawing commands of a session.
func replayable(entries []journal.Entry) ([]command.Command, error) {
	var cmds []command.Command
	for _, e := range entries {
		if !e.Sent {
			continue
		}
		verb, _, _ := strings.Cut(e.Line, " ")
		switch verb {
		case command.VerbQuit, command.VerbGetHeading, command.VerbRandInt, command.VerbPowInt:
			continue
		}
		c, err := command.Raw(e.Line)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", e.Seq, err)
		}
		cmds = append(cmds, c)
	}
	return cmds, nil
}
