package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/turtlert/internal/command"
)

var runDelay time.Duration

var sendCmd = &cobra.Command{
	Use:   "send VERB [ARGS...]",
	Short: "Send one command to the backend",
	Long: `Send one command line to the backend, then shut it down.

Examples:
  turtlert send forward 100
  turtlert send COLORNAME red
  turtlert --tcp 127.0.0.1:5000 send pos 10 20`,
	GroupID: groupDraw,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runSend,
}

var runCmd = &cobra.Command{
	Use:   "run [FILE]",
	Short: "Send every command in a file (or stdin)",
	Long: `Send one command per line from FILE, or stdin when FILE is omitted or "-".
Blank lines and lines starting with # are skipped. QUIT is sent once at the end.`,
	GroupID: groupDraw,
	Args:    cobra.MaximumNArgs(1),
	RunE:    runRun,
}

func init() {
	runCmd.Flags().DurationVar(&runDelay, "delay", 0, "pause between commands")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(runCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	args[0] = strings.ToUpper(args[0])
	c, err := command.Raw(strings.Join(args, " "))
	if err != nil {
		return err
	}
	return sendAll(cmd, []command.Command{c}, 0)
}

func runRun(cmd *cobra.Command, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		defer f.Close()
		r = f
	}

	cmds, err := parseScript(r)
	if err != nil {
		return err
	}
	return sendAll(cmd, cmds, runDelay)
}

// parseScript validates every line before anything is sent.
func parseScript(r io.Reader) ([]command.Command, error) {
	var cmds []command.Command
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		c, err := command.Raw(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		cmds = append(cmds, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return cmds, nil
}

// sendAll connects, sends cmds in order and shuts down. QUIT lines are
// dropped because shutdown sends its own.
func sendAll(cmd *cobra.Command, cmds []command.Command, delay time.Duration) error {
	ds, err := openSession(cmd)
	if err != nil {
		return err
	}
	strategy := ds.Strategy()

	sent := 0
	for _, c := range cmds {
		if c.Verb() == command.VerbQuit {
			continue
		}
		if sent > 0 && delay > 0 {
			time.Sleep(delay)
		}
		if err := ds.Send(c); err != nil {
			_ = ds.close()
			return err
		}
		sent++
	}

	if err := ds.close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %d command(s) via %s\n", okStyle.Render("sent"), sent, strategy)
	return nil
}
