package cmd

import (
	"fmt"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/runger/turtlert/internal/journal"
)

var journalLimit int

var journalCmd = &cobra.Command{
	Use:     "journal",
	Short:   "Inspect recorded sessions",
	GroupID: groupInspect,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded sessions, newest first",
	Args:  cobra.NoArgs,
	RunE:  runJournalList,
}

var journalShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show the commands of one session",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalShow,
}

func init() {
	journalListCmd.Flags().IntVarP(&journalLimit, "limit", "n", 20, "maximum sessions to list (0 = all)")
	journalCmd.AddCommand(journalListCmd, journalShowCmd)
	rootCmd.AddCommand(journalCmd)
}

func runJournalList(cmd *cobra.Command, args []string) error {
	store, err := openJournal()
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := store.ListSessions(cmd.Context(), journalLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, dimStyle.Render("no sessions recorded"))
		return nil
	}
	for _, s := range sessions {
		state := okStyle.Render("ended")
		if s.EndedAtUnixMs == 0 {
			state = warnStyle.Render("open ")
		}
		fmt.Fprintf(out, "%s  %s  %s  %4d cmds  %s %s\n",
			keyStyle.Render(s.ID),
			formatMs(s.StartedAtUnixMs),
			state,
			s.EntryCount,
			s.Strategy,
			dimStyle.Render(s.Target),
		)
	}
	return nil
}

func runJournalShow(cmd *cobra.Command, args []string) error {
	store, err := openJournal()
	if err != nil {
		return err
	}
	defer store.Close()

	sess, err := store.GetSession(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	entries, err := store.Entries(cmd.Context(), sess.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", titleStyle.Render("Session"), sess.ID)
	fmt.Fprintf(out, "  started:  %s\n", formatMs(sess.StartedAtUnixMs))
	if sess.EndedAtUnixMs != 0 {
		fmt.Fprintf(out, "  ended:    %s\n", formatMs(sess.EndedAtUnixMs))
	}
	fmt.Fprintf(out, "  backend:  %s %s\n", sess.Strategy, sess.Target)
	fmt.Fprintln(out)

	width := termWidth() - 12
	for _, e := range entries {
		fmt.Fprintf(out, "%5d  %s\n", e.Seq, formatEntry(e, width))
	}
	return nil
}

// formatEntry truncates the line to width display columns and flags
// lines the transport did not accept.
func formatEntry(e journal.Entry, width int) string {
	line := e.Line
	if width > 0 {
		line = runewidth.Truncate(line, width, "…")
	}
	if !e.Sent {
		return errStyle.Render(line + " (not sent)")
	}
	return line
}

func formatMs(ms int64) string {
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04:05")
}
