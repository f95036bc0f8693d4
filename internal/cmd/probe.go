package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/turtlert/internal/config"
)

var probeConnect bool

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Show how the backend would be reached",
	Long: `List the connection strategies in the order they are tried, with the
address or command line each would use and why any would be skipped.

With --connect, also connect, report the strategy that won and disconnect
without drawing anything.`,
	GroupID: groupInspect,
	Args:    cobra.NoArgs,
	RunE:    runProbe,
}

func init() {
	probeCmd.Flags().BoolVar(&probeConnect, "connect", false, "attempt the connection")
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)
	connector := newConnector(cmd, cfg, logger)
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, titleStyle.Render("Backend strategies"))
	fmt.Fprintln(out, strings.Repeat("-", 40))
	for i, a := range connector.Directive().Plan() {
		name := keyStyle.Render(fmt.Sprintf("%-10s", a.Strategy))
		switch {
		case a.Skip != "":
			fmt.Fprintf(out, "  %d. %s %s\n", i+1, name, dimStyle.Render("skip: "+a.Skip))
		case a.Addr != "":
			fmt.Fprintf(out, "  %d. %s dial %s\n", i+1, name, a.Addr)
		default:
			fmt.Fprintf(out, "  %d. %s spawn %s\n", i+1, name, strings.Join(a.Argv, " "))
		}
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Query: timeout %v, poll %v\n", cfg.QueryTimeout(), cfg.PollInterval())
	fmt.Fprintf(out, "Config file: %s\n", configFileInUse())

	if !probeConnect {
		return nil
	}

	fmt.Fprintln(out)
	t, strategy, err := connector.Connect(cmd.Context())
	if err != nil {
		fmt.Fprintf(out, "%s %v\n", errStyle.Render("unreachable:"), err)
		return err
	}
	closeErr := t.Close()
	fmt.Fprintf(out, "%s %s (%s %s)\n", okStyle.Render("connected:"), strategy, t.Kind(), t.Target())
	if closeErr != nil {
		fmt.Fprintf(out, "%s %v\n", warnStyle.Render("close:"), closeErr)
	}
	return nil
}

func configFileInUse() string {
	if configPath != "" {
		return configPath
	}
	return config.FilePath()
}
