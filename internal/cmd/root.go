package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

const (
	groupDraw    = "draw"
	groupInspect = "inspect"
	groupSetup   = "setup"
)

var (
	configPath string
	tcpAddr    string
	logLevel   string
	debugLog   bool
)

var rootCmd = &cobra.Command{
	Use:   "turtlert",
	Short: "forward turtle-graphics commands to a drawing backend",
	Long: `turtlert - forward turtle-graphics commands to a drawing backend

The backend is reached over TCP (TURTLE_TCP_ADDR) or started as a child
process (TURTLE_PY_EXE + TURTLE_PY_SCRIPT, TURTLE_PY_CMD, or drawing.py
next to this binary), in that order.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupColorProfile(cmd.OutOrStdout())
	},
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: groupDraw, Title: "Drawing:"},
		&cobra.Group{ID: groupInspect, Title: "Inspection:"},
		&cobra.Group{ID: groupSetup, Title: "Setup:"},
	)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default: $TURTLE_CONFIG or the user config dir)")
	flags.StringVar(&tcpAddr, "tcp", "", "backend TCP address, overrides TURTLE_TCP_ADDR")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flags.BoolVar(&debugLog, "debug", false, "enable debug logging")
}
