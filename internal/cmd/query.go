package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:     "query",
	Short:   "Ask the backend for a value",
	GroupID: groupDraw,
}

var queryHeadingCmd = &cobra.Command{
	Use:   "heading",
	Short: "Print the turtle's heading",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, func(ds *drawSession) (int, error) { return ds.Heading() })
	},
}

var queryRandIntCmd = &cobra.Command{
	Use:   "randint MAX",
	Short: "Print a backend random number bounded by MAX",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		maxv, err := parseInts(args)
		if err != nil {
			return err
		}
		return runQuery(cmd, func(ds *drawSession) (int, error) { return ds.RandInt(maxv[0]) })
	},
}

var queryPowIntCmd = &cobra.Command{
	Use:   "powint A B",
	Short: "Print A raised to B, computed by the backend",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := parseInts(args)
		if err != nil {
			return err
		}
		return runQuery(cmd, func(ds *drawSession) (int, error) { return ds.PowInt(n[0], n[1]) })
	},
}

func init() {
	queryCmd.AddCommand(queryHeadingCmd, queryRandIntCmd, queryPowIntCmd)
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, ask func(*drawSession) (int, error)) error {
	ds, err := openSession(cmd)
	if err != nil {
		return err
	}
	v, err := ask(ds)
	closeErr := ds.close()
	if err != nil {
		return err
	}
	if closeErr != nil {
		return closeErr
	}
	fmt.Fprintln(cmd.OutOrStdout(), v)
	return nil
}

func parseInts(args []string) ([]int, error) {
	out := make([]int, len(args))
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", a)
		}
		out[i] = n
	}
	return out, nil
}
