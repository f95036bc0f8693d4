// Package main is the entry point for the turtlert CLI.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/runger/turtlert/internal/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cmd.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
