// Package main provides the smarttrack command-line tool: device ids, QR
// tokens, user administration and period reports against the configured
// store.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"smarttrack/internal/config"
	"smarttrack/internal/store"
)

// opener yields the store the data commands work on.
type opener func(ctx context.Context) (store.Store, io.Closer, error)

func main() {
	if err := rootCmd(openConfigured).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openConfigured(ctx context.Context) (store.Store, io.Closer, error) {
	cfg := config.Load()
	st, closer, err := store.Open(ctx, cfg.StoreBackend, cfg.StoreDSN(), cfg.RedisAddr)
	if err != nil {
		return nil, nil, err
	}
	return st, closer, nil
}

func rootCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "smarttrack",
		Short:         "SmartTrack attendance tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		deviceIDCmd(),
		networkCmd(),
		qrCmd(),
		usersCmd(open),
		reportCmd(open),
	)
	return cmd
}
