package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/showstart-scout/internal/observability"
)

var searchTimeout time.Duration

var searchCmd = &cobra.Command{
	Use:   "search <rapper-name>",
	Short: "Run one search and print the outcome as JSON",
	Long:  "Run a synchronous search for the named rapper, persist the results and print the SearchOutcome.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().DurationVar(&searchTimeout, "timeout", 0, "Agent deadline, 0 waits indefinitely (default from config, 300s)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	timeout := searchTimeout
	if !cmd.Flags().Changed("timeout") {
		timeout = secondsToDuration(cfg.Search.DefaultTimeoutSeconds)
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.close(context.Background()) }()

	outcome := a.service.Search(ctx, args[0], timeout)
	if cfg.Verbose {
		observability.NewPrinter(cmd.ErrOrStderr()).PrintOutcome(outcome)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(outcome); err != nil {
		return fmt.Errorf("failed to write outcome: %w", err)
	}
	if !outcome.Success {
		return fmt.Errorf("search failed")
	}
	return nil
}
