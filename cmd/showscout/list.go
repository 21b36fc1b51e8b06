package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/showstart-scout/internal/observability"
	"github.com/jonathan/showstart-scout/internal/types"
)

var listCmd = &cobra.Command{
	Use:   "list <rapper-name>",
	Short: "Print stored performances for a rapper as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	records, err := store.ListByPerformer(ctx, args[0])
	if err != nil {
		return err
	}
	if records == nil {
		records = []types.PerformanceRecord{}
	}
	if cfg.Verbose {
		observability.NewPrinter(cmd.ErrOrStderr()).PrintRecords(args[0], records)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}
	return nil
}
