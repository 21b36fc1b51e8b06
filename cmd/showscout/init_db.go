package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/showstart-scout/internal/db"
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the performances table if it does not exist",
	Args:  cobra.NoArgs,
	RunE:  runInitDB,
}

func init() {
	rootCmd.AddCommand(initDBCmd)
}

func runInitDB(cmd *cobra.Command, _ []string) error {
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

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Table %s is ready\n", db.Table)
	return nil
}
