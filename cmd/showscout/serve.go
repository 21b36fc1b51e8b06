package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/showstart-scout/internal/config"
	"github.com/jonathan/showstart-scout/internal/server"
)

var (
	servePort int
	serveHost string
	serveMode string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes POST /search/rapper, GET /health and GET /.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from config, 8000)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind (default from config, 0.0.0.0)")
	serveCmd.Flags().StringVar(&serveMode, "mode", "", "Search mode: sync or async")
	rootCmd.AddCommand(serveCmd)
}

// applyServeFlags lets explicit flags win over file and environment values.
func applyServeFlags(cfg *config.Config) error {
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if serveMode != "" {
		cfg.Server.Mode = serveMode
	}
	return cfg.Validate()
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyServeFlags(cfg); err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	srv := server.New(cfg, a.service)
	srv.OnShutdown(func(ctx context.Context) error { return a.close(ctx) })
	return srv.Start()
}
