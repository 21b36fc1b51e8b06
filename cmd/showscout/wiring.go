package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jonathan/showstart-scout/internal/agent"
	"github.com/jonathan/showstart-scout/internal/config"
	"github.com/jonathan/showstart-scout/internal/db"
	"github.com/jonathan/showstart-scout/internal/fetch"
	"github.com/jonathan/showstart-scout/internal/llm"
	"github.com/jonathan/showstart-scout/internal/search"
)

// app holds the dependencies built once at startup.
type app struct {
	cfg     *config.Config
	store   db.Store
	llm     llm.Client
	service *search.Service
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

func openStore(ctx context.Context, cfg *config.Config) (db.Store, error) {
	store, err := db.Open(ctx, cfg.Database.Driver, cfg.Database.URL, db.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return store, nil
}

func newRenderer(cfg *config.Config) fetch.Renderer {
	if !cfg.Browser.Enabled {
		return fetch.NewHTTPRenderer(cfg.Browser.RenderTimeout)
	}
	r := fetch.NewChromeRenderer(cfg.Browser.Headless, cfg.Browser.RenderTimeout)
	r.Verbose = cfg.Verbose
	return r
}

// rendererKind names the renderer for startup logs.
func rendererKind(r fetch.Renderer) string {
	switch r.(type) {
	case *fetch.ChromeRenderer:
		return "chromedp"
	case *fetch.HTTPRenderer:
		return "http"
	default:
		return fmt.Sprintf("%T", r)
	}
}

// newApp connects the store, creates the LLM client and assembles the search service.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// Later operations report their own failures, so a missing schema does not stop startup.
	if err := store.EnsureSchema(ctx); err != nil {
		log.Printf("[db] ensure schema failed: %v", err)
	}

	client, err := llm.NewClient(ctx, llm.DefaultConfig().WithModel(cfg.LLM.Model), cfg.LLM.APIKey)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	renderer := newRenderer(cfg)
	browser := agent.NewBrowserAgent(renderer, client)
	browser.Verbose = cfg.Verbose

	service := search.New(search.Options{
		Agent:         browser,
		Store:         store,
		SearchURL:     cfg.Search.SiteURL,
		MaxConcurrent: int64(cfg.Search.MaxConcurrent),
		Verbose:       cfg.Verbose,
	})

	log.Printf("Using model %s, renderer %s", client.Model(), rendererKind(renderer))
	return &app{cfg: cfg, store: store, llm: client, service: service}, nil
}

// close drains detached searches then releases the LLM client and store.
func (a *app) close(ctx context.Context) error {
	err := a.service.Close(ctx)
	if cerr := a.llm.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if cerr := a.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
