package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonathan/showstart-scout/internal/fetch"
	"github.com/jonathan/showstart-scout/internal/llm"
	"github.com/jonathan/showstart-scout/internal/prompts"
)

// maxPageRunes bounds the page text sent to the model.
const maxPageRunes = 60000

var urlPattern = regexp.MustCompile(`https?://[^\s"'<>]+`)

// ErrNoURL is returned when the directive names no page to open.
var ErrNoURL = errors.New("directive contains no URL")

// BrowserAgent opens the first URL in the directive, reduces the page to text
// and links, then asks the LLM to answer the directive from that content.
type BrowserAgent struct {
	Renderer fetch.Renderer
	LLM      llm.Client
	Verbose  bool
}

// NewBrowserAgent creates a BrowserAgent.
func NewBrowserAgent(renderer fetch.Renderer, client llm.Client) *BrowserAgent {
	return &BrowserAgent{Renderer: renderer, LLM: client}
}

// Run executes the three steps. A step failure ends the run with Done=false
// and the error recorded in Stats; it is not returned as err.
func (a *BrowserAgent) Run(ctx context.Context, directive string) (*Result, error) {
	if a.Renderer == nil || a.LLM == nil {
		return nil, fmt.Errorf("browser agent is not configured")
	}

	start := time.Now()
	result := &Result{}
	finish := func(err error) (*Result, error) {
		result.Stats.Errors = append(result.Stats.Errors, err)
		result.Stats.Duration = time.Since(start)
		if err != nil && ctx.Err() != nil {
			return result, ctx.Err()
		}
		return result, nil
	}

	// Step 1: navigate
	result.Stats.Steps++
	target := FirstURL(directive)
	if target == "" {
		return finish(ErrNoURL)
	}
	if a.Verbose {
		log.Printf("[agent] Step 1: rendering %s", target)
	}
	html, err := a.Renderer.Render(ctx, target)
	if err != nil {
		return finish(fmt.Errorf("render %s: %w", target, err))
	}
	result.Stats.Errors = append(result.Stats.Errors, nil)

	// Step 2: extract
	result.Stats.Steps++
	page, err := fetch.ExtractPage(target, html)
	if err != nil {
		return finish(fmt.Errorf("extract page: %w", err))
	}
	if a.Verbose {
		log.Printf("[agent] Step 2: page text %d chars, %d links", len(page.Text), len(page.Links))
	}
	result.Stats.Errors = append(result.Stats.Errors, nil)

	// Step 3: answer
	result.Stats.Steps++
	template, err := prompts.Get(prompts.SearchFile, prompts.KeyExtractListings)
	if err != nil {
		return finish(err)
	}
	prompt := prompts.Format(template, map[string]string{
		"Directive": directive,
		"URL":       target,
		"PageText":  truncateRunes(page.Text, maxPageRunes),
		"Links":     page.FormatLinks(),
	})
	text, err := a.LLM.GenerateJSON(ctx, prompt)
	if err != nil {
		return finish(fmt.Errorf("%s: %w", a.LLM.Model(), err))
	}
	if a.Verbose {
		log.Printf("[agent] Step 3: model answered with %d bytes", len(text))
	}

	result.FinalText = strings.TrimSpace(text)
	result.Stats.Done = true
	result.Stats.Successful = result.FinalText != ""
	return finish(nil)
}

// FirstURL returns the first http(s) URL in text, without trailing punctuation.
func FirstURL(text string) string {
	match := urlPattern.FindString(text)
	return strings.TrimRight(match, ".,;:)]}")
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
