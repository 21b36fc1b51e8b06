package search

import (
	"net/url"
	"strings"

	"github.com/jonathan/showstart-scout/internal/prompts"
)

// DefaultSearchURL is the showstart keyword search page.
const DefaultSearchURL = "https://www.showstart.com/event/list"

// SearchPageURL returns the result page for a keyword search on base.
func SearchPageURL(base, rapperName string) string {
	if base == "" {
		base = DefaultSearchURL
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "keyword=" + url.QueryEscape(rapperName)
}

// BuildDirective fills the task directive for rapperName.
func BuildDirective(base, rapperName string) (string, error) {
	template, err := prompts.Get(prompts.SearchFile, prompts.KeyTaskDirective)
	if err != nil {
		return "", err
	}
	example, err := prompts.Get(prompts.SearchFile, prompts.KeyOutputExample)
	if err != nil {
		return "", err
	}
	return prompts.Format(template, map[string]string{
		"RapperName": rapperName,
		"SearchURL":  SearchPageURL(base, rapperName),
		"Example":    example,
	}), nil
}
