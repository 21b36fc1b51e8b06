package fetch

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxLinks caps how many links are handed to the model.
const maxLinks = 200

// Link is an anchor found on a page.
type Link struct {
	Text string
	Href string
}

// Page is the reduced form of a rendered page.
type Page struct {
	URL   string
	Text  string
	Links []Link
}

// ExtractPage parses HTML into visible text and absolute links.
// Scripts, styles and navigation chrome are dropped first.
func ExtractPage(pageURL, html string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, noscript, svg, iframe, .cookie-banner, .popup").Remove()

	base, _ := url.Parse(pageURL)
	seen := make(map[string]bool)
	var links []Link
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		href = resolve(base, strings.TrimSpace(href))
		if href == "" || seen[href] {
			return true
		}
		seen[href] = true
		links = append(links, Link{Text: cleanWhitespace(s.Text()), Href: href})
		return len(links) < maxLinks
	})

	return &Page{
		URL:   pageURL,
		Text:  cleanWhitespace(doc.Find("body").Text()),
		Links: links,
	}, nil
}

// FormatLinks renders links one per line as "text -> href".
func (p *Page) FormatLinks() string {
	var sb strings.Builder
	for _, l := range p.Links {
		text := strings.ReplaceAll(l.Text, "\n", " ")
		sb.WriteString(fmt.Sprintf("%s -> %s\n", text, l.Href))
	}
	return sb.String()
}

func resolve(base *url.URL, href string) string {
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// cleanWhitespace normalizes whitespace in text.
func cleanWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
