// Package htmlutil holds the goquery plumbing shared by HTML scrapers.
package htmlutil

import (
	"bytes"
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/BerriAI/fireworks-ai-cost-agent/internal/httpclient"
)

// Fetch retrieves the page through the shared rate-limited client with
// a browser-like User-Agent and returns the parsed HTML document.
func Fetch(ctx context.Context, client *httpclient.Client, url string) (*goquery.Document, error) {
	resp, err := client.Get(ctx, url, map[string]string{
		"User-Agent": "Mozilla/5.0 (compatible; fireworks-ai-cost-agent/1.0; +https://github.com/BerriAI/fireworks-ai-cost-agent)",
		"Accept":     "text/html",
	})
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML from %s: %w", url, err)
	}

	return doc, nil
}
