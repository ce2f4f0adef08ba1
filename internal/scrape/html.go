package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/BerriAI/fireworks-ai-cost-agent/internal/htmlutil"
	"github.com/BerriAI/fireworks-ai-cost-agent/internal/httpclient"
	"github.com/BerriAI/fireworks-ai-cost-agent/internal/model"
)

// HTML scrapes the models page markup directly with goquery. It is the
// fallback when no Firecrawl key is configured; the page serves enough
// server-rendered content for the card anchors to be present. Fetches
// go through the shared client so the page sees the same rate budget
// and cache as every other outbound call.
type HTML struct {
	client  *httpclient.Client
	pageURL string
}

// NewHTML creates the goquery-backed scraper.
func NewHTML(client *httpclient.Client, pageURL string) *HTML {
	if pageURL == "" {
		pageURL = DefaultPageURL
	}
	return &HTML{client: client, pageURL: pageURL}
}

// FetchModels fetches and parses the models page.
func (h *HTML) FetchModels(ctx context.Context) ([]model.Record, error) {
	doc, err := htmlutil.Fetch(ctx, h.client, h.pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetching models page: %w", err)
	}

	records := parseDocument(doc)
	if len(records) == 0 {
		return nil, fmt.Errorf("no model cards found on %s", h.pageURL)
	}

	slog.Info("html scrape complete", "models", len(records))
	return records, nil
}

func parseDocument(doc *goquery.Document) []model.Record {
	cards := htmlutil.Cards(doc, "/models/")
	cards = append(cards, htmlutil.Cards(doc, "https://fireworks.ai/models/")...)

	var records []model.Record
	for _, card := range cards {
		id := ModelIDFromURL(card.Href)
		if id == "" {
			continue
		}
		// Cards without a price are navigation links, not model listings.
		if !strings.ContainsRune(card.Text, '$') {
			continue
		}

		name, pricingText := splitNamePricing(card.Text)
		pricing, contextWindow := ParsePricing(pricingText)

		// The kind label trails the pricing text on the card.
		kind := model.KindLLM
		fields := strings.Fields(card.Text)
		if len(fields) > 0 {
			kind = model.ParseKind(fields[len(fields)-1])
		}

		records = append(records, model.Record{
			ID:            id,
			Name:          name,
			Kind:          kind,
			ContextWindow: contextWindow,
			Pricing:       pricing,
		})
	}

	return dedupe(records)
}
