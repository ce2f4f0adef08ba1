package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/BerriAI/fireworks-ai-cost-agent/internal/httpclient"
	"github.com/BerriAI/fireworks-ai-cost-agent/internal/model"
)

// DefaultFirecrawlBaseURL is the hosted Firecrawl API.
const DefaultFirecrawlBaseURL = "https://api.firecrawl.dev"

// Firecrawl scrapes the models page through the Firecrawl API, which
// renders the JavaScript-heavy listing and returns it as markdown.
type Firecrawl struct {
	client  *httpclient.Client
	apiKey  string
	baseURL string
	pageURL string
}

// NewFirecrawl creates a Firecrawl-backed scraper.
func NewFirecrawl(client *httpclient.Client, apiKey, baseURL, pageURL string) *Firecrawl {
	if baseURL == "" {
		baseURL = DefaultFirecrawlBaseURL
	}
	if pageURL == "" {
		pageURL = DefaultPageURL
	}
	return &Firecrawl{client: client, apiKey: apiKey, baseURL: baseURL, pageURL: pageURL}
}

type scrapeRequest struct {
	URL             string   `json:"url"`
	OnlyMainContent bool     `json:"onlyMainContent"`
	Formats         []string `json:"formats"`
}

type scrapeResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Markdown string `json:"markdown"`
	} `json:"data"`
}

// FetchModels scrapes the models page and parses the returned markdown.
func (f *Firecrawl) FetchModels(ctx context.Context) ([]model.Record, error) {
	payload, err := json.Marshal(scrapeRequest{
		URL:             f.pageURL,
		OnlyMainContent: false,
		Formats:         []string{"markdown"},
	})
	if err != nil {
		return nil, fmt.Errorf("building scrape request: %w", err)
	}

	headers := map[string]string{
		"Authorization": "Bearer " + f.apiKey,
	}
	resp, err := f.client.PostJSON(ctx, f.baseURL+"/v2/scrape", payload, headers)
	if err != nil {
		return nil, fmt.Errorf("firecrawl scrape: %w", err)
	}

	var sr scrapeResponse
	if err := json.Unmarshal(resp.Body, &sr); err != nil {
		return nil, fmt.Errorf("parsing firecrawl response: %w", err)
	}
	if !sr.Success {
		return nil, fmt.Errorf("firecrawl scrape: API reported failure")
	}
	if sr.Data.Markdown == "" {
		return nil, fmt.Errorf("firecrawl scrape: empty markdown content")
	}

	records := ParseMarkdown(sr.Data.Markdown)
	slog.Info("firecrawl scrape complete",
		"markdown_bytes", len(sr.Data.Markdown),
		"models", len(records))
	return records, nil
}

// markdownCardRe matches one model card in the Firecrawl markdown:
// **Name**, pricing text, optional kind label, then the model link.
// Firecrawl embeds literal \n sequences inside link titles, hence the
// escaped-backslash alternatives in the whitespace classes.
var markdownCardRe = regexp.MustCompile(`\*\*([^*]+)\*\*[\s\\n]*([^\\]*\$[^\\]*?)[\s\\n]*(LLM|Vision|Image|Audio|Embedding|Reranker)?\]?\(?(https://fireworks\.ai/models/[^)\s]+)`)

// ParseMarkdown extracts model records from the Firecrawl markdown
// rendering of the models page.
func ParseMarkdown(markdown string) []model.Record {
	var records []model.Record

	for _, m := range markdownCardRe.FindAllStringSubmatch(markdown, -1) {
		name := strings.TrimSpace(m[1])
		pricingText := strings.TrimSpace(m[2])
		kindLabel := strings.TrimSpace(m[3])
		url := strings.TrimSpace(m[4])

		id := ModelIDFromURL(url)
		if id == "" {
			continue
		}

		pricing, contextWindow := ParsePricing(pricingText)
		records = append(records, model.Record{
			ID:            id,
			Name:          name,
			Kind:          model.ParseKind(kindLabel),
			ContextWindow: contextWindow,
			Pricing:       pricing,
		})
	}

	return dedupe(records)
}
