// Package scrape produces model records from the fireworks.ai models
// page. Two collaborators implement the same contract: Firecrawl turns
// the page into markdown via its scrape API, and HTML parses the page
// markup directly when no Firecrawl key is configured.
package scrape

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/BerriAI/fireworks-ai-cost-agent/internal/model"
)

// DefaultPageURL is the Fireworks AI model listing page.
const DefaultPageURL = "https://fireworks.ai/models"

// Scraper fetches the raw model records from the source site.
type Scraper interface {
	FetchModels(ctx context.Context) ([]model.Record, error)
}

var (
	// $0.45/M Input • $1.8/M Output
	tokenIORe = regexp.MustCompile(`\$([0-9.]+)/M\s*Input\s*[•·]\s*\$([0-9.]+)/M\s*Output`)
	// $0.2/M Tokens
	unifiedRe = regexp.MustCompile(`\$([0-9.]+)/M\s*Tokens?`)
	// $0.04/Image, $0.01/Step (diffusion models price per generation step)
	perImageRe = regexp.MustCompile(`\$([0-9.]+)\s*/\s*(?:Image|Step)`)
	// $0.004/Second
	perSecondRe = regexp.MustCompile(`\$([0-9.]+)\s*/\s*Second`)
	// 262144 Context
	contextRe = regexp.MustCompile(`(\d+)\s*Context`)
	// /models/<account>/<model-id>
	modelIDRe = regexp.MustCompile(`/models/[^/]+/([^/)\s]+)`)
)

// ParsePricing extracts the pricing variant and context window from a
// card's pricing text. Text with no recognizable price yields
// model.NoPricing; the record is still comparable, it just carries zero
// costs in its entry.
func ParsePricing(text string) (model.Pricing, int) {
	pricing := model.NoPricing()

	switch {
	case tokenIORe.MatchString(text):
		m := tokenIORe.FindStringSubmatch(text)
		in, _ := strconv.ParseFloat(m[1], 64)
		out, _ := strconv.ParseFloat(m[2], 64)
		pricing = model.TokenIOPricing(in, out)
	case unifiedRe.MatchString(text):
		m := unifiedRe.FindStringSubmatch(text)
		p, _ := strconv.ParseFloat(m[1], 64)
		pricing = model.UnifiedPricing(p)
	case perSecondRe.MatchString(text):
		m := perSecondRe.FindStringSubmatch(text)
		p, _ := strconv.ParseFloat(m[1], 64)
		pricing = model.PerSecondPricing(p)
	case perImageRe.MatchString(text):
		m := perImageRe.FindStringSubmatch(text)
		p, _ := strconv.ParseFloat(m[1], 64)
		pricing = model.PerImagePricing(p)
	}

	contextWindow := 0
	if m := contextRe.FindStringSubmatch(text); m != nil {
		contextWindow, _ = strconv.Atoi(m[1])
	}

	return pricing, contextWindow
}

// ModelIDFromURL extracts the model ID from a model page URL such as
// https://fireworks.ai/models/fireworks/llama-v3p3-70b-instruct.
// Returns "" when the URL does not point at a model page.
func ModelIDFromURL(url string) string {
	m := modelIDRe.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[1]
}

// dedupe collapses records sharing a raw ID. The source site sometimes
// lists a model twice; the later occurrence wins, consistent with
// last-scrape-wins freshness.
func dedupe(records []model.Record) []model.Record {
	index := make(map[string]int, len(records))
	out := records[:0]
	for _, r := range records {
		if i, seen := index[r.ID]; seen {
			out[i] = r
			continue
		}
		index[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}

// splitNamePricing separates a card's display name from its pricing
// text: everything before the first dollar sign is the name.
func splitNamePricing(text string) (name, pricing string) {
	i := strings.IndexByte(text, '$')
	if i < 0 {
		return strings.TrimSpace(text), ""
	}
	return strings.TrimSpace(text[:i]), strings.TrimSpace(text[i:])
}
