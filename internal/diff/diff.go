// Package diff computes which scraped models are absent from the target
// document, by canonical key. Compute is pure: no I/O, no logging side
// effects beyond the returned counts, independently unit-testable.
package diff

import (
	"github.com/BerriAI/fireworks-ai-cost-agent/internal/model"
	"github.com/BerriAI/fireworks-ai-cost-agent/internal/normalize"
)

// Addition is one model missing from the target document, carrying the
// complete entry the patcher will append.
type Addition struct {
	// CanonicalKey is the normalized cross-catalog identifier.
	CanonicalKey string
	// CatalogKey is the literal key to write into the document.
	CatalogKey string
	Record     model.Record
	Entry      model.Entry
}

// Result is the outcome of one diff computation.
type Result struct {
	// Missing holds one addition per canonical key, in scrape order.
	Missing []Addition
	// ScrapedCount is the number of records considered, including
	// duplicates and unnormalizable ones.
	ScrapedCount int
	// SkippedUnknown counts records that normalized to the unknown
	// bucket and were excluded from comparison.
	SkippedUnknown int
}

// HasChanges reports whether any models are missing from the target.
func (r *Result) HasChanges() bool { return len(r.Missing) > 0 }

// Compute returns the scraped records whose canonical key is not in
// targetKeys. If two scraped records normalize to the same canonical key
// the later one in scrape order wins; the result never contains two
// additions for one key. targetKeys must already be normalized (see
// normalize.TargetKeys).
func Compute(norm *normalize.Normalizer, scraped []model.Record, targetKeys map[string]struct{}) *Result {
	res := &Result{ScrapedCount: len(scraped)}

	index := make(map[string]int, len(scraped))
	for _, rec := range scraped {
		key := norm.Canonical(rec.ID)
		if key == "" {
			res.SkippedUnknown++
			continue
		}
		if _, exists := targetKeys[key]; exists {
			continue
		}

		add := Addition{
			CanonicalKey: key,
			CatalogKey:   rec.CatalogKey(),
			Record:       rec,
			Entry:        rec.LiteLLMEntry(),
		}
		if i, dup := index[key]; dup {
			// Duplicate listing on the source site: last scrape order
			// wins, position of the first occurrence is kept so output
			// order stays deterministic.
			res.Missing[i] = add
			continue
		}
		index[key] = len(res.Missing)
		res.Missing = append(res.Missing, add)
	}

	return res
}
