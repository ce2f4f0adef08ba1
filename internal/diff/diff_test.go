package diff

import (
	"testing"

	"github.com/BerriAI/fireworks-ai-cost-agent/internal/model"
	"github.com/BerriAI/fireworks-ai-cost-agent/internal/normalize"
)

func rec(id string) model.Record {
	return model.Record{
		ID:            id,
		Name:          id,
		Kind:          model.KindLLM,
		ContextWindow: 131072,
		Pricing:       model.TokenIOPricing(0.9, 0.9),
	}
}

func TestMissingModelDetected(t *testing.T) {
	norm := normalize.New()
	scraped := []model.Record{rec("llama-v3p3-70b-instruct"), rec("kimi-k2-instruct")}
	target := norm.TargetKeys([]string{
		"fireworks_ai/accounts/fireworks/models/llama-v3p3-70b-instruct",
	})

	res := Compute(norm, scraped, target)

	if len(res.Missing) != 1 {
		t.Fatalf("expected 1 missing, got %d", len(res.Missing))
	}
	a := res.Missing[0]
	if a.CanonicalKey != "kimi-k2-instruct" {
		t.Errorf("canonical key = %q", a.CanonicalKey)
	}
	if a.CatalogKey != "fireworks_ai/accounts/fireworks/models/kimi-k2-instruct" {
		t.Errorf("catalog key = %q", a.CatalogKey)
	}
	if a.Entry.LiteLLMProvider != "fireworks_ai" {
		t.Errorf("entry not populated: %+v", a.Entry)
	}
	if res.ScrapedCount != 2 {
		t.Errorf("scraped count = %d, want 2", res.ScrapedCount)
	}
}

func TestAliasSpellingsNotReportedMissing(t *testing.T) {
	norm := normalize.New()
	// Scraped spelling differs from the stored key; the alias table must
	// keep this from surfacing as a false addition.
	scraped := []model.Record{rec("llama-3p1-405b-instruct")}
	target := norm.TargetKeys([]string{
		"fireworks_ai/accounts/fireworks/models/llama-v3p1-405b-instruct",
	})

	res := Compute(norm, scraped, target)
	if res.HasChanges() {
		t.Errorf("alias spelling reported as missing: %+v", res.Missing)
	}
}

func TestEmptyTargetReportsAll(t *testing.T) {
	norm := normalize.New()
	scraped := []model.Record{rec("a-model"), rec("b-model")}

	res := Compute(norm, scraped, map[string]struct{}{})
	if len(res.Missing) != 2 {
		t.Fatalf("expected 2 missing, got %d", len(res.Missing))
	}
}

func TestDuplicateScrapeLaterWins(t *testing.T) {
	norm := normalize.New()
	first := rec("dup-model")
	first.ContextWindow = 4096
	second := rec("dup-model")
	second.ContextWindow = 131072

	res := Compute(norm, []model.Record{first, rec("other-model"), second}, map[string]struct{}{})

	if len(res.Missing) != 2 {
		t.Fatalf("expected 2 missing after dedupe, got %d", len(res.Missing))
	}
	// Position of the first occurrence is kept, content of the later one.
	if res.Missing[0].CanonicalKey != "dup-model" {
		t.Errorf("dedupe changed ordering: %q first", res.Missing[0].CanonicalKey)
	}
	if res.Missing[0].Record.ContextWindow != 131072 {
		t.Errorf("later duplicate did not win: context = %d", res.Missing[0].Record.ContextWindow)
	}
}

func TestUnknownBucketExcluded(t *testing.T) {
	norm := normalize.New()
	scraped := []model.Record{rec(""), rec("real-model")}

	res := Compute(norm, scraped, map[string]struct{}{})

	if res.SkippedUnknown != 1 {
		t.Errorf("skipped unknown = %d, want 1", res.SkippedUnknown)
	}
	if len(res.Missing) != 1 || res.Missing[0].CanonicalKey != "real-model" {
		t.Errorf("unexpected missing set: %+v", res.Missing)
	}
}

func TestNoScrapedNoChanges(t *testing.T) {
	norm := normalize.New()
	res := Compute(norm, nil, map[string]struct{}{})
	if res.HasChanges() {
		t.Error("empty scrape must not report changes")
	}
	if res.ScrapedCount != 0 {
		t.Errorf("scraped count = %d", res.ScrapedCount)
	}
}
