package validate

import (
	"testing"

	"github.com/BerriAI/fireworks-ai-cost-agent/internal/diff"
	"github.com/BerriAI/fireworks-ai-cost-agent/internal/model"
)

func addition(id string) diff.Addition {
	rec := model.Record{
		ID:            id,
		Name:          id,
		Kind:          model.KindLLM,
		ContextWindow: 131072,
		Pricing:       model.TokenIOPricing(0.9, 0.9),
	}
	return diff.Addition{
		CanonicalKey: id,
		CatalogKey:   rec.CatalogKey(),
		Record:       rec,
		Entry:        rec.LiteLLMEntry(),
	}
}

func TestValidAdditionPasses(t *testing.T) {
	r := ValidateAdditions([]diff.Addition{addition("llama-v3p3-70b-instruct")})
	if r.HasErrors() {
		t.Fatalf("valid addition rejected:\n%s", FormatResult(r))
	}
	if len(r.Warnings()) != 0 {
		t.Errorf("unexpected warnings: %v", r.Warnings())
	}
}

func TestWrongNamespaceRejected(t *testing.T) {
	a := addition("some-model")
	a.CatalogKey = "openai/some-model"

	r := ValidateAdditions([]diff.Addition{a})
	if !r.HasErrors() {
		t.Fatal("catalog key outside fireworks_ai accepted")
	}
}

func TestEmptyCanonicalKeyRejected(t *testing.T) {
	a := addition("some-model")
	a.CanonicalKey = ""

	r := ValidateAdditions([]diff.Addition{a})
	if !r.HasErrors() {
		t.Fatal("empty canonical key accepted")
	}
}

func TestInvalidEntryRejected(t *testing.T) {
	a := addition("some-model")
	a.Entry.Mode = "telepathy"

	r := ValidateAdditions([]diff.Addition{a})
	if !r.HasErrors() {
		t.Fatal("entry with unknown mode accepted")
	}
}

func TestZeroContextRejectedBySchema(t *testing.T) {
	a := addition("some-model")
	a.Entry.MaxTokens = 0

	r := ValidateAdditions([]diff.Addition{a})
	if !r.HasErrors() {
		t.Fatal("entry with max_tokens 0 accepted")
	}
}

func TestDuplicateKeysRejected(t *testing.T) {
	r := ValidateAdditions([]diff.Addition{addition("dup"), addition("dup")})
	if !r.HasErrors() {
		t.Fatal("duplicate catalog keys accepted")
	}
}

func TestMissingPricingWarns(t *testing.T) {
	rec := model.Record{
		ID:            "mystery-model",
		ContextWindow: 8192,
		Pricing:       model.NoPricing(),
	}
	a := diff.Addition{
		CanonicalKey: "mystery-model",
		CatalogKey:   rec.CatalogKey(),
		Record:       rec,
		Entry:        rec.LiteLLMEntry(),
	}

	r := ValidateAdditions([]diff.Addition{a})
	if r.HasErrors() {
		t.Fatalf("zero-cost entry must be a warning, not an error:\n%s", FormatResult(r))
	}
	if len(r.Warnings()) == 0 {
		t.Error("expected a warning for missing pricing")
	}
}

func TestMissingContextWarns(t *testing.T) {
	rec := model.Record{
		ID:      "no-context-model",
		Pricing: model.UnifiedPricing(0.2),
	}
	a := diff.Addition{
		CanonicalKey: "no-context-model",
		CatalogKey:   rec.CatalogKey(),
		Record:       rec,
		Entry:        rec.LiteLLMEntry(),
	}

	r := ValidateAdditions([]diff.Addition{a})
	if r.HasErrors() {
		t.Fatalf("defaulted context must not block:\n%s", FormatResult(r))
	}
	if len(r.Warnings()) == 0 {
		t.Error("expected a warning for defaulted context window")
	}
}

func TestFormatResult(t *testing.T) {
	r := &Result{}
	if FormatResult(r) != "no issues" {
		t.Errorf("empty result formatted as %q", FormatResult(r))
	}

	r.Issues = append(r.Issues, Issue{SeverityError, "k", "broken"})
	if got := FormatResult(r); got != "[ERROR] k: broken" {
		t.Errorf("formatted as %q", got)
	}
}
