package normalize

import "testing"

func TestCanonicalStripsNamespaceAndPath(t *testing.T) {
	n := New()

	tests := []struct {
		raw  string
		want string
	}{
		{"fireworks_ai/accounts/fireworks/models/llama-v3p3-70b-instruct", "llama-v3p3-70b-instruct"},
		{"fireworks-ai/llama-v3p3-70b-instruct", "llama-v3p3-70b-instruct"},
		{"accounts/fireworks/models/qwen3-235b-a22b", "qwen3-235b-a22b"},
		{"llama-v3p3-70b-instruct", "llama-v3p3-70b-instruct"},
	}
	for _, tt := range tests {
		if got := n.Canonical(tt.raw); got != tt.want {
			t.Errorf("Canonical(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestCanonicalSeparatorUnification(t *testing.T) {
	n := New()

	tests := []struct {
		raw  string
		want string
	}{
		{"Llama_V3p3 70B Instruct", "llama-v3p3-70b-instruct"},
		{"deepseek__v3", "deepseek-v3"},
		{"-padded-id-", "padded-id"},
		{"UPPER-CASE", "upper-case"},
	}
	for _, tt := range tests {
		if got := n.Canonical(tt.raw); got != tt.want {
			t.Errorf("Canonical(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestCanonicalAppliesAliases(t *testing.T) {
	n := New()

	// Both spellings of the same model must land on one key.
	a := n.Canonical("llama-3p1-405b-instruct")
	b := n.Canonical("fireworks_ai/accounts/fireworks/models/llama-v3p1-405b-instruct")
	if a != b {
		t.Errorf("alias spellings diverged: %q vs %q", a, b)
	}
}

func TestCanonicalUnknownBucket(t *testing.T) {
	n := New()

	for _, raw := range []string{"", "   ", "---", "fireworks_ai/"} {
		if got := n.Canonical(raw); got != "" {
			t.Errorf("Canonical(%q) = %q, want empty (unknown bucket)", raw, got)
		}
	}
}

func TestCanonicalIdempotent(t *testing.T) {
	n := New()

	inputs := []string{
		"fireworks_ai/accounts/fireworks/models/llama-v3p3-70b-instruct",
		"Llama_3p1 405B Instruct",
		"qwen2p5-72b-instruct",
	}
	for _, raw := range inputs {
		once := n.Canonical(raw)
		twice := n.Canonical(once)
		if once != twice {
			t.Errorf("Canonical not idempotent for %q: %q then %q", raw, once, twice)
		}
	}
}

func TestWithAliasesOverlay(t *testing.T) {
	n := New(WithAliases(map[string]string{
		// Operator writes the overlay in raw spelling; both sides get
		// normalized before use.
		"My_Custom Model": "fireworks_ai/accounts/fireworks/models/custom-model",
	}))

	if got := n.Canonical("my-custom-model"); got != "custom-model" {
		t.Errorf("overlay alias not applied: got %q", got)
	}
	// Built-in table still intact.
	if got := n.Canonical("firefunction-v2-rc"); got != "firefunction-v2" {
		t.Errorf("built-in alias lost after overlay: got %q", got)
	}
}

func TestTargetKeysFiltersProviders(t *testing.T) {
	n := New()

	keys := []string{
		"fireworks_ai/accounts/fireworks/models/llama-v3p3-70b-instruct",
		"fireworks_ai/accounts/fireworks/models/qwen3-30b-a3b",
		"gpt-4o",
		"anthropic/claude-3-5-sonnet",
		"vertex_ai/gemini-pro",
	}

	got := n.TargetKeys(keys)
	if len(got) != 2 {
		t.Fatalf("expected 2 fireworks keys, got %d: %v", len(got), got)
	}
	if _, ok := got["llama-v3p3-70b-instruct"]; !ok {
		t.Error("expected llama-v3p3-70b-instruct in target keys")
	}
	if _, ok := got["gpt-4o"]; ok {
		t.Error("non-fireworks key leaked into target keys")
	}
}
