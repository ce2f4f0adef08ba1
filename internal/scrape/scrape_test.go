package scrape

import (
	"testing"

	"github.com/BerriAI/fireworks-ai-cost-agent/internal/model"
)

func TestParsePricing(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    model.Pricing
		wantCtx int
	}{
		{
			name:    "token io with context",
			text:    "$0.45/M Input • $1.8/M Output 163840 Context",
			want:    model.TokenIOPricing(0.45, 1.8),
			wantCtx: 163840,
		},
		{
			name: "unified tokens",
			text: "$0.2/M Tokens",
			want: model.UnifiedPricing(0.2),
		},
		{
			name: "unified singular token",
			text: "$0.1/M Token",
			want: model.UnifiedPricing(0.1),
		},
		{
			name: "per image",
			text: "$0.014/Image",
			want: model.PerImagePricing(0.014),
		},
		{
			name: "per step",
			text: "$0.0005/Step",
			want: model.PerImagePricing(0.0005),
		},
		{
			name: "per second",
			text: "$0.004/Second",
			want: model.PerSecondPricing(0.004),
		},
		{
			name:    "context only",
			text:    "131072 Context",
			want:    model.NoPricing(),
			wantCtx: 131072,
		},
		{
			name: "no price at all",
			text: "Serverless",
			want: model.NoPricing(),
		},
		{
			name:    "token io with middle dot separator",
			text:    "$3/M Input · $8/M Output 262144 Context",
			want:    model.TokenIOPricing(3, 8),
			wantCtx: 262144,
		},
	}

	for _, tt := range tests {
		got, ctx := ParsePricing(tt.text)
		if got != tt.want {
			t.Errorf("%s: ParsePricing(%q) = %+v, want %+v", tt.name, tt.text, got, tt.want)
		}
		if ctx != tt.wantCtx {
			t.Errorf("%s: context = %d, want %d", tt.name, ctx, tt.wantCtx)
		}
	}
}

func TestModelIDFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://fireworks.ai/models/fireworks/llama-v3p3-70b-instruct", "llama-v3p3-70b-instruct"},
		{"/models/fireworks/qwen3-235b-a22b", "qwen3-235b-a22b"},
		{"https://fireworks.ai/models/sentientfoundation/dobby-unhinged", "dobby-unhinged"},
		{"https://fireworks.ai/pricing", ""},
		{"/models/fireworks", ""},
	}
	for _, tt := range tests {
		if got := ModelIDFromURL(tt.url); got != tt.want {
			t.Errorf("ModelIDFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestDedupeLaterWins(t *testing.T) {
	records := []model.Record{
		{ID: "a", ContextWindow: 1},
		{ID: "b", ContextWindow: 2},
		{ID: "a", ContextWindow: 3},
	}

	out := dedupe(records)
	if len(out) != 2 {
		t.Fatalf("got %d records, want 2", len(out))
	}
	if out[0].ID != "a" || out[0].ContextWindow != 3 {
		t.Errorf("later duplicate did not win in place: %+v", out[0])
	}
	if out[1].ID != "b" {
		t.Errorf("ordering broken: %+v", out)
	}
}

func TestSplitNamePricing(t *testing.T) {
	name, pricing := splitNamePricing("Llama 3.3 70B Instruct $0.9/M Tokens 131072 Context LLM")
	if name != "Llama 3.3 70B Instruct" {
		t.Errorf("name = %q", name)
	}
	if pricing != "$0.9/M Tokens 131072 Context LLM" {
		t.Errorf("pricing = %q", pricing)
	}

	name, pricing = splitNamePricing("No Price Here")
	if name != "No Price Here" || pricing != "" {
		t.Errorf("priceless card: name=%q pricing=%q", name, pricing)
	}
}
