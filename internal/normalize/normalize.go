// Package normalize maps raw model identifiers from both catalogs onto a
// shared canonical key so the diff compares models, not spellings.
package normalize

import "strings"

// aliases maps canonical-form spellings of the same underlying model onto
// one key. Both sides of the table are in canonical form (lowercase,
// dash-separated, namespace-stripped); entries are applied after the
// mechanical normalization steps. This table is the single source of
// truth for known naming drift between fireworks.ai and LiteLLM: extend
// it here, the diff logic never changes.
var aliases = map[string]string{
	// fireworks.ai spells Llama point releases with a "v" and "p",
	// LiteLLM has historically carried both spellings.
	"llama-3p1-405b-instruct":  "llama-v3p1-405b-instruct",
	"llama-3p1-70b-instruct":   "llama-v3p1-70b-instruct",
	"llama-3p1-8b-instruct":    "llama-v3p1-8b-instruct",
	"llama-3p2-3b-instruct":    "llama-v3p2-3b-instruct",
	"llama-3p3-70b-instruct":   "llama-v3p3-70b-instruct",
	"firefunction-v2-rc":       "firefunction-v2",
	"mixtral-8x7b-instruct-hf": "mixtral-8x7b-instruct",
	"qwen2p5-72b-instruct":     "qwen2-5-72b-instruct",
}

// namespacePrefixes are vendor prefixes the two catalogs use
// inconsistently and that carry no identity.
var namespacePrefixes = []string{
	"fireworks_ai/",
	"fireworks-ai/",
}

// Normalizer derives canonical cross-catalog keys. The zero value is not
// usable; construct with New.
type Normalizer struct {
	aliases map[string]string
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithAliases overlays operator-maintained alias entries (e.g. from the
// config file) on top of the built-in table. Keys and values are
// normalized before use, so the overlay may be written in any spelling.
func WithAliases(extra map[string]string) Option {
	return func(n *Normalizer) {
		for k, v := range extra {
			n.aliases[mechanical(k)] = mechanical(v)
		}
	}
}

// New creates a Normalizer with the built-in alias table.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{aliases: make(map[string]string, len(aliases))}
	for k, v := range aliases {
		n.aliases[k] = v
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Canonical maps a raw model identifier to its canonical key. It is a
// total function: input that normalizes to nothing returns "" (the
// unknown bucket), which callers must exclude from diffing.
func (n *Normalizer) Canonical(rawID string) string {
	key := mechanical(rawID)
	if alias, ok := n.aliases[key]; ok {
		return alias
	}
	return key
}

// TargetKeys normalizes the key set of the target document. Only keys in
// the fireworks_ai namespace are comparable to scraped records; all
// other providers' entries are ignored.
func (n *Normalizer) TargetKeys(keys []string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, k := range keys {
		if !strings.HasPrefix(strings.ToLower(k), "fireworks") {
			continue
		}
		if c := n.Canonical(k); c != "" {
			out[c] = struct{}{}
		}
	}
	return out
}

// mechanical applies the deterministic normalization steps: lowercase,
// namespace stripping, separator unification and collapse.
func mechanical(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))

	for _, p := range namespacePrefixes {
		s = strings.TrimPrefix(s, p)
	}
	// Account-scoped paths like accounts/fireworks/models/<id>: only the
	// final segment carries identity.
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		s = s[i+1:]
	}

	s = strings.ReplaceAll(s, "_", "-")
	s = strings.ReplaceAll(s, " ", "-")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}
