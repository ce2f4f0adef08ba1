// Package validate checks constructed catalog entries before they are
// patched into the document. A malformed entry must never reach a PR:
// schema violations block the run, suspicious-but-legal values surface
// as warnings in the PR body.
package validate

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonschema"

	"github.com/BerriAI/fireworks-ai-cost-agent/internal/diff"
	"github.com/BerriAI/fireworks-ai-cost-agent/internal/model"
)

// Severity classifies validation issues.
type Severity int

const (
	SeverityError   Severity = iota // Blocks the run
	SeverityWarning                 // Included in the PR body but doesn't block
)

// Issue represents a single validation problem.
type Issue struct {
	Severity Severity
	Key      string
	Message  string
}

func (i Issue) String() string {
	sev := "ERROR"
	if i.Severity == SeverityWarning {
		sev = "WARN"
	}
	return fmt.Sprintf("[%s] %s: %s", sev, i.Key, i.Message)
}

// Result holds all validation issues for one run.
type Result struct {
	Issues []Issue
}

// HasErrors returns true if any issue blocks the run.
func (r *Result) HasErrors() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Warnings returns only warning-severity issues.
func (r *Result) Warnings() []Issue {
	var warns []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityWarning {
			warns = append(warns, i)
		}
	}
	return warns
}

// FormatResult renders issues one per line for logs and error messages.
func FormatResult(r *Result) string {
	if len(r.Issues) == 0 {
		return "no issues"
	}
	lines := make([]string, 0, len(r.Issues))
	for _, i := range r.Issues {
		lines = append(lines, i.String())
	}
	return strings.Join(lines, "\n")
}

// entrySchema is the JSON Schema for one LiteLLM pricing entry as this
// agent constructs it.
const entrySchema = `{
  "type": "object",
  "required": [
    "max_tokens", "max_input_tokens", "max_output_tokens",
    "input_cost_per_token", "output_cost_per_token",
    "litellm_provider", "mode"
  ],
  "properties": {
    "max_tokens": {"type": "integer", "minimum": 1},
    "max_input_tokens": {"type": "integer", "minimum": 1},
    "max_output_tokens": {"type": "integer", "minimum": 1},
    "input_cost_per_token": {"type": "number", "minimum": 0},
    "output_cost_per_token": {"type": "number", "minimum": 0},
    "litellm_provider": {"const": "fireworks_ai"},
    "mode": {"enum": ["chat", "embedding", "rerank", "image_generation", "audio_transcription"]}
  },
  "additionalProperties": false
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func schema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiledSchema, schemaErr = compiler.Compile([]byte(entrySchema))
	})
	return compiledSchema, schemaErr
}

// ValidateAdditions checks every addition the diff produced.
func ValidateAdditions(additions []diff.Addition) *Result {
	r := &Result{}

	seen := make(map[string]bool, len(additions))
	for _, a := range additions {
		validateAddition(r, a)
		if seen[a.CatalogKey] {
			r.Issues = append(r.Issues, Issue{SeverityError, a.CatalogKey, "duplicate catalog key in additions"})
		}
		seen[a.CatalogKey] = true
	}

	return r
}

func validateAddition(r *Result, a diff.Addition) {
	if !strings.HasPrefix(a.CatalogKey, "fireworks_ai/") {
		r.Issues = append(r.Issues, Issue{SeverityError, a.CatalogKey, "catalog key outside the fireworks_ai namespace"})
	}
	if a.CanonicalKey == "" {
		r.Issues = append(r.Issues, Issue{SeverityError, a.CatalogKey, "empty canonical key"})
	}

	data, err := json.Marshal(a.Entry)
	if err != nil {
		r.Issues = append(r.Issues, Issue{SeverityError, a.CatalogKey, fmt.Sprintf("entry does not marshal: %v", err)})
		return
	}

	s, err := schema()
	if err != nil {
		r.Issues = append(r.Issues, Issue{SeverityError, a.CatalogKey, fmt.Sprintf("compiling entry schema: %v", err)})
		return
	}
	if res := s.ValidateJSON(data); !res.IsValid() {
		r.Issues = append(r.Issues, Issue{SeverityError, a.CatalogKey, fmt.Sprintf("schema validation failed: %v", res.Errors)})
	}

	// Pricing the scraper could not extract is legal but worth a second
	// look in review.
	if a.Record.Pricing.Shape == model.PricingNone {
		r.Issues = append(r.Issues, Issue{SeverityWarning, a.CatalogKey, "no pricing extracted; entry carries zero costs"})
	}
	if a.Record.ContextWindow == 0 {
		r.Issues = append(r.Issues, Issue{SeverityWarning, a.CatalogKey, "no context window extracted; defaulted to 4096"})
	}
}
