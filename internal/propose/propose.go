// Package propose submits the patched pricing document upstream as a
// pull request. Two sinks implement the same contract: GitHub drives the
// Contents API directly, Checkout commits through a local clone with
// go-git and then opens the PR. Both are thin; the pipeline treats any
// error here as a transport failure at the propose stage.
package propose

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BerriAI/fireworks-ai-cost-agent/internal/diff"
	"github.com/BerriAI/fireworks-ai-cost-agent/internal/validate"
)

// Summary carries what a run wants to say about itself in the PR.
type Summary struct {
	Additions []diff.Addition
	Warnings  []validate.Issue
}

// Title returns the PR title.
func (s Summary) Title() string {
	return fmt.Sprintf("Add %d new Fireworks AI models", len(s.Additions))
}

// Sink submits a proposed document change and returns a proposal
// reference (the PR URL).
type Sink interface {
	Submit(ctx context.Context, newDocument []byte, summary Summary) (string, error)
}

// DryRun is a Sink that logs what it would propose and submits nothing.
type DryRun struct{}

// Submit logs the summary and returns a placeholder reference.
func (DryRun) Submit(_ context.Context, newDocument []byte, summary Summary) (string, error) {
	slog.Info("dry run: would open PR",
		"title", summary.Title(),
		"additions", len(summary.Additions),
		"document_bytes", len(newDocument))
	for _, a := range summary.Additions {
		slog.Info("dry run: would add", "key", a.CatalogKey, "mode", a.Entry.Mode)
	}
	return "dry-run", nil
}
