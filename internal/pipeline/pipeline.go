// Package pipeline sequences one sync run: scrape, fetch the target
// document, diff, validate, patch, propose. Each external call is
// attempted once per run; transient-failure recovery is the
// coordinator's job on the next scheduled attempt.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BerriAI/fireworks-ai-cost-agent/internal/diff"
	"github.com/BerriAI/fireworks-ai-cost-agent/internal/litellm"
	"github.com/BerriAI/fireworks-ai-cost-agent/internal/model"
	"github.com/BerriAI/fireworks-ai-cost-agent/internal/normalize"
	"github.com/BerriAI/fireworks-ai-cost-agent/internal/patch"
	"github.com/BerriAI/fireworks-ai-cost-agent/internal/propose"
	"github.com/BerriAI/fireworks-ai-cost-agent/internal/scrape"
	"github.com/BerriAI/fireworks-ai-cost-agent/internal/validate"
)

// Status is the top-level outcome tag of a run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusNoOp    Status = "noop"
	StatusFailure Status = "failure"
)

// Stage names identify where a run failed.
const (
	StageScrape      = "scrape"
	StageFetchTarget = "fetch-target"
	StageValidate    = "validate"
	StagePatch       = "patch"
	StagePropose     = "propose"
	StageInternal    = "internal"
)

// Outcome is the structured result of one pipeline run.
type Outcome struct {
	Status  Status `json:"status"`
	Stage   string `json:"stage,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`

	ScrapedCount   int    `json:"scraped_models"`
	MissingCount   int    `json:"missing_models"`
	SkippedUnknown int    `json:"skipped_unknown,omitempty"`
	ProposalURL    string `json:"pr_url,omitempty"`
}

// Failure builds a failure outcome for a stage.
func Failure(stage string, err error) Outcome {
	return Outcome{
		Status:  StatusFailure,
		Stage:   stage,
		Reason:  err.Error(),
		Message: fmt.Sprintf("run failed at %s: %v", stage, err),
	}
}

// TargetSource fetches the current target document.
type TargetSource interface {
	FetchDocument(ctx context.Context) (*litellm.Document, error)
}

// Runner wires the pipeline's collaborators together.
type Runner struct {
	scraper scrape.Scraper
	target  TargetSource
	sink    propose.Sink
	norm    *normalize.Normalizer

	// callTimeout bounds each external call; exceeding it is a
	// transport failure, not a distinct state.
	callTimeout time.Duration
}

// New creates a Runner. A zero callTimeout defaults to two minutes.
func New(scraper scrape.Scraper, target TargetSource, sink propose.Sink, norm *normalize.Normalizer, callTimeout time.Duration) *Runner {
	if callTimeout <= 0 {
		callTimeout = 2 * time.Minute
	}
	return &Runner{
		scraper:     scraper,
		target:      target,
		sink:        sink,
		norm:        norm,
		callTimeout: callTimeout,
	}
}

// Run executes one full sync. All failures are converted into a Failure
// outcome; nothing escapes to crash the caller. Side effects are
// strictly ordered: patching never happens on an empty diff, and no
// proposal is submitted unless patching succeeded.
func (r *Runner) Run(ctx context.Context) Outcome {
	records, err := r.fetchModels(ctx)
	if err != nil {
		return Failure(StageScrape, err)
	}
	slog.Info("scrape complete", "models", len(records))

	if len(records) == 0 {
		return Outcome{
			Status:  StatusNoOp,
			Message: "no models scraped from Fireworks AI",
		}
	}

	doc, err := r.fetchTarget(ctx)
	if err != nil {
		return Failure(StageFetchTarget, err)
	}

	targetKeys := r.norm.TargetKeys(doc.Keys)
	result := diff.Compute(r.norm, records, targetKeys)
	if result.SkippedUnknown > 0 {
		slog.Warn("records excluded from diff", "skipped_unknown", result.SkippedUnknown)
	}
	slog.Info("diff complete",
		"scraped", result.ScrapedCount,
		"missing", len(result.Missing),
		"target_fireworks_keys", len(targetKeys))

	if !result.HasChanges() {
		return Outcome{
			Status:         StatusNoOp,
			Message:        "all Fireworks models already exist in LiteLLM",
			ScrapedCount:   result.ScrapedCount,
			SkippedUnknown: result.SkippedUnknown,
		}
	}

	valResult := validate.ValidateAdditions(result.Missing)
	if valResult.HasErrors() {
		return Failure(StageValidate, fmt.Errorf("invalid entries:\n%s", validate.FormatResult(valResult)))
	}

	additions := make([]patch.Addition, 0, len(result.Missing))
	for _, a := range result.Missing {
		additions = append(additions, patch.Addition{Key: a.CatalogKey, Value: a.Entry})
	}
	newDoc, err := patch.Apply(doc.Raw, additions)
	if err != nil {
		return Failure(StagePatch, err)
	}

	url, err := r.submit(ctx, newDoc, propose.Summary{
		Additions: result.Missing,
		Warnings:  valResult.Warnings(),
	})
	if err != nil {
		return Failure(StagePropose, err)
	}

	return Outcome{
		Status:         StatusSuccess,
		Message:        fmt.Sprintf("created PR with %d new models", len(result.Missing)),
		ScrapedCount:   result.ScrapedCount,
		MissingCount:   len(result.Missing),
		SkippedUnknown: result.SkippedUnknown,
		ProposalURL:    url,
	}
}

func (r *Runner) fetchModels(ctx context.Context) ([]model.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()
	return r.scraper.FetchModels(ctx)
}

func (r *Runner) fetchTarget(ctx context.Context) (*litellm.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()
	return r.target.FetchDocument(ctx)
}

func (r *Runner) submit(ctx context.Context, newDoc []byte, summary propose.Summary) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()
	return r.sink.Submit(ctx, newDoc, summary)
}
