// Package model defines the normalized record both catalogs are coerced
// into before comparison, and its projection into the LiteLLM entry format.
package model

import (
	"math"
	"strings"
)

// Kind classifies a Fireworks model by modality, as labeled on the
// models page.
type Kind string

const (
	KindLLM       Kind = "LLM"
	KindVision    Kind = "Vision"
	KindImage     Kind = "Image"
	KindAudio     Kind = "Audio"
	KindEmbedding Kind = "Embedding"
	KindReranker  Kind = "Reranker"
)

// ParseKind maps a scraped type label to a Kind. Unrecognized labels
// default to LLM, matching how the models page omits the label for
// plain chat models.
func ParseKind(s string) Kind {
	switch Kind(strings.TrimSpace(s)) {
	case KindVision:
		return KindVision
	case KindImage:
		return KindImage
	case KindAudio:
		return KindAudio
	case KindEmbedding:
		return KindEmbedding
	case KindReranker:
		return KindReranker
	default:
		return KindLLM
	}
}

// PricingShape tags the pricing variant carried by a Pricing value.
type PricingShape string

const (
	// PricingTokenIO is separate input/output per-million-token pricing.
	PricingTokenIO PricingShape = "token_io"
	// PricingUnified is a single per-million-token price for both directions.
	PricingUnified PricingShape = "unified"
	// PricingPerImage is a flat price per generated image.
	PricingPerImage PricingShape = "per_image"
	// PricingPerSecond is a flat price per second of audio/compute.
	PricingPerSecond PricingShape = "per_second"
	// PricingNone means no price could be extracted for the model.
	PricingNone PricingShape = "none"
)

// Pricing is a tagged union keyed by Shape. Only the fields belonging
// to the active shape are meaningful; consumers must switch on Shape.
type Pricing struct {
	Shape PricingShape

	// InputPerMTok/OutputPerMTok are set for PricingTokenIO ($ per 1M tokens).
	InputPerMTok  float64
	OutputPerMTok float64

	// Price is set for PricingUnified ($ per 1M tokens), PricingPerImage
	// ($ per image) and PricingPerSecond ($ per second).
	Price float64
}

// TokenIOPricing returns input/output per-million-token pricing.
func TokenIOPricing(inputPerMTok, outputPerMTok float64) Pricing {
	return Pricing{Shape: PricingTokenIO, InputPerMTok: inputPerMTok, OutputPerMTok: outputPerMTok}
}

// UnifiedPricing returns a single per-million-token price.
func UnifiedPricing(perMTok float64) Pricing {
	return Pricing{Shape: PricingUnified, Price: perMTok}
}

// PerImagePricing returns a flat per-image price.
func PerImagePricing(price float64) Pricing {
	return Pricing{Shape: PricingPerImage, Price: price}
}

// PerSecondPricing returns a flat per-second price.
func PerSecondPricing(price float64) Pricing {
	return Pricing{Shape: PricingPerSecond, Price: price}
}

// NoPricing marks a record whose price could not be extracted.
func NoPricing() Pricing {
	return Pricing{Shape: PricingNone}
}

// Record is a scraped Fireworks model in normalized form.
type Record struct {
	// ID is the source-specific raw identifier, e.g. the last path
	// segment of the model URL ("llama-v3p3-70b-instruct").
	ID string
	// Name is the display name shown on the models page.
	Name string
	Kind Kind
	// ContextWindow is in tokens; 0 means unknown.
	ContextWindow int
	Pricing       Pricing
}

// catalogKeyPrefix is the key namespace LiteLLM uses for Fireworks
// serverless models.
const catalogKeyPrefix = "fireworks_ai/accounts/fireworks/models/"

// CatalogKey returns the key under which this record would be stored in
// the LiteLLM pricing document.
func (r Record) CatalogKey() string {
	return catalogKeyPrefix + r.ID
}

const defaultContextWindow = 4096

// Entry is a LiteLLM model_prices_and_context_window.json entry. Field
// order matches the upstream document's convention for Fireworks entries.
type Entry struct {
	MaxTokens          int     `json:"max_tokens"`
	MaxInputTokens     int     `json:"max_input_tokens"`
	MaxOutputTokens    int     `json:"max_output_tokens"`
	InputCostPerToken  float64 `json:"input_cost_per_token"`
	OutputCostPerToken float64 `json:"output_cost_per_token"`
	LiteLLMProvider    string  `json:"litellm_provider"`
	Mode               string  `json:"mode"`
}

// LiteLLMEntry projects the record into the LiteLLM entry format:
// $/1M-token prices become $/token, and Kind becomes a mode string with
// keyword overrides for models the source site mislabels.
func (r Record) LiteLLMEntry() Entry {
	var inputCost, outputCost float64
	switch r.Pricing.Shape {
	case PricingTokenIO:
		inputCost = perToken(r.Pricing.InputPerMTok)
		outputCost = perToken(r.Pricing.OutputPerMTok)
	case PricingUnified, PricingPerImage, PricingPerSecond:
		inputCost = perToken(r.Pricing.Price)
		outputCost = inputCost
	}

	ctx := r.ContextWindow
	if ctx == 0 {
		ctx = defaultContextWindow
	}

	return Entry{
		MaxTokens:          ctx,
		MaxInputTokens:     ctx,
		MaxOutputTokens:    ctx,
		InputCostPerToken:  inputCost,
		OutputCostPerToken: outputCost,
		LiteLLMProvider:    "fireworks_ai",
		Mode:               r.Mode(),
	}
}

// Mode returns the LiteLLM mode string for the record. The kind label
// from the models page decides the base mode, but name/id keywords win:
// Fireworks sometimes lists rerankers and embedders under "LLM".
func (r Record) Mode() string {
	mode := "chat"
	switch r.Kind {
	case KindImage:
		mode = "image_generation"
	case KindAudio:
		mode = "audio_transcription"
	case KindEmbedding:
		mode = "embedding"
	case KindReranker:
		mode = "rerank"
	}

	name := strings.ToLower(r.Name)
	id := strings.ToLower(r.ID)
	switch {
	case strings.Contains(name, "rerank") || strings.Contains(id, "rerank"):
		mode = "rerank"
	case strings.Contains(name, "embed") || strings.Contains(id, "embed"):
		mode = "embedding"
	case strings.Contains(name, "whisper") || strings.Contains(id, "asr"):
		mode = "audio_transcription"
	}

	return mode
}

// perToken converts a $/1M price to $/token, rounded to 12 decimals to
// avoid floating point noise in the generated JSON.
func perToken(perMillion float64) float64 {
	return math.Round(perMillion/1_000_000*1e12) / 1e12
}
