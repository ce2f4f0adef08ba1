// Package litellm fetches the target pricing document from the LiteLLM
// repository. The raw bytes are kept alongside the parsed key set: the
// patcher treats the text, not the parse tree, as the source of truth.
package litellm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/BerriAI/fireworks-ai-cost-agent/internal/httpclient"
	"github.com/BerriAI/fireworks-ai-cost-agent/internal/patch"
)

// DefaultDocumentURL is the raw URL of the upstream pricing table.
const DefaultDocumentURL = "https://raw.githubusercontent.com/BerriAI/litellm/main/model_prices_and_context_window.json"

// Document is one fetched snapshot of the pricing table.
type Document struct {
	// Raw is the document text exactly as served.
	Raw []byte
	// Keys are the top-level entry keys.
	Keys []string
}

// Client fetches the pricing document.
type Client struct {
	client *httpclient.Client
	url    string
}

// NewClient creates a document client. An empty url uses DefaultDocumentURL.
func NewClient(client *httpclient.Client, url string) *Client {
	if url == "" {
		url = DefaultDocumentURL
	}
	return &Client{client: client, url: url}
}

// FetchDocument downloads the pricing table and extracts its key set.
// A document that does not parse as a JSON object is reported as
// patch.ErrMalformedDocument: that is an upstream format change, not a
// transient transport fault.
func (c *Client) FetchDocument(ctx context.Context) (*Document, error) {
	resp, err := c.client.Get(ctx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching pricing document: %w", err)
	}

	entries := make(map[string]json.RawMessage)
	if err := json.Unmarshal(resp.Body, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", patch.ErrMalformedDocument, err)
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}

	slog.Info("pricing document fetched",
		"bytes", len(resp.Body),
		"entries", len(keys),
		"from_cache", resp.FromCache)

	return &Document{Raw: resp.Body, Keys: keys}, nil
}
