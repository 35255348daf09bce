// Package extract pulls contact fields out of captured website text with a
// JSON-constrained completion, retrying until the required fields are
// present or the attempt budget is spent.
package extract

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/freakspace/leadtool/internal/llm"
)

var (
	// ErrEmptyContent is returned when there is no text to extract from.
	ErrEmptyContent = eris.New("extract: empty content")
	// ErrNoFields is returned when no field names are requested.
	ErrNoFields = eris.New("extract: no fields requested")
)

// ExtractionRequest is one attempt's input.
type ExtractionRequest struct {
	Content    string
	Fields     []string // required keys, in order
	Vocabulary []string // allowed industry values; empty means unconstrained
	Reminder   []string // still-missing keys repeated on later attempts
}

// Client makes a single extraction call. It neither retries nor parses.
type Client struct {
	completer llm.Completer
	maxTokens int
}

// NewClient wraps a completer. maxTokens of 0 uses the completer default.
func NewClient(c llm.Completer, maxTokens int) *Client {
	return &Client{completer: c, maxTokens: maxTokens}
}

// Extract returns the raw JSON payload of one completion.
func (c *Client) Extract(ctx context.Context, req ExtractionRequest) (string, error) {
	if strings.TrimSpace(req.Content) == "" {
		return "", ErrEmptyContent
	}
	if len(req.Fields) == 0 {
		return "", ErrNoFields
	}

	raw, err := c.completer.Complete(ctx, llm.Request{
		System:    systemPrompt,
		User:      buildUserPrompt(req),
		Mode:      llm.ModeJSON,
		MaxTokens: c.maxTokens,
		Phase:     "extract",
	})
	if err != nil {
		return "", eris.Wrap(err, "extract: completion")
	}
	return raw, nil
}
