// Package llm defines the completion collaborator used by the extraction and
// classification orchestrators, and its Anthropic-backed implementation.
package llm

import "context"

// Mode selects the response format requested from the model.
type Mode int

const (
	// ModeText asks for free-form text.
	ModeText Mode = iota
	// ModeJSON constrains the reply to a single JSON object.
	ModeJSON
)

func (m Mode) String() string {
	if m == ModeJSON {
		return "json"
	}
	return "text"
}

// Image is an inline image attachment.
type Image struct {
	MediaType string
	Data      []byte
}

// Request is a single request/response exchange with the model.
type Request struct {
	System    string
	User      string
	Mode      Mode
	Image     *Image
	MaxTokens int    // 0 uses the completer default
	Phase     string // cost attribution label
}

// Completer performs one completion and returns the raw reply text. It does
// not retry; callers bound each call with a context deadline.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}
