package extract

import "context"

// ── Model client ──────────────────────────────────────────────
// The generative model call is the pipeline's only network boundary. The
// client is injected wherever extraction runs, never reached through a
// package global, so tests substitute a stub and stay offline.

// Document is a source file handed to the model.
type Document struct {
	MIMEType string
	Data     []byte
}

// IsTextual reports whether the document rides inside the prompt text
// instead of as an inline binary part.
func (d Document) IsTextual() bool {
	switch d.MIMEType {
	case "text/plain", "text/csv", "text/html", "application/json":
		return true
	}
	return false
}

// Request is a single generation call: an instruction prompt plus an
// optional inline document.
type Request struct {
	Prompt string
	Doc    *Document
}

// Client generates a text completion for a request. Implementations must be
// safe for concurrent use.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}
