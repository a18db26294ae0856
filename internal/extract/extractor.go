package extract

import (
	"context"
	"fmt"
	"log"

	"tabular/internal/domain"
)

// Extractor turns a source document into raw table records through the model
// client. The client is injected at construction; nothing is process-global.
type Extractor struct {
	client Client
	model  string
}

// NewExtractor creates an Extractor around a model client. model is recorded
// on stored tables for provenance.
func NewExtractor(client Client, model string) *Extractor {
	return &Extractor{client: client, model: model}
}

// ExtractTable asks the model for the document's most significant table and
// parses the response into raw records. Returns the records plus the model
// name used, for provenance.
func (x *Extractor) ExtractTable(ctx context.Context, doc Document, instructions string) ([]domain.RawRecord, string, error) {
	req := Request{Prompt: buildPrompt(doc, instructions)}
	if !doc.IsTextual() {
		req.Doc = &doc
	}

	text, err := x.client.Generate(ctx, req)
	if err != nil {
		return nil, x.model, fmt.Errorf("generate: %w", err)
	}

	records, err := ParseRecords(text)
	if err != nil {
		return nil, x.model, err
	}
	log.Printf("[EXTRACT] %d record(s) from %s document (%d bytes)", len(records), doc.MIMEType, len(doc.Data))
	return records, x.model, nil
}
