package extract

import (
	"context"
	"fmt"
	"log"
	"time"

	"tabular/internal/domain"
	"tabular/internal/normalize"
	"tabular/internal/transform"
)

// ── Engine ────────────────────────────────────────────────────
// One run, end to end: read document, model extraction, normalization,
// refinement chain, stored table.

// Engine executes extraction jobs against a table store.
type Engine struct {
	Extractor *Extractor
	Tables    domain.TableStore
}

// Run executes a job. The returned result always carries a status; the error
// mirrors result.Error for callers that want both.
func (e *Engine) Run(ctx context.Context, job *Job) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{JobID: job.ID}

	fail := func(err error) (*RunResult, error) {
		result.Status = "error"
		result.Error = err.Error()
		result.Duration = time.Since(start)
		return result, err
	}

	doc, err := ReadDocument(job.SourcePath)
	if err != nil {
		return fail(err)
	}

	records, model, err := e.Extractor.ExtractTable(ctx, doc, job.Instructions)
	if err != nil {
		return fail(err)
	}
	result.RowsExtracted = len(records)

	table := normalize.Table(records)
	table = transform.Apply(table, transform.Build(job.Transforms))
	result.RowsKept = len(table.Rows)

	stored := &domain.ExtractedTable{
		JobID:      job.ID,
		Name:       job.TableName,
		SourcePath: job.SourcePath,
		Model:      model,
		RowCount:   len(table.Rows),
		Data:       table,
	}
	if stored.Name == "" {
		stored.Name = job.Name
	}
	if err := e.Tables.UpsertForJob(stored); err != nil {
		return fail(fmt.Errorf("store table: %w", err))
	}
	result.TableID = stored.ID

	result.Status = "success"
	result.Duration = time.Since(start)
	log.Printf("[EXTRACT] job %s: %d extracted, %d kept in %s", job.ID, result.RowsExtracted, result.RowsKept, result.Duration.Round(time.Millisecond))
	return result, nil
}
