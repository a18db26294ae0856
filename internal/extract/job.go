package extract

import (
	"time"

	"tabular/internal/domain"
	"tabular/internal/transform"
)

// ── Extraction jobs ───────────────────────────────────────────
// A Job ties a source document to a stored table: extract, normalize, refine,
// keep the result. Jobs re-run manually, on a cron schedule, or when the
// source file changes.

// Job trigger types.
const (
	TriggerManual    = "manual"
	TriggerSchedule  = "schedule"
	TriggerFileWatch = "file_watch"
)

// Job is the configuration for one recurring extraction.
type Job struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	SourcePath    string             `json:"sourcePath"`
	Instructions  string             `json:"instructions,omitempty"`
	Transforms    []transform.Config `json:"transforms,omitempty"`
	TableName     string             `json:"tableName"`
	SinkID        string             `json:"sinkId,omitempty"`    // optional export connection
	SinkTable     string             `json:"sinkTable,omitempty"` // target table/collection
	WriteMode     domain.WriteMode   `json:"writeMode"`
	TriggerType   string             `json:"triggerType"`   // "manual" | "schedule" | "file_watch"
	TriggerConfig string             `json:"triggerConfig"` // cron expression or watched path
	Enabled       bool               `json:"enabled"`
	LastRunAt     time.Time          `json:"lastRunAt"`
	LastStatus    string             `json:"lastStatus"` // "success" | "error" | "running" | ""
	LastError     string             `json:"lastError"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// WatchPath is the file watched for file_watch jobs: TriggerConfig when set,
// the source document otherwise.
func (j *Job) WatchPath() string {
	if j.TriggerConfig != "" {
		return j.TriggerConfig
	}
	return j.SourcePath
}

// RunResult is the outcome of a single run.
type RunResult struct {
	JobID         string        `json:"jobId,omitempty"`
	Status        string        `json:"status"` // "success" | "error"
	RowsExtracted int           `json:"rowsExtracted"`
	RowsKept      int           `json:"rowsKept"`
	TableID       string        `json:"tableId,omitempty"`
	Duration      time.Duration `json:"duration"`
	Error         string        `json:"error,omitempty"`
}

// RunLog is the persisted record of one run.
type RunLog struct {
	ID            string    `json:"id"`
	JobID         string    `json:"jobId"`
	StartedAt     time.Time `json:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt"`
	Status        string    `json:"status"`
	RowsExtracted int       `json:"rowsExtracted"`
	RowsKept      int       `json:"rowsKept"`
	TableID       string    `json:"tableId,omitempty"`
	Error         string    `json:"error,omitempty"`
}
