package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"tabular/internal/extract"

	"github.com/google/uuid"
)

// JobStore implements persistence for extraction jobs and their run logs.
type JobStore struct {
	db *DB
}

// NewJobStore creates a new JobStore.
func NewJobStore(db *DB) *JobStore {
	return &JobStore{db: db}
}

// ── Job CRUD ───────────────────────────────────────────────

func (s *JobStore) CreateJob(job *extract.Job) error {
	now := time.Now()
	job.ID = uuid.New().String()
	job.CreatedAt = now
	job.UpdatedAt = now

	transforms, _ := json.Marshal(job.Transforms)

	_, err := s.db.conn.Exec(
		`INSERT INTO extraction_jobs (id, name, source_path, instructions, transforms,
		 table_name, sink_id, sink_table, write_mode, trigger_type, trigger_config,
		 enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Name, job.SourcePath, job.Instructions, string(transforms),
		job.TableName, job.SinkID, job.SinkTable, job.WriteMode,
		job.TriggerType, job.TriggerConfig, job.Enabled,
		job.CreatedAt, job.UpdatedAt,
	)
	return err
}

const jobColumns = `id, name, source_path, instructions, transforms, table_name,
	 sink_id, sink_table, write_mode, trigger_type, trigger_config, enabled,
	 last_run_at, last_status, last_error, created_at, updated_at`

func scanJob(row interface{ Scan(...any) error }) (*extract.Job, error) {
	job := &extract.Job{}
	var transforms string
	var lastRunAt sql.NullTime

	err := row.Scan(
		&job.ID, &job.Name, &job.SourcePath, &job.Instructions, &transforms,
		&job.TableName, &job.SinkID, &job.SinkTable, &job.WriteMode,
		&job.TriggerType, &job.TriggerConfig, &job.Enabled,
		&lastRunAt, &job.LastStatus, &job.LastError,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastRunAt.Valid {
		job.LastRunAt = lastRunAt.Time
	}
	json.Unmarshal([]byte(transforms), &job.Transforms)
	return job, nil
}

func (s *JobStore) GetJob(id string) (*extract.Job, error) {
	row := s.db.conn.QueryRow(
		`SELECT `+jobColumns+` FROM extraction_jobs WHERE id = ?`, id,
	)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("extraction job not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *JobStore) UpdateJob(job *extract.Job) error {
	job.UpdatedAt = time.Now()
	transforms, _ := json.Marshal(job.Transforms)

	_, err := s.db.conn.Exec(
		`UPDATE extraction_jobs SET name=?, source_path=?, instructions=?, transforms=?,
		 table_name=?, sink_id=?, sink_table=?, write_mode=?, trigger_type=?,
		 trigger_config=?, enabled=?, updated_at=? WHERE id=?`,
		job.Name, job.SourcePath, job.Instructions, string(transforms),
		job.TableName, job.SinkID, job.SinkTable, job.WriteMode,
		job.TriggerType, job.TriggerConfig, job.Enabled,
		job.UpdatedAt, job.ID,
	)
	return err
}

func (s *JobStore) UpdateJobStatus(id, status, errMsg string) error {
	_, err := s.db.conn.Exec(
		`UPDATE extraction_jobs SET last_run_at=?, last_status=?, last_error=?, updated_at=? WHERE id=?`,
		time.Now(), status, errMsg, time.Now(), id,
	)
	return err
}

func (s *JobStore) DeleteJob(id string) error {
	// Run logs first, then the job itself.
	if _, err := s.db.conn.Exec(`DELETE FROM extraction_runs WHERE job_id = ?`, id); err != nil {
		return err
	}
	_, err := s.db.conn.Exec(`DELETE FROM extraction_jobs WHERE id = ?`, id)
	return err
}

func (s *JobStore) listJobs(query string, args ...any) ([]extract.Job, error) {
	rows, err := s.db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []extract.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func (s *JobStore) ListJobs() ([]extract.Job, error) {
	return s.listJobs(`SELECT ` + jobColumns + ` FROM extraction_jobs ORDER BY created_at ASC`)
}

// ListEnabledTriggerJobs returns enabled jobs with a schedule or file_watch
// trigger, for watcher startup.
func (s *JobStore) ListEnabledTriggerJobs() ([]extract.Job, error) {
	return s.listJobs(
		`SELECT ` + jobColumns + ` FROM extraction_jobs
		 WHERE enabled = 1 AND trigger_type IN ('schedule', 'file_watch')
		 ORDER BY created_at ASC`,
	)
}

// ── Run logs ───────────────────────────────────────────────

func (s *JobStore) CreateRunLog(run *extract.RunLog) error {
	run.ID = uuid.New().String()
	_, err := s.db.conn.Exec(
		`INSERT INTO extraction_runs (id, job_id, started_at, finished_at, status,
		 rows_extracted, rows_kept, table_id, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.JobID, run.StartedAt, run.FinishedAt, run.Status,
		run.RowsExtracted, run.RowsKept, run.TableID, run.Error,
	)
	return err
}

func (s *JobStore) ListRunLogs(jobID string, limit int) ([]extract.RunLog, error) {
	rows, err := s.db.conn.Query(
		`SELECT id, job_id, started_at, finished_at, status, rows_extracted, rows_kept, table_id, error
		 FROM extraction_runs WHERE job_id = ? ORDER BY started_at DESC LIMIT ?`,
		jobID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []extract.RunLog
	for rows.Next() {
		var l extract.RunLog
		if err := rows.Scan(&l.ID, &l.JobID, &l.StartedAt, &l.FinishedAt, &l.Status,
			&l.RowsExtracted, &l.RowsKept, &l.TableID, &l.Error); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
