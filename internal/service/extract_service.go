package service

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"tabular/internal/domain"
	"tabular/internal/extract"
	"tabular/internal/normalize"
	"tabular/internal/storage"
	"tabular/internal/transform"
)

// ─────────────────────────────────────────────────────────────
// Extract Service — business logic for document extraction jobs
// ─────────────────────────────────────────────────────────────

// Exporter delivers a stored table to an external database connection.
// Implemented by ExportService; injected so job runs can push results to
// their configured sink without the services importing each other.
type Exporter interface {
	ExportTable(ctx context.Context, tableID, connectionID, targetTable string, mode domain.WriteMode) (int, error)
}

// ExtractService manages extraction jobs, scheduling, and file watching.
type ExtractService struct {
	jobs      *storage.JobStore
	tables    *storage.TableStore
	extractor *extract.Extractor
	exporter  Exporter
	emitter   EventEmitter
	running   runGuard

	// watcher / cron lifecycle
	watchCancel context.CancelFunc
	watcher     *fsnotify.Watcher
	cronSched   *cron.Cron
}

// NewExtractService creates an ExtractService ready for use.
func NewExtractService(
	jobs *storage.JobStore,
	tables *storage.TableStore,
	extractor *extract.Extractor,
	exporter Exporter,
	emitter EventEmitter,
) *ExtractService {
	return &ExtractService{
		jobs:      jobs,
		tables:    tables,
		extractor: extractor,
		exporter:  exporter,
		emitter:   emitter,
	}
}

// ── Job CRUD ───────────────────────────────────────────────

type CreateJobInput struct {
	Name          string             `json:"name"`
	SourcePath    string             `json:"sourcePath"`
	Instructions  string             `json:"instructions"`
	Transforms    []transform.Config `json:"transforms"`
	TableName     string             `json:"tableName"`
	SinkID        string             `json:"sinkId"`
	SinkTable     string             `json:"sinkTable"`
	WriteMode     string             `json:"writeMode"`
	TriggerType   string             `json:"triggerType"`
	TriggerConfig string             `json:"triggerConfig"`
	Enabled       bool               `json:"enabled"`
}

func (s *ExtractService) CreateJob(ctx context.Context, input CreateJobInput) (*extract.Job, error) {
	if input.SourcePath == "" {
		return nil, fmt.Errorf("sourcePath is required")
	}

	job := &extract.Job{
		Name:          input.Name,
		SourcePath:    input.SourcePath,
		Instructions:  input.Instructions,
		Transforms:    input.Transforms,
		TableName:     input.TableName,
		SinkID:        input.SinkID,
		SinkTable:     input.SinkTable,
		WriteMode:     domain.WriteMode(input.WriteMode),
		TriggerType:   input.TriggerType,
		TriggerConfig: input.TriggerConfig,
		Enabled:       input.Enabled,
	}
	if job.Name == "" {
		job.Name = filepath.Base(input.SourcePath)
	}
	if job.WriteMode == "" {
		job.WriteMode = domain.WriteReplace
	}
	if job.TriggerType == "" {
		job.TriggerType = extract.TriggerManual
	}

	if err := s.jobs.CreateJob(job); err != nil {
		return nil, fmt.Errorf("create extraction job: %w", err)
	}
	s.RestartWatchers(ctx)
	return job, nil
}

func (s *ExtractService) GetJob(id string) (*extract.Job, error) {
	return s.jobs.GetJob(id)
}

func (s *ExtractService) ListJobs() ([]extract.Job, error) {
	return s.jobs.ListJobs()
}

func (s *ExtractService) UpdateJob(ctx context.Context, id string, input CreateJobInput) error {
	job, err := s.jobs.GetJob(id)
	if err != nil {
		return err
	}
	job.Name = input.Name
	job.SourcePath = input.SourcePath
	job.Instructions = input.Instructions
	job.Transforms = input.Transforms
	job.TableName = input.TableName
	job.SinkID = input.SinkID
	job.SinkTable = input.SinkTable
	job.WriteMode = domain.WriteMode(input.WriteMode)
	job.TriggerType = input.TriggerType
	job.TriggerConfig = input.TriggerConfig
	job.Enabled = input.Enabled

	if err := s.jobs.UpdateJob(job); err != nil {
		return err
	}
	s.RestartWatchers(ctx)
	return nil
}

func (s *ExtractService) DeleteJob(ctx context.Context, id string) error {
	err := s.jobs.DeleteJob(id)
	if err == nil {
		s.RestartWatchers(ctx)
	}
	return err
}

// ── Run ────────────────────────────────────────────────────

// RunJob executes a single extraction job synchronously. On success it emits
// "table:updated" and, when the job has a sink, delivers the table there.
// Sink delivery failure is logged but never fails a completed run.
func (s *ExtractService) RunJob(ctx context.Context, id string) (*extract.RunResult, error) {
	// Prevent concurrent execution of the same job.
	if !s.running.TryLock(id) {
		return nil, fmt.Errorf("job %s is already running", id)
	}
	defer s.running.Unlock(id)

	job, err := s.jobs.GetJob(id)
	if err != nil {
		return nil, err
	}

	s.jobs.UpdateJobStatus(id, "running", "")

	engine := &extract.Engine{
		Extractor: s.extractor,
		Tables:    s.tables,
	}

	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	start := time.Now()
	result, runErr := engine.Run(runCtx, job)

	runLog := &extract.RunLog{
		JobID:         id,
		StartedAt:     start,
		FinishedAt:    time.Now(),
		Status:        result.Status,
		RowsExtracted: result.RowsExtracted,
		RowsKept:      result.RowsKept,
		TableID:       result.TableID,
	}
	if runErr != nil {
		runLog.Error = runErr.Error()
	}
	s.jobs.CreateRunLog(runLog)

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	s.jobs.UpdateJobStatus(id, result.Status, errMsg)

	if result.Status == "success" {
		s.emitter.Emit(ctx, "table:updated", map[string]string{
			"tableId": result.TableID,
			"jobId":   id,
		})
		s.deliverToSink(ctx, job, result.TableID)
	}

	return result, runErr
}

// deliverToSink pushes a freshly stored table to the job's configured sink.
func (s *ExtractService) deliverToSink(ctx context.Context, job *extract.Job, tableID string) {
	if job.SinkID == "" || s.exporter == nil {
		return
	}
	rows, err := s.exporter.ExportTable(ctx, tableID, job.SinkID, job.SinkTable, job.WriteMode)
	if err != nil {
		log.Printf("[EXTRACT] job %s: sink delivery failed: %v", job.ID, err)
		return
	}
	log.Printf("[EXTRACT] job %s: delivered %d row(s) to sink %s", job.ID, rows, job.SinkID)
}

// ListRunLogs returns the last 50 run logs for a job.
func (s *ExtractService) ListRunLogs(jobID string) ([]extract.RunLog, error) {
	return s.jobs.ListRunLogs(jobID, 50)
}

// ── Ad-hoc extraction ──────────────────────────────────────

// Extract runs a one-off extraction outside any job and stores the result.
func (s *ExtractService) Extract(ctx context.Context, path, instructions, name string) (*domain.ExtractedTable, error) {
	doc, err := extract.ReadDocument(path)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	records, model, err := s.extractor.ExtractTable(runCtx, doc, instructions)
	if err != nil {
		return nil, err
	}
	table := normalize.Table(records)

	if name == "" {
		name = filepath.Base(path)
	}
	stored := &domain.ExtractedTable{
		Name:       name,
		SourcePath: path,
		Model:      model,
		RowCount:   len(table.Rows),
		Data:       table,
	}
	if err := s.tables.SaveTable(stored); err != nil {
		return nil, fmt.Errorf("store table: %w", err)
	}

	s.emitter.Emit(ctx, "table:updated", map[string]string{"tableId": stored.ID})
	return stored, nil
}

// Preview extracts and normalizes without persisting, truncated to maxRows.
func (s *ExtractService) Preview(ctx context.Context, path, instructions string, maxRows int) (*domain.ParsedTable, error) {
	doc, err := extract.ReadDocument(path)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	records, _, err := s.extractor.ExtractTable(runCtx, doc, instructions)
	if err != nil {
		return nil, err
	}
	table := normalize.Table(records)

	if maxRows > 0 && len(table.Rows) > maxRows {
		table.Rows = table.Rows[:maxRows]
	}
	return table, nil
}

// ── Stored tables ──────────────────────────────────────────

func (s *ExtractService) ListTables() ([]domain.ExtractedTable, error) {
	return s.tables.ListTables()
}

func (s *ExtractService) GetTable(id string) (*domain.ExtractedTable, error) {
	return s.tables.GetTable(id)
}

func (s *ExtractService) DeleteTable(id string) error {
	return s.tables.DeleteTable(id)
}

// ── Watchers (cron + file_watch) ──────────────────────────

// RestartWatchers tears down the current watcher/cron and rebuilds them from
// the enabled jobs.
func (s *ExtractService) RestartWatchers(ctx context.Context) {
	s.stopWatchers()

	if s.jobs == nil {
		return
	}
	jobs, err := s.jobs.ListEnabledTriggerJobs()
	if err != nil {
		log.Printf("extract watcher: failed to list jobs: %v", err)
		return
	}

	// ── Cron jobs ──
	var cronJobs []struct {
		jobID string
		expr  string
	}
	for _, j := range jobs {
		if j.TriggerType == extract.TriggerSchedule && j.TriggerConfig != "" {
			cronJobs = append(cronJobs, struct {
				jobID string
				expr  string
			}{jobID: j.ID, expr: j.TriggerConfig})
		}
	}

	if len(cronJobs) > 0 {
		c := cron.New()
		for _, cj := range cronJobs {
			jid := cj.jobID
			_, err := c.AddFunc(cj.expr, func() {
				log.Printf("extract cron: running job %s", jid)
				if _, err := s.RunJob(ctx, jid); err != nil {
					log.Printf("extract cron: job %s failed: %v", jid, err)
				}
				s.emitter.Emit(ctx, "job:completed", jid)
			})
			if err != nil {
				log.Printf("extract cron: invalid expression %q for job %s: %v", cj.expr, cj.jobID, err)
			}
		}
		c.Start()
		s.cronSched = c
		log.Printf("extract cron: scheduled %d job(s)", len(cronJobs))
	}

	// ── File watchers ──
	type watchEntry struct {
		jobID string
		path  string
	}
	var entries []watchEntry
	for _, j := range jobs {
		if j.TriggerType == extract.TriggerFileWatch && j.WatchPath() != "" {
			entries = append(entries, watchEntry{jobID: j.ID, path: j.WatchPath()})
		}
	}

	if len(entries) == 0 {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("extract watcher: failed to create watcher: %v", err)
		return
	}
	s.watcher = watcher

	pathToJob := make(map[string]string)
	watchedDirs := make(map[string]bool)
	for _, e := range entries {
		absPath, err := filepath.Abs(e.path)
		if err != nil {
			log.Printf("extract watcher: bad path %q: %v", e.path, err)
			continue
		}
		pathToJob[absPath] = e.jobID

		dir := filepath.Dir(absPath)
		if !watchedDirs[dir] {
			if err := watcher.Add(dir); err != nil {
				log.Printf("extract watcher: failed to watch dir %q: %v", dir, err)
			} else {
				watchedDirs[dir] = true
			}
		}
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	s.watchCancel = cancel

	go func() {
		timers := make(map[string]*time.Timer)
		for {
			select {
			case <-watchCtx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				absPath, _ := filepath.Abs(event.Name)
				jobID, ok := pathToJob[absPath]
				if !ok {
					continue
				}
				// Debounce: editors fire several events per save.
				if t, exists := timers[jobID]; exists {
					t.Stop()
				}
				jid := jobID
				timers[jobID] = time.AfterFunc(500*time.Millisecond, func() {
					log.Printf("extract watcher: file changed %q, running job %s", absPath, jid)
					if _, err := s.RunJob(ctx, jid); err != nil {
						log.Printf("extract watcher: run failed for job %s: %v", jid, err)
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("extract watcher: error: %v", err)
			}
		}
	}()

	log.Printf("extract watcher: watching %d file(s)", len(pathToJob))
}

// WaitRunning blocks until all running jobs finish or ctx is cancelled.
// Used for graceful shutdown.
func (s *ExtractService) WaitRunning(ctx context.Context) {
	s.running.WaitAll(ctx)
}

// Stop tears down all watchers and schedulers.
func (s *ExtractService) Stop() {
	s.stopWatchers()
}

func (s *ExtractService) stopWatchers() {
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	if s.cronSched != nil {
		s.cronSched.Stop()
		s.cronSched = nil
	}
}
