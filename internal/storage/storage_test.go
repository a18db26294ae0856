package storage_test

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tabular/internal/domain"
	"tabular/internal/extract"
	"tabular/internal/storage"
	"tabular/internal/transform"
)

// ─────────────────────────────────────────────────────────────
// Storage tests
// Every test gets a fresh SQLite file in a temp dir.
// ─────────────────────────────────────────────────────────────

func newDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestJobStore_CreateGetRoundTrip(t *testing.T) {
	jobs := storage.NewJobStore(newDB(t))

	job := &extract.Job{
		Name:         "invoices",
		SourcePath:   "/data/invoices.pdf",
		Instructions: "only 2024 rows",
		Transforms: []transform.Config{
			{Type: "limit", Config: map[string]any{"count": float64(10)}},
		},
		TableName:     "Invoices",
		SinkID:        "conn-1",
		SinkTable:     "invoices",
		WriteMode:     domain.WriteAppend,
		TriggerType:   extract.TriggerSchedule,
		TriggerConfig: "0 * * * *",
		Enabled:       true,
	}
	if err := jobs.CreateJob(job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected generated ID")
	}

	got, err := jobs.GetJob(job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Name != "invoices" || got.SourcePath != "/data/invoices.pdf" {
		t.Errorf("round trip lost fields: %+v", got)
	}
	if got.WriteMode != domain.WriteAppend || got.TriggerType != extract.TriggerSchedule {
		t.Errorf("mode/trigger = %q/%q", got.WriteMode, got.TriggerType)
	}
	if !got.Enabled {
		t.Error("enabled flag lost")
	}
	if len(got.Transforms) != 1 || got.Transforms[0].Type != "limit" {
		t.Errorf("transforms lost: %+v", got.Transforms)
	}
	if !got.LastRunAt.IsZero() {
		t.Errorf("fresh job should have zero LastRunAt, got %v", got.LastRunAt)
	}
}

func TestJobStore_GetJob_NotFound(t *testing.T) {
	jobs := storage.NewJobStore(newDB(t))
	_, err := jobs.GetJob("nope")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestJobStore_UpdateJobStatus(t *testing.T) {
	jobs := storage.NewJobStore(newDB(t))

	job := &extract.Job{Name: "j", SourcePath: "/s"}
	if err := jobs.CreateJob(job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if err := jobs.UpdateJobStatus(job.ID, "error", "boom"); err != nil {
		t.Fatalf("UpdateJobStatus: %v", err)
	}

	got, _ := jobs.GetJob(job.ID)
	if got.LastStatus != "error" || got.LastError != "boom" {
		t.Errorf("status = %q/%q, want error/boom", got.LastStatus, got.LastError)
	}
	if got.LastRunAt.IsZero() {
		t.Error("LastRunAt should be set")
	}
}

func TestJobStore_ListEnabledTriggerJobs(t *testing.T) {
	jobs := storage.NewJobStore(newDB(t))

	manual := &extract.Job{Name: "m", SourcePath: "/a", TriggerType: extract.TriggerManual, Enabled: true}
	scheduled := &extract.Job{Name: "s", SourcePath: "/b", TriggerType: extract.TriggerSchedule, TriggerConfig: "@hourly", Enabled: true}
	disabled := &extract.Job{Name: "d", SourcePath: "/c", TriggerType: extract.TriggerFileWatch, Enabled: false}
	for _, j := range []*extract.Job{manual, scheduled, disabled} {
		if err := jobs.CreateJob(j); err != nil {
			t.Fatalf("CreateJob: %v", err)
		}
	}

	got, err := jobs.ListEnabledTriggerJobs()
	if err != nil {
		t.Fatalf("ListEnabledTriggerJobs: %v", err)
	}
	if len(got) != 1 || got[0].ID != scheduled.ID {
		t.Errorf("expected only the enabled scheduled job, got %+v", got)
	}
}

func TestJobStore_RunLogsNewestFirst(t *testing.T) {
	db := newDB(t)
	jobs := storage.NewJobStore(db)

	job := &extract.Job{Name: "j", SourcePath: "/s"}
	if err := jobs.CreateJob(job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	old := time.Now().Add(-time.Hour)
	for i, started := range []time.Time{old, time.Now()} {
		run := &extract.RunLog{
			JobID:      job.ID,
			StartedAt:  started,
			FinishedAt: started.Add(time.Second),
			Status:     "success",
			RowsKept:   i,
		}
		if err := jobs.CreateRunLog(run); err != nil {
			t.Fatalf("CreateRunLog: %v", err)
		}
	}

	logs, err := jobs.ListRunLogs(job.ID, 50)
	if err != nil {
		t.Fatalf("ListRunLogs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("logs = %d, want 2", len(logs))
	}
	if !logs[0].StartedAt.After(logs[1].StartedAt) {
		t.Errorf("logs not newest first: %v then %v", logs[0].StartedAt, logs[1].StartedAt)
	}

	limited, _ := jobs.ListRunLogs(job.ID, 1)
	if len(limited) != 1 || limited[0].RowsKept != 1 {
		t.Errorf("limit should keep newest entry, got %+v", limited)
	}
}

func TestJobStore_DeleteJobRemovesRunLogs(t *testing.T) {
	jobs := storage.NewJobStore(newDB(t))

	job := &extract.Job{Name: "j", SourcePath: "/s"}
	if err := jobs.CreateJob(job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if err := jobs.CreateRunLog(&extract.RunLog{JobID: job.ID, StartedAt: time.Now(), FinishedAt: time.Now(), Status: "success"}); err != nil {
		t.Fatalf("CreateRunLog: %v", err)
	}

	if err := jobs.DeleteJob(job.ID); err != nil {
		t.Fatalf("DeleteJob: %v", err)
	}
	logs, _ := jobs.ListRunLogs(job.ID, 50)
	if len(logs) != 0 {
		t.Errorf("run logs should be gone, got %d", len(logs))
	}
}

func TestTableStore_SaveAndGet(t *testing.T) {
	tables := storage.NewTableStore(newDB(t))

	data := &domain.ParsedTable{
		Columns:     []string{"Name"},
		ColumnTypes: map[string]domain.ColumnType{"Name": domain.ColTypeString},
		Rows:        []map[string]any{{"Name": "alpha"}},
	}
	stored := &domain.ExtractedTable{Name: "t1", SourcePath: "/doc.pdf", Model: "m", RowCount: 1, Data: data}
	if err := tables.SaveTable(stored); err != nil {
		t.Fatalf("SaveTable: %v", err)
	}

	got, err := tables.GetTable(stored.ID)
	if err != nil {
		t.Fatalf("GetTable: %v", err)
	}
	if got.Name != "t1" || got.RowCount != 1 {
		t.Errorf("metadata lost: %+v", got)
	}
	if len(got.Data.Rows) != 1 || got.Data.Rows[0]["Name"] != "alpha" {
		t.Errorf("data lost: %+v", got.Data)
	}
}

func TestTableStore_SaveTable_DefaultName(t *testing.T) {
	tables := storage.NewTableStore(newDB(t))
	stored := &domain.ExtractedTable{Data: domain.EmptyTable()}
	if err := tables.SaveTable(stored); err != nil {
		t.Fatalf("SaveTable: %v", err)
	}
	if stored.Name != "Untitled" {
		t.Errorf("Name = %q, want Untitled", stored.Name)
	}
}

func TestTableStore_UpsertForJob_KeepsID(t *testing.T) {
	tables := storage.NewTableStore(newDB(t))

	first := &domain.ExtractedTable{JobID: "job-1", Name: "run", Data: domain.EmptyTable()}
	if err := tables.UpsertForJob(first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := &domain.ExtractedTable{
		JobID:    "job-1",
		Name:     "run",
		RowCount: 1,
		Data: &domain.ParsedTable{
			Columns:     []string{"N"},
			ColumnTypes: map[string]domain.ColumnType{"N": domain.ColTypeString},
			Rows:        []map[string]any{{"N": "x"}},
		},
	}
	if err := tables.UpsertForJob(second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("upsert changed table ID: %s then %s", first.ID, second.ID)
	}

	listed, err := tables.ListTables()
	if err != nil {
		t.Fatalf("ListTables: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("tables = %d, want 1", len(listed))
	}

	got, _ := tables.GetTable(first.ID)
	if got.RowCount != 1 || len(got.Data.Rows) != 1 {
		t.Errorf("upsert did not replace data: %+v", got)
	}
}

func TestTableStore_ListTablesOmitsData(t *testing.T) {
	tables := storage.NewTableStore(newDB(t))

	stored := &domain.ExtractedTable{
		Name: "t",
		Data: &domain.ParsedTable{
			Columns:     []string{"N"},
			ColumnTypes: map[string]domain.ColumnType{"N": domain.ColTypeString},
			Rows:        []map[string]any{{"N": "x"}},
		},
	}
	if err := tables.SaveTable(stored); err != nil {
		t.Fatalf("SaveTable: %v", err)
	}

	listed, err := tables.ListTables()
	if err != nil {
		t.Fatalf("ListTables: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("tables = %d, want 1", len(listed))
	}
	if listed[0].Data != nil {
		t.Error("list entries must not carry row data")
	}
}

func TestTableStore_DeleteTable(t *testing.T) {
	tables := storage.NewTableStore(newDB(t))

	stored := &domain.ExtractedTable{Name: "t", Data: domain.EmptyTable()}
	if err := tables.SaveTable(stored); err != nil {
		t.Fatalf("SaveTable: %v", err)
	}
	if err := tables.DeleteTable(stored.ID); err != nil {
		t.Fatalf("DeleteTable: %v", err)
	}
	if _, err := tables.GetTable(stored.ID); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found after delete, got %v", err)
	}
}

func TestConnectionStore_CRUD(t *testing.T) {
	conns := storage.NewConnectionStore(newDB(t))

	c := &domain.DatabaseConnection{
		Name:     "warehouse",
		Driver:   domain.DatabaseDriverPostgres,
		Host:     "db.example.com",
		Port:     5432,
		Database: "wh",
		Username: "app",
		SSLMode:  "require",
	}
	if err := conns.CreateConnection(c); err != nil {
		t.Fatalf("CreateConnection: %v", err)
	}
	if c.ID == "" {
		t.Fatal("expected generated ID")
	}

	got, err := conns.GetConnection(c.ID)
	if err != nil {
		t.Fatalf("GetConnection: %v", err)
	}
	if got.Driver != domain.DatabaseDriverPostgres || got.SSLMode != "require" {
		t.Errorf("round trip lost fields: %+v", got)
	}

	got.Name = "renamed"
	if err := conns.UpdateConnection(got); err != nil {
		t.Fatalf("UpdateConnection: %v", err)
	}
	listed, _ := conns.ListConnections()
	if len(listed) != 1 || listed[0].Name != "renamed" {
		t.Errorf("unexpected list: %+v", listed)
	}

	if err := conns.DeleteConnection(c.ID); err != nil {
		t.Fatalf("DeleteConnection: %v", err)
	}
	if _, err := conns.GetConnection(c.ID); err == nil {
		t.Error("expected error after delete")
	}
}
