package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"tabular/internal/extract"
	mcpserver "tabular/internal/mcp"
	"tabular/internal/secret"
	"tabular/internal/service"
	"tabular/internal/storage"
)

// eventBridge forwards service events to the MCP server. Services are
// constructed before the server exists, so the target is bound late; events
// emitted before Bind are dropped.
type eventBridge struct {
	target service.EventEmitter
}

func (b *eventBridge) Bind(target service.EventEmitter) { b.target = target }

func (b *eventBridge) Emit(ctx context.Context, event string, data any) {
	if b.target != nil {
		b.target.Emit(ctx, event, data)
	}
}

// Serve runs the extraction pipeline as an MCP server on stdin/stdout.
// It initializes storage, services, and trigger watchers, then blocks until
// the client disconnects or the process is interrupted.
func Serve() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dataDir := os.Getenv("TABULAR_DATA_DIR")
	if dataDir == "" {
		homeDir, _ := os.UserHomeDir()
		dataDir = filepath.Join(homeDir, ".local", "share", "tabular")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data dir: %v", err)
	}

	db, err := storage.New(filepath.Join(dataDir, "tabular.db"))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// Storage stores
	jobStore := storage.NewJobStore(db)
	tableStore := storage.NewTableStore(db)
	connStore := storage.NewConnectionStore(db)

	secretStore := secret.NewFileStore(filepath.Join(dataDir, "secrets.json"))
	emitter := &eventBridge{}

	// Model client for extraction calls
	client := extract.NewGeminiClient(os.Getenv("GEMINI_API_KEY"), os.Getenv("TABULAR_MODEL"))
	extractor := extract.NewExtractor(client, client.Model())

	// Services
	exportSvc := service.NewExportService(connStore, tableStore, secretStore)
	extractSvc := service.NewExtractService(jobStore, tableStore, extractor, exportSvc, emitter)

	mcpSrv := mcpserver.New(ctx, mcpserver.Deps{
		Emitter:    emitter,
		Extract:    extractSvc,
		Export:     exportSvc,
		ApprovalDB: db.Conn(), // SQLite-based approval IPC
	})
	emitter.Bind(mcpSrv)

	// Start schedule and file-watch triggers
	extractSvc.RestartWatchers(ctx)

	log.Println("[MCP] Starting standalone stdio server...")
	if err := mcpSrv.ServeStdio(); err != nil {
		log.Printf("MCP server error: %v", err)
	}

	// Drain in-flight runs before closing sinks
	extractSvc.Stop()
	waitCtx, waitCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer waitCancel()
	extractSvc.WaitRunning(waitCtx)
	exportSvc.Close()
}
