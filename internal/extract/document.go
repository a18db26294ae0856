package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// mimeByExt maps supported source extensions to the MIME type sent to the
// model. Textual formats are inlined into the prompt instead of attached.
var mimeByExt = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
	".txt":  "text/plain",
	".md":   "text/plain",
	".csv":  "text/csv",
	".html": "text/html",
	".json": "application/json",
}

// ReadDocument loads a source file and resolves its MIME type from the
// extension.
func ReadDocument(path string) (Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	mime, ok := mimeByExt[ext]
	if !ok {
		return Document{}, fmt.Errorf("unsupported document type %q (want pdf, png, jpg, webp, gif, txt, md, csv, html, or json)", ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read document: %w", err)
	}
	return Document{MIMEType: mime, Data: data}, nil
}
