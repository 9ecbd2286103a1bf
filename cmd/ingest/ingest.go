// Package ingest handles the document ingestion command.
package ingest

import (
	"encoding/json"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ledgerpipe/cmd/root"
	"ledgerpipe/internal/logging"
)

// mimeByExtension covers the statement formats where Go's mime table is
// missing or too generic.
var mimeByExtension = map[string]string{
	".csv":  "text/csv",
	".txt":  "text/plain",
	".pdf":  "application/pdf",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xml":  "application/xml",
}

var mimeFlag string

// Cmd represents the ingest command.
var Cmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Ingest a bank statement document",
	Long: `Ingest a bank statement (PDF, CSV, XLSX or CAMT.053 XML), extract its
transactions, categorize and convert them, and persist the result.`,
	Args: cobra.ExactArgs(1),
	Run:  ingestFunc,
}

func init() {
	Cmd.Flags().StringVar(&mimeFlag, "mime", "", "Override the detected MIME type")
}

func ingestFunc(cmd *cobra.Command, args []string) {
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		root.Exit("failed to read input file", err)
	}

	mimeType := mimeFlag
	if mimeType == "" {
		mimeType = detectMIME(path)
	}

	root.Log.Info("ingesting document",
		logging.Field{Key: "file", Value: path},
		logging.Field{Key: "mime_type", Value: mimeType})

	result := root.AppContainer.Orchestrator().ProcessDocument(
		root.ContextOrBackground(cmd), root.Flags.User, data, mimeType,
		filepath.Base(path), root.Flags.Currency)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		root.Exit("failed to encode result", err)
	}
	os.Stdout.Write(append(out, '\n'))

	if !result.Success {
		os.Exit(1)
	}
}

func detectMIME(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if m, ok := mimeByExtension[ext]; ok {
		return m
	}
	if m := mime.TypeByExtension(ext); m != "" {
		// Strip parameters like "; charset=utf-8".
		if idx := strings.Index(m, ";"); idx > 0 {
			m = m[:idx]
		}
		return m
	}
	return "application/octet-stream"
}
