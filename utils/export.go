package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

type ExportData struct {
	Timestamp  string `json:"timestamp"`
	ExportType string `json:"export_type"`
	SessionID  string `json:"session_id,omitempty"`
	Data       any    `json:"data"`
}

// GetCurrentTimestamp returns the current Unix timestamp in seconds
func GetCurrentTimestamp() int64 {
	return time.Now().Unix()
}

// ExportFileName builds "<prefix>_<unix>.<ext>".
func ExportFileName(prefix, ext string) string {
	return fmt.Sprintf("%s_%d.%s", prefix, GetCurrentTimestamp(), strings.TrimPrefix(ext, "."))
}

func sanitizeString(s string) string {
	if !utf8.ValidString(s) {
		return strings.ToValidUTF8(s, "?")
	}
	return s
}

// ExportToJSON writes data wrapped in an ExportData envelope to dir/filename
// and returns the written path.
func ExportToJSON(dir, filename string, data any, exportType, sessionID string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(dir, filename)

	exportData := ExportData{
		Timestamp:  time.Now().Format(time.RFC3339),
		ExportType: exportType,
		SessionID:  sessionID,
		Data:       data,
	}

	// Chinese text stays readable in the file.
	var buf strings.Builder
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(exportData); err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}

	jsonData := []byte(sanitizeString(strings.TrimSpace(buf.String())))
	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON file: %w", err)
	}
	return path, nil
}

// ExportToTSV writes tab-separated rows, the format Anki's importer accepts.
// Tabs and newlines inside fields are replaced with spaces.
func ExportToTSV(dir, filename string, rows [][]string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	cleaner := strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ", "\r", " ")

	var b strings.Builder
	for _, row := range rows {
		fields := make([]string, len(row))
		for i, field := range row {
			fields[i] = cleaner.Replace(sanitizeString(field))
		}
		b.WriteString(strings.Join(fields, "\t"))
		b.WriteString("\n")
	}

	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write TSV file: %w", err)
	}
	return path, nil
}
