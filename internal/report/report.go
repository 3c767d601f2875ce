// Package report writes acquisition results to the artifact file and the
// standard output stream consumed by the downstream pipeline.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/silverstate/nvsos-api/internal/models"
)

// Delimiters the downstream pipeline scans for on stdout.
const (
	StartMarker = "=== SCRAPED_DATA_JSON_START ==="
	EndMarker   = "=== SCRAPED_DATA_JSON_END ==="
)

// WriteArtifact writes the record as indented JSON to
// scraped_data_<fileNumber>_<requestID>.json under dir and returns the path.
func WriteArtifact(dir string, record *models.EntityRecord) (string, error) {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal record: %w", err)
	}

	name := fmt.Sprintf("scraped_data_%s_%s.json",
		record.Metadata.FileNumberSearched, record.Metadata.RequestID)
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	return path, nil
}

// Emit prints the record between the fixed delimiter markers so the outer
// pipeline can pick it out of the process output.
func Emit(w io.Writer, record *models.EntityRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	if _, err := fmt.Fprintf(w, "\n%s\n%s\n%s\n", StartMarker, data, EndMarker); err != nil {
		return err
	}
	return nil
}
