package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/silverstate/nvsos-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() *models.EntityRecord {
	record := models.NewEntityRecord()
	name := "SILVER STATE HOLDINGS LLC"
	record.EntityInformation[models.FieldEntityName] = &name
	record.EntityInformation[models.FieldTerminationDate] = nil
	record.Metadata.FileNumberSearched = "E10281132020-8"
	record.Metadata.RequestID = "req-1"
	return record
}

func TestWriteArtifact(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteArtifact(dir, sampleRecord())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "scraped_data_E10281132020-8_req-1.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded models.EntityRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "SILVER STATE HOLDINGS LLC", *decoded.EntityInformation[models.FieldEntityName])

	// Confirmed-but-empty fields serialize as explicit nulls.
	assert.Contains(t, string(data), `"termination_date": null`)
}

func TestEmitDelimitsPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Emit(&buf, sampleRecord()))

	output := buf.String()
	startIdx := strings.Index(output, StartMarker)
	endIdx := strings.Index(output, EndMarker)
	require.GreaterOrEqual(t, startIdx, 0)
	require.Greater(t, endIdx, startIdx)

	payload := output[startIdx+len(StartMarker) : endIdx]
	var decoded models.EntityRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &decoded))
	assert.Equal(t, "E10281132020-8", decoded.Metadata.FileNumberSearched)
	assert.True(t, decoded.Metadata.Success)
}
