package schemas

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const personSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["name"],
	"properties": {
		"name": {"type": "string"}
	}
}`

const validReport = `{
	"url": "https://news.ycombinator.com/newest",
	"engine": "chromedp",
	"items": 100,
	"started_at": "2026-10-16T09:30:00Z",
	"results": [
		{
			"driver": "batch",
			"run_id": "3f0c6a52-6f0e-4c53-9d0e-2b1f0d6f4a11",
			"ordered": true,
			"processed": 100,
			"target": 100,
			"stop": "completed",
			"partial": false,
			"elapsed_seconds": 4.21,
			"memory": {"heap_total": 8388608, "heap_used": 4194304, "stack": 524288, "total": 16777216}
		},
		{
			"driver": "stream",
			"ordered": false,
			"processed": 33,
			"target": 100,
			"stop": "violation",
			"partial": false,
			"violation": {
				"position": 34,
				"previous": "5 minutes ago",
				"previous_minutes": 5,
				"current": "2 minutes ago",
				"current_minutes": 2
			},
			"elapsed_seconds": 2.5
		}
	]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestValidateJSON_ValidJSON(t *testing.T) {
	schemaPath := writeFile(t, "schema.json", personSchema)
	jsonPath := writeFile(t, "doc.json", `{"name": "test"}`)

	err := ValidateJSON(schemaPath, jsonPath)
	assert.NoError(t, err)
}

func TestValidateJSON_InvalidJSON_MissingField(t *testing.T) {
	schemaPath := writeFile(t, "schema.json", personSchema)
	jsonPath := writeFile(t, "doc.json", `{"age": 30}`)

	err := ValidateJSON(schemaPath, jsonPath)
	require.Error(t, err)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr), "error should be ValidationError type")
	assert.Greater(t, len(validationErr.Errors), 0)
}

func TestValidateJSON_NonExistentSchema(t *testing.T) {
	jsonPath := writeFile(t, "doc.json", `{"name": "test"}`)

	err := ValidateJSON("testdata/nonexistent_schema.json", jsonPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestValidateJSON_NonExistentJSON(t *testing.T) {
	schemaPath := writeFile(t, "schema.json", personSchema)

	err := ValidateJSON(schemaPath, "testdata/nonexistent_json.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestValidateJSONString_Valid(t *testing.T) {
	err := ValidateJSONString(personSchema, `{"name": "test"}`)
	assert.NoError(t, err)
}

func TestValidateJSONString_Invalid(t *testing.T) {
	err := ValidateJSONString(personSchema, `{"age": 30}`)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)
	require.Len(t, validationErr.Errors, 1)
	assert.Equal(t, "(root)", validationErr.Errors[0].Field)
}

func TestValidateJSONString_BrokenSchema(t *testing.T) {
	err := ValidateJSONString(`{"type": `, `{}`)
	require.Error(t, err)

	var loadErr *SchemaLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "(string schema)", loadErr.Path)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Errors: []FieldError{
			{Field: "results.0.stop", Message: "must be one of the following"},
			{Field: "items", Message: "must be an integer"},
		},
	}

	errorMsg := err.Error()
	assert.Contains(t, errorMsg, "validation failed")
	assert.Contains(t, errorMsg, "1. results.0.stop")
	assert.Contains(t, errorMsg, "2. items")
}

func TestValidateReport_Valid(t *testing.T) {
	assert.NoError(t, ValidateReport([]byte(validReport)))
}

func TestValidateReport_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{
			name:  "missing results",
			doc:   `{"url": "https://x", "engine": "http", "items": 1, "started_at": "2026-10-16T09:30:00Z"}`,
			field: "(root)",
		},
		{
			name:  "unknown engine",
			doc:   `{"url": "https://x", "engine": "lynx", "items": 1, "started_at": "2026-10-16T09:30:00Z", "results": [{"driver": "batch", "ordered": true, "processed": 1, "target": 1, "stop": "completed", "partial": false, "elapsed_seconds": 0}]}`,
			field: "engine",
		},
		{
			name:  "unknown stop reason",
			doc:   `{"url": "https://x", "engine": "http", "items": 1, "started_at": "2026-10-16T09:30:00Z", "results": [{"driver": "batch", "ordered": true, "processed": 1, "target": 1, "stop": "gave_up", "partial": false, "elapsed_seconds": 0}]}`,
			field: "results.0.stop",
		},
		{
			name:  "violation at position zero",
			doc:   `{"url": "https://x", "engine": "http", "items": 1, "started_at": "2026-10-16T09:30:00Z", "results": [{"driver": "stream", "ordered": false, "processed": 0, "target": 1, "stop": "violation", "partial": false, "elapsed_seconds": 0, "violation": {"position": 0, "previous": "", "previous_minutes": 0, "current": "", "current_minutes": 0}}]}`,
			field: "results.0.violation.position",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReport([]byte(tt.doc))
			require.Error(t, err)

			var validationErr *ValidationError
			require.True(t, errors.As(err, &validationErr))
			fields := make([]string, 0, len(validationErr.Errors))
			for _, fe := range validationErr.Errors {
				fields = append(fields, fe.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestValidateReport_Malformed(t *testing.T) {
	err := ValidateReport([]byte("{ invalid json }"))
	require.Error(t, err)

	var loadErr *SchemaLoadError
	assert.True(t, errors.As(err, &loadErr))
}

func TestValidateReportFile(t *testing.T) {
	path := writeFile(t, "report.json", validReport)
	assert.NoError(t, ValidateReportFile(path))

	err := ValidateReportFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read report")
}
