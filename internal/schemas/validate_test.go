package schemas

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateJSON_ValidJSON(t *testing.T) {
	schemaPath := filepath.Join("testdata", "valid_schema.json")
	jsonPath := filepath.Join("testdata", "valid_json.json")

	err := ValidateJSON(schemaPath, jsonPath)
	assert.NoError(t, err)
}

func TestValidateJSON_InvalidJSON_MissingField(t *testing.T) {
	schemaPath := filepath.Join("testdata", "valid_schema.json")
	jsonPath := filepath.Join("testdata", "invalid_json.json")

	err := ValidateJSON(schemaPath, jsonPath)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok, "error should be ValidationError type")
	assert.Greater(t, len(validationErr.Errors), 0)
}

func TestValidateJSON_InvalidJSON_WrongType(t *testing.T) {
	schemaPath := filepath.Join("testdata", "valid_schema.json")
	jsonPath := filepath.Join("testdata", "type_mismatch.json")

	err := ValidateJSON(schemaPath, jsonPath)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok, "error should be ValidationError type")
	assert.Greater(t, len(validationErr.Errors), 0)
}

func TestValidateJSON_NonExistentSchema(t *testing.T) {
	schemaPath := "testdata/nonexistent_schema.json"
	jsonPath := filepath.Join("testdata", "valid_json.json")

	err := ValidateJSON(schemaPath, jsonPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestValidateJSON_NonExistentJSON(t *testing.T) {
	schemaPath := filepath.Join("testdata", "valid_schema.json")
	jsonPath := "testdata/nonexistent_json.json"

	err := ValidateJSON(schemaPath, jsonPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestValidateJSON_MalformedJSON(t *testing.T) {
	// Create a temporary malformed JSON file
	tmpDir := t.TempDir()
	malformedJSON := filepath.Join(tmpDir, "malformed.json")
	err := os.WriteFile(malformedJSON, []byte("{ invalid json }"), 0644)
	require.NoError(t, err)

	schemaPath := filepath.Join("testdata", "valid_schema.json")

	valErr := ValidateJSON(schemaPath, malformedJSON)
	require.Error(t, valErr)
	// The error might be from gojsonschema parsing, not our code
}

func TestValidateJSONString_Valid(t *testing.T) {
	schemaContent := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string"}
		}
	}`
	jsonContent := `{"name": "test"}`

	err := ValidateJSONString(schemaContent, jsonContent)
	assert.NoError(t, err)
}

func TestValidateJSONString_Invalid(t *testing.T) {
	schemaContent := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string"}
		}
	}`
	jsonContent := `{"age": 30}`

	err := ValidateJSONString(schemaContent, jsonContent)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Greater(t, len(validationErr.Errors), 0)
}

func TestValidatePaperAnalysis(t *testing.T) {
	tests := []struct {
		name      string
		json      string
		wantError bool
	}{
		{
			name: "valid analysis",
			json: `{
				"innovation_score": 8,
				"summary": "A novel approach to sparse attention.",
				"key_innovation": "Learned sparsity patterns.",
				"implementation_details": "Two-stage training with a masking curriculum.",
				"problem_solved": "Quadratic attention cost.",
				"potential_impact": "Longer context windows."
			}`,
			wantError: false,
		},
		{
			name: "valid without optional fields",
			json: `{
				"innovation_score": 5,
				"summary": "Incremental benchmark work.",
				"key_innovation": "New evaluation split.",
				"implementation_details": "Re-ran baselines."
			}`,
			wantError: false,
		},
		{
			name: "missing required field",
			json: `{
				"innovation_score": 7,
				"summary": "Missing the key innovation.",
				"implementation_details": "Details here."
			}`,
			wantError: true,
		},
		{
			name: "score out of range",
			json: `{
				"innovation_score": 11,
				"summary": "Too enthusiastic.",
				"key_innovation": "Everything.",
				"implementation_details": "Magic."
			}`,
			wantError: true,
		},
		{
			name: "score below range",
			json: `{
				"innovation_score": 0,
				"summary": "Too harsh.",
				"key_innovation": "Nothing.",
				"implementation_details": "None."
			}`,
			wantError: true,
		},
		{
			name: "non-integer score",
			json: `{
				"innovation_score": 7.5,
				"summary": "Fractional scores are rejected.",
				"key_innovation": "Half points.",
				"implementation_details": "Rounding."
			}`,
			wantError: true,
		},
		{
			name: "string score",
			json: `{
				"innovation_score": "8",
				"summary": "Stringly typed.",
				"key_innovation": "Quotes.",
				"implementation_details": "More quotes."
			}`,
			wantError: true,
		},
		{
			name: "empty summary",
			json: `{
				"innovation_score": 6,
				"summary": "",
				"key_innovation": "Something.",
				"implementation_details": "Something else."
			}`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePaperAnalysis(tt.json)
			if tt.wantError {
				require.Error(t, err)

				validationErr, ok := err.(*ValidationError)
				require.True(t, ok, "error should be ValidationError, got %T: %v", err, err)
				assert.Greater(t, len(validationErr.Errors), 0)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPaperAnalysis_SchemaIsUsable(t *testing.T) {
	schema := PaperAnalysis()
	assert.NotEmpty(t, schema)

	// The embedded schema itself must load cleanly
	err := ValidateJSONString(schema, `{"innovation_score": 9, "summary": "s", "key_innovation": "k", "implementation_details": "i"}`)
	assert.NoError(t, err)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Errors: []FieldError{
			{Field: "innovation_score", Message: "is required"},
			{Field: "summary", Message: "must be a string"},
		},
	}

	errorMsg := err.Error()
	assert.Contains(t, errorMsg, "validation failed")
	assert.Contains(t, errorMsg, "innovation_score")
	assert.Contains(t, errorMsg, "summary")
}

func TestValidateJSON_NestedFieldValidation(t *testing.T) {
	schemaContent := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["paper"],
		"properties": {
			"paper": {
				"type": "object",
				"required": ["arxiv_id"],
				"properties": {
					"arxiv_id": {"type": "string"}
				}
			}
		}
	}`

	jsonContent := `{"paper": {}}`

	err := ValidateJSONString(schemaContent, jsonContent)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Greater(t, len(validationErr.Errors), 0)
	// Check that the field path includes nested field
	found := false
	for _, fieldErr := range validationErr.Errors {
		if fieldErr.Field != "" {
			found = true
			break
		}
	}
	assert.True(t, found, "should include field path in error")
}

func TestResolveSchemaPath(t *testing.T) {
	// A path that exists relative to this package
	resolved := ResolveSchemaPath(filepath.Join("testdata", "valid_schema.json"))
	assert.NotEmpty(t, resolved)
	assert.True(t, filepath.IsAbs(resolved))

	// A path that exists nowhere
	assert.Empty(t, ResolveSchemaPath("no/such/schema.json"))
}
