package main

import (
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeCommand_FlagsValidation(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantError   bool
		errorString string
	}{
		{
			name:        "Missing --in flag",
			args:        []string{"analyze", "--out", "scored.json"},
			wantError:   true,
			errorString: "required",
		},
		{
			name:        "Missing --out flag",
			args:        []string{"analyze", "--in", "candidates.json"},
			wantError:   true,
			errorString: "required",
		},
	}

	binaryPath := getBinaryPath(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := exec.Command(binaryPath, tt.args...)
			output, err := cmd.CombinedOutput()

			if tt.wantError {
				assert.Error(t, err)
				if tt.errorString != "" {
					assert.Contains(t, string(output), tt.errorString)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAnalyzeCommand_MissingInputFile(t *testing.T) {
	binaryPath := getBinaryPath(t)

	outPath := filepath.Join(t.TempDir(), "scored.json")
	cmd := exec.Command(binaryPath, "analyze", "--in", "testdata/does-not-exist.json", "--out", outPath)
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "failed to read candidate batch file")
}
