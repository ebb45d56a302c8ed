package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")

	logger, err := NewLogger(LoggerConfig{Level: "debug", OutputPath: path, Format: "json"})
	require.NoError(t, err)

	logger.Info("form saved")
	require.NoError(t, logger.Sync())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"form saved"`)
	assert.Contains(t, string(content), `"timestamp"`)
}

func TestNewLogger_UnknownLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")

	logger, err := NewLogger(LoggerConfig{Level: "chatty", OutputPath: path, Format: "console"})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("shown")
	require.NoError(t, logger.Sync())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "hidden")
	assert.Contains(t, string(content), "shown")
}

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"site-1", true},
		{"MMU_North.pit:2", true},
		{"3f1c2d8e-5b7a-4c4e-9a0b-1d2e3f4a5b6c", true},
		{"", false},
		{"-site", false},
		{"site 1", false},
		{"../etc", false},
	}
	for _, tt := range tests {
		err := ValidateIdentifier("site", tt.id)
		if tt.valid {
			assert.NoError(t, err, tt.id)
		} else {
			assert.Error(t, err, tt.id)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "pump\tP-7\nok", SanitizeString("  pump\tP-7\x00\nok\x07 "))
}
