package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    pterm.LogLevel
		wantErr bool
	}{
		{"", pterm.LogLevelInfo, false},
		{"info", pterm.LogLevelInfo, false},
		{"DEBUG", pterm.LogLevelDebug, false},
		{"trace", pterm.LogLevelTrace, false},
		{"warning", pterm.LogLevelWarn, false},
		{"error", pterm.LogLevelError, false},
		{"off", pterm.LogLevelDisabled, false},
		{"loud", pterm.LogLevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer

	logger, err := New(Options{Level: "debug", Format: FormatJSON, Writer: &buf})
	require.NoError(t, err)

	logger.Debug("plugin queried", logger.Args("plugin", "git"))

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record))
	assert.Equal(t, "git", record["plugin"])
	assert.Contains(t, buf.String(), "plugin queried")
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer

	logger, err := New(Options{Level: "warn", Format: FormatJSON, Writer: &buf})
	require.NoError(t, err)

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_RejectsUnknownFormat(t *testing.T) {
	_, err := New(Options{Format: "xml"})
	assert.Error(t, err)
}

func TestOrDiscard(t *testing.T) {
	assert.NotNil(t, OrDiscard(nil))

	logger := Discard()
	assert.Same(t, logger, OrDiscard(logger))
}
