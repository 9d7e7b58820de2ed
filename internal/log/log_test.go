package log

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"error", false},
		{"WARN", false},
		{"warning", false},
		{"", false},
		{"debug", false},
		{"trace", false},
		{"verbose", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := parseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		_ = SetLogLevel("info")
	})

	require.NoError(t, SetLogLevel("debug"))
	assert.Equal(t, "debug", GetLogLevel())

	LogDebugWithFields("camera", "frame captured", map[string]any{"width": 640})
	assert.Contains(t, buf.String(), "component=camera")
	assert.Contains(t, buf.String(), "width=640")

	assert.Error(t, SetLogLevel("loud"))
	assert.Equal(t, "debug", GetLogLevel())

	require.NoError(t, SetLogLevel("WARNING"))
	assert.Equal(t, "warn", GetLogLevel())
}

func TestTraceSuppressedAboveTrace(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })

	require.NoError(t, SetLogLevel("info"))
	buf.Reset()
	LogTraceWithFields("camera", "hidden", map[string]any{"n": 1})
	assert.Empty(t, buf.String())

	require.NoError(t, SetLogLevel("trace"))
	t.Cleanup(func() { _ = SetLogLevel("info") })
	buf.Reset()
	LogTraceWithFields("camera", "shown", map[string]any{"n": 2})
	assert.Contains(t, buf.String(), "level=TRACE")
	assert.Contains(t, buf.String(), "n=2")
}
