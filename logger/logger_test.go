package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMessage = "test message"

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestNewForModeWritesToGivenSink(t *testing.T) {
	var buf bytes.Buffer
	l := NewForMode(ModeDevelopment, "info", false, &buf)
	require.NotNil(t, l.filter)
	assert.Equal(t, zerolog.InfoLevel, l.Level())

	l.Info().Msg(testMessage)
	assert.Contains(t, buf.String(), testMessage)
}

func TestNewForModeDefaultsToStderr(t *testing.T) {
	l := NewForMode("production", "", false, nil)
	require.NotNil(t, l)
	assert.Equal(t, zerolog.WarnLevel, l.Level())
}

func TestResolveLevel(t *testing.T) {
	tests := []struct {
		mode     string
		level    string
		expected zerolog.Level
	}{
		{ModeDevelopment, "", zerolog.DebugLevel},
		{ModeDevelopment, "info", zerolog.InfoLevel},
		{ModeLocal, "bogus", zerolog.DebugLevel},
		{ModeTest, "error", zerolog.WarnLevel},
		{"production", "debug", zerolog.WarnLevel},
		{"staging", "", zerolog.WarnLevel},
		{"", "info", zerolog.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.mode+"_"+tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveLevel(tt.mode, tt.level))
		})
	}
}

func TestIsDevelopmentMode(t *testing.T) {
	assert.True(t, IsDevelopmentMode("development"))
	assert.True(t, IsDevelopmentMode(" Local "))
	assert.True(t, IsDevelopmentMode("test"))
	assert.False(t, IsDevelopmentMode("production"))
	assert.False(t, IsDevelopmentMode(""))
}

func TestNewForModeGating(t *testing.T) {
	t.Run("development emits every level", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewForMode(ModeDevelopment, "", false, &buf)

		l.Debug().Msg("debug " + testMessage)
		l.Info().Msg("info " + testMessage)
		l.Warn().Msg("warn " + testMessage)
		l.Error().Msg("error " + testMessage)

		entries := decodeLines(t, &buf)
		require.Len(t, entries, 4)
		assert.Equal(t, "debug", entries[0]["level"])
		assert.Equal(t, "error", entries[3]["level"])
	})

	t.Run("production keeps warn and error only", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewForMode("production", "debug", false, &buf)

		l.Debug().Msg("debug " + testMessage)
		l.Info().Msg("info " + testMessage)
		l.Warn().Msg("warn " + testMessage)
		l.Error().Msg("error " + testMessage)

		entries := decodeLines(t, &buf)
		require.Len(t, entries, 2)
		assert.Equal(t, "warn", entries[0]["level"])
		assert.Equal(t, "error", entries[1]["level"])
	})
}

func TestLogEventFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewForMode(ModeTest, "debug", false, &buf)

	l.Info().
		Str("method", "GET").
		Bool("body_truncated", true).
		Str("authorization", "Bearer abc.def.ghi").
		Int("status", 200).
		Int64("call_count", 7).
		Uint64("generation", 3).
		Dur("elapsed", 250*time.Millisecond).
		Interface("headers", map[string]string{"Authorization": "Bearer abc.def.ghi"}).
		Bytes("body_preview", []byte("ok")).
		Err(assert.AnError).
		Msg(testMessage)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	entry := entries[0]

	assert.Equal(t, testMessage, entry["message"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, true, entry["body_truncated"])
	assert.Equal(t, DefaultMaskValue, entry["authorization"])
	assert.Equal(t, float64(200), entry["status"])
	assert.Equal(t, float64(7), entry["call_count"])
	assert.Equal(t, "ok", entry["body_preview"])
	assert.Equal(t, assert.AnError.Error(), entry["error"])
	headers := entry["headers"].(map[string]any)
	assert.Equal(t, DefaultMaskValue, headers["Authorization"])
	assert.Contains(t, entry["caller"], ".go:")
}

func TestMsgf(t *testing.T) {
	var buf bytes.Buffer
	l := NewForMode(ModeTest, "", false, &buf)
	l.Warn().Msgf("retrying in %s", time.Second)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "retrying in 1s", entries[0]["message"])
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewForMode(ModeTest, "", false, &buf)

	scoped := l.WithFields(map[string]any{"component": "httpclient", "token": "abc"})
	scoped.Info().Msg(testMessage)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "httpclient", entries[0]["component"])
	assert.Equal(t, DefaultMaskValue, entries[0]["token"])
}

func TestWithContext(t *testing.T) {
	l := NewForMode(ModeTest, "", false, &bytes.Buffer{})

	assert.Same(t, l, l.WithContext("not a context"), "should return original logger")
	assert.Same(t, l, l.WithContext(context.Background()), "should return original logger")

	var buf bytes.Buffer
	zl := zerolog.New(&buf).With().Str("request", "r-1").Logger()
	ctx := zl.WithContext(context.Background())

	l.WithContext(ctx).Info().Msg(testMessage)
	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "r-1", entries[0]["request"])
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	assert.NotPanics(t, func() {
		l.Error().Str("k", "v").Msg(testMessage)
		l.Debug().Msgf("%d", 1)
	})
}
