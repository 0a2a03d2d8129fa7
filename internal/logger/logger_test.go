// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package logger

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture redirects l into a buffer.
func capture(l *Logger) *bytes.Buffer {
	var buf bytes.Buffer
	l.Logger = l.Output(&buf)
	return &buf
}

// entries decodes one JSON object per line.
func entries(t *testing.T, r io.Reader) []map[string]any {
	t.Helper()

	var out []map[string]any
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if len(bytes.TrimSpace(sc.Bytes())) == 0 {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &entry), sc.Text())
		out = append(out, entry)
	}
	require.NoError(t, sc.Err())
	return out
}

func resetLevel(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.DebugLevel) })
}

// ── NewLogger ────────────────────────────────────────────────────────────────

// TestNewLogger_Fields verifies role, timestamp and caller on every entry.
func TestNewLogger_Fields(t *testing.T) {
	l := NewLogger("syncd")
	buf := capture(l)

	l.Info().Msg("hello")

	got := entries(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "syncd", got[0]["role"])
	assert.Equal(t, "hello", got[0]["message"])
	assert.Contains(t, got[0], "time")
	assert.Contains(t, got[0]["func"], "TestNewLogger_Fields")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

// ── WithComponent ────────────────────────────────────────────────────────────

// TestWithComponent_TagsOnlyTheChild verifies that siblings carry their own
// component and the parent none.
func TestWithComponent_TagsOnlyTheChild(t *testing.T) {
	parent := NewLogger("syncd")
	buf := capture(parent)

	orchestrator := parent.WithComponent("orchestrator")
	monitor := parent.WithComponent("connectivity")

	orchestrator.Info().Msg("cycle started")
	monitor.Info().Msg("reconnected")
	parent.Info().Msg("plain")

	got := entries(t, buf)
	require.Len(t, got, 3)

	assert.Equal(t, "orchestrator", got[0]["component"])
	assert.Equal(t, "connectivity", got[1]["component"])
	assert.NotContains(t, got[2], "component")
	for _, entry := range got {
		assert.Equal(t, "syncd", entry["role"], "role is inherited")
	}
	assert.NotSame(t, parent, orchestrator)
}

// TestWithComponent_KeepsContextFields verifies that a logger taken from a
// context keeps its fields when tagged.
func TestWithComponent_KeepsContextFields(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf).With().Str("trace_id", "t-42").Logger()
	ctx := zl.WithContext(context.Background())

	FromContext(ctx).WithComponent("http").Warn().Msg("slow request")

	got := entries(t, &buf)
	require.Len(t, got, 1)
	assert.Equal(t, "t-42", got[0]["trace_id"])
	assert.Equal(t, "http", got[0]["component"])
	assert.Equal(t, "warn", got[0]["level"])
}

// TestWithComponent_FollowsGlobalLevel verifies that children are filtered
// by SetLevel like their parent.
func TestWithComponent_FollowsGlobalLevel(t *testing.T) {
	resetLevel(t)

	parent := NewLogger("syncd")
	buf := capture(parent)
	child := parent.WithComponent("queue")

	require.NoError(t, SetLevel("error"))
	child.Info().Msg("dropped")
	child.Error().Msg("kept")

	got := entries(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "kept", got[0]["message"])
	assert.Equal(t, "queue", got[0]["component"])
}

// ── NewFileLogger ────────────────────────────────────────────────────────────

// TestNewFileLogger_CreatesDirectoriesAndAppends verifies that two loggers
// on the same path append to one file.
func TestNewFileLogger_CreatesDirectoriesAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "var", "log", "syncctl.log")

	NewFileLogger("syncctl", path).Info().Msg("first")
	NewFileLogger("syncctl", path).WithComponent("ctl").Info().Msg("second")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	got := entries(t, f)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0]["message"])
	assert.Equal(t, "second", got[1]["message"])
	assert.Equal(t, "ctl", got[1]["component"])
	for _, entry := range got {
		assert.Equal(t, "syncctl", entry["role"])
	}
}

// TestNewFileLogger_FallsBackToStderr verifies that an unusable path sends
// entries to stderr instead of failing.
func TestNewFileLogger_FallsBackToStderr(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	tests := []struct {
		name string
		path string
	}{
		{name: "parent is a file", path: filepath.Join(blocker, "syncd.log")},
		{name: "path is a directory", path: dir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, w, err := os.Pipe()
			require.NoError(t, err)
			stderr := os.Stderr
			os.Stderr = w
			l := NewFileLogger("syncd", tt.path)
			os.Stderr = stderr

			l.Info().Msg("fallback")
			require.NoError(t, w.Close())

			got := entries(t, r)
			require.Len(t, got, 1)
			assert.Equal(t, "fallback", got[0]["message"])
			assert.Equal(t, "syncd", got[0]["role"])
		})
	}
}

// ── SetLevel ─────────────────────────────────────────────────────────────────

func TestSetLevel(t *testing.T) {
	resetLevel(t)

	tests := []struct {
		level   string
		want    zerolog.Level
		wantErr bool
	}{
		{level: "warn", want: zerolog.WarnLevel},
		{level: "", want: zerolog.WarnLevel},
		{level: "info", want: zerolog.InfoLevel},
		{level: "loud", want: zerolog.InfoLevel, wantErr: true},
		{level: "trace", want: zerolog.TraceLevel},
	}

	for _, tt := range tests {
		err := SetLevel(tt.level)
		if tt.wantErr {
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.level)
		} else {
			require.NoError(t, err)
		}
		assert.Equal(t, tt.want, zerolog.GlobalLevel(), "after %q", tt.level)
	}
}

// TestSetLevel_FiltersEntries verifies that entries below the level are
// dropped.
func TestSetLevel_FiltersEntries(t *testing.T) {
	resetLevel(t)

	l := NewLogger("syncd")
	buf := capture(l)
	require.NoError(t, SetLevel("warn"))

	l.Debug().Msg("debug")
	l.Info().Msg("info")
	l.Warn().Msg("warn")
	l.Error().Msg("error")

	got := entries(t, buf)
	require.Len(t, got, 2)
	assert.Equal(t, "warn", got[0]["message"])
	assert.Equal(t, "error", got[1]["message"])
}

// ── Nop and context helpers ──────────────────────────────────────────────────

func TestNop_DiscardsOutput(t *testing.T) {
	l := Nop()
	buf := capture(l)

	l.Error().Msg("should be discarded")
	l.WithComponent("x").Error().Msg("also discarded")

	assert.Empty(t, buf.String())
}

func TestFromRequest_ReturnsAttachedLogger(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf).With().Str("trace_id", "t-7").Logger()

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req = req.WithContext(zl.WithContext(req.Context()))

	FromRequest(req).Info().Msg("from request")
	require.NotNil(t, FromContext(context.Background()), "a bare context still yields a logger")

	got := entries(t, &buf)
	require.Len(t, got, 1)
	assert.Equal(t, "t-7", got[0]["trace_id"])
}
