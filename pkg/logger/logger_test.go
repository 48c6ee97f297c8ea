package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewWriter_JSONNormalizesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, Config{Level: "info", Format: "json"})

	l.Debug("hidden")
	l.Error("failed", "error", errors.New("boom"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "failed", entry["msg"])
	assert.Equal(t, "boom", entry["err"])
	assert.NotContains(t, entry, "error")
}

func TestNewWriter_Text(t *testing.T) {
	var buf bytes.Buffer
	NewWriter(&buf, Config{Format: "text"}).Info("hello", "k", "v")
	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "k=v")
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.log")
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	l, err := New(Config{Output: "file", FilePath: path, MaxSize: 1})
	require.NoError(t, err)
	l.Info("written")
	assert.FileExists(t, path)
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := NewWriter(&buf, Config{Format: "json"})

	FromContext(WithRequestID(context.Background(), "req-1"), base).Info("x")
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
	assert.Equal(t, "", RequestID(context.Background()))
}
