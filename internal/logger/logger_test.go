package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("warn", "json", &buf)
	require.NoError(t, err)

	l.Info("client_connected", "client_id", "a")
	l.Warn("queue_high_watermark", "channel", "head")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "queue_high_watermark", rec["msg"])
	assert.Equal(t, "head", rec["channel"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("debug", "text", &buf)
	require.NoError(t, err)
	l.Debug("pose_updated", "role", "waist")
	assert.Contains(t, buf.String(), "role=waist")
}

func TestNew_Invalid(t *testing.T) {
	_, err := New("loud", "json", &bytes.Buffer{})
	assert.Error(t, err)
	_, err = New("info", "xml", &bytes.Buffer{})
	assert.Error(t, err)

	lvl, err := ParseLevel("WARNING")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)
}

func TestOpen_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ovd.log")
	l, closer, err := Open(Config{Level: "info", Format: "json", Outputs: []string{path}})
	require.NoError(t, err)

	l.Info("session_started", "addr", "127.0.0.1:21213")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "session_started")
}
