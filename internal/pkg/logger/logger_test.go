package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "c2VjcmV0LWtleS1mb3ItdGVzdHMtMTIzNDU2Nzg5MA=="

func TestMask(t *testing.T) {
	masked := Mask(testSecret)

	assert.Equal(t, "c2Vj…(len=44)", masked)
	assert.False(t, strings.Contains(masked, testSecret[4:]))
	assert.Equal(t, "ab…(len=2)", Mask("ab"))
	assert.Equal(t, "<empty>", Mask(""))
}

func captureLine(t *testing.T, log func(l *slog.Logger)) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	log(slog.New(newHandler(&buf, slog.LevelInfo)))
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out), buf.String())
	return out
}

func TestHandlerMasksCredentialAttributes(t *testing.T) {
	line := captureLine(t, func(l *slog.Logger) {
		l.Info("derived", "secret", testSecret, "Passphrase", "derived-pass", "context_key", "0:0xabc")
	})

	assert.Equal(t, "c2Vj…(len=44)", line["secret"])
	assert.Equal(t, "deri…(len=12)", line["Passphrase"])
	assert.Equal(t, "0:0xabc", line["context_key"], "other attributes pass through")
}

func TestHandlerKeepsAlreadyMaskedValues(t *testing.T) {
	line := captureLine(t, func(l *slog.Logger) {
		l.With("api_key", Mask("cfg-key-0001")).Info("ready", "secret", Mask(""))
	})

	assert.Equal(t, "cfg-…(len=12)", line["api_key"])
	assert.Equal(t, "<empty>", line["secret"])
}

func TestHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(newHandler(&buf, parseLevel("warn")))
	l.Info("dropped")
	assert.Zero(t, buf.Len())
	l.Warn("kept")
	assert.Contains(t, buf.String(), "kept")

	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}
