package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLogger_LevelFiltering(t *testing.T) {
	var out bytes.Buffer
	l := NewDefaultLogger(LevelWarn, &out)

	l.Info("should not appear")
	l.Warn("should appear: %d", 7)

	lines := out.String()
	assert.NotContains(t, lines, "should not appear")
	assert.Contains(t, lines, "should appear: 7")
	assert.Contains(t, lines, "[WARN]")
}

func TestDefaultLogger_WithFields(t *testing.T) {
	var out bytes.Buffer
	l := NewDefaultLogger(LevelDebug, &out).WithField("obj_id", 42)

	l.Debug("hello")
	assert.Contains(t, out.String(), "obj_id=42")
}

func TestDefaultLogger_JSONFormat(t *testing.T) {
	var out bytes.Buffer
	l := NewDefaultLoggerWithFormat(LevelInfo, &out, FormatJSON).WithField("file", "x.hprof")

	l.Error("boom: %s", "oops")

	line := strings.TrimSpace(out.String())
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &decoded))
	assert.Equal(t, "ERROR", decoded["level"])
	assert.Equal(t, "boom: oops", decoded["msg"])
	assert.Equal(t, "x.hprof", decoded["file"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, ParseFormat("json"))
	assert.Equal(t, FormatText, ParseFormat("text"))
	assert.Equal(t, FormatText, ParseFormat("bogus"))
}

func TestNullLogger_DiscardsEverything(t *testing.T) {
	var l Logger = NullLogger{}
	l.Debug("x")
	l2 := l.WithField("a", 1)
	_, ok := l2.(NullLogger)
	assert.True(t, ok)
}
