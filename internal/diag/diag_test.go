package diag

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcepawn-tools/spls-core/internal/source"
	"github.com/sourcepawn-tools/spls-core/internal/vfs"
)

func TestCollectorOrdersByRangeStart(t *testing.T) {
	c := NewCollector()
	c.Add(Diagnostic{File: 1, Message: "second", Range: source.ByteRange{Start: 10, End: 12}})
	c.Add(Diagnostic{File: 1, Message: "first", Range: source.ByteRange{Start: 2, End: 4}})
	c.Add(Diagnostic{File: 2, Message: "other file"})

	got := c.For(1)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Message)
	assert.Equal(t, "second", got[1].Message)
}

func TestCollectorClearRemovesFile(t *testing.T) {
	c := NewCollector()
	c.Add(Diagnostic{File: 1, Message: "stale"})
	c.Clear(1)
	assert.Empty(t, c.For(1))
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LevelWarn)

	logger.Info("ignored")
	logger.Warn("shown: %s", "reason")

	out := buf.String()
	assert.NotContains(t, out, "ignored")
	assert.Contains(t, out, "shown: reason")
	assert.Contains(t, out, "[WARN]")
}

func TestLoggerFormatsMultipleArgs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LevelDebug)
	logger.Error("file %d line %d", 7, 42)
	assert.True(t, strings.Contains(buf.String(), "file 7 line 42"))
}
