package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T, format string) (*LogrusLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := New(&buf, "debug", format)
	require.NoError(t, err)
	return l, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLogrusLogger_Levels(t *testing.T) {
	log, buf := newTestLogger(t, FormatJSON)
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", "two")
	log.Warn(ctx, "wrn")
	log.Error(ctx, "err", "err", errors.New("boom"))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 4)

	assert.Equal(t, "debug", lines[0]["level"])
	assert.Equal(t, "dbg", lines[0]["msg"])
	assert.EqualValues(t, 1, lines[0]["a"])
	assert.Equal(t, "info", lines[1]["level"])
	assert.Equal(t, "two", lines[1]["b"])
	assert.Equal(t, "warning", lines[2]["level"])
	assert.Equal(t, "error", lines[3]["level"])
	assert.Equal(t, "boom", lines[3]["err"])
}

func TestLogrusLogger_WithAndRequestID(t *testing.T) {
	log, buf := newTestLogger(t, FormatJSON)

	ctx := WithRequestID(context.Background(), "req-123")
	log.With("component", "auth").Info(ctx, "hello", "user", "alice", "dangling")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "auth", lines[0]["component"])
	assert.Equal(t, "req-123", lines[0]["request_id"])
	assert.Equal(t, "alice", lines[0]["user"])
	assert.Equal(t, "dangling", lines[0]["!BADKEY"])
}

func TestLogrusLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "warn", FormatText)
	require.NoError(t, err)

	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
}

func TestNew_Errors(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "loud", FormatJSON)
	assert.Error(t, err)

	_, err = New(&bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)
}

func TestRequestIDFromContext(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(context.Background()))
	assert.Equal(t, "x", RequestIDFromContext(WithRequestID(context.Background(), "x")))
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	log.Info(context.TODO(), "nothing")
	log.With("k", "v").Error(context.TODO(), "still nothing")
}
