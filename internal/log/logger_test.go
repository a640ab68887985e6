package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentReport, Output: &buf})

	logger.Warn("fetch failed", FieldFetchKey, "monthly|2024|3|0")
	assert.Contains(t, buf.String(), "component=report")
	assert.Contains(t, buf.String(), "fetch_key=monthly|2024|3|0")

	buf.Reset()
	logger.WithComponent(ComponentEdit).Info("committed")
	assert.Contains(t, buf.String(), "component=edit")
}

func TestContextLogger(t *testing.T) {
	logger := Discard()
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
	assert.Equal(t, "unknown", FromContext(context.Background()).Component())
	assert.NotNil(t, OrDiscard(nil))
}

func TestLogHTTPEndLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelDebug, Output: &buf, JSON: true}))
	r := httptest.NewRequest("GET", "/reports?kind=monthly", nil)

	sl.LogHTTPEnd(context.Background(), r, 503, 12, "10.0.0.1")
	assert.Contains(t, buf.String(), `"level":"ERROR"`)

	buf.Reset()
	sl.LogHTTPEnd(context.Background(), r, 404, 1, "10.0.0.1")
	assert.Contains(t, buf.String(), `"level":"WARN"`)

	buf.Reset()
	sl.LogError(context.Background(), "boom", errors.New("bad"), ComponentAPI, OpFetch, nil)
	assert.Contains(t, buf.String(), `"error":"bad"`)
}
