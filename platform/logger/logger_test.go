package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithContextAddsCorrelationIDs(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, TaskIDKey, "task-9")
	log.WithContext(ctx).Info("lead assigned")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "lead assigned", line["msg"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "task-9", line["task_id"])
	assert.NotContains(t, line, "user_id")
}

func TestSideEffectFailedIsWarning(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	log.SideEffectFailed("followups.Schedule", "notify", errors.New("bus closed"), "userId", "u-1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "notify", line["step"])
	assert.Equal(t, "bus closed", line["error"])
	assert.Equal(t, "u-1", line["userId"])
}

func TestDevelopmentLogsDebugAsText(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("Development", &buf).Debug("sweep tick")
	assert.Contains(t, buf.String(), "msg=\"sweep tick\"")
}
