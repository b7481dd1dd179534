package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogAuditLogger_Record(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	auditLogger := NewLogger(logger)
	auditLogger.Record(context.Background(), "secret_rotate", "0190b5e7-0000-7000-8000-000000000000", OutcomeSuccess)

	var event map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))

	assert.Equal(t, "audit", event["log_type"])
	assert.Equal(t, "secret_rotate", event["operation"])
	assert.Equal(t, "0190b5e7-0000-7000-8000-000000000000", event["secret_id"])
	assert.Equal(t, "success", event["outcome"])
	assert.NotEmpty(t, event["timestamp"])
}

func TestNopLogger(t *testing.T) {
	// Must not panic with a zero value.
	NopLogger{}.Record(context.Background(), "secret_delete", "", OutcomeError)
}
