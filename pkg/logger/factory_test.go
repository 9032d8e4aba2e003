package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entitledhq/entitled/pkg/logger"
)

type eventIDKey struct{}

func TestNew_JSONOutputWithDomainAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithFormat(logger.FormatJSON),
		logger.WithOutput(&buf),
		logger.WithAttr(slog.String("service", "entitled")),
	)

	log.Info("access denied",
		logger.AccountID("acc_1"),
		logger.Reason("trial_expired"),
		logger.Error(errors.New("boom")),
	)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "entitled", record["service"])
	assert.Equal(t, "acc_1", record["account_id"])
	assert.Equal(t, "trial_expired", record["reason"])
	assert.Equal(t, "boom", record["error"])
}

func TestNew_ContextValueExtractor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithFormat(logger.FormatJSON),
		logger.WithOutput(&buf),
		logger.WithContextValue("event_id", eventIDKey{}),
	)

	ctx := context.WithValue(context.Background(), eventIDKey{}, "evt_42")
	log.InfoContext(ctx, "processing")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "evt_42", record["event_id"])
}

func TestError_NilReturnsEmptyAttr(t *testing.T) {
	t.Parallel()
	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
	assert.True(t, logger.AccountID(nil).Equal(slog.Attr{}))
}
