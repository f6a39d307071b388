package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	t.Run("returns the attached logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))

		ctx := WithLogger(context.Background(), logger)
		require.Same(t, logger, FromContext(ctx))
	})

	t.Run("falls back to the default logger", func(t *testing.T) {
		var nilCtx context.Context
		assert.NotNil(t, FromContext(context.Background()))
		assert.NotNil(t, FromContext(nilCtx))
	})
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := With(WithLogger(context.Background(), logger), "id", "web")
	FromContext(ctx).Info("Started.")

	assert.Contains(t, buf.String(), "id=web")
	assert.Contains(t, buf.String(), "msg=Started.")
}
