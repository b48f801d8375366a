package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/contest-communication/config"
)

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), config.TracingConfig{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitSentryDisabled(t *testing.T) {
	enabled, err := InitSentry(config.SentryConfig{}, "test")
	require.NoError(t, err)
	assert.False(t, enabled)
}
