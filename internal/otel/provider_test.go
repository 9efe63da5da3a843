package otel

import (
	"context"
	"testing"

	"github.com/mrzor/ci-telemetry/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitProvider(t *testing.T) {
	cfg := &config.OTELConfig{
		ServiceName:        "ci-telemetry-test",
		ResourceAttributes: "ci.provider=github",
		ExporterEndpoint:   "127.0.0.1:1",
	}

	tp, err := InitProvider(context.Background(), cfg, "v0.0.0-test", nil)
	require.NoError(t, err)
	require.NotNil(t, tp)

	// Nothing was recorded, so shutdown does not need to reach the endpoint.
	assert.NoError(t, ShutdownProvider(context.Background(), tp))
}

func TestShutdownProvider_Nil(t *testing.T) {
	assert.NoError(t, ShutdownProvider(context.Background(), nil))
}
