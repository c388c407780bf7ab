package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetup_ExportsSpansOnShutdown(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()

	shutdown, err := Setup(ctx, Config{ServiceName: "cryptoapi-test", Tracing: true, Metrics: true, Writer: &buf})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(ctx, "list-cryptos")
	span.End()

	require.NoError(t, shutdown(ctx))
	assert.Contains(t, buf.String(), "list-cryptos")
	assert.Contains(t, buf.String(), "cryptoapi-test")

	// Calling shutdown twice is harmless.
	assert.NoError(t, shutdown(ctx))
}

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{ServiceName: "cryptoapi"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
