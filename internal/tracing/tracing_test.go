package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"notify-gateway/internal/config"
)

func TestInit_NoEndpointIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), config.TracingConfig{ServiceName: "test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	_, span := Tracer().Start(context.Background(), "noop")
	defer span.End()
	assert.False(t, span.SpanContext().IsValid())
}

func TestInit_InstallsTraceContextPropagator(t *testing.T) {
	_, err := Init(context.Background(), config.TracingConfig{ServiceName: "test"})
	require.NoError(t, err)

	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
}
