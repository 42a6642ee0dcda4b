package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"dairy-service/internal/config"
)

func newRecordingTelemetry(t *testing.T) (*otelTelemetry, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return newOTel(tp, zap.NewNop().Sugar()), recorder
}

func TestOTel_CaptureExceptionStartsSpanWhenNoneActive(t *testing.T) {
	tel, recorder := newRecordingTelemetry(t)

	tel.CaptureException(context.Background(), errors.New("stripe unavailable"), attribute.Int64("order_id", 42))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "exception", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	require.NotEmpty(t, spans[0].Events())
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

func TestOTel_CaptureExceptionUsesActiveSpan(t *testing.T) {
	tel, recorder := newRecordingTelemetry(t)

	ctx, span := tel.tracer.Start(context.Background(), "POST /api/orders")
	tel.CaptureException(ctx, errors.New("boom"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "POST /api/orders", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestOTel_CaptureMessageAddsEvent(t *testing.T) {
	tel, recorder := newRecordingTelemetry(t)

	ctx, span := tel.tracer.Start(context.Background(), "webhook")
	tel.CaptureMessage(ctx, "payment reconciled", attribute.String("payment_id", "pi_1"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "payment reconciled", spans[0].Events()[0].Name)
}

func TestNew_DisabledReturnsNop(t *testing.T) {
	tel, err := New(context.Background(), config.Telemetry{Enabled: false}, "development", zap.NewNop().Sugar())
	require.NoError(t, err)

	_, isNop := tel.(*nopTelemetry)
	assert.True(t, isNop)

	tel.CaptureException(context.Background(), errors.New("ignored"))
	assert.NoError(t, tel.Shutdown(context.Background()))
}
