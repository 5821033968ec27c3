package middleware

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func newTracedApp(t *testing.T) *fiber.App {
	t.Helper()

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	app := fiber.New()
	app.Use(Tracing())
	return app
}

func TestTracing_AssignsTraceID(t *testing.T) {
	app := newTracedApp(t)

	var localTraceID string
	app.Get("/ping", func(c *fiber.Ctx) error {
		localTraceID, _ = c.Locals("traceID").(string)
		return c.SendString("pong")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	resp.Body.Close()

	header := resp.Header.Get("X-Trace-ID")
	require.Len(t, header, 32)
	assert.NotEqual(t, "00000000000000000000000000000000", header)
	assert.Equal(t, header, localTraceID, "handler sees the same trace ID the client gets")
}

func TestTracing_HonorsPropagatedContext(t *testing.T) {
	app := newTracedApp(t)
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	const upstreamTrace = "4bf92f3577b34da6a3ce929d0e0e4736"
	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("traceparent", "00-"+upstreamTrace+"-00f067aa0ba902b7-01")

	resp, err := app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, upstreamTrace, resp.Header.Get("X-Trace-ID"),
		"request joins the caller's trace instead of starting a new one")
}
