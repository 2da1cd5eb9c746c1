// Package httpdispatch implements the HTTP client collaborator that carries
// translated invocation requests to the backend.
package httpdispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/capbridge/capbridge/internal/capability"
)

const instrumentationName = "github.com/capbridge/capbridge/internal/adapter/outbound/httpdispatch"

// Dispatcher implements capability.Dispatcher on top of net/http. Connection
// pooling and timeouts are the injected client's concern; the dispatcher
// itself never retries.
type Dispatcher struct {
	client  *http.Client
	logger  *slog.Logger
	tracer  trace.Tracer
	counter metric.Int64Counter
}

// New creates a Dispatcher around the given HTTP client.
func New(client *http.Client, logger *slog.Logger) *Dispatcher {
	if client == nil {
		client = http.DefaultClient
	}
	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"capbridge.dispatch.requests",
		metric.WithDescription("Outbound backend requests issued by the dispatcher."))
	if err != nil {
		logger.Warn("Failed to create dispatch counter, metrics disabled.", slog.Any("error", err))
	}
	return &Dispatcher{
		client:  client,
		logger:  logger.With("component", "http_dispatcher"),
		tracer:  otel.Tracer(instrumentationName),
		counter: counter,
	}
}

// Dispatch executes one outbound request and returns the raw response. A
// returned error always means the round trip itself failed; HTTP status
// interpretation belongs to the invocation translator.
func (d *Dispatcher) Dispatch(ctx context.Context, req capability.Request) (capability.Response, error) {
	log := d.logger.With(slog.String("method", string(req.Method)), slog.String("url", req.URL))

	ctx, span := d.tracer.Start(ctx, "dispatch",
		trace.WithAttributes(
			attribute.String("http.request.method", string(req.Method)),
			attribute.String("url.full", req.URL)))
	defer span.End()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, string(req.Method), req.URL, body)
	if err != nil {
		log.Error("Failed to create HTTP request.", slog.Any("error", err))
		return capability.Response{}, fmt.Errorf("creating request: %w", err)
	}
	for key, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if req.ContentType != "" && len(req.Body) > 0 {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	if d.counter != nil {
		d.counter.Add(ctx, 1, metric.WithAttributes(attribute.String("http.request.method", string(req.Method))))
	}

	log.Debug("Dispatching request.", slog.Int("body_bytes", len(req.Body)))
	resp, err := d.client.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		log.Warn("Request failed.", slog.Any("error", err))
		return capability.Response{}, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		log.Error("Failed to read response body.", slog.Any("error", err))
		return capability.Response{}, fmt.Errorf("reading response body: %w", err)
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	log.Debug("Received response.", slog.Int("status", resp.StatusCode), slog.Int("body_bytes", len(respBody)))
	return capability.Response{
		Status:  resp.StatusCode,
		Headers: resp.Header,
		Body:    respBody,
	}, nil
}
