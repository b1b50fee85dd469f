package labeling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/angeloszaimis/label-gateway/internal/endpoint"
	"github.com/angeloszaimis/label-gateway/internal/metrics"
)

// maxResponseBytes caps how much of an upstream body is buffered.
const maxResponseBytes = 32 << 20

// Selector hands out the endpoint for the next request.
type Selector interface {
	SelectEndpoint() *endpoint.Endpoint
}

type Forwarder struct {
	logger   *slog.Logger
	selector Selector
	client   *http.Client
	path     string
	events   chan<- metrics.MetricEvent
}

// Result is a successful forward: the endpoint that answered and its body.
type Result struct {
	Endpoint   *endpoint.Endpoint
	StatusCode int
	Body       json.RawMessage
}

// NewClient returns the pooled HTTP client used for upstream calls. A zero
// timeout leaves the call bounded only by the transport defaults.
func NewClient(timeout time.Duration) *http.Client {
	client := cleanhttp.DefaultPooledClient()
	client.Timeout = timeout
	return client
}

// NewForwarder creates a Forwarder posting to path on each selected
// endpoint. events may be nil.
func NewForwarder(logger *slog.Logger, selector Selector, client *http.Client, path string, events chan<- metrics.MetricEvent) *Forwarder {
	return &Forwarder{
		logger:   logger,
		selector: selector,
		client:   client,
		path:     path,
		events:   events,
	}
}

// Forward validates req, selects an endpoint and relays the labeling call.
//
// Cancellation of ctx is not propagated to the upstream call; a labeling
// request that reached an endpoint runs to completion even if the client
// goes away.
func (f *Forwarder) Forward(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req = req.withDefaults()

	chosen := f.selector.SelectEndpoint()
	target := chosen.Resolve(f.path)

	metrics.Send(f.events, metrics.MetricEvent{
		Type:     metrics.EventEndpointSelected,
		Endpoint: chosen.String(),
	})

	body, contentType, err := encodeMultipart(req)
	if err != nil {
		return nil, f.fail(chosen, 0, 0, fmt.Errorf("encode multipart body: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodPost, target, body)
	if err != nil {
		return nil, f.fail(chosen, 0, 0, fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	f.logger.Info("Forwarding labeling request",
		slog.String("endpoint", chosen.String()),
		slog.String("target", target),
		slog.String("content_type", req.ContentType),
		slog.Int("image_bytes", len(req.Image)),
		slog.String("box_threshold", req.BoxThreshold),
		slog.String("text_threshold", req.TextThreshold))

	start := time.Now()
	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, f.fail(chosen, 0, time.Since(start), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	duration := time.Since(start)
	if err != nil {
		return nil, f.fail(chosen, resp.StatusCode, duration, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, f.fail(chosen, resp.StatusCode, duration, fmt.Errorf("unexpected status: %s", snippet(raw)))
	}

	if !json.Valid(raw) {
		return nil, f.fail(chosen, resp.StatusCode, duration, fmt.Errorf("invalid JSON body: %s", snippet(raw)))
	}

	metrics.Send(f.events, metrics.MetricEvent{
		Type:       metrics.EventForwardCompleted,
		Endpoint:   chosen.String(),
		Duration:   duration,
		StatusCode: resp.StatusCode,
		Success:    true,
	})

	f.logger.Info("Labeling request completed",
		slog.String("endpoint", chosen.String()),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", duration))

	return &Result{
		Endpoint:   chosen,
		StatusCode: resp.StatusCode,
		Body:       json.RawMessage(raw),
	}, nil
}

func (f *Forwarder) fail(chosen *endpoint.Endpoint, status int, duration time.Duration, cause error) error {
	upstreamErr := &UpstreamError{
		Endpoint:   chosen.String(),
		StatusCode: status,
		Err:        cause,
	}

	f.logger.Error("Labeling request failed",
		slog.String("endpoint", chosen.String()),
		slog.Int("status", status),
		slog.Duration("duration", duration),
		slog.Any("err", upstreamErr))

	metrics.Send(f.events, metrics.MetricEvent{
		Type:       metrics.EventForwardCompleted,
		Endpoint:   chosen.String(),
		Duration:   duration,
		StatusCode: status,
		Success:    false,
	})

	return upstreamErr
}

func encodeMultipart(req Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, imageFilename))
	header.Set("Content-Type", req.ContentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}

	if _, err := part.Write(req.Image); err != nil {
		return nil, "", err
	}

	fields := []struct{ name, value string }{
		{"text_prompt", req.Prompt},
		{"box_threshold", req.BoxThreshold},
		{"text_threshold", req.TextThreshold},
	}
	for _, field := range fields {
		if err := writer.WriteField(field.name, field.value); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

// snippet trims an upstream body for log output without splitting a rune.
func snippet(body []byte) string {
	const limit = 256
	if len(body) <= limit {
		return string(body)
	}

	cut := limit
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]) + "..."
}
