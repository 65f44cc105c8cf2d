package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/rwandaorbitguard/orbit-guard/internal/logging"
	"github.com/rwandaorbitguard/orbit-guard/internal/observability"
)

// HTTPClient abstracts HTTP operations for testability. *http.Client
// satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Recorder receives one observation per prediction call.
type Recorder interface {
	ObservePrediction(outcome string, d time.Duration)
}

// HTTPError reports a non-2xx answer from the prediction service.
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string { return fmt.Sprintf("HTTP error! status: %d", e.StatusCode) }

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// Client posts state vectors to the prediction service. Calls are never
// retried.
type Client struct {
	endpoint string
	http     HTTPClient
	log      logging.Logger
	metrics  Recorder
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(c HTTPClient) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithLogger sets the client's logger.
func WithLogger(l logging.Logger) ClientOption {
	return func(cl *Client) {
		if l != nil {
			cl.log = l
		}
	}
}

// WithRecorder reports call outcomes and latency to r.
func WithRecorder(r Recorder) ClientOption {
	return func(cl *Client) { cl.metrics = r }
}

// NewClient returns a client for endpoint, or DefaultEndpoint when empty.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 30 * time.Second},
		log:      logging.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the URL requests are sent to.
func (c *Client) Endpoint() string { return c.endpoint }

// Predict sends a single POST and decodes the answer. Any transport error,
// non-2xx status, undecodable body or unknown status wraps
// ErrPredictionFailed.
func (c *Client) Predict(ctx context.Context, in Request) (Response, error) {
	ctx, span := observability.Tracer().Start(ctx, "prediction.Predict", trace.WithAttributes(
		observability.AttrPredictionEndpoint.String(c.endpoint),
		observability.AttrPositionNormM.Float64(in.Position().Norm()),
		observability.AttrSpeedMPS.Float64(in.Velocity().Norm()),
	))
	defer span.End()

	start := time.Now()
	resp, err := c.do(ctx, in)
	elapsed := time.Since(start)

	log := logging.FromContext(ctx, c.log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.observe("error", elapsed)
		log.Warn(ctx, "prediction request failed",
			logging.String("endpoint", c.endpoint),
			logging.Duration("elapsed", elapsed),
			logging.Err(err),
		)
		return Response{}, err
	}

	span.SetAttributes(
		observability.AttrPredictionStatus.String(string(resp.Status)),
		observability.AttrMissDistanceKm.Float64(resp.MissDistanceKm),
		observability.AttrSeverity.String(string(resp.Severity())),
	)
	c.observe(string(resp.Status), elapsed)
	log.Info(ctx, "prediction received",
		logging.String("status", string(resp.Status)),
		logging.Float64("miss_distance_km", resp.MissDistanceKm),
		logging.Duration("elapsed", elapsed),
	)
	return resp, nil
}

func (c *Client) do(ctx context.Context, in Request) (Response, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return Response{}, fmt.Errorf("%w: encode request: %v", ErrPredictionFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("%w: build request: %v", ErrPredictionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	httpResp, err := c.http.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrPredictionFailed, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return Response{}, fmt.Errorf("%w: %w", ErrPredictionFailed, &HTTPError{StatusCode: httpResp.StatusCode})
	}

	var out Response
	if err := json.NewDecoder(io.LimitReader(httpResp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("%w: decode response: %v", ErrPredictionFailed, err)
	}
	if !out.Status.Valid() {
		return Response{}, fmt.Errorf("%w: unknown status %q", ErrPredictionFailed, out.Status)
	}
	return out, nil
}

func (c *Client) observe(outcome string, d time.Duration) {
	if c.metrics != nil {
		c.metrics.ObservePrediction(outcome, d)
	}
}
