package prediction_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwandaorbitguard/orbit-guard/internal/prediction"
	"github.com/rwandaorbitguard/orbit-guard/internal/prediction/predictiontest"
)

type recorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recorder) ObservePrediction(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func TestClientDocumentedSamples(t *testing.T) {
	srv := predictiontest.NewServer()
	defer srv.Close()
	rec := &recorder{}
	client := prediction.NewClient(srv.URL, prediction.WithRecorder(rec))

	red, err := client.Predict(context.Background(), predictiontest.RedAlertSample)
	require.NoError(t, err)
	assert.Equal(t, prediction.StatusRedAlert, red.Status)

	green, err := client.Predict(context.Background(), predictiontest.GreenLightSample)
	require.NoError(t, err)
	assert.Equal(t, prediction.StatusGreenLight, green.Status)
	assert.Equal(t, predictiontest.SafetyThresholdKm, green.SafetyThresholdKm)

	assert.Equal(t, []prediction.Request{predictiontest.RedAlertSample, predictiontest.GreenLightSample}, srv.Requests())
	assert.Equal(t, []string{"RED ALERT", "GREEN LIGHT"}, rec.outcomes)
}

type captureClient struct {
	body   []byte
	header http.Header
	resp   *http.Response
	err    error
	calls  int
}

func (c *captureClient) Do(req *http.Request) (*http.Response, error) {
	c.calls++
	c.header = req.Header.Clone()
	if req.Body != nil {
		c.body, _ = io.ReadAll(req.Body)
	}
	return c.resp, c.err
}

func jsonResponse(code int, body string) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(body)), Header: make(http.Header)}
}

func TestClientSendsDocumentedFieldNames(t *testing.T) {
	hc := &captureClient{resp: jsonResponse(200, `{"status":"GREEN LIGHT","miss_distance_km":12.5,"safety_threshold_km":5,"model_rmse_meters":3}`)}
	client := prediction.NewClient("http://predict.invalid/predict", prediction.WithHTTPClient(hc))

	resp, err := client.Predict(context.Background(), prediction.Request{X: 1, Y: 2, Z: 3, Vx: 4, Vy: 5, Vz: 6})
	require.NoError(t, err)
	assert.Equal(t, 12.5, resp.MissDistanceKm)
	assert.Equal(t, "application/json", hc.header.Get("Content-Type"))

	var sent map[string]float64
	require.NoError(t, json.Unmarshal(hc.body, &sent))
	assert.Equal(t, map[string]float64{
		"x_start": 1, "y_start": 2, "z_start": 3,
		"Vx_start": 4, "Vy_start": 5, "Vz_start": 6,
	}, sent)
}

func TestClientFailuresAreNotRetried(t *testing.T) {
	cases := map[string]*captureClient{
		"http 500":       {resp: jsonResponse(500, "boom")},
		"bad json":       {resp: jsonResponse(200, "{not json")},
		"unknown status": {resp: jsonResponse(200, `{"status":"YELLOW"}`)},
		"transport":      {err: errors.New("connection refused")},
	}
	for name, hc := range cases {
		t.Run(name, func(t *testing.T) {
			client := prediction.NewClient("http://predict.invalid/predict", prediction.WithHTTPClient(hc))
			_, err := client.Predict(context.Background(), predictiontest.RedAlertSample)
			require.ErrorIs(t, err, prediction.ErrPredictionFailed)
			assert.Equal(t, 1, hc.calls)
		})
	}
}

func TestClientReportsHTTPStatus(t *testing.T) {
	srv := predictiontest.NewServer()
	defer srv.Close()
	srv.FailWith(http.StatusServiceUnavailable)

	_, err := prediction.NewClient(srv.URL).Predict(context.Background(), predictiontest.GreenLightSample)
	require.ErrorIs(t, err, prediction.ErrPredictionFailed)
	var he *prediction.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, 503, he.StatusCode)
	assert.Equal(t, "HTTP error! status: 503", prediction.Message(err))
	assert.Len(t, srv.Requests(), 1)
}

func TestSubmitterValidatesBeforeSending(t *testing.T) {
	srv := predictiontest.NewServer()
	defer srv.Close()
	sub := prediction.NewSubmitter(prediction.NewClient(srv.URL))

	_, err := sub.Submit(context.Background(), prediction.Form{X: "1", Y: "2"})
	require.ErrorIs(t, err, prediction.ErrMissingField)
	assert.Empty(t, srv.Requests(), "invalid input must not reach the service")

	resp, err := sub.Submit(context.Background(), prediction.Form{
		X: "-8843.131454", Y: "13138.221690", Z: "100000.0",
		Vx: "-0.907527", Vy: "-3.804930", Vz: "-2.024133",
	})
	require.NoError(t, err)
	assert.Equal(t, prediction.StatusGreenLight, resp.Status)
}

func TestSubmitterAllowsOneInFlight(t *testing.T) {
	srv := predictiontest.NewServer()
	defer srv.Close()
	release := srv.Hold()
	defer release()

	sub := prediction.NewSubmitter(prediction.NewClient(srv.URL))
	form := prediction.Form{X: "1000", Y: "1000", Z: "1000", Vx: "-0.907527", Vy: "-3.804930", Vz: "-2.024133"}

	done := make(chan error, 1)
	go func() {
		_, err := sub.Submit(context.Background(), form)
		done <- err
	}()

	require.Eventually(t, sub.Pending, time.Second, time.Millisecond)
	_, err := sub.Submit(context.Background(), form)
	require.ErrorIs(t, err, prediction.ErrRequestPending)

	release()
	require.NoError(t, <-done)
	assert.False(t, sub.Pending())
	assert.Len(t, srv.Requests(), 1)
}

func TestClassifyDistanceRule(t *testing.T) {
	near := predictiontest.Classify(prediction.Request{X: 100, Y: 0, Z: 0})
	assert.Equal(t, prediction.StatusRedAlert, near.Status)
	far := predictiontest.Classify(prediction.Request{X: 42164, Y: 0, Z: 0})
	assert.Equal(t, prediction.StatusGreenLight, far.Status)
}
