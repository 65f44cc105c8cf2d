package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestUnaryInterceptorRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/orbitguard.v1.OrbitService/Overview"}

	_, err = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		time.Sleep(10 * time.Millisecond)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("interceptor handler returned error: %v", err)
	}

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("OrbitService", "Overview", "OK")); got != 1 {
		t.Fatalf("orbitguard_rpc_requests_total = %v, want 1", got)
	}

	if count := histogramSampleCount(t, reg, "orbitguard_rpc_request_duration_seconds", map[string]string{
		"service": "OrbitService",
		"method":  "Overview",
	}); count != 1 {
		t.Fatalf("orbitguard_rpc_request_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestUnaryInterceptorRecordsErrorCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/orbitguard.v1.OrbitService/Predict"}

	_, _ = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.InvalidArgument, "boom")
	})

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("OrbitService", "Predict", "InvalidArgument")); got != 1 {
		t.Fatalf("orbitguard_rpc_requests_total error label = %v, want 1", got)
	}
}

func TestHTTPMiddlewareUsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/orbits/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	h := collector.HTTPMiddleware(mux)

	for _, path := range []string{"/api/orbits/sat-1", "/api/orbits/sat-2", "/nope"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("GET /api/orbits/{id}", "GET", "404")); got != 2 {
		t.Fatalf("route counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("unmatched", "GET", "404")); got != 1 {
		t.Fatalf("unmatched counter = %v, want 1", got)
	}
}

func TestRegisterTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewSceneCollector(reg)
	if err != nil {
		t.Fatalf("NewSceneCollector: %v", err)
	}
	second, err := NewSceneCollector(reg)
	if err != nil {
		t.Fatalf("second NewSceneCollector: %v", err)
	}
	first.ObserveTick(time.Millisecond)
	second.ObserveTick(time.Millisecond)
	if got := testutil.ToFloat64(first.TicksTotal); got != 2 {
		t.Fatalf("shared tick counter = %v, want 2", got)
	}
}

func TestMetricsHandlerExposesSceneGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	scene, err := NewSceneCollector(reg)
	if err != nil {
		t.Fatalf("NewSceneCollector: %v", err)
	}
	scene.SetPopulation(50, 100)
	scene.SetCollisions(map[string]int{"critical": 3, "low": 7})
	scene.ObservePrediction("RED ALERT", 20*time.Millisecond)
	scene.AddStreamClients(2)
	scene.AddStreamClients(-1)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`orbitguard_tracked_objects{kind="satellite"} 50`,
		`orbitguard_tracked_objects{kind="debris"} 100`,
		`orbitguard_collision_predictions{severity="critical"} 3`,
		`orbitguard_predictions_total{outcome="RED ALERT"} 1`,
		`orbitguard_stream_clients 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in /metrics output:\n%s", want, body)
		}
	}
}

func TestNilSceneCollectorIsSafe(t *testing.T) {
	var c *SceneCollector
	c.ObserveTick(time.Millisecond)
	c.SetPopulation(1, 1)
	c.SetCollisions(map[string]int{"low": 1})
	c.ObservePrediction("error", time.Second)
	c.AddStreamClients(1)
}

func TestSplitMethod(t *testing.T) {
	cases := map[string][2]string{
		"":                                    {"unknown", "unknown"},
		"/orbitguard.v1.OrbitService/Predict": {"OrbitService", "Predict"},
		"Overview":                            {"unknown", "unknown"},
		"/svc/":                               {"svc", "unknown"},
	}
	for in, want := range cases {
		svc, m := SplitMethod(in)
		if svc != want[0] || m != want[1] {
			t.Fatalf("SplitMethod(%q) = %q, %q; want %q, %q", in, svc, m, want[0], want[1])
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
