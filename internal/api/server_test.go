package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rwandaorbitguard/orbit-guard/internal/api"
	"github.com/rwandaorbitguard/orbit-guard/internal/events"
	"github.com/rwandaorbitguard/orbit-guard/internal/observability"
	"github.com/rwandaorbitguard/orbit-guard/internal/prediction"
	"github.com/rwandaorbitguard/orbit-guard/internal/prediction/predictiontest"
	"github.com/rwandaorbitguard/orbit-guard/internal/scene"
	"github.com/rwandaorbitguard/orbit-guard/internal/session"
	"github.com/rwandaorbitguard/orbit-guard/model"
)

type fixture struct {
	srv       *httptest.Server
	predict   *predictiontest.Server
	publisher *events.MemoryPublisher
	metrics   *observability.Collector
	scene     *observability.SceneCollector
}

func newFixture(t *testing.T, opts ...api.Option) *fixture {
	t.Helper()
	dir, err := session.NewDirectory(bcrypt.MinCost, session.DefaultAccounts()...)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	sceneMetrics, err := observability.NewSceneCollector(reg)
	require.NoError(t, err)
	httpMetrics, err := observability.NewCollector(reg)
	require.NoError(t, err)
	factory := func(ctx context.Context, u session.User) (*scene.Scene, error) {
		return scene.New(scene.Config{
			Name:       u.ID,
			Satellites: 6,
			Debris:     6,
			Collisions: 4,
			Seed:       7,
			Tick:       5 * time.Millisecond,
		})
	}
	manager := session.NewManager(dir, factory)

	f := &fixture{
		predict:   predictiontest.NewServer(),
		publisher: &events.MemoryPublisher{},
		metrics:   httpMetrics,
		scene:     sceneMetrics,
	}
	t.Cleanup(f.predict.Close)

	client := prediction.NewClient(f.predict.URL)
	base := []api.Option{
		api.WithMetrics(f.metrics),
		api.WithSceneMetrics(sceneMetrics),
		api.WithPublisher(f.publisher),
		api.WithPredictRateLimit(100, 100),
	}
	s := api.NewServer(manager, client, append(base, opts...)...)
	f.srv = httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		f.srv.Close()
		s.Shutdown(context.Background())
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.srv.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *fixture) login(t *testing.T) string {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email":    "student@rwandaorbitguard.rw",
		"password": "student123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sess struct {
		Token string       `json:"token"`
		User  session.User `json:"user"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sess))
	require.NotEmpty(t, sess.Token)
	assert.Equal(t, "Alex Student", sess.User.Name)
	return sess.Token
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(api.RequestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	f := newFixture(t)
	req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(api.RequestIDHeader, "req-42")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "req-42", resp.Header.Get(api.RequestIDHeader))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": "student@rwandaorbitguard.rw", "password": "nope",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "invalid email or password", body["error"])
}

func TestEndpointsRequireSession(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/api/overview", "/api/satellites", "/api/scene"} {
		resp := f.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
		resp = f.do(t, http.MethodGet, path, "not-a-token", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestListsAndFilters(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	sats := decode[[]model.Satellite](t, f.do(t, http.MethodGet, "/api/satellites", token, nil))
	require.Len(t, sats, 6)

	want := sats[0].Type
	filtered := decode[[]model.Satellite](t, f.do(t, http.MethodGet, "/api/satellites?type="+string(want), token, nil))
	require.NotEmpty(t, filtered)
	for _, s := range filtered {
		assert.Equal(t, want, s.Type)
	}

	debris := decode[[]model.Debris](t, f.do(t, http.MethodGet, "/api/debris?size=small,medium,large", token, nil))
	assert.Len(t, debris, 6)

	cols := decode[[]model.CollisionPrediction](t, f.do(t, http.MethodGet, "/api/collisions", token, nil))
	assert.Len(t, cols, 4)

	resp := f.do(t, http.MethodGet, "/api/collisions?minDistance=abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	refreshed := decode[[]model.CollisionPrediction](t, f.do(t, http.MethodPost, "/api/collisions/refresh", token, nil))
	assert.Len(t, refreshed, 4)
}

func TestOverview(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)
	resp := f.do(t, http.MethodGet, "/api/overview", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.NotEmpty(t, body)
}

func TestOrbitPath(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)
	sats := decode[[]model.Satellite](t, f.do(t, http.MethodGet, "/api/satellites", token, nil))

	path := decode[scene.OrbitPath](t, f.do(t, http.MethodGet, "/api/orbits/"+sats[0].ID, token, nil))
	assert.Equal(t, sats[0].ID, path.ObjectID)
	assert.NotEmpty(t, path.Points)

	resp := f.do(t, http.MethodGet, "/api/orbits/nope", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSceneToggles(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	snap := decode[scene.Snapshot](t, f.do(t, http.MethodGet, "/api/scene?showDebris=false&showOrbits=false", token, nil))
	assert.Len(t, snap.Satellites, 6)
	assert.Empty(t, snap.Debris)
	assert.Empty(t, snap.OrbitPaths)
	assert.Len(t, snap.Collisions, 4)

	resp := f.do(t, http.MethodGet, "/api/scene?showDebris=maybe", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPredict(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	// Strings and numbers are both accepted.
	resp := f.do(t, http.MethodPost, "/api/predict", token, map[string]any{
		"x_start": "1000", "y_start": 1000, "z_start": "1000",
		"Vx_start": -0.907527, "Vy_start": "-3.804930", "Vz_start": -2.024133,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[api.PredictResponse](t, resp)
	assert.Equal(t, prediction.StatusRedAlert, out.Status)
	assert.Equal(t, model.SeverityCritical, out.Severity)

	msgs := f.publisher.Messages(events.ChannelPredictions)
	require.Len(t, msgs, 1)
}

func TestPredictErrors(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	resp := f.do(t, http.MethodPost, "/api/predict", token, map[string]any{"x_start": "1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, prediction.MissingFieldsMessage, decode[map[string]string](t, resp)["error"])

	f.predict.FailWith(http.StatusServiceUnavailable)
	resp = f.do(t, http.MethodPost, "/api/predict", token, map[string]any{
		"x_start": 1, "y_start": 2, "z_start": 3, "Vx_start": 4, "Vy_start": 5, "Vz_start": 6,
	})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "HTTP error! status: 503", decode[map[string]string](t, resp)["error"])
	assert.Empty(t, f.publisher.Messages(events.ChannelPredictions))
}

func TestPredictRateLimited(t *testing.T) {
	f := newFixture(t, api.WithPredictRateLimit(0.001, 1))
	token := f.login(t)
	body := map[string]any{
		"x_start": 1, "y_start": 2, "z_start": 3, "Vx_start": 4, "Vy_start": 5, "Vz_start": 6,
	}
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/predict", token, body).StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, f.do(t, http.MethodPost, "/api/predict", token, body).StatusCode)
}

func TestInvalidPredictDoesNotSpendRateBudget(t *testing.T) {
	f := newFixture(t, api.WithPredictRateLimit(0.001, 1))
	token := f.login(t)
	for i := 0; i < 3; i++ {
		resp := f.do(t, http.MethodPost, "/api/predict", token, map[string]any{"x_start": "1"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}
	body := map[string]any{
		"x_start": 1, "y_start": 2, "z_start": 3, "Vx_start": 4, "Vy_start": 5, "Vz_start": 6,
	}
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/predict", token, body).StatusCode)
}

func TestLogoutEndsSession(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/api/logout", token, nil).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/overview", token, nil).StatusCode)
}

func TestHTTPMetricsUseRoutePattern(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)
	f.do(t, http.MethodGet, "/api/orbits/nope", token, nil)

	got := testutil.ToFloat64(f.metrics.HTTPRequests.WithLabelValues("GET /api/orbits/{id}", http.MethodGet, "404"))
	assert.Equal(t, 1.0, got)
}

func TestStreamPushesSnapshots(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/api/stream?showOrbits=false&token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var first, second scene.Snapshot
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))
	assert.Len(t, first.Satellites, 6)
	assert.Empty(t, second.OrbitPaths)
	assert.GreaterOrEqual(t, second.Time, first.Time)

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(f.scene.StreamClients) == 1
	}, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(f.scene.StreamClients) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStreamClosesWhenSessionEnds(t *testing.T) {
	cases := map[string]func(t *testing.T, f *fixture, token string){
		"logout": func(t *testing.T, f *fixture, token string) {
			assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/api/logout", token, nil).StatusCode)
		},
		"login elsewhere": func(t *testing.T, f *fixture, _ string) {
			f.login(t)
		},
	}
	for name, end := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			token := f.login(t)

			url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/api/stream?token=" + token
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			require.NoError(t, err)
			defer conn.Close()

			require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
			var snap scene.Snapshot
			require.NoError(t, conn.ReadJSON(&snap))

			end(t, f, token)

			for {
				if _, _, err = conn.ReadMessage(); err != nil {
					break
				}
			}
			assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
			assert.Eventually(t, func() bool {
				return testutil.ToFloat64(f.scene.StreamClients) == 0
			}, 2*time.Second, 10*time.Millisecond)
		})
	}
}
