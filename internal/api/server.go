// Package api serves the dashboard's HTTP JSON API and live position stream.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/rwandaorbitguard/orbit-guard/internal/events"
	"github.com/rwandaorbitguard/orbit-guard/internal/logging"
	"github.com/rwandaorbitguard/orbit-guard/internal/observability"
	"github.com/rwandaorbitguard/orbit-guard/internal/prediction"
	"github.com/rwandaorbitguard/orbit-guard/internal/session"
)

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-ID"

// Server wires sessions, predictions and scenes to HTTP handlers.
type Server struct {
	sessions     *session.Manager
	predictor    prediction.Predictor
	limiter      *ClientRateLimiter
	log          logging.Logger
	metrics      *observability.Collector
	sceneMetrics *observability.SceneCollector
	publisher    events.Publisher
	upgrader     websocket.Upgrader
	clock        func() time.Time

	mu         sync.Mutex
	submitters map[string]*prediction.Submitter
}

// Option customises a Server.
type Option func(*Server)

// WithLogger sets the base logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics records request metrics.
func WithMetrics(c *observability.Collector) Option {
	return func(s *Server) { s.metrics = c }
}

// WithSceneMetrics tracks stream client counts.
func WithSceneMetrics(c *observability.SceneCollector) Option {
	return func(s *Server) { s.sceneMetrics = c }
}

// WithPublisher publishes prediction outcomes.
func WithPublisher(p events.Publisher) Option {
	return func(s *Server) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithPredictRateLimit sets the per-client prediction limit.
func WithPredictRateLimit(r rate.Limit, burst int) Option {
	return func(s *Server) { s.limiter = NewClientRateLimiter(r, burst, 10*time.Minute) }
}

// WithClock overrides the clock used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.clock = now }
}

// NewServer constructs a Server.
func NewServer(sessions *session.Manager, predictor prediction.Predictor, opts ...Option) *Server {
	s := &Server{
		sessions:   sessions,
		predictor:  predictor,
		limiter:    NewClientRateLimiter(1, 3, 10*time.Minute),
		log:        logging.Noop(),
		publisher:  events.Noop(),
		clock:      time.Now,
		submitters: make(map[string]*prediction.Submitter),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.Handle("POST /api/logout", s.authenticated(s.handleLogout))
	mux.Handle("GET /api/overview", s.authenticated(s.handleOverview))
	mux.Handle("GET /api/satellites", s.authenticated(s.handleSatellites))
	mux.Handle("GET /api/debris", s.authenticated(s.handleDebris))
	mux.Handle("GET /api/collisions", s.authenticated(s.handleCollisions))
	mux.Handle("POST /api/collisions/refresh", s.authenticated(s.handleRefreshCollisions))
	mux.Handle("GET /api/orbits/{id}", s.authenticated(s.handleOrbit))
	mux.Handle("GET /api/scene", s.authenticated(s.handleScene))
	mux.Handle("POST /api/predict", s.authenticated(s.handlePredict))
	mux.Handle("GET /api/stream", s.authenticated(s.handleStream))

	return s.withRequestContext(s.metrics.HTTPMiddleware(mux))
}

// withRequestContext attaches a request id, a request-scoped logger and a
// server span to every request.
func (s *Server) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := r.Header.Get(RequestIDHeader); id != "" {
			ctx = logging.ContextWithRequestID(ctx, id)
		}
		ctx, reqLog := logging.WithRequestLogger(ctx, s.log)
		ctx = logging.ContextWithLogger(ctx, reqLog)
		w.Header().Set(RequestIDHeader, logging.RequestIDFromContext(ctx))

		ctx, span := observability.Tracer().Start(ctx, "http "+r.Method)
		defer span.End()

		r = r.WithContext(ctx)
		next.ServeHTTP(w, r)
		span.SetAttributes(
			attribute.String("http.route", r.Pattern),
			attribute.String("http.method", r.Method),
		)
	})
}

// authenticated resolves the caller's session and puts it on the context.
// The token comes from the Authorization header, or the token query
// parameter for websocket clients that cannot set headers.
func (s *Server) authenticated(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			writeError(r.Context(), w, session.ErrNoSession)
			return
		}
		sess, err := s.sessions.Get(token)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		ctx := logging.WithSessionLogger(r.Context(), s.log, sess.User.Email, sess.User.ID)
		h(w, r.WithContext(session.ContextWithSession(ctx, sess)))
	})
}

func (s *Server) submitter(token string) *prediction.Submitter {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submitters[token]
	if !ok {
		// Sessions replaced by a later login never reach logout.
		for tok := range s.submitters {
			if _, err := s.sessions.Get(tok); err != nil {
				delete(s.submitters, tok)
			}
		}
		sub = prediction.NewSubmitter(s.predictor)
		s.submitters[token] = sub
	}
	return sub
}

func (s *Server) dropSubmitter(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.submitters, token)
}

// Shutdown ends every session.
func (s *Server) Shutdown(context.Context) {
	s.sessions.Close()
}
