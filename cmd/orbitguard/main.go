package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/rwandaorbitguard/orbit-guard/internal/api"
	"github.com/rwandaorbitguard/orbit-guard/internal/config"
	"github.com/rwandaorbitguard/orbit-guard/internal/events"
	"github.com/rwandaorbitguard/orbit-guard/internal/logging"
	"github.com/rwandaorbitguard/orbit-guard/internal/observability"
	"github.com/rwandaorbitguard/orbit-guard/internal/prediction"
	"github.com/rwandaorbitguard/orbit-guard/internal/rpc"
	"github.com/rwandaorbitguard/orbit-guard/internal/scene"
	"github.com/rwandaorbitguard/orbit-guard/internal/session"
	"github.com/rwandaorbitguard/orbit-guard/model"
)

// referenceTLEs are tracked alongside the generated population of the
// default scene.
var referenceTLEs = []scene.ReferenceTLE{{
	ID:      "iss",
	Name:    "ISS (ZARYA)",
	Line1:   "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9993",
	Line2:   "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257767",
	Type:    model.SatelliteResearch,
	Country: "International",
}}

const shutdownTimeout = 5 * time.Second

// listeners holds pre-bound sockets. A nil metrics listener disables the
// metrics server.
type listeners struct {
	http    net.Listener
	grpc    net.Listener
	metrics net.Listener
}

func main() {
	log := logging.NewFromEnv()
	ctx := context.Background()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error(ctx, "invalid environment configuration", logging.Err(err))
		os.Exit(1)
	}
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	cfg.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])
	if err := cfg.Validate(); err != nil {
		log.Error(ctx, "invalid configuration", logging.Err(err))
		os.Exit(1)
	}

	tracingCfg := observability.TracingConfigFromEnv()
	tracingCfg.Deployment = observability.Deployment{
		PredictURL: cfg.PredictURL,
		Satellites: cfg.Satellites,
		Debris:     cfg.Debris,
		Collisions: cfg.Collisions,
		Tick:       cfg.Tick,
		TimeScale:  cfg.TimeScale,
	}
	shutdownTracing, err := observability.InitTracing(ctx, tracingCfg, log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdownTracing, log)

	lis, err := listen(cfg)
	if err != nil {
		log.Error(ctx, "failed to listen", logging.Err(err))
		os.Exit(1)
	}

	stopCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(stopCtx, cfg, log, lis); err != nil {
		log.Error(ctx, "server exited", logging.Err(err))
		os.Exit(1)
	}
}

func listen(cfg config.Config) (listeners, error) {
	var lis listeners
	var err error
	if lis.http, err = net.Listen("tcp", cfg.HTTPAddr); err != nil {
		return lis, fmt.Errorf("http %s: %w", cfg.HTTPAddr, err)
	}
	if cfg.GRPCAddr != "" {
		if lis.grpc, err = net.Listen("tcp", cfg.GRPCAddr); err != nil {
			return lis, fmt.Errorf("grpc %s: %w", cfg.GRPCAddr, err)
		}
	}
	if cfg.MetricsAddr != "" {
		if lis.metrics, err = net.Listen("tcp", cfg.MetricsAddr); err != nil {
			return lis, fmt.Errorf("metrics %s: %w", cfg.MetricsAddr, err)
		}
	}
	return lis, nil
}

// run serves until ctx is cancelled, then shuts everything down.
func run(ctx context.Context, cfg config.Config, log logging.Logger, lis listeners) error {
	reg := prometheus.NewRegistry()
	collector, err := observability.NewCollector(reg)
	if err != nil {
		return fmt.Errorf("metrics collector: %w", err)
	}
	sceneMetrics, err := observability.NewSceneCollector(reg)
	if err != nil {
		return fmt.Errorf("scene metrics: %w", err)
	}

	publisher, err := newPublisher(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	predictor := prediction.NewClient(cfg.PredictURL,
		prediction.WithHTTPClient(&http.Client{Timeout: cfg.PredictTimeout}),
		prediction.WithLogger(log),
		prediction.WithRecorder(sceneMetrics),
	)

	refs := referenceTLEs
	if cfg.TLEFile != "" {
		if refs, err = scene.LoadReferenceTLEFile(cfg.TLEFile); err != nil {
			return fmt.Errorf("reference TLEs %s: %w", cfg.TLEFile, err)
		}
		log.Info(ctx, "loaded reference TLEs", logging.String("path", cfg.TLEFile), logging.Int("count", len(refs)))
	}

	defaultScene, err := scene.New(cfg.Scene("default"),
		scene.WithLogger(log),
		scene.WithMetrics(sceneMetrics),
		scene.WithPublisher(publisher),
		scene.WithReferenceTLEs(refs...),
	)
	if err != nil {
		return fmt.Errorf("default scene: %w", err)
	}
	if err := defaultScene.Start(ctx); err != nil {
		return fmt.Errorf("start default scene: %w", err)
	}
	defer defaultScene.Stop()

	dir, err := session.NewDirectory(bcrypt.DefaultCost, session.DefaultAccounts()...)
	if err != nil {
		return fmt.Errorf("user directory: %w", err)
	}
	// Session scenes are private; they skip the shared metrics and events.
	manager := session.NewManager(dir, func(ctx context.Context, u session.User) (*scene.Scene, error) {
		return scene.New(cfg.Scene(u.ID), scene.WithLogger(log.With(logging.User(u.Email))))
	}, session.WithManagerLogger(log))

	apiServer := api.NewServer(manager, predictor,
		api.WithLogger(log),
		api.WithMetrics(collector),
		api.WithSceneMetrics(sceneMetrics),
		api.WithPublisher(publisher),
		api.WithPredictRateLimit(rate.Limit(cfg.PredictRate), cfg.PredictBurst),
	)
	defer apiServer.Shutdown(context.Background())

	httpSrv := &http.Server{Handler: apiServer.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 3)
	go func() {
		log.Info(ctx, "serving HTTP API", logging.String("addr", lis.http.Addr().String()))
		if err := httpSrv.Serve(lis.http); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var grpcSrv *rpc.Server
	if lis.grpc != nil {
		grpcSrv = rpc.NewServer(rpc.NewService(defaultScene, predictor, log), log, collector)
		grpcSrv.MarkServing()
		go func() {
			log.Info(ctx, "serving gRPC", logging.String("addr", lis.grpc.Addr().String()))
			if err := grpcSrv.Serve(lis.grpc); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	metricsSrv := serveMetrics(ctx, lis.metrics, collector, log)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn(shutdownCtx, "http shutdown", logging.Err(err))
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return runErr
}

func newPublisher(ctx context.Context, cfg config.Config, log logging.Logger) (events.Publisher, error) {
	if cfg.RedisAddr == "" {
		return events.Noop(), nil
	}
	pub, err := events.DialRedis(ctx, cfg.RedisAddr, log)
	if err != nil {
		return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
	}
	log.Info(ctx, "publishing events to redis", logging.String("addr", cfg.RedisAddr))
	return pub, nil
}

func serveMetrics(ctx context.Context, lis net.Listener, collector *observability.Collector, log logging.Logger) *http.Server {
	if lis == nil || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", collector.Handler())

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(ctx, "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(ctx, "serving Prometheus metrics", logging.String("addr", lis.Addr().String()))
	return srv
}
