package observability

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rwandaorbitguard/orbit-guard/internal/logging"
)

// TracerName is the instrumentation name used for spans created by this module.
const TracerName = "github.com/rwandaorbitguard/orbit-guard"

// Span attribute keys shared by the HTTP, gRPC and prediction spans.
const (
	AttrPredictionEndpoint = attribute.Key("orbitguard.prediction.endpoint")
	AttrPredictionStatus   = attribute.Key("orbitguard.prediction.status")
	AttrMissDistanceKm     = attribute.Key("orbitguard.prediction.miss_distance_km")
	AttrPositionNormM      = attribute.Key("orbitguard.prediction.position_norm_m")
	AttrSpeedMPS           = attribute.Key("orbitguard.prediction.speed_mps")
	AttrSeverity           = attribute.Key("orbitguard.severity")

	attrSceneSatellites = attribute.Key("orbitguard.scene.satellites")
	attrSceneDebris     = attribute.Key("orbitguard.scene.debris")
	attrSceneCollisions = attribute.Key("orbitguard.scene.collisions")
	attrSceneTickMS     = attribute.Key("orbitguard.scene.tick_ms")
	attrSceneTimeScale  = attribute.Key("orbitguard.scene.time_scale")
	attrEnvironment     = attribute.Key("deployment.environment")
)

// TracingConfig governs how tracing is initialised.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Environment string
	Exporter    string // stdout | otlp
	Endpoint    string // used when Exporter == otlp
	SampleRatio float64

	// Deployment is stamped on the trace resource so every span can be
	// tied back to the scene size and prediction backend that produced it.
	Deployment Deployment
}

// Deployment describes the scene population and prediction backend a
// server runs with.
type Deployment struct {
	PredictURL string
	Satellites int
	Debris     int
	Collisions int
	Tick       time.Duration
	TimeScale  float64
}

// Attributes returns the resource attributes for d. Zero fields are left out.
func (d Deployment) Attributes() []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if d.PredictURL != "" {
		attrs = append(attrs, AttrPredictionEndpoint.String(d.PredictURL))
	}
	if d.Satellites+d.Debris+d.Collisions > 0 {
		attrs = append(attrs,
			attrSceneSatellites.Int(d.Satellites),
			attrSceneDebris.Int(d.Debris),
			attrSceneCollisions.Int(d.Collisions),
		)
	}
	if d.Tick > 0 {
		attrs = append(attrs, attrSceneTickMS.Int64(d.Tick.Milliseconds()))
	}
	if d.TimeScale > 0 {
		attrs = append(attrs, attrSceneTimeScale.Float64(d.TimeScale))
	}
	return attrs
}

func (cfg TracingConfig) resourceAttributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.namespace", "orbitguard"),
	}
	if cfg.Environment != "" {
		attrs = append(attrs, attrEnvironment.String(cfg.Environment))
	}
	return append(attrs, cfg.Deployment.Attributes()...)
}

// TracingConfigFromEnv pulls tracing configuration from environment variables,
// using sensible defaults when unset.
func TracingConfigFromEnv() TracingConfig {
	enabled := strings.EqualFold(os.Getenv("ORBITGUARD_TRACING_ENABLED"), "true")
	exporter := strings.ToLower(os.Getenv("ORBITGUARD_TRACING_EXPORTER"))
	if exporter == "" {
		exporter = "stdout"
	}
	service := os.Getenv("ORBITGUARD_TRACING_SERVICE_NAME")
	if service == "" {
		service = "orbitguard"
	}
	env := os.Getenv("ORBITGUARD_ENV")
	if env == "" {
		env = "development"
	}

	ratio := 1.0
	if rawRatio := os.Getenv("ORBITGUARD_TRACING_SAMPLE_RATIO"); rawRatio != "" {
		if parsed, err := strconv.ParseFloat(rawRatio, 64); err == nil && parsed >= 0 && parsed <= 1 {
			ratio = parsed
		}
	}

	return TracingConfig{
		Enabled:     enabled,
		ServiceName: service,
		Environment: env,
		Exporter:    exporter,
		Endpoint:    os.Getenv("ORBITGUARD_OTLP_ENDPOINT"),
		SampleRatio: ratio,
	}
}

// InitTracing wires a tracer provider, exporter, propagators, and sampler based
// on the provided configuration. It returns a shutdown function to flush spans.
func InitTracing(ctx context.Context, cfg TracingConfig, log logging.Logger) (func(context.Context) error, error) {
	if log == nil {
		log = logging.Noop()
	}

	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		otel.SetTextMapPropagator(propagation.TraceContext{})
		log.Info(ctx, "tracing disabled; using noop tracer provider")
		return func(context.Context) error { return nil }, nil
	}

	exp, err := exporterFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(cfg.resourceAttributes()...))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	log.Info(ctx, "tracing enabled",
		logging.String("exporter", cfg.Exporter),
		logging.String("service_name", cfg.ServiceName),
		logging.String("environment", cfg.Environment),
		logging.String("predict_url", cfg.Deployment.PredictURL),
		logging.String("sampler", fmt.Sprintf("parentbased_traceidratio_%0.2f", cfg.SampleRatio)),
	)

	return tp.Shutdown, nil
}

func exporterFromConfig(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(cfg.Exporter) {
	case "stdout", "":
		return stdouttrace.New(
			stdouttrace.WithWriter(os.Stdout),
			stdouttrace.WithPrettyPrint(),
			stdouttrace.WithoutTimestamps(),
		)
	case "otlp", "otlpgrpc":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		client := otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
		return otlptrace.New(ctx, client)
	default:
		return nil, fmt.Errorf("unsupported tracing exporter: %s", cfg.Exporter)
	}
}

// ShutdownWithTimeout invokes the provided shutdown function with a bounded
// timeout, swallowing errors in the shutdown path.
func ShutdownWithTimeout(ctx context.Context, shutdown func(context.Context) error, log logging.Logger) {
	if shutdown == nil {
		return
	}
	if log == nil {
		log = logging.Noop()
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Warn(ctx, "tracing shutdown failed", logging.Err(err))
	}
}

// Tracer returns the module's tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
