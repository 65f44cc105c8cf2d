package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SceneCollector exposes propagation and prediction metrics.
type SceneCollector struct {
	gatherer prometheus.Gatherer

	TicksTotal         prometheus.Counter
	TickDuration       prometheus.Histogram
	TrackedObjects     *prometheus.GaugeVec
	CollisionAlerts    *prometheus.GaugeVec
	PredictionsTotal   *prometheus.CounterVec
	PredictionDuration prometheus.Histogram
	StreamClients      prometheus.Gauge
}

// NewSceneCollector registers scene metrics against the provided registerer.
func NewSceneCollector(reg prometheus.Registerer) (*SceneCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ticks, err := registerCollector(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitguard_propagation_ticks_total",
		Help: "Cumulative number of position update ticks across all scenes.",
	}), "orbitguard_propagation_ticks_total")
	if err != nil {
		return nil, err
	}
	tickDuration, err := registerCollector(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orbitguard_propagation_tick_duration_seconds",
		Help:    "Time spent recomputing positions in a single tick.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	}), "orbitguard_propagation_tick_duration_seconds")
	if err != nil {
		return nil, err
	}
	objects, err := registerCollector(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "orbitguard_tracked_objects",
		Help: "Number of tracked objects in the most recently updated scene, by kind.",
	}, []string{"kind"}), "orbitguard_tracked_objects")
	if err != nil {
		return nil, err
	}
	alerts, err := registerCollector(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "orbitguard_collision_predictions",
		Help: "Number of collision predictions in the most recently refreshed scene, by severity.",
	}, []string{"severity"}), "orbitguard_collision_predictions")
	if err != nil {
		return nil, err
	}
	predictions, err := registerCollector(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orbitguard_predictions_total",
		Help: "External collision-risk predictions, labeled by outcome.",
	}, []string{"outcome"}), "orbitguard_predictions_total")
	if err != nil {
		return nil, err
	}
	predictionDuration, err := registerCollector(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orbitguard_prediction_duration_seconds",
		Help:    "Latency of calls to the external prediction service.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}), "orbitguard_prediction_duration_seconds")
	if err != nil {
		return nil, err
	}
	clients, err := registerCollector(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbitguard_stream_clients",
		Help: "Number of connected websocket stream clients.",
	}), "orbitguard_stream_clients")
	if err != nil {
		return nil, err
	}

	return &SceneCollector{
		gatherer:           gatherer,
		TicksTotal:         ticks,
		TickDuration:       tickDuration,
		TrackedObjects:     objects,
		CollisionAlerts:    alerts,
		PredictionsTotal:   predictions,
		PredictionDuration: predictionDuration,
		StreamClients:      clients,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SceneCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveTick records one completed position update.
func (c *SceneCollector) ObserveTick(d time.Duration) {
	if c == nil {
		return
	}
	if c.TicksTotal != nil {
		c.TicksTotal.Inc()
	}
	if c.TickDuration != nil {
		c.TickDuration.Observe(d.Seconds())
	}
}

// SetPopulation updates the tracked-object gauges.
func (c *SceneCollector) SetPopulation(satellites, debris int) {
	if c == nil || c.TrackedObjects == nil {
		return
	}
	c.TrackedObjects.WithLabelValues("satellite").Set(float64(satellites))
	c.TrackedObjects.WithLabelValues("debris").Set(float64(debris))
}

// SetCollisions replaces the per-severity prediction gauges.
func (c *SceneCollector) SetCollisions(bySeverity map[string]int) {
	if c == nil || c.CollisionAlerts == nil {
		return
	}
	c.CollisionAlerts.Reset()
	for severity, n := range bySeverity {
		c.CollisionAlerts.WithLabelValues(severity).Set(float64(n))
	}
}

// ObservePrediction records one external prediction call. Outcome is the
// returned status, or "error" when the call failed.
func (c *SceneCollector) ObservePrediction(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	if c.PredictionsTotal != nil {
		c.PredictionsTotal.WithLabelValues(outcome).Inc()
	}
	if c.PredictionDuration != nil {
		c.PredictionDuration.Observe(d.Seconds())
	}
}

// AddStreamClients adjusts the connected stream client gauge by delta.
func (c *SceneCollector) AddStreamClients(delta int) {
	if c == nil || c.StreamClients == nil {
		return
	}
	c.StreamClients.Add(float64(delta))
}
