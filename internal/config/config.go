// Package config loads service configuration from the environment, with
// command-line flags layered on top.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rwandaorbitguard/orbit-guard/internal/prediction"
	"github.com/rwandaorbitguard/orbit-guard/internal/scene"
)

// EnvPrefix prefixes every environment variable read by FromEnv.
const EnvPrefix = "ORBITGUARD_"

// Config is the service configuration.
type Config struct {
	HTTPAddr    string
	GRPCAddr    string
	MetricsAddr string

	PredictURL     string
	PredictTimeout time.Duration
	// PredictRate is the sustained per-client prediction rate in requests
	// per second; PredictBurst is the bucket size.
	PredictRate  float64
	PredictBurst int

	Satellites   int
	Debris       int
	Collisions   int
	Seed         uint64
	Tick         time.Duration
	ClockRefresh time.Duration
	TimeScale    float64

	// RedisAddr enables event publishing when set.
	RedisAddr string
	// TLEFile lists reference objects for the default scene. Empty uses
	// the built-in set.
	TLEFile string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPAddr:       ":8080",
		GRPCAddr:       ":50051",
		MetricsAddr:    ":9090",
		PredictURL:     prediction.DefaultEndpoint,
		PredictTimeout: 30 * time.Second,
		PredictRate:    1,
		PredictBurst:   3,
		Satellites:     50,
		Debris:         100,
		Collisions:     20,
		Tick:           scene.DefaultTick,
		ClockRefresh:   scene.DefaultClockRefresh,
		TimeScale:      1,
	}
}

// FromEnv reads the ORBITGUARD_* variables over the defaults.
func FromEnv() (Config, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup reads configuration through lookup, which has the signature of
// os.LookupEnv.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	p := parser{lookup: lookup}

	p.stringVar("HTTP_ADDR", &cfg.HTTPAddr)
	p.stringVar("GRPC_ADDR", &cfg.GRPCAddr)
	p.stringVar("METRICS_ADDR", &cfg.MetricsAddr)
	p.stringVar("PREDICT_URL", &cfg.PredictURL)
	p.durationVar("PREDICT_TIMEOUT", &cfg.PredictTimeout)
	p.float64Var("PREDICT_RATE", &cfg.PredictRate)
	p.intVar("PREDICT_BURST", &cfg.PredictBurst)
	p.intVar("SATELLITES", &cfg.Satellites)
	p.intVar("DEBRIS", &cfg.Debris)
	p.intVar("COLLISIONS", &cfg.Collisions)
	p.uint64Var("SEED", &cfg.Seed)
	p.durationVar("TICK", &cfg.Tick)
	p.durationVar("CLOCK_REFRESH", &cfg.ClockRefresh)
	p.float64Var("TIME_SCALE", &cfg.TimeScale)
	p.stringVar("REDIS_ADDR", &cfg.RedisAddr)
	p.stringVar("TLE_FILE", &cfg.TLEFile)

	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// RegisterFlags binds flags to cfg's fields, using the current values as
// defaults, so flags parsed afterwards override the environment.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.HTTPAddr, "http-addr", c.HTTPAddr, "HTTP API listen address")
	fs.StringVar(&c.GRPCAddr, "grpc-addr", c.GRPCAddr, "gRPC listen address")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "HTTP address for Prometheus /metrics")
	fs.StringVar(&c.PredictURL, "predict-url", c.PredictURL, "collision-risk prediction endpoint")
	fs.DurationVar(&c.PredictTimeout, "predict-timeout", c.PredictTimeout, "timeout for one prediction call")
	fs.Float64Var(&c.PredictRate, "predict-rate", c.PredictRate, "per-client prediction requests per second")
	fs.IntVar(&c.PredictBurst, "predict-burst", c.PredictBurst, "per-client prediction burst")
	fs.IntVar(&c.Satellites, "satellites", c.Satellites, "generated satellites per scene")
	fs.IntVar(&c.Debris, "debris", c.Debris, "generated debris per scene")
	fs.IntVar(&c.Collisions, "collisions", c.Collisions, "generated collision predictions per scene")
	fs.Uint64Var(&c.Seed, "seed", c.Seed, "random seed (0 seeds from the clock)")
	fs.DurationVar(&c.Tick, "tick", c.Tick, "position update interval")
	fs.DurationVar(&c.ClockRefresh, "clock-refresh", c.ClockRefresh, "displayed clock refresh interval")
	fs.Float64Var(&c.TimeScale, "time-scale", c.TimeScale, "time units per elapsed second")
	fs.StringVar(&c.RedisAddr, "redis-addr", c.RedisAddr, "Redis address for event publishing (empty disables)")
	fs.StringVar(&c.TLEFile, "tle-file", c.TLEFile, "JSON file of reference TLEs for the default scene")
}

// Validate rejects unusable values.
func (c Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http address is required"))
	}
	if c.Satellites < 0 || c.Debris < 0 || c.Collisions < 0 {
		errs = append(errs, errors.New("population sizes must not be negative"))
	}
	if c.Tick <= 0 {
		errs = append(errs, fmt.Errorf("tick must be positive, got %s", c.Tick))
	}
	if c.ClockRefresh <= 0 {
		errs = append(errs, fmt.Errorf("clock refresh must be positive, got %s", c.ClockRefresh))
	}
	if c.PredictTimeout <= 0 {
		errs = append(errs, fmt.Errorf("predict timeout must be positive, got %s", c.PredictTimeout))
	}
	if c.PredictRate <= 0 || c.PredictBurst <= 0 {
		errs = append(errs, errors.New("predict rate and burst must be positive"))
	}
	if c.TimeScale <= 0 {
		errs = append(errs, fmt.Errorf("time scale must be positive, got %v", c.TimeScale))
	}
	return errors.Join(errs...)
}

// Scene returns the scene configuration named name.
func (c Config) Scene(name string) scene.Config {
	cfg := scene.DefaultConfig()
	cfg.Name = name
	cfg.Satellites = c.Satellites
	cfg.Debris = c.Debris
	cfg.Collisions = c.Collisions
	cfg.Seed = c.Seed
	cfg.Tick = c.Tick
	cfg.ClockRefresh = c.ClockRefresh
	cfg.TimeScale = c.TimeScale
	return cfg
}

type parser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *parser) get(key string) (string, bool) {
	v, ok := p.lookup(EnvPrefix + key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (p *parser) fail(key string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
}

func (p *parser) stringVar(key string, dst *string) {
	if v, ok := p.get(key); ok {
		*dst = v
	}
}

func (p *parser) intVar(key string, dst *int) {
	if v, ok := p.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			p.fail(key, err)
			return
		}
		*dst = n
	}
}

func (p *parser) uint64Var(key string, dst *uint64) {
	if v, ok := p.get(key); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			p.fail(key, err)
			return
		}
		*dst = n
	}
}

func (p *parser) float64Var(key string, dst *float64) {
	if v, ok := p.get(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			p.fail(key, err)
			return
		}
		*dst = f
	}
}

func (p *parser) durationVar(key string, dst *time.Duration) {
	if v, ok := p.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			p.fail(key, err)
			return
		}
		*dst = d
	}
}
