package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rwandaorbitguard/orbit-guard/internal/scene"
	"github.com/rwandaorbitguard/orbit-guard/internal/stats"
	"github.com/rwandaorbitguard/orbit-guard/kb"
	"github.com/rwandaorbitguard/orbit-guard/timectrl"
)

// options configure one offline run.
type options struct {
	Satellites int
	Debris     int
	Collisions int
	Seed       uint64
	Duration   time.Duration
	Tick       time.Duration
	TimeScale  float64
	// Every prints a summary line every Every ticks.
	Every int
	Start time.Time
}

func main() {
	opts := options{}
	flag.IntVar(&opts.Satellites, "satellites", 50, "generated satellites")
	flag.IntVar(&opts.Debris, "debris", 100, "generated debris fragments")
	flag.IntVar(&opts.Collisions, "collisions", 20, "generated collision predictions")
	flag.Uint64Var(&opts.Seed, "seed", 1, "random seed")
	flag.DurationVar(&opts.Duration, "duration", 60*time.Second, "simulated duration")
	flag.DurationVar(&opts.Tick, "tick", time.Second, "tick interval")
	flag.Float64Var(&opts.TimeScale, "time-scale", 1, "time units per simulated second")
	flag.IntVar(&opts.Every, "every", 10, "print a summary every N ticks")
	start := flag.String("start", "2025-01-01T00:00:00Z", "simulation start time (RFC 3339)")
	flag.Parse()

	var err error
	if opts.Start, err = time.Parse(time.RFC3339, *start); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -start: %v\n", err)
		os.Exit(2)
	}
	if err := simulate(os.Stdout, opts); err != nil {
		fmt.Fprintf(os.Stderr, "simulation failed: %v\n", err)
		os.Exit(1)
	}
}

// simulate builds a seeded scene and steps it in accelerated time. Output
// depends only on opts.
func simulate(w io.Writer, opts options) error {
	if opts.Tick <= 0 || opts.Duration <= 0 {
		return fmt.Errorf("tick and duration must be positive, got %s and %s", opts.Tick, opts.Duration)
	}
	if opts.Every <= 0 {
		opts.Every = 1
	}
	sc, err := scene.New(scene.Config{
		Name:       "simulator",
		Satellites: opts.Satellites,
		Debris:     opts.Debris,
		Collisions: opts.Collisions,
		Seed:       opts.Seed,
		Tick:       opts.Tick,
		TimeScale:  opts.TimeScale,
	}, scene.WithClock(func() time.Time { return opts.Start }))
	if err != nil {
		return err
	}

	ov := stats.Compute(sc.Catalog())
	fmt.Fprintf(w, "Scene: %d satellites, %d debris, %d collision predictions (seed %d)\n",
		ov.TotalSatellites, ov.TotalDebris, ov.TotalCollisions, opts.Seed)

	tc := timectrl.NewTimeController(opts.Start, opts.Tick, timectrl.Accelerated)
	ticks := 0
	tc.AddListener(func(simTime time.Time) {
		t := simTime.Sub(opts.Start).Seconds() * opts.TimeScale
		sc.Step(t)
		ticks++
		if ticks%opts.Every != 0 {
			return
		}
		ov := stats.Compute(sc.Catalog())
		fmt.Fprintf(w, "[%s] t=%.1f mean altitude %.1f km (sd %.1f)",
			simTime.Format(time.RFC3339), t, ov.MeanAltitudeKm, ov.StdDevAltitudeKm)
		if sats := sc.Catalog().ListSatellites(kb.SatelliteFilter{}); len(sats) > 0 {
			p := sats[0].Position
			fmt.Fprintf(w, "; %s @ (%.1f, %.1f, %.1f)", sats[0].ID, p.X, p.Y, p.Z)
		}
		fmt.Fprintln(w)
	})

	fmt.Fprintf(w, "Starting simulation: duration=%s, tick=%s, time-scale=%g\n", opts.Duration, opts.Tick, opts.TimeScale)
	<-tc.Start(opts.Duration)
	fmt.Fprintf(w, "Simulation complete after %d ticks.\n\n", ticks)

	return writeCollisionTable(w, sc.Catalog())
}

func writeCollisionTable(w io.Writer, c *kb.Catalog) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOBJECT 1\tOBJECT 2\tSEVERITY\tPROBABILITY\tMIN DIST (km)\tPREDICTED")
	for _, p := range c.ListCollisions(kb.CollisionFilter{}) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.1f%%\t%.2f\t%s\n",
			p.ID, p.Object1.Name, p.Object2.Name, p.Severity,
			p.Probability*100, p.MinimumDistance, p.PredictedTime.Format(time.RFC3339))
	}
	return tw.Flush()
}
