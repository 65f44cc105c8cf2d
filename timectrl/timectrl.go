package timectrl

import (
	"sync"
	"time"
)

// SimClock is an interface for accessing simulation time. Scenes and the
// stream handlers depend on it rather than on a concrete controller.
type SimClock interface {
	// Now returns the current simulation time.
	Now() time.Time
	// Elapsed returns how much simulation time has passed since the start.
	Elapsed() time.Duration
	// After returns a channel that receives the simulation time once d has
	// elapsed in simulation time.
	After(d time.Duration) <-chan time.Time
}

// Mode describes how the TimeController advances simulation time.
type Mode int

const (
	// RealTime advances according to wall-clock time.
	RealTime Mode = iota
	// Accelerated advances as quickly as the loop can run while still stepping by Tick.
	Accelerated
)

func (m Mode) String() string {
	switch m {
	case RealTime:
		return "realtime"
	case Accelerated:
		return "accelerated"
	default:
		return "unknown"
	}
}

type timer struct {
	deadline time.Time
	ch       chan time.Time
}

// TimeController drives simulation time and notifies registered listeners.
// Listeners run synchronously on the controller goroutine, so a tick never
// starts before the previous one has returned.
type TimeController struct {
	mu        sync.RWMutex
	StartTime time.Time
	Tick      time.Duration
	Mode      Mode

	currentTime time.Time
	listeners   []func(time.Time)
	timers      []timer

	running  bool
	stop     chan struct{}
	stopOnce sync.Once
}

// NewTimeController constructs a controller.
func NewTimeController(start time.Time, tick time.Duration, mode Mode) *TimeController {
	return &TimeController{
		StartTime:   start,
		Tick:        tick,
		Mode:        mode,
		currentTime: start,
		stop:        make(chan struct{}),
	}
}

// Now returns the current simulation time. Implements SimClock.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// Elapsed returns the simulation time passed since StartTime.
func (tc *TimeController) Elapsed() time.Duration {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime.Sub(tc.StartTime)
}

// SetTime moves the simulation clock to t without notifying listeners.
// Pending After timers whose deadline has passed fire immediately.
func (tc *TimeController) SetTime(t time.Time) {
	tc.mu.Lock()
	tc.currentTime = t
	fired := tc.collectTimersLocked(t)
	tc.mu.Unlock()
	fire(fired, t)
}

// After returns a channel that receives the simulation time once d has
// elapsed in simulation time. Implements SimClock.
func (tc *TimeController) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	tc.mu.Lock()
	defer tc.mu.Unlock()
	deadline := tc.currentTime.Add(d)
	if d <= 0 {
		ch <- tc.currentTime
		return ch
	}
	tc.timers = append(tc.timers, timer{deadline: deadline, ch: ch})
	return ch
}

// AddListener registers a callback invoked on every tick.
func (tc *TimeController) AddListener(fn func(time.Time)) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

// Start runs the controller for the specified duration in a separate goroutine.
// A non-positive duration runs until Stop is called. It returns a channel
// that is closed when the controller finishes. Start may only be called once.
func (tc *TimeController) Start(duration time.Duration) <-chan struct{} {
	done := make(chan struct{})

	tc.mu.Lock()
	if tc.running || tc.Tick <= 0 {
		tc.mu.Unlock()
		close(done)
		return done
	}
	tc.running = true
	simTime := tc.StartTime
	tc.currentTime = simTime
	listeners := append([]func(time.Time){}, tc.listeners...)
	tc.mu.Unlock()

	go func() {
		defer close(done)

		var tickC <-chan time.Time
		if tc.Mode == RealTime {
			ticker := time.NewTicker(tc.Tick)
			defer ticker.Stop()
			tickC = ticker.C
		}

		elapsed := time.Duration(0)
		for {
			if duration > 0 && elapsed >= duration {
				return
			}

			if tickC != nil {
				select {
				case <-tc.stop:
					return
				case <-tickC:
				}
			} else {
				select {
				case <-tc.stop:
					return
				default:
				}
			}

			simTime = simTime.Add(tc.Tick)
			elapsed += tc.Tick

			tc.mu.Lock()
			tc.currentTime = simTime
			fired := tc.collectTimersLocked(simTime)
			tc.mu.Unlock()
			fire(fired, simTime)

			for _, fn := range listeners {
				fn(simTime)
			}
		}
	}()
	return done
}

// Stop halts a running controller. It is safe to call more than once and
// before Start.
func (tc *TimeController) Stop() {
	tc.stopOnce.Do(func() { close(tc.stop) })
}

func (tc *TimeController) collectTimersLocked(now time.Time) []chan time.Time {
	var fired []chan time.Time
	kept := tc.timers[:0]
	for _, t := range tc.timers {
		if !now.Before(t.deadline) {
			fired = append(fired, t.ch)
			continue
		}
		kept = append(kept, t)
	}
	tc.timers = kept
	return fired
}

func fire(chs []chan time.Time, now time.Time) {
	for _, ch := range chs {
		ch <- now
	}
}
