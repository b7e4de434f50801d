package clock

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jwebster45206/wired-engine/pkg/ecc"
)

const (
	DefaultInterval = time.Second
	DefaultStep     = UnitsPerSecond
)

// TickFunc is called after each tick with the new elapsed time and the status of
// the value read before advancing. It runs on the ticker goroutine.
type TickFunc func(units uint32, status ecc.Status)

// Ticker advances a Clock on a fixed real-time interval until stopped.
type Ticker struct {
	clock    *Clock
	interval time.Duration
	step     uint32
	onTick   TickFunc
	running  atomic.Bool
	logger   *slog.Logger
}

// NewTicker creates a ticker that adds step units every interval.
// Zero values fall back to one second and 16 units.
func NewTicker(c *Clock, interval time.Duration, step uint32, logger *slog.Logger) *Ticker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if step == 0 {
		step = DefaultStep
	}
	if logger == nil {
		logger = slog.Default()
	}
	t := &Ticker{
		clock:    c,
		interval: interval,
		step:     step,
		logger:   logger,
	}
	t.running.Store(true)
	return t
}

// OnTick registers a callback invoked after every tick.
func (t *Ticker) OnTick(fn TickFunc) *Ticker {
	t.onTick = fn
	return t
}

// Run blocks, advancing the clock until ctx is cancelled or Stop is called.
// The running flag is checked once per tick.
func (t *Ticker) Run(ctx context.Context) {
	t.logger.Debug("Clock ticker started", "interval", t.interval, "step", t.step)

	tk := time.NewTicker(t.interval)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			t.running.Store(false)
			t.logger.Debug("Clock ticker stopped by context")
			return
		case <-tk.C:
			if !t.running.Load() {
				t.logger.Debug("Clock ticker stopped")
				return
			}
			units, status := t.clock.Advance(t.step)
			if t.onTick != nil {
				t.onTick(units, status)
			}
		}
	}
}

// Stop asks Run to return at its next tick.
func (t *Ticker) Stop() {
	t.running.Store(false)
}

// Running reports whether the ticker has not been stopped.
func (t *Ticker) Running() bool {
	return t.running.Load()
}
