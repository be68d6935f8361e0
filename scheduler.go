package helio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

const (
	// DefaultStep is the simulated time advanced at each tick.
	DefaultStep = 24 * time.Hour
	// DefaultInterval is the wall time between two ticks.
	DefaultInterval = 500 * time.Millisecond
	// statusEvery is the wall time between two status reports.
	statusEvery = 10 * time.Second
)

// Scheduler owns a simulated clock: every Interval of wall time it advances
// the clock by Step, solves the tracked bodies and publishes the Frame to its
// subscribers. The Solver itself holds no time state.
type Scheduler struct {
	Solver   Solver
	Catalog  *Catalog
	Bodies   []string
	StartDT  time.Time
	Step     time.Duration // simulated time per tick
	Interval time.Duration // wall time per tick, zero runs as fast as possible
	MaxTicks int           // zero means no limit

	mu        sync.Mutex
	currentDT time.Time
	ticks     int
	subs      []chan<- Frame
	stopChan  chan bool
	logger    log.Logger
	metrics   *Metrics
}

// NewScheduler returns a scheduler starting at start with the default step and interval.
// A nil logger discards all logs and nil metrics are not recorded.
func NewScheduler(c *Catalog, s Solver, start time.Time, logger log.Logger, metrics *Metrics, bodies ...string) *Scheduler {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if len(bodies) == 0 {
		bodies = c.Names()
	}
	// Must switch to UTC so that exported dates are consistent.
	start = start.UTC()
	return &Scheduler{
		Solver:    s,
		Catalog:   c,
		Bodies:    bodies,
		StartDT:   start,
		Step:      DefaultStep,
		Interval:  DefaultInterval,
		currentDT: start,
		stopChan:  make(chan bool, 1),
		logger:    log.With(logger, "subsys", "sched"),
		metrics:   metrics,
	}
}

// Subscribe registers a channel which receives every frame. The channel is
// closed when Run returns. Sends block, so subscribers must keep up or buffer.
func (s *Scheduler) Subscribe(ch chan<- Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, ch)
}

// CurrentDT returns the current simulated time.
func (s *Scheduler) CurrentDT() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentDT
}

// Ticks returns the number of frames published so far.
func (s *Scheduler) Ticks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// LogStatus logs the status of the simulation.
func (s *Scheduler) LogStatus() {
	level.Info(s.logger).Log("date", s.CurrentDT().Format(time.RFC3339), "ticks", s.Ticks(), "bodies", len(s.Bodies))
}

// StopPropagation is used to stop Run before it is completed.
func (s *Scheduler) StopPropagation() {
	select {
	case s.stopChan <- true:
	default:
	}
}

// Next solves the bodies at the current simulated time, then advances the clock by one step.
func (s *Scheduler) Next() (Frame, error) {
	s.mu.Lock()
	dt := s.currentDT
	s.mu.Unlock()

	start := time.Now()
	f, err := s.Solver.Tick(s.Catalog, dt, s.Bodies...)
	if err != nil {
		s.metrics.ObserveError(err)
		return Frame{}, fmt.Errorf("tick @ %s: %w", dt.Format(time.RFC3339), err)
	}
	s.metrics.ObserveFrame(f, time.Since(start))

	s.mu.Lock()
	s.currentDT = dt.Add(s.Step)
	s.ticks++
	s.mu.Unlock()
	return f, nil
}

// Run publishes frames until the context is canceled, StopPropagation is
// called, MaxTicks frames were published or a tick fails. The first frame is
// at StartDT and is published immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.closeSubs()
	s.LogStatus()
	var tickC <-chan time.Time
	if s.Interval > 0 {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()
		tickC = ticker.C
	}
	status := time.NewTicker(statusEvery)
	defer status.Stop()

	if s.finished() {
		return nil
	}
	for {
		f, err := s.Next()
		if err != nil {
			level.Error(s.logger).Log("status", "failed", "err", err)
			return err
		}
		if err := s.publish(ctx, f); err != nil {
			return err
		}
		level.Debug(s.logger).Log("date", f.Epoch.Format(time.RFC3339), "jd", f.JD)
		if s.finished() {
			return nil
		}

		if tickC == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.stopChan:
				level.Info(s.logger).Log("status", "stopped", "ticks", s.Ticks())
				return nil
			default:
			}
			continue
		}
	wait:
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.stopChan:
				level.Info(s.logger).Log("status", "stopped", "ticks", s.Ticks())
				return nil
			case <-status.C:
				s.LogStatus()
			case <-tickC:
				break wait
			}
		}
	}
}

// finished returns whether MaxTicks frames were published, logging it if so.
func (s *Scheduler) finished() bool {
	if s.MaxTicks <= 0 || s.Ticks() < s.MaxTicks {
		return false
	}
	level.Info(s.logger).Log("status", "finished", "ticks", s.Ticks(), "simulated", s.CurrentDT().Sub(s.StartDT).String())
	return true
}

func (s *Scheduler) publish(ctx context.Context, f Frame) error {
	s.mu.Lock()
	subs := make([]chan<- Frame, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- f:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Scheduler) closeSubs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		close(ch)
	}
	s.subs = nil
}
