// internal/core/pipeline.go
// Latest-wins effect scheduling off the UI thread
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"blur-wallpaper/internal/effect"
)

// ComputationError reports a transform failure for one request.
type ComputationError struct {
	Intensity effect.Intensity
	Source    string
	Err       error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("effect computation failed for %s at intensity %.1f: %v", e.Source, float64(e.Intensity), e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

// SchedulerConfig tunes the scheduler.
type SchedulerConfig struct {
	// DebounceDelay is waited out before a request reaches a worker.
	// A request superseded during the delay never runs.
	DebounceDelay time.Duration
	// Workers bounds how many transforms may run at once. Stale jobs that
	// keep running after cancellation still hold their slot.
	Workers int
}

// SchedulerStats are cumulative counters.
type SchedulerStats struct {
	Requested uint64 `json:"requested"`
	Delivered uint64 `json:"delivered"`
	Discarded uint64 `json:"discarded"`
	Failed    uint64 `json:"failed"`
}

// Scheduler runs the effect transform in the background and publishes only
// the result of the most recent request. Every request gets a generation
// number; a finished job publishes only if its generation is still the
// newest when it completes and again when the dispatcher runs it.
type Scheduler struct {
	transform effect.Transform
	dispatch  Dispatcher
	logger    logrus.FieldLogger
	delay     time.Duration
	slots     chan struct{}

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	published  uint64
	latest     *DerivedImage
	closed     bool

	// Callbacks run on the dispatcher.
	onImage func(*DerivedImage)
	onError func(error)

	requested atomic.Uint64
	delivered atomic.Uint64
	discarded atomic.Uint64
	failed    atomic.Uint64
}

func NewScheduler(transform effect.Transform, dispatch Dispatcher, cfg SchedulerConfig, logger logrus.FieldLogger) *Scheduler {
	if dispatch == nil {
		dispatch = Immediate
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Scheduler{
		transform: transform,
		dispatch:  dispatch,
		logger:    logger,
		delay:     cfg.DebounceDelay,
		slots:     make(chan struct{}, workers),
	}
}

// SetCallbacks sets the derived image and error callbacks
func (s *Scheduler) SetCallbacks(onImage func(*DerivedImage), onError func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onImage = onImage
	s.onError = onError
	s.logger.Debug("SCHEDULER: Callbacks set")
}

// Request cancels the pending job, if any, and schedules a transform of
// snap. It never blocks on the transform.
func (s *Scheduler) Request(snap Snapshot) {
	if snap.Source == nil {
		s.logger.Debug("SCHEDULER: No source image, nothing to schedule")
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	gen := s.generation
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	s.requested.Add(1)
	s.logger.WithFields(logrus.Fields{
		"generation": gen,
		"intensity":  float64(snap.Intensity),
		"source":     snap.Source.Name(),
	}).Debug("SCHEDULER: Request scheduled")

	go s.run(ctx, cancel, gen, snap)
}

func (s *Scheduler) run(ctx context.Context, cancel context.CancelFunc, gen uint64, snap Snapshot) {
	defer cancel()

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			s.discard(gen, "superseded during debounce")
			return
		}
	}

	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		s.discard(gen, "superseded while waiting for a worker")
		return
	}
	defer func() { <-s.slots }()

	if ctx.Err() != nil {
		s.discard(gen, "superseded before start")
		return
	}

	start := time.Now()
	img, err := s.apply(ctx, snap)
	elapsed := time.Since(start)

	s.complete(gen, snap, img, err, elapsed)
}

func (s *Scheduler) apply(ctx context.Context, snap Snapshot) (result *DerivedImage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in transform: %v", r)
		}
	}()

	img, err := s.transform.Apply(ctx, snap.Source.Image(), snap.Intensity)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, fmt.Errorf("transform %s returned no image", s.transform.Name())
	}
	return &DerivedImage{
		Image:     img,
		Source:    snap.Source,
		Intensity: snap.Intensity,
	}, nil
}

// complete runs on the worker goroutine. Stale results are dropped here
// before they ever reach the dispatcher.
func (s *Scheduler) complete(gen uint64, snap Snapshot, derived *DerivedImage, err error, elapsed time.Duration) {
	if !s.isCurrent(gen) {
		s.discard(gen, "superseded during computation")
		return
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.discard(gen, "cancelled")
			return
		}
		s.failed.Add(1)
		s.logger.WithFields(logrus.Fields{
			"generation": gen,
			"intensity":  float64(snap.Intensity),
		}).WithError(err).Error("SCHEDULER: Transform failed, keeping previous image")

		compErr := &ComputationError{Intensity: snap.Intensity, Source: snap.Source.Name(), Err: err}
		s.dispatch(func() { s.report(gen, compErr) })
		return
	}

	derived.Generation = gen
	derived.Elapsed = elapsed
	s.logger.WithFields(logrus.Fields{
		"generation": gen,
		"intensity":  float64(snap.Intensity),
		"elapsed_ms": elapsed.Milliseconds(),
	}).Debug("SCHEDULER: Transform completed")

	s.dispatch(func() { s.publish(derived) })
}

// publish runs on the dispatcher and re-checks the generation, so a result
// overtaken while queued is dropped too.
func (s *Scheduler) publish(derived *DerivedImage) {
	s.mu.Lock()
	if s.closed || derived.Generation != s.generation || derived.Generation <= s.published {
		s.mu.Unlock()
		s.discard(derived.Generation, "superseded before display")
		return
	}
	s.published = derived.Generation
	s.latest = derived
	s.cancel = nil
	callback := s.onImage
	s.mu.Unlock()

	s.delivered.Add(1)
	if callback != nil {
		callback(derived)
	} else {
		s.logger.Warn("SCHEDULER: No image callback set")
	}
}

func (s *Scheduler) report(gen uint64, err error) {
	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.cancel = nil
	callback := s.onError
	s.mu.Unlock()

	if callback != nil {
		callback(err)
	}
}

func (s *Scheduler) isCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && gen == s.generation
}

func (s *Scheduler) discard(gen uint64, reason string) {
	s.discarded.Add(1)
	s.logger.WithFields(logrus.Fields{
		"generation": gen,
		"reason":     reason,
	}).Debug("SCHEDULER: Result discarded")
}

// Latest returns the most recently displayed image, or nil.
func (s *Scheduler) Latest() *DerivedImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Pending reports whether a request is still waiting for its result.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Stats returns the cumulative counters.
func (s *Scheduler) Stats() SchedulerStats {
	return SchedulerStats{
		Requested: s.requested.Load(),
		Delivered: s.delivered.Load(),
		Discarded: s.discarded.Load(),
		Failed:    s.failed.Load(),
	}
}

// Stop cancels the pending job and ignores further requests.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Debug("SCHEDULER: Stopping")
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
