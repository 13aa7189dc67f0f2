// Package autosave provides a debounced sink: values pushed in a burst are
// coalesced and only the latest one is written once the quiet window has
// elapsed. At most one write is in flight at any time.
package autosave

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultWindow       = time.Second
	DefaultWriteTimeout = 15 * time.Second
)

// Timer is the part of *time.Timer the sink needs.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. The real one is time.AfterFunc.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// WriteFunc persists one value.
type WriteFunc[T any] func(ctx context.Context, v T) error

type config struct {
	window    time.Duration
	timeout   time.Duration
	scheduler Scheduler
	logger    *zap.Logger
	onError   func(error)
	onWrite   func()
}

type Option func(*config)

func WithWindow(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.window = d
		}
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithScheduler(s Scheduler) Option {
	return func(c *config) { c.scheduler = s }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithErrorHandler is called after a failed write. Failed writes are not
// retried; the next push supersedes them.
func WithErrorHandler(fn func(error)) Option {
	return func(c *config) { c.onError = fn }
}

// WithWriteHandler is called after each successful write.
func WithWriteHandler(fn func()) Option {
	return func(c *config) { c.onWrite = fn }
}

type Sink[T any] struct {
	cfg   config
	write WriteFunc[T]

	mu         sync.Mutex
	idle       *sync.Cond
	pending    T
	hasPending bool
	timer      Timer
	gen        uint64
	armed      bool
	inFlight   bool
	closed     bool
}

func New[T any](write WriteFunc[T], opts ...Option) *Sink[T] {
	cfg := config{
		window:    DefaultWindow,
		timeout:   DefaultWriteTimeout,
		scheduler: realScheduler{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Sink[T]{cfg: cfg, write: write}
	s.idle = sync.NewCond(&s.mu)
	return s
}

// Push replaces the pending value and restarts the quiet window.
func (s *Sink[T]) Push(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.pending = v
	s.hasPending = true
	s.rearm()
}

// Pending reports whether a value is waiting to be written.
func (s *Sink[T]) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasPending || s.inFlight
}

// Flush writes the pending value now, waiting for any in-flight write first.
func (s *Sink[T]) Flush(ctx context.Context) error {
	s.mu.Lock()
	s.disarm()
	for s.inFlight {
		s.idle.Wait()
	}
	if !s.hasPending {
		s.mu.Unlock()
		return nil
	}
	v := s.take()
	s.mu.Unlock()

	err := s.run(ctx, v)

	s.mu.Lock()
	s.inFlight = false
	if s.hasPending && !s.armed && !s.closed {
		s.rearm()
	}
	s.idle.Broadcast()
	s.mu.Unlock()
	return err
}

// Close flushes and stops accepting values.
func (s *Sink[T]) Close(ctx context.Context) error {
	err := s.Flush(ctx)
	s.mu.Lock()
	s.closed = true
	s.disarm()
	s.mu.Unlock()
	return err
}

func (s *Sink[T]) rearm() {
	s.disarm()
	gen := s.gen
	s.armed = true
	s.timer = s.cfg.scheduler.AfterFunc(s.cfg.window, func() { s.fire(gen) })
}

func (s *Sink[T]) disarm() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.armed = false
	s.gen++
}

// take moves the pending value into flight. Callers hold mu.
func (s *Sink[T]) take() T {
	v := s.pending
	var zero T
	s.pending = zero
	s.hasPending = false
	s.inFlight = true
	return v
}

func (s *Sink[T]) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		// superseded by a later push or a flush
		s.mu.Unlock()
		return
	}
	s.armed = false
	s.timer = nil
	if s.inFlight || !s.hasPending {
		// the in-flight write picks the value up when it finishes
		s.mu.Unlock()
		return
	}
	v := s.take()
	s.mu.Unlock()

	for {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.timeout)
		_ = s.run(ctx, v)
		cancel()

		s.mu.Lock()
		if s.hasPending && !s.armed {
			v = s.take()
			s.mu.Unlock()
			continue
		}
		s.inFlight = false
		s.idle.Broadcast()
		s.mu.Unlock()
		return
	}
}

func (s *Sink[T]) run(ctx context.Context, v T) error {
	if err := s.write(ctx, v); err != nil {
		s.cfg.logger.Error("autosave write failed", zap.Error(err))
		if s.cfg.onError != nil {
			s.cfg.onError(err)
		}
		return err
	}
	s.cfg.logger.Debug("autosave write complete")
	if s.cfg.onWrite != nil {
		s.cfg.onWrite()
	}
	return nil
}
