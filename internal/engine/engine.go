// Package engine is the in-process detection engine behind scanner.Adapter.
//
// It pulls frames from the configured input stream at most Frequency times
// per second, decodes them on a pool of NumOfWorkers goroutines and delivers
// processed/detected events to subscribers in frame order.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/scanner"
)

var (
	// ErrNotInitialized is returned by Start before a successful Init.
	ErrNotInitialized = errors.New("engine: not initialized")

	// ErrRunning is reported by Init while the detection loop is active.
	ErrRunning = errors.New("engine: detection loop is running")
)

// Option customizes an Engine.
type Option func(*Engine)

// WithBackend replaces the default gozxing decoder.
func WithBackend(b barcode.Backend) Option {
	return func(e *Engine) { e.backend = b }
}

// Engine implements scanner.Engine.
type Engine struct {
	backend barcode.Backend
	subs    *registry

	mu          sync.Mutex
	initialized bool
	cfg         scanner.Configuration
	plan        decodePlan
	run         *run
}

// New creates an engine that still needs Init.
func New(opts ...Option) *Engine {
	e := &Engine{
		backend: barcode.NewBackend(),
		subs:    newRegistry(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ scanner.Engine = (*Engine)(nil)

// Init compiles the reader list and locator settings on a separate goroutine
// and reports the outcome through done.
func (e *Engine) Init(ctx context.Context, cfg scanner.Configuration, done func(error)) {
	go func() {
		done(e.init(ctx, cfg))
	}()
}

func (e *Engine) init(ctx context.Context, cfg scanner.Configuration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cfg.InputStream == nil {
		return errors.New("engine: input stream is required")
	}
	plan, err := compilePlan(cfg)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run != nil && !e.run.finished() {
		return ErrRunning
	}
	e.cfg = cfg
	e.plan = plan
	e.initialized = true
	slog.Debug("Engine initialized", "readers", len(plan.readers), "workers", cfg.NumOfWorkers,
		"frequency", cfg.Frequency, "half_sample", plan.halfSample, "try_harder", plan.tryHarder)
	return nil
}

// Start launches the detection loop. It is a no-op while a loop is active.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return ErrNotInitialized
	}
	if e.run != nil {
		if !e.run.finished() {
			return nil
		}
		e.run.stop()
	}
	e.run = startRun(e.cfg, e.plan, e.backend, e.subs)
	return nil
}

// Stop cancels the detection loop and waits for its goroutines. Events are
// delivered on the loop goroutine, so handlers must not call Stop directly.
func (e *Engine) Stop() error {
	e.mu.Lock()
	r := e.run
	e.mu.Unlock()

	if r == nil {
		return nil
	}
	r.stop()
	return nil
}

// Done is closed when the current detection loop exits, either because the
// input stream ended or because Stop was called. It is nil before Start.
func (e *Engine) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run == nil {
		return nil
	}
	return e.run.done
}

// Err returns the stream error that ended the last loop, if any.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run == nil {
		return nil
	}
	return e.run.err()
}

// OnDetected registers h for frames that produced at least one code.
func (e *Engine) OnDetected(h scanner.Handler) scanner.Subscription {
	return e.subs.add(eventDetected, h)
}

// OffDetected removes a detection subscription.
func (e *Engine) OffDetected(s scanner.Subscription) { e.subs.remove(eventDetected, s) }

// OnProcessed registers h for every processed frame.
func (e *Engine) OnProcessed(h scanner.Handler) scanner.Subscription {
	return e.subs.add(eventProcessed, h)
}

// OffProcessed removes a processed-frame subscription.
func (e *Engine) OffProcessed(s scanner.Subscription) { e.subs.remove(eventProcessed, s) }

// decodePlan is the engine-specific form of a scanner.Configuration.
type decodePlan struct {
	readers    []barcode.Reader
	tryHarder  bool
	halfSample bool
	multiple   bool
}

func compilePlan(cfg scanner.Configuration) (decodePlan, error) {
	plan := decodePlan{
		tryHarder:  exhaustiveSearch(cfg.Locator.PatchSize),
		halfSample: cfg.Locator.HalfSample,
		multiple:   cfg.Decoder.Multiple,
	}
	for i, rs := range cfg.Decoder.Readers {
		rd, err := barcode.NewReader(rs.Format, rs.Supplements)
		if err != nil {
			return decodePlan{}, fmt.Errorf("decoder.readers[%d]: %w", i, err)
		}
		plan.readers = append(plan.readers, rd)
	}
	if len(plan.readers) == 0 {
		return decodePlan{}, barcode.ErrNoReaders
	}
	return plan, nil
}
