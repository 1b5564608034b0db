package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

type state int

const (
	stateConstructed state = iota
	stateInitializing
	stateRunning
	stateStopped
)

func (s state) String() string {
	switch s {
	case stateConstructed:
		return "constructed"
	case stateInitializing:
		return "initializing"
	case stateRunning:
		return "running"
	case stateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Adapter owns a merged Configuration and relays engine events to the
// caller's handlers.
type Adapter struct {
	engine      Engine
	cfg         Configuration
	onDetected  Handler
	onProcessed Handler

	mu           sync.Mutex
	state        state
	subscribed   bool
	detectedSub  Subscription
	processedSub Subscription
}

// New validates the inputs and merges opts with the defaults. It does not
// touch the engine; call Init (or use Open) to initialize it.
func New(engine Engine, opts *Options, onDetected, onProcessed Handler) (*Adapter, error) {
	if opts == nil || opts.InputStream == nil {
		return nil, &ConfigurationError{Field: "inputStream", Reason: "missing"}
	}
	if onDetected == nil {
		return nil, &ConfigurationError{Field: "onDetected", Reason: "missing"}
	}
	if engine == nil {
		return nil, &ConfigurationError{Field: "engine", Reason: "missing"}
	}

	cfg, err := Merge(*opts)
	if err != nil {
		return nil, err
	}

	return &Adapter{
		engine:      engine,
		cfg:         cfg,
		onDetected:  onDetected,
		onProcessed: onProcessed,
	}, nil
}

// Open constructs an Adapter and immediately starts its initialization.
func Open(ctx context.Context, engine Engine, opts *Options, onDetected, onProcessed Handler) (*Adapter, <-chan error, error) {
	a, err := New(engine, opts, onDetected, onProcessed)
	if err != nil {
		return nil, nil, err
	}
	return a, a.Init(ctx), nil
}

// Config returns a copy of the merged configuration.
func (a *Adapter) Config() Configuration {
	return a.cfg.clone()
}

// Init hands the configuration to the engine. The returned channel yields
// exactly one value and is then closed: nil once the engine runs with both
// handlers subscribed, or an error. Engine failures are *EngineInitError.
func (a *Adapter) Init(ctx context.Context) <-chan error {
	done := make(chan error, 1)

	a.mu.Lock()
	if st := a.state; st != stateConstructed {
		a.mu.Unlock()
		done <- fmt.Errorf("%w (state %s)", ErrAlreadyInitialized, st)
		close(done)
		return done
	}
	a.state = stateInitializing
	a.mu.Unlock()

	var once sync.Once
	a.engine.Init(ctx, a.cfg.clone(), func(err error) {
		once.Do(func() {
			done <- a.complete(err)
			close(done)
		})
	})
	return done
}

func (a *Adapter) complete(initErr error) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if initErr != nil {
		a.state = stateConstructed
		return &EngineInitError{Err: initErr}
	}
	// Subscribe first so a short stream cannot finish before anyone listens.
	a.subscribe()
	if err := a.engine.Start(); err != nil {
		a.unsubscribe()
		a.state = stateConstructed
		return &EngineInitError{Err: fmt.Errorf("start: %w", err)}
	}
	a.state = stateRunning
	slog.Debug("Scanner running", "workers", a.cfg.NumOfWorkers, "frequency", a.cfg.Frequency,
		"readers", len(a.cfg.Decoder.Readers))
	return nil
}

// Start (re-)starts the detection loop. Handlers removed by Stop are
// subscribed again. Neither Start nor Stop may be called from inside a
// handler: while one of them holds the adapter lock, Stop waits for the
// engine loop that is running the handler.
func (a *Adapter) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != stateRunning && a.state != stateStopped {
		return ErrNotInitialized
	}
	resubscribed := !a.subscribed
	if resubscribed {
		a.subscribe()
	}
	if err := a.engine.Start(); err != nil {
		if resubscribed {
			a.unsubscribe()
		}
		return err
	}
	a.state = stateRunning
	return nil
}

// Stop unsubscribes both handlers and halts the detection loop. Calling it
// before a successful Init is a precondition violation reported as
// ErrNotInitialized; the engine is not called in that case. Stop waits for
// the engine loop, so neither it nor Start may be called from inside a
// handler.
func (a *Adapter) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != stateRunning && a.state != stateStopped {
		return ErrNotInitialized
	}
	a.unsubscribe()
	err := a.engine.Stop()
	a.state = stateStopped
	return err
}

// callers hold a.mu
func (a *Adapter) subscribe() {
	a.detectedSub = a.engine.OnDetected(a.onDetected)
	if a.onProcessed != nil {
		a.processedSub = a.engine.OnProcessed(a.onProcessed)
	}
	a.subscribed = true
}

// callers hold a.mu
func (a *Adapter) unsubscribe() {
	if !a.subscribed {
		return
	}
	a.engine.OffDetected(a.detectedSub)
	if a.onProcessed != nil {
		a.engine.OffProcessed(a.processedSub)
	}
	a.detectedSub, a.processedSub = "", ""
	a.subscribed = false
}
