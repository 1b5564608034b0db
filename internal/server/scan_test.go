package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MeKo-Tech/barscan/internal/scanner"
	"github.com/MeKo-Tech/barscan/internal/source"
	"github.com/MeKo-Tech/barscan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedEngine finishes Init only once release is closed.
type gatedEngine struct {
	release chan struct{}
	stopped chan struct{}

	mu       sync.Mutex
	started  bool
	stopOnce sync.Once
}

func newGatedEngine() *gatedEngine {
	return &gatedEngine{release: make(chan struct{}), stopped: make(chan struct{})}
}

func (e *gatedEngine) Init(_ context.Context, _ scanner.Configuration, done func(error)) {
	go func() {
		<-e.release
		done(nil)
	}()
}

func (e *gatedEngine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.started = true
	return nil
}

func (e *gatedEngine) Stop() error {
	e.stopOnce.Do(func() { close(e.stopped) })
	return nil
}

func (e *gatedEngine) OnDetected(scanner.Handler) scanner.Subscription  { return "detected" }
func (e *gatedEngine) OffDetected(scanner.Subscription)                 {}
func (e *gatedEngine) OnProcessed(scanner.Handler) scanner.Subscription { return "processed" }
func (e *gatedEngine) OffProcessed(scanner.Subscription)                {}

func TestOpenSession_StopsEngineAfterLateInit(t *testing.T) {
	eng := newGatedEngine()
	s := newTestServer(t, func(c *Config) {
		c.NewEngine = func() scanner.Engine { return eng }
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	stream := source.FromImages(testutil.BlankImage(10, 10))
	noop := func(scanner.Result) {}
	_, err := s.openSession(ctx, s.optionsFor(stream, ""), noop, noop)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(eng.release)
	select {
	case <-eng.stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("engine started by a late init was never stopped")
	}

	eng.mu.Lock()
	defer eng.mu.Unlock()
	assert.True(t, eng.started)
}
