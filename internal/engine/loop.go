package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/scanner"
	"golang.org/x/time/rate"
)

// frameJob is a captured frame waiting for a decoder.
type frameJob struct {
	seq   uint64
	frame scanner.Frame
	at    time.Time
}

// run is one execution of the detection loop, from Start to Stop or end of stream.
type run struct {
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once

	mu        sync.Mutex
	streamErr error
}

func startRun(cfg scanner.Configuration, plan decodePlan, backend barcode.Backend, subs *registry) *run {
	ctx, cancel := context.WithCancel(context.Background())
	r := &run{cancel: cancel, done: make(chan struct{})}
	dec := &frameDecoder{backend: backend, plan: plan}
	go r.loop(ctx, cfg, dec, subs)
	return r
}

func (r *run) finished() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

func (r *run) stop() {
	r.stopOnce.Do(r.cancel)
	<-r.done
}

func (r *run) err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.streamErr
}

func (r *run) setErr(err error) {
	r.mu.Lock()
	r.streamErr = err
	r.mu.Unlock()
}

// loop wires capture, decode workers and the in-order dispatcher together.
// With zero workers the capture goroutine decodes inline.
func (r *run) loop(ctx context.Context, cfg scanner.Configuration, dec *frameDecoder, subs *registry) {
	defer close(r.done)
	defer r.cancel()

	buf := max(cfg.NumOfWorkers, 1)
	jobs := make(chan frameJob, buf)
	results := make(chan scanner.Result, buf)

	var wg sync.WaitGroup
	for range cfg.NumOfWorkers {
		wg.Add(1)
		go worker(ctx, dec, jobs, results, &wg)
	}
	activeWorkers.Add(float64(cfg.NumOfWorkers))
	defer activeWorkers.Sub(float64(cfg.NumOfWorkers))

	// Capture
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(jobs)

		limiter := rate.NewLimiter(rate.Limit(cfg.Frequency), 1)
		emit := func(job frameJob) bool {
			select {
			case jobs <- job:
				return true
			case <-ctx.Done():
				return false
			}
		}
		if cfg.NumOfWorkers == 0 {
			emit = func(job frameJob) bool {
				select {
				case results <- dec.decode(ctx, job):
					return true
				case <-ctx.Done():
					return false
				}
			}
		}
		r.capture(ctx, cfg.InputStream, limiter, emit)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	// Dispatch in frame order regardless of which worker finished first.
	next := uint64(1)
	pending := make(map[uint64]scanner.Result)
	for res := range results {
		pending[res.FrameID] = res
		for {
			p, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			if ctx.Err() == nil {
				subs.dispatch(p)
			}
		}
	}
}

func (r *run) capture(ctx context.Context, stream scanner.InputStream, limiter *rate.Limiter, emit func(frameJob) bool) {
	var seq uint64
	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		frame, err := stream.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				slog.Debug("Input stream ended", "frames", seq)
				return
			}
			if ctx.Err() == nil {
				slog.Warn("Input stream failed", "error", err, "frames", seq)
				r.setErr(err)
			}
			return
		}
		seq++
		if !emit(frameJob{seq: seq, frame: frame, at: time.Now()}) {
			return
		}
	}
}

// worker decodes frames from the jobs channel.
func worker(ctx context.Context, dec *frameDecoder, jobs <-chan frameJob, results chan<- scanner.Result, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return
			}
			res := dec.decode(ctx, job)
			select {
			case results <- res:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
