package scanner

import (
	"context"
	"image"
	"time"

	"github.com/MeKo-Tech/barscan/internal/barcode"
)

// Frame is one image pulled from an input stream.
type Frame struct {
	Image  image.Image
	Source string // file name, page reference or stream label
}

// InputStream produces frames until it returns io.EOF.
type InputStream interface {
	Next(ctx context.Context) (Frame, error)
}

// Result describes one processed frame.
type Result struct {
	FrameID   uint64           `json:"frame"`
	Source    string           `json:"source,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Duration  time.Duration    `json:"duration_ns"`
	Codes     []barcode.Result `json:"codes,omitempty"`
	Err       error            `json:"-"`
}

// Detected reports whether the frame produced at least one code.
func (r Result) Detected() bool { return len(r.Codes) > 0 }

// Handler receives engine events.
type Handler func(Result)

// Subscription identifies a registered handler so it can be removed again.
type Subscription string

// Engine is the capability set the adapter needs from a detection engine.
type Engine interface {
	// Init prepares the engine for cfg and calls done exactly once, possibly
	// from another goroutine, with nil or the reason initialization failed.
	Init(ctx context.Context, cfg Configuration, done func(error))

	Start() error
	Stop() error

	OnDetected(h Handler) Subscription
	OffDetected(s Subscription)
	OnProcessed(h Handler) Subscription
	OffProcessed(s Subscription)
}
