package source

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/MeKo-Tech/barscan/internal/scanner"
)

// ErrClosed is returned when pushing to a closed Channel.
var ErrClosed = errors.New("source: stream closed")

// Slice is a fixed, in-memory frame stream.
type Slice struct {
	mu     sync.Mutex
	frames []scanner.Frame
}

// FromFrames returns a stream yielding frames in order, then io.EOF.
func FromFrames(frames ...scanner.Frame) *Slice {
	return &Slice{frames: append([]scanner.Frame(nil), frames...)}
}

// FromImages wraps images as frames labelled "memory:<n>".
func FromImages(images ...image.Image) *Slice {
	frames := make([]scanner.Frame, len(images))
	for i, img := range images {
		frames[i] = scanner.Frame{Image: img, Source: fmt.Sprintf("memory:%d", i)}
	}
	return &Slice{frames: frames}
}

// Next implements scanner.InputStream.
func (s *Slice) Next(ctx context.Context) (scanner.Frame, error) {
	if err := ctx.Err(); err != nil {
		return scanner.Frame{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return scanner.Frame{}, io.EOF
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

// Channel is a push-driven stream for live sources such as websocket
// clients. Next blocks until a frame is pushed, the channel is closed and
// drained, or ctx is done.
type Channel struct {
	frames    chan scanner.Frame
	closed    chan struct{}
	closeOnce sync.Once
}

// NewChannel returns a push stream buffering up to size frames.
func NewChannel(size int) *Channel {
	if size < 0 {
		size = 0
	}
	return &Channel{
		frames: make(chan scanner.Frame, size),
		closed: make(chan struct{}),
	}
}

// Push queues a frame, blocking while the buffer is full.
func (c *Channel) Push(ctx context.Context, f scanner.Frame) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	select {
	case c.frames <- f:
		return nil
	case <-c.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the stream once buffered frames are consumed.
func (c *Channel) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

// Next implements scanner.InputStream.
func (c *Channel) Next(ctx context.Context) (scanner.Frame, error) {
	select {
	case f := <-c.frames:
		return f, nil
	default:
	}
	select {
	case f := <-c.frames:
		return f, nil
	case <-c.closed:
		select {
		case f := <-c.frames:
			return f, nil
		default:
			return scanner.Frame{}, io.EOF
		}
	case <-ctx.Done():
		return scanner.Frame{}, ctx.Err()
	}
}
