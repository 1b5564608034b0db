package server

import (
	"context"
	"errors"
	"image"
	"io"
	"strings"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/config"
	"github.com/MeKo-Tech/barscan/internal/scanner"
	"github.com/MeKo-Tech/barscan/internal/source"
)

type nopStream struct{}

func (nopStream) Next(context.Context) (scanner.Frame, error) { return scanner.Frame{}, io.EOF }

// optionsFor returns a copy of the server's scan options reading from
// stream. A non-empty readers list ("ean_reader+ean_5_reader,code_128_reader")
// replaces the configured decoder readers.
func (s *Server) optionsFor(stream scanner.InputStream, readers string) scanner.Options {
	opts := s.scanOptions
	opts.InputStream = stream

	if strings.TrimSpace(readers) != "" {
		d := &scanner.Decoder{}
		if opts.Decoder != nil {
			d.Multiple = opts.Decoder.Multiple
		}
		for _, rc := range config.ParseReaderList(readers) {
			d.Readers = append(d.Readers, scanner.Reader(rc.Format, rc.Supplements...))
		}
		opts.Decoder = d
	}
	return opts
}

// session is one adapter plus its engine, alive for a request or a
// websocket connection.
type session struct {
	adapter *scanner.Adapter
}

// openSession creates an engine and adapter and waits for initialization.
func (s *Server) openSession(ctx context.Context, opts scanner.Options, onDetected, onProcessed scanner.Handler) (*session, error) {
	a, initDone, err := scanner.Open(ctx, s.newEngine(), &opts, onDetected, onProcessed)
	if err != nil {
		return nil, err
	}
	select {
	case err := <-initDone:
		if err != nil {
			return nil, err
		}
	case <-ctx.Done():
		// Init may still succeed and start the engine; stop it when it does.
		go func() {
			if err := <-initDone; err == nil {
				_ = a.Stop()
			}
		}()
		return nil, ctx.Err()
	}
	return &session{adapter: a}, nil
}

func (ss *session) close() {
	_ = ss.adapter.Stop()
}

// scanImage runs a single frame through a fresh scanner and returns its
// processed result.
func (s *Server) scanImage(ctx context.Context, img image.Image, name, readers string) (scanner.Result, error) {
	processed := make(chan scanner.Result, 1)
	onProcessed := func(r scanner.Result) {
		select {
		case processed <- r:
		default:
		}
	}

	stream := source.FromFrames(scanner.Frame{Image: img, Source: name})
	ss, err := s.openSession(ctx, s.optionsFor(stream, readers), func(scanner.Result) {}, onProcessed)
	if err != nil {
		return scanner.Result{}, err
	}
	defer ss.close()

	select {
	case r := <-processed:
		return r, nil
	case <-ctx.Done():
		return scanner.Result{}, ctx.Err()
	}
}

func toScanResult(r scanner.Result) *ScanResult {
	out := &ScanResult{
		Frame:      r.FrameID,
		Source:     r.Source,
		Detected:   r.Detected(),
		Codes:      r.Codes,
		DurationMs: float64(r.Duration.Microseconds()) / 1000,
	}
	if out.Codes == nil {
		out.Codes = []barcode.Result{}
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}

// isClientConfigError reports errors caused by request parameters rather
// than server faults.
func isClientConfigError(err error) bool {
	var cfgErr *scanner.ConfigurationError
	var initErr *scanner.EngineInitError
	return errors.As(err, &cfgErr) || errors.As(err, &initErr)
}
