package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/scanner"
	"github.com/disintegration/imaging"
)

// Frames narrower or shorter than this are never half-sampled.
const minHalfSampleSide = 160

// exhaustiveSearch maps the locator patch size onto the decoder's search
// effort: fine patches trade speed for recall.
func exhaustiveSearch(patchSize string) bool {
	switch patchSize {
	case scanner.PatchSizeXSmall, scanner.PatchSizeSmall:
		return true
	default:
		return false
	}
}

type frameDecoder struct {
	backend barcode.Backend
	plan    decodePlan
}

func (d *frameDecoder) decode(ctx context.Context, job frameJob) scanner.Result {
	start := time.Now()
	res := scanner.Result{
		FrameID:   job.seq,
		Source:    job.frame.Source,
		Timestamp: job.at,
	}

	codes, err := d.decodeImage(ctx, job.frame.Image)
	res.Duration = time.Since(start)
	decodeDuration.Observe(res.Duration.Seconds())
	framesProcessed.Inc()

	switch {
	case err == nil:
		res.Codes = codes
		for _, c := range codes {
			detectionsTotal.WithLabelValues(c.FormatName).Inc()
		}
	case errors.Is(err, barcode.ErrNotFound), errors.Is(err, context.Canceled):
	default:
		frameErrors.Inc()
		res.Err = err
		slog.Debug("Frame decode failed", "frame", job.seq, "source", job.frame.Source, "error", err)
	}
	return res
}

// decodeImage tries a half-resolution copy first when half sampling is
// enabled and falls back to the full frame on a miss.
func (d *frameDecoder) decodeImage(ctx context.Context, img image.Image) ([]barcode.Result, error) {
	if img == nil {
		return nil, errors.New("engine: frame has no image")
	}
	opts := barcode.Options{
		Readers:   d.plan.readers,
		TryHarder: d.plan.tryHarder,
		Multi:     d.plan.multiple,
	}

	if d.plan.halfSample {
		if small, ok := halfSample(img); ok {
			codes, err := d.backend.Decode(ctx, small, opts)
			if err == nil {
				// The resized copy has a zero origin.
				for i := range codes {
					codes[i] = codes[i].Scale(2).Translate(img.Bounds().Min)
				}
				return codes, nil
			}
			if !errors.Is(err, barcode.ErrNotFound) {
				return nil, fmt.Errorf("half-sampled decode: %w", err)
			}
		}
	}
	return d.backend.Decode(ctx, img, opts)
}

// halfSample returns img at half width and height.
func halfSample(img image.Image) (image.Image, bool) {
	b := img.Bounds()
	if b.Dx() < minHalfSampleSide || b.Dy() < minHalfSampleSide {
		return nil, false
	}
	return imaging.Resize(img, b.Dx()/2, b.Dy()/2, imaging.Box), true
}
