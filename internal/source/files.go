package source

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/barscan/internal/scanner"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Files streams frames from image files and the embedded images of PDF
// documents, in path order. Unreadable files are logged and skipped.
type Files struct {
	mu      sync.Mutex
	paths   []string
	pages   string
	pending []scanner.Frame
	skipped []string
}

// NewFiles returns a stream over paths. pages restricts PDF extraction to a
// page range such as "1-3,5"; empty means all pages.
func NewFiles(paths []string, pages string) (*Files, error) {
	if err := ValidatePageRange(pages); err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", pages, err)
	}
	return &Files{paths: append([]string(nil), paths...), pages: pages}, nil
}

// Open discovers input files under args and returns a stream over them.
func Open(args []string, opts DiscoverOptions, pages string) (*Files, error) {
	paths, err := Discover(args, opts)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no supported input files found in %v", args)
	}
	return NewFiles(paths, pages)
}

// Next implements scanner.InputStream.
func (f *Files) Next(ctx context.Context) (scanner.Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return scanner.Frame{}, err
		}
		if len(f.pending) > 0 {
			frame := f.pending[0]
			f.pending = f.pending[1:]
			return frame, nil
		}
		if len(f.paths) == 0 {
			return scanner.Frame{}, io.EOF
		}

		path := f.paths[0]
		f.paths = f.paths[1:]

		if isPDF(path) {
			frames, err := extractPDFFrames(path, f.pages)
			if err != nil {
				slog.Warn("Skipping PDF", "path", path, "error", err)
				f.skipped = append(f.skipped, path)
				continue
			}
			f.pending = frames
			continue
		}

		img, err := LoadImage(path)
		if err != nil {
			slog.Warn("Skipping image", "path", path, "error", err)
			f.skipped = append(f.skipped, path)
			continue
		}
		return scanner.Frame{Image: img, Source: path}, nil
	}
}

// Skipped returns the paths that could not be read so far.
func (f *Files) Skipped() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.skipped...)
}

// LoadImage opens and decodes an image file, honoring EXIF orientation.
func LoadImage(path string) (image.Image, error) {
	if !IsSupported(path) || isPDF(path) {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("unsupported format")}
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return img, nil
}

// LoadError reports a frame source file that could not be decoded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load %s: %v", e.Path, e.Err) }

func (e *LoadError) Unwrap() error { return e.Err }
