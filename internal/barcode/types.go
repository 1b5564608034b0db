package barcode

import (
	"context"
	"errors"
	"image"
)

// Format represents a barcode symbology.
type Format int

const (
	FormatUnknown Format = iota
	FormatEAN13
	FormatEAN8
	FormatUPCA
	FormatUPCE
	FormatCode128
	FormatCode39
	FormatCode93
	FormatCodabar
	FormatITF
	FormatEAN2
	FormatEAN5
)

var formatNames = map[Format]string{
	FormatEAN13:   "ean_13",
	FormatEAN8:    "ean_8",
	FormatUPCA:    "upc_a",
	FormatUPCE:    "upc_e",
	FormatCode128: "code_128",
	FormatCode39:  "code_39",
	FormatCode93:  "code_93",
	FormatCodabar: "codabar",
	FormatITF:     "i2of5",
	FormatEAN2:    "ean_2",
	FormatEAN5:    "ean_5",
}

// String returns the short symbology name used in results.
func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return "unknown"
}

var (
	// ErrNotFound is returned when no reader found a symbol in the frame.
	ErrNotFound = errors.New("barcode: no symbol found")

	// ErrUnsupportedReader is returned for reader identifiers the backend cannot decode.
	ErrUnsupportedReader = errors.New("barcode: unsupported reader")

	// ErrNoReaders is returned when Decode is called without any reader.
	ErrNoReaders = errors.New("barcode: no readers configured")
)

// Reader is one entry of an ordered decode plan.
type Reader struct {
	Format Format
	// Supplements lists the add-on symbologies that must follow the primary
	// symbol. Empty means add-ons are neither required nor rejected.
	Supplements []Format
}

// Options controls backend decoding behavior.
type Options struct {
	// Readers are tried in order; the first one that decodes wins unless Multi is set.
	Readers []Reader

	// TryHarder enables more exhaustive search (slower but more robust).
	TryHarder bool

	// Multi reports every symbol found in the frame.
	Multi bool

	// ROI optionally restricts decoding to a sub-rectangle of the image.
	// If zero-sized or out of bounds, backends ignore it.
	ROI image.Rectangle
}

// Point is an integer point in image coordinates.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Result represents a decoded barcode.
type Result struct {
	Format     Format          `json:"-"`
	FormatName string          `json:"format"`
	Text       string          `json:"code"`
	Supplement string          `json:"supplement,omitempty"`
	Points     []Point         `json:"points,omitempty"`
	BBox       image.Rectangle `json:"-"`
}

// Backend is a pluggable barcode decoder implementation.
type Backend interface {
	Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error)
}

// NewBackend returns the default gozxing-backed implementation.
func NewBackend() Backend { return &gozxingBackend{} }

// Scale multiplies all coordinates of r by factor.
func (r Result) Scale(factor int) Result {
	if factor == 1 {
		return r
	}
	pts := make([]Point, len(r.Points))
	for i, p := range r.Points {
		pts[i] = Point{X: p.X * factor, Y: p.Y * factor}
	}
	r.Points = pts
	r.BBox = image.Rect(r.BBox.Min.X*factor, r.BBox.Min.Y*factor, r.BBox.Max.X*factor, r.BBox.Max.Y*factor)
	return r
}

// Translate shifts all coordinates of r by d.
func (r Result) Translate(d image.Point) Result {
	if d == (image.Point{}) {
		return r
	}
	pts := make([]Point, len(r.Points))
	for i, p := range r.Points {
		pts[i] = Point{X: p.X + d.X, Y: p.Y + d.Y}
	}
	r.Points = pts
	r.BBox = r.BBox.Add(d)
	return r
}
