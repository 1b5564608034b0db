package testutil

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/stretchr/testify/require"
)

// Common barcode payloads with valid check digits.
const (
	SampleEAN13   = "5901234123457"
	SampleEAN8    = "96385074"
	SampleCode128 = "BARSCAN-42"
)

// BarcodeImageConfig controls synthetic barcode rendering.
type BarcodeImageConfig struct {
	Width  int // symbol width in pixels
	Height int // symbol height in pixels
	Margin int // white border added around the symbol
}

// DefaultBarcodeImageConfig returns a size that decodes reliably at full and half resolution.
func DefaultBarcodeImageConfig() BarcodeImageConfig {
	return BarcodeImageConfig{Width: 760, Height: 200, Margin: 40}
}

type encoder interface {
	Encode(contents string, format gozxing.BarcodeFormat, width, height int,
		hints map[gozxing.EncodeHintType]interface{}) (*gozxing.BitMatrix, error)
}

// RenderBarcode renders contents in the given symbology onto a white canvas.
func RenderBarcode(format gozxing.BarcodeFormat, contents string, cfg BarcodeImageConfig) (image.Image, error) {
	var enc encoder
	switch format {
	case gozxing.BarcodeFormat_EAN_13:
		enc = oned.NewEAN13Writer()
	case gozxing.BarcodeFormat_EAN_8:
		enc = oned.NewEAN8Writer()
	case gozxing.BarcodeFormat_CODE_128:
		enc = oned.NewCode128Writer()
	default:
		return nil, fmt.Errorf("no test writer for format %v", format)
	}

	matrix, err := enc.Encode(contents, format, cfg.Width, cfg.Height, nil)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", contents, err)
	}

	symbol := bitMatrixToGray(matrix)
	canvas := imaging.New(symbol.Bounds().Dx()+2*cfg.Margin, symbol.Bounds().Dy()+2*cfg.Margin, color.White)
	return imaging.Paste(canvas, symbol, image.Pt(cfg.Margin, cfg.Margin)), nil
}

// GenerateBarcode is RenderBarcode failing t on error.
func GenerateBarcode(t *testing.T, format gozxing.BarcodeFormat, contents string, cfg BarcodeImageConfig) image.Image {
	t.Helper()
	img, err := RenderBarcode(format, contents, cfg)
	require.NoError(t, err)
	return img
}

// EAN13Image renders an EAN-13 symbol with the default size.
func EAN13Image(t *testing.T, contents string) image.Image {
	t.Helper()
	return GenerateBarcode(t, gozxing.BarcodeFormat_EAN_13, contents, DefaultBarcodeImageConfig())
}

// EAN8Image renders an EAN-8 symbol with the default size.
func EAN8Image(t *testing.T, contents string) image.Image {
	t.Helper()
	return GenerateBarcode(t, gozxing.BarcodeFormat_EAN_8, contents, DefaultBarcodeImageConfig())
}

// Code128Image renders a Code-128 symbol with the default size.
func Code128Image(t *testing.T, contents string) image.Image {
	t.Helper()
	return GenerateBarcode(t, gozxing.BarcodeFormat_CODE_128, contents, DefaultBarcodeImageConfig())
}

// BlankImage returns a white frame with no symbol.
func BlankImage(width, height int) image.Image {
	return imaging.New(width, height, color.White)
}

// SideBySide places imgs left to right on a white canvas, top aligned.
func SideBySide(imgs ...image.Image) image.Image {
	var w, h int
	for _, img := range imgs {
		w += img.Bounds().Dx()
		h = max(h, img.Bounds().Dy())
	}
	canvas := imaging.New(w, h, color.White)
	x := 0
	for _, img := range imgs {
		canvas = imaging.Paste(canvas, img, image.Pt(x, 0))
		x += img.Bounds().Dx()
	}
	return canvas
}

// Offset returns img embedded in a larger canvas and cropped back, so the
// result has the same pixels as img but its bounds start at origin.
func Offset(img image.Image, origin image.Point) image.Image {
	b := img.Bounds()
	canvas := imaging.New(origin.X+b.Dx(), origin.Y+b.Dy(), color.White)
	canvas = imaging.Paste(canvas, img, origin)
	return canvas.SubImage(image.Rectangle{Min: origin, Max: origin.Add(b.Size())})
}

// SaveImage writes img into dir, encoded by the extension of name, and returns the path.
func SaveImage(t *testing.T, img image.Image, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, imaging.Save(img, path), "Failed to save image")
	return path
}

func bitMatrixToGray(m *gozxing.BitMatrix) *image.Gray {
	w, h := m.GetWidth(), m.GetHeight()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			if m.Get(x, y) {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}
