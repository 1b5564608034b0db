package testutil

import (
	"image"
	"image/color"
	"testing"

	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/stretchr/testify/assert"
)

func TestGenerateBarcodeAddsMargin(t *testing.T) {
	cfg := DefaultBarcodeImageConfig()
	img := GenerateBarcode(t, gozxing.BarcodeFormat_EAN_13, SampleEAN13, cfg)
	b := img.Bounds()
	assert.GreaterOrEqual(t, b.Dx(), cfg.Width+2*cfg.Margin)
	assert.GreaterOrEqual(t, b.Dy(), cfg.Height+2*cfg.Margin)
}

func TestSaveImage(t *testing.T) {
	dir := t.TempDir()
	path := SaveImage(t, BlankImage(10, 10), dir, "blank.png")
	assert.True(t, FileExists(path))
}

func TestRenderBarcodeUnsupportedFormat(t *testing.T) {
	_, err := RenderBarcode(gozxing.BarcodeFormat_QR_CODE, "x", DefaultBarcodeImageConfig())
	assert.Error(t, err)
}

func TestRenderBarcodeBadContents(t *testing.T) {
	_, err := RenderBarcode(gozxing.BarcodeFormat_EAN_13, "12", DefaultBarcodeImageConfig())
	assert.Error(t, err)
}

func TestSideBySide(t *testing.T) {
	img := SideBySide(BlankImage(30, 20), BlankImage(50, 40))
	assert.Equal(t, image.Rect(0, 0, 80, 40), img.Bounds())
}

func TestOffsetKeepsPixels(t *testing.T) {
	src := BlankImage(10, 10)
	img := Offset(src, image.Pt(7, 3))
	assert.Equal(t, image.Rect(7, 3, 17, 13), img.Bounds())
	r, g, b, _ := img.At(7, 3).RGBA()
	wr, wg, wb, _ := color.White.RGBA()
	assert.Equal(t, []uint32{wr, wg, wb}, []uint32{r, g, b})
}
