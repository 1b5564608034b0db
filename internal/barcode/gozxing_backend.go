package barcode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"

	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
)

type gozxingBackend struct{}

func (b *gozxingBackend) Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error) {
	if img == nil {
		return nil, errors.New("barcode: nil image")
	}
	if len(opts.Readers) == 0 {
		return nil, ErrNoReaders
	}

	// Luminance coordinates start at zero; offset maps them back to img.
	offset := img.Bounds().Min
	if !opts.ROI.Empty() {
		if roiImg, ok := subImage(img, opts.ROI); ok {
			offset = opts.ROI.Intersect(img.Bounds()).Min
			img = roiImg
		}
	}

	bitmap, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("barcode: binarize frame: %w", err)
	}

	var out []Result
	seen := make(map[string]bool)
	for _, rd := range opts.Readers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		reader, err := newZXingReader(rd.Format)
		if err != nil {
			return nil, err
		}
		hints := buildHints(rd, opts)

		if opts.Multi {
			for _, hit := range decodeAll(reader, bitmap, hints) {
				res := convertResult(hit.result, offset.Add(hit.off))
				key := res.FormatName + "|" + res.Text + "|" + res.Supplement
				if seen[key] {
					continue
				}
				seen[key] = true
				out = append(out, res)
			}
			continue
		}

		r, err := reader.Decode(bitmap, hints)
		if err != nil || r == nil {
			// Not found, checksum and format failures all mean "this reader missed".
			continue
		}
		return []Result{convertResult(r, offset)}, nil
	}

	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

func buildHints(rd Reader, opts Options) map[gozxing.DecodeHintType]interface{} {
	hints := make(map[gozxing.DecodeHintType]interface{})
	if bf, ok := mapFormatToZXing(rd.Format); ok {
		hints[gozxing.DecodeHintType_POSSIBLE_FORMATS] = []gozxing.BarcodeFormat{bf}
	}
	if opts.TryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}
	if lengths := supplementLengths(rd.Supplements); len(lengths) > 0 {
		hints[gozxing.DecodeHintType_ALLOWED_EAN_EXTENSIONS] = lengths
	}
	return hints
}

func newZXingReader(f Format) (gozxing.Reader, error) {
	switch f {
	case FormatEAN13:
		return oned.NewEAN13Reader(), nil
	case FormatEAN8:
		return oned.NewEAN8Reader(), nil
	case FormatUPCA:
		return oned.NewUPCAReader(), nil
	case FormatUPCE:
		return oned.NewUPCEReader(), nil
	case FormatCode128:
		return oned.NewCode128Reader(), nil
	case FormatCode39:
		return oned.NewCode39Reader(), nil
	case FormatCode93:
		return oned.NewCode93Reader(), nil
	case FormatCodabar:
		return oned.NewCodaBarReader(), nil
	case FormatITF:
		return oned.NewITFReader(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedReader, f)
	}
}

func convertResult(r *gozxing.Result, offset image.Point) Result {
	f := mapFormatFromZXing(r.GetBarcodeFormat())
	var points []Point
	if pts := r.GetResultPoints(); len(pts) > 0 {
		points = make([]Point, 0, len(pts))
		for _, p := range pts {
			points = append(points, Point{X: int(p.GetX()) + offset.X, Y: int(p.GetY()) + offset.Y})
		}
	}
	res := Result{
		Format:     f,
		FormatName: f.String(),
		Text:       r.GetText(),
		Points:     points,
		BBox:       rectFromPoints(points),
	}
	if ext, ok := r.GetResultMetadata()[gozxing.ResultMetadataType_UPC_EAN_EXTENSION]; ok {
		res.Supplement = fmt.Sprint(ext)
	}
	return res
}

func mapFormatToZXing(f Format) (gozxing.BarcodeFormat, bool) {
	switch f {
	case FormatEAN13:
		return gozxing.BarcodeFormat_EAN_13, true
	case FormatEAN8:
		return gozxing.BarcodeFormat_EAN_8, true
	case FormatUPCA:
		return gozxing.BarcodeFormat_UPC_A, true
	case FormatUPCE:
		return gozxing.BarcodeFormat_UPC_E, true
	case FormatCode128:
		return gozxing.BarcodeFormat_CODE_128, true
	case FormatCode39:
		return gozxing.BarcodeFormat_CODE_39, true
	case FormatCode93:
		return gozxing.BarcodeFormat_CODE_93, true
	case FormatCodabar:
		return gozxing.BarcodeFormat_CODABAR, true
	case FormatITF:
		return gozxing.BarcodeFormat_ITF, true
	default:
		return 0, false
	}
}

func mapFormatFromZXing(bf gozxing.BarcodeFormat) Format {
	switch bf {
	case gozxing.BarcodeFormat_EAN_13:
		return FormatEAN13
	case gozxing.BarcodeFormat_EAN_8:
		return FormatEAN8
	case gozxing.BarcodeFormat_UPC_A:
		return FormatUPCA
	case gozxing.BarcodeFormat_UPC_E:
		return FormatUPCE
	case gozxing.BarcodeFormat_CODE_128:
		return FormatCode128
	case gozxing.BarcodeFormat_CODE_39:
		return FormatCode39
	case gozxing.BarcodeFormat_CODE_93:
		return FormatCode93
	case gozxing.BarcodeFormat_CODABAR:
		return FormatCodabar
	case gozxing.BarcodeFormat_ITF:
		return FormatITF
	default:
		return FormatUnknown
	}
}

func rectFromPoints(pts []Point) image.Rectangle {
	if len(pts) == 0 {
		return image.Rectangle{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// subImage copies the part of img inside r.
func subImage(img image.Image, r image.Rectangle) (image.Image, bool) {
	rb := r.Intersect(img.Bounds())
	if rb.Empty() {
		return nil, false
	}
	// Copy into a zero-origin RGBA so luminance coordinates are ROI-relative.
	dst := image.NewRGBA(image.Rect(0, 0, rb.Dx(), rb.Dy()))
	draw.Draw(dst, dst.Bounds(), img, rb.Min, draw.Src)
	return dst, true
}
