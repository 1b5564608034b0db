package barcode

import (
	"image"
	"math"

	gozxing "github.com/makiuchi-d/gozxing"
)

const (
	// Regions narrower or shorter than this are not searched again.
	minRegionToRecurse = 100
	maxRegionDepth     = 4
)

// regionHit is a symbol found inside a cropped region; off is the region's
// origin in the searched bitmap.
type regionHit struct {
	result *gozxing.Result
	off    image.Point
}

// decodeAll finds every symbol reader can decode in bitmap. After each hit
// the regions left, above, right and below the symbol are searched again.
func decodeAll(reader gozxing.Reader, bitmap *gozxing.BinaryBitmap, hints map[gozxing.DecodeHintType]interface{}) []regionHit {
	var hits []regionHit
	searchRegion(reader, bitmap, hints, image.Point{}, 0, &hits)
	return hits
}

func searchRegion(reader gozxing.Reader, bitmap *gozxing.BinaryBitmap, hints map[gozxing.DecodeHintType]interface{},
	off image.Point, depth int, hits *[]regionHit,
) {
	if depth > maxRegionDepth {
		return
	}
	r, err := reader.Decode(bitmap, hints)
	reader.Reset()
	if err != nil || r == nil {
		return
	}

	dup := false
	for _, h := range *hits {
		if h.result.GetText() == r.GetText() {
			dup = true
			break
		}
	}
	if !dup {
		*hits = append(*hits, regionHit{result: r, off: off})
	}

	pts := r.GetResultPoints()
	if len(pts) == 0 || !bitmap.IsCropSupported() {
		return
	}

	width, height := bitmap.GetWidth(), bitmap.GetHeight()
	minX, minY := float64(width), float64(height)
	maxX, maxY := 0.0, 0.0
	for _, p := range pts {
		if p == nil {
			continue
		}
		minX = math.Min(minX, p.GetX())
		minY = math.Min(minY, p.GetY())
		maxX = math.Max(maxX, p.GetX())
		maxY = math.Max(maxY, p.GetY())
	}

	crop := func(left, top, w, h int) {
		sub, err := bitmap.Crop(left, top, w, h)
		if err != nil {
			return
		}
		searchRegion(reader, sub, hints, off.Add(image.Pt(left, top)), depth+1, hits)
	}

	if minX > minRegionToRecurse {
		crop(0, 0, int(minX), height)
	}
	if minY > minRegionToRecurse {
		crop(0, 0, width, int(minY))
	}
	if maxX < float64(width-minRegionToRecurse) {
		crop(int(maxX), 0, width-int(maxX), height)
	}
	if maxY < float64(height-minRegionToRecurse) {
		crop(0, int(maxY), width, height-int(maxY))
	}
}
