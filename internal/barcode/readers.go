package barcode

import (
	"fmt"
	"sort"
	"strings"
)

// Reader identifiers accepted in scanner configuration.
const (
	ReaderEAN       = "ean_reader"
	ReaderEAN8      = "ean_8_reader"
	ReaderUPC       = "upc_reader"
	ReaderUPCE      = "upc_e_reader"
	ReaderCode128   = "code_128_reader"
	ReaderCode39    = "code_39_reader"
	ReaderCode39VIN = "code_39_vin_reader"
	ReaderCode93    = "code_93_reader"
	ReaderCode32    = "code_32_reader"
	ReaderCodabar   = "codabar_reader"
	ReaderI2of5     = "i2of5_reader"
	Reader2of5      = "2of5_reader"
	ReaderEAN2      = "ean_2_reader"
	ReaderEAN5      = "ean_5_reader"
)

var primaryReaders = map[string]Format{
	ReaderEAN:     FormatEAN13,
	ReaderEAN8:    FormatEAN8,
	ReaderUPC:     FormatUPCA,
	ReaderUPCE:    FormatUPCE,
	ReaderCode128: FormatCode128,
	ReaderCode39:  FormatCode39,
	ReaderCode93:  FormatCode93,
	ReaderCodabar: FormatCodabar,
	ReaderI2of5:   FormatITF,
}

var supplementReaders = map[string]Format{
	ReaderEAN2: FormatEAN2,
	ReaderEAN5: FormatEAN5,
}

// Known but not decodable by the gozxing backend.
var unsupportedReaders = map[string]bool{
	ReaderCode39VIN: true,
	ReaderCode32:    true,
	Reader2of5:      true,
}

// ParseReader resolves a primary reader identifier to its symbology.
func ParseReader(id string) (Format, error) {
	key := strings.ToLower(strings.TrimSpace(id))
	if f, ok := primaryReaders[key]; ok {
		return f, nil
	}
	if _, ok := supplementReaders[key]; ok {
		return FormatUnknown, fmt.Errorf("%w: %s is only valid as a supplement", ErrUnsupportedReader, id)
	}
	if unsupportedReaders[key] {
		return FormatUnknown, fmt.Errorf("%w: %s has no decoder in this build", ErrUnsupportedReader, id)
	}
	return FormatUnknown, fmt.Errorf("%w: unknown reader %q", ErrUnsupportedReader, id)
}

// NewReader builds a decode plan entry from a reader identifier and its
// optional supplement identifiers.
func NewReader(id string, supplements []string) (Reader, error) {
	f, err := ParseReader(id)
	if err != nil {
		return Reader{}, err
	}
	rd := Reader{Format: f}
	if len(supplements) == 0 {
		return rd, nil
	}
	if !acceptsSupplements(f) {
		return Reader{}, fmt.Errorf("%w: %s does not take supplements", ErrUnsupportedReader, id)
	}
	for _, s := range supplements {
		sf, ok := supplementReaders[strings.ToLower(strings.TrimSpace(s))]
		if !ok {
			return Reader{}, fmt.Errorf("%w: unknown supplement %q for %s", ErrUnsupportedReader, s, id)
		}
		rd.Supplements = append(rd.Supplements, sf)
	}
	return rd, nil
}

func acceptsSupplements(f Format) bool {
	switch f {
	case FormatEAN13, FormatUPCA, FormatUPCE:
		return true
	default:
		return false
	}
}

// SupportedReaders lists the primary reader identifiers the backend decodes.
func SupportedReaders() []string {
	ids := make([]string, 0, len(primaryReaders))
	for id := range primaryReaders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SupplementReaders lists the supplement reader identifiers.
func SupplementReaders() []string {
	return []string{ReaderEAN2, ReaderEAN5}
}

// supplementLengths maps supplement formats to the digit counts the
// underlying extension decoder reports.
func supplementLengths(fs []Format) []int {
	out := make([]int, 0, len(fs))
	for _, f := range fs {
		switch f {
		case FormatEAN2:
			out = append(out, 2)
		case FormatEAN5:
			out = append(out, 5)
		}
	}
	return out
}
