package scanner

import (
	"fmt"
	"slices"

	"github.com/MeKo-Tech/barscan/internal/barcode"
)

// Locator patch sizes.
const (
	PatchSizeXSmall = "x-small"
	PatchSizeSmall  = "small"
	PatchSizeMedium = "medium"
	PatchSizeLarge  = "large"
	PatchSizeXLarge = "x-large"
)

// PatchSizes lists the accepted locator patch sizes, finest first.
var PatchSizes = []string{PatchSizeXSmall, PatchSizeSmall, PatchSizeMedium, PatchSizeLarge, PatchSizeXLarge}

// Default values applied to every field the caller leaves unset.
const (
	DefaultNumOfWorkers = 2
	DefaultFrequency    = 10
)

// Locator controls how the engine searches a frame for candidate regions.
type Locator struct {
	PatchSize  string `json:"patchSize"`
	HalfSample bool   `json:"halfSample"`
}

// ReaderSpec names one reader and the supplement readers that must follow its symbol.
type ReaderSpec struct {
	Format      string   `json:"format"`
	Supplements []string `json:"supplements,omitempty"`
}

// Reader is shorthand for building a ReaderSpec.
func Reader(format string, supplements ...string) ReaderSpec {
	return ReaderSpec{Format: format, Supplements: supplements}
}

// Decoder holds the ordered reader list.
type Decoder struct {
	Readers  []ReaderSpec `json:"readers"`
	Multiple bool         `json:"multiple"`
}

func (d Decoder) clone() Decoder {
	out := Decoder{Multiple: d.Multiple, Readers: make([]ReaderSpec, len(d.Readers))}
	for i, r := range d.Readers {
		out.Readers[i] = ReaderSpec{Format: r.Format, Supplements: slices.Clone(r.Supplements)}
	}
	return out
}

// Configuration is the fully resolved scan configuration handed to the engine.
type Configuration struct {
	InputStream  InputStream `json:"-"`
	Locator      Locator     `json:"locator"`
	NumOfWorkers int         `json:"numOfWorkers"`
	Frequency    int         `json:"frequency"`
	Decoder      Decoder     `json:"decoder"`
	// Locate is always true; callers cannot switch localization off.
	Locate bool `json:"locate"`
}

func (c Configuration) clone() Configuration {
	c.Decoder = c.Decoder.clone()
	return c
}

// Options are the caller-supplied settings. A nil field falls back to its
// default; a non-nil field replaces the whole default sub-object.
type Options struct {
	InputStream  InputStream
	Locator      *Locator
	NumOfWorkers *int
	Frequency    *int
	Decoder      *Decoder
}

// Int returns a pointer to n, for filling Options.
func Int(n int) *int { return &n }

// DefaultDecoder returns the default reader list.
func DefaultDecoder() Decoder {
	return Decoder{
		Readers: []ReaderSpec{
			Reader(barcode.ReaderEAN),
			Reader(barcode.ReaderEAN8),
			Reader(barcode.ReaderEAN, barcode.ReaderEAN5, barcode.ReaderEAN2),
			Reader(barcode.ReaderUPC),
			Reader(barcode.ReaderUPCE),
			Reader(barcode.ReaderCode128),
		},
	}
}

// DefaultConfiguration returns the defaults with no input stream.
func DefaultConfiguration() Configuration {
	return Configuration{
		Locator:      Locator{PatchSize: PatchSizeMedium, HalfSample: true},
		NumOfWorkers: DefaultNumOfWorkers,
		Frequency:    DefaultFrequency,
		Decoder:      DefaultDecoder(),
		Locate:       true,
	}
}

// Merge resolves opts against the defaults. It has no side effects.
func Merge(opts Options) (Configuration, error) {
	cfg := DefaultConfiguration()
	cfg.InputStream = opts.InputStream
	if opts.Locator != nil {
		cfg.Locator = *opts.Locator
	}
	if opts.NumOfWorkers != nil {
		cfg.NumOfWorkers = *opts.NumOfWorkers
	}
	if opts.Frequency != nil {
		cfg.Frequency = *opts.Frequency
	}
	if opts.Decoder != nil {
		cfg.Decoder = opts.Decoder.clone()
	}
	cfg.Locate = true

	if err := cfg.validate(); err != nil {
		return Configuration{}, err
	}
	return cfg, nil
}

func (c Configuration) validate() error {
	if c.InputStream == nil {
		return &ConfigurationError{Field: "inputStream", Reason: "missing"}
	}
	if !slices.Contains(PatchSizes, c.Locator.PatchSize) {
		return &ConfigurationError{
			Field:  "locator.patchSize",
			Reason: fmt.Sprintf("%q is not one of %v", c.Locator.PatchSize, PatchSizes),
		}
	}
	if c.NumOfWorkers < 0 {
		return &ConfigurationError{Field: "numOfWorkers", Reason: fmt.Sprintf("%d is negative", c.NumOfWorkers)}
	}
	if c.Frequency <= 0 {
		return &ConfigurationError{Field: "frequency", Reason: fmt.Sprintf("%d is not positive", c.Frequency)}
	}
	if len(c.Decoder.Readers) == 0 {
		return &ConfigurationError{Field: "decoder.readers", Reason: "at least one reader is required"}
	}
	for i, r := range c.Decoder.Readers {
		if r.Format == "" {
			return &ConfigurationError{Field: fmt.Sprintf("decoder.readers[%d]", i), Reason: "empty reader name"}
		}
	}
	return nil
}
