package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/MeKo-Tech/barscan/internal/scanner"
	"github.com/MeKo-Tech/barscan/internal/source"
	"github.com/go-playground/validator/v10"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	sc := scanner.DefaultConfiguration()
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Scanner: ScannerConfig{
			Locator: LocatorConfig{
				PatchSize:  sc.Locator.PatchSize,
				HalfSample: sc.Locator.HalfSample,
			},
			NumOfWorkers: sc.NumOfWorkers,
			Frequency:    sc.Frequency,
			Decoder:      fromDecoder(sc.Decoder),
		},
		Output: OutputConfig{
			Format: "text",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     20,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerSecond: 10,
				Burst:             20,
			},
		},
	}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// structValidator returns the shared validator, reporting fields by their
// configuration key rather than their Go name.
func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("mapstructure"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if err := structValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return formatValidationError(verrs[0])
		}
		return err
	}

	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("invalid server.rate_limit.requests_per_second: %g (must be positive when enabled)",
			c.Server.RateLimit.RequestsPerSecond)
	}
	if err := source.ValidatePageRange(c.Input.PDFPages); err != nil {
		return fmt.Errorf("invalid input.pdf_pages: %w", err)
	}
	return nil
}

// formatValidationError turns a validator failure into a message naming the
// configuration key, e.g. "invalid scanner.frequency: 0 (must be gt 0)".
func formatValidationError(fe validator.FieldError) error {
	key := fe.Namespace()
	if _, rest, ok := strings.Cut(key, "."); ok {
		key = rest
	}
	rule := fe.Tag()
	if fe.Param() != "" {
		rule += " " + fe.Param()
	}
	return fmt.Errorf("invalid %s: %v (must be %s)", key, fe.Value(), rule)
}

// ToScannerOptions converts the scanner section into adapter options for the
// given input stream. Every section is set, so the config file (with its
// defaults) fully determines the resolved configuration.
func (c *Config) ToScannerOptions(stream scanner.InputStream) scanner.Options {
	return scanner.Options{
		InputStream: stream,
		Locator: &scanner.Locator{
			PatchSize:  c.Scanner.Locator.PatchSize,
			HalfSample: c.Scanner.Locator.HalfSample,
		},
		NumOfWorkers: scanner.Int(c.Scanner.NumOfWorkers),
		Frequency:    scanner.Int(c.Scanner.Frequency),
		Decoder:      c.toDecoder(),
	}
}

// ToDiscoverOptions converts the input section for source.Discover.
func (c *Config) ToDiscoverOptions() source.DiscoverOptions {
	return source.DiscoverOptions{
		Recursive: c.Input.Recursive,
		Include:   c.Input.Include,
		Exclude:   c.Input.Exclude,
	}
}

func (c *Config) toDecoder() *scanner.Decoder {
	d := &scanner.Decoder{Multiple: c.Scanner.Decoder.Multiple}
	for _, r := range c.Scanner.Decoder.Readers {
		d.Readers = append(d.Readers, scanner.Reader(r.Format, r.Supplements...))
	}
	return d
}

func fromDecoder(d scanner.Decoder) DecoderConfig {
	out := DecoderConfig{Multiple: d.Multiple}
	for _, r := range d.Readers {
		out.Readers = append(out.Readers, ReaderConfig{Format: r.Format, Supplements: r.Supplements})
	}
	return out
}

// ParseReaderList parses a comma separated reader list as used by flags and
// environment variables. An entry may carry supplements after a '+', e.g.
// "ean_reader+ean_5_reader+ean_2_reader,code_128_reader".
func ParseReaderList(s string) []ReaderConfig {
	var readers []ReaderConfig
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, "+")
		rc := ReaderConfig{Format: strings.TrimSpace(parts[0])}
		for _, sup := range parts[1:] {
			if sup = strings.TrimSpace(sup); sup != "" {
				rc.Supplements = append(rc.Supplements, sup)
			}
		}
		readers = append(readers, rc)
	}
	return readers
}
