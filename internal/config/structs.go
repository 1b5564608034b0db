//nolint:lll
package config

// Config represents the complete configuration for barscan.
// It covers the scan and serve commands and is loaded from configuration
// files, environment variables and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level" validate:"oneof=debug info warn error"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`
	LogFile  string `mapstructure:"log_file" yaml:"log_file,omitempty" json:"log_file,omitempty"`

	// Scanner engine configuration
	Scanner ScannerConfig `mapstructure:"scanner" yaml:"scanner" json:"scanner"`

	// Input discovery for the scan command
	Input InputConfig `mapstructure:"input" yaml:"input" json:"input"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// ScannerConfig mirrors scanner.Configuration without the input stream.
type ScannerConfig struct {
	Locator      LocatorConfig `mapstructure:"locator" yaml:"locator" json:"locator"`
	NumOfWorkers int           `mapstructure:"num_of_workers" yaml:"num_of_workers" json:"num_of_workers" validate:"gte=0"`
	Frequency    int           `mapstructure:"frequency" yaml:"frequency" json:"frequency" validate:"gt=0"`
	Decoder      DecoderConfig `mapstructure:"decoder" yaml:"decoder" json:"decoder"`
}

// LocatorConfig contains localization settings.
type LocatorConfig struct {
	PatchSize  string `mapstructure:"patch_size" yaml:"patch_size" json:"patch_size" validate:"oneof=x-small small medium large x-large"`
	HalfSample bool   `mapstructure:"half_sample" yaml:"half_sample" json:"half_sample"`
}

// DecoderConfig contains the ordered reader list.
type DecoderConfig struct {
	Readers  []ReaderConfig `mapstructure:"readers" yaml:"readers" json:"readers" validate:"min=1,dive"`
	Multiple bool           `mapstructure:"multiple" yaml:"multiple" json:"multiple"`
}

// ReaderConfig is one reader entry. In files it may be written as a plain
// reader id or as an object with supplements.
type ReaderConfig struct {
	Format      string   `mapstructure:"format" yaml:"format" json:"format" validate:"required"`
	Supplements []string `mapstructure:"supplements" yaml:"supplements,omitempty" json:"supplements,omitempty" validate:"dive,required"`
}

// InputConfig contains file discovery settings.
type InputConfig struct {
	Recursive bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include   []string `mapstructure:"include" yaml:"include,omitempty" json:"include,omitempty"`
	Exclude   []string `mapstructure:"exclude" yaml:"exclude,omitempty" json:"exclude,omitempty"`
	PDFPages  string   `mapstructure:"pdf_pages" yaml:"pdf_pages,omitempty" json:"pdf_pages,omitempty"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format" validate:"oneof=text json"`
	File   string `mapstructure:"file" yaml:"file,omitempty" json:"file,omitempty"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host" validate:"required"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port" validate:"min=1,max=65535"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb" validate:"gt=0"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec" validate:"gt=0"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout" validate:"gte=0"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client request limits.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second" json:"requests_per_second" validate:"gte=0"`
	Burst             int     `mapstructure:"burst" yaml:"burst" json:"burst" validate:"gte=0"`
}
