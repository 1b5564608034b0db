package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "barscan"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "BARSCAN"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on the global viper instance so that flag
// bindings made by the root command apply.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// NewLoaderWithViper creates a loader on a dedicated viper instance.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load loads configuration from files, environment variables and defaults,
// then validates it.
func (l *Loader) Load() (*Config, error) {
	return l.LoadWithFile("")
}

// LoadWithoutValidation is Load without the validation step.
func (l *Loader) LoadWithoutValidation() (*Config, error) {
	return l.LoadWithFileWithoutValidation("")
}

// LoadWithFile loads configuration from a specific file path. An empty path
// searches the standard locations.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	config, err := l.LoadWithFileWithoutValidation(configFile)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// LoadWithFileWithoutValidation loads configuration from a specific file path without validation.
func (l *Loader) LoadWithFileWithoutValidation(configFile string) (*Config, error) {
	if err := l.readConfig(configFile); err != nil {
		return nil, err
	}

	var config Config
	if err := l.v.Unmarshal(&config, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// Current unmarshals the settings already loaded, picking up flags bound
// after the initial load, and validates the result.
func (l *Loader) Current() (*Config, error) {
	var config Config
	if err := l.v.Unmarshal(&config, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &config, nil
}

func (l *Loader) readConfig(configFile string) error {
	l.setupEnvironmentVariables()
	l.setDefaults()

	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
		if err := l.v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		return nil
	}

	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")
	l.addConfigPaths()

	if err := l.v.ReadInConfig(); err != nil {
		// A missing file is fine; defaults and env vars still apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// decodeHook extends viper's default hooks so decoder readers can be given
// as plain ids, objects, or a comma separated string.
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		readerHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

var (
	readerType      = reflect.TypeOf(ReaderConfig{})
	readerSliceType = reflect.TypeOf([]ReaderConfig{})
)

func readerHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	s, _ := data.(string)
	switch to {
	case readerSliceType:
		return ParseReaderList(s), nil
	case readerType:
		rc := ParseReaderList(s)
		if len(rc) != 1 {
			return nil, fmt.Errorf("invalid reader entry %q", s)
		}
		return rc[0], nil
	}
	return data, nil
}

// Get returns a value from the configuration.
func (l *Loader) Get(key string) any {
	return l.v.Get(key)
}

// GetString returns a string value from the configuration.
func (l *Loader) GetString(key string) string {
	return l.v.GetString(key)
}

// Set sets a value in the configuration.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance for advanced usage.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults registers every key so AutomaticEnv can resolve it.
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("log_level", defaults.LogLevel)
	l.v.SetDefault("verbose", defaults.Verbose)
	l.v.SetDefault("log_file", defaults.LogFile)

	l.v.SetDefault("scanner.locator.patch_size", defaults.Scanner.Locator.PatchSize)
	l.v.SetDefault("scanner.locator.half_sample", defaults.Scanner.Locator.HalfSample)
	l.v.SetDefault("scanner.num_of_workers", defaults.Scanner.NumOfWorkers)
	l.v.SetDefault("scanner.frequency", defaults.Scanner.Frequency)
	l.v.SetDefault("scanner.decoder.readers", defaults.Scanner.Decoder.Readers)
	l.v.SetDefault("scanner.decoder.multiple", defaults.Scanner.Decoder.Multiple)

	l.v.SetDefault("input.recursive", defaults.Input.Recursive)
	l.v.SetDefault("input.include", defaults.Input.Include)
	l.v.SetDefault("input.exclude", defaults.Input.Exclude)
	l.v.SetDefault("input.pdf_pages", defaults.Input.PDFPages)

	l.v.SetDefault("output.format", defaults.Output.Format)
	l.v.SetDefault("output.file", defaults.Output.File)

	l.v.SetDefault("server.host", defaults.Server.Host)
	l.v.SetDefault("server.port", defaults.Server.Port)
	l.v.SetDefault("server.cors_origin", defaults.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", defaults.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", defaults.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", defaults.Server.ShutdownTimeout)
	l.v.SetDefault("server.rate_limit.enabled", defaults.Server.RateLimit.Enabled)
	l.v.SetDefault("server.rate_limit.requests_per_second", defaults.Server.RateLimit.RequestsPerSecond)
	l.v.SetDefault("server.rate_limit.burst", defaults.Server.RateLimit.Burst)
}

// GetResolvedConfig returns the current resolved settings for debugging.
func (l *Loader) GetResolvedConfig() map[string]any {
	return l.v.AllSettings()
}

// MarshalYAML renders cfg the way a configuration file is written.
func MarshalYAML(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// GenerateDefaultConfigFile writes the default configuration as YAML. It
// refuses to overwrite an existing file unless force is set.
func GenerateDefaultConfigFile(filename string, force bool) error {
	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	if _, err := os.Stat(filename); err == nil && !force {
		return fmt.Errorf("config file already exists: %s", filename)
	}

	defaults := DefaultConfig()
	data, err := MarshalYAML(&defaults)
	if err != nil {
		return fmt.Errorf("failed to render default config: %w", err)
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	return os.WriteFile(filename, data, 0o600)
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
	}

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, "barscan"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "barscan"))
	}

	return append(paths, "/etc/barscan")
}
