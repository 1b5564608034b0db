package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

const (
	infoLevel  = "info"
	debugLevel = "debug"
)

// newTestLoader returns a loader on a fresh viper instance so tests do not
// share state through the global one.
func newTestLoader() *Loader {
	return NewLoaderWithViper(viper.New())
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "barscan.yaml")
	if err := os.WriteFile(configFile, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return configFile
}

// TestNewLoader tests loader creation.
func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	if loader == nil {
		t.Fatal("NewLoader() returned nil")
	}
	if loader.v == nil {
		t.Error("Loader viper instance is nil")
	}
}

// TestLoadWithNoConfigFile tests loading with no config file present.
func TestLoadWithNoConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := newTestLoader().Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.LogLevel != infoLevel {
		t.Errorf("Expected default log level '%s', got %s", infoLevel, cfg.LogLevel)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if got := len(cfg.Scanner.Decoder.Readers); got != 6 {
		t.Errorf("Expected 6 default readers, got %d", got)
	}
	if cfg.Scanner.Decoder.Readers[2].Format != "ean_reader" || len(cfg.Scanner.Decoder.Readers[2].Supplements) != 2 {
		t.Errorf("Expected third default reader to be ean_reader with supplements, got %+v", cfg.Scanner.Decoder.Readers[2])
	}
}

// TestLoadWithValidYAMLFile tests loading from a valid YAML file.
func TestLoadWithValidYAMLFile(t *testing.T) {
	configFile := writeConfig(t, `
log_level: debug
verbose: true
scanner:
  locator:
    patch_size: large
    half_sample: false
  num_of_workers: 0
  frequency: 5
  decoder:
    multiple: true
    readers:
      - code_128_reader
      - format: ean_reader
        supplements: [ean_5_reader]
server:
  host: 0.0.0.0
  port: 9090
`)

	cfg, err := newTestLoader().LoadWithFile(configFile)
	if err != nil {
		t.Fatalf("LoadWithFile() unexpected error: %v", err)
	}
	if cfg.LogLevel != debugLevel {
		t.Errorf("Expected log level '%s', got %s", debugLevel, cfg.LogLevel)
	}
	if !cfg.Verbose {
		t.Error("Expected verbose to be true")
	}
	if cfg.Scanner.Locator.PatchSize != "large" || cfg.Scanner.Locator.HalfSample {
		t.Errorf("Unexpected locator %+v", cfg.Scanner.Locator)
	}
	if cfg.Scanner.NumOfWorkers != 0 {
		t.Errorf("Expected 0 workers, got %d", cfg.Scanner.NumOfWorkers)
	}
	if cfg.Scanner.Frequency != 5 {
		t.Errorf("Expected frequency 5, got %d", cfg.Scanner.Frequency)
	}
	if !cfg.Scanner.Decoder.Multiple {
		t.Error("Expected decoder.multiple to be true")
	}

	readers := cfg.Scanner.Decoder.Readers
	if len(readers) != 2 {
		t.Fatalf("Expected 2 readers, got %d", len(readers))
	}
	if readers[0].Format != "code_128_reader" || len(readers[0].Supplements) != 0 {
		t.Errorf("Unexpected first reader %+v", readers[0])
	}
	if readers[1].Format != "ean_reader" || len(readers[1].Supplements) != 1 || readers[1].Supplements[0] != "ean_5_reader" {
		t.Errorf("Unexpected second reader %+v", readers[1])
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9090 {
		t.Errorf("Unexpected server %s:%d", cfg.Server.Host, cfg.Server.Port)
	}
}

// TestLoadWithInvalidYAMLFile tests loading from an invalid YAML file.
func TestLoadWithInvalidYAMLFile(t *testing.T) {
	configFile := writeConfig(t, "scanner: [unclosed")

	_, err := newTestLoader().LoadWithFile(configFile)
	if err == nil {
		t.Fatal("Expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "error reading config file") {
		t.Errorf("Unexpected error: %v", err)
	}
}

// TestLoadWithNonExistentFile tests loading a file that does not exist.
func TestLoadWithNonExistentFile(t *testing.T) {
	_, err := newTestLoader().LoadWithFile("/non/existent/barscan.yaml")
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("Expected 'does not exist' error, got %v", err)
	}
}

// TestLoadWithValidationFailure tests that invalid values are rejected.
func TestLoadWithValidationFailure(t *testing.T) {
	configFile := writeConfig(t, `
scanner:
  frequency: 0
`)

	_, err := newTestLoader().LoadWithFile(configFile)
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if !strings.Contains(err.Error(), "scanner.frequency") {
		t.Errorf("Expected error to name scanner.frequency, got %v", err)
	}
}

// TestLoadWithoutValidation tests that invalid values survive when validation is skipped.
func TestLoadWithoutValidation(t *testing.T) {
	configFile := writeConfig(t, `
log_level: loud
`)

	cfg, err := newTestLoader().LoadWithFileWithoutValidation(configFile)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.LogLevel != "loud" {
		t.Errorf("Expected raw log level, got %s", cfg.LogLevel)
	}
}

// TestEnvironmentVariableOverride tests BARSCAN_ environment variables.
func TestEnvironmentVariableOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BARSCAN_LOG_LEVEL", "warn")
	t.Setenv("BARSCAN_SCANNER_FREQUENCY", "25")
	t.Setenv("BARSCAN_SCANNER_LOCATOR_PATCH_SIZE", "x-small")
	t.Setenv("BARSCAN_SCANNER_DECODER_READERS", "ean_8_reader, upc_reader+ean_2_reader")
	t.Setenv("BARSCAN_SERVER_PORT", "7070")

	cfg, err := newTestLoader().Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("Expected log level warn, got %s", cfg.LogLevel)
	}
	if cfg.Scanner.Frequency != 25 {
		t.Errorf("Expected frequency 25, got %d", cfg.Scanner.Frequency)
	}
	if cfg.Scanner.Locator.PatchSize != "x-small" {
		t.Errorf("Expected patch size x-small, got %s", cfg.Scanner.Locator.PatchSize)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Expected port 7070, got %d", cfg.Server.Port)
	}

	readers := cfg.Scanner.Decoder.Readers
	if len(readers) != 2 || readers[0].Format != "ean_8_reader" || readers[1].Format != "upc_reader" {
		t.Fatalf("Unexpected readers %+v", readers)
	}
	if len(readers[1].Supplements) != 1 || readers[1].Supplements[0] != "ean_2_reader" {
		t.Errorf("Unexpected supplements %+v", readers[1].Supplements)
	}
}

// TestConfigFileDiscovery tests that barscan.yaml in the working directory is found.
func TestConfigFileDiscovery(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, "barscan.yaml"), []byte("output:\n  format: json\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	loader := newTestLoader()
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("Expected json output, got %s", cfg.Output.Format)
	}
	if !strings.HasSuffix(loader.GetConfigFileUsed(), "barscan.yaml") {
		t.Errorf("Unexpected config file used: %s", loader.GetConfigFileUsed())
	}
}

// TestGenerateDefaultConfigFile tests writing and reloading the default config.
func TestGenerateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "barscan.yaml")

	if err := GenerateDefaultConfigFile(path, false); err != nil {
		t.Fatalf("GenerateDefaultConfigFile() error: %v", err)
	}
	if err := GenerateDefaultConfigFile(path, false); err == nil {
		t.Error("Expected error when overwriting without force")
	}
	if err := GenerateDefaultConfigFile(path, true); err != nil {
		t.Errorf("Expected overwrite with force to succeed: %v", err)
	}

	cfg, err := newTestLoader().LoadWithFile(path)
	if err != nil {
		t.Fatalf("Reloading generated config failed: %v", err)
	}
	defaults := DefaultConfig()
	if cfg.Scanner.Frequency != defaults.Scanner.Frequency {
		t.Errorf("Expected frequency %d, got %d", defaults.Scanner.Frequency, cfg.Scanner.Frequency)
	}
	if len(cfg.Scanner.Decoder.Readers) != len(defaults.Scanner.Decoder.Readers) {
		t.Errorf("Expected %d readers, got %d", len(defaults.Scanner.Decoder.Readers), len(cfg.Scanner.Decoder.Readers))
	}
}

// TestGetConfigSearchPaths tests the search path order.
func TestGetConfigSearchPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	paths := GetConfigSearchPaths()
	if paths[0] != "." {
		t.Errorf("Expected current directory first, got %s", paths[0])
	}
	if paths[len(paths)-1] != "/etc/barscan" {
		t.Errorf("Expected /etc/barscan last, got %s", paths[len(paths)-1])
	}
	found := false
	for _, p := range paths {
		if p == filepath.Join("/xdg", "barscan") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected XDG path in %v", paths)
	}
}

// TestCurrentPicksUpLateOverrides tests that settings applied after loading,
// such as bound flags, reach the resolved config.
func TestCurrentPicksUpLateOverrides(t *testing.T) {
	loader := newTestLoader()
	if _, err := loader.LoadWithFile(writeConfig(t, "log_level: info\n")); err != nil {
		t.Fatalf("LoadWithFile() error = %v", err)
	}

	loader.Set("scanner.decoder.readers", "code_128_reader,ean_reader+ean_5_reader")
	loader.Set("log_level", debugLevel)

	cfg, err := loader.Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if cfg.LogLevel != debugLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, debugLevel)
	}
	readers := cfg.Scanner.Decoder.Readers
	if len(readers) != 2 || readers[0].Format != "code_128_reader" {
		t.Fatalf("Readers = %+v", readers)
	}
	if len(readers[1].Supplements) != 1 || readers[1].Supplements[0] != "ean_5_reader" {
		t.Errorf("Supplements = %v, want [ean_5_reader]", readers[1].Supplements)
	}

	loader.Set("scanner.frequency", 0)
	if _, err := loader.Current(); err == nil || !strings.Contains(err.Error(), "scanner.frequency") {
		t.Errorf("Current() error = %v, want scanner.frequency validation failure", err)
	}
}
