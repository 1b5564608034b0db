package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/barscan/internal/config"
	"github.com/MeKo-Tech/barscan/internal/logging"
	"github.com/MeKo-Tech/barscan/internal/version"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Global configuration.
	globalConfig *config.Config
	// Error from the last configuration load, returned by GetConfig.
	configErr error
	// Configuration file path.
	cfgFile string
	// Optional .env file loaded before the configuration.
	envFile string
	// Closes the rotated log file, if one is open.
	logCloser io.Closer
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "barscan",
	Short: "Barcode scanner for images, PDFs and live frame streams",
	Long: `barscan decodes 1D barcodes (EAN, UPC, Code 128, Code 39, Codabar, ...)
from image files, PDF pages and streamed frames.

Frames are pulled from an input stream at a configurable frequency, decoded
on a pool of workers and reported as processed and detected events.

Examples:
  barscan scan label.png
  barscan scan ./photos --recursive --format json
  barscan scan invoice.pdf --pages 1-2 --readers code_128_reader
  barscan serve --port 8080`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, _ := cmd.PersistentFlags().GetBool("version")
		if v {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return nil
		}
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if logCloser != nil {
		_ = logCloser.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
// This allows tests to execute commands without calling os.Exit().
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/barscan, /etc/barscan)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load BARSCAN_* variables from a .env file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "write logs to a rotated file instead of stderr")
	rootCmd.PersistentFlags().Bool("version", false, "print version information and exit")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}

		if logCloser != nil {
			_ = logCloser.Close()
		}
		// Logs go to stderr so scan results on stdout stay machine readable.
		logCloser = logging.Setup(logging.Options{
			Level:   cfg.LogLevel,
			Verbose: cfg.Verbose,
			File:    cfg.LogFile,
			Output:  cmd.ErrOrStderr(),
		})
		if used := GetConfigLoader().GetConfigFileUsed(); used != "" {
			slog.Debug("Using config file", "path", used)
		}
		return nil
	}
}

// initConfig reads in config file and ENV variables if set. Errors are kept
// for GetConfig so commands can return them.
func initConfig() {
	globalConfig, configErr = loadConfig()
}

func loadConfig() (*config.Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("error loading env file: %w", err)
		}
	}

	configLoader = config.NewLoader()
	if cfgFile != "" {
		return configLoader.LoadWithFileWithoutValidation(cfgFile)
	}
	return configLoader.LoadWithoutValidation()
}

// GetConfig returns the validated configuration with CLI flags applied.
// Flags are bound after the initial load, so the settings are resolved
// again here.
func GetConfig() (*config.Config, error) {
	if globalConfig == nil && configErr == nil {
		initConfig()
	}
	if configErr != nil {
		return nil, configErr
	}
	return GetConfigLoader().Current()
}

// GetConfigLoader returns the global configuration loader.
func GetConfigLoader() *config.Loader {
	if configLoader == nil {
		configLoader = config.NewLoader()
	}
	return configLoader
}
