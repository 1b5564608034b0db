package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/barscan/internal/server"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for barcode scanning",
	Long: `Start an HTTP server that decodes barcodes in uploaded images and
streamed frames.

The server provides the following endpoints:
  POST /scan/image - Decode an uploaded image (multipart field "image")
  GET  /ws/scan    - WebSocket: binary frames in, detected/processed events out
  GET  /readers    - List reader ids
  GET  /health     - Health check endpoint
  GET  /metrics    - Prometheus metrics

Scanner settings come from the "scanner" configuration section.

Examples:
  barscan serve
  barscan serve --port 8080
  barscan serve --host 0.0.0.0 --port 3000 --rate-limit-enabled`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}

		host := cfg.Server.Host
		if cmd.Flags().Changed("host") {
			host, _ = cmd.Flags().GetString("host")
		}

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		corsOrigin := cfg.Server.CORSOrigin
		if cmd.Flags().Changed("cors-origin") {
			corsOrigin, _ = cmd.Flags().GetString("cors-origin")
		}

		maxUploadSize := cfg.Server.MaxUploadMB
		if cmd.Flags().Changed("max-upload-size") {
			maxUploadSize, _ = cmd.Flags().GetInt("max-upload-size")
		}

		timeout := cfg.Server.TimeoutSec
		if cmd.Flags().Changed("timeout") {
			timeout, _ = cmd.Flags().GetInt("timeout")
		}

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if cmd.Flags().Changed("shutdown-timeout") {
			shutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
		}

		rateLimit := cfg.Server.RateLimit
		if cmd.Flags().Changed("rate-limit-enabled") {
			rateLimit.Enabled, _ = cmd.Flags().GetBool("rate-limit-enabled")
		}
		if cmd.Flags().Changed("requests-per-second") {
			rateLimit.RequestsPerSecond, _ = cmd.Flags().GetFloat64("requests-per-second")
		}
		if cmd.Flags().Changed("burst") {
			rateLimit.Burst, _ = cmd.Flags().GetInt("burst")
		}

		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", port)
		}
		if rateLimit.Enabled && rateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("invalid requests per second: %g (must be positive)", rateLimit.RequestsPerSecond)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		scanServer, err := server.NewServer(server.Config{
			Host:        host,
			Port:        port,
			CORSOrigin:  corsOrigin,
			MaxUploadMB: int64(maxUploadSize),
			TimeoutSec:  timeout,
			Scanner:     cfg.ToScannerOptions(nil),
			RateLimit: server.RateLimitConfig{
				Enabled:           rateLimit.Enabled,
				RequestsPerSecond: rateLimit.RequestsPerSecond,
				Burst:             rateLimit.Burst,
			},
		})
		if err != nil {
			return fmt.Errorf("failed to initialize server: %w", err)
		}
		defer func() { _ = scanServer.Close() }()

		mux := http.NewServeMux()
		scanServer.SetupRoutes(mux)

		// No WriteTimeout: websocket sessions outlive a single request.
		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			slog.Info("Starting scan server", "host", host, "port", port)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Server error", "error", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal", "signal", sig.String())
		case <-ctx.Done():
			slog.Info("Context cancelled, initiating shutdown")
		}

		slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", shutdownTimeout))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(shutdownTimeout)*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		} else {
			slog.Info("HTTP server shutdown completed")
		}

		slog.Info("Graceful shutdown completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", 20, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 30, "per-scan timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	// Rate limiting flags
	serveCmd.Flags().Bool("rate-limit-enabled", false, "enable per-client rate limiting")
	serveCmd.Flags().Float64("requests-per-second", 10, "sustained requests per second per client")
	serveCmd.Flags().Int("burst", 20, "request burst per client")
}
