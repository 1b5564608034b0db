package server

import (
	"errors"
	"net/http"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/engine"
	"github.com/MeKo-Tech/barscan/internal/scanner"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// EngineFactory creates a fresh engine for each scan session.
type EngineFactory func() scanner.Engine

// Server holds the HTTP server state and dependencies.
type Server struct {
	scanOptions scanner.Options
	newEngine   EngineFactory
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	rateLimiter *RateLimiter
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	// Scanner holds the scan settings applied to every request. Its
	// InputStream is ignored; each request supplies its own.
	Scanner   scanner.Options
	RateLimit RateLimitConfig
	// NewEngine overrides the engine used per request. Nil selects the
	// built-in engine.
	NewEngine EngineFactory
}

// RateLimitConfig holds per-client request limits.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// ReaderInfo describes one reader id.
type ReaderInfo struct {
	Name        string   `json:"name"`
	Format      string   `json:"format,omitempty"`
	Supplement  bool     `json:"supplement,omitempty"`
	Supplements []string `json:"supplements,omitempty"`
}

// ReadersResponse is returned by GET /readers.
type ReadersResponse struct {
	Readers []ReaderInfo `json:"readers"`
	Default []string     `json:"default"`
	Count   int          `json:"count"`
}

// ScanResult is the JSON form of one processed frame.
type ScanResult struct {
	Frame      uint64           `json:"frame"`
	Source     string           `json:"source,omitempty"`
	Detected   bool             `json:"detected"`
	Codes      []barcode.Result `json:"codes"`
	DurationMs float64          `json:"duration_ms"`
	Error      string           `json:"error,omitempty"`
}

// ScanResponse is returned by POST /scan/image.
type ScanResponse struct {
	Success   bool        `json:"success"`
	RequestID string      `json:"request_id,omitempty"`
	Result    *ScanResult `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// NewServer creates a new scan server instance. The scanner settings are
// validated up front so misconfiguration fails at startup.
func NewServer(config Config) (*Server, error) {
	probe := config.Scanner
	probe.InputStream = nopStream{}
	if _, err := scanner.Merge(probe); err != nil {
		return nil, err
	}
	if config.MaxUploadMB <= 0 {
		return nil, errors.New("server: max upload size must be positive")
	}
	if config.TimeoutSec <= 0 {
		return nil, errors.New("server: timeout must be positive")
	}

	newEngine := config.NewEngine
	if newEngine == nil {
		newEngine = func() scanner.Engine { return engine.New() }
	}

	s := &Server{
		scanOptions: config.Scanner,
		newEngine:   newEngine,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeoutSec:  config.TimeoutSec,
	}
	if config.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiter(config.RateLimit.RequestsPerSecond, config.RateLimit.Burst)
	}
	return s, nil
}

// Close releases server resources.
func (s *Server) Close() error {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/readers", s.corsMiddleware(s.readersHandler))
	mux.HandleFunc("/scan/image", s.corsMiddleware(s.rateLimitMiddleware(s.scanImageHandler)))
	mux.HandleFunc("/ws/scan", s.rateLimitMiddleware(s.scanWebSocketHandler))
	mux.Handle("/metrics", promhttp.Handler())
}
