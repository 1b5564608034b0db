package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/scanner"
	"github.com/MeKo-Tech/barscan/internal/version"
	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// readersHandler lists the reader ids the decoder accepts.
func (s *Server) readersHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var infos []ReaderInfo
	for _, id := range barcode.SupportedReaders() {
		f, _ := barcode.ParseReader(id)
		info := ReaderInfo{Name: id, Format: f.String()}
		if _, err := barcode.NewReader(id, barcode.SupplementReaders()); err == nil {
			info.Supplements = barcode.SupplementReaders()
		}
		infos = append(infos, info)
	}
	for _, id := range barcode.SupplementReaders() {
		infos = append(infos, ReaderInfo{Name: id, Supplement: true})
	}

	var defaults []string
	for _, rs := range s.defaultReaders() {
		defaults = append(defaults, rs.Format)
	}

	s.writeJSON(w, http.StatusOK, ReadersResponse{Readers: infos, Default: defaults, Count: len(infos)})
}

func (s *Server) defaultReaders() []scanner.ReaderSpec {
	if s.scanOptions.Decoder != nil {
		return s.scanOptions.Decoder.Readers
	}
	return scanner.DefaultDecoder().Readers
}

// scanImageHandler decodes barcodes in an uploaded image.
func (s *Server) scanImageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)

	img, name, err := s.parseImageRequest(w, r)
	if err != nil {
		scanRequestsTotal.WithLabelValues("image", "error").Inc()
		s.writeErrorResponse(w, requestID, err.Error(), statusFor(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(s.timeoutSec)*time.Second)
	defer cancel()

	start := time.Now()
	res, err := s.scanImage(ctx, img, name, r.FormValue("readers"))
	scanDuration.WithLabelValues("image").Observe(time.Since(start).Seconds())
	if err != nil {
		scanRequestsTotal.WithLabelValues("image", "error").Inc()
		status := http.StatusInternalServerError
		switch {
		case isClientConfigError(err):
			status = http.StatusBadRequest
		case errors.Is(err, context.DeadlineExceeded):
			status = http.StatusGatewayTimeout
		}
		slog.Warn("Scan failed", "request_id", requestID, "error", err)
		s.writeErrorResponse(w, requestID, fmt.Sprintf("scan failed: %v", err), status)
		return
	}

	scanRequestsTotal.WithLabelValues("image", "success").Inc()
	codesPerScan.WithLabelValues("image").Observe(float64(len(res.Codes)))
	slog.Debug("Scan completed", "request_id", requestID, "codes", len(res.Codes))

	s.writeJSON(w, http.StatusOK, ScanResponse{Success: true, RequestID: requestID, Result: toScanResult(res)})
}

type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func statusFor(err error) int {
	var re *requestError
	if errors.As(err, &re) {
		return re.status
	}
	return http.StatusBadRequest
}

func (s *Server) parseImageRequest(w http.ResponseWriter, r *http.Request) (image.Image, string, error) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", &requestError{status: http.StatusRequestEntityTooLarge, msg: "File too large"}
		}
		return nil, "", &requestError{status: http.StatusBadRequest, msg: "Failed to parse form data"}
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, "", &requestError{status: http.StatusBadRequest, msg: "No image file provided"}
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", &requestError{status: http.StatusInternalServerError, msg: "Failed to read image data"}
	}
	uploadSizeBytes.Observe(float64(len(data)))

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", &requestError{status: http.StatusBadRequest, msg: "Invalid image format"}
	}
	return img, header.Filename, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, requestID, message string, status int) {
	s.writeJSON(w, status, ScanResponse{Success: false, RequestID: requestID, Error: message})
}
