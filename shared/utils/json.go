// Package utils provides HTTP response helpers and server plumbing shared by the handlers
package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apperrors "github.com/gmaiocc/itic-website-sub000/pkg/errors"
)

// MaxJSONBodyBytes bounds request bodies decoded by DecodeJSON. Upload
// bodies use DecodeJSONWithLimit with a bound derived from the upload size.
const MaxJSONBodyBytes = 1 << 20

// ErrorResponse defines the structure for a standard JSON error message
type ErrorResponse struct {
	Error string `json:"error"`
}

// RespondWithJSON writes payload as JSON with the given status code
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// RespondWithError writes a JSON error response
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}

// RespondWithAPIError maps err onto the error taxonomy. Causes are logged,
// never written to the client.
func RespondWithAPIError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apperrors.GetAPIError(err)
	if apiErr == nil {
		slog.Error("Unhandled error", "error", err, "method", r.Method, "path", r.URL.Path)
		RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if apiErr.HTTPStatus >= http.StatusInternalServerError {
		slog.Error("Request failed", "error", err, "type", apiErr.Type, "method", r.Method, "path", r.URL.Path)
	} else {
		slog.Warn("Request rejected", "error", apiErr.Message, "type", apiErr.Type, "method", r.Method, "path", r.URL.Path)
	}
	RespondWithError(w, apiErr.HTTPStatus, apiErr.Message)
}

// DecodeJSON decodes the request body into target. Empty or malformed bodies
// become validation errors.
func DecodeJSON(r *http.Request, target interface{}) error {
	return DecodeJSONWithLimit(r, target, MaxJSONBodyBytes)
}

// DecodeJSONWithLimit is DecodeJSON with a caller-chosen body limit. A body
// over the limit is reported as too large rather than as malformed JSON.
func DecodeJSONWithLimit(r *http.Request, target interface{}, limit int64) error {
	defer r.Body.Close()

	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, limit))
	if err := decoder.Decode(target); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return apperrors.PayloadTooLargeError(tooLarge.Limit)
		case errors.Is(err, io.EOF):
			return apperrors.ValidationError("EMPTY_BODY", "Request body is required")
		}
		return apperrors.ValidationError("INVALID_JSON", fmt.Sprintf("Invalid request body: %s", err.Error()))
	}
	return nil
}

// ServerConfig holds configuration for HTTP servers
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// CreateServer creates an HTTP server with the given configuration
func CreateServer(config ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%s", config.Port),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
}

// StartServerWithGracefulShutdown serves until SIGINT/SIGTERM, then drains
// in-flight requests and runs the cleanup hooks in order.
func StartServerWithGracefulShutdown(server *http.Server, serviceName string, cleanup ...func(context.Context) error) error {
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "service", serviceName, "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			slog.Error("Server failed to start", "error", err, "service", serviceName)
			return err
		}
	case <-sigChan:
	}

	slog.Info("Shutting down server...", "service", serviceName)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", "error", err, "service", serviceName)
	}
	for _, fn := range cleanup {
		if err := fn(shutdownCtx); err != nil {
			slog.Warn("Cleanup failed during shutdown", "error", err, "service", serviceName)
		}
	}
	slog.Info("Server exited", "service", serviceName)
	return nil
}
