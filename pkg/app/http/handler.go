// Package http provides HTTP utilities including chi-compatible error handling
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/paketkapinda/genova/pkg/app/errors"
)

// HandlerFunc defines a function that returns an error for clean error handling
type HandlerFunc func(http.ResponseWriter, *http.Request) error

// ErrorResponse is the body written for a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleError wraps an error-returning HandlerFunc into a standard http.HandlerFunc.
//
// Usage with chi:
//
//	r.Post("/sync-marketplace-payments", http.HandleError(handler.sync, logger))
func HandleError(h HandlerFunc, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if err := callRecovered(h, w, r); err != nil {
			switch {
			case apperrors.IsInternalError(err):
				logger.Error("Request failed",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Error(err))
			case apperrors.Is(err, apperrors.CategoryUnauthorized):
				logger.Warn("Unauthorized request",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr))
			}
			DefaultErrorHandler(w, err)
		}
	}
}

// callRecovered runs h and turns a panic into a GeneralError.
func callRecovered(h HandlerFunc, w http.ResponseWriter, r *http.Request) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			err = apperrors.GeneralError(fmt.Errorf("panic: %v", rec))
		}
	}()
	return h(w, r)
}

// DefaultErrorHandler handles errors returned from HTTP handlers
func DefaultErrorHandler(w http.ResponseWriter, err error) {
	var svcErr *apperrors.ServiceError
	if errors.As(err, &svcErr) {
		WriteJSON(w, svcErr.StatusCode(), &ErrorResponse{Error: svcErr.Message})
		return
	}

	WriteJSON(w, http.StatusInternalServerError, &ErrorResponse{Error: "Unexpected Service Error"})
}

// WriteJSON writes data as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
