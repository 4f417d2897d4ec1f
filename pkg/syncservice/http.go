package syncservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	apperrors "github.com/paketkapinda/genova/pkg/app/errors"
	apphttp "github.com/paketkapinda/genova/pkg/app/http"
	"github.com/paketkapinda/genova/pkg/auth"
	"github.com/paketkapinda/genova/pkg/reconciler"
)

const (
	// DefaultTriggerPath is the route the scheduler invokes.
	DefaultTriggerPath = "/sync-marketplace-payments"
	// APITriggerPath is the versioned alias of the trigger.
	APITriggerPath = "/api/v1/sync"

	maxBodyBytes = 1 << 16
)

var (
	corsAllowHeaders = []string{"authorization", "x-client-info", "apikey", "content-type"}
	corsAllowMethods = []string{http.MethodPost, http.MethodOptions}
)

// SyncResponse is the body of a successful trigger call.
type SyncResponse struct {
	Success bool                `json:"success"`
	Summary *reconciler.Summary `json:"summary,omitempty"`
}

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service   Service
	validator *auth.JWTValidator
	logger    *zap.Logger
}

// RouteOption configures the trigger routes.
type RouteOption func(*routeConfig)

type routeConfig struct {
	paths     []string
	validator *auth.JWTValidator
}

// WithPaths replaces the default trigger paths.
func WithPaths(paths ...string) RouteOption {
	return func(c *routeConfig) {
		if len(paths) > 0 {
			c.paths = paths
		}
	}
}

// WithJWTValidator requires a valid service-role bearer token on POST.
func WithJWTValidator(v *auth.JWTValidator) RouteOption {
	return func(c *routeConfig) {
		c.validator = v
	}
}

// RegisterRoutes registers the trigger endpoints for the sync service on the given chi router
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger, opts ...RouteOption) {
	cfg := routeConfig{paths: []string{DefaultTriggerPath, APITriggerPath}}
	for _, opt := range opts {
		opt(&cfg)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &HTTP{
		service:   service,
		validator: cfg.validator,
		logger:    logger,
	}

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:     []string{"*"},
		AllowedMethods:     corsAllowMethods,
		AllowedHeaders:     corsAllowHeaders,
		OptionsPassthrough: true,
		MaxAge:             300,
	})

	for _, p := range cfg.paths {
		r.With(corsHandler, withCORSHeaders).Options(p, h.preflight)
		r.With(corsHandler, withCORSHeaders).Post(p, apphttp.HandleError(h.sync, logger))
	}
}

// withCORSHeaders pins the permissive headers on every trigger response,
// including requests without an Origin header.
func withCORSHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", strings.Join(corsAllowHeaders, ", "))
		w.Header().Set("Access-Control-Allow-Methods", strings.Join(corsAllowMethods, ", "))
		next.ServeHTTP(w, r)
	})
}

func (h *HTTP) preflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// sync handles the trigger. The body is optional; one that does not parse
// is logged and the run falls back to every user.
func (h *HTTP) sync(w http.ResponseWriter, r *http.Request) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			h.logger.Error("Sync panicked", zap.Any("panic", rec))
			err = apperrors.SyncFailedError(fmt.Errorf("panic: %v", rec))
		}
	}()

	ctx, err := h.authorize(r)
	if err != nil {
		return err
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}

	var req SyncRequest
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			h.logger.Warn("Ignoring unparsable trigger body", zap.Int("bytes", len(body)), zap.Error(err))
			req = SyncRequest{}
		}
	}

	summary, err := h.service.Sync(ctx, &req)
	if err != nil {
		return apperrors.SyncFailedError(err)
	}

	apphttp.WriteJSON(w, http.StatusOK, &SyncResponse{Success: true, Summary: summary})
	return nil
}

// authorize checks the bearer token when a validator is configured and
// returns the request context carrying the caller.
func (h *HTTP) authorize(r *http.Request) (context.Context, error) {
	if h.validator == nil {
		return r.Context(), nil
	}

	token, err := auth.BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return nil, apperrors.UnAuthorizedError(err)
	}

	claims, err := h.validator.ValidateToken(token)
	if err != nil {
		return nil, apperrors.UnAuthorizedError(err)
	}

	sub, _ := claims["sub"].(string)
	return auth.WithCaller(r.Context(), auth.RoleServiceRole, sub), nil
}
