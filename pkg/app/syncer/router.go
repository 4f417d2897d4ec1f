package syncer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apperrors "github.com/paketkapinda/genova/pkg/app/errors"
	apphttp "github.com/paketkapinda/genova/pkg/app/http"
	"github.com/paketkapinda/genova/pkg/syncservice"
)

const (
	defaultRequestTimeout = 5 * time.Minute
	readyTimeout          = 2 * time.Second
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig lists what the HTTP surface needs.
type RouterConfig struct {
	Service        syncservice.Service
	Pinger         Pinger
	TriggerPath    string
	JWTSecret      string
	MetricsEnabled bool
}

// NewRouter builds the chi router with health, readiness, metrics and trigger routes.
func NewRouter(cfg RouterConfig, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(defaultRequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/ready", apphttp.HandleError(func(w http.ResponseWriter, req *http.Request) error {
		if cfg.Pinger != nil {
			ctx, cancel := context.WithTimeout(req.Context(), readyTimeout)
			defer cancel()
			if err := cfg.Pinger.Ping(ctx); err != nil {
				return apperrors.DependencyError(fmt.Errorf("ping store: %w", err), apperrors.CodeNotReady)
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
		return nil
	}, logger))

	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
		logger.Info("Metrics enabled", zap.String("path", "/metrics"))
	}

	paths := []string{syncservice.DefaultTriggerPath, syncservice.APITriggerPath}
	if cfg.TriggerPath != "" && cfg.TriggerPath != syncservice.DefaultTriggerPath {
		paths = append(paths, cfg.TriggerPath)
	}

	opts := []syncservice.RouteOption{syncservice.WithPaths(paths...)}
	if v := jwtValidator(cfg.JWTSecret); v != nil {
		opts = append(opts, syncservice.WithJWTValidator(v))
		logger.Info("Trigger requires service-role token")
	}
	syncservice.RegisterRoutes(r, cfg.Service, logger, opts...)

	return r
}

// accessLog writes one zap line per request.
func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Info("HTTP request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
