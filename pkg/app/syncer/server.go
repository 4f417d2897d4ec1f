// Package syncer implements app.Runner for the payment sync process.
package syncer

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apphttp "github.com/paketkapinda/genova/pkg/app/http"
	"github.com/paketkapinda/genova/pkg/auth"
	"github.com/paketkapinda/genova/pkg/config"
	"github.com/paketkapinda/genova/pkg/etsy"
	"github.com/paketkapinda/genova/pkg/marketplace"
	"github.com/paketkapinda/genova/pkg/pgutil"
	reconcilerpkg "github.com/paketkapinda/genova/pkg/reconciler"
	"github.com/paketkapinda/genova/pkg/syncservice"
	"github.com/paketkapinda/genova/pkg/syncstore"
	"github.com/paketkapinda/genova/pkg/tokenrefresh"
)

// Server holds cfg to init the sync server.
type Server struct {
	cfg  *config.Config
	once bool
}

// Option configures a Server.
type Option func(*Server)

// WithOnce makes Run execute a single reconciliation and return instead of serving HTTP.
func WithOnce() Option {
	return func(s *Server) { s.once = true }
}

// NewServer initializes a new sync server.
func NewServer(cfg *config.Config, opts ...Option) *Server {
	s := &Server{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run wires the store, marketplace client, token refresher and reconciler, then
// either runs one reconciliation or serves the trigger until a shutdown signal.
func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("sync server config is nil")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting marketplace payment sync",
		zap.String("provider", cfg.Sync.Provider),
		zap.Bool("once", s.once),
	)

	db, err := pgutil.ConnectDB(ctx, &cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	var store syncstore.Store = syncstore.NewStore(db)

	etsyClient, err := etsy.New(etsy.Config{
		BaseURL:        cfg.Etsy.BaseURL,
		TokenURL:       cfg.Etsy.TokenURL,
		RequestTimeout: cfg.Etsy.RequestTimeout,
		PageLimit:      cfg.Etsy.PageLimit,
		RatePerSecond:  cfg.Etsy.RatePerSecond,
	}, etsy.WithLogger(logger.Named("etsy")))
	if err != nil {
		return fmt.Errorf("create etsy client: %w", err)
	}

	locker, closeLocker, err := s.newLocker(ctx, logger)
	if err != nil {
		return err
	}
	defer closeLocker()

	refresher := tokenrefresh.New(store, etsyClient, logger, tokenrefresh.WithLocker(locker))

	rec := reconcilerpkg.New(store, refresher, etsyClient, reconcilerpkg.Config{
		Provider:   marketplace.Provider(cfg.Sync.Provider),
		Workers:    cfg.Sync.Workers,
		JobTimeout: cfg.Sync.JobTimeout,
	}, logger)

	if s.once {
		return s.runOnce(ctx, rec, logger)
	}

	s.runInitialReconcile(ctx, rec, logger)

	stopReconcile := s.startPeriodicReconcile(rec, logger)
	defer stopReconcile()

	svc := syncservice.NewLog(syncservice.NewService(rec, logger), logger)
	router := NewRouter(RouterConfig{
		Service:        svc,
		Pinger:         store,
		TriggerPath:    cfg.Server.TriggerPath,
		JWTSecret:      cfg.Server.JWTSecret,
		MetricsEnabled: cfg.Monitoring.Enabled,
	}, logger)

	err = apphttp.ServeAndWait(ctx, router, logger, &cfg.Server, cfg.Shutdown.Timeout)

	// Stop background work before the deferred DB close.
	stopReconcile()

	return err
}

// newLocker returns the per-integration refresh lock. With Redis enabled the
// in-process lock is chained with a Redis lock shared by every replica.
func (s *Server) newLocker(ctx context.Context, logger *zap.Logger) (tokenrefresh.Locker, func(), error) {
	local := tokenrefresh.NewLocalLocker()
	if !s.cfg.Redis.Enabled {
		return local, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     s.cfg.Redis.Addr,
		Password: s.cfg.Redis.Password,
		DB:       s.cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", s.cfg.Redis.Addr, err)
	}
	logger.Info("Token refresh lock backed by redis", zap.String("addr", s.cfg.Redis.Addr))

	locker := tokenrefresh.ChainLocker{
		local,
		tokenrefresh.NewRedisLocker(client, s.cfg.Redis.LockTTL, logger.Named("redis-lock")),
	}
	return locker, func() { _ = client.Close() }, nil
}

func (s *Server) runOnce(ctx context.Context, rec *reconcilerpkg.Reconciler, logger *zap.Logger) error {
	summary, err := rec.ReconcileAll(ctx)
	if err != nil {
		logger.Error("Payment sync failed", zap.Error(err))
		return err
	}
	logger.Info("Payment sync finished",
		zap.String("run_id", summary.RunID),
		zap.Int("integrations", summary.Integrations),
		zap.Int("failed", summary.Failed))
	return nil
}

func (s *Server) runInitialReconcile(ctx context.Context, rec *reconcilerpkg.Reconciler, logger *zap.Logger) {
	if !s.cfg.Sync.RunOnStart {
		return
	}

	logger.Info("Running initial payment reconciliation")
	if _, err := rec.ReconcileAll(ctx); err != nil {
		logger.Warn("Initial reconciliation failed (will retry on next trigger)", zap.Error(err))
	}
}

func (s *Server) startPeriodicReconcile(rec *reconcilerpkg.Reconciler, logger *zap.Logger) func() {
	if s.cfg.Sync.Interval <= 0 {
		return func() {}
	}

	logger.Info("Starting periodic reconciliation", zap.Duration("interval", s.cfg.Sync.Interval))
	rec.StartPeriodicReconciliation(s.cfg.Sync.Interval)

	return rec.Stop
}

// jwtValidator returns nil when trigger auth is disabled.
func jwtValidator(secret string) *auth.JWTValidator {
	if secret == "" {
		return nil
	}
	return auth.NewJWTValidator(secret, auth.RoleServiceRole)
}
