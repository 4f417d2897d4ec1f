package pgutil

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"

	"github.com/paketkapinda/genova/pkg/config"
)

const (
	connectTimeout  = 10 * time.Second
	maxOpenConns    = 10
	connMaxIdleTime = 5 * time.Minute
)

// ConnectDB opens a bun connection to the store and verifies it with a ping.
func ConnectDB(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*bun.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(connectorOptions(cfg)...))
	sqldb.SetMaxOpenConns(maxOpenConns)
	sqldb.SetConnMaxIdleTime(connMaxIdleTime)

	db := bun.NewDB(sqldb, pgdialect.New())

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database %s: %w", describe(cfg), err)
	}

	logger.Info("Connected to database", zap.String("database", describe(cfg)))
	return db, nil
}

// connectorOptions builds pgdriver options. A URL wins over discrete fields,
// and an explicit password overrides the one embedded in the URL.
func connectorOptions(cfg *config.DatabaseConfig) []pgdriver.Option {
	var opts []pgdriver.Option

	if cfg.URL != "" {
		opts = append(opts, pgdriver.WithDSN(cfg.URL))
	} else {
		opts = append(opts,
			pgdriver.WithNetwork("tcp"),
			pgdriver.WithAddr(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
			pgdriver.WithUser(cfg.User),
			pgdriver.WithDatabase(cfg.Database),
			pgdriver.WithInsecure(cfg.SSLMode == "" || cfg.SSLMode == "disable"),
		)
	}

	if cfg.Password != "" {
		opts = append(opts, pgdriver.WithPassword(cfg.Password))
	}

	return append(opts, pgdriver.WithApplicationName(config.ServiceName))
}

func describe(cfg *config.DatabaseConfig) string {
	if cfg.URL != "" {
		return "url"
	}
	return fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.Database)
}
