package syncservice

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/paketkapinda/genova/pkg/auth"
	"github.com/paketkapinda/genova/pkg/reconciler"
)

const serviceName = "SyncService"

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the sync Service.
// It logs method entry/exit, duration, errors and the run summary counts.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

// Sync wraps the service method with logging
func (ls *logService) Sync(ctx context.Context, req *SyncRequest) (summary *reconciler.Summary, err error) {
	start := time.Now()

	var userID string
	if req != nil {
		userID = req.UserID
	}

	role, _ := auth.RoleFromContext(ctx)
	subject, _ := auth.SubjectFromContext(ctx)

	ls.logger.Info("Sync started",
		zap.String("service", serviceName),
		zap.String("method", "Sync"),
		zap.String("user_id", userID),
		zap.String("caller_role", role),
		zap.String("caller", subject),
	)

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Error("Sync failed",
				zap.String("service", serviceName),
				zap.String("method", "Sync"),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
			return
		}

		ls.logger.Info("Sync completed",
			zap.String("service", serviceName),
			zap.String("method", "Sync"),
			zap.String("run_id", summary.RunID),
			zap.Int("integrations", summary.Integrations),
			zap.Int("processed", summary.Processed),
			zap.Int("skipped", summary.Skipped),
			zap.Int("failed", summary.Failed),
			zap.Int("payments_upserted", summary.Upserted),
			zap.Duration("duration", duration),
		)
	}()

	return ls.svc.Sync(ctx, req)
}
