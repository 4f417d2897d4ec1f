// Package syncservice exposes the payment reconciliation job as a service
// with an HTTP trigger.
package syncservice

import (
	"context"

	"go.uber.org/zap"

	apperrors "github.com/paketkapinda/genova/pkg/app/errors"
	"github.com/paketkapinda/genova/pkg/reconciler"
)

// SyncRequest is the optional body of a trigger call.
type SyncRequest struct {
	// UserID limits the run to one user's integrations. Empty means all users.
	UserID string `json:"user_id,omitempty"`
}

// Reconciler runs one reconciliation.
type Reconciler interface {
	ReconcileAll(ctx context.Context, opts ...reconciler.RunOption) (*reconciler.Summary, error)
}

// Service defines the interface for the sync job business logic
//
//go:generate mockery --name Service --output mocks --outpkg mocks --filename mock_service.go --with-expecter
type Service interface {
	Sync(ctx context.Context, req *SyncRequest) (*reconciler.Summary, error)
}

type syncService struct {
	reconciler Reconciler
	logger     *zap.Logger
}

// NewService creates a new sync service
func NewService(rec Reconciler, logger *zap.Logger) Service {
	return &syncService{
		reconciler: rec,
		logger:     logger,
	}
}

// Sync runs the job. Any run-level failure is reported as SYNC_FAILED;
// per-integration problems are only visible in the summary.
func (s *syncService) Sync(ctx context.Context, req *SyncRequest) (*reconciler.Summary, error) {
	var opts []reconciler.RunOption
	if req != nil && req.UserID != "" {
		opts = append(opts, reconciler.WithUserID(req.UserID))
	}

	summary, err := s.reconciler.ReconcileAll(ctx, opts...)
	if err != nil {
		return nil, apperrors.SyncFailedError(err)
	}
	return summary, nil
}
