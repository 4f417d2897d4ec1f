// Package tokenrefresh keeps marketplace integrations supplied with a valid
// OAuth access token, refreshing and persisting credentials when they expire.
package tokenrefresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/paketkapinda/genova/internal/metrics"
	"github.com/paketkapinda/genova/pkg/marketplace"
)

// ErrTokenRefreshFailed marks any failure to obtain or persist a refreshed credential.
var ErrTokenRefreshFailed = errors.New("token refresh failed")

// IntegrationStore is the persistence the refresher needs.
type IntegrationStore interface {
	GetIntegration(ctx context.Context, id string) (*marketplace.Integration, error)
	UpdateIntegrationToken(ctx context.Context, id string, cred *marketplace.Credential) error
}

// TokenClient exchanges a refresh token at the marketplace token endpoint.
type TokenClient interface {
	RefreshToken(ctx context.Context, clientID, refreshToken string) (*oauth2.Token, error)
}

// Refresher hands out access tokens, refreshing them at most once per expiry per integration.
type Refresher struct {
	store  IntegrationStore
	client TokenClient
	locker Locker
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithLocker replaces the default in-process locker.
func WithLocker(l Locker) Option {
	return func(r *Refresher) {
		if l != nil {
			r.locker = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Refresher) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates a new Refresher.
func New(store IntegrationStore, client TokenClient, logger *zap.Logger, opts ...Option) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Refresher{
		store:  store,
		client: client,
		locker: NewLocalLocker(),
		logger: logger.Named("token-refresher"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AccessToken returns a usable access token for the integration.
//
// A token whose expiry is still in the future is returned without any network call.
// Otherwise the integration is locked, re-read, and refreshed only if it is still expired,
// so concurrent callers for one integration trigger a single refresh. On success the new
// credential is persisted and copied onto integ.
func (r *Refresher) AccessToken(ctx context.Context, integ *marketplace.Integration) (string, error) {
	if integ.TokenValid(r.now()) {
		metrics.TokenRefreshesTotal.WithLabelValues("reused").Inc()
		return integ.AccessToken, nil
	}

	unlock, err := r.locker.Lock(ctx, integ.ID)
	if err != nil {
		return "", fmt.Errorf("%w: failed to lock integration %s: %w", ErrTokenRefreshFailed, integ.ID, err)
	}
	defer unlock()

	current, err := r.store.GetIntegration(ctx, integ.ID)
	if err != nil {
		return "", fmt.Errorf("%w: failed to reload integration %s: %w", ErrTokenRefreshFailed, integ.ID, err)
	}
	if current.TokenValid(r.now()) {
		// refreshed by another holder while we waited
		applyCredential(integ, current.AccessToken, current.RefreshToken, *current.ExpiresAt)
		metrics.TokenRefreshesTotal.WithLabelValues("reused").Inc()
		return current.AccessToken, nil
	}

	tok, err := r.client.RefreshToken(ctx, current.APIKey, current.RefreshToken)
	if err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("%w: %w", ErrTokenRefreshFailed, err)
	}

	cred := &marketplace.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    r.expiry(tok),
	}
	if cred.RefreshToken == "" {
		cred.RefreshToken = current.RefreshToken
	}

	if err := r.store.UpdateIntegrationToken(ctx, integ.ID, cred); err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("%w: failed to persist token for integration %s: %w", ErrTokenRefreshFailed, integ.ID, err)
	}

	applyCredential(integ, cred.AccessToken, cred.RefreshToken, cred.ExpiresAt)
	metrics.TokenRefreshesTotal.WithLabelValues("refreshed").Inc()

	r.logger.Info("Refreshed access token",
		zap.String("integration_id", integ.ID),
		zap.String("shop_id", integ.ShopID),
		zap.Time("expires_at", cred.ExpiresAt))

	return cred.AccessToken, nil
}

// expiry is now plus the reported lifetime.
func (r *Refresher) expiry(tok *oauth2.Token) time.Time {
	if tok.ExpiresIn > 0 {
		return r.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	if !tok.Expiry.IsZero() {
		return tok.Expiry
	}
	return r.now()
}

func applyCredential(integ *marketplace.Integration, access, refresh string, expiresAt time.Time) {
	integ.AccessToken = access
	integ.RefreshToken = refresh
	integ.ExpiresAt = &expiresAt
}
