package syncstore

import (
	"context"
	"errors"

	"github.com/paketkapinda/genova/pkg/marketplace"
)

var (
	// ErrIntegrationNotFound is returned when an integration lookup finds no matching record.
	ErrIntegrationNotFound = errors.New("integration not found")
	// ErrProductNotFound is returned when no product carries the requested SKU.
	ErrProductNotFound = errors.New("product not found")
	// ErrAmbiguousSKU is returned when more than one product carries the requested SKU.
	ErrAmbiguousSKU = errors.New("sku matches more than one product")
)

// Store defines the persistence used by a sync run: integration listing and
// token writes, product lookup by SKU, and the idempotent ledger write.
type Store interface {
	ListActiveIntegrations(ctx context.Context, provider marketplace.Provider, opts ...QueryOption) ([]*marketplace.Integration, error)
	GetIntegration(ctx context.Context, id string) (*marketplace.Integration, error)
	UpdateIntegrationToken(ctx context.Context, id string, cred *marketplace.Credential) error
	GetProductBySKU(ctx context.Context, sku string) (*marketplace.Product, error)
	// UpsertOrderPayment writes the order and its payment in one transaction.
	UpsertOrderPayment(ctx context.Context, order *marketplace.Order, payment *marketplace.Payment) error
	Ping(ctx context.Context) error
}

// QueryOptions defines options for listing integrations
type QueryOptions struct {
	UserID *string
}

// QueryOption is a functional option for listing integrations
type QueryOption func(*QueryOptions)

// WithUserID restricts a listing to a single owning user
func WithUserID(userID string) QueryOption {
	return func(opts *QueryOptions) {
		opts.UserID = &userID
	}
}
