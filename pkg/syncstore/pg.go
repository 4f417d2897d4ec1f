package syncstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/paketkapinda/genova/pkg/marketplace"
)

var _ Store = (*pgStore)(nil)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the sync store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

func (s *pgStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *pgStore) ListActiveIntegrations(
	ctx context.Context,
	provider marketplace.Provider,
	opts ...QueryOption,
) ([]*marketplace.Integration, error) {
	options := &QueryOptions{}
	for _, opt := range opts {
		opt(options)
	}

	var daos []IntegrationDao
	query := s.db.NewSelect().
		Model(&daos).
		Where("provider = ?", string(provider)).
		Where("is_active = ?", true).
		Order("id ASC")

	if options.UserID != nil {
		query = query.Where("user_id = ?", *options.UserID)
	}

	if err := query.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list active integrations: %w", err)
	}

	integrations := make([]*marketplace.Integration, len(daos))
	for i := range daos {
		integrations[i] = toIntegration(&daos[i])
	}
	return integrations, nil
}

func (s *pgStore) GetIntegration(ctx context.Context, id string) (*marketplace.Integration, error) {
	dao := new(IntegrationDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIntegrationNotFound
		}
		return nil, fmt.Errorf("failed to get integration: %w", err)
	}
	return toIntegration(dao), nil
}

func (s *pgStore) UpdateIntegrationToken(ctx context.Context, id string, cred *marketplace.Credential) error {
	res, err := s.db.NewUpdate().
		Model((*IntegrationDao)(nil)).
		Set("access_token = ?", cred.AccessToken).
		Set("refresh_token = ?", cred.RefreshToken).
		Set("expires_at = ?", cred.ExpiresAt).
		Set("updated_at = current_timestamp").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update integration token: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrIntegrationNotFound
	}
	return nil
}

func (s *pgStore) GetProductBySKU(ctx context.Context, sku string) (*marketplace.Product, error) {
	var daos []ProductDao
	err := s.db.NewSelect().
		Model(&daos).
		Column("id", "user_id", "skn").
		Where("skn = ?", sku).
		Limit(2).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get product by sku: %w", err)
	}

	switch len(daos) {
	case 0:
		return nil, ErrProductNotFound
	case 1:
		return toProduct(&daos[0]), nil
	default:
		return nil, ErrAmbiguousSKU
	}
}

func (s *pgStore) UpsertOrderPayment(ctx context.Context, order *marketplace.Order, payment *marketplace.Payment) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := upsertOrder(ctx, tx, order); err != nil {
			return fmt.Errorf("failed to upsert order: %w", err)
		}
		if err := upsertPayment(ctx, tx, payment); err != nil {
			return fmt.Errorf("failed to upsert payment: %w", err)
		}
		return nil
	})
}

// upsertOrder leaves status and fulfillment_status untouched on conflict so
// transitions made after the first sync survive later runs.
func upsertOrder(ctx context.Context, db bun.IDB, order *marketplace.Order) error {
	_, err := db.NewInsert().
		Model(toOrderDao(order)).
		On("CONFLICT (etsy_order_id) DO UPDATE").
		Set("user_id = EXCLUDED.user_id").
		Set("product_id = EXCLUDED.product_id").
		Set("order_number = EXCLUDED.order_number").
		Set("product_name = EXCLUDED.product_name").
		Set("quantity = EXCLUDED.quantity").
		Set("unit_price = EXCLUDED.unit_price").
		Set("total_price = EXCLUDED.total_price").
		Set("updated_at = current_timestamp").
		Returning("NULL").
		Exec(ctx)
	return err
}

func upsertPayment(ctx context.Context, db bun.IDB, payment *marketplace.Payment) error {
	_, err := db.NewInsert().
		Model(toPaymentDao(payment)).
		On("CONFLICT (provider, external_payment_id) DO UPDATE").
		Set("user_id = EXCLUDED.user_id").
		Set("order_id = EXCLUDED.order_id").
		Set("amount = EXCLUDED.amount").
		Set("currency = EXCLUDED.currency").
		Set("status = EXCLUDED.status").
		Set("payment_date = EXCLUDED.payment_date").
		Set("updated_at = current_timestamp").
		Returning("NULL").
		Exec(ctx)
	return err
}
