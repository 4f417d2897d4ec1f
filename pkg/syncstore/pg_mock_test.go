package syncstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/paketkapinda/genova/pkg/marketplace"
)

// newMockStore returns a store over sqlmock so query shapes can be checked without Docker.
func newMockStore(t *testing.T) (*pgStore, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)

	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewStore(db), mock
}

func TestPGStore_ListActiveIntegrations_Query(t *testing.T) {
	s, mock := newMockStore(t)
	expiresAt := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "user_id", "provider", "shop_id", "api_key", "access_token", "refresh_token", "expires_at", "is_active"}).
		AddRow("int-1", "U2", "etsy", "shop-2", "client-2", "access", "refresh", expiresAt, true)

	mock.ExpectQuery(`FROM "integrations" AS "i" WHERE \(provider = 'etsy'\) AND \(is_active = (TRUE|true)\) AND \(user_id = 'U2'\) ORDER BY "?id"? ASC`).
		WillReturnRows(rows)

	got, err := s.ListActiveIntegrations(context.Background(), marketplace.ProviderEtsy, WithUserID("U2"))
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "int-1", got[0].ID)
	assert.Equal(t, "shop-2", got[0].ShopID)
	assert.Equal(t, "client-2", got[0].APIKey)
	assert.Equal(t, "access", got[0].AccessToken)
	require.NotNil(t, got[0].ExpiresAt)
	assert.True(t, got[0].ExpiresAt.Equal(expiresAt))
}

func TestPGStore_ListActiveIntegrations_Error(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`FROM "integrations"`).WillReturnError(errors.New("connection reset"))

	_, err := s.ListActiveIntegrations(context.Background(), marketplace.ProviderEtsy)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list active integrations")
}

func TestPGStore_GetProductBySKU_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`FROM "products" AS "p" WHERE \(skn = 'SKU-X'\) LIMIT 2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "skn"}))

	_, err := s.GetProductBySKU(context.Background(), "SKU-X")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestPGStore_UpdateIntegrationToken_NoRows(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE "integrations" AS "i" SET access_token = 'a', refresh_token = 'r', expires_at = .* WHERE \(id = 'missing'\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateIntegrationToken(context.Background(), "missing", &marketplace.Credential{
		AccessToken:  "a",
		RefreshToken: "r",
		ExpiresAt:    time.Now().Add(time.Hour),
	})
	assert.ErrorIs(t, err, ErrIntegrationNotFound)
}

func TestPGStore_UpsertOrderPayment_Tx(t *testing.T) {
	s, mock := newMockStore(t)

	order := marketplace.NewPaidOrder(&marketplace.Product{ID: "prod-1", UserID: "U1"}, "O1", "Mug", 1, decimal.RequireFromString("49.99"))
	payment := &marketplace.Payment{
		Provider:          marketplace.ProviderEtsy,
		UserID:            "U1",
		OrderID:           "O1",
		ExternalPaymentID: "P1",
		Amount:            marketplace.AmountFromMinor(4999),
		Currency:          "USD",
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "orders" .* ON CONFLICT \(etsy_order_id\) DO UPDATE SET user_id = EXCLUDED.user_id`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "payments" .* ON CONFLICT \(provider, external_payment_id\) DO UPDATE SET user_id = EXCLUDED.user_id`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.UpsertOrderPayment(context.Background(), order, payment))
}

func TestPGStore_UpsertOrderPayment_RollsBackOnPaymentFailure(t *testing.T) {
	s, mock := newMockStore(t)

	order := marketplace.NewPaidOrder(&marketplace.Product{ID: "prod-1", UserID: "U1"}, "O1", "Mug", 1, decimal.RequireFromString("1"))
	payment := &marketplace.Payment{Provider: marketplace.ProviderEtsy, ExternalPaymentID: "P1", Currency: "USD"}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "orders"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "payments"`).WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := s.UpsertOrderPayment(context.Background(), order, payment)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upsert payment")
}
