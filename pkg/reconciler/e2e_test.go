package reconciler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/paketkapinda/genova/pkg/etsy"
	"github.com/paketkapinda/genova/pkg/marketplace"
	"github.com/paketkapinda/genova/pkg/tokenrefresh"
)

// fakeEtsy serves the token, payments and order endpoints for one shop.
type fakeEtsy struct {
	tokenCalls atomic.Int32
	orderCalls atomic.Int32
}

func (f *fakeEtsy) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v3/public/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "refresh_token", body["grant_type"])
		assert.Equal(t, "client-1", body["client_id"])
		_, _ = w.Write([]byte(`{"access_token":"access-new","refresh_token":"refresh-new","expires_in":3600}`))
	})
	mux.HandleFunc("GET /v3/application/shops/shop-1/payments", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-new" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"count":1,"results":[
			{"order_id":"O1","payment_id":"P1","amount":{"value":4999,"currency":"USD"},"status":"paid","create_date":1767225600}
		]}`))
	})
	mux.HandleFunc("GET /v3/application/shops/shop-1/orders/O1", func(w http.ResponseWriter, r *http.Request) {
		f.orderCalls.Add(1)
		_, _ = w.Write([]byte(`{"results":[{"order_id":"O1","line_items":[
			{"sku":"SKU-A","title":"Mug","quantity":1,"price":49.99}
		]}]}`))
	})
	return mux
}

func TestEndToEnd_ExpiredTokenSingleShop(t *testing.T) {
	fake := &fakeEtsy{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	client, err := etsy.New(etsy.Config{
		BaseURL:        srv.URL + "/v3",
		TokenURL:       srv.URL + "/v3/public/oauth/token",
		RequestTimeout: 2 * time.Second,
	}, etsy.WithLimiter(rate.NewLimiter(rate.Inf, 1)))
	require.NoError(t, err)

	store := newMemStore()
	expired := time.Now().Add(-time.Hour)
	integ := integration("1", "U1")
	integ.ExpiresAt = &expired
	store.addIntegration(integ)
	store.addProduct(marketplace.Product{ID: "prod-a", UserID: "U1", SKU: "SKU-A"})

	refresher := tokenrefresh.New(store, client, zap.NewNop())
	r := New(store, refresher, client, Config{Workers: 2, JobTimeout: 5 * time.Second}, zap.NewNop())

	summary, err := r.ReconcileAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Upserted)
	assert.Equal(t, int32(1), fake.tokenCalls.Load())

	require.Len(t, store.orders, 1)
	o := store.orders["O1"]
	assert.Equal(t, "U1", o.UserID)
	assert.Equal(t, "O1", o.EtsyOrderID)
	assert.Equal(t, "paid", o.Status)
	assert.Equal(t, "unfulfilled", o.FulfillmentStatus)

	require.Len(t, store.payments, 1)
	p := store.payments[paymentKey{marketplace.ProviderEtsy, "P1"}]
	assert.Equal(t, "P1", p.ExternalPaymentID)
	assert.Equal(t, "49.99", p.Amount.StringFixed(2))
	assert.Equal(t, "USD", p.Currency)

	stored, err := store.GetIntegration(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "access-new", stored.AccessToken)
	assert.Equal(t, "refresh-new", stored.RefreshToken)
	assert.True(t, stored.ExpiresAt.After(time.Now()))

	// second run reuses the persisted token and writes nothing new
	_, err = r.ReconcileAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), fake.tokenCalls.Load())
	assert.Equal(t, int32(2), fake.orderCalls.Load())
	assert.Len(t, store.orders, 1)
	assert.Len(t, store.payments, 1)
}
