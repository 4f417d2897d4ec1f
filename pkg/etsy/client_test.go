package etsy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestClient(t *testing.T, srv *httptest.Server, mutate func(*Config)) *Client {
	t.Helper()
	cfg := Config{
		BaseURL:        srv.URL + "/v3",
		TokenURL:       srv.URL + "/v3/public/oauth/token",
		RequestTimeout: 2 * time.Second,
		PageLimit:      2,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := New(cfg, WithLimiter(rate.NewLimiter(rate.Inf, 1)))
	require.NoError(t, err)
	return c
}

func TestNew_AppliesDefaults(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)

	assert.Equal(t, "https://api.etsy.com/v3", c.cfg.BaseURL)
	assert.Equal(t, "https://api.etsy.com/v3/public/oauth/token", c.cfg.TokenURL)
	assert.Equal(t, 15*time.Second, c.cfg.RequestTimeout)
	assert.Equal(t, 100, c.cfg.PageLimit)
	assert.Equal(t, 15*time.Second, c.httpClient.Timeout)
}

func TestListPayments_Paginates(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v3/application/shops/shop-1/payments", r.URL.Path)
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		assert.Equal(t, "client-1", r.Header.Get("x-api-key"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		all := []map[string]any{
			{"payment_id": 101, "order_id": 9001, "amount": map[string]any{"value": 4999, "currency": "USD"}, "status": "paid", "create_date": 1767225600},
			{"payment_id": "102", "order_id": "9002", "amount": map[string]any{"value": 2500}, "status": "paid"},
			{"payment_id": 103, "amount": map[string]any{"value": 999, "currency": "EUR"}, "status": "paid", "create_date": "2026-01-02T03:04:05Z"},
		}
		end := offset + 2
		if end > len(all) {
			end = len(all)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"count": len(all), "results": all[offset:end]})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	payments, err := c.ListPayments(context.Background(), Credentials{AccessToken: "access-1", APIKey: "client-1"}, "shop-1")
	require.NoError(t, err)

	require.Len(t, payments, 3)
	assert.Equal(t, int32(2), calls.Load())

	assert.Equal(t, ID("101"), payments[0].PaymentID)
	assert.Equal(t, ID("9001"), payments[0].OrderID)
	assert.Equal(t, int64(4999), payments[0].Amount.Value)
	assert.Equal(t, time.Unix(1767225600, 0).UTC(), payments[0].CreateDate.Time)

	assert.Equal(t, ID("102"), payments[1].PaymentID)
	assert.Empty(t, payments[1].Amount.Currency)
	assert.Nil(t, payments[1].CreateDate.Ptr())

	assert.Empty(t, payments[2].OrderID)
	assert.Equal(t, 2026, payments[2].CreateDate.Year())
}

func TestListPayments_ServerIgnoresOffset(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"results":[
			{"payment_id":1,"order_id":11,"amount":{"value":100}},
			{"payment_id":2,"order_id":12,"amount":{"value":200}}
		]}`))
	}))
	defer srv.Close()

	payments, err := newTestClient(t, srv, nil).ListPayments(context.Background(), Credentials{AccessToken: "a"}, "shop-1")
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	require.Len(t, payments, 2)
	assert.Equal(t, ID("1"), payments[0].PaymentID)
	assert.Equal(t, ID("2"), payments[1].PaymentID)
}

func TestListPayments_DropsOverlappingPayments(t *testing.T) {
	pages := map[string]string{
		"0": `{"results":[{"payment_id":1,"order_id":11},{"payment_id":2,"order_id":12}]}`,
		// a new payment shifted the ledger, so payment 2 shows up again
		"2": `{"results":[{"payment_id":2,"order_id":12},{"payment_id":3,"order_id":13}]}`,
		"4": `{"results":[{"payment_id":4,"order_id":14}]}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(pages[r.URL.Query().Get("offset")]))
	}))
	defer srv.Close()

	payments, err := newTestClient(t, srv, nil).ListPayments(context.Background(), Credentials{AccessToken: "a"}, "shop-1")
	require.NoError(t, err)

	var ids []ID
	for _, p := range payments {
		ids = append(ids, p.PaymentID)
	}
	assert.Equal(t, []ID{"1", "2", "3", "4"}, ids)
}

func TestListPayments_EmptyLedger(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"count":0,"results":[]}`))
	}))
	defer srv.Close()

	payments, err := newTestClient(t, srv, nil).ListPayments(context.Background(), Credentials{AccessToken: "a"}, "shop-1")
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestListPayments_NonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_token"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, nil).ListPayments(context.Background(), Credentials{AccessToken: "bad"}, "shop-1")
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "invalid_token")
}

func TestListPayments_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv, func(cfg *Config) { cfg.RequestTimeout = 50 * time.Millisecond })

	start := time.Now()
	_, err := c.ListPayments(context.Background(), Credentials{AccessToken: "a"}, "shop-1")
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGetOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v3/application/shops/shop-1/orders/O1":
			_, _ = w.Write([]byte(`{"results":[{"order_id":"O1","line_items":[
				{"sku":"SKU-A","title":"Mug","quantity":1,"price":49.99},
				{"sku":"SKU-B","title":"Cup","quantity":2,"price":{"amount":1250,"divisor":100,"currency_code":"USD"}}
			]}]}`))
		case "/v3/application/shops/shop-1/orders/EMPTY":
			_, _ = w.Write([]byte(`{"results":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	creds := Credentials{AccessToken: "a"}

	order, err := c.GetOrder(context.Background(), creds, "shop-1", "O1")
	require.NoError(t, err)
	require.Len(t, order.LineItems, 2)

	first := order.FirstLineItem()
	require.NotNil(t, first)
	assert.Equal(t, "SKU-A", first.SKU)
	assert.Equal(t, "49.99", first.Price.StringFixed(2))
	assert.Equal(t, "12.50", order.LineItems[1].Price.StringFixed(2))

	_, err = c.GetOrder(context.Background(), creds, "shop-1", "EMPTY")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.GetOrder(context.Background(), creds, "shop-1", "MISSING")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v3/public/oauth/token", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{
			"grant_type":    "refresh_token",
			"client_id":     "client-1",
			"refresh_token": "refresh-old",
		}, body)

		_, _ = w.Write([]byte(`{"access_token":"access-new","refresh_token":"refresh-new","expires_in":3600,"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	before := time.Now()
	tok, err := newTestClient(t, srv, nil).RefreshToken(context.Background(), "client-1", "refresh-old")
	require.NoError(t, err)

	assert.Equal(t, "access-new", tok.AccessToken)
	assert.Equal(t, "refresh-new", tok.RefreshToken)
	assert.WithinDuration(t, before.Add(time.Hour), tok.Expiry, 5*time.Second)
	assert.True(t, tok.Valid())
}

func TestRefreshToken_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "rejected grant", status: http.StatusBadRequest, body: `{"error":"invalid_grant"}`, want: "invalid_grant"},
		{name: "missing access token", status: http.StatusOK, body: `{"expires_in":3600}`, want: "missing access_token"},
		{name: "garbage body", status: http.StatusOK, body: `<html>`, want: "decode token response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv, nil).RefreshToken(context.Background(), "client-1", "refresh-old")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRefreshToken_KeepsRefreshTokenWhenNotRotated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"access-new","expires_in":60}`))
	}))
	defer srv.Close()

	tok, err := newTestClient(t, srv, nil).RefreshToken(context.Background(), "client-1", "refresh-old")
	require.NoError(t, err)
	assert.Equal(t, "refresh-old", tok.RefreshToken)
}
