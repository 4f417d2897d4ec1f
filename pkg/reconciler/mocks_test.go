package reconciler

import (
	"context"
	"sync"

	"github.com/paketkapinda/genova/pkg/etsy"
	"github.com/paketkapinda/genova/pkg/marketplace"
	"github.com/paketkapinda/genova/pkg/syncstore"
)

// MockStore is a mock implementation of Store
type MockStore struct {
	ListActiveIntegrationsFunc func(ctx context.Context, provider marketplace.Provider, opts ...syncstore.QueryOption) ([]*marketplace.Integration, error)
	GetProductBySKUFunc        func(ctx context.Context, sku string) (*marketplace.Product, error)
	UpsertOrderPaymentFunc     func(ctx context.Context, order *marketplace.Order, payment *marketplace.Payment) error
}

func (m *MockStore) ListActiveIntegrations(ctx context.Context, provider marketplace.Provider, opts ...syncstore.QueryOption) ([]*marketplace.Integration, error) {
	if m.ListActiveIntegrationsFunc != nil {
		return m.ListActiveIntegrationsFunc(ctx, provider, opts...)
	}
	return nil, nil
}

func (m *MockStore) GetProductBySKU(ctx context.Context, sku string) (*marketplace.Product, error) {
	if m.GetProductBySKUFunc != nil {
		return m.GetProductBySKUFunc(ctx, sku)
	}
	return nil, syncstore.ErrProductNotFound
}

func (m *MockStore) UpsertOrderPayment(ctx context.Context, order *marketplace.Order, payment *marketplace.Payment) error {
	if m.UpsertOrderPaymentFunc != nil {
		return m.UpsertOrderPaymentFunc(ctx, order, payment)
	}
	return nil
}

// MockTokenProvider is a mock implementation of TokenProvider
type MockTokenProvider struct {
	AccessTokenFunc func(ctx context.Context, integ *marketplace.Integration) (string, error)
}

func (m *MockTokenProvider) AccessToken(ctx context.Context, integ *marketplace.Integration) (string, error) {
	if m.AccessTokenFunc != nil {
		return m.AccessTokenFunc(ctx, integ)
	}
	return integ.AccessToken, nil
}

// MockMarketplaceClient is a mock implementation of MarketplaceClient
type MockMarketplaceClient struct {
	ListPaymentsFunc func(ctx context.Context, creds etsy.Credentials, shopID string) ([]etsy.Payment, error)
	GetOrderFunc     func(ctx context.Context, creds etsy.Credentials, shopID, orderID string) (*etsy.Order, error)
}

func (m *MockMarketplaceClient) ListPayments(ctx context.Context, creds etsy.Credentials, shopID string) ([]etsy.Payment, error) {
	if m.ListPaymentsFunc != nil {
		return m.ListPaymentsFunc(ctx, creds, shopID)
	}
	return nil, nil
}

func (m *MockMarketplaceClient) GetOrder(ctx context.Context, creds etsy.Credentials, shopID, orderID string) (*etsy.Order, error) {
	if m.GetOrderFunc != nil {
		return m.GetOrderFunc(ctx, creds, shopID, orderID)
	}
	return nil, etsy.ErrNotFound
}

type paymentKey struct {
	provider marketplace.Provider
	id       string
}

// memStore is an in-memory Store with the same upsert keys as the database.
type memStore struct {
	mu           sync.Mutex
	integrations map[string]marketplace.Integration
	products     map[string]marketplace.Product
	orders       map[string]marketplace.Order
	payments     map[paymentKey]marketplace.Payment
	writes       []string
}

func newMemStore() *memStore {
	return &memStore{
		integrations: make(map[string]marketplace.Integration),
		products:     make(map[string]marketplace.Product),
		orders:       make(map[string]marketplace.Order),
		payments:     make(map[paymentKey]marketplace.Payment),
	}
}

func (s *memStore) addIntegration(i marketplace.Integration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.integrations[i.ID] = i
}

func (s *memStore) addProduct(p marketplace.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.SKU] = p
}

func (s *memStore) ListActiveIntegrations(_ context.Context, provider marketplace.Provider, opts ...syncstore.QueryOption) ([]*marketplace.Integration, error) {
	var qo syncstore.QueryOptions
	for _, opt := range opts {
		opt(&qo)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*marketplace.Integration
	for _, i := range s.integrations {
		if i.Provider != provider || !i.IsActive {
			continue
		}
		if qo.UserID != nil && i.UserID != *qo.UserID {
			continue
		}
		integ := i
		out = append(out, &integ)
	}
	return out, nil
}

func (s *memStore) GetIntegration(_ context.Context, id string) (*marketplace.Integration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.integrations[id]
	if !ok {
		return nil, syncstore.ErrIntegrationNotFound
	}
	return &i, nil
}

func (s *memStore) UpdateIntegrationToken(_ context.Context, id string, cred *marketplace.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.integrations[id]
	if !ok {
		return syncstore.ErrIntegrationNotFound
	}
	exp := cred.ExpiresAt
	i.AccessToken, i.RefreshToken, i.ExpiresAt = cred.AccessToken, cred.RefreshToken, &exp
	s.integrations[id] = i
	return nil
}

func (s *memStore) GetProductBySKU(_ context.Context, sku string) (*marketplace.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[sku]
	if !ok {
		return nil, syncstore.ErrProductNotFound
	}
	return &p, nil
}

func (s *memStore) UpsertOrderPayment(_ context.Context, order *marketplace.Order, payment *marketplace.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o := *order
	if existing, ok := s.orders[o.EtsyOrderID]; ok {
		// status columns are owned by later fulfillment steps
		o.Status, o.FulfillmentStatus = existing.Status, existing.FulfillmentStatus
	}
	s.orders[o.EtsyOrderID] = o
	s.payments[paymentKey{payment.Provider, payment.ExternalPaymentID}] = *payment
	s.writes = append(s.writes, payment.ExternalPaymentID)
	return nil
}
