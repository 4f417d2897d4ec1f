package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/paketkapinda/genova/internal/metrics"
	"github.com/paketkapinda/genova/pkg/etsy"
	"github.com/paketkapinda/genova/pkg/marketplace"
	"github.com/paketkapinda/genova/pkg/syncstore"
)

const (
	defaultWorkers    = 4
	defaultJobTimeout = 2 * time.Minute
)

// Store provides the integration listing, product lookup and ledger writes used by a run.
type Store interface {
	ListActiveIntegrations(ctx context.Context, provider marketplace.Provider, opts ...syncstore.QueryOption) ([]*marketplace.Integration, error)
	GetProductBySKU(ctx context.Context, sku string) (*marketplace.Product, error)
	UpsertOrderPayment(ctx context.Context, order *marketplace.Order, payment *marketplace.Payment) error
}

// TokenProvider returns a valid access token for an integration.
type TokenProvider interface {
	AccessToken(ctx context.Context, integ *marketplace.Integration) (string, error)
}

// MarketplaceClient reads the remote payment ledger and order details.
type MarketplaceClient interface {
	ListPayments(ctx context.Context, creds etsy.Credentials, shopID string) ([]etsy.Payment, error)
	GetOrder(ctx context.Context, creds etsy.Credentials, shopID, orderID string) (*etsy.Order, error)
}

// Config controls a reconciliation run.
type Config struct {
	Provider   marketplace.Provider
	Workers    int
	JobTimeout time.Duration
}

// Reconciler mirrors marketplace payments into local orders and payments.
type Reconciler struct {
	store  Store
	tokens TokenProvider
	client MarketplaceClient
	cfg    Config
	logger *zap.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a new Reconciler
func New(store Store, tokens TokenProvider, client MarketplaceClient, cfg Config, logger *zap.Logger) *Reconciler {
	if cfg.Provider == "" {
		cfg.Provider = marketplace.ProviderEtsy
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = defaultJobTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		store:  store,
		tokens: tokens,
		client: client,
		cfg:    cfg,
		logger: logger.Named("reconciler"),
		stopCh: make(chan struct{}),
	}
}

// RunOptions narrows a single run.
type RunOptions struct {
	UserID string
}

// RunOption is a functional option for a single run
type RunOption func(*RunOptions)

// WithUserID restricts the run to the integrations of one user.
func WithUserID(userID string) RunOption {
	return func(o *RunOptions) {
		o.UserID = userID
	}
}

// ReconcileAll runs one reconciliation over every active integration of the provider.
//
// Integrations are processed by a bounded worker pool; a failure in one integration is
// recorded in the summary and never stops the others. Only a failure to list integrations
// fails the run. When the job deadline passes, integrations that have not started are
// reported as skipped and upserts already committed are kept.
func (r *Reconciler) ReconcileAll(ctx context.Context, opts ...RunOption) (*Summary, error) {
	var ro RunOptions
	for _, opt := range opts {
		opt(&ro)
	}

	start := time.Now()
	summary := &Summary{RunID: uuid.NewString()}
	logger := r.logger.With(zap.String("run_id", summary.RunID))

	ctx, cancel := context.WithTimeout(ctx, r.cfg.JobTimeout)
	defer cancel()

	var queryOpts []syncstore.QueryOption
	if ro.UserID != "" {
		queryOpts = append(queryOpts, syncstore.WithUserID(ro.UserID))
	}

	logger.Info("Starting payment reconciliation",
		zap.String("provider", string(r.cfg.Provider)),
		zap.String("user_id", ro.UserID))

	integrations, err := r.store.ListActiveIntegrations(ctx, r.cfg.Provider, queryOpts...)
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues(string(StatusFailed)).Inc()
		metrics.ErrorsTotal.WithLabelValues("reconciler", "list_integrations").Inc()
		return nil, fmt.Errorf("failed to list active integrations: %w", err)
	}
	metrics.ActiveIntegrations.Set(float64(len(integrations)))

	summary.Integrations = len(integrations)
	summary.Results = r.processAll(ctx, logger, integrations)
	summary.tally()
	summary.Duration = time.Since(start)

	metrics.SyncRunsTotal.WithLabelValues(string(StatusOK)).Inc()
	metrics.SyncRunDuration.Observe(summary.Duration.Seconds())

	logger.Info("Payment reconciliation completed",
		zap.Int("integrations", summary.Integrations),
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int("payments_upserted", summary.Upserted),
		zap.Duration("duration", summary.Duration))

	return summary, nil
}

// processAll fans integrations out to the worker pool. Results keep the listing order.
func (r *Reconciler) processAll(ctx context.Context, logger *zap.Logger, integrations []*marketplace.Integration) []IntegrationResult {
	results := make([]IntegrationResult, len(integrations))
	if len(integrations) == 0 {
		return results
	}

	workers := r.cfg.Workers
	if workers > len(integrations) {
		workers = len(integrations)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = r.ReconcileIntegration(ctx, logger, integrations[i])
			}
		}()
	}

	next := 0
dispatch:
	for ; next < len(integrations); next++ {
		if ctx.Err() != nil {
			break
		}
		select {
		case jobs <- next:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	for i := next; i < len(integrations); i++ {
		results[i] = newResult(integrations[i])
		results[i].skip(ReasonDeadlineExceeded)
		r.recordIntegration(results[i])
	}
	if next < len(integrations) {
		logger.Warn("Job deadline reached, remaining integrations not started",
			zap.Int("not_started", len(integrations)-next))
	}

	return results
}

// ReconcileIntegration syncs one integration. It never returns an error: every failure,
// a panic included, is folded into the result so the caller can continue with the next
// integration.
func (r *Reconciler) ReconcileIntegration(ctx context.Context, logger *zap.Logger, integ *marketplace.Integration) (res IntegrationResult) {
	if logger == nil {
		logger = r.logger
	}
	logger = logger.With(
		zap.String("integration_id", integ.ID),
		zap.String("shop_id", integ.ShopID))

	res = newResult(integ)
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Integration reconciliation panicked",
				zap.Any("panic", rec),
				zap.Stack("stack"))
			metrics.ErrorsTotal.WithLabelValues("reconciler", "panic").Inc()
			res.fail(ReasonInternalError)
		}
		r.recordIntegration(res)
	}()

	token, err := r.tokens.AccessToken(ctx, integ)
	if err != nil {
		logger.Warn("Skipping integration, token refresh failed", zap.Error(err))
		metrics.ErrorsTotal.WithLabelValues("token_refresher", "refresh").Inc()
		res.fail(ReasonTokenRefreshFailed)
		return res
	}
	creds := etsy.Credentials{AccessToken: token, APIKey: integ.APIKey}

	payments, err := r.client.ListPayments(ctx, creds, integ.ShopID)
	if deadlineHit(ctx, err) {
		logger.Warn("Job deadline reached while fetching payments", zap.Error(err))
		res.skip(ReasonDeadlineExceeded)
		return res
	}
	if err != nil {
		logger.Warn("Skipping integration, payments fetch failed", zap.Error(err))
		metrics.ErrorsTotal.WithLabelValues("marketplace", "list_payments").Inc()
		res.skip(ReasonPaymentsFetchFailed)
		return res
	}

	for i := range payments {
		if ctx.Err() != nil {
			logger.Warn("Job deadline reached, stopping integration",
				zap.Int("remaining_payments", len(payments)-i))
			res.skip(ReasonDeadlineExceeded)
			break
		}

		p := &payments[i]
		outcome, reason := r.reconcilePayment(ctx, logger, integ, creds, p)
		res.count(outcome)
		metrics.PaymentsTotal.WithLabelValues(string(integ.Provider), string(outcome), string(reason)).Inc()

		if reason == ReasonDeadlineExceeded {
			logger.Warn("Job deadline reached, stopping integration",
				zap.Int("remaining_payments", len(payments)-i-1))
			res.skip(ReasonDeadlineExceeded)
			break
		}
	}

	logger.Debug("Integration reconciled",
		zap.Int("payments", len(payments)),
		zap.Int("upserted", res.Upserted),
		zap.Int("skipped", res.SkippedPayments),
		zap.Int("failed", res.FailedPayments))

	return res
}

// reconcilePayment walks one payment through order, SKU and product resolution and
// writes the order and payment rows. Any skip condition leaves the store untouched.
func (r *Reconciler) reconcilePayment(
	ctx context.Context,
	logger *zap.Logger,
	integ *marketplace.Integration,
	creds etsy.Credentials,
	p *etsy.Payment,
) (Outcome, Reason) {
	logger = logger.With(zap.String("payment_id", p.PaymentID.String()))

	if p.OrderID == "" {
		logger.Debug("Skipping payment without order id")
		return OutcomeSkipped, ReasonMissingOrderID
	}
	orderID := p.OrderID.String()
	logger = logger.With(zap.String("order_id", orderID))

	order, err := r.client.GetOrder(ctx, creds, integ.ShopID, orderID)
	if err != nil {
		if deadlineHit(ctx, err) {
			logger.Debug("Skipping payment, job deadline reached during order fetch", zap.Error(err))
			return OutcomeSkipped, ReasonDeadlineExceeded
		}
		if errors.Is(err, etsy.ErrNotFound) {
			logger.Debug("Skipping payment, order not found")
			return OutcomeSkipped, ReasonOrderNotFound
		}
		logger.Debug("Skipping payment, order fetch failed", zap.Error(err))
		return OutcomeSkipped, ReasonOrderFetchFailed
	}

	item := order.FirstLineItem()
	if item == nil || item.SKU == "" {
		logger.Debug("Skipping payment, first line item has no sku")
		return OutcomeSkipped, ReasonMissingSKU
	}

	product, err := r.store.GetProductBySKU(ctx, item.SKU)
	switch {
	case errors.Is(err, syncstore.ErrProductNotFound):
		logger.Debug("Skipping payment, no product for sku", zap.String("sku", item.SKU))
		return OutcomeSkipped, ReasonProductNotFound
	case errors.Is(err, syncstore.ErrAmbiguousSKU):
		logger.Warn("Skipping payment, sku matches several products", zap.String("sku", item.SKU))
		return OutcomeSkipped, ReasonAmbiguousSKU
	case err != nil:
		logger.Warn("Failed to look up product", zap.String("sku", item.SKU), zap.Error(err))
		metrics.ErrorsTotal.WithLabelValues("store", "product_lookup").Inc()
		return OutcomeFailed, ReasonStoreError
	}

	localOrder := marketplace.NewPaidOrder(product, orderID, item.Title, item.Quantity, item.Price.Decimal)
	payment := &marketplace.Payment{
		Provider:          integ.Provider,
		UserID:            product.UserID,
		OrderID:           orderID,
		ExternalPaymentID: p.PaymentID.String(),
		Amount:            marketplace.AmountFromMinor(p.Amount.Value),
		Currency:          marketplace.CurrencyOrDefault(p.Amount.Currency),
		Status:            p.Status,
		PaymentDate:       p.CreateDate.Ptr(),
	}

	if err := r.store.UpsertOrderPayment(ctx, localOrder, payment); err != nil {
		logger.Warn("Failed to upsert order and payment", zap.Error(err))
		metrics.ErrorsTotal.WithLabelValues("store", "upsert").Inc()
		return OutcomeFailed, ReasonStoreError
	}

	logger.Debug("Upserted order and payment",
		zap.String("user_id", product.UserID),
		zap.String("amount", payment.Amount.StringFixed(2)),
		zap.String("currency", payment.Currency))

	return OutcomeUpserted, ReasonNone
}

// deadlineHit reports whether a failed call was cut off by the run's own deadline.
// A per-request timeout leaves ctx alive and stays a fetch failure.
func deadlineHit(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() != nil
}

func (r *Reconciler) recordIntegration(res IntegrationResult) {
	metrics.IntegrationsTotal.WithLabelValues(string(r.cfg.Provider), string(res.Status)).Inc()
}

// StartPeriodicReconciliation starts a background goroutine that reconciles periodically
func (r *Reconciler) StartPeriodicReconciliation(interval time.Duration) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		r.logger.Info("Started periodic reconciliation", zap.Duration("interval", interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithCancel(context.Background())
				go func() {
					select {
					case <-r.stopCh:
						cancel()
					case <-ctx.Done():
					}
				}()
				if _, err := r.ReconcileAll(ctx); err != nil {
					r.logger.Error("Periodic reconciliation failed", zap.Error(err))
				}
				cancel()
			case <-r.stopCh:
				r.logger.Info("Stopping periodic reconciliation")
				return
			}
		}
	}()
}

// Stop stops the periodic reconciliation
func (r *Reconciler) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}
