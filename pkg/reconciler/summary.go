package reconciler

import (
	"time"

	"github.com/paketkapinda/genova/pkg/marketplace"
)

// Status is the outcome of one integration within a run.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Outcome is the terminal state of one remote payment.
type Outcome string

const (
	OutcomeUpserted Outcome = "upserted"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// Reason explains a skipped or failed unit of work.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonTokenRefreshFailed  Reason = "token_refresh_failed"
	ReasonPaymentsFetchFailed Reason = "payments_fetch_failed"
	ReasonDeadlineExceeded    Reason = "deadline_exceeded"
	ReasonMissingOrderID      Reason = "missing_order_id"
	ReasonOrderFetchFailed    Reason = "order_fetch_failed"
	ReasonOrderNotFound       Reason = "order_not_found"
	ReasonMissingSKU          Reason = "missing_sku"
	ReasonProductNotFound     Reason = "product_not_found"
	ReasonAmbiguousSKU        Reason = "ambiguous_sku"
	ReasonStoreError          Reason = "store_error"
	ReasonInternalError       Reason = "internal_error"
)

// IntegrationResult records what happened to one integration.
type IntegrationResult struct {
	IntegrationID   string `json:"integration_id"`
	ShopID          string `json:"shop_id"`
	Status          Status `json:"status"`
	Reason          Reason `json:"reason,omitempty"`
	Upserted        int    `json:"upserted"`
	SkippedPayments int    `json:"skipped"`
	FailedPayments  int    `json:"failed"`
}

func newResult(integ *marketplace.Integration) IntegrationResult {
	return IntegrationResult{
		IntegrationID: integ.ID,
		ShopID:        integ.ShopID,
		Status:        StatusOK,
	}
}

func (r *IntegrationResult) skip(reason Reason) {
	r.Status = StatusSkipped
	r.Reason = reason
}

func (r *IntegrationResult) fail(reason Reason) {
	r.Status = StatusFailed
	r.Reason = reason
}

func (r *IntegrationResult) count(o Outcome) {
	switch o {
	case OutcomeUpserted:
		r.Upserted++
	case OutcomeSkipped:
		r.SkippedPayments++
	case OutcomeFailed:
		r.FailedPayments++
	}
}

// Summary aggregates a run. Processed, Skipped and Failed count integrations;
// Upserted counts payments written across all integrations.
type Summary struct {
	RunID        string              `json:"run_id"`
	Integrations int                 `json:"integrations"`
	Processed    int                 `json:"processed"`
	Skipped      int                 `json:"skipped"`
	Failed       int                 `json:"failed"`
	Upserted     int                 `json:"payments_upserted"`
	Results      []IntegrationResult `json:"results"`
	Duration     time.Duration       `json:"-"`
}

func (s *Summary) tally() {
	s.Processed, s.Skipped, s.Failed, s.Upserted = 0, 0, 0, 0
	for _, res := range s.Results {
		switch res.Status {
		case StatusOK:
			s.Processed++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
		s.Upserted += res.Upserted
	}
}
