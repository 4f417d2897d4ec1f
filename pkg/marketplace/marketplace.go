// Package marketplace holds the domain model shared by the payment sync job:
// shop integrations, local products, and the order and payment rows mirrored
// from the marketplace.
package marketplace

import (
	"time"

	"github.com/shopspring/decimal"
)

// Provider identifies a marketplace.
type Provider string

const (
	ProviderEtsy Provider = "etsy"
)

// Order and payment constants written by the sync job.
const (
	OrderStatusPaid        = "paid"
	FulfillmentUnfulfilled = "unfulfilled"
	DefaultCurrency        = "USD"
	orderNumberPrefix      = "ETSY-"
)

// Integration is one user's connection of a shop to a marketplace provider.
type Integration struct {
	ID           string
	UserID       string
	Provider     Provider
	ShopID       string
	APIKey       string // OAuth client id
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	IsActive     bool
}

// TokenValid reports whether the stored access token is usable at now.
// An integration without a recorded expiry is treated as expired.
func (i *Integration) TokenValid(now time.Time) bool {
	return i.ExpiresAt != nil && i.ExpiresAt.After(now)
}

// Credential is a refreshed OAuth credential for an integration.
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Product is a local product resolved by SKU.
type Product struct {
	ID     string
	UserID string
	SKU    string
}

// Order is the local mirror of a marketplace order.
type Order struct {
	UserID            string
	ProductID         string
	EtsyOrderID       string
	OrderNumber       string
	ProductName       string
	Quantity          int
	UnitPrice         decimal.Decimal
	TotalPrice        decimal.Decimal
	Status            string
	FulfillmentStatus string
}

// NewPaidOrder builds the order row the sync job writes for a resolved payment.
// Every order starts paid and unfulfilled; later transitions happen elsewhere.
func NewPaidOrder(product *Product, remoteOrderID, productName string, quantity int, unitPrice decimal.Decimal) *Order {
	if quantity <= 0 {
		quantity = 1
	}
	return &Order{
		UserID:            product.UserID,
		ProductID:         product.ID,
		EtsyOrderID:       remoteOrderID,
		OrderNumber:       orderNumberPrefix + remoteOrderID,
		ProductName:       productName,
		Quantity:          quantity,
		UnitPrice:         unitPrice,
		TotalPrice:        unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
		Status:            OrderStatusPaid,
		FulfillmentStatus: FulfillmentUnfulfilled,
	}
}

// Payment is the local mirror of a marketplace payment.
type Payment struct {
	Provider          Provider
	UserID            string
	OrderID           string // remote order identifier
	ExternalPaymentID string
	Amount            decimal.Decimal
	Currency          string
	Status            string
	PaymentDate       *time.Time
}

// AmountFromMinor converts a minor-unit amount (cents) to its decimal value.
func AmountFromMinor(value int64) decimal.Decimal {
	return decimal.New(value, -2)
}

// CurrencyOrDefault returns code, or DefaultCurrency when code is empty.
func CurrencyOrDefault(code string) string {
	if code == "" {
		return DefaultCurrency
	}
	return code
}
