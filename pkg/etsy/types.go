package etsy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ID is an Etsy identifier. The API sends ids as JSON numbers, some
// proxies send them as strings; both decode to the same value.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Timestamp accepts epoch seconds or an RFC 3339 string.
type Timestamp struct {
	time.Time
}

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decode timestamp: %w", err)
		}
		if s == "" {
			return nil
		}
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
			ts.Time = time.Unix(secs, 0).UTC()
			return nil
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("decode timestamp %q: %w", s, err)
		}
		ts.Time = t
		return nil
	}
	secs, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("decode timestamp: %w", err)
	}
	ts.Time = time.Unix(secs, 0).UTC()
	return nil
}

// Ptr returns nil for a zero timestamp.
func (ts Timestamp) Ptr() *time.Time {
	if ts.IsZero() {
		return nil
	}
	t := ts.Time
	return &t
}

// Amount is a money value in minor units.
type Amount struct {
	Value    int64  `json:"value"`
	Currency string `json:"currency"`
}

// Price is a line item price. It decodes a plain number, a quoted number,
// or Etsy's {amount, divisor, currency_code} money object.
type Price struct {
	decimal.Decimal
}

func (p *Price) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		p.Decimal = decimal.Zero
		return nil
	}
	if b[0] != '{' {
		return p.Decimal.UnmarshalJSON(b)
	}

	var money struct {
		Amount  int64 `json:"amount"`
		Divisor int64 `json:"divisor"`
	}
	if err := json.Unmarshal(b, &money); err != nil {
		return fmt.Errorf("decode price: %w", err)
	}
	if money.Divisor <= 0 {
		money.Divisor = 100
	}
	p.Decimal = decimal.NewFromInt(money.Amount).Div(decimal.NewFromInt(money.Divisor))
	return nil
}

// Payment is a row of the shop payments ledger.
type Payment struct {
	PaymentID  ID        `json:"payment_id"`
	OrderID    ID        `json:"order_id"`
	Amount     Amount    `json:"amount"`
	Status     string    `json:"status"`
	CreateDate Timestamp `json:"create_date"`
}

// LineItem is one product line of an order.
type LineItem struct {
	SKU      string `json:"sku"`
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
	Price    Price  `json:"price"`
}

// Order is a shop order with its line items.
type Order struct {
	OrderID   ID         `json:"order_id"`
	LineItems []LineItem `json:"line_items"`
}

// FirstLineItem returns the first line item, or nil for an empty order.
func (o *Order) FirstLineItem() *LineItem {
	if len(o.LineItems) == 0 {
		return nil
	}
	return &o.LineItems[0]
}

type listResponse[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}
