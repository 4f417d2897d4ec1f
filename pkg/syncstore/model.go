package syncstore

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/paketkapinda/genova/pkg/marketplace"
)

// IntegrationDao is a data access object that maps directly to the 'integrations' table in PostgreSQL.
type IntegrationDao struct {
	bun.BaseModel `bun:"table:integrations,alias:i"`
	ID            string     `bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()"`
	UserID        string     `bun:"user_id,notnull,type:text"`
	Provider      string     `bun:"provider,notnull,type:varchar(32)"`
	ShopID        string     `bun:"shop_id,notnull,type:varchar(64)"`
	APIKey        string     `bun:"api_key,notnull,type:text"`
	AccessToken   *string    `bun:"access_token,type:text"`
	RefreshToken  *string    `bun:"refresh_token,type:text"`
	ExpiresAt     *time.Time `bun:"expires_at,type:timestamptz"`
	IsActive      bool       `bun:"is_active,notnull,default:true"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// ProductDao maps the columns of the 'products' table the sync job reads.
type ProductDao struct {
	bun.BaseModel `bun:"table:products,alias:p"`
	ID            string    `bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()"`
	UserID        string    `bun:"user_id,notnull,type:text"`
	SKN           *string   `bun:"skn,type:varchar(128)"`
	Name          string    `bun:"name,notnull,type:varchar(255),default:''"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// OrderDao is a data access object that maps directly to the 'orders' table in PostgreSQL.
type OrderDao struct {
	bun.BaseModel     `bun:"table:orders,alias:o"`
	ID                string          `bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()"`
	UserID            string          `bun:"user_id,notnull,type:text"`
	ProductID         string          `bun:"product_id,notnull,type:uuid"`
	EtsyOrderID       string          `bun:"etsy_order_id,unique,notnull,type:varchar(64)"`
	OrderNumber       string          `bun:"order_number,notnull,type:varchar(80)"`
	ProductName       string          `bun:"product_name,type:varchar(255)"`
	Quantity          int             `bun:"quantity,notnull,default:1"`
	UnitPrice         decimal.Decimal `bun:"unit_price,notnull,type:numeric(12,2)"`
	TotalPrice        decimal.Decimal `bun:"total_price,notnull,type:numeric(12,2)"`
	Status            string          `bun:"status,notnull,type:varchar(32)"`
	FulfillmentStatus string          `bun:"fulfillment_status,notnull,type:varchar(32)"`
	CreatedAt         time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// PaymentDao is a data access object that maps directly to the 'payments' table in PostgreSQL.
type PaymentDao struct {
	bun.BaseModel     `bun:"table:payments,alias:pm"`
	ID                string          `bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()"`
	Provider          string          `bun:"provider,notnull,type:varchar(32),unique:payments_provider_external_payment_id"`
	UserID            string          `bun:"user_id,notnull,type:text"`
	OrderID           string          `bun:"order_id,notnull,type:varchar(64)"`
	ExternalPaymentID string          `bun:"external_payment_id,notnull,type:varchar(64),unique:payments_provider_external_payment_id"`
	Amount            decimal.Decimal `bun:"amount,notnull,type:numeric(12,2)"`
	Currency          string          `bun:"currency,notnull,type:varchar(3)"`
	Status            string          `bun:"status,type:varchar(32)"`
	PaymentDate       *time.Time      `bun:"payment_date,type:timestamptz"`
	CreatedAt         time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func toIntegration(dao *IntegrationDao) *marketplace.Integration {
	in := &marketplace.Integration{
		ID:        dao.ID,
		UserID:    dao.UserID,
		Provider:  marketplace.Provider(dao.Provider),
		ShopID:    dao.ShopID,
		APIKey:    dao.APIKey,
		ExpiresAt: dao.ExpiresAt,
		IsActive:  dao.IsActive,
	}
	if dao.AccessToken != nil {
		in.AccessToken = *dao.AccessToken
	}
	if dao.RefreshToken != nil {
		in.RefreshToken = *dao.RefreshToken
	}
	return in
}

func toProduct(dao *ProductDao) *marketplace.Product {
	p := &marketplace.Product{
		ID:     dao.ID,
		UserID: dao.UserID,
	}
	if dao.SKN != nil {
		p.SKU = *dao.SKN
	}
	return p
}

func toOrderDao(o *marketplace.Order) *OrderDao {
	return &OrderDao{
		UserID:            o.UserID,
		ProductID:         o.ProductID,
		EtsyOrderID:       o.EtsyOrderID,
		OrderNumber:       o.OrderNumber,
		ProductName:       o.ProductName,
		Quantity:          o.Quantity,
		UnitPrice:         o.UnitPrice,
		TotalPrice:        o.TotalPrice,
		Status:            o.Status,
		FulfillmentStatus: o.FulfillmentStatus,
	}
}

func toPaymentDao(p *marketplace.Payment) *PaymentDao {
	return &PaymentDao{
		Provider:          string(p.Provider),
		UserID:            p.UserID,
		OrderID:           p.OrderID,
		ExternalPaymentID: p.ExternalPaymentID,
		Amount:            p.Amount,
		Currency:          p.Currency,
		Status:            p.Status,
		PaymentDate:       p.PaymentDate,
	}
}
