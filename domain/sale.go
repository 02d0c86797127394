package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is a committed point-of-sale transaction. Sales are written once,
// together with their items, and never updated or deleted.
type Sale struct {
	ID             int64           `db:"id" json:"id"`
	CustomerID     int64           `db:"customer_id" json:"customer_id"`
	UserID         int64           `db:"user_id" json:"user_id"`
	TotalAmount    decimal.Decimal `db:"total_amount" json:"total_amount"`
	IdempotencyKey string          `db:"idempotency_key" json:"-"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	Items          []SaleItem      `db:"-" json:"items,omitempty"`
}

// SaleItem is one line of a Sale. UnitPrice is a snapshot of the medicine
// price at sale time; later price edits never change it.
type SaleItem struct {
	ID         int64           `db:"id" json:"id"`
	SaleID     int64           `db:"sale_id" json:"sale_id"`
	MedicineID int64           `db:"medicine_id" json:"medicine_id"`
	Quantity   int64           `db:"quantity" json:"quantity"`
	UnitPrice  decimal.Decimal `db:"unit_price" json:"unit_price"`
	LineTotal  decimal.Decimal `db:"line_total" json:"line_total"`
}
