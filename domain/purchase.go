package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase records stock arriving from a supplier.
type Purchase struct {
	ID           int64           `db:"id" json:"id"`
	MedicineID   int64           `db:"medicine_id" json:"medicine_id"`
	Quantity     int64           `db:"quantity" json:"quantity"`
	UnitCost     decimal.Decimal `db:"unit_cost" json:"unit_cost"`
	TotalCost    decimal.Decimal `db:"total_cost" json:"total_cost"`
	Supplier     string          `db:"supplier" json:"supplier"`
	UserID       int64           `db:"user_id" json:"user_id"`
	PurchaseDate time.Time       `db:"purchase_date" json:"purchase_date"`
}
