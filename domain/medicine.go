package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Medicine is a sellable stock item. Quantity and Price are mutated only
// through the locking discipline in internal/pos and internal/store;
// LockVersion changes on every write so stale updates are detected.
type Medicine struct {
	ID          int64           `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Category    string          `db:"category" json:"category"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Quantity    int64           `db:"quantity" json:"quantity"`
	ExpiryDate  *time.Time      `db:"expiry_date" json:"expiry_date,omitempty"`
	IsActive    bool            `db:"is_active" json:"is_active"`
	LockVersion int64           `db:"lock_version" json:"lock_version"`
}
