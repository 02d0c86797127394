package pos

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"pharmapos/m/domain"
)

// CatalogStore gives the coordinator locked access to medicine rows.
// All methods are scoped to the transaction the Stores value was created
// for; locks are released when that transaction commits or rolls back.
type CatalogStore interface {
	// LockAndFetch acquires exclusive locks on the given medicine rows in
	// ascending id order and returns the locked records keyed by id.
	// Missing ids are simply absent from the result.
	LockAndFetch(ctx context.Context, ids []int64) (map[int64]*domain.Medicine, error)

	// DecrementQuantity reduces stock for a row previously locked by
	// LockAndFetch. The store refuses to take quantity below zero.
	DecrementQuantity(ctx context.Context, id, amount int64) error

	// IncrementQuantity adds stock for a row previously locked by
	// LockAndFetch.
	IncrementQuantity(ctx context.Context, id, amount int64) error
}

// LedgerStore appends committed business records. Sales and their items
// are written once and never updated outside the creating transaction.
type LedgerStore interface {
	CreateSale(ctx context.Context, customerID, userID int64, idempotencyKey string, at time.Time) (int64, error)
	AppendSaleItems(ctx context.Context, saleID int64, items []domain.SaleItem) error
	SetSaleTotal(ctx context.Context, saleID int64, total decimal.Decimal) error

	// FindSaleByIdempotencyKey returns the committed sale previously
	// created with the given key, or nil if none exists.
	FindSaleByIdempotencyKey(ctx context.Context, key string) (*domain.Sale, error)

	CreatePurchase(ctx context.Context, p *domain.Purchase) (int64, error)
}

// Stores bundles the per-transaction store handles handed to a TxRunner
// callback.
type Stores struct {
	Catalog CatalogStore
	Ledger  LedgerStore
}

// TxRunner executes fn inside a single write transaction. If fn returns
// an error every write made through the Stores is rolled back; otherwise
// the transaction commits before InTx returns.
type TxRunner interface {
	InTx(ctx context.Context, fn func(Stores) error) error
}
