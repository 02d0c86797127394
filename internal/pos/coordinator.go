package pos

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pharmapos/m/domain"
)

// SaleLine is one requested cart line. The same medicine may appear in
// several lines; each occurrence is processed independently.
type SaleLine struct {
	MedicineID int64
	Quantity   int64
}

// SaleRequest is the input to CreateSale. IdempotencyKey is optional;
// when set, re-invoking CreateSale with the same key after a transient
// failure returns the already-committed sale instead of writing a
// second one.
type SaleRequest struct {
	CustomerID     int64
	UserID         int64
	IdempotencyKey string
	Lines          []SaleLine
}

// PurchaseRequest is the input to RecordPurchase.
type PurchaseRequest struct {
	MedicineID int64
	Quantity   int64
	UnitCost   decimal.Decimal
	Supplier   string
	UserID     int64
}

// Coordinator turns a cart of line items into a committed sale while
// keeping inventory consistent under concurrent access. All stock reads
// that feed a business decision happen after the affected rows are
// locked, and every write of one invocation lives in one transaction.
//
// The Coordinator never retries: transient store failures surface to the
// caller, and because a failed attempt leaves no partial state it is
// safe to re-invoke from scratch.
type Coordinator struct {
	runner TxRunner
	logger *zap.Logger
	now    func() time.Time
}

func NewCoordinator(runner TxRunner, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{runner: runner, logger: logger, now: time.Now}
}

func (r SaleRequest) validate() error {
	if r.CustomerID <= 0 {
		return ErrNoCustomer
	}
	if len(r.Lines) == 0 {
		return ErrEmptyCart
	}
	for _, line := range r.Lines {
		if line.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}
	return nil
}

// distinctMedicineIDs returns the set of medicine ids in the request,
// sorted ascending so overlapping sales always lock rows in the same
// order.
func (r SaleRequest) distinctMedicineIDs() []int64 {
	seen := make(map[int64]struct{}, len(r.Lines))
	ids := make([]int64, 0, len(r.Lines))
	for _, line := range r.Lines {
		if _, ok := seen[line.MedicineID]; ok {
			continue
		}
		seen[line.MedicineID] = struct{}{}
		ids = append(ids, line.MedicineID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// CreateSale commits the requested sale or fails with no observable
// state change.
func (c *Coordinator) CreateSale(ctx context.Context, req SaleRequest) (*domain.Sale, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var sale *domain.Sale
	err := c.runner.InTx(ctx, func(st Stores) error {
		if req.IdempotencyKey != "" {
			existing, err := st.Ledger.FindSaleByIdempotencyKey(ctx, req.IdempotencyKey)
			if err != nil {
				return err
			}
			if existing != nil {
				sale = existing
				return nil
			}
		}

		locked, err := st.Catalog.LockAndFetch(ctx, req.distinctMedicineIDs())
		if err != nil {
			return err
		}

		now := c.now().UTC()
		saleID, err := st.Ledger.CreateSale(ctx, req.CustomerID, req.UserID, req.IdempotencyKey, now)
		if err != nil {
			return err
		}

		total := decimal.Zero
		items := make([]domain.SaleItem, 0, len(req.Lines))
		for _, line := range req.Lines {
			med, ok := locked[line.MedicineID]
			if !ok {
				return &MedicineNotFoundError{MedicineID: line.MedicineID}
			}
			if !med.IsActive {
				return &MedicineInactiveError{MedicineID: med.ID, Name: med.Name}
			}
			if med.Quantity < line.Quantity {
				return &InsufficientStockError{
					MedicineID: med.ID,
					Name:       med.Name,
					Requested:  line.Quantity,
					Available:  med.Quantity,
				}
			}
			if err := st.Catalog.DecrementQuantity(ctx, med.ID, line.Quantity); err != nil {
				return err
			}
			// Track the decrement locally so a later line for the same
			// medicine is validated against what is actually left.
			med.Quantity -= line.Quantity

			lineTotal := med.Price.Mul(decimal.NewFromInt(line.Quantity))
			items = append(items, domain.SaleItem{
				SaleID:     saleID,
				MedicineID: med.ID,
				Quantity:   line.Quantity,
				UnitPrice:  med.Price,
				LineTotal:  lineTotal,
			})
			total = total.Add(lineTotal)
		}

		if err := st.Ledger.AppendSaleItems(ctx, saleID, items); err != nil {
			return err
		}
		if err := checkTotal(total, items); err != nil {
			return err
		}
		if err := st.Ledger.SetSaleTotal(ctx, saleID, total); err != nil {
			return err
		}

		sale = &domain.Sale{
			ID:             saleID,
			CustomerID:     req.CustomerID,
			UserID:         req.UserID,
			TotalAmount:    total,
			IdempotencyKey: req.IdempotencyKey,
			CreatedAt:      now,
			Items:          items,
		}
		return nil
	})
	if err != nil {
		c.logSaleFailure(req, err)
		return nil, err
	}

	c.logger.Info("sale committed",
		zap.Int64("sale_id", sale.ID),
		zap.Int64("customer_id", sale.CustomerID),
		zap.Int("items", len(sale.Items)),
		zap.String("total", sale.TotalAmount.String()))
	return sale, nil
}

// RecordPurchase increments stock for incoming supply and appends a
// purchase record, under the same locking discipline as a sale.
func (c *Coordinator) RecordPurchase(ctx context.Context, req PurchaseRequest) (*domain.Purchase, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	var purchase *domain.Purchase
	err := c.runner.InTx(ctx, func(st Stores) error {
		locked, err := st.Catalog.LockAndFetch(ctx, []int64{req.MedicineID})
		if err != nil {
			return err
		}
		med, ok := locked[req.MedicineID]
		if !ok {
			return &MedicineNotFoundError{MedicineID: req.MedicineID}
		}
		if !med.IsActive {
			return &MedicineInactiveError{MedicineID: med.ID, Name: med.Name}
		}
		if err := st.Catalog.IncrementQuantity(ctx, med.ID, req.Quantity); err != nil {
			return err
		}

		p := &domain.Purchase{
			MedicineID:   med.ID,
			Quantity:     req.Quantity,
			UnitCost:     req.UnitCost,
			TotalCost:    req.UnitCost.Mul(decimal.NewFromInt(req.Quantity)),
			Supplier:     req.Supplier,
			UserID:       req.UserID,
			PurchaseDate: c.now().UTC(),
		}
		id, err := st.Ledger.CreatePurchase(ctx, p)
		if err != nil {
			return err
		}
		p.ID = id
		purchase = p
		return nil
	})
	if err != nil {
		c.logger.Warn("purchase rejected",
			zap.Int64("medicine_id", req.MedicineID),
			zap.Int64("quantity", req.Quantity),
			zap.Error(err))
		return nil, err
	}

	c.logger.Info("purchase recorded",
		zap.Int64("purchase_id", purchase.ID),
		zap.Int64("medicine_id", purchase.MedicineID),
		zap.Int64("quantity", purchase.Quantity))
	return purchase, nil
}

// checkTotal recomputes the total from the items about to be committed.
// A mismatch can only come from a bug, so the sale is aborted rather
// than committed with a corrupt amount.
func checkTotal(total decimal.Decimal, items []domain.SaleItem) error {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity)))
	}
	if !sum.Equal(total) {
		return ErrTotalMismatch
	}
	return nil
}

func (c *Coordinator) logSaleFailure(req SaleRequest, err error) {
	var (
		notFound *MedicineNotFoundError
		inactive *MedicineInactiveError
		short    *InsufficientStockError
	)
	switch {
	case errors.As(err, &notFound), errors.As(err, &inactive), errors.As(err, &short):
		c.logger.Warn("sale rejected",
			zap.Int64("customer_id", req.CustomerID),
			zap.Error(err))
	default:
		c.logger.Error("sale failed",
			zap.Int64("customer_id", req.CustomerID),
			zap.Error(err))
	}
}
