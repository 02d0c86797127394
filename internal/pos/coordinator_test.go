package pos

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"pharmapos/m/domain"
)

// memState is the in-memory backing store shared by the mock catalog and
// ledger. The runner snapshots it before each transaction and restores
// the snapshot on error, mimicking a rollback.
type memState struct {
	medicines      map[int64]*domain.Medicine
	sales          map[int64]*domain.Sale
	saleItems      map[int64][]domain.SaleItem
	salesByKey     map[string]int64
	purchases      []domain.Purchase
	nextSaleID     int64
	nextPurchaseID int64
}

func newMemState(medicines ...*domain.Medicine) *memState {
	s := &memState{
		medicines:  make(map[int64]*domain.Medicine),
		sales:      make(map[int64]*domain.Sale),
		saleItems:  make(map[int64][]domain.SaleItem),
		salesByKey: make(map[string]int64),
	}
	for _, m := range medicines {
		s.medicines[m.ID] = m
	}
	return s
}

func (s *memState) clone() *memState {
	c := newMemState()
	for id, m := range s.medicines {
		copied := *m
		c.medicines[id] = &copied
	}
	for id, sale := range s.sales {
		copied := *sale
		c.sales[id] = &copied
	}
	for id, items := range s.saleItems {
		c.saleItems[id] = append([]domain.SaleItem(nil), items...)
	}
	for k, v := range s.salesByKey {
		c.salesByKey[k] = v
	}
	c.purchases = append([]domain.Purchase(nil), s.purchases...)
	c.nextSaleID = s.nextSaleID
	c.nextPurchaseID = s.nextPurchaseID
	return c
}

type memRunner struct {
	mu    sync.Mutex
	state *memState
}

func (r *memRunner) InTx(ctx context.Context, fn func(Stores) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.state.clone()
	st := Stores{Catalog: &memCatalog{state: r.state}, Ledger: &memLedger{state: r.state}}
	if err := fn(st); err != nil {
		r.state = snapshot
		return err
	}
	return nil
}

type memCatalog struct {
	state *memState
}

func (c *memCatalog) LockAndFetch(ctx context.Context, ids []int64) (map[int64]*domain.Medicine, error) {
	locked := make(map[int64]*domain.Medicine, len(ids))
	for _, id := range ids {
		if m, ok := c.state.medicines[id]; ok {
			copied := *m
			locked[id] = &copied
		}
	}
	return locked, nil
}

func (c *memCatalog) DecrementQuantity(ctx context.Context, id, amount int64) error {
	m, ok := c.state.medicines[id]
	if !ok {
		return errors.New("no such medicine")
	}
	if m.Quantity < amount {
		return errors.New("stock changed under lock")
	}
	m.Quantity -= amount
	m.LockVersion++
	return nil
}

func (c *memCatalog) IncrementQuantity(ctx context.Context, id, amount int64) error {
	m, ok := c.state.medicines[id]
	if !ok {
		return errors.New("no such medicine")
	}
	m.Quantity += amount
	m.LockVersion++
	return nil
}

type memLedger struct {
	state *memState
}

func (l *memLedger) CreateSale(ctx context.Context, customerID, userID int64, idempotencyKey string, at time.Time) (int64, error) {
	l.state.nextSaleID++
	id := l.state.nextSaleID
	l.state.sales[id] = &domain.Sale{
		ID:             id,
		CustomerID:     customerID,
		UserID:         userID,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      at,
	}
	if idempotencyKey != "" {
		l.state.salesByKey[idempotencyKey] = id
	}
	return id, nil
}

func (l *memLedger) AppendSaleItems(ctx context.Context, saleID int64, items []domain.SaleItem) error {
	l.state.saleItems[saleID] = append(l.state.saleItems[saleID], items...)
	return nil
}

func (l *memLedger) SetSaleTotal(ctx context.Context, saleID int64, total decimal.Decimal) error {
	sale, ok := l.state.sales[saleID]
	if !ok {
		return errors.New("no such sale")
	}
	sale.TotalAmount = total
	return nil
}

func (l *memLedger) FindSaleByIdempotencyKey(ctx context.Context, key string) (*domain.Sale, error) {
	id, ok := l.state.salesByKey[key]
	if !ok {
		return nil, nil
	}
	sale := *l.state.sales[id]
	sale.Items = append([]domain.SaleItem(nil), l.state.saleItems[id]...)
	return &sale, nil
}

func (l *memLedger) CreatePurchase(ctx context.Context, p *domain.Purchase) (int64, error) {
	l.state.nextPurchaseID++
	stored := *p
	stored.ID = l.state.nextPurchaseID
	l.state.purchases = append(l.state.purchases, stored)
	return stored.ID, nil
}

func medicine(id int64, name, price string, quantity int64) *domain.Medicine {
	return &domain.Medicine{
		ID:       id,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Quantity: quantity,
		IsActive: true,
	}
}

func newTestCoordinator(t *testing.T, medicines ...*domain.Medicine) (*Coordinator, *memRunner) {
	t.Helper()
	runner := &memRunner{state: newMemState(medicines...)}
	return NewCoordinator(runner, zaptest.NewLogger(t)), runner
}

func TestCreateSale_Success(t *testing.T) {
	coord, runner := newTestCoordinator(t, medicine(1, "Paracetamol", "5.00", 10))

	sale, err := coord.CreateSale(context.Background(), SaleRequest{
		CustomerID: 7,
		UserID:     3,
		Lines:      []SaleLine{{MedicineID: 1, Quantity: 3}},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(7), sale.CustomerID)
	assert.True(t, sale.TotalAmount.Equal(decimal.RequireFromString("15.00")), "total = %s", sale.TotalAmount)
	require.Len(t, sale.Items, 1)
	assert.True(t, sale.Items[0].UnitPrice.Equal(decimal.RequireFromString("5.00")))
	assert.True(t, sale.Items[0].LineTotal.Equal(decimal.RequireFromString("15.00")))
	assert.Equal(t, int64(7), runner.state.medicines[1].Quantity)
}

func TestCreateSale_TotalMatchesItems(t *testing.T) {
	coord, _ := newTestCoordinator(t,
		medicine(1, "Paracetamol", "5.00", 10),
		medicine(2, "Ibuprofen", "7.25", 10),
	)

	sale, err := coord.CreateSale(context.Background(), SaleRequest{
		CustomerID: 1,
		UserID:     1,
		Lines: []SaleLine{
			{MedicineID: 1, Quantity: 2},
			{MedicineID: 2, Quantity: 4},
		},
	})
	require.NoError(t, err)

	sum := decimal.Zero
	for _, it := range sale.Items {
		assert.True(t, it.LineTotal.Equal(it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity))))
		sum = sum.Add(it.LineTotal)
	}
	assert.True(t, sale.TotalAmount.Equal(sum))
}

func TestCreateSale_InsufficientStock(t *testing.T) {
	coord, runner := newTestCoordinator(t, medicine(2, "Ibuprofen", "3.50", 2))

	_, err := coord.CreateSale(context.Background(), SaleRequest{
		CustomerID: 1,
		UserID:     1,
		Lines:      []SaleLine{{MedicineID: 2, Quantity: 5}},
	})

	var short *InsufficientStockError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, int64(2), short.MedicineID)
	assert.Equal(t, int64(5), short.Requested)
	assert.Equal(t, int64(2), short.Available)

	assert.Equal(t, int64(2), runner.state.medicines[2].Quantity)
	assert.Empty(t, runner.state.sales, "failed sale must not persist")
}

func TestCreateSale_RepeatedMedicineNotMerged(t *testing.T) {
	coord, runner := newTestCoordinator(t, medicine(1, "Paracetamol", "5.00", 4))

	_, err := coord.CreateSale(context.Background(), SaleRequest{
		CustomerID: 1,
		UserID:     1,
		Lines: []SaleLine{
			{MedicineID: 1, Quantity: 2},
			{MedicineID: 1, Quantity: 3},
		},
	})

	var short *InsufficientStockError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, int64(3), short.Requested, "second occurrence is validated on its own")
	assert.Equal(t, int64(2), short.Available, "after the first occurrence only 2 remain")

	assert.Equal(t, int64(4), runner.state.medicines[1].Quantity, "whole sale rolls back")
	assert.Empty(t, runner.state.sales)
	assert.Empty(t, runner.state.saleItems)
}

func TestCreateSale_RepeatedMedicineWithinStock(t *testing.T) {
	coord, runner := newTestCoordinator(t, medicine(1, "Paracetamol", "5.00", 6))

	sale, err := coord.CreateSale(context.Background(), SaleRequest{
		CustomerID: 1,
		UserID:     1,
		Lines: []SaleLine{
			{MedicineID: 1, Quantity: 2},
			{MedicineID: 1, Quantity: 3},
		},
	})
	require.NoError(t, err)

	require.Len(t, sale.Items, 2, "occurrences stay separate lines")
	assert.True(t, sale.TotalAmount.Equal(decimal.RequireFromString("25.00")))
	assert.Equal(t, int64(1), runner.state.medicines[1].Quantity)
}

func TestCreateSale_MedicineNotFound(t *testing.T) {
	coord, runner := newTestCoordinator(t, medicine(1, "Paracetamol", "5.00", 10))

	_, err := coord.CreateSale(context.Background(), SaleRequest{
		CustomerID: 1,
		UserID:     1,
		Lines: []SaleLine{
			{MedicineID: 1, Quantity: 1},
			{MedicineID: 99, Quantity: 1},
		},
	})

	var notFound *MedicineNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, int64(99), notFound.MedicineID)
	assert.Equal(t, int64(10), runner.state.medicines[1].Quantity, "valid line rolls back too")
}

func TestCreateSale_MedicineInactive(t *testing.T) {
	inactive := medicine(5, "Aspirin", "2.00", 10)
	inactive.IsActive = false
	coord, _ := newTestCoordinator(t, inactive)

	_, err := coord.CreateSale(context.Background(), SaleRequest{
		CustomerID: 1,
		UserID:     1,
		Lines:      []SaleLine{{MedicineID: 5, Quantity: 1}},
	})

	var errInactive *MedicineInactiveError
	require.ErrorAs(t, err, &errInactive)
	assert.Equal(t, int64(5), errInactive.MedicineID)
}

func TestCreateSale_Validation(t *testing.T) {
	coord, _ := newTestCoordinator(t)

	_, err := coord.CreateSale(context.Background(), SaleRequest{CustomerID: 1, UserID: 1})
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = coord.CreateSale(context.Background(), SaleRequest{
		CustomerID: 1,
		UserID:     1,
		Lines:      []SaleLine{{MedicineID: 1, Quantity: 0}},
	})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = coord.CreateSale(context.Background(), SaleRequest{
		UserID: 1,
		Lines:  []SaleLine{{MedicineID: 1, Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrNoCustomer)
}

func TestCreateSale_PriceSnapshotSurvivesPriceChange(t *testing.T) {
	coord, runner := newTestCoordinator(t, medicine(1, "Paracetamol", "5.00", 10))

	sale, err := coord.CreateSale(context.Background(), SaleRequest{
		CustomerID: 1,
		UserID:     1,
		Lines:      []SaleLine{{MedicineID: 1, Quantity: 1}},
	})
	require.NoError(t, err)

	runner.state.medicines[1].Price = decimal.RequireFromString("9.99")

	stored := runner.state.saleItems[sale.ID]
	require.Len(t, stored, 1)
	assert.True(t, stored[0].UnitPrice.Equal(decimal.RequireFromString("5.00")),
		"historical sale pricing must not follow the live price")
}

func TestCreateSale_IdempotentRetry(t *testing.T) {
	coord, runner := newTestCoordinator(t, medicine(1, "Paracetamol", "5.00", 10))

	req := SaleRequest{
		CustomerID:     1,
		UserID:         1,
		IdempotencyKey: "retry-key-1",
		Lines:          []SaleLine{{MedicineID: 1, Quantity: 3}},
	}

	first, err := coord.CreateSale(context.Background(), req)
	require.NoError(t, err)
	second, err := coord.CreateSale(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "retry returns the committed sale")
	assert.Len(t, runner.state.sales, 1)
	assert.Equal(t, int64(7), runner.state.medicines[1].Quantity, "stock decremented exactly once")
}

func TestCreateSale_ConcurrentOversell(t *testing.T) {
	coord, runner := newTestCoordinator(t, medicine(1, "Paracetamol", "5.00", 5))

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		shorted   atomic.Int32
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := coord.CreateSale(context.Background(), SaleRequest{
				CustomerID: int64(n + 1),
				UserID:     1,
				Lines:      []SaleLine{{MedicineID: 1, Quantity: 5}},
			})
			switch {
			case err == nil:
				succeeded.Add(1)
			default:
				var short *InsufficientStockError
				if errors.As(err, &short) {
					shorted.Add(1)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load(), "exactly one sale wins")
	assert.Equal(t, int32(1), shorted.Load(), "the other fails with insufficient stock")
	assert.Equal(t, int64(0), runner.state.medicines[1].Quantity, "stock never goes negative")
}

func TestRecordPurchase(t *testing.T) {
	coord, runner := newTestCoordinator(t, medicine(1, "Paracetamol", "5.00", 10))

	purchase, err := coord.RecordPurchase(context.Background(), PurchaseRequest{
		MedicineID: 1,
		Quantity:   20,
		UnitCost:   decimal.RequireFromString("2.50"),
		Supplier:   "Acme Pharma",
		UserID:     1,
	})
	require.NoError(t, err)

	assert.True(t, purchase.TotalCost.Equal(decimal.RequireFromString("50.00")))
	assert.Equal(t, int64(30), runner.state.medicines[1].Quantity)
}

func TestRecordPurchase_Rejections(t *testing.T) {
	inactive := medicine(2, "Aspirin", "2.00", 5)
	inactive.IsActive = false
	coord, runner := newTestCoordinator(t, inactive)

	_, err := coord.RecordPurchase(context.Background(), PurchaseRequest{MedicineID: 2, Quantity: 0, UserID: 1})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = coord.RecordPurchase(context.Background(), PurchaseRequest{MedicineID: 99, Quantity: 5, UserID: 1})
	var notFound *MedicineNotFoundError
	assert.ErrorAs(t, err, &notFound)

	_, err = coord.RecordPurchase(context.Background(), PurchaseRequest{MedicineID: 2, Quantity: 5, UserID: 1})
	var errInactive *MedicineInactiveError
	assert.ErrorAs(t, err, &errInactive)

	assert.Equal(t, int64(5), runner.state.medicines[2].Quantity)
	assert.Empty(t, runner.state.purchases)
}

func TestStockConservation(t *testing.T) {
	coord, runner := newTestCoordinator(t, medicine(1, "Paracetamol", "5.00", 10))
	ctx := context.Background()

	_, err := coord.RecordPurchase(ctx, PurchaseRequest{MedicineID: 1, Quantity: 15, UnitCost: decimal.RequireFromString("1.00"), UserID: 1})
	require.NoError(t, err)
	_, err = coord.CreateSale(ctx, SaleRequest{CustomerID: 1, UserID: 1, Lines: []SaleLine{{MedicineID: 1, Quantity: 8}}})
	require.NoError(t, err)
	_, err = coord.CreateSale(ctx, SaleRequest{CustomerID: 2, UserID: 1, Lines: []SaleLine{{MedicineID: 1, Quantity: 4}}})
	require.NoError(t, err)

	// initial 10 + purchased 15 - sold 12
	assert.Equal(t, int64(13), runner.state.medicines[1].Quantity)
}
