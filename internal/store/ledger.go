package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"pharmapos/m/domain"
)

// txLedger appends sale and purchase records inside the coordinator's
// transaction.
type txLedger struct {
	tx *sqlx.Tx
}

func (l *txLedger) CreateSale(ctx context.Context, customerID, userID int64, idempotencyKey string, at time.Time) (int64, error) {
	var id int64
	err := l.tx.QueryRowxContext(ctx, `INSERT INTO sales (customer_id, user_id, total_amount, idempotency_key, created_at)
                VALUES ($1, $2, '0', $3, $4) RETURNING id`,
		customerID, userID, nullIfEmpty(idempotencyKey), at).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create sale: %w", err)
	}
	return id, nil
}

func (l *txLedger) AppendSaleItems(ctx context.Context, saleID int64, items []domain.SaleItem) error {
	stmt, err := l.tx.PreparexContext(ctx, `INSERT INTO sale_items (sale_id, medicine_id, quantity, unit_price, line_total)
                VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		return fmt.Errorf("prepare sale items: %w", err)
	}
	defer stmt.Close()

	for _, it := range items {
		if _, err := stmt.ExecContext(ctx, saleID, it.MedicineID, it.Quantity, it.UnitPrice, it.LineTotal); err != nil {
			return fmt.Errorf("append sale item for medicine %d: %w", it.MedicineID, err)
		}
	}
	return nil
}

func (l *txLedger) SetSaleTotal(ctx context.Context, saleID int64, total decimal.Decimal) error {
	res, err := l.tx.ExecContext(ctx, `UPDATE sales SET total_amount = $1 WHERE id = $2`, total, saleID)
	if err != nil {
		return fmt.Errorf("set sale total: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set sale total: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("set sale total: %w", ErrNotFound)
	}
	return nil
}

func (l *txLedger) FindSaleByIdempotencyKey(ctx context.Context, key string) (*domain.Sale, error) {
	var sale domain.Sale
	err := l.tx.GetContext(ctx, &sale, `SELECT id, customer_id, user_id, total_amount, created_at
                FROM sales WHERE idempotency_key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find sale by key: %w", err)
	}
	sale.IdempotencyKey = key
	if err := l.tx.SelectContext(ctx, &sale.Items, `SELECT id, sale_id, medicine_id, quantity, unit_price, line_total
                FROM sale_items WHERE sale_id = $1 ORDER BY id`, sale.ID); err != nil {
		return nil, fmt.Errorf("load sale items: %w", err)
	}
	return &sale, nil
}

func (l *txLedger) CreatePurchase(ctx context.Context, p *domain.Purchase) (int64, error) {
	var id int64
	err := l.tx.QueryRowxContext(ctx, `INSERT INTO purchases (medicine_id, quantity, unit_cost, total_cost, supplier, user_id, purchase_date)
                VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		p.MedicineID, p.Quantity, p.UnitCost, p.TotalCost, p.Supplier, p.UserID, p.PurchaseDate).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create purchase: %w", err)
	}
	return id, nil
}
