package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pharmapos/m/domain"
)

// GetSale reads back a committed sale with its items.
func (s *Store) GetSale(ctx context.Context, id int64) (*domain.Sale, error) {
	var sale domain.Sale
	err := s.db.GetContext(ctx, &sale, `SELECT id, customer_id, user_id, total_amount, created_at
                FROM sales WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	if err := s.db.SelectContext(ctx, &sale.Items, `SELECT id, sale_id, medicine_id, quantity, unit_price, line_total
                FROM sale_items WHERE sale_id = $1 ORDER BY id`, id); err != nil {
		return nil, fmt.Errorf("load sale items: %w", err)
	}
	return &sale, nil
}

func (s *Store) ListSalesByCustomer(ctx context.Context, customerID int64) ([]domain.Sale, error) {
	var sales []domain.Sale
	err := s.db.SelectContext(ctx, &sales, `SELECT id, customer_id, user_id, total_amount, created_at
                FROM sales WHERE customer_id = $1 ORDER BY created_at DESC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list sales by customer: %w", err)
	}
	return sales, nil
}
