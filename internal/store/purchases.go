package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pharmapos/m/domain"
)

func (s *Store) GetPurchase(ctx context.Context, id int64) (*domain.Purchase, error) {
	var p domain.Purchase
	err := s.db.GetContext(ctx, &p, `SELECT id, medicine_id, quantity, unit_cost, total_cost, supplier, user_id, purchase_date
                FROM purchases WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get purchase: %w", err)
	}
	return &p, nil
}

func (s *Store) ListPurchases(ctx context.Context) ([]domain.Purchase, error) {
	var purchases []domain.Purchase
	err := s.db.SelectContext(ctx, &purchases, `SELECT id, medicine_id, quantity, unit_cost, total_cost, supplier, user_id, purchase_date
                FROM purchases ORDER BY purchase_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	return purchases, nil
}
