package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pharmapos/m/domain"
)

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	var customers []domain.Customer
	err := s.db.SelectContext(ctx, &customers, `SELECT id, name, phone, email, address, created_at, is_active
                FROM customers WHERE is_active = 1 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return customers, nil
}

func (s *Store) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.GetContext(ctx, &c, `SELECT id, name, phone, email, address, created_at, is_active
                FROM customers WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, c *domain.Customer) (int64, error) {
	var id int64
	err := s.db.QueryRowxContext(ctx, `INSERT INTO customers (name, phone, email, address, is_active)
                VALUES ($1, $2, $3, $4, 1) RETURNING id`,
		c.Name, c.Phone, c.Email, c.Address).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create customer: %w", err)
	}
	return id, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, c *domain.Customer) error {
	res, err := s.db.ExecContext(ctx, `UPDATE customers
                SET name = $1, phone = $2, email = $3, address = $4, is_active = $5
                WHERE id = $6`,
		c.Name, c.Phone, c.Email, c.Address, c.IsActive, c.ID)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
