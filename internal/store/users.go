package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pharmapos/m/domain"
)

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := s.db.GetContext(ctx, &u, `SELECT id, username, email, password, role, created_at, is_active
                FROM users WHERE email = $1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) (int64, error) {
	var id int64
	err := s.db.QueryRowxContext(ctx, `INSERT INTO users (username, email, password, role, is_active)
                VALUES ($1, $2, $3, $4, 1) RETURNING id`,
		u.Username, u.Email, u.Password, u.Role).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := s.db.SelectContext(ctx, &users, `SELECT id, username, email, role, created_at, is_active
                FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *Store) SetUserActive(ctx context.Context, id int64, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET is_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("set user active: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set user active: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
