package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pharmapos/m/domain"
)

func (s *Store) ListMedicines(ctx context.Context) ([]domain.Medicine, error) {
	var medicines []domain.Medicine
	err := s.db.SelectContext(ctx, &medicines, `SELECT id, name, description, category, price, quantity, expiry_date, is_active, lock_version
                FROM medicines WHERE is_active = 1 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list medicines: %w", err)
	}
	return medicines, nil
}

func (s *Store) GetMedicine(ctx context.Context, id int64) (*domain.Medicine, error) {
	var m domain.Medicine
	err := s.db.GetContext(ctx, &m, `SELECT id, name, description, category, price, quantity, expiry_date, is_active, lock_version
                FROM medicines WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get medicine: %w", err)
	}
	return &m, nil
}

func (s *Store) CreateMedicine(ctx context.Context, m *domain.Medicine) (int64, error) {
	var id int64
	err := s.db.QueryRowxContext(ctx, `INSERT INTO medicines (name, description, category, price, quantity, expiry_date, is_active)
                VALUES ($1, $2, $3, $4, $5, $6, 1) RETURNING id`,
		m.Name, m.Description, m.Category, m.Price, m.Quantity, m.ExpiryDate).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create medicine: %w", err)
	}
	return id, nil
}

// UpdateMedicine writes the mutable catalog fields. The update is a
// compare-and-swap on lock_version: if the row changed since m was read,
// ErrStaleRecord is returned and nothing is written.
func (s *Store) UpdateMedicine(ctx context.Context, m *domain.Medicine) error {
	res, err := s.db.ExecContext(ctx, `UPDATE medicines
                SET name = $1, description = $2, category = $3, price = $4, expiry_date = $5, lock_version = lock_version + 1
                WHERE id = $6 AND lock_version = $7`,
		m.Name, m.Description, m.Category, m.Price, m.ExpiryDate, m.ID, m.LockVersion)
	if err != nil {
		return fmt.Errorf("update medicine: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update medicine: %w", err)
	}
	if affected == 0 {
		if _, err := s.GetMedicine(ctx, m.ID); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrStaleRecord
	}
	return nil
}

// DeactivateMedicine soft-deletes a medicine so it can no longer be sold
// or purchased against. Same compare-and-swap discipline as
// UpdateMedicine.
func (s *Store) DeactivateMedicine(ctx context.Context, id, lockVersion int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE medicines
                SET is_active = 0, lock_version = lock_version + 1
                WHERE id = $1 AND lock_version = $2`, id, lockVersion)
	if err != nil {
		return fmt.Errorf("deactivate medicine: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate medicine: %w", err)
	}
	if affected == 0 {
		if _, err := s.GetMedicine(ctx, id); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrStaleRecord
	}
	return nil
}

func (s *Store) LowStockMedicines(ctx context.Context, threshold int64) ([]domain.Medicine, error) {
	var medicines []domain.Medicine
	err := s.db.SelectContext(ctx, &medicines, `SELECT id, name, description, category, price, quantity, expiry_date, is_active, lock_version
                FROM medicines WHERE is_active = 1 AND quantity <= $1 ORDER BY quantity ASC, name`, threshold)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	return medicines, nil
}
