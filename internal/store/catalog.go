package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"

	"pharmapos/m/domain"
)

// txCatalog is the transaction-scoped catalog handle handed to the sale
// coordinator. SQLite has no per-row FOR UPDATE; the enclosing immediate
// transaction already holds the database write lock, which is strictly
// stronger. Ids are still fetched in ascending order so the code ports
// unchanged to a store with real row locks.
type txCatalog struct {
	tx *sqlx.Tx
}

func (c *txCatalog) LockAndFetch(ctx context.Context, ids []int64) (map[int64]*domain.Medicine, error) {
	if len(ids) == 0 {
		return map[int64]*domain.Medicine{}, nil
	}

	sorted := make([]int64, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	query, args, err := sqlx.In(`SELECT id, name, description, category, price, quantity, expiry_date, is_active, lock_version
                FROM medicines WHERE id IN (?) ORDER BY id`, sorted)
	if err != nil {
		return nil, fmt.Errorf("prepare lock query: %w", err)
	}

	var rows []domain.Medicine
	if err := c.tx.SelectContext(ctx, &rows, c.tx.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("lock medicines: %w", err)
	}

	locked := make(map[int64]*domain.Medicine, len(rows))
	for i := range rows {
		locked[rows[i].ID] = &rows[i]
	}
	return locked, nil
}

func (c *txCatalog) DecrementQuantity(ctx context.Context, id, amount int64) error {
	res, err := c.tx.ExecContext(ctx, `UPDATE medicines
                SET quantity = quantity - $1, lock_version = lock_version + 1
                WHERE id = $2 AND quantity >= $3`, amount, id, amount)
	if err != nil {
		return fmt.Errorf("decrement medicine %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement medicine %d: %w", id, err)
	}
	if affected == 0 {
		// The coordinator validated stock under lock, so this cannot
		// happen unless the locking discipline was bypassed.
		return fmt.Errorf("decrement medicine %d: stock changed under lock", id)
	}
	return nil
}

func (c *txCatalog) IncrementQuantity(ctx context.Context, id, amount int64) error {
	res, err := c.tx.ExecContext(ctx, `UPDATE medicines
                SET quantity = quantity + $1, lock_version = lock_version + 1
                WHERE id = $2`, amount, id)
	if err != nil {
		return fmt.Errorf("increment medicine %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment medicine %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("increment medicine %d: %w", id, ErrNotFound)
	}
	return nil
}
