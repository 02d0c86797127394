package pos

import (
	"errors"
	"fmt"
)

// Validation errors, rejected before any transaction opens.
var (
	ErrEmptyCart       = errors.New("sale must contain at least one item")
	ErrInvalidQuantity = errors.New("item quantity must be positive")
	ErrNoCustomer      = errors.New("customer is required")
)

// ErrTotalMismatch means the computed sale total disagrees with its line
// items. It signals a programming error, not a bad request.
var ErrTotalMismatch = errors.New("sale total does not match its items")

// MedicineNotFoundError aborts a sale whose cart references an unknown
// medicine.
type MedicineNotFoundError struct {
	MedicineID int64
}

func (e *MedicineNotFoundError) Error() string {
	return fmt.Sprintf("medicine %d not found", e.MedicineID)
}

// MedicineInactiveError aborts a sale or purchase against a deactivated
// medicine.
type MedicineInactiveError struct {
	MedicineID int64
	Name       string
}

func (e *MedicineInactiveError) Error() string {
	return fmt.Sprintf("medicine %d (%s) is inactive", e.MedicineID, e.Name)
}

// InsufficientStockError aborts a sale that asks for more stock than the
// locked row holds. Requested and Available identify the losing line so
// callers can show a useful message.
type InsufficientStockError struct {
	MedicineID int64
	Name       string
	Requested  int64
	Available  int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for medicine %d (%s): requested %d, available %d",
		e.MedicineID, e.Name, e.Requested, e.Available)
}
