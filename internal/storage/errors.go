package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("user already exists")
	ErrProductNotFound = errors.New("product not found")
	ErrProductInUse    = errors.New("product is referenced by orders")
	ErrOrderNotFound   = errors.New("order not found")
	ErrStockConflict   = errors.New("stock changed concurrently")

	// ErrTxDone is returned by Commit or Rollback on a finished transaction.
	ErrTxDone = sql.ErrTxDone
)

// postgres error codes
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// StockConflictError reports that a conditional stock decrement matched no
// row: another transaction took the stock between validation and commit.
type StockConflictError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *StockConflictError) Error() string {
	return fmt.Sprintf("product %d: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *StockConflictError) Unwrap() error {
	return ErrStockConflict
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
