package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/domain/models"
)

type orderTx struct {
	tx *sql.Tx
	sb sq.StatementBuilderType
}

// CreateOrder inserts the order header and all of its items.
func (t *orderTx) CreateOrder(ctx context.Context, order *models.Order) error {
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO orders (customer_id, total_price, status) VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`,
		order.CustomerID, order.TotalPrice, order.Status,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	if len(order.Items) == 0 {
		return nil
	}

	ib := t.sb.Insert("order_items").Columns("order_id", "product_id", "quantity", "price")
	for _, item := range order.Items {
		ib = ib.Values(order.ID, item.ProductID, item.Quantity, item.Price)
	}
	query, args, err := ib.Suffix("RETURNING id").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build order items insert: %w", err)
	}

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to create order items: %w", err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		if i >= len(order.Items) {
			return fmt.Errorf("failed to create order items: unexpected returned row")
		}
		if err := rows.Scan(&order.Items[i].ID); err != nil {
			return fmt.Errorf("failed to scan order item id: %w", err)
		}
		order.Items[i].OrderID = order.ID
		i++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if i != len(order.Items) {
		return fmt.Errorf("failed to create order items: inserted %d of %d", i, len(order.Items))
	}
	return nil
}

// DecrementStock is a conditional relative update: the quantity check and the
// write are evaluated by postgres on the locked row, never on a value read earlier.
func (t *orderTx) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE products SET quantity = quantity - $1, updated_at = NOW() WHERE id = $2 AND quantity >= $1`,
		quantity, productID,
	)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	// no row updated: report how much is left
	var available int
	err = t.tx.QueryRowContext(ctx, "SELECT quantity FROM products WHERE id = $1", productID).Scan(&available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to read stock: %w", err)
	}
	return &StockConflictError{ProductID: productID, Requested: quantity, Available: available}
}

func (t *orderTx) Commit() error {
	return t.tx.Commit()
}

func (t *orderTx) Rollback() error {
	return t.tx.Rollback()
}
