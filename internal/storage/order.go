package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/domain/models"
)

// OrderStorage is the order storage.
type OrderStorage interface {
	// BeginTx opens a unit of work for placing an order.
	BeginTx(ctx context.Context) (OrderTx, error)
	// GetOrderByID returns the order with all of its lines.
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	// GetOrdersByCustomerID returns the customer's orders, newest first.
	GetOrdersByCustomerID(ctx context.Context, customerID int64) ([]*models.Order, error)
	// GetOrdersByFarmerID returns orders containing the farmer's products,
	// with the lines restricted to that farmer's products.
	GetOrdersByFarmerID(ctx context.Context, farmerID int64) ([]*models.Order, error)
	// UpdateOrderStatus sets the status of an order that contains at least one
	// product of farmerID. Returns ErrOrderNotFound otherwise.
	UpdateOrderStatus(ctx context.Context, orderID, farmerID int64, status models.OrderStatus) error
}

// OrderTx is a single all-or-nothing order placement.
type OrderTx interface {
	// CreateOrder inserts the order and its items, filling in generated ids.
	CreateOrder(ctx context.Context, order *models.Order) error
	// DecrementStock lowers the product quantity by quantity only if enough
	// stock is left, returning *StockConflictError otherwise.
	DecrementStock(ctx context.Context, productID int64, quantity int) error
	Commit() error
	Rollback() error
}

type orderRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *orderRepository) BeginTx(ctx context.Context) (OrderTx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &orderTx{tx: tx, sb: r.sb}, nil
}

var orderColumns = []string{
	"o.id", "o.customer_id", "o.total_price", "o.status", "o.created_at", "o.updated_at",
	"c.name", "c.email",
}

var orderItemColumns = []string{
	"oi.id", "oi.order_id", "oi.product_id", "oi.quantity", "oi.price",
	"p.name", "p.image_url", "p.category", "p.farmer_id",
	"f.name", "f.farm_name",
}

func (r *orderRepository) selectOrders() sq.SelectBuilder {
	return r.sb.Select(orderColumns...).
		From("orders o").
		Join("users c ON c.id = o.customer_id")
}

func scanOrder(row interface{ Scan(...any) error }) (*models.Order, error) {
	o := &models.Order{Customer: &models.CustomerSummary{}, Items: []models.OrderItem{}}
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.TotalPrice, &o.Status, &o.CreatedAt, &o.UpdatedAt,
		&o.Customer.Name, &o.Customer.Email,
	)
	if err != nil {
		return nil, err
	}
	o.Customer.ID = o.CustomerID
	return o, nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	query, args, err := r.selectOrders().Where(sq.Eq{"o.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build order query: %w", err)
	}
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if err := r.attachItems(ctx, []*models.Order{order}, nil); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetOrdersByCustomerID(ctx context.Context, customerID int64) ([]*models.Order, error) {
	orders, err := r.queryOrders(ctx, r.selectOrders().
		Where(sq.Eq{"o.customer_id": customerID}).
		OrderBy("o.created_at DESC", "o.id DESC"))
	if err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, orders, nil); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) GetOrdersByFarmerID(ctx context.Context, farmerID int64) ([]*models.Order, error) {
	orders, err := r.queryOrders(ctx, r.selectOrders().
		Where(`EXISTS (SELECT 1 FROM order_items oi JOIN products p ON p.id = oi.product_id
			WHERE oi.order_id = o.id AND p.farmer_id = ?)`, farmerID).
		OrderBy("o.created_at DESC", "o.id DESC"))
	if err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, orders, &farmerID); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateOrderStatus updates the status in one statement; the ownership check
// and the write cannot be separated by a concurrent change.
func (r *orderRepository) UpdateOrderStatus(ctx context.Context, orderID, farmerID int64, status models.OrderStatus) error {
	query := `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2 AND EXISTS (
			SELECT 1 FROM order_items oi JOIN products p ON p.id = oi.product_id
			WHERE oi.order_id = orders.id AND p.farmer_id = $3)`
	res, err := r.db.ExecContext(ctx, query, status, orderID, farmerID)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *orderRepository) queryOrders(ctx context.Context, qb sq.SelectBuilder) ([]*models.Order, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build orders query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*models.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads the lines of all given orders in a single query,
// optionally restricted to the products of one farmer.
func (r *orderRepository) attachItems(ctx context.Context, orders []*models.Order, farmerID *int64) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(orders))
	byID := make(map[int64]*models.Order, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
		byID[o.ID] = o
	}

	qb := r.sb.Select(orderItemColumns...).
		From("order_items oi").
		Join("products p ON p.id = oi.product_id").
		Join("users f ON f.id = p.farmer_id").
		Where("oi.order_id = ANY(?)", pq.Array(ids))
	if farmerID != nil {
		qb = qb.Where(sq.Eq{"p.farmer_id": *farmerID})
	}
	query, args, err := qb.OrderBy("oi.id").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build order items query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item := models.OrderItem{Product: &models.OrderedProduct{}}
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price,
			&item.Product.Name, &item.Product.ImageURL, &item.Product.Category, &item.Product.FarmerID,
			&item.Product.Farmer.Name, &item.Product.Farmer.FarmName,
		); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		item.Product.ID = item.ProductID
		item.Product.Farmer.ID = item.Product.FarmerID
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return rows.Err()
}
