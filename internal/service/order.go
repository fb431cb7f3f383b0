package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/domain/models"
	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/lib/metrics"
	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/storage"
)

// OrderService is the order placement workflow and its read/update companions.
type OrderService interface {
	PlaceOrder(ctx context.Context, caller models.Caller, lines []models.LineRequest) (*models.Order, error)
	ListCustomerOrders(ctx context.Context, caller models.Caller) ([]*models.Order, error)
	ListFarmerOrders(ctx context.Context, caller models.Caller) ([]*models.Order, error)
	GetOrder(ctx context.Context, caller models.Caller, orderID int64) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, caller models.Caller, orderID int64, status models.OrderStatus) (*models.Order, error)
}

type orderService struct {
	log         *slog.Logger
	productRepo storage.ProductReader
	orderRepo   storage.OrderStorage
}

func NewOrderService(log *slog.Logger, productRepo storage.ProductReader, orderRepo storage.OrderStorage) OrderService {
	return &orderService{
		log:         log,
		productRepo: productRepo,
		orderRepo:   orderRepo,
	}
}

// PlaceOrder validates every line against the catalog, in order, and stops at
// the first failure. When all lines pass, the order, its items and the stock
// decrements are committed in one transaction; a decrement that finds less
// stock than validation saw aborts the whole transaction.
func (s *orderService) PlaceOrder(ctx context.Context, caller models.Caller, lines []models.LineRequest) (_ *models.Order, err error) {
	const op = "service.OrderService.PlaceOrder"
	logger := s.log.With(
		slog.String("op", op),
		slog.Int64("customerID", caller.ID),
		slog.Int("lines", len(lines)),
	)
	defer func() {
		metrics.OrdersPlaced.WithLabelValues(placementResult(err)).Inc()
	}()

	if caller.Role != models.RoleCustomer {
		logger.Warn("order rejected: caller is not a customer", slog.String("role", string(caller.Role)))
		return nil, newError(ErrForbidden, "only customers can create orders")
	}
	if len(lines) == 0 {
		return nil, newError(ErrBadRequest, "order must contain at least one item")
	}
	logger.Info("placing order")

	order := &models.Order{
		CustomerID: caller.ID,
		Status:     models.OrderStatusPending,
		TotalPrice: decimal.Zero,
		Items:      make([]models.OrderItem, 0, len(lines)),
	}
	names := make(map[int64]string, len(lines))

	// validate every line against the current catalog
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, newError(ErrBadRequest, "quantity for product %d must be positive", line.ProductID)
		}

		product, err := s.productRepo.GetProductByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, storage.ErrProductNotFound) {
				logger.Warn("product not found", slog.Int64("productID", line.ProductID))
				return nil, newError(ErrNotFound, "product with ID %d not found", line.ProductID)
			}
			logger.Error("failed to get product", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to get product: %w", op, err)
		}
		if !product.IsActive {
			logger.Warn("product is not active", slog.Int64("productID", product.ID))
			return nil, newError(ErrInvalidState, "product %s is not available", product.Name)
		}
		if product.Quantity < line.Quantity {
			logger.Warn("insufficient stock",
				slog.Int64("productID", product.ID),
				slog.Int("available", product.Quantity),
				slog.Int("requested", line.Quantity),
			)
			return nil, newError(ErrInsufficientStock, "insufficient stock for %s. Available: %d", product.Name, product.Quantity)
		}

		// unit price is captured at validation time
		item := models.OrderItem{
			ProductID: product.ID,
			Quantity:  line.Quantity,
			Price:     product.Price,
		}
		order.Items = append(order.Items, item)
		order.TotalPrice = order.TotalPrice.Add(item.Subtotal())
		names[product.ID] = product.Name
	}

	if err := s.commitOrder(ctx, logger, order, names); err != nil {
		var svcErr *Error
		if errors.As(err, &svcErr) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("order placed", slog.Int64("orderID", order.ID), slog.String("total", order.TotalPrice.String()))

	// reload to attach product and farmer display data
	created, err := s.orderRepo.GetOrderByID(ctx, order.ID)
	if err != nil {
		// the order is committed, so the bare order is still a success
		logger.Error("failed to load created order", slog.Int64("orderID", order.ID), slog.Any("error", err))
		return order, nil
	}
	return created, nil
}

// commitOrder runs the atomic part of order placement. Every path out of it
// after BeginTx rolls back unless Commit succeeded.
func (s *orderService) commitOrder(ctx context.Context, logger *slog.Logger, order *models.Order, names map[int64]string) error {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, storage.ErrTxDone) {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
	}()

	if err := tx.CreateOrder(ctx, order); err != nil {
		logger.Error("failed to create order", slog.Any("error", err))
		return fmt.Errorf("failed to create order: %w", err)
	}

	for _, item := range order.Items {
		err := tx.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err == nil {
			continue
		}
		var conflict *storage.StockConflictError
		switch {
		case errors.As(err, &conflict):
			logger.Warn("stock taken by a concurrent order",
				slog.Int64("productID", item.ProductID),
				slog.Int("available", conflict.Available),
				slog.Int("requested", item.Quantity),
			)
			return newError(ErrInsufficientStock, "insufficient stock for %s. Available: %d", names[item.ProductID], conflict.Available)
		case errors.Is(err, storage.ErrProductNotFound):
			return newError(ErrNotFound, "product with ID %d not found", item.ProductID)
		default:
			logger.Error("failed to decrement stock", slog.Any("error", err))
			return fmt.Errorf("failed to decrement stock: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func placementResult(err error) string {
	var svcErr *Error
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, ErrInsufficientStock):
		return metrics.ResultInsufficientStock
	case errors.As(err, &svcErr):
		return metrics.ResultRejected
	default:
		return metrics.ResultError
	}
}

func (s *orderService) ListCustomerOrders(ctx context.Context, caller models.Caller) ([]*models.Order, error) {
	const op = "service.OrderService.ListCustomerOrders"
	logger := s.log.With(slog.String("op", op), slog.Int64("customerID", caller.ID))

	if caller.Role != models.RoleCustomer {
		return nil, newError(ErrForbidden, "only customers can access their orders")
	}

	orders, err := s.orderRepo.GetOrdersByCustomerID(ctx, caller.ID)
	if err != nil {
		logger.Error("failed to get orders", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get orders: %w", op, err)
	}
	return orders, nil
}

// ListFarmerOrders returns orders with at least one of the farmer's products;
// each order carries only the farmer's own lines.
func (s *orderService) ListFarmerOrders(ctx context.Context, caller models.Caller) ([]*models.Order, error) {
	const op = "service.OrderService.ListFarmerOrders"
	logger := s.log.With(slog.String("op", op), slog.Int64("farmerID", caller.ID))

	if caller.Role != models.RoleFarmer {
		return nil, newError(ErrForbidden, "only farmers can access their orders")
	}

	orders, err := s.orderRepo.GetOrdersByFarmerID(ctx, caller.ID)
	if err != nil {
		logger.Error("failed to get orders", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get orders: %w", op, err)
	}
	return orders, nil
}

func (s *orderService) GetOrder(ctx context.Context, caller models.Caller, orderID int64) (*models.Order, error) {
	const op = "service.OrderService.GetOrder"
	logger := s.log.With(slog.String("op", op), slog.Int64("orderID", orderID), slog.Int64("userID", caller.ID))

	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, newError(ErrNotFound, "order not found")
		}
		logger.Error("failed to get order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order: %w", op, err)
	}

	if !canView(caller, order) {
		logger.Warn("access to order denied", slog.String("role", string(caller.Role)))
		return nil, newError(ErrForbidden, "access denied")
	}
	return order, nil
}

// canView: a customer sees own orders, a farmer sees orders with any of their products.
func canView(caller models.Caller, order *models.Order) bool {
	switch caller.Role {
	case models.RoleCustomer:
		return order.CustomerID == caller.ID
	case models.RoleFarmer:
		for _, item := range order.Items {
			if item.Product != nil && item.Product.FarmerID == caller.ID {
				return true
			}
		}
	}
	return false
}

// UpdateOrderStatus moves an order to any status in the closed set. There is
// no transition graph and stock is not restored on cancellation.
func (s *orderService) UpdateOrderStatus(ctx context.Context, caller models.Caller, orderID int64, status models.OrderStatus) (*models.Order, error) {
	const op = "service.OrderService.UpdateOrderStatus"
	logger := s.log.With(
		slog.String("op", op),
		slog.Int64("orderID", orderID),
		slog.Int64("farmerID", caller.ID),
		slog.String("status", string(status)),
	)

	if caller.Role != models.RoleFarmer {
		return nil, newError(ErrForbidden, "only farmers can update order status")
	}
	if !status.Valid() {
		return nil, newError(ErrBadRequest, "invalid order status")
	}

	if err := s.orderRepo.UpdateOrderStatus(ctx, orderID, caller.ID, status); err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			logger.Warn("order not found or not owned by farmer")
			return nil, newError(ErrNotFound, "order not found or you do not have permission to update it")
		}
		logger.Error("failed to update order status", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update order status: %w", op, err)
	}
	logger.Info("order status updated")

	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		logger.Error("failed to load updated order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to load order: %w", op, err)
	}
	return order, nil
}
