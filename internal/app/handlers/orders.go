package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/domain/models"
	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/service"
)

type OrderLine struct {
	ProductID int64 `json:"productId" validate:"required"`
	Quantity  int   `json:"quantity"`
}

type PlaceOrderRequest struct {
	Items []OrderLine `json:"items" validate:"required,dive"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type OrderResponse struct {
	Message string        `json:"message,omitempty"`
	Order   *models.Order `json:"order"`
}

type OrderListResponse struct {
	Orders []*models.Order `json:"orders"`
}

// placeOrderStatus: every business rejection of an order placement except
// Forbidden is reported as 400.
func placeOrderStatus(err error) int {
	status := errorStatus(err)
	switch status {
	case http.StatusNotFound, http.StatusConflict:
		return http.StatusBadRequest
	}
	return status
}

// PlaceOrderHandler handles POST /api/orders.
func PlaceOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PlaceOrderHandler"
		logger := log.With(slog.String("op", op))

		caller, ok := callerFrom(w, r, logger)
		if !ok {
			return
		}
		var req PlaceOrderRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}

		lines := make([]models.LineRequest, 0, len(req.Items))
		for _, item := range req.Items {
			lines = append(lines, models.LineRequest{ProductID: item.ProductID, Quantity: item.Quantity})
		}

		order, err := orderService.PlaceOrder(r.Context(), caller, lines)
		if err != nil {
			writeServiceError(w, logger, err, placeOrderStatus(err))
			return
		}
		writeJSON(w, logger, http.StatusCreated, OrderResponse{Message: "Order created successfully", Order: order})
	}
}

func CustomerOrdersHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CustomerOrdersHandler"
		logger := log.With(slog.String("op", op))

		caller, ok := callerFrom(w, r, logger)
		if !ok {
			return
		}
		orders, err := orderService.ListCustomerOrders(r.Context(), caller)
		if err != nil {
			writeServiceError(w, logger, err, errorStatus(err))
			return
		}
		writeJSON(w, logger, http.StatusOK, OrderListResponse{Orders: orders})
	}
}

func FarmerOrdersHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.FarmerOrdersHandler"
		logger := log.With(slog.String("op", op))

		caller, ok := callerFrom(w, r, logger)
		if !ok {
			return
		}
		orders, err := orderService.ListFarmerOrders(r.Context(), caller)
		if err != nil {
			writeServiceError(w, logger, err, errorStatus(err))
			return
		}
		writeJSON(w, logger, http.StatusOK, OrderListResponse{Orders: orders})
	}
}

func GetOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetOrderHandler"
		logger := log.With(slog.String("op", op))

		caller, ok := callerFrom(w, r, logger)
		if !ok {
			return
		}
		id, ok := idParam(w, r, logger)
		if !ok {
			return
		}

		order, err := orderService.GetOrder(r.Context(), caller, id)
		if err != nil {
			writeServiceError(w, logger, err, errorStatus(err))
			return
		}
		writeJSON(w, logger, http.StatusOK, OrderResponse{Order: order})
	}
}

// UpdateOrderStatusHandler handles PUT /api/orders/{id}/status.
func UpdateOrderStatusHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateOrderStatusHandler"
		logger := log.With(slog.String("op", op))

		caller, ok := callerFrom(w, r, logger)
		if !ok {
			return
		}
		id, ok := idParam(w, r, logger)
		if !ok {
			return
		}
		var req UpdateOrderStatusRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}

		order, err := orderService.UpdateOrderStatus(r.Context(), caller, id, models.OrderStatus(req.Status))
		if err != nil {
			writeServiceError(w, logger, err, errorStatus(err))
			return
		}
		writeJSON(w, logger, http.StatusOK, OrderResponse{Message: "Order status updated successfully", Order: order})
	}
}

// HealthHandler handles GET /health.
func HealthHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, log, http.StatusOK, map[string]string{"status": "ok"})
	}
}
