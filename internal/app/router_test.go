package app_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/app"
	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/service"
	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/storage/memstore"
)

const secret = "testsecret"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memstore.New()

	return app.NewRouter(log, app.RouterConfig{JWTSecret: secret, AllowedOrigins: []string{"http://localhost:5173"}}, app.Services{
		Auth:     service.NewAuthService(log, store, time.Hour, secret),
		Products: service.NewProductService(log, store, service.PageLimits{Default: 12, Max: 100}),
		Orders:   service.NewOrderService(log, store, store),
	})
}

func call(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rr.Body).Decode(v))
}

func register(t *testing.T, h http.Handler, email, role string) string {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":"password123","name":"Test","role":%q,"farmName":"Green Acres"}`, email, role)
	rr := call(t, h, http.MethodPost, "/api/auth/register", "", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	decode(t, rr, &resp)
	return resp.Token
}

func TestRouter_OrderFlow(t *testing.T) {
	h := newTestRouter(t)
	farmer := register(t, h, "bob@example.com", "FARMER")
	otherFarmer := register(t, h, "carol@example.com", "FARMER")
	customer := register(t, h, "alice@example.com", "CUSTOMER")

	// catalog
	productBody := `{"name":"Carrots","description":"Fresh","price":"2.50","category":"VEGETABLES","quantity":5}`
	rr := call(t, h, http.MethodPost, "/api/products", customer, productBody)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = call(t, h, http.MethodPost, "/api/products", farmer, productBody)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created struct {
		Product struct {
			ID int64 `json:"id"`
		} `json:"product"`
	}
	decode(t, rr, &created)
	productID := created.Product.ID

	rr = call(t, h, http.MethodGet, "/api/products?category=VEGETABLES", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Products   []json.RawMessage `json:"products"`
		Pagination struct {
			TotalItems int `json:"totalItems"`
		} `json:"pagination"`
	}
	decode(t, rr, &list)
	assert.Len(t, list.Products, 1)
	assert.Equal(t, 1, list.Pagination.TotalItems)

	// orders
	rr = call(t, h, http.MethodPost, "/api/orders", farmer, fmt.Sprintf(`{"items":[{"productId":%d,"quantity":1}]}`, productID))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = call(t, h, http.MethodPost, "/api/orders", customer, fmt.Sprintf(`{"items":[{"productId":%d,"quantity":100}]}`, productID))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "insufficient stock for Carrots. Available: 5")

	rr = call(t, h, http.MethodPost, "/api/orders", customer, fmt.Sprintf(`{"items":[{"productId":%d,"quantity":3}]}`, productID))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var placed struct {
		Order struct {
			ID         int64  `json:"id"`
			TotalPrice string `json:"totalPrice"`
			Status     string `json:"status"`
			Items      []struct {
				Product struct {
					Name string `json:"name"`
				} `json:"product"`
			} `json:"orderItems"`
		} `json:"order"`
	}
	decode(t, rr, &placed)
	assert.Equal(t, "7.5", placed.Order.TotalPrice)
	assert.Equal(t, "PENDING", placed.Order.Status)
	require.Len(t, placed.Order.Items, 1)
	assert.Equal(t, "Carrots", placed.Order.Items[0].Product.Name)
	orderPath := fmt.Sprintf("/api/orders/%d", placed.Order.ID)

	// access to a single order
	assert.Equal(t, http.StatusUnauthorized, call(t, h, http.MethodGet, orderPath, "", "").Code)
	assert.Equal(t, http.StatusOK, call(t, h, http.MethodGet, orderPath, customer, "").Code)
	assert.Equal(t, http.StatusOK, call(t, h, http.MethodGet, orderPath, farmer, "").Code)
	assert.Equal(t, http.StatusForbidden, call(t, h, http.MethodGet, orderPath, otherFarmer, "").Code)
	assert.Equal(t, http.StatusNotFound, call(t, h, http.MethodGet, "/api/orders/999", customer, "").Code)

	// status
	assert.Equal(t, http.StatusForbidden, call(t, h, http.MethodPut, orderPath+"/status", customer, `{"status":"SHIPPED"}`).Code)
	assert.Equal(t, http.StatusNotFound, call(t, h, http.MethodPut, orderPath+"/status", otherFarmer, `{"status":"SHIPPED"}`).Code)
	assert.Equal(t, http.StatusBadRequest, call(t, h, http.MethodPut, orderPath+"/status", farmer, `{"status":"LOST"}`).Code)
	rr = call(t, h, http.MethodPut, orderPath+"/status", farmer, `{"status":"SHIPPED"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"SHIPPED"`)

	// listings
	rr = call(t, h, http.MethodGet, "/api/orders/farmer/my-orders", farmer, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = call(t, h, http.MethodGet, "/api/orders/customer/my-orders", customer, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	var mine struct {
		Orders []json.RawMessage `json:"orders"`
	}
	decode(t, rr, &mine)
	assert.Len(t, mine.Orders, 1)
	assert.Equal(t, http.StatusForbidden, call(t, h, http.MethodGet, "/api/orders/farmer/my-orders", customer, "").Code)

	// a product with orders cannot be deleted
	productPath := fmt.Sprintf("/api/products/%d", productID)
	assert.Equal(t, http.StatusConflict, call(t, h, http.MethodDelete, productPath, farmer, "").Code)
	rr = call(t, h, http.MethodGet, productPath, "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"quantity":2`)
}

func TestRouter_AuthAndProfile(t *testing.T) {
	h := newTestRouter(t)
	register(t, h, "alice@example.com", "CUSTOMER")

	rr := call(t, h, http.MethodPost, "/api/auth/register", "", `{"email":"alice@example.com","password":"password123","name":"A","role":"CUSTOMER"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = call(t, h, http.MethodPost, "/api/auth/login", "", `{"email":"alice@example.com","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = call(t, h, http.MethodPost, "/api/auth/login", "", `{"email":"alice@example.com","password":"password123"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var login struct {
		Token string `json:"token"`
	}
	decode(t, rr, &login)

	rr = call(t, h, http.MethodGet, "/api/auth/profile", login.Token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "alice@example.com")
	assert.NotContains(t, rr.Body.String(), "passHash")

	assert.Equal(t, http.StatusUnauthorized, call(t, h, http.MethodGet, "/api/auth/profile", "", "").Code)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	h := newTestRouter(t)

	rr := call(t, h, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = call(t, h, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "farm_direct_http_requests_total")
}

func TestRouter_CORSPreflight(t *testing.T) {
	h := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
}
