package service_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/domain/models"
	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/service"
	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/storage"
	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/storage/memstore"
)

type orderFixture struct {
	store    *memstore.Store
	svc      service.OrderService
	customer models.Caller
	farmer   models.Caller
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()

	store := memstore.New()
	farmName := "Green Acres"
	customer := store.AddUser(models.User{Email: "alice@example.com", Name: "Alice", Role: models.RoleCustomer})
	farmer := store.AddUser(models.User{Email: "bob@example.com", Name: "Bob", Role: models.RoleFarmer, FarmName: &farmName})

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return &orderFixture{
		store:    store,
		svc:      service.NewOrderService(logger, store, store),
		customer: models.Caller{ID: customer.ID, Role: models.RoleCustomer},
		farmer:   models.Caller{ID: farmer.ID, Role: models.RoleFarmer},
	}
}

func (f *orderFixture) addProduct(name, price string, quantity int) models.Product {
	return f.store.AddProduct(models.Product{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Category: models.CategoryVegetables,
		Quantity: quantity,
		IsActive: true,
		FarmerID: f.farmer.ID,
	})
}

func TestOrderService_PlaceOrder_Success(t *testing.T) {
	f := newOrderFixture(t)
	carrots := f.addProduct("Carrots", "2.50", 10)
	cheese := f.addProduct("Cheese", "4.99", 5)

	order, err := f.svc.PlaceOrder(context.Background(), f.customer, []models.LineRequest{
		{ProductID: carrots.ID, Quantity: 3},
		{ProductID: cheese.ID, Quantity: 2},
	})
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("17.48").Equal(order.TotalPrice), "total is %s", order.TotalPrice)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, f.customer.ID, order.CustomerID)
	require.Len(t, order.Items, 2)
	assert.Equal(t, carrots.ID, order.Items[0].ProductID)
	assert.True(t, carrots.Price.Equal(order.Items[0].Price))
	require.NotNil(t, order.Items[0].Product)
	assert.Equal(t, "Carrots", order.Items[0].Product.Name)
	assert.Equal(t, "Bob", order.Items[0].Product.Farmer.Name)

	assert.Equal(t, 7, f.store.Quantity(carrots.ID))
	assert.Equal(t, 3, f.store.Quantity(cheese.ID))
	assert.Equal(t, 1, f.store.OrderCount())
}

func TestOrderService_PlaceOrder_TotalIsExact(t *testing.T) {
	f := newOrderFixture(t)
	p := f.addProduct("Apples", "0.10", 100)

	order, err := f.svc.PlaceOrder(context.Background(), f.customer, []models.LineRequest{
		{ProductID: p.ID, Quantity: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, "0.3", order.TotalPrice.String())
}

func TestOrderService_PlaceOrder_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		caller  func(f *orderFixture) models.Caller
		lines   func(p models.Product) []models.LineRequest
		kind    error
		message string
	}{
		{
			name:    "farmer cannot order",
			caller:  func(f *orderFixture) models.Caller { return f.farmer },
			lines:   func(p models.Product) []models.LineRequest { return []models.LineRequest{{ProductID: p.ID, Quantity: 1}} },
			kind:    service.ErrForbidden,
			message: "only customers can create orders",
		},
		{
			name:    "empty order",
			caller:  func(f *orderFixture) models.Caller { return f.customer },
			lines:   func(p models.Product) []models.LineRequest { return nil },
			kind:    service.ErrBadRequest,
			message: "order must contain at least one item",
		},
		{
			name:    "zero quantity",
			caller:  func(f *orderFixture) models.Caller { return f.customer },
			lines:   func(p models.Product) []models.LineRequest { return []models.LineRequest{{ProductID: p.ID, Quantity: 0}} },
			kind:    service.ErrBadRequest,
			message: "must be positive",
		},
		{
			name:    "unknown product",
			caller:  func(f *orderFixture) models.Caller { return f.customer },
			lines:   func(p models.Product) []models.LineRequest { return []models.LineRequest{{ProductID: 999, Quantity: 1}} },
			kind:    service.ErrNotFound,
			message: "product with ID 999 not found",
		},
		{
			name:    "more than stock",
			caller:  func(f *orderFixture) models.Caller { return f.customer },
			lines:   func(p models.Product) []models.LineRequest { return []models.LineRequest{{ProductID: p.ID, Quantity: 6}} },
			kind:    service.ErrInsufficientStock,
			message: "insufficient stock for Carrots. Available: 5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture(t)
			p := f.addProduct("Carrots", "2.50", 5)

			order, err := f.svc.PlaceOrder(context.Background(), tt.caller(f), tt.lines(p))
			assert.Nil(t, order)
			assert.ErrorIs(t, err, tt.kind)
			assert.Contains(t, err.Error(), tt.message)
			assert.Equal(t, 5, f.store.Quantity(p.ID))
			assert.Equal(t, 0, f.store.OrderCount())
		})
	}
}

func TestOrderService_PlaceOrder_InactiveProduct(t *testing.T) {
	f := newOrderFixture(t)
	p := f.addProduct("Milk", "1.20", 5)
	f.store.SetProductActive(p.ID, false)

	_, err := f.svc.PlaceOrder(context.Background(), f.customer, []models.LineRequest{{ProductID: p.ID, Quantity: 1}})
	assert.ErrorIs(t, err, service.ErrInvalidState)
	assert.EqualError(t, err, "product Milk is not available")
	assert.Equal(t, 5, f.store.Quantity(p.ID))
	assert.Equal(t, 0, f.store.OrderCount())
}

func TestOrderService_PlaceOrder_NoPartialCommit(t *testing.T) {
	f := newOrderFixture(t)
	p1 := f.addProduct("Carrots", "2.50", 10)
	p2 := f.addProduct("Potatoes", "1.00", 10)

	_, err := f.svc.PlaceOrder(context.Background(), f.customer, []models.LineRequest{
		{ProductID: p1.ID, Quantity: 2},
		{ProductID: p2.ID, Quantity: 999},
	})
	assert.ErrorIs(t, err, service.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "Potatoes")
	assert.Equal(t, 10, f.store.Quantity(p1.ID))
	assert.Equal(t, 10, f.store.Quantity(p2.ID))
	assert.Equal(t, 0, f.store.OrderCount())
}

func TestOrderService_PlaceOrder_DuplicateLinesExceedStock(t *testing.T) {
	f := newOrderFixture(t)
	p := f.addProduct("Carrots", "2.50", 5)

	// each line passes validation on its own, the second decrement does not
	_, err := f.svc.PlaceOrder(context.Background(), f.customer, []models.LineRequest{
		{ProductID: p.ID, Quantity: 3},
		{ProductID: p.ID, Quantity: 3},
	})
	assert.ErrorIs(t, err, service.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "Available: 2")
	assert.Equal(t, 5, f.store.Quantity(p.ID))
	assert.Equal(t, 0, f.store.OrderCount())
}

func TestOrderService_PlaceOrder_ConcurrentLastUnits(t *testing.T) {
	f := newOrderFixture(t)
	p := f.addProduct("Carrots", "2.50", 5)

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, 2)
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.svc.PlaceOrder(context.Background(), f.customer, []models.LineRequest{{ProductID: p.ID, Quantity: 3}})
		}(i)
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, service.ErrInsufficientStock)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 2, f.store.Quantity(p.ID))
	assert.Equal(t, 1, f.store.OrderCount())
}

func TestOrderService_PlaceOrder_ConcurrentNeverOversells(t *testing.T) {
	f := newOrderFixture(t)
	p := f.addProduct("Eggs", "0.35", 10)

	const buyers = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.PlaceOrder(context.Background(), f.customer, []models.LineRequest{{ProductID: p.ID, Quantity: 1}})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, service.ErrInsufficientStock)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 0, f.store.Quantity(p.ID))
	assert.Equal(t, 10, f.store.OrderCount())
}

func TestOrderService_GetOrder_Access(t *testing.T) {
	f := newOrderFixture(t)
	p := f.addProduct("Carrots", "2.50", 10)
	other := f.store.AddUser(models.User{Email: "carol@example.com", Name: "Carol", Role: models.RoleFarmer})
	stranger := f.store.AddUser(models.User{Email: "dave@example.com", Name: "Dave", Role: models.RoleCustomer})

	order, err := f.svc.PlaceOrder(context.Background(), f.customer, []models.LineRequest{{ProductID: p.ID, Quantity: 1}})
	require.NoError(t, err)

	tests := []struct {
		name   string
		caller models.Caller
		kind   error
	}{
		{name: "owning customer", caller: f.customer},
		{name: "farmer with a line", caller: f.farmer},
		{name: "farmer without lines", caller: models.Caller{ID: other.ID, Role: models.RoleFarmer}, kind: service.ErrForbidden},
		{name: "other customer", caller: models.Caller{ID: stranger.ID, Role: models.RoleCustomer}, kind: service.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.GetOrder(context.Background(), tt.caller, order.ID)
			if tt.kind != nil {
				assert.ErrorIs(t, err, tt.kind)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, order.ID, got.ID)
			require.NotNil(t, got.Customer)
			assert.Equal(t, "Alice", got.Customer.Name)
		})
	}

	_, err = f.svc.GetOrder(context.Background(), f.customer, 12345)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestOrderService_ListFarmerOrders_OnlyOwnLines(t *testing.T) {
	f := newOrderFixture(t)
	other := f.store.AddUser(models.User{Email: "carol@example.com", Name: "Carol", Role: models.RoleFarmer})
	mine := f.addProduct("Carrots", "2.50", 10)
	theirs := f.store.AddProduct(models.Product{
		Name: "Honey", Price: decimal.RequireFromString("8.00"), Category: models.CategoryDairy,
		Quantity: 10, IsActive: true, FarmerID: other.ID,
	})

	_, err := f.svc.PlaceOrder(context.Background(), f.customer, []models.LineRequest{
		{ProductID: mine.ID, Quantity: 1},
		{ProductID: theirs.ID, Quantity: 1},
	})
	require.NoError(t, err)
	_, err = f.svc.PlaceOrder(context.Background(), f.customer, []models.LineRequest{{ProductID: theirs.ID, Quantity: 2}})
	require.NoError(t, err)

	orders, err := f.svc.ListFarmerOrders(context.Background(), f.farmer)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, mine.ID, orders[0].Items[0].ProductID)

	customerOrders, err := f.svc.ListCustomerOrders(context.Background(), f.customer)
	require.NoError(t, err)
	require.Len(t, customerOrders, 2)
	assert.Greater(t, customerOrders[0].ID, customerOrders[1].ID, "newest first")

	_, err = f.svc.ListFarmerOrders(context.Background(), f.customer)
	assert.ErrorIs(t, err, service.ErrForbidden)
	_, err = f.svc.ListCustomerOrders(context.Background(), f.farmer)
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestOrderService_UpdateOrderStatus(t *testing.T) {
	f := newOrderFixture(t)
	p := f.addProduct("Carrots", "2.50", 10)
	other := f.store.AddUser(models.User{Email: "carol@example.com", Name: "Carol", Role: models.RoleFarmer})

	order, err := f.svc.PlaceOrder(context.Background(), f.customer, []models.LineRequest{{ProductID: p.ID, Quantity: 4}})
	require.NoError(t, err)

	updated, err := f.svc.UpdateOrderStatus(context.Background(), f.farmer, order.ID, models.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, updated.Status)
	// cancellation keeps the stock reduced
	assert.Equal(t, 6, f.store.Quantity(p.ID))

	_, err = f.svc.UpdateOrderStatus(context.Background(), models.Caller{ID: other.ID, Role: models.RoleFarmer}, order.ID, models.OrderStatusShipped)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = f.svc.UpdateOrderStatus(context.Background(), f.farmer, order.ID, models.OrderStatus("LOST"))
	assert.ErrorIs(t, err, service.ErrBadRequest)

	_, err = f.svc.UpdateOrderStatus(context.Background(), f.customer, order.ID, models.OrderStatusShipped)
	assert.ErrorIs(t, err, service.ErrForbidden)
}

type fakeProductReader struct {
	products map[int64]*models.Product
}

var _ storage.ProductReader = (*fakeProductReader)(nil)

func (f *fakeProductReader) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func TestOrderService_PlaceOrder_RollsBackOnInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	products := &fakeProductReader{products: map[int64]*models.Product{
		1: {ID: 1, Name: "Carrots", Price: decimal.RequireFromString("2.50"), Quantity: 5, IsActive: true},
	}}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	svc := service.NewOrderService(logger, products, storage.NewOrderRepository(db))

	_, err = svc.PlaceOrder(context.Background(), models.Caller{ID: 7, Role: models.RoleCustomer}, []models.LineRequest{{ProductID: 1, Quantity: 2}})
	assert.Error(t, err)
	var svcErr *service.Error
	assert.False(t, errors.As(err, &svcErr), "storage failures are not client errors")

	assert.NoError(t, mock.ExpectationsWereMet(), "sqlmock expectations should be met")
}

func TestOrderService_PlaceOrder_LostRaceRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(int64(7), sqlmock.AnyArg(), "PENDING").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(11, now, now))
	mock.ExpectQuery("INSERT INTO order_items").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))
	mock.ExpectExec("UPDATE products SET quantity = quantity").
		WithArgs(int64(2), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT quantity FROM products").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"quantity"}).AddRow(1))
	mock.ExpectRollback()

	products := &fakeProductReader{products: map[int64]*models.Product{
		1: {ID: 1, Name: "Carrots", Price: decimal.RequireFromString("2.50"), Quantity: 5, IsActive: true},
	}}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	svc := service.NewOrderService(logger, products, storage.NewOrderRepository(db))

	_, err = svc.PlaceOrder(context.Background(), models.Caller{ID: 7, Role: models.RoleCustomer}, []models.LineRequest{{ProductID: 1, Quantity: 2}})
	assert.ErrorIs(t, err, service.ErrInsufficientStock)
	assert.EqualError(t, err, "insufficient stock for Carrots. Available: 1")

	assert.NoError(t, mock.ExpectationsWereMet(), "sqlmock expectations should be met")
}
