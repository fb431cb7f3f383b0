// Package memstore is an in-memory implementation of the user, catalog and
// order storage used to exercise the services and the router without postgres.
//
// Transactions are serialised: BeginTx holds the store lock until Commit or
// Rollback, and writes are staged on the transaction until Commit. Plain reads
// wait for an open transaction to finish, so they only observe committed state.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/domain/models"
	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/storage"
)

type Store struct {
	mu       sync.Mutex
	users    map[int64]models.User
	products map[int64]models.Product
	orders   map[int64]models.Order
	nextID   int64
	now      func() time.Time
}

var (
	_ storage.UserStorage    = (*Store)(nil)
	_ storage.ProductStorage = (*Store)(nil)
	_ storage.OrderStorage   = (*Store)(nil)
)

func New() *Store {
	return &Store{
		users:    make(map[int64]models.User),
		products: make(map[int64]models.Product),
		orders:   make(map[int64]models.Order),
		now:      time.Now,
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// AddUser stores u, assigning an id when u.ID is zero.
func (s *Store) AddUser(u models.User) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = s.id()
	}
	s.users[u.ID] = u
	return u
}

// AddProduct stores p, assigning an id when p.ID is zero.
func (s *Store) AddProduct(p models.Product) models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.id()
	}
	s.products[p.ID] = p
	return p
}

// SetProductActive toggles the active flag of a stored product.
func (s *Store) SetProductActive(id int64, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[id]; ok {
		p.IsActive = active
		s.products[id] = p
	}
}

// Quantity returns the committed quantity of a product.
func (s *Store) Quantity(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Quantity
}

// OrderCount returns the number of committed orders.
func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *Store) farmer(id int64) models.FarmerSummary {
	u := s.users[id]
	return models.FarmerSummary{ID: id, Name: u.Name, FarmName: u.FarmName, FarmAddress: u.FarmAddress, Phone: u.Phone}
}

func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	farmer := s.farmer(p.FarmerID)
	p.Farmer = &farmer
	return &p, nil
}

func (s *Store) BeginTx(ctx context.Context) (storage.OrderTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &tx{store: s, stock: make(map[int64]int)}, nil
}

func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	return s.resolve(o, nil), nil
}

func (s *Store) GetOrdersByCustomerID(ctx context.Context, customerID int64) ([]*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	orders := make([]*models.Order, 0)
	for _, o := range s.orders {
		if o.CustomerID == customerID {
			orders = append(orders, s.resolve(o, nil))
		}
	}
	sortNewestFirst(orders)
	return orders, nil
}

func (s *Store) GetOrdersByFarmerID(ctx context.Context, farmerID int64) ([]*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	orders := make([]*models.Order, 0)
	for _, o := range s.orders {
		resolved := s.resolve(o, &farmerID)
		if len(resolved.Items) > 0 {
			orders = append(orders, resolved)
		}
	}
	sortNewestFirst(orders)
	return orders, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, orderID, farmerID int64, status models.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok || len(s.resolve(o, &farmerID).Items) == 0 {
		return storage.ErrOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = s.now()
	s.orders[orderID] = o
	return nil
}

// resolve copies o and attaches customer and product display data, keeping
// only the lines of farmerID when it is set. Callers hold s.mu.
func (s *Store) resolve(o models.Order, farmerID *int64) *models.Order {
	customer := s.users[o.CustomerID]
	out := o
	out.Customer = &models.CustomerSummary{ID: customer.ID, Name: customer.Name, Email: customer.Email}
	out.Items = make([]models.OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		p := s.products[item.ProductID]
		if farmerID != nil && p.FarmerID != *farmerID {
			continue
		}
		item.Product = &models.OrderedProduct{
			ID:       p.ID,
			Name:     p.Name,
			ImageURL: p.ImageURL,
			Category: p.Category,
			FarmerID: p.FarmerID,
			Farmer:   s.farmer(p.FarmerID),
		}
		out.Items = append(out.Items, item)
	}
	return &out
}

func sortNewestFirst(orders []*models.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

// tx stages stock changes and new orders until Commit. It holds store.mu for
// its whole lifetime.
type tx struct {
	store  *Store
	stock  map[int64]int
	orders []models.Order
	done   bool
}

func (t *tx) CreateOrder(ctx context.Context, order *models.Order) error {
	if t.done {
		return storage.ErrTxDone
	}
	now := t.store.now()
	order.ID = t.store.id()
	order.CreatedAt = now
	order.UpdatedAt = now
	for i := range order.Items {
		order.Items[i].ID = t.store.id()
		order.Items[i].OrderID = order.ID
	}
	staged := *order
	staged.Items = append([]models.OrderItem(nil), order.Items...)
	t.orders = append(t.orders, staged)
	return nil
}

func (t *tx) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	if t.done {
		return storage.ErrTxDone
	}
	current, ok := t.stock[productID]
	if !ok {
		p, exists := t.store.products[productID]
		if !exists {
			return storage.ErrProductNotFound
		}
		current = p.Quantity
	}
	if current < quantity {
		return &storage.StockConflictError{ProductID: productID, Requested: quantity, Available: current}
	}
	t.stock[productID] = current - quantity
	return nil
}

func (t *tx) Commit() error {
	if t.done {
		return storage.ErrTxDone
	}
	t.done = true
	defer t.store.mu.Unlock()

	for id, qty := range t.stock {
		p := t.store.products[id]
		p.Quantity = qty
		p.UpdatedAt = t.store.now()
		t.store.products[id] = p
	}
	for _, o := range t.orders {
		t.store.orders[o.ID] = o
	}
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return storage.ErrTxDone
	}
	t.done = true
	t.store.mu.Unlock()
	return nil
}
