package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/domain/models"
	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/storage"
)

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return nil, storage.ErrUserExists
		}
	}
	user.ID = s.id()
	user.CreatedAt = s.now()
	s.users[user.ID] = *user
	return user, nil
}

// withFarmer copies p and attaches the farmer display data. Callers hold s.mu.
func (s *Store) withFarmer(p models.Product) *models.Product {
	farmer := s.farmer(p.FarmerID)
	p.Farmer = &farmer
	return &p
}

func (s *Store) ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	search := strings.ToLower(filter.Search)
	matched := make([]*models.Product, 0)
	for _, p := range s.products {
		switch {
		case !p.IsActive || p.Quantity <= 0:
			continue
		case search != "" && !strings.Contains(strings.ToLower(p.Name), search):
			continue
		case filter.Category != "" && p.Category != filter.Category:
			continue
		case filter.MinPrice != nil && p.Price.LessThan(*filter.MinPrice):
			continue
		case filter.MaxPrice != nil && p.Price.GreaterThan(*filter.MaxPrice):
			continue
		}
		matched = append(matched, s.withFarmer(p))
	}
	sortProductsNewestFirst(matched)

	total := len(matched)
	from := (filter.Page - 1) * filter.Limit
	if from < 0 || from >= total {
		return []*models.Product{}, total, nil
	}
	to := from + filter.Limit
	if to > total {
		to = total
	}
	return matched[from:to], total, nil
}

func (s *Store) ListProductsByFarmer(ctx context.Context, farmerID int64) ([]*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	products := make([]*models.Product, 0)
	for _, p := range s.products {
		if p.FarmerID == farmerID {
			products = append(products, s.withFarmer(p))
		}
	}
	sortProductsNewestFirst(products)
	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	product.ID = s.id()
	product.CreatedAt = now
	product.UpdatedAt = now
	stored := *product
	stored.Farmer = nil
	s.products[product.ID] = stored
	return product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id int64, patch models.ProductPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return storage.ErrProductNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Quantity != nil {
		p.Quantity = *patch.Quantity
	}
	if patch.ImageURL != nil {
		p.ImageURL = patch.ImageURL
	}
	if patch.HarvestDate != nil {
		p.HarvestDate = patch.HarvestDate
	}
	if patch.ExpiryDate != nil {
		p.ExpiryDate = patch.ExpiryDate
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}
	p.UpdatedAt = s.now()
	s.products[id] = p
	return nil
}

// DeleteProduct refuses products referenced by an order line, like the
// RESTRICT foreign key in postgres.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return storage.ErrProductNotFound
	}
	for _, o := range s.orders {
		for _, item := range o.Items {
			if item.ProductID == id {
				return storage.ErrProductInUse
			}
		}
	}
	delete(s.products, id)
	return nil
}

func sortProductsNewestFirst(products []*models.Product) {
	sort.Slice(products, func(i, j int) bool {
		if products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].ID > products[j].ID
		}
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})
}
