package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/domain/models"
	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/storage"
)

type ProductService interface {
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, models.Pagination, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListFarmerProducts(ctx context.Context, caller models.Caller) ([]*models.Product, error)
	CreateProduct(ctx context.Context, caller models.Caller, product *models.Product) (*models.Product, error)
	UpdateProduct(ctx context.Context, caller models.Caller, id int64, patch models.ProductPatch) (*models.Product, error)
	DeleteProduct(ctx context.Context, caller models.Caller, id int64) error
}

// PageLimits bounds the page size of public catalog queries.
type PageLimits struct {
	Default int
	Max     int
}

type productService struct {
	log         *slog.Logger
	productRepo storage.ProductStorage
	limits      PageLimits
}

func NewProductService(log *slog.Logger, productRepo storage.ProductStorage, limits PageLimits) ProductService {
	if limits.Default <= 0 {
		limits.Default = 12
	}
	if limits.Max < limits.Default {
		limits.Max = limits.Default
	}
	return &productService{
		log:         log,
		productRepo: productRepo,
		limits:      limits,
	}
}

func (s *productService) ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, models.Pagination, error) {
	const op = "service.ProductService.ListProducts"
	logger := s.log.With(slog.String("op", op))

	if filter.Category != "" && !filter.Category.Valid() {
		return nil, models.Pagination{}, newError(ErrBadRequest, "invalid category")
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, models.Pagination{}, newError(ErrBadRequest, "minPrice must not exceed maxPrice")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = s.limits.Default
	}
	if filter.Limit > s.limits.Max {
		filter.Limit = s.limits.Max
	}

	products, total, err := s.productRepo.ListProducts(ctx, filter)
	if err != nil {
		logger.Error("failed to list products", slog.Any("error", err))
		return nil, models.Pagination{}, fmt.Errorf("%s: failed to list products: %w", op, err)
	}

	return products, models.Pagination{
		CurrentPage:  filter.Page,
		TotalPages:   (total + filter.Limit - 1) / filter.Limit,
		TotalItems:   total,
		ItemsPerPage: filter.Limit,
	}, nil
}

func (s *productService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	const op = "service.ProductService.GetProduct"

	product, err := s.productRepo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return nil, newError(ErrNotFound, "product not found")
		}
		s.log.Error("failed to get product", slog.String("op", op), slog.Int64("productID", id), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get product: %w", op, err)
	}
	return product, nil
}

func (s *productService) ListFarmerProducts(ctx context.Context, caller models.Caller) ([]*models.Product, error) {
	const op = "service.ProductService.ListFarmerProducts"

	if caller.Role != models.RoleFarmer {
		return nil, newError(ErrForbidden, "only farmers can access their products")
	}

	products, err := s.productRepo.ListProductsByFarmer(ctx, caller.ID)
	if err != nil {
		s.log.Error("failed to list farmer products", slog.String("op", op), slog.Int64("farmerID", caller.ID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list products: %w", op, err)
	}
	return products, nil
}

// CreateProduct stores a new active product owned by the calling farmer.
func (s *productService) CreateProduct(ctx context.Context, caller models.Caller, product *models.Product) (*models.Product, error) {
	const op = "service.ProductService.CreateProduct"
	logger := s.log.With(slog.String("op", op), slog.Int64("farmerID", caller.ID))

	if caller.Role != models.RoleFarmer {
		return nil, newError(ErrForbidden, "only farmers can create products")
	}
	switch {
	case product.Name == "" || product.Description == "" || product.Category == "":
		return nil, newError(ErrBadRequest, "name, description, price, category and quantity are required")
	case !product.Category.Valid():
		return nil, newError(ErrBadRequest, "invalid category")
	case !product.Price.IsPositive():
		return nil, newError(ErrBadRequest, "price must be greater than 0")
	case product.Quantity <= 0:
		return nil, newError(ErrBadRequest, "quantity must be greater than 0")
	}

	product.FarmerID = caller.ID
	product.IsActive = true

	created, err := s.productRepo.CreateProduct(ctx, product)
	if err != nil {
		logger.Error("failed to create product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create product: %w", op, err)
	}
	logger.Info("product created", slog.Int64("productID", created.ID))

	return s.reload(ctx, op, created)
}

func (s *productService) UpdateProduct(ctx context.Context, caller models.Caller, id int64, patch models.ProductPatch) (*models.Product, error) {
	const op = "service.ProductService.UpdateProduct"
	logger := s.log.With(slog.String("op", op), slog.Int64("farmerID", caller.ID), slog.Int64("productID", id))

	if _, err := s.ownedProduct(ctx, op, caller, id); err != nil {
		return nil, err
	}
	switch {
	case patch.Name != nil && *patch.Name == "":
		return nil, newError(ErrBadRequest, "name must not be empty")
	case patch.Category != nil && !patch.Category.Valid():
		return nil, newError(ErrBadRequest, "invalid category")
	case patch.Price != nil && !patch.Price.IsPositive():
		return nil, newError(ErrBadRequest, "price must be greater than 0")
	case patch.Quantity != nil && *patch.Quantity < 0:
		return nil, newError(ErrBadRequest, "quantity must not be negative")
	}

	if err := s.productRepo.UpdateProduct(ctx, id, patch); err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return nil, newError(ErrNotFound, "product not found")
		}
		logger.Error("failed to update product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update product: %w", op, err)
	}
	logger.Info("product updated")

	product, err := s.productRepo.GetProductByID(ctx, id)
	if err != nil {
		logger.Error("failed to load updated product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to load product: %w", op, err)
	}
	return product, nil
}

func (s *productService) DeleteProduct(ctx context.Context, caller models.Caller, id int64) error {
	const op = "service.ProductService.DeleteProduct"
	logger := s.log.With(slog.String("op", op), slog.Int64("farmerID", caller.ID), slog.Int64("productID", id))

	if _, err := s.ownedProduct(ctx, op, caller, id); err != nil {
		return err
	}

	if err := s.productRepo.DeleteProduct(ctx, id); err != nil {
		switch {
		case errors.Is(err, storage.ErrProductNotFound):
			return newError(ErrNotFound, "product not found")
		case errors.Is(err, storage.ErrProductInUse):
			logger.Warn("product is referenced by orders")
			return newError(ErrInvalidState, "product has orders and cannot be deleted; deactivate it instead")
		}
		logger.Error("failed to delete product", slog.Any("error", err))
		return fmt.Errorf("%s: failed to delete product: %w", op, err)
	}
	logger.Info("product deleted")
	return nil
}

// ownedProduct loads the product and checks that the caller is the farmer who owns it.
func (s *productService) ownedProduct(ctx context.Context, op string, caller models.Caller, id int64) (*models.Product, error) {
	if caller.Role != models.RoleFarmer {
		return nil, newError(ErrForbidden, "only farmers can manage products")
	}
	product, err := s.productRepo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return nil, newError(ErrNotFound, "product not found")
		}
		s.log.Error("failed to get product", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get product: %w", op, err)
	}
	if product.FarmerID != caller.ID {
		s.log.Warn("product owned by another farmer", slog.String("op", op), slog.Int64("productID", id))
		return nil, newError(ErrForbidden, "you can only manage your own products")
	}
	return product, nil
}

// reload re-reads a freshly written product to attach farmer display data.
func (s *productService) reload(ctx context.Context, op string, product *models.Product) (*models.Product, error) {
	loaded, err := s.productRepo.GetProductByID(ctx, product.ID)
	if err != nil {
		s.log.Error("failed to reload product", slog.String("op", op), slog.Any("error", err))
		return product, nil
	}
	return loaded, nil
}
