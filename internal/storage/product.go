package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"golang.org/x/sync/errgroup"

	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/domain/models"
)

// ProductReader is the catalog lookup the order workflow validates against.
type ProductReader interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
}

// ProductStorage is the catalog storage.
type ProductStorage interface {
	ProductReader
	// ListProducts returns one page of active, in-stock products and the total match count.
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, int, error)
	ListProductsByFarmer(ctx context.Context, farmerID int64) ([]*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int64, patch models.ProductPatch) error
	DeleteProduct(ctx context.Context, id int64) error
}

type productRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

func NewProductRepository(db *sql.DB) ProductStorage {
	return &productRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

var productColumns = []string{
	"p.id", "p.name", "p.description", "p.price", "p.category", "p.quantity",
	"p.image_url", "p.harvest_date", "p.expiry_date", "p.is_active", "p.farmer_id",
	"p.created_at", "p.updated_at",
	"u.name", "u.farm_name", "u.farm_address", "u.phone",
}

func (r *productRepository) selectProducts() sq.SelectBuilder {
	return r.sb.Select(productColumns...).
		From("products p").
		Join("users u ON u.id = p.farmer_id")
}

func scanProduct(row interface{ Scan(...any) error }) (*models.Product, error) {
	p := &models.Product{Farmer: &models.FarmerSummary{}}
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.Quantity,
		&p.ImageURL, &p.HarvestDate, &p.ExpiryDate, &p.IsActive, &p.FarmerID,
		&p.CreatedAt, &p.UpdatedAt,
		&p.Farmer.Name, &p.Farmer.FarmName, &p.Farmer.FarmAddress, &p.Farmer.Phone,
	)
	if err != nil {
		return nil, err
	}
	p.Farmer.ID = p.FarmerID
	return p, nil
}

func (r *productRepository) queryProducts(ctx context.Context, qb sq.SelectBuilder) ([]*models.Product, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build products query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]*models.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	query, args, err := r.selectProducts().Where(sq.Eq{"p.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build product query: %w", err)
	}
	p, err := scanProduct(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListProducts runs the page query and the count query concurrently.
func (r *productRepository) ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, int, error) {
	where := sq.And{
		sq.Eq{"p.is_active": true},
		sq.Gt{"p.quantity": 0},
	}
	if filter.Search != "" {
		where = append(where, sq.ILike{"p.name": "%" + filter.Search + "%"})
	}
	if filter.Category != "" {
		where = append(where, sq.Eq{"p.category": filter.Category})
	}
	if filter.MinPrice != nil {
		where = append(where, sq.GtOrEq{"p.price": *filter.MinPrice})
	}
	if filter.MaxPrice != nil {
		where = append(where, sq.LtOrEq{"p.price": *filter.MaxPrice})
	}

	pageQuery := r.selectProducts().
		Where(where).
		OrderBy("p.created_at DESC", "p.id DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64((filter.Page - 1) * filter.Limit))
	countQuery := r.sb.Select("COUNT(*)").
		From("products p").
		Where(where)

	var (
		products []*models.Product
		total    int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = r.queryProducts(gctx, pageQuery)
		return err
	})
	g.Go(func() error {
		query, args, err := countQuery.ToSql()
		if err != nil {
			return fmt.Errorf("failed to build count query: %w", err)
		}
		if err := r.db.QueryRowContext(gctx, query, args...).Scan(&total); err != nil {
			return fmt.Errorf("failed to count products: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *productRepository) ListProductsByFarmer(ctx context.Context, farmerID int64) ([]*models.Product, error) {
	return r.queryProducts(ctx, r.selectProducts().
		Where(sq.Eq{"p.farmer_id": farmerID}).
		OrderBy("p.created_at DESC", "p.id DESC"))
}

// CreateProduct inserts p and fills in the generated fields
func (r *productRepository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	query, args, err := r.sb.Insert("products").
		Columns("name", "description", "price", "category", "quantity",
			"image_url", "harvest_date", "expiry_date", "is_active", "farmer_id").
		Values(product.Name, product.Description, product.Price, product.Category, product.Quantity,
			product.ImageURL, product.HarvestDate, product.ExpiryDate, product.IsActive, product.FarmerID).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

// UpdateProduct writes only the fields present in patch. Quantity is never
// rewritten unless the farmer sets it, so a concurrent order decrement is not
// overwritten by an unrelated edit.
func (r *productRepository) UpdateProduct(ctx context.Context, id int64, patch models.ProductPatch) error {
	ub := r.sb.Update("products").Set("updated_at", sq.Expr("NOW()"))
	if patch.Name != nil {
		ub = ub.Set("name", *patch.Name)
	}
	if patch.Description != nil {
		ub = ub.Set("description", *patch.Description)
	}
	if patch.Price != nil {
		ub = ub.Set("price", *patch.Price)
	}
	if patch.Category != nil {
		ub = ub.Set("category", *patch.Category)
	}
	if patch.Quantity != nil {
		ub = ub.Set("quantity", *patch.Quantity)
	}
	if patch.ImageURL != nil {
		ub = ub.Set("image_url", *patch.ImageURL)
	}
	if patch.HarvestDate != nil {
		ub = ub.Set("harvest_date", *patch.HarvestDate)
	}
	if patch.ExpiryDate != nil {
		ub = ub.Set("expiry_date", *patch.ExpiryDate)
	}
	if patch.IsActive != nil {
		ub = ub.Set("is_active", *patch.IsActive)
	}

	query, args, err := ub.Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *productRepository) DeleteProduct(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return ErrProductInUse
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}
