package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/domain/models"
	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/service"
)

// Date accepts either a calendar date (2006-01-02) or an RFC 3339 timestamp.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d *Date) ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

type CreateProductRequest struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description" validate:"required"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category" validate:"required"`
	Quantity    int             `json:"quantity"`
	ImageURL    *string         `json:"imageUrl"`
	HarvestDate *Date           `json:"harvestDate"`
	ExpiryDate  *Date           `json:"expiryDate"`
}

// UpdateProductRequest is a partial update; absent fields stay unchanged.
type UpdateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Category    *string          `json:"category"`
	Quantity    *int             `json:"quantity"`
	ImageURL    *string          `json:"imageUrl"`
	HarvestDate *Date            `json:"harvestDate"`
	ExpiryDate  *Date            `json:"expiryDate"`
	IsActive    *bool            `json:"isActive"`
}

type ProductListResponse struct {
	Products   []*models.Product  `json:"products"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
}

type ProductResponse struct {
	Message string          `json:"message,omitempty"`
	Product *models.Product `json:"product"`
}

// ListProductsHandler handles GET /api/products with search, category,
// minPrice, maxPrice, page and limit query parameters.
func ListProductsHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListProductsHandler"
		logger := log.With(slog.String("op", op))

		filter, err := parseProductFilter(r)
		if err != nil {
			logger.Warn("invalid query", slog.Any("error", err))
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		products, page, err := productService.ListProducts(r.Context(), filter)
		if err != nil {
			writeServiceError(w, logger, err, errorStatus(err))
			return
		}
		writeJSON(w, logger, http.StatusOK, ProductListResponse{Products: products, Pagination: &page})
	}
}

type queryError string

func (e queryError) Error() string { return string(e) }

func parseProductFilter(r *http.Request) (models.ProductFilter, error) {
	q := r.URL.Query()
	filter := models.ProductFilter{
		Search:   strings.TrimSpace(q.Get("search")),
		Category: models.Category(strings.ToUpper(q.Get("category"))),
	}

	for name, dst := range map[string]*int{"page": &filter.Page, "limit": &filter.Limit} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return filter, queryError("invalid " + name)
			}
			*dst = n
		}
	}
	for name, dst := range map[string]**decimal.Decimal{"minPrice": &filter.MinPrice, "maxPrice": &filter.MaxPrice} {
		if v := q.Get(name); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return filter, queryError("invalid " + name)
			}
			*dst = &d
		}
	}
	return filter, nil
}

func GetProductHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetProductHandler"
		logger := log.With(slog.String("op", op))

		id, ok := idParam(w, r, logger)
		if !ok {
			return
		}

		product, err := productService.GetProduct(r.Context(), id)
		if err != nil {
			writeServiceError(w, logger, err, errorStatus(err))
			return
		}
		writeJSON(w, logger, http.StatusOK, ProductResponse{Product: product})
	}
}

// MyProductsHandler handles GET /api/products/farmer/my-products.
func MyProductsHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.MyProductsHandler"
		logger := log.With(slog.String("op", op))

		caller, ok := callerFrom(w, r, logger)
		if !ok {
			return
		}

		products, err := productService.ListFarmerProducts(r.Context(), caller)
		if err != nil {
			writeServiceError(w, logger, err, errorStatus(err))
			return
		}
		writeJSON(w, logger, http.StatusOK, ProductListResponse{Products: products})
	}
}

func CreateProductHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateProductHandler"
		logger := log.With(slog.String("op", op))

		caller, ok := callerFrom(w, r, logger)
		if !ok {
			return
		}
		var req CreateProductRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}

		product, err := productService.CreateProduct(r.Context(), caller, &models.Product{
			Name:        strings.TrimSpace(req.Name),
			Description: strings.TrimSpace(req.Description),
			Price:       req.Price,
			Category:    models.Category(req.Category),
			Quantity:    req.Quantity,
			ImageURL:    req.ImageURL,
			HarvestDate: req.HarvestDate.ptr(),
			ExpiryDate:  req.ExpiryDate.ptr(),
		})
		if err != nil {
			writeServiceError(w, logger, err, errorStatus(err))
			return
		}
		writeJSON(w, logger, http.StatusCreated, ProductResponse{Message: "Product created successfully", Product: product})
	}
}

func UpdateProductHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateProductHandler"
		logger := log.With(slog.String("op", op))

		caller, ok := callerFrom(w, r, logger)
		if !ok {
			return
		}
		id, ok := idParam(w, r, logger)
		if !ok {
			return
		}
		var req UpdateProductRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}

		patch := models.ProductPatch{
			Name:        req.Name,
			Description: req.Description,
			Price:       req.Price,
			Quantity:    req.Quantity,
			ImageURL:    req.ImageURL,
			HarvestDate: req.HarvestDate.ptr(),
			ExpiryDate:  req.ExpiryDate.ptr(),
			IsActive:    req.IsActive,
		}
		if req.Category != nil {
			c := models.Category(*req.Category)
			patch.Category = &c
		}

		product, err := productService.UpdateProduct(r.Context(), caller, id, patch)
		if err != nil {
			writeServiceError(w, logger, err, errorStatus(err))
			return
		}
		writeJSON(w, logger, http.StatusOK, ProductResponse{Message: "Product updated successfully", Product: product})
	}
}

func DeleteProductHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeleteProductHandler"
		logger := log.With(slog.String("op", op))

		caller, ok := callerFrom(w, r, logger)
		if !ok {
			return
		}
		id, ok := idParam(w, r, logger)
		if !ok {
			return
		}

		if err := productService.DeleteProduct(r.Context(), caller, id); err != nil {
			writeServiceError(w, logger, err, errorStatus(err))
			return
		}
		writeJSON(w, logger, http.StatusOK, MessageResponse{Message: "Product deleted successfully"})
	}
}
