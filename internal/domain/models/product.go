package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category is the closed set of produce categories.
type Category string

const (
	CategoryVegetables Category = "VEGETABLES"
	CategoryFruits     Category = "FRUITS"
	CategoryGrains     Category = "GRAINS"
	CategoryDairy      Category = "DAIRY"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryVegetables, CategoryFruits, CategoryGrains, CategoryDairy:
		return true
	}
	return false
}

// Product is a catalog entry owned by a farmer.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    Category        `json:"category"`
	Quantity    int             `json:"quantity"`
	ImageURL    *string         `json:"imageUrl,omitempty"`
	HarvestDate *time.Time      `json:"harvestDate,omitempty"`
	ExpiryDate  *time.Time      `json:"expiryDate,omitempty"`
	IsActive    bool            `json:"isActive"`
	FarmerID    int64           `json:"farmerId"`
	Farmer      *FarmerSummary  `json:"farmer,omitempty"` // filled via JOIN with users
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ProductFilter describes a public catalog query.
type ProductFilter struct {
	Search   string
	Category Category
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Page     int
	Limit    int
}

// Pagination is returned alongside a catalog page.
type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalItems   int `json:"totalItems"`
	ItemsPerPage int `json:"itemsPerPage"`
}

// ProductPatch carries the fields of a partial product update; nil means unchanged.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Category    *Category
	Quantity    *int
	ImageURL    *string
	HarvestDate *time.Time
	ExpiryDate  *time.Time
	IsActive    *bool
}
