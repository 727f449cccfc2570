// Package products manages the menu items of a business and the product
// types that group them.
package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a menu item sold by a business.
type Product struct {
	ID            int64           `json:"id"`
	BusinessID    int64           `json:"idBusiness"`
	ProductTypeID *int64          `json:"idProductType"`
	ProductType   *ProductType    `json:"productType,omitempty"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Image         string          `json:"image"`
	Price         decimal.Decimal `json:"price"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// ProductType labels a group of products on the public menu.
type ProductType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Input is the payload of POST /api/product.
type Input struct {
	BusinessID    int64           `json:"idBusiness" validate:"required,gt=0"`
	ProductTypeID *int64          `json:"idProductType,omitempty" validate:"omitempty,gt=0"`
	Name          string          `json:"name" validate:"required,min=2,max=120"`
	Description   string          `json:"description,omitempty" validate:"max=1000"`
	Image         string          `json:"image,omitempty" validate:"omitempty,url"`
	Price         decimal.Decimal `json:"price"`
}

// Patch is a partial update. Nil fields were not submitted.
type Patch struct {
	ProductTypeID *int64           `json:"idProductType,omitempty" validate:"omitempty,gt=0"`
	Name          *string          `json:"name,omitempty" validate:"omitempty,min=2,max=120"`
	Description   *string          `json:"description,omitempty" validate:"omitempty,max=1000"`
	Image         *string          `json:"image,omitempty" validate:"omitempty,url"`
	Price         *decimal.Decimal `json:"price,omitempty"`
}

// TypeInput is the payload of POST /api/product-type.
type TypeInput struct {
	Name string `json:"name" validate:"required,min=2,max=60"`
}

// columns maps JSON field names to product columns.
var columns = map[string]string{
	"idProductType": "product_type_id",
	"name":          "name",
	"description":   "description",
	"image":         "image",
	"price":         "price",
}
