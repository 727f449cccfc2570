// Package prizes manages the rewards a business offers for loyalty points.
package prizes

import (
	"sort"
	"time"
)

// Prize is a reward redeemable for points at one business.
type Prize struct {
	ID          int64     `json:"id"`
	BusinessID  int64     `json:"idBusiness"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	Points      int       `json:"points"`
	Products    []Item    `json:"products"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Item is a product included in a prize.
type Item struct {
	ProductID int64  `json:"idProduct"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// Link references a product of the prize's business.
type Link struct {
	ProductID int64 `json:"idProduct" validate:"required,gt=0"`
	Quantity  int   `json:"quantity,omitempty" validate:"omitempty,gt=0"`
}

// Input is the payload of POST /api/prize.
type Input struct {
	BusinessID  int64  `json:"idBusiness" validate:"required,gt=0"`
	Name        string `json:"name" validate:"required,min=2,max=120"`
	Description string `json:"description,omitempty" validate:"max=1000"`
	Image       string `json:"image,omitempty" validate:"omitempty,url"`
	Points      int    `json:"points" validate:"required,gt=0"`
	Products    []Link `json:"products,omitempty" validate:"dive"`
}

// Patch is a partial update. Nil fields were not submitted; a non-nil
// Products replaces every link.
type Patch struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=2,max=120"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	Image       *string `json:"image,omitempty" validate:"omitempty,url"`
	Points      *int    `json:"points,omitempty" validate:"omitempty,gt=0"`
	Products    *[]Link `json:"products,omitempty" validate:"omitempty,dive"`
}

var columns = map[string]string{
	"name":        "name",
	"description": "description",
	"image":       "image",
	"points":      "points",
}

// normalizeLinks merges duplicate products and defaults quantities to one.
// The result is ordered by product id.
func normalizeLinks(in []Link) []Link {
	merged := map[int64]int{}
	for _, l := range in {
		q := l.Quantity
		if q <= 0 {
			q = 1
		}
		merged[l.ProductID] += q
	}
	out := make([]Link, 0, len(merged))
	for id, q := range merged {
		out = append(out, Link{ProductID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// linksOf returns the links of p in normalized form.
func linksOf(p *Prize) []Link {
	out := make([]Link, 0, len(p.Products))
	for _, it := range p.Products {
		out = append(out, Link{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return normalizeLinks(out)
}

func sameLinks(a, b []Link) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
