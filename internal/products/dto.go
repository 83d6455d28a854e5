package products

import "time"

// CreateRequest is the payload for adding one product manually.
type CreateRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=200"`
	Brand       string  `json:"brand" validate:"max=100"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Unit        string  `json:"unit" validate:"max=20"`
	Category    string  `json:"category" validate:"max=100"`
	Description string  `json:"description" validate:"max=2000"`
}

// UpdateRequest carries partial edits. Nil fields are left untouched.
type UpdateRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Brand       *string  `json:"brand" validate:"omitempty,max=100"`
	Price       *float64 `json:"price" validate:"omitempty,gt=0"`
	Unit        *string  `json:"unit" validate:"omitempty,max=20"`
	Category    *string  `json:"category" validate:"omitempty,max=100"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
}

// BatchDeleteRequest names the products to remove in one action.
type BatchDeleteRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1"`
}

// ListQuery filters and orders the merchant panel listing.
type ListQuery struct {
	Search         string
	IncompleteOnly bool
	SortBy         string
	SortDir        string
	Page           int
	PerPage        int
}

// ProductJSON is the API projection of a product.
type ProductJSON struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Brand       string    `json:"brand,omitempty"`
	Price       float64   `json:"price"`
	Unit        string    `json:"unit,omitempty"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url"`
	Incomplete  bool      `json:"incomplete"`
	UpdatedAt   time.Time `json:"updated_at"`
}
