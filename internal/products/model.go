// Package products manages merchant catalog entries and their images.
package products

import (
	"strings"
	"time"
)

// SentinelImageURL is served for products without a stored image.
const SentinelImageURL = "/static/img/no-image.png"

// MaxPrice is the upper bound accepted for a product price.
const MaxPrice = 99999999.99

// Product is one catalog entry. ImageKey is either a blob key under the
// products bucket or an absolute URL taken from an imported file; empty
// when no image was provided.
type Product struct {
	ID          int64
	MerchantID  string
	Name        string
	Brand       string
	Price       float64
	Unit        string
	Category    string
	Description string
	ImageKey    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Incomplete reports whether the entry is missing the optional fields the
// merchant panel nags about.
func (p *Product) Incomplete() bool {
	return p.ImageKey == "" || p.Description == "" || p.Category == ""
}

// StoredImage reports whether ImageKey names a blob we own, as opposed to
// an external URL or nothing.
func (p *Product) StoredImage() bool {
	return p.ImageKey != "" &&
		!strings.HasPrefix(p.ImageKey, "http://") &&
		!strings.HasPrefix(p.ImageKey, "https://")
}
