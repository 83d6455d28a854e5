package search

import (
	"time"

	"github.com/pricescout/pricescout/internal/merchants"
)

// Listing is one ranked search result.
type Listing struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Brand       string          `json:"brand,omitempty"`
	Price       float64         `json:"price"`
	Unit        string          `json:"unit,omitempty"`
	Category    string          `json:"category,omitempty"`
	Description string          `json:"description,omitempty"`
	Image       string          `json:"image"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Distance    *float64        `json:"distance"`
	TotalCost   float64         `json:"totalCost"`
	Merchant    MerchantSummary `json:"merchant"`
}

// MerchantSummary is the merchant block attached to every listing.
type MerchantSummary struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	City         string                 `json:"city"`
	State        string                 `json:"state"`
	DeliversFlag bool                   `json:"deliversFlag"`
	StoreStatus  merchants.StoreStatus  `json:"storeStatus"`
	Schedule     merchants.WeekSchedule `json:"schedule,omitempty"`
	Lat          *float64               `json:"lat"`
	Lon          *float64               `json:"lon"`
}
