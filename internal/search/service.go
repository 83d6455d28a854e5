package search

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pricescout/pricescout/internal/geo"
	"github.com/pricescout/pricescout/internal/merchants"
	"github.com/pricescout/pricescout/internal/products"
	"github.com/pricescout/pricescout/internal/shared"
)

// SortMode selects the ranking applied to search results.
type SortMode string

const (
	SortPrice     SortMode = "price"
	SortProximity SortMode = "proximity"
	SortCost      SortMode = "cost"
	SortRecency   SortMode = "recency"
)

// sortAliases accepts the Portuguese parameter values merchants' storefront
// links have used historically.
var sortAliases = map[string]SortMode{
	"price":       SortPrice,
	"preco":       SortPrice,
	"proximity":   SortProximity,
	"proximidade": SortProximity,
	"cost":        SortCost,
	"custo":       SortCost,
	"recency":     SortRecency,
	"recencia":    SortRecency,
	"recente":     SortRecency,
}

// ParseSortModes maps raw parameter values onto sort modes, dropping
// unknown values.
func ParseSortModes(raw []string) []SortMode {
	var modes []SortMode
	for _, r := range raw {
		if mode, ok := sortAliases[strings.ToLower(strings.TrimSpace(r))]; ok {
			modes = append(modes, mode)
		}
	}
	return modes
}

// pickSortMode applies the fixed precedence when several modes are
// requested at once: recency beats cost beats proximity beats price.
func pickSortMode(modes []SortMode) SortMode {
	precedence := []SortMode{SortRecency, SortCost, SortProximity, SortPrice}
	for _, want := range precedence {
		for _, m := range modes {
			if m == want {
				return want
			}
		}
	}
	return SortPrice
}

// Query is one consumer search request.
type Query struct {
	Term         string
	State        string
	City         string
	DeliversOnly bool
	UserLat      *float64
	UserLon      *float64
	Sort         []SortMode
}

// Catalog is the read surface the service needs.
type Catalog interface {
	ListActiveCatalog(ctx context.Context) ([]CatalogItem, error)
	GetCatalogItem(ctx context.Context, productID int64) (*CatalogItem, error)
}

// Recorder receives analytics events. Implementations must swallow their
// own failures; search never degrades because counting did.
type Recorder interface {
	RecordSearch(ctx context.Context, term string, productIDs []int64)
	RecordClick(ctx context.Context, productID int64, name string)
}

// ImageResolver turns stored blob keys into public URLs.
type ImageResolver interface {
	PublicURL(bucket, key string) string
}

// Service filters and ranks the catalog for consumers.
type Service struct {
	logger   *slog.Logger
	repo     Catalog
	recorder Recorder
	images   ImageResolver
	geoOpts  geo.Options
	now      func() time.Time
}

// NewService constructs a search service.
func NewService(logger *slog.Logger, repo Catalog, recorder Recorder, images ImageResolver, geoOpts geo.Options) *Service {
	return &Service{
		logger:   logger,
		repo:     repo,
		recorder: recorder,
		images:   images,
		geoOpts:  geoOpts,
		now:      time.Now,
	}
}

// Search returns the filtered, ranked listing. Geo trouble never fails a
// search; it degrades to unknown distance.
func (s *Service) Search(ctx context.Context, q Query) ([]Listing, error) {
	items, err := s.repo.ListActiveCatalog(ctx)
	if err != nil {
		return nil, err
	}

	term := shared.Fold(q.Term)
	state := shared.Fold(q.State)
	city := shared.Fold(q.City)

	// Distance depends only on the merchant, so resolve each merchant
	// once no matter how many products it lists.
	distances := make(map[string]*float64)
	resolveDistance := func(m *merchants.Merchant) *float64 {
		if q.UserLat == nil || q.UserLon == nil {
			return nil
		}
		if d, ok := distances[m.ID]; ok {
			return d
		}
		var dist *float64
		point, err := geo.Resolve(*q.UserLat, *q.UserLon, m.Latitude, m.Longitude, s.geoOpts)
		if err == nil {
			d := point.DistanceKm
			dist = &d
		}
		distances[m.ID] = dist
		return dist
	}

	now := s.now()
	listings := make([]Listing, 0, len(items))
	var matchedIDs []int64
	for i := range items {
		item := &items[i]
		if !s.matches(item, term, state, city, q.DeliversOnly) {
			continue
		}
		matchedIDs = append(matchedIDs, item.Product.ID)
		listings = append(listings, s.toListing(item, resolveDistance(&item.Merchant), now))
	}

	s.rank(listings, pickSortMode(q.Sort))

	// One counter per (term, matched product) pair; a search that matches
	// nothing leaves no trace.
	if q.Term != "" && len(matchedIDs) > 0 && s.recorder != nil {
		s.recorder.RecordSearch(ctx, q.Term, matchedIDs)
	}
	return listings, nil
}

// ProductDetail returns one listing and counts the click.
func (s *Service) ProductDetail(ctx context.Context, productID int64, userLat, userLon *float64) (*Listing, error) {
	item, err := s.repo.GetCatalogItem(ctx, productID)
	if err != nil {
		return nil, err
	}
	var dist *float64
	if userLat != nil && userLon != nil {
		if point, err := geo.Resolve(*userLat, *userLon, item.Merchant.Latitude, item.Merchant.Longitude, s.geoOpts); err == nil {
			d := point.DistanceKm
			dist = &d
		}
	}
	listing := s.toListing(item, dist, s.now())
	if s.recorder != nil {
		s.recorder.RecordClick(ctx, item.Product.ID, item.Product.Name)
	}
	return &listing, nil
}

func (s *Service) matches(item *CatalogItem, term, state, city string, deliversOnly bool) bool {
	if deliversOnly && !item.Merchant.Delivers {
		return false
	}
	if state != "" && shared.Fold(item.Merchant.State) != state {
		return false
	}
	if city != "" && shared.Fold(item.Merchant.City) != city {
		return false
	}
	if term == "" {
		return true
	}
	// Consumers search product names only; brand and category matching is
	// a merchant panel feature.
	return strings.Contains(shared.Fold(item.Product.Name), term)
}

func (s *Service) toListing(item *CatalogItem, dist *float64, now time.Time) Listing {
	p := &item.Product
	m := &item.Merchant

	totalCost := p.Price
	if dist != nil {
		totalCost += s.geoOpts.TravelCost(*dist)
		rounded := math.Round(*dist*100) / 100
		dist = &rounded
	}

	image := products.SentinelImageURL
	switch {
	case strings.HasPrefix(p.ImageKey, "http://"), strings.HasPrefix(p.ImageKey, "https://"):
		image = p.ImageKey
	case p.ImageKey != "":
		image = s.images.PublicURL("products", p.ImageKey)
	}

	return Listing{
		ID:          p.ID,
		Name:        p.Name,
		Brand:       p.Brand,
		Price:       p.Price,
		Unit:        p.Unit,
		Category:    p.Category,
		Description: p.Description,
		Image:       image,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Distance:    dist,
		TotalCost:   totalCost,
		Merchant: MerchantSummary{
			ID:           m.ID,
			Name:         m.Name,
			City:         m.City,
			State:        m.State,
			DeliversFlag: m.Delivers,
			StoreStatus:  m.Schedule.StatusAt(now),
			Schedule:     m.Schedule,
			Lat:          m.Latitude,
			Lon:          m.Longitude,
		},
	}
}

// rank orders listings in place. Unknown distance always sorts last for
// proximity and adds nothing for cost.
func (s *Service) rank(listings []Listing, mode SortMode) {
	distOrInf := func(l *Listing) float64 {
		if l.Distance == nil {
			return math.Inf(1)
		}
		return *l.Distance
	}
	switch mode {
	case SortRecency:
		sort.SliceStable(listings, func(a, b int) bool {
			return listings[a].CreatedAt.After(listings[b].CreatedAt)
		})
	case SortCost:
		sort.SliceStable(listings, func(a, b int) bool {
			if listings[a].TotalCost != listings[b].TotalCost {
				return listings[a].TotalCost < listings[b].TotalCost
			}
			return listings[a].Price < listings[b].Price
		})
	case SortProximity:
		sort.SliceStable(listings, func(a, b int) bool {
			da, db := distOrInf(&listings[a]), distOrInf(&listings[b])
			if da != db {
				return da < db
			}
			return listings[a].Price < listings[b].Price
		})
	default:
		sort.SliceStable(listings, func(a, b int) bool {
			return listings[a].Price < listings[b].Price
		})
	}
}
