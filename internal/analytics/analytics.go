// Package analytics counts what consumers search for and which products
// they open. Counting is best effort: events travel through the task
// queue and a lost event never surfaces to the consumer.
package analytics

import "time"

// SearchTermStat is one aggregated search term. Storage keeps a row per
// (term, product) pair; this view folds the pairs back to the term.
type SearchTermStat struct {
	Term     string    `json:"term"`
	Count    int64     `json:"count"`
	LastSeen time.Time `json:"last_seen"`
}

// ProductClickStat is one aggregated product click counter.
type ProductClickStat struct {
	ProductID int64     `json:"product_id"`
	Name      string    `json:"name"`
	Count     int64     `json:"count"`
	LastSeen  time.Time `json:"last_seen"`
}

// Stats is the aggregate view served to administrators.
type Stats struct {
	TotalSearches int64              `json:"total_searches"`
	TotalClicks   int64              `json:"total_clicks"`
	TopSearches   []SearchTermStat   `json:"top_searches"`
	TopClicks     []ProductClickStat `json:"top_clicks"`
}
