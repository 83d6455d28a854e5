package analytics

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// TaskTypeSearch counts one consumer search.
	TaskTypeSearch = "analytics:search"
	// TaskTypeClick counts one product detail view.
	TaskTypeClick = "analytics:click"
)

// SearchPayload carries a raw search term and the products it matched.
type SearchPayload struct {
	Term       string  `json:"term"`
	ProductIDs []int64 `json:"product_ids"`
}

// ClickPayload carries one product view.
type ClickPayload struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
}

// NewSearchTask constructs an Asynq task for a search event.
func NewSearchTask(payload SearchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSearch, data), nil
}

// NewClickTask constructs an Asynq task for a click event.
func NewClickTask(payload ClickPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeClick, data), nil
}

// HandleSearchTask processes TaskTypeSearch tasks.
func (s *Service) HandleSearchTask(ctx context.Context, t *asynq.Task) error {
	var payload SearchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	return s.CountSearch(ctx, payload.Term, payload.ProductIDs)
}

// HandleClickTask processes TaskTypeClick tasks.
func (s *Service) HandleClickTask(ctx context.Context, t *asynq.Task) error {
	var payload ClickPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	return s.CountClick(ctx, payload.ProductID, payload.Name)
}
