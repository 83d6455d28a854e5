package analytics

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// QueueRecorder publishes analytics events to the task queue. It swallows
// every failure after logging it, which is what the search path expects.
type QueueRecorder struct {
	logger *slog.Logger
	client *asynq.Client
	queue  string
}

// NewQueueRecorder constructs a recorder on top of an Asynq client.
func NewQueueRecorder(logger *slog.Logger, client *asynq.Client, queue string) *QueueRecorder {
	return &QueueRecorder{logger: logger, client: client, queue: queue}
}

// RecordSearch enqueues one search event covering every matched product.
func (r *QueueRecorder) RecordSearch(ctx context.Context, term string, productIDs []int64) {
	if len(productIDs) == 0 {
		return
	}
	task, err := NewSearchTask(SearchPayload{Term: term, ProductIDs: productIDs})
	if err != nil {
		r.logger.Warn("analytics: build search task", slog.Any("error", err))
		return
	}
	if _, err := r.client.EnqueueContext(ctx, task, asynq.Queue(r.queue)); err != nil {
		r.logger.Warn("analytics: enqueue search", slog.Any("error", err))
	}
}

// RecordClick enqueues a click event.
func (r *QueueRecorder) RecordClick(ctx context.Context, productID int64, name string) {
	task, err := NewClickTask(ClickPayload{ProductID: productID, Name: name})
	if err != nil {
		r.logger.Warn("analytics: build click task", slog.Any("error", err))
		return
	}
	if _, err := r.client.EnqueueContext(ctx, task, asynq.Queue(r.queue)); err != nil {
		r.logger.Warn("analytics: enqueue click", slog.Int64("product_id", productID), slog.Any("error", err))
	}
}
