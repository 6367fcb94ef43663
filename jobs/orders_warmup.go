package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/quayside-hq/quayside/internal/jobs"
	"github.com/quayside-hq/quayside/internal/procurement"
)

// OrdersWarmupJob primes the cached order and GRN listings so the first
// console visit after an invalidation does not pay the remote round trip.
type OrdersWarmupJob struct {
	workflow *procurement.Workflow
	logger   *slog.Logger
	metrics  *jobmetrics.Metrics
}

// NewOrdersWarmupJob constructs the job.
func NewOrdersWarmupJob(workflow *procurement.Workflow, logger *slog.Logger, metrics *jobmetrics.Metrics) *OrdersWarmupJob {
	return &OrdersWarmupJob{workflow: workflow, logger: logger, metrics: metrics}
}

// Handle processes TaskOrdersWarmup tasks.
func (j *OrdersWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload OrdersWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Pages <= 0 {
		payload.Pages = 1
	}
	if payload.PageSize <= 0 {
		payload.PageSize = 20
	}

	tracker := j.metrics.Track("orders_warmup")
	err := j.warm(ctx, payload)
	if err != nil {
		j.logger.Warn("orders warmup", slog.Any("error", err))
	}
	return tracker.End(err)
}

func (j *OrdersWarmupJob) warm(ctx context.Context, payload OrdersWarmupPayload) error {
	filter := procurement.OrderFilter{Status: procurement.StatusOpen}
	for page := 1; page <= payload.Pages; page++ {
		view, err := j.workflow.ListOrders(ctx, filter, page, payload.PageSize)
		if err != nil {
			return err
		}
		if !view.Pagination.HasNext() {
			break
		}
	}
	if _, err := j.workflow.ListGRNs(ctx, 1, payload.PageSize); err != nil {
		return err
	}
	return nil
}
