package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOrdersWarmup is the task type for priming the procurement caches.
	TaskOrdersWarmup = "procurement:orders_warmup"
)

// OrdersWarmupPayload controls how many listing pages the warmup primes.
type OrdersWarmupPayload struct {
	Pages    int `json:"pages"`
	PageSize int `json:"page_size"`
}

// NewOrdersWarmupTask constructs an Asynq task.
func NewOrdersWarmupTask(pages, pageSize int) (*asynq.Task, error) {
	data, err := json.Marshal(OrdersWarmupPayload{Pages: pages, PageSize: pageSize})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrdersWarmup, data), nil
}
