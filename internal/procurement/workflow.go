package procurement

import (
	"context"
	"log/slog"

	"github.com/quayside-hq/quayside/internal/shared"
)

// Workflow mediates between the cached read views and the two write-side
// components. After a successful write it invalidates exactly the reads that
// could be stale: creating an order touches only order listings, while a
// receipt touches order listings, GRN listings and that order's detail.
type Workflow struct {
	store  Store
	cache  *Cache
	logger *slog.Logger
}

// NewWorkflow constructs the controller.
func NewWorkflow(store Store, cache *Cache, logger *slog.Logger) *Workflow {
	return &Workflow{store: store, cache: cache, logger: logger}
}

// OrderListView is one page of the purchase order listing.
type OrderListView struct {
	Orders     []PurchaseOrder
	Filter     OrderFilter
	Pagination shared.Pagination
}

// GRNListView is one page of the goods-received note listing.
type GRNListView struct {
	GRNs       []GoodsReceivedNote
	Pagination shared.Pagination
}

type orderListPayload struct {
	Orders []PurchaseOrder `json:"orders"`
	Total  int             `json:"total"`
}

type grnListPayload struct {
	GRNs  []GoodsReceivedNote `json:"grns"`
	Total int                 `json:"total"`
}

// ListOrders returns one page of orders matching the filter. A page beyond
// the last is clamped to the last page rather than presented as empty.
func (w *Workflow) ListOrders(ctx context.Context, filter OrderFilter, page, pageSize int) (OrderListView, error) {
	if filter.Status == "" {
		filter.Status = StatusOpen
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if page <= 0 {
		page = 1
	}

	payload, err := w.fetchOrderPage(ctx, filter, page, pageSize)
	if err != nil {
		return OrderListView{}, err
	}
	if clamped := shared.ClampPage(page, pageSize, payload.Total); clamped != page {
		page = clamped
		if payload, err = w.fetchOrderPage(ctx, filter, page, pageSize); err != nil {
			return OrderListView{}, err
		}
	}
	return OrderListView{
		Orders:     payload.Orders,
		Filter:     filter,
		Pagination: shared.NewPagination(page, pageSize, payload.Total),
	}, nil
}

// GetOrderDetail returns the cached detail view of one order.
func (w *Workflow) GetOrderDetail(ctx context.Context, poNumber string) (OrderDetail, error) {
	var detail OrderDetail
	err := w.cache.FetchJSON(ctx, w.cache.DetailKey(poNumber), &detail, func(ctx context.Context) (interface{}, error) {
		return w.store.GetOrderDetail(ctx, poNumber)
	})
	return detail, err
}

// ListGRNs returns one page of goods-received notes, clamped like ListOrders.
func (w *Workflow) ListGRNs(ctx context.Context, page, pageSize int) (GRNListView, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if page <= 0 {
		page = 1
	}
	payload, err := w.fetchGRNPage(ctx, page, pageSize)
	if err != nil {
		return GRNListView{}, err
	}
	if clamped := shared.ClampPage(page, pageSize, payload.Total); clamped != page {
		page = clamped
		if payload, err = w.fetchGRNPage(ctx, page, pageSize); err != nil {
			return GRNListView{}, err
		}
	}
	return GRNListView{
		GRNs:       payload.GRNs,
		Pagination: shared.NewPagination(page, pageSize, payload.Total),
	}, nil
}

// Outstanding returns the cached outstanding lines of one order.
func (w *Workflow) Outstanding(ctx context.Context, poNumber string) ([]OrderLine, error) {
	var lines []OrderLine
	err := w.cache.FetchJSON(ctx, w.cache.OutstandingKey(poNumber), &lines, func(ctx context.Context) (interface{}, error) {
		return w.store.GetOutstanding(ctx, poNumber)
	})
	return lines, err
}

// SearchSuppliers passes a directory query through, enforcing the minimum
// term length without a network call.
func (w *Workflow) SearchSuppliers(ctx context.Context, term string) ([]Supplier, error) {
	if len([]rune(term)) < MinSearchTermLength {
		return []Supplier{}, nil
	}
	return w.store.SearchSuppliers(ctx, term)
}

// NewComposer returns a composer whose successful submissions invalidate the
// order listings.
func (w *Workflow) NewComposer() *Composer {
	return NewComposer(w.store, w)
}

// OpenPlanner opens a receipt planner against an order. The receive action is
// gated here: a cancelled order never exposes it, and the planner itself
// trusts its caller.
func (w *Workflow) OpenPlanner(ctx context.Context, poNumber string) (*Planner, error) {
	detail, err := w.GetOrderDetail(ctx, poNumber)
	if err != nil {
		return nil, err
	}
	if !detail.Header.Receivable() {
		return nil, ValidationError{Msg: "order is cancelled and cannot receive goods"}
	}
	planner := NewPlanner(w.store, w)
	if err := planner.Open(ctx, poNumber); err != nil {
		return nil, err
	}
	return planner, nil
}

// OrderCreated invalidates order listings only; GRN listings are untouched by
// an order creation.
func (w *Workflow) OrderCreated(ctx context.Context, poNumber string) {
	if err := w.cache.BumpOrders(ctx); err != nil {
		w.logWarn("invalidate order listings", err)
	}
}

// ReceiptRecorded invalidates order listings, GRN listings and the received
// order's detail and outstanding views. Never a blanket invalidate-all.
func (w *Workflow) ReceiptRecorded(ctx context.Context, poNumber, grnNumber string) {
	if err := w.cache.BumpOrders(ctx); err != nil {
		w.logWarn("invalidate order listings", err)
	}
	if err := w.cache.BumpGRNs(ctx); err != nil {
		w.logWarn("invalidate GRN listings", err)
	}
	if err := w.cache.DropOrder(ctx, poNumber); err != nil {
		w.logWarn("invalidate order detail", err)
	}
}

func (w *Workflow) fetchOrderPage(ctx context.Context, filter OrderFilter, page, pageSize int) (orderListPayload, error) {
	key, err := w.cache.OrderListKey(ctx, filter, page, pageSize)
	if err != nil {
		return orderListPayload{}, err
	}
	var payload orderListPayload
	err = w.cache.FetchJSON(ctx, key, &payload, func(ctx context.Context) (interface{}, error) {
		orders, total, err := w.store.ListOrders(ctx, filter, page, pageSize)
		if err != nil {
			return nil, err
		}
		return orderListPayload{Orders: orders, Total: total}, nil
	})
	return payload, err
}

func (w *Workflow) fetchGRNPage(ctx context.Context, page, pageSize int) (grnListPayload, error) {
	key, err := w.cache.GRNListKey(ctx, page, pageSize)
	if err != nil {
		return grnListPayload{}, err
	}
	var payload grnListPayload
	err = w.cache.FetchJSON(ctx, key, &payload, func(ctx context.Context) (interface{}, error) {
		grns, total, err := w.store.ListGRNs(ctx, page, pageSize)
		if err != nil {
			return nil, err
		}
		return grnListPayload{GRNs: grns, Total: total}, nil
	})
	return payload, err
}

func (w *Workflow) logWarn(msg string, err error) {
	if w.logger != nil {
		w.logger.Warn(msg, slog.Any("error", err))
	}
}
