package procurement

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	_ "github.com/quayside-hq/quayside/testing"
)

func newWorkflowFixture(t *testing.T) (*Workflow, *memoryStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	store := newMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewWorkflow(store, NewCache(client, 5*time.Minute), logger), store
}

func TestWorkflowListOrdersServesFromCache(t *testing.T) {
	ctx := context.Background()
	workflow, store := newWorkflowFixture(t)
	seedOutstandingOrder(store, "PO-1000", 10)

	first, err := workflow.ListOrders(ctx, OrderFilter{}, 1, 20)
	require.NoError(t, err)
	require.Len(t, first.Orders, 1)
	require.Equal(t, StatusOpen, first.Filter.Status, "empty filter defaults to open")

	second, err := workflow.ListOrders(ctx, OrderFilter{}, 1, 20)
	require.NoError(t, err)
	require.Len(t, second.Orders, 1)
	require.Equal(t, 1, store.callCount("ListOrders"), "second read must come from cache")
}

func TestWorkflowOrderCreationInvalidatesOnlyOrderListings(t *testing.T) {
	ctx := context.Background()
	workflow, store := newWorkflowFixture(t)
	seedOutstandingOrder(store, "PO-1000", 10)

	_, err := workflow.ListOrders(ctx, OrderFilter{}, 1, 20)
	require.NoError(t, err)
	_, err = workflow.ListGRNs(ctx, 1, 20)
	require.NoError(t, err)
	require.Equal(t, 1, store.callCount("ListOrders"))
	require.Equal(t, 1, store.callCount("ListGRNs"))

	composer := workflow.NewComposer()
	composer.Begin("MAIN")
	composer.SelectSupplier(Supplier{Account: "SUP001"})
	require.NoError(t, composer.UpdateLine(0, FieldDescription, "Gadget"))
	require.NoError(t, composer.UpdateLine(0, FieldQuantity, "2"))
	require.NoError(t, composer.UpdateLine(0, FieldUnitPrice, "13.50"))
	_, err = composer.Submit(ctx)
	require.NoError(t, err)

	_, err = workflow.ListOrders(ctx, OrderFilter{}, 1, 20)
	require.NoError(t, err)
	require.Equal(t, 2, store.callCount("ListOrders"), "order listings must be refetched")

	_, err = workflow.ListGRNs(ctx, 1, 20)
	require.NoError(t, err)
	require.Equal(t, 1, store.callCount("ListGRNs"), "GRN listings must stay cached")
}

func TestWorkflowReceiptInvalidatesOrderViews(t *testing.T) {
	ctx := context.Background()
	workflow, store := newWorkflowFixture(t)
	seedOutstandingOrder(store, "PO-1000", 10)

	_, err := workflow.ListOrders(ctx, OrderFilter{}, 1, 20)
	require.NoError(t, err)
	_, err = workflow.ListGRNs(ctx, 1, 20)
	require.NoError(t, err)
	_, err = workflow.GetOrderDetail(ctx, "PO-1000")
	require.NoError(t, err)
	_, err = workflow.Outstanding(ctx, "PO-1000")
	require.NoError(t, err)
	require.Equal(t, 1, store.callCount("GetOrderDetail"))
	require.Equal(t, 1, store.callCount("GetOutstanding"))

	planner, err := workflow.OpenPlanner(ctx, "PO-1000")
	require.NoError(t, err)
	planner.SetReceiveQuantity(1, 4)
	grn, err := planner.Submit(ctx, "DN-1")
	require.NoError(t, err)
	require.NotEmpty(t, grn)

	// Every view touched by the receipt is refetched on next read.
	_, err = workflow.ListOrders(ctx, OrderFilter{}, 1, 20)
	require.NoError(t, err)
	require.Equal(t, 2, store.callCount("ListOrders"))

	_, err = workflow.ListGRNs(ctx, 1, 20)
	require.NoError(t, err)
	require.Equal(t, 2, store.callCount("ListGRNs"))

	_, err = workflow.GetOrderDetail(ctx, "PO-1000")
	require.NoError(t, err)
	require.Equal(t, 2, store.callCount("GetOrderDetail"), "cached detail must be dropped")

	outstanding, err := workflow.Outstanding(ctx, "PO-1000")
	require.NoError(t, err)
	require.InDelta(t, 6, outstanding[0].QuantityOutstanding, 0.0001)
}

func TestWorkflowPaginationClampsBeyondLastPage(t *testing.T) {
	ctx := context.Background()
	workflow, store := newWorkflowFixture(t)
	for i := 0; i < 120; i++ {
		seedOutstandingOrder(store, fmt.Sprintf("PO-%04d", i+1), 1)
	}

	view, err := workflow.ListOrders(ctx, OrderFilter{}, 1, 50)
	require.NoError(t, err)
	require.Equal(t, 3, view.Pagination.TotalPages)
	require.Len(t, view.Orders, 50)

	clamped, err := workflow.ListOrders(ctx, OrderFilter{}, 7, 50)
	require.NoError(t, err)
	require.Equal(t, 3, clamped.Pagination.Page, "a page beyond the last folds to the last")
	require.Len(t, clamped.Orders, 20)
}

func TestWorkflowOpenPlannerRejectsCancelledOrder(t *testing.T) {
	ctx := context.Background()
	workflow, store := newWorkflowFixture(t)
	store.seedOrder(PurchaseOrder{Number: "PO-9000", IsCancelled: true}, []OrderLine{
		{LineNumber: 1, Description: "Widget", QuantityOrdered: 5, QuantityOutstanding: 5},
	})

	_, err := workflow.OpenPlanner(ctx, "PO-9000")
	require.Error(t, err)
	require.True(t, IsValidation(err))
	require.Equal(t, 0, store.callCount("GetOutstanding"), "gating happens before the outstanding fetch")
}

func TestWorkflowSearchSuppliersEnforcesMinLength(t *testing.T) {
	ctx := context.Background()
	workflow, store := newWorkflowFixture(t)
	store.suppliers = []Supplier{{Account: "SUP001", Name: "Acme Industrial"}}

	suppliers, err := workflow.SearchSuppliers(ctx, "a")
	require.NoError(t, err)
	require.Empty(t, suppliers)
	require.Equal(t, 0, store.callCount("SearchSuppliers"))

	suppliers, err = workflow.SearchSuppliers(ctx, "ac")
	require.NoError(t, err)
	require.Len(t, suppliers, 1)
}

func TestWorkflowEndToEndOrderAndReceipt(t *testing.T) {
	ctx := context.Background()
	workflow, store := newWorkflowFixture(t)

	composer := workflow.NewComposer()
	composer.Begin("MAIN")
	composer.SelectSupplier(Supplier{Account: "SUP001", Name: "Acme Industrial"})
	require.NoError(t, composer.UpdateLine(0, FieldDescription, "Widget"))
	require.NoError(t, composer.UpdateLine(0, FieldQuantity, "10"))
	require.NoError(t, composer.UpdateLine(0, FieldUnitPrice, "5"))
	require.InDelta(t, 50.00, composer.Total(), 0.0001)

	number, err := composer.Submit(ctx)
	require.NoError(t, err)

	detail, err := workflow.GetOrderDetail(ctx, number)
	require.NoError(t, err)
	require.InDelta(t, 50.00, detail.Header.TotalValue, 0.0001)

	planner, err := workflow.OpenPlanner(ctx, number)
	require.NoError(t, err)
	require.InDelta(t, 10, planner.Proposed(1), 0.0001)
	planner.SetReceiveQuantity(1, 4)
	_, err = planner.Submit(ctx, "DN-1")
	require.NoError(t, err)

	outstanding, err := workflow.Outstanding(ctx, number)
	require.NoError(t, err)
	require.InDelta(t, 4, outstanding[0].QuantityReceived, 0.0001)
	require.InDelta(t, 6, outstanding[0].QuantityOutstanding, 0.0001)

	planner, err = workflow.OpenPlanner(ctx, number)
	require.NoError(t, err)
	require.InDelta(t, 6, planner.Proposed(1), 0.0001)
	_, err = planner.Submit(ctx, "DN-2")
	require.NoError(t, err)

	outstanding, err = workflow.Outstanding(ctx, number)
	require.NoError(t, err)
	require.Empty(t, outstanding)

	grns, err := workflow.ListGRNs(ctx, 1, 20)
	require.NoError(t, err)
	require.Len(t, grns.GRNs, 2)
	require.Equal(t, number, grns.GRNs[0].OrderNumber)
}
