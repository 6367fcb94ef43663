package view_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quayside-hq/quayside/internal/money"
	"github.com/quayside-hq/quayside/internal/procurement"
	"github.com/quayside-hq/quayside/internal/shared"
	"github.com/quayside-hq/quayside/internal/view"
)

func newEngine(t *testing.T) *view.Engine {
	t.Helper()
	formatter, err := money.New("en-GB", "GBP")
	require.NoError(t, err)
	engine, err := view.NewEngine(formatter)
	require.NoError(t, err)
	return engine
}

func TestRenderOrderListing(t *testing.T) {
	engine := newEngine(t)

	data := struct {
		Orders     []procurement.PurchaseOrder
		Filter     procurement.OrderFilter
		Pagination shared.Pagination
		PrevURL    string
		NextURL    string
	}{
		Orders: []procurement.PurchaseOrder{
			{
				Number:          "PO-0001",
				SupplierAccount: "SUP001",
				SupplierName:    "Acme Industrial",
				TotalValue:      27,
				Warehouse:       "MAIN",
				CreatedAt:       time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC),
			},
		},
		Filter:     procurement.OrderFilter{Status: procurement.StatusOpen},
		Pagination: shared.NewPagination(2, 50, 120),
		PrevURL:    "/procurement/pos?page=1&status=open",
		NextURL:    "/procurement/pos?page=3&status=open",
	}

	rec := httptest.NewRecorder()
	err := engine.Render(rec, "pages/pos_list.html", view.TemplateData{
		Title:       "Purchase Orders",
		CurrentPath: "/procurement/pos",
		Data:        data,
	})
	require.NoError(t, err)

	body := rec.Body.String()
	require.Contains(t, body, "PO-0001")
	require.Contains(t, body, "£27.00", "amounts render through the money formatter")
	require.Contains(t, body, "05 Mar 2026")
	require.Contains(t, body, "Page 2 of 3")
	require.Contains(t, body, "/procurement/pos?page=3")
}

func TestRenderOrderDetailNotFound(t *testing.T) {
	engine := newEngine(t)

	rec := httptest.NewRecorder()
	err := engine.Render(rec, "pages/po_detail.html", view.TemplateData{
		Title: "Purchase Order",
		Data: struct {
			Number     string
			NotFound   bool
			Detail     procurement.OrderDetail
			CanReceive bool
		}{Number: "PO-MISSING", NotFound: true},
	})
	require.NoError(t, err)
	require.Contains(t, rec.Body.String(), "No purchase order with number PO-MISSING exists")
}

func TestRenderStatusBanner(t *testing.T) {
	engine := newEngine(t)

	rec := httptest.NewRecorder()
	err := engine.Render(rec, "pages/grns_list.html", view.TemplateData{
		Title:  "Goods Received Notes",
		Status: &shared.Status{Kind: shared.StatusSuccess, Message: "Goods received note GRN-0001 recorded"},
		Data: struct {
			GRNs       []procurement.GoodsReceivedNote
			Pagination shared.Pagination
			PrevURL    string
			NextURL    string
		}{},
	})
	require.NoError(t, err)

	body := rec.Body.String()
	require.Contains(t, body, "status-success")
	require.Contains(t, body, "Goods received note GRN-0001 recorded")
	require.Contains(t, body, "No goods received notes yet")
}
