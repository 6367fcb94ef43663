package procurement

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/quayside-hq/quayside/internal/platform/httpx"
	"github.com/quayside-hq/quayside/internal/shared"
	"github.com/quayside-hq/quayside/internal/view"
)

// Handler serves the procurement console pages.
type Handler struct {
	logger      *slog.Logger
	workflow    *Workflow
	templates   *view.Engine
	statuses    *shared.StatusManager
	pageSize    int
	searchDelay time.Duration
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, workflow *Workflow, templates *view.Engine, statuses *shared.StatusManager, pageSize int, searchDelay time.Duration) *Handler {
	if pageSize <= 0 {
		pageSize = 20
	}
	if searchDelay <= 0 {
		searchDelay = DefaultSearchDelay
	}
	return &Handler{logger: logger, workflow: workflow, templates: templates, statuses: statuses, pageSize: pageSize, searchDelay: searchDelay}
}

// MountRoutes registers procurement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/pos", h.handleListPOs)
	r.Get("/pos/new", h.showPOForm)
	r.Post("/pos/new", h.handlePOForm)
	r.Get("/pos/{number}", h.handlePODetail)
	r.Get("/pos/{number}/receive", h.showReceiveForm)
	r.Post("/pos/{number}/receive", h.handleReceiveForm)
	r.Get("/grns", h.handleListGRNs)

	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(60, time.Minute))
		r.Get("/suppliers/search", h.handleSupplierSearch)
	})
}

type orderListData struct {
	Orders     []PurchaseOrder
	Filter     OrderFilter
	Pagination shared.Pagination
	PrevURL    string
	NextURL    string
}

type grnListData struct {
	GRNs       []GoodsReceivedNote
	Pagination shared.Pagination
	PrevURL    string
	NextURL    string
}

type orderDetailData struct {
	Number     string
	NotFound   bool
	Detail     OrderDetail
	CanReceive bool
}

type orderFormData struct {
	SupplierAccount string
	SupplierName    string
	Warehouse       string
	Reference       string
	Narrative       string
	Lines           []DraftLine
	Total           float64
	Token           string
	Error           string
	Submitting      bool
	SearchDelayMS   int
}

type receiveFormData struct {
	Number      string
	Lines       []OrderLine
	Proposed    map[int]float64
	DeliveryRef string
	Token       string
	Error       string
	Submitting  bool
}

func (h *Handler) handleListPOs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	filter := OrderFilter{
		Status:  StatusFilter(q.Get("status")),
		Account: q.Get("account"),
	}
	list, err := h.workflow.ListOrders(r.Context(), filter, page, h.pageSize)
	if err != nil {
		h.logger.Error("list purchase orders", slog.Any("error", err))
		http.Error(w, "Failed to load purchase orders", http.StatusBadGateway)
		return
	}
	query := url.Values{}
	query.Set("status", string(list.Filter.Status))
	if list.Filter.Account != "" {
		query.Set("account", list.Filter.Account)
	}
	data := orderListData{
		Orders:     list.Orders,
		Filter:     list.Filter,
		Pagination: list.Pagination,
	}
	data.PrevURL, data.NextURL = pageURLs("/procurement/pos", query, list.Pagination)
	h.render(w, r, "pages/pos_list.html", "Purchase Orders", data, http.StatusOK)
}

func (h *Handler) handlePODetail(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	detail, err := h.workflow.GetOrderDetail(r.Context(), number)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.render(w, r, "pages/po_detail.html", "Purchase Order", orderDetailData{Number: number, NotFound: true}, http.StatusNotFound)
			return
		}
		h.logger.Error("load purchase order", slog.Any("error", err), slog.String("po", number))
		http.Error(w, "Failed to load purchase order", http.StatusBadGateway)
		return
	}
	data := orderDetailData{
		Number:     number,
		Detail:     detail,
		CanReceive: detail.Header.Receivable(),
	}
	h.render(w, r, "pages/po_detail.html", "Purchase Order "+number, data, http.StatusOK)
}

func (h *Handler) handleListGRNs(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	list, err := h.workflow.ListGRNs(r.Context(), page, h.pageSize)
	if err != nil {
		h.logger.Error("list goods received notes", slog.Any("error", err))
		http.Error(w, "Failed to load goods received notes", http.StatusBadGateway)
		return
	}
	data := grnListData{GRNs: list.GRNs, Pagination: list.Pagination}
	data.PrevURL, data.NextURL = pageURLs("/procurement/grns", url.Values{}, list.Pagination)
	h.render(w, r, "pages/grns_list.html", "Goods Received Notes", data, http.StatusOK)
}

func (h *Handler) showPOForm(w http.ResponseWriter, r *http.Request) {
	composer := h.workflow.NewComposer()
	composer.Begin(r.URL.Query().Get("warehouse"))
	h.renderPOForm(w, r, composer, "", http.StatusOK)
}

// handlePOForm rebuilds the draft from the posted form and dispatches on the
// pressed button: add_line and remove_line_<i> re-render the edited draft,
// submit sends it to the remote store.
func (h *Handler) handlePOForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	composer := h.composerFromForm(r)
	action := r.PostFormValue("action")

	switch {
	case action == "add_line":
		composer.AddLine()
		h.renderPOForm(w, r, composer, "", http.StatusOK)
	case len(action) > len("remove_line_") && action[:len("remove_line_")] == "remove_line_":
		index, _ := strconv.Atoi(action[len("remove_line_"):])
		if err := composer.RemoveLine(index); err != nil {
			h.renderPOForm(w, r, composer, UserSafeMessage(err), http.StatusOK)
			return
		}
		h.renderPOForm(w, r, composer, "", http.StatusOK)
	case action == "submit":
		number, err := composer.Submit(r.Context())
		if err != nil {
			status := http.StatusBadRequest
			if !IsValidation(err) {
				h.logger.Error("create purchase order", slog.Any("error", err))
				status = http.StatusBadGateway
			}
			h.renderPOForm(w, r, composer, UserSafeMessage(err), status)
			return
		}
		h.redirectWithStatus(w, r, "/procurement/pos/"+number, shared.StatusSuccess, "Purchase order "+number+" created")
	default:
		h.renderPOForm(w, r, composer, "", http.StatusOK)
	}
}

func (h *Handler) showReceiveForm(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	planner, err := h.workflow.OpenPlanner(r.Context(), number)
	if err != nil {
		h.receiveOpenError(w, r, number, err)
		return
	}
	h.renderReceiveForm(w, r, planner, "", "", http.StatusOK)
}

// handleReceiveForm reloads the server-authoritative outstanding lines, zeroes
// every proposal, applies the posted quantities (clamped) and submits.
func (h *Handler) handleReceiveForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	number := chi.URLParam(r, "number")
	planner, err := h.workflow.OpenPlanner(r.Context(), number)
	if err != nil {
		h.receiveOpenError(w, r, number, err)
		return
	}
	planner.ResumeToken(r.PostFormValue("receipt_token"))
	for _, line := range planner.Lines() {
		planner.SetReceiveQuantity(line.LineNumber, 0)
	}
	lineNumbers := r.PostForm["line_number"]
	quantities := r.PostForm["receive_qty"]
	for i := range lineNumbers {
		if i >= len(quantities) {
			break
		}
		lineNumber, _ := strconv.Atoi(lineNumbers[i])
		qty, _ := strconv.ParseFloat(quantities[i], 64)
		planner.SetReceiveQuantity(lineNumber, qty)
	}
	deliveryRef := r.PostFormValue("delivery_ref")

	grn, err := planner.Submit(r.Context(), deliveryRef)
	if err != nil {
		status := http.StatusBadRequest
		if !IsValidation(err) {
			h.logger.Error("record goods receipt", slog.Any("error", err), slog.String("po", number))
			status = http.StatusBadGateway
		}
		if planner.NeedsReload() {
			// Quantities moved under us; show the fresh server state with the
			// conflict message so the user re-plans against reality.
			status = http.StatusConflict
			if reopened, openErr := h.workflow.OpenPlanner(r.Context(), number); openErr == nil {
				planner = reopened
			}
		}
		h.renderReceiveForm(w, r, planner, deliveryRef, UserSafeMessage(err), status)
		return
	}
	h.redirectWithStatus(w, r, "/procurement/pos/"+number, shared.StatusSuccess, "Goods received note "+grn+" recorded")
}

func (h *Handler) handleSupplierSearch(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("search")
	suppliers, err := h.workflow.SearchSuppliers(r.Context(), term)
	if err != nil {
		h.logger.Error("search suppliers", slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"suppliers": suppliers})
}

// composerFromForm reconstructs the composer draft from the posted field
// arrays. The arrays are index-aligned, one entry per rendered line.
func (h *Handler) composerFromForm(r *http.Request) *Composer {
	composer := h.workflow.NewComposer()
	composer.Begin(r.PostFormValue("warehouse"))
	composer.ResumeToken(r.PostFormValue("draft_token"))
	composer.SetReference(r.PostFormValue("reference"))
	composer.SetNarrative(r.PostFormValue("narrative"))
	if account := r.PostFormValue("supplier_account"); account != "" {
		composer.SelectSupplier(Supplier{Account: account, Name: r.PostFormValue("supplier_name")})
	}

	fields := map[LineField][]string{
		FieldStockRef:        r.PostForm["stock_ref"],
		FieldSupplierRef:     r.PostForm["supplier_ref"],
		FieldDescription:     r.PostForm["description"],
		FieldQuantity:        r.PostForm["quantity"],
		FieldUnitPrice:       r.PostForm["unit_price"],
		FieldDiscountPercent: r.PostForm["discount_percent"],
		FieldWarehouse:       r.PostForm["line_warehouse"],
	}
	count := len(fields[FieldDescription])
	for i := 1; i < count; i++ {
		composer.AddLine()
	}
	for i := 0; i < count; i++ {
		for field, values := range fields {
			if i < len(values) {
				_ = composer.UpdateLine(i, field, values[i])
			}
		}
	}
	return composer
}

func (h *Handler) renderPOForm(w http.ResponseWriter, r *http.Request, composer *Composer, errMsg string, status int) {
	data := orderFormData{
		Warehouse:     composer.Warehouse(),
		Lines:         composer.Lines(),
		Total:         composer.Total(),
		Token:         composer.Token(),
		Error:         errMsg,
		Submitting:    composer.Submitting(),
		SearchDelayMS: int(h.searchDelay / time.Millisecond),
	}
	if supplier := composer.Supplier(); supplier != nil {
		data.SupplierAccount = supplier.Account
		data.SupplierName = supplier.Name
	}
	data.Reference = r.PostFormValue("reference")
	data.Narrative = r.PostFormValue("narrative")
	h.render(w, r, "pages/po_form.html", "New Purchase Order", data, status)
}

func (h *Handler) renderReceiveForm(w http.ResponseWriter, r *http.Request, planner *Planner, deliveryRef, errMsg string, status int) {
	lines := planner.Lines()
	proposed := make(map[int]float64, len(lines))
	for _, line := range lines {
		proposed[line.LineNumber] = planner.Proposed(line.LineNumber)
	}
	data := receiveFormData{
		Number:      planner.OrderNumber(),
		Lines:       lines,
		Proposed:    proposed,
		DeliveryRef: deliveryRef,
		Token:       planner.Token(),
		Error:       errMsg,
		Submitting:  planner.Submitting(),
	}
	h.render(w, r, "pages/receive_form.html", "Receive Goods", data, status)
}

func (h *Handler) receiveOpenError(w http.ResponseWriter, r *http.Request, number string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		h.render(w, r, "pages/po_detail.html", "Purchase Order", orderDetailData{Number: number, NotFound: true}, http.StatusNotFound)
	case IsValidation(err):
		h.redirectWithStatus(w, r, "/procurement/pos/"+number, shared.StatusError, UserSafeMessage(err))
	default:
		h.logger.Error("open receipt planner", slog.Any("error", err), slog.String("po", number))
		http.Error(w, "Failed to load outstanding lines", http.StatusBadGateway)
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data any, status int) {
	flash, err := h.statuses.Pop(r.Context(), r)
	if err != nil {
		h.logger.Warn("pop status", slog.Any("error", err))
	}
	viewData := view.TemplateData{Title: title, Status: flash, CurrentPath: r.URL.Path, Data: data}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func (h *Handler) redirectWithStatus(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if err := h.statuses.Push(r.Context(), w, r, shared.Status{Kind: kind, Message: message}); err != nil {
		h.logger.Warn("push status", slog.Any("error", err))
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func pageURLs(base string, query url.Values, p shared.Pagination) (prev, next string) {
	if p.HasPrev() {
		q := cloneValues(query)
		q.Set("page", strconv.Itoa(p.Page-1))
		prev = base + "?" + q.Encode()
	}
	if p.HasNext() {
		q := cloneValues(query)
		q.Set("page", strconv.Itoa(p.Page+1))
		next = base + "?" + q.Encode()
	}
	return prev, next
}

func cloneValues(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for k, v := range values {
		out[k] = append([]string(nil), v...)
	}
	return out
}
