package procurement

import "context"

// OrderFilter narrows order listings by status and supplier account.
type OrderFilter struct {
	Status  StatusFilter
	Account string
}

// CreateOrderLine is one line of an order submission. Raw numbers are sent;
// display formatting never reaches the payload.
type CreateOrderLine struct {
	StockRef        string  `json:"stock_ref"`
	LedgerAccount   string  `json:"ledger_account"`
	SupplierRef     string  `json:"supplier_ref"`
	Description     string  `json:"description" validate:"required"`
	Quantity        float64 `json:"quantity" validate:"gt=0"`
	UnitPrice       float64 `json:"unit_price" validate:"gte=0"`
	DiscountPercent float64 `json:"discount_percent" validate:"gte=0,lte=100"`
	Warehouse       string  `json:"warehouse"`
}

// CreateOrderInput is the payload for a new purchase order.
type CreateOrderInput struct {
	SupplierAccount string            `json:"supplier_account" validate:"required"`
	Warehouse       string            `json:"warehouse"`
	Reference       string            `json:"reference"`
	Narrative       string            `json:"narrative"`
	Lines           []CreateOrderLine `json:"lines" validate:"min=1,dive"`

	// IdempotencyKey deduplicates retries of the same user intent server-side.
	// Retrying a failed submission reuses the key; a fresh draft mints a new one.
	IdempotencyKey string `json:"-"`
}

// ReceiptLine proposes a received quantity for one order line.
type ReceiptLine struct {
	LineNumber int     `json:"line_number"`
	Quantity   float64 `json:"quantity" validate:"gt=0"`
}

// CreateReceiptInput is the payload for a goods-received note.
type CreateReceiptInput struct {
	DeliveryRef string        `json:"delivery_ref"`
	Lines       []ReceiptLine `json:"lines" validate:"min=1,dive"`

	IdempotencyKey string `json:"-"`
}

// Store describes the remote system of record. All reads return
// eventually-consistent snapshots; nothing is locked between a read and a
// later write against the same order.
type Store interface {
	ListOrders(ctx context.Context, filter OrderFilter, page, pageSize int) ([]PurchaseOrder, int, error)
	GetOrderDetail(ctx context.Context, poNumber string) (OrderDetail, error)
	ListGRNs(ctx context.Context, page, pageSize int) ([]GoodsReceivedNote, int, error)
	GetOutstanding(ctx context.Context, poNumber string) ([]OrderLine, error)
	SearchSuppliers(ctx context.Context, term string) ([]Supplier, error)
	CreateOrder(ctx context.Context, input CreateOrderInput) (string, error)
	CreateReceipt(ctx context.Context, poNumber string, input CreateReceiptInput) (string, error)
}
