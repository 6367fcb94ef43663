package procurement

import (
	"errors"
	"fmt"
	"time"
)

// StatusFilter narrows order listings. "open" means not cancelled; printed or
// unprinted orders both count as open.
type StatusFilter string

const (
	StatusOpen      StatusFilter = "open"
	StatusAll       StatusFilter = "all"
	StatusCancelled StatusFilter = "cancelled"
)

// PurchaseOrder mirrors the remote store's order header. The order number is
// assigned by the store and immutable; the console never mutates an order
// locally, it only reflects server state.
type PurchaseOrder struct {
	Number          string    `json:"po_number"`
	SupplierAccount string    `json:"supplier_account"`
	SupplierName    string    `json:"supplier_name"`
	TotalValue      float64   `json:"total_value"`
	Discount        float64   `json:"discount"`
	Warehouse       string    `json:"warehouse"`
	Currency        string    `json:"currency"`
	CreatedAt       time.Time `json:"created_at"`
	Reference       string    `json:"reference"`
	IsCancelled     bool      `json:"is_cancelled"`
	IsPrinted       bool      `json:"is_printed"`
}

// Receivable reports whether further goods may be received against the order.
// Cancelled orders are never receivable.
func (po PurchaseOrder) Receivable() bool {
	return !po.IsCancelled
}

// OrderLine is one entry within a purchase order, ordinal by line number.
// StockRef is blank for non-stock lines, in which case LedgerAccount
// substitutes. The three quantity-tracking fields are populated only when the
// line was fetched in an outstanding context; they are server-authoritative
// and never derived client-side.
type OrderLine struct {
	LineNumber      int        `json:"line_number"`
	StockRef        string     `json:"stock_ref"`
	LedgerAccount   string     `json:"ledger_account"`
	SupplierRef     string     `json:"supplier_ref"`
	Description     string     `json:"description"`
	Quantity        float64    `json:"quantity"`
	UnitPrice       float64    `json:"unit_price"`
	DiscountPercent float64    `json:"discount_percent"`
	Warehouse       string     `json:"warehouse"`
	RequiredBy      *time.Time `json:"required_by,omitempty"`
	JobNumber       string     `json:"job_number,omitempty"`

	QuantityOrdered     float64 `json:"quantity_ordered"`
	QuantityReceived    float64 `json:"quantity_received"`
	QuantityOutstanding float64 `json:"quantity_outstanding"`
}

// Value computes the discounted line value.
func (l OrderLine) Value() float64 {
	return l.Quantity * l.UnitPrice * (1 - l.DiscountPercent/100)
}

// DeliveryDetails carries the delivery fields returned with an order detail.
type DeliveryDetails struct {
	Name     string `json:"delivery_name"`
	Address  string `json:"delivery_address"`
	Postcode string `json:"delivery_postcode"`
}

// OrderDetail is the full view of one order.
type OrderDetail struct {
	Header   PurchaseOrder   `json:"header"`
	Delivery DeliveryDetails `json:"delivery"`
	Lines    []OrderLine     `json:"lines"`
}

// GoodsReceivedNote records a (possibly partial) delivery against exactly one
// purchase order. Immutable from the console's perspective once created.
type GoodsReceivedNote struct {
	Number         string    `json:"grn_number"`
	OrderNumber    string    `json:"po_number"`
	ReceivedAt     time.Time `json:"received_at"`
	DeliveryRef    string    `json:"delivery_ref"`
	DeliveryCharge float64   `json:"delivery_charge"`
	DeliveryVAT    float64   `json:"delivery_vat"`
	ReceivedBy     string    `json:"received_by"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// Supplier is read-only directory data used to attach a supplier to a new
// order.
type Supplier struct {
	Account     string `json:"account"`
	Name        string `json:"name"`
	AddressLine string `json:"address_line"`
	Postcode    string `json:"postcode"`
	Phone       string `json:"phone"`
}

// DraftLine is an in-memory, not-yet-persisted order line. It exists only
// inside the composer's working set and is discarded on cancel or after a
// successful submission.
type DraftLine struct {
	StockRef        string
	SupplierRef     string
	Description     string
	Quantity        float64
	UnitPrice       float64
	DiscountPercent float64
	Warehouse       string
}

// Value computes the discounted draft line value. Incomplete lines still
// contribute whatever their numeric quantity and price yield.
func (l DraftLine) Value() float64 {
	return l.Quantity * l.UnitPrice * (1 - l.DiscountPercent/100)
}

var (
	// ErrNotFound indicates the requested order or GRN does not exist.
	ErrNotFound = errors.New("procurement: not found")
	// ErrStaleQuantity indicates outstanding quantities changed between load
	// and submit, typically because another client received the same stock.
	ErrStaleQuantity = errors.New("procurement: outstanding quantity changed")
)

// ValidationError is a client-side precondition failure. It is raised before
// any network call and is always recoverable by correcting input.
type ValidationError struct {
	Msg string
}

func (e ValidationError) Error() string {
	return "procurement: " + e.Msg
}

// IsValidation reports whether err is a client-side validation failure.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// RemoteError wraps a failure reported by the remote store, carrying the
// user-facing detail string from its payload when one was supplied.
type RemoteError struct {
	StatusCode int
	Detail     string
}

const genericRemoteMessage = "the remote store could not process the request"

func (e RemoteError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("procurement: remote failure (status %d)", e.StatusCode)
	}
	return "procurement: " + e.Detail
}

// UserSafeMessage extracts a message suitable for inline display. Validation
// messages and remote detail strings pass through; everything else collapses
// to a generic fallback.
func UserSafeMessage(err error) string {
	var ve ValidationError
	if errors.As(err, &ve) {
		return ve.Msg
	}
	var re RemoteError
	if errors.As(err, &re) {
		if re.Detail != "" {
			return re.Detail
		}
		return genericRemoteMessage
	}
	switch {
	case errors.Is(err, ErrStaleQuantity):
		return "outstanding quantities changed, reload and try again"
	case errors.Is(err, ErrNotFound):
		return "not found"
	case err != nil:
		return genericRemoteMessage
	}
	return ""
}
