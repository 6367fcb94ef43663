package procurement

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// State tracks a write-side component through its lifecycle.
type State string

const (
	StateIdle       State = "IDLE"
	StateEditing    State = "EDITING"
	StateLoading    State = "LOADING"
	StateReady      State = "READY"
	StateSubmitting State = "SUBMITTING"
	StateSuccess    State = "SUCCESS"
	StateError      State = "ERROR"
)

// LineField names a mutable draft line field.
type LineField string

const (
	FieldStockRef        LineField = "stock_ref"
	FieldSupplierRef     LineField = "supplier_ref"
	FieldDescription     LineField = "description"
	FieldQuantity        LineField = "quantity"
	FieldUnitPrice       LineField = "unit_price"
	FieldDiscountPercent LineField = "discount_percent"
	FieldWarehouse       LineField = "warehouse"
)

// Composer builds a new purchase order from a chosen supplier and a mutable
// list of draft lines. The draft always holds at least one line.
type Composer struct {
	store    Store
	notify   Events
	validate *validator.Validate

	state       State
	supplier    *Supplier
	reference   string
	narrative   string
	warehouse   string
	lines       []DraftLine
	token       string
	orderNumber string
	errMsg      string
}

// NewComposer constructs an idle composer.
func NewComposer(store Store, notify Events) *Composer {
	return &Composer{
		store:    store,
		notify:   notify,
		validate: validator.New(),
		state:    StateIdle,
	}
}

// Begin starts a fresh draft with exactly one blank line and mints a new
// idempotency token for this user intent.
func (c *Composer) Begin(warehouse string) {
	c.state = StateEditing
	c.supplier = nil
	c.reference = ""
	c.narrative = ""
	c.warehouse = warehouse
	c.lines = []DraftLine{{Warehouse: warehouse}}
	c.token = uuid.NewString()
	c.orderNumber = ""
	c.errMsg = ""
}

// State returns the current lifecycle state.
func (c *Composer) State() State { return c.state }

// Submitting reports whether a submission is in flight; the presentation
// layer disables the submit control while true.
func (c *Composer) Submitting() bool { return c.state == StateSubmitting }

// SelectSupplier attaches the supplier the order will be raised against.
func (c *Composer) SelectSupplier(s Supplier) {
	c.supplier = &s
}

// Supplier returns the currently selected supplier, or nil.
func (c *Composer) Supplier() *Supplier { return c.supplier }

// SetReference records the free-text order reference.
func (c *Composer) SetReference(ref string) { c.reference = ref }

// SetNarrative records the free-text narrative.
func (c *Composer) SetNarrative(text string) { c.narrative = text }

// Warehouse returns the order-level warehouse code.
func (c *Composer) Warehouse() string { return c.warehouse }

// Lines returns a copy of the current draft lines.
func (c *Composer) Lines() []DraftLine {
	return append([]DraftLine(nil), c.lines...)
}

// AddLine appends a blank draft line inheriting the order's warehouse. There
// is no upper bound on line count.
func (c *Composer) AddLine() {
	c.lines = append(c.lines, DraftLine{Warehouse: c.warehouse})
}

// RemoveLine removes a draft line. At least one line must always exist, so
// removing the only remaining line fails.
func (c *Composer) RemoveLine(index int) error {
	if index < 0 || index >= len(c.lines) {
		return ValidationError{Msg: "no such line"}
	}
	if len(c.lines) == 1 {
		return ValidationError{Msg: "an order must keep at least one line"}
	}
	c.lines = append(c.lines[:index], c.lines[index+1:]...)
	return nil
}

// UpdateLine replaces one field of one draft line; other lines are untouched.
// Numeric fields accept decimal strings.
func (c *Composer) UpdateLine(index int, field LineField, value string) error {
	if index < 0 || index >= len(c.lines) {
		return ValidationError{Msg: "no such line"}
	}
	line := &c.lines[index]
	switch field {
	case FieldStockRef:
		line.StockRef = value
	case FieldSupplierRef:
		line.SupplierRef = value
	case FieldDescription:
		line.Description = value
	case FieldWarehouse:
		line.Warehouse = value
	case FieldQuantity, FieldUnitPrice, FieldDiscountPercent:
		parsed, err := parseAmount(value)
		if err != nil {
			return ValidationError{Msg: "not a number: " + value}
		}
		switch field {
		case FieldQuantity:
			line.Quantity = parsed
		case FieldUnitPrice:
			line.UnitPrice = parsed
		case FieldDiscountPercent:
			line.DiscountPercent = parsed
		}
	default:
		return ValidationError{Msg: "unknown field " + string(field)}
	}
	return nil
}

// Total sums the discounted value of every current draft line. Incomplete
// lines contribute whatever their numeric quantity and price yield.
func (c *Composer) Total() float64 {
	var total float64
	for _, line := range c.lines {
		total += line.Value()
	}
	return total
}

// Submit sends the draft to the remote store. Lines without a description or
// a positive quantity are silently excluded; preconditions that leave nothing
// to send fail with a ValidationError before any network call. A retry after
// a failure re-sends the same payload under the same idempotency token.
func (c *Composer) Submit(ctx context.Context) (string, error) {
	if c.state == StateSubmitting {
		return "", ValidationError{Msg: "submission already in progress"}
	}
	if c.state != StateEditing && c.state != StateError {
		return "", ValidationError{Msg: "nothing to submit"}
	}
	if c.supplier == nil {
		return "", ValidationError{Msg: "supplier required"}
	}
	input := CreateOrderInput{
		SupplierAccount: c.supplier.Account,
		Warehouse:       c.warehouse,
		Reference:       c.reference,
		Narrative:       c.narrative,
		IdempotencyKey:  c.token,
	}
	for _, line := range c.lines {
		if strings.TrimSpace(line.Description) == "" || line.Quantity <= 0 {
			continue
		}
		input.Lines = append(input.Lines, CreateOrderLine{
			StockRef:        line.StockRef,
			SupplierRef:     line.SupplierRef,
			Description:     line.Description,
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
			DiscountPercent: line.DiscountPercent,
			Warehouse:       line.Warehouse,
		})
	}
	if len(input.Lines) == 0 {
		return "", ValidationError{Msg: "no valid lines"}
	}
	if err := c.validate.Struct(input); err != nil {
		return "", ValidationError{Msg: "invalid order values"}
	}

	c.state = StateSubmitting
	number, err := c.store.CreateOrder(ctx, input)
	if err != nil {
		c.state = StateError
		c.errMsg = UserSafeMessage(err)
		return "", err
	}
	c.state = StateSuccess
	c.orderNumber = number
	if c.notify != nil {
		c.notify.OrderCreated(ctx, number)
	}
	return number, nil
}

// Token returns the idempotency token minted for the current draft.
func (c *Composer) Token() string { return c.token }

// ResumeToken adopts a previously minted token so a resubmitted draft reuses
// it instead of minting a fresh one.
func (c *Composer) ResumeToken(token string) {
	if token != "" {
		c.token = token
	}
}

// OrderNumber returns the store-assigned number after a successful submit.
func (c *Composer) OrderNumber() string { return c.orderNumber }

// ErrorMessage returns the inline message for the last failure.
func (c *Composer) ErrorMessage() string { return c.errMsg }

// Discard drops the working draft and returns to idle.
func (c *Composer) Discard() {
	c.state = StateIdle
	c.supplier = nil
	c.lines = nil
	c.token = ""
	c.errMsg = ""
}

func parseAmount(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	return strconv.ParseFloat(value, 64)
}
