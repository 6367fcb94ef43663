package procurement

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
)

// Planner plans a goods receipt against one purchase order. It loads the
// server-authoritative outstanding quantities and clamps every proposed
// receive quantity into [0, outstanding], so a submission can never exceed
// what remains outstanding at load time.
type Planner struct {
	store  Store
	notify Events

	state       State
	poNumber    string
	lines       []OrderLine
	proposed    map[int]float64
	token       string
	grnNumber   string
	errMsg      string
	needsReload bool
}

// NewPlanner constructs an idle planner.
func NewPlanner(store Store, notify Events) *Planner {
	return &Planner{store: store, notify: notify, state: StateIdle}
}

// Open fetches the outstanding lines for an order and seeds every proposed
// receive quantity to the full outstanding amount. On failure the planner
// never reaches Ready.
func (p *Planner) Open(ctx context.Context, poNumber string) error {
	p.state = StateLoading
	p.poNumber = poNumber
	p.grnNumber = ""
	p.errMsg = ""
	p.needsReload = false

	lines, err := p.store.GetOutstanding(ctx, poNumber)
	if err != nil {
		p.state = StateError
		p.errMsg = "failed to load outstanding lines"
		return err
	}
	p.lines = lines
	p.proposed = make(map[int]float64, len(lines))
	for _, line := range lines {
		p.proposed[line.LineNumber] = line.QuantityOutstanding
	}
	p.token = uuid.NewString()
	p.state = StateReady
	return nil
}

// State returns the current lifecycle state.
func (p *Planner) State() State { return p.state }

// Submitting reports whether a submission is in flight.
func (p *Planner) Submitting() bool { return p.state == StateSubmitting }

// OrderNumber returns the order the planner is open against.
func (p *Planner) OrderNumber() string { return p.poNumber }

// Lines returns a copy of the outstanding lines loaded by Open.
func (p *Planner) Lines() []OrderLine {
	return append([]OrderLine(nil), p.lines...)
}

// Proposed returns the currently proposed receive quantity for a line.
func (p *Planner) Proposed(lineNumber int) float64 {
	return p.proposed[lineNumber]
}

// SetReceiveQuantity clamps value into [0, outstanding] for the line. Values
// outside the range are silently clamped, never rejected; unknown line
// numbers are ignored.
func (p *Planner) SetReceiveQuantity(lineNumber int, value float64) {
	outstanding, ok := p.outstandingFor(lineNumber)
	if !ok {
		return
	}
	if value < 0 {
		value = 0
	}
	if value > outstanding {
		value = outstanding
	}
	p.proposed[lineNumber] = value
}

// Submit sends a goods-received note for every line with a proposed quantity
// above zero; zero-quantity lines are omitted, not sent as zero. An all-zero
// plan fails with "nothing to receive" before any network call.
func (p *Planner) Submit(ctx context.Context, deliveryRef string) (string, error) {
	if p.state == StateSubmitting {
		return "", ValidationError{Msg: "submission already in progress"}
	}
	if p.state != StateReady && p.state != StateError {
		return "", ValidationError{Msg: "no outstanding lines loaded"}
	}

	input := CreateReceiptInput{DeliveryRef: deliveryRef, IdempotencyKey: p.token}
	for _, line := range p.lines {
		if qty := p.proposed[line.LineNumber]; qty > 0 {
			input.Lines = append(input.Lines, ReceiptLine{LineNumber: line.LineNumber, Quantity: qty})
		}
	}
	if len(input.Lines) == 0 {
		return "", ValidationError{Msg: "nothing to receive"}
	}
	sort.Slice(input.Lines, func(i, j int) bool {
		return input.Lines[i].LineNumber < input.Lines[j].LineNumber
	})

	p.state = StateSubmitting
	grn, err := p.store.CreateReceipt(ctx, p.poNumber, input)
	if err != nil {
		p.state = StateError
		if errors.Is(err, ErrStaleQuantity) {
			p.needsReload = true
			p.errMsg = UserSafeMessage(ErrStaleQuantity)
		} else {
			p.errMsg = UserSafeMessage(err)
		}
		return "", err
	}
	p.state = StateSuccess
	p.grnNumber = grn
	if p.notify != nil {
		p.notify.ReceiptRecorded(ctx, p.poNumber, grn)
	}
	return grn, nil
}

// Token returns the idempotency token minted for the current plan.
func (p *Planner) Token() string { return p.token }

// ResumeToken adopts a previously minted token so a resubmitted plan reuses
// it instead of minting a fresh one.
func (p *Planner) ResumeToken(token string) {
	if token != "" {
		p.token = token
	}
}

// GRNNumber returns the store-assigned note number after a successful submit.
func (p *Planner) GRNNumber() string { return p.grnNumber }

// ErrorMessage returns the inline message for the last failure.
func (p *Planner) ErrorMessage() string { return p.errMsg }

// NeedsReload reports whether the last failure was a stale-quantity conflict
// requiring a fresh Open rather than a blind retry.
func (p *Planner) NeedsReload() bool { return p.needsReload }

func (p *Planner) outstandingFor(lineNumber int) (float64, bool) {
	for _, line := range p.lines {
		if line.LineNumber == lineNumber {
			return line.QuantityOutstanding, true
		}
	}
	return 0, false
}
