package procurement

import "context"

// Events receives write-side notifications so dependent read views can be
// invalidated. The workflow controller is the usual implementation.
type Events interface {
	// OrderCreated fires after a purchase order was accepted by the store.
	OrderCreated(ctx context.Context, poNumber string)
	// ReceiptRecorded fires after a goods-received note was accepted.
	ReceiptRecorded(ctx context.Context, poNumber, grnNumber string)
}
