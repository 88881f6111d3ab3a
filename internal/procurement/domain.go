package procurement

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// POStatus enumerates the purchase order lifecycle.
type POStatus string

const (
	POStatusDraft             POStatus = "DRAFT"
	POStatusPendingApproval   POStatus = "PENDING_APPROVAL"
	POStatusApproved          POStatus = "APPROVED"
	POStatusSent              POStatus = "SENT"
	POStatusPartiallyReceived POStatus = "PARTIALLY_RECEIVED"
	POStatusReceived          POStatus = "RECEIVED"
	POStatusCancelled         POStatus = "CANCELLED"
)

// PurchaseOrder is a commitment to buy a set of items from one supplier for
// one outlet. Items become immutable once the order leaves DRAFT or
// PENDING_APPROVAL, except for ReceivedQty which only goods receiving moves.
type PurchaseOrder struct {
	ID           int64
	SupplierID   int64
	OutletID     int64
	Status       POStatus
	Subtotal     decimal.Decimal
	TaxAmount    decimal.Decimal
	Total        decimal.Decimal
	ApprovedBy   *int64
	ApprovedAt   *time.Time
	ReceivedDate *time.Time
	Notes        string
	CreatedAt    time.Time
}

// PurchaseOrderItem is one ordered line. 0 <= ReceivedQty <= Quantity holds
// at all times.
type PurchaseOrderItem struct {
	ID          int64
	POID        int64
	ItemID      int64
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
	ReceivedQty decimal.Decimal
}

// GoodsReceipt (GRN) is the immutable audit record of one physical delivery
// against a purchase order.
type GoodsReceipt struct {
	ID           int64
	GRNNumber    string
	POID         int64
	ReceivedBy   int64
	ReceivedDate time.Time
	Notes        string
	Items        []GoodsReceiptItem
}

// GoodsReceiptItem is one received line, referencing a purchase order item.
type GoodsReceiptItem struct {
	ID               int64
	GRNID            int64
	POItemID         int64
	QuantityReceived decimal.Decimal
	BatchNumber      string
	ExpiryDate       *time.Time
}

// POWithReceipts bundles an order, its lines and all receipts against it.
type POWithReceipts struct {
	Order    PurchaseOrder
	Items    []PurchaseOrderItem
	Receipts []GoodsReceipt
}

var (
	// ErrNotFound indicates the purchase order does not exist.
	ErrNotFound = errors.New("procurement: purchase order not found")
	// ErrLineNotFound indicates a receipt line references an item outside this order.
	ErrLineNotFound = errors.New("procurement: order line not found")
	// ErrInvalidPOState occurs when receiving is attempted outside SENT/PARTIALLY_RECEIVED.
	ErrInvalidPOState = errors.New("procurement: order not open for receiving")
	// ErrInvalidTransition indicates an illegal status change.
	ErrInvalidTransition = errors.New("procurement: invalid state transition")
	// ErrMissingFields indicates required request fields are absent.
	ErrMissingFields = errors.New("procurement: missing required fields")
	// ErrInvalidQuantity indicates a zero or negative quantity.
	ErrInvalidQuantity = errors.New("procurement: quantity must be positive")
	// ErrOverReceipt indicates a receipt would exceed the ordered quantity.
	ErrOverReceipt = errors.New("procurement: received quantity exceeds ordered quantity")
)
