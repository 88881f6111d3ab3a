package inventory

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// MovementType enumerates stock ledger entry types.
type MovementType string

const (
	// MovementPurchase represents an inbound goods-receipt movement.
	MovementPurchase MovementType = "PURCHASE"
	// MovementWaste represents spoilage or breakage written off stock.
	MovementWaste MovementType = "WASTE"
	// MovementAdjustment indicates a manual count correction.
	MovementAdjustment MovementType = "ADJUSTMENT"
)

// Item is a stocked ingredient or product. Stock and cost fields are mutated
// only through ledger operations; everything else is master data.
type Item struct {
	ID           int64
	OutletID     int64
	SKU          string
	Name         string
	Unit         string
	CurrentStock decimal.Decimal
	AverageCost  decimal.Decimal
	LastCost     decimal.Decimal
	ReorderPoint decimal.NullDecimal
	TrackBatch   bool
	CreatedAt    time.Time
}

// StockMovement is one immutable ledger entry. Quantity is signed, positive
// for inbound. Items' running stock must stay reconstructible by replaying
// movements from zero.
type StockMovement struct {
	ID            int64
	ItemID        int64
	Type          MovementType
	Quantity      decimal.Decimal
	UnitCost      decimal.Decimal
	TotalCost     decimal.Decimal
	ReferenceType string
	ReferenceID   string
	PerformedBy   int64
	Note          string
	CreatedAt     time.Time
}

// StockBatch is an optional lot record created on receipt when the item
// tracks batches and a batch number was supplied.
type StockBatch struct {
	ID           int64
	ItemID       int64
	BatchNumber  string
	Quantity     decimal.Decimal
	UnitCost     decimal.Decimal
	ReceivedDate time.Time
	ExpiryDate   *time.Time
}

// ReceiptInput describes one inbound line applied to the ledger.
type ReceiptInput struct {
	ItemID        int64
	Quantity      decimal.Decimal
	UnitCost      decimal.Decimal
	PerformedBy   int64
	ReferenceType string
	ReferenceID   string
	Note          string
	BatchNumber   string
	ExpiryDate    *time.Time
}

// WasteInput describes a write-off. Quantity is positive.
type WasteInput struct {
	ItemID      int64
	Quantity    decimal.Decimal
	Reason      string
	PerformedBy int64
}

// AdjustmentInput describes a manual correction. Quantity is signed; a
// positive adjustment requires a unit cost for averaging.
type AdjustmentInput struct {
	ItemID      int64
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	Note        string
	PerformedBy int64
}

// CreateItemInput carries item master data.
type CreateItemInput struct {
	OutletID     int64
	SKU          string
	Name         string
	Unit         string
	ReorderPoint decimal.NullDecimal
	TrackBatch   bool
}

var (
	// ErrItemNotFound indicates the inventory item does not exist.
	ErrItemNotFound = errors.New("inventory: item not found")
	// ErrInvalidQuantity indicates a zero or wrongly signed quantity.
	ErrInvalidQuantity = errors.New("inventory: invalid quantity")
	// ErrInvalidUnitCost indicates a negative unit cost.
	ErrInvalidUnitCost = errors.New("inventory: unit cost must be >= 0")
	// ErrNegativeStock triggered when a movement would drive stock below zero.
	ErrNegativeStock = errors.New("inventory: negative stock not allowed")
	// ErrValidation indicates invalid master data input.
	ErrValidation = errors.New("inventory: invalid input")
)
