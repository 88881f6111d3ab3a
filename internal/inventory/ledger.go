package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store is the transaction-scoped persistence surface the ledger writes
// through. Callers that need receipt posting atomic with their own writes
// (goods receiving does) pass their transaction's store so every mutation
// commits or rolls back as one unit.
type Store interface {
	GetItemForUpdate(ctx context.Context, itemID int64) (Item, error)
	UpdateItemStock(ctx context.Context, itemID int64, stock, avgCost, lastCost decimal.Decimal) error
	InsertMovement(ctx context.Context, movement StockMovement) (int64, error)
	InsertBatch(ctx context.Context, batch StockBatch) (int64, error)
}

// Ledger applies stock movements and maintains the weighted-average cost on
// each item. It holds no state of its own; all state lives in the store.
type Ledger struct{}

// NewLedger constructs a Ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// ApplyReceipt posts an inbound movement. The item row is locked for the
// duration of the enclosing transaction, so concurrent receipts on the same
// item serialize; the average-cost formula is not commutative under
// interleaving.
func (l *Ledger) ApplyReceipt(ctx context.Context, store Store, input ReceiptInput) (Item, StockMovement, error) {
	if input.Quantity.Sign() <= 0 {
		return Item{}, StockMovement{}, ErrInvalidQuantity
	}
	if input.UnitCost.Sign() < 0 {
		return Item{}, StockMovement{}, ErrInvalidUnitCost
	}
	item, err := store.GetItemForUpdate(ctx, input.ItemID)
	if err != nil {
		return Item{}, StockMovement{}, err
	}

	newStock := item.CurrentStock.Add(input.Quantity)
	newAvg := input.UnitCost
	if !newStock.IsZero() {
		onHand := item.CurrentStock.Mul(item.AverageCost)
		inbound := input.Quantity.Mul(input.UnitCost)
		newAvg = onHand.Add(inbound).Div(newStock)
	}

	item.CurrentStock = newStock
	item.AverageCost = newAvg
	item.LastCost = input.UnitCost
	if err := store.UpdateItemStock(ctx, item.ID, item.CurrentStock, item.AverageCost, item.LastCost); err != nil {
		return Item{}, StockMovement{}, err
	}

	movement := StockMovement{
		ItemID:        item.ID,
		Type:          MovementPurchase,
		Quantity:      input.Quantity,
		UnitCost:      input.UnitCost,
		TotalCost:     input.Quantity.Mul(input.UnitCost),
		ReferenceType: input.ReferenceType,
		ReferenceID:   input.ReferenceID,
		PerformedBy:   input.PerformedBy,
		Note:          input.Note,
		CreatedAt:     time.Now().UTC(),
	}
	movement.ID, err = store.InsertMovement(ctx, movement)
	if err != nil {
		return Item{}, StockMovement{}, err
	}
	return item, movement, nil
}

// RecordBatch creates a lot record for a received line. It is a no-op, not an
// error, when the item does not track batches or no batch number was given.
// Repeated receipts under one batch number fragment into separate rows.
func (l *Ledger) RecordBatch(ctx context.Context, store Store, item Item, input ReceiptInput) (*StockBatch, error) {
	if !item.TrackBatch || input.BatchNumber == "" {
		return nil, nil
	}
	batch := StockBatch{
		ItemID:       item.ID,
		BatchNumber:  input.BatchNumber,
		Quantity:     input.Quantity,
		UnitCost:     input.UnitCost,
		ReceivedDate: time.Now().UTC(),
		ExpiryDate:   input.ExpiryDate,
	}
	id, err := store.InsertBatch(ctx, batch)
	if err != nil {
		return nil, err
	}
	batch.ID = id
	return &batch, nil
}

// ApplyWaste writes off stock at the current average cost.
func (l *Ledger) ApplyWaste(ctx context.Context, store Store, input WasteInput) (Item, StockMovement, error) {
	if input.Quantity.Sign() <= 0 {
		return Item{}, StockMovement{}, ErrInvalidQuantity
	}
	return l.applyOutbound(ctx, store, input.ItemID, input.Quantity, MovementWaste, input.Reason, input.PerformedBy)
}

// ApplyAdjustment posts a signed manual correction. Positive adjustments
// average in at the supplied cost; negative ones leave the average untouched
// and go out at it, like waste.
func (l *Ledger) ApplyAdjustment(ctx context.Context, store Store, input AdjustmentInput) (Item, StockMovement, error) {
	if input.Quantity.IsZero() {
		return Item{}, StockMovement{}, ErrInvalidQuantity
	}
	if input.Quantity.Sign() > 0 {
		if input.UnitCost.Sign() < 0 {
			return Item{}, StockMovement{}, ErrInvalidUnitCost
		}
		item, err := store.GetItemForUpdate(ctx, input.ItemID)
		if err != nil {
			return Item{}, StockMovement{}, err
		}
		newStock := item.CurrentStock.Add(input.Quantity)
		newAvg := input.UnitCost
		if !newStock.IsZero() {
			newAvg = item.CurrentStock.Mul(item.AverageCost).Add(input.Quantity.Mul(input.UnitCost)).Div(newStock)
		}
		item.CurrentStock = newStock
		item.AverageCost = newAvg
		if err := store.UpdateItemStock(ctx, item.ID, item.CurrentStock, item.AverageCost, item.LastCost); err != nil {
			return Item{}, StockMovement{}, err
		}
		movement := StockMovement{
			ItemID:      item.ID,
			Type:        MovementAdjustment,
			Quantity:    input.Quantity,
			UnitCost:    input.UnitCost,
			TotalCost:   input.Quantity.Mul(input.UnitCost),
			PerformedBy: input.PerformedBy,
			Note:        input.Note,
			CreatedAt:   time.Now().UTC(),
		}
		movement.ID, err = store.InsertMovement(ctx, movement)
		if err != nil {
			return Item{}, StockMovement{}, err
		}
		return item, movement, nil
	}
	return l.applyOutbound(ctx, store, input.ItemID, input.Quantity.Neg(), MovementAdjustment, input.Note, input.PerformedBy)
}

func (l *Ledger) applyOutbound(ctx context.Context, store Store, itemID int64, qty decimal.Decimal, movementType MovementType, note string, performedBy int64) (Item, StockMovement, error) {
	item, err := store.GetItemForUpdate(ctx, itemID)
	if err != nil {
		return Item{}, StockMovement{}, err
	}
	newStock := item.CurrentStock.Sub(qty)
	if newStock.Sign() < 0 {
		return Item{}, StockMovement{}, ErrNegativeStock
	}
	unitCost := item.AverageCost
	item.CurrentStock = newStock
	if newStock.IsZero() {
		item.AverageCost = decimal.Zero
	}
	if err := store.UpdateItemStock(ctx, item.ID, item.CurrentStock, item.AverageCost, item.LastCost); err != nil {
		return Item{}, StockMovement{}, err
	}
	movement := StockMovement{
		ItemID:      item.ID,
		Type:        movementType,
		Quantity:    qty.Neg(),
		UnitCost:    unitCost,
		TotalCost:   qty.Mul(unitCost).Neg(),
		PerformedBy: performedBy,
		Note:        note,
		CreatedAt:   time.Now().UTC(),
	}
	movement.ID, err = store.InsertMovement(ctx, movement)
	if err != nil {
		return Item{}, StockMovement{}, err
	}
	return item, movement, nil
}
