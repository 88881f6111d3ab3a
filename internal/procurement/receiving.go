package procurement

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mealgrid/mealgrid-rms/internal/inventory"
)

// ReceiveGoodsInput describes one physical delivery against an order.
type ReceiveGoodsInput struct {
	POID           int64
	ReceivedBy     int64
	Notes          string
	IdempotencyKey string
	Items          []ReceiveLineInput
}

// ReceiveLineInput is one delivered line. Batch number and expiry are
// forwarded to the batch tracker and ignored for items that do not track
// batches.
type ReceiveLineInput struct {
	POItemID    int64
	Quantity    decimal.Decimal
	BatchNumber string
	ExpiryDate  *time.Time
}

// ReceiveGoods posts a delivery: it validates every line against the order,
// then in one transaction creates the GRN with its lines, applies each line
// to the stock ledger at the ordered unit price, records batches, advances
// line progress and derives the new order status. Any failure rolls the
// whole transaction back; no partial ledger entries or receipt survive.
func (s *Service) ReceiveGoods(ctx context.Context, input ReceiveGoodsInput) (GoodsReceipt, error) {
	if input.POID == 0 || input.ReceivedBy == 0 {
		return GoodsReceipt{}, ErrMissingFields
	}
	if len(input.Items) == 0 {
		return GoodsReceipt{}, fmt.Errorf("%w: at least one receipt line required", ErrMissingFields)
	}

	insertedKey := false
	if s.idempotency != nil && input.IdempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "procurement.receipt"); err != nil {
			return GoodsReceipt{}, err
		}
		insertedKey = true
	}

	var grn GoodsReceipt
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, err := tx.GetPOForUpdate(ctx, input.POID)
		if err != nil {
			return err
		}
		if po.Status != POStatusSent && po.Status != POStatusPartiallyReceived {
			return fmt.Errorf("%w: status %s", ErrInvalidPOState, po.Status)
		}
		lines, err := tx.GetPOItemsForUpdate(ctx, po.ID)
		if err != nil {
			return err
		}
		lineByID := make(map[int64]*PurchaseOrderItem, len(lines))
		for i := range lines {
			lineByID[lines[i].ID] = &lines[i]
		}

		// Validate every requested line before any mutation. Pending
		// quantities accumulate so two request lines against the same order
		// line cannot sneak past the over-receipt check together.
		pending := make(map[int64]decimal.Decimal)
		for _, item := range input.Items {
			line, ok := lineByID[item.POItemID]
			if !ok {
				return fmt.Errorf("%w: line %d", ErrLineNotFound, item.POItemID)
			}
			if item.Quantity.Sign() <= 0 {
				return fmt.Errorf("%w: line %d", ErrInvalidQuantity, item.POItemID)
			}
			requested := pending[line.ID].Add(item.Quantity)
			if line.ReceivedQty.Add(requested).GreaterThan(line.Quantity) {
				return fmt.Errorf("%w: line %d ordered %s already received %s requested %s",
					ErrOverReceipt, line.ID, line.Quantity, line.ReceivedQty, requested)
			}
			pending[line.ID] = requested
		}

		now := time.Now().UTC()
		period := now.Format("200601")
		seq, err := tx.NextGRNSequence(ctx, period)
		if err != nil {
			return err
		}
		grn = GoodsReceipt{
			GRNNumber:    fmt.Sprintf("GRN-%s-%04d", period, seq),
			POID:         po.ID,
			ReceivedBy:   input.ReceivedBy,
			ReceivedDate: now,
			Notes:        input.Notes,
		}
		grn.ID, err = tx.InsertGRN(ctx, grn)
		if err != nil {
			return err
		}
		// The receipt record exists in full before stock moves.
		for _, item := range input.Items {
			receiptItem := GoodsReceiptItem{
				GRNID:            grn.ID,
				POItemID:         item.POItemID,
				QuantityReceived: item.Quantity,
				BatchNumber:      item.BatchNumber,
				ExpiryDate:       item.ExpiryDate,
			}
			receiptItem.ID, err = tx.InsertGRNItem(ctx, receiptItem)
			if err != nil {
				return err
			}
			grn.Items = append(grn.Items, receiptItem)
		}

		store := tx.Ledger()
		for _, item := range input.Items {
			line := lineByID[item.POItemID]
			receipt := inventory.ReceiptInput{
				ItemID:        line.ItemID,
				Quantity:      item.Quantity,
				UnitCost:      line.UnitPrice,
				PerformedBy:   input.ReceivedBy,
				ReferenceType: "PURCHASE_ORDER",
				ReferenceID:   strconv.FormatInt(po.ID, 10),
				Note:          fmt.Sprintf("GRN %s", grn.GRNNumber),
				BatchNumber:   item.BatchNumber,
				ExpiryDate:    item.ExpiryDate,
			}
			updated, _, err := s.ledger.ApplyReceipt(ctx, store, receipt)
			if err != nil {
				return err
			}
			if _, err := s.ledger.RecordBatch(ctx, store, updated, receipt); err != nil {
				return err
			}
			if err := tx.AddReceivedQty(ctx, line.ID, item.Quantity); err != nil {
				return err
			}
			line.ReceivedQty = line.ReceivedQty.Add(item.Quantity)
		}

		newStatus := DeriveStatusAfterReceipt(po, lines)
		if newStatus != po.Status {
			if err := tx.UpdatePOStatus(ctx, po.ID, newStatus); err != nil {
				return err
			}
		}
		if newStatus == POStatusReceived {
			if err := tx.SetPOReceivedDate(ctx, po.ID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, input.IdempotencyKey)
		}
		return GoodsReceipt{}, err
	}
	// GRN numbers are unique, so replayed deliveries map onto the same
	// audit event.
	eventID := uuid.NewSHA1(uuid.Nil, []byte("GRN:"+grn.GRNNumber))
	s.recordAuditEvent(ctx, eventID, input.ReceivedBy, "GRN_POST", grn.ID, map[string]any{"number": grn.GRNNumber, "po_id": grn.POID})
	return grn, nil
}
