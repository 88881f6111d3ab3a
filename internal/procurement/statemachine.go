package procurement

import (
	"fmt"
	"time"
)

// transitions is the allowed-successor table for the purchase order
// lifecycle. RECEIVED and CANCELLED are terminal. Adding a status means
// adding a row here, which keeps the workflow visible in one place.
var transitions = map[POStatus][]POStatus{
	POStatusDraft:             {POStatusPendingApproval, POStatusCancelled},
	POStatusPendingApproval:   {POStatusApproved, POStatusDraft, POStatusCancelled},
	POStatusApproved:          {POStatusSent, POStatusCancelled},
	POStatusSent:              {POStatusPartiallyReceived, POStatusReceived, POStatusCancelled},
	POStatusPartiallyReceived: {POStatusReceived},
	POStatusReceived:          {},
	POStatusCancelled:         {},
}

// CanTransition reports whether target is an allowed successor of from.
func CanTransition(from, target POStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Transition applies a status change in place. On APPROVED it records the
// approver; an absent employee id is tolerated and leaves the approval
// fields unset.
func Transition(po *PurchaseOrder, target POStatus, employeeID int64, now time.Time) error {
	if !CanTransition(po.Status, target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, po.Status, target)
	}
	po.Status = target
	if target == POStatusApproved && employeeID != 0 {
		approvedAt := now
		po.ApprovedBy = &employeeID
		po.ApprovedAt = &approvedAt
	}
	return nil
}

// DeriveStatusAfterReceipt recomputes the order status from line progress.
// Only meaningful while the order is SENT or PARTIALLY_RECEIVED; a SENT
// order with nothing received stays SENT.
func DeriveStatusAfterReceipt(po PurchaseOrder, lines []PurchaseOrderItem) POStatus {
	allFull := true
	anyReceived := false
	for _, line := range lines {
		if line.ReceivedQty.LessThan(line.Quantity) {
			allFull = false
		}
		if line.ReceivedQty.Sign() > 0 {
			anyReceived = true
		}
	}
	switch {
	case allFull && len(lines) > 0:
		return POStatusReceived
	case anyReceived:
		return POStatusPartiallyReceived
	default:
		return po.Status
	}
}
