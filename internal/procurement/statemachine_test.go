package procurement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTransitionTable(t *testing.T) {
	allowed := []struct{ from, to POStatus }{
		{POStatusDraft, POStatusPendingApproval},
		{POStatusDraft, POStatusCancelled},
		{POStatusPendingApproval, POStatusApproved},
		{POStatusPendingApproval, POStatusDraft},
		{POStatusPendingApproval, POStatusCancelled},
		{POStatusApproved, POStatusSent},
		{POStatusApproved, POStatusCancelled},
		{POStatusSent, POStatusPartiallyReceived},
		{POStatusSent, POStatusReceived},
		{POStatusSent, POStatusCancelled},
		{POStatusPartiallyReceived, POStatusReceived},
	}
	for _, tc := range allowed {
		require.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to POStatus }{
		{POStatusDraft, POStatusReceived},
		{POStatusDraft, POStatusSent},
		{POStatusDraft, POStatusApproved},
		{POStatusApproved, POStatusReceived},
		{POStatusPartiallyReceived, POStatusCancelled},
		{POStatusReceived, POStatusCancelled},
		{POStatusCancelled, POStatusDraft},
	}
	for _, tc := range denied {
		require.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}

	for _, terminal := range []POStatus{POStatusReceived, POStatusCancelled} {
		require.Empty(t, transitions[terminal], "%s must be terminal", terminal)
	}
}

func TestTransitionRecordsApprover(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	po := PurchaseOrder{Status: POStatusPendingApproval}
	require.NoError(t, Transition(&po, POStatusApproved, 42, now))
	require.Equal(t, POStatusApproved, po.Status)
	require.NotNil(t, po.ApprovedBy)
	require.EqualValues(t, 42, *po.ApprovedBy)
	require.NotNil(t, po.ApprovedAt)
	require.Equal(t, now, *po.ApprovedAt)

	// The approver may be omitted; the fields stay unset rather than failing.
	anon := PurchaseOrder{Status: POStatusPendingApproval}
	require.NoError(t, Transition(&anon, POStatusApproved, 0, now))
	require.Nil(t, anon.ApprovedBy)
	require.Nil(t, anon.ApprovedAt)
}

func TestTransitionRejectsIllegalMove(t *testing.T) {
	po := PurchaseOrder{Status: POStatusDraft}
	err := Transition(&po, POStatusReceived, 1, time.Now())
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Equal(t, POStatusDraft, po.Status, "status unchanged on failure")
}

func TestDeriveStatusAfterReceipt(t *testing.T) {
	po := PurchaseOrder{Status: POStatusSent}

	lines := []PurchaseOrderItem{
		{Quantity: dec("50"), ReceivedQty: dec("0")},
		{Quantity: dec("10"), ReceivedQty: dec("0")},
	}
	require.Equal(t, POStatusSent, DeriveStatusAfterReceipt(po, lines))

	lines[0].ReceivedQty = dec("20")
	require.Equal(t, POStatusPartiallyReceived, DeriveStatusAfterReceipt(po, lines))

	lines[0].ReceivedQty = dec("50")
	lines[1].ReceivedQty = dec("10")
	require.Equal(t, POStatusReceived, DeriveStatusAfterReceipt(po, lines))
}
