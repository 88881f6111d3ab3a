package inventory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	items     map[int64]Item
	movements []StockMovement
	batches   []StockBatch
	nextID    int64
}

func newMemoryStore(items ...Item) *memoryStore {
	s := &memoryStore{items: make(map[int64]Item)}
	for _, item := range items {
		s.items[item.ID] = item
	}
	return s
}

func (s *memoryStore) GetItemForUpdate(ctx context.Context, itemID int64) (Item, error) {
	item, ok := s.items[itemID]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return item, nil
}

func (s *memoryStore) UpdateItemStock(ctx context.Context, itemID int64, stock, avgCost, lastCost decimal.Decimal) error {
	item := s.items[itemID]
	item.CurrentStock = stock
	item.AverageCost = avgCost
	item.LastCost = lastCost
	s.items[itemID] = item
	return nil
}

func (s *memoryStore) InsertMovement(ctx context.Context, m StockMovement) (int64, error) {
	s.nextID++
	m.ID = s.nextID
	s.movements = append(s.movements, m)
	return m.ID, nil
}

func (s *memoryStore) InsertBatch(ctx context.Context, b StockBatch) (int64, error) {
	s.nextID++
	b.ID = s.nextID
	s.batches = append(s.batches, b)
	return b.ID, nil
}

func dec(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}

func TestApplyReceiptWeightedAverage(t *testing.T) {
	store := newMemoryStore(Item{ID: 1, CurrentStock: dec("10"), AverageCost: dec("100"), LastCost: dec("100")})
	ledger := NewLedger()
	ctx := context.Background()

	item, movement, err := ledger.ApplyReceipt(ctx, store, ReceiptInput{ItemID: 1, Quantity: dec("10"), UnitCost: dec("120")})
	require.NoError(t, err)
	require.True(t, item.CurrentStock.Equal(dec("20")), "stock %s", item.CurrentStock)
	require.True(t, item.AverageCost.Equal(dec("110")), "avg %s", item.AverageCost)
	require.True(t, item.LastCost.Equal(dec("120")))
	require.True(t, movement.Quantity.Equal(dec("10")))
	require.True(t, movement.TotalCost.Equal(dec("1200")))
	require.Equal(t, MovementPurchase, movement.Type)
}

func TestApplyReceiptIntoEmptyStock(t *testing.T) {
	store := newMemoryStore(Item{ID: 1})
	ledger := NewLedger()

	item, movement, err := ledger.ApplyReceipt(context.Background(), store, ReceiptInput{ItemID: 1, Quantity: dec("50"), UnitCost: dec("10")})
	require.NoError(t, err)
	require.True(t, item.CurrentStock.Equal(dec("50")))
	require.True(t, item.AverageCost.Equal(dec("10")))
	require.True(t, movement.TotalCost.Equal(dec("500")))
}

func TestApplyReceiptValidation(t *testing.T) {
	store := newMemoryStore(Item{ID: 1})
	ledger := NewLedger()
	ctx := context.Background()

	_, _, err := ledger.ApplyReceipt(ctx, store, ReceiptInput{ItemID: 1, Quantity: decimal.Zero, UnitCost: dec("10")})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, _, err = ledger.ApplyReceipt(ctx, store, ReceiptInput{ItemID: 1, Quantity: dec("-5"), UnitCost: dec("10")})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, _, err = ledger.ApplyReceipt(ctx, store, ReceiptInput{ItemID: 1, Quantity: dec("5"), UnitCost: dec("-1")})
	require.ErrorIs(t, err, ErrInvalidUnitCost)

	_, _, err = ledger.ApplyReceipt(ctx, store, ReceiptInput{ItemID: 99, Quantity: dec("5"), UnitCost: dec("1")})
	require.ErrorIs(t, err, ErrItemNotFound)

	require.Empty(t, store.movements)
}

func TestRecordBatchSkipsUntrackedItems(t *testing.T) {
	ledger := NewLedger()
	ctx := context.Background()
	input := ReceiptInput{ItemID: 1, Quantity: dec("5"), UnitCost: dec("3"), BatchNumber: "LOT-7"}

	store := newMemoryStore()
	batch, err := ledger.RecordBatch(ctx, store, Item{ID: 1, TrackBatch: false}, input)
	require.NoError(t, err)
	require.Nil(t, batch)
	require.Empty(t, store.batches)

	batch, err = ledger.RecordBatch(ctx, store, Item{ID: 1, TrackBatch: true}, ReceiptInput{ItemID: 1, Quantity: dec("5"), UnitCost: dec("3")})
	require.NoError(t, err)
	require.Nil(t, batch)

	batch, err = ledger.RecordBatch(ctx, store, Item{ID: 1, TrackBatch: true}, input)
	require.NoError(t, err)
	require.NotNil(t, batch)
	require.Equal(t, "LOT-7", batch.BatchNumber)
}

func TestRecordBatchFragmentsDuplicateNumbers(t *testing.T) {
	ledger := NewLedger()
	store := newMemoryStore()
	item := Item{ID: 1, TrackBatch: true}
	input := ReceiptInput{ItemID: 1, Quantity: dec("5"), UnitCost: dec("3"), BatchNumber: "LOT-7"}

	_, err := ledger.RecordBatch(context.Background(), store, item, input)
	require.NoError(t, err)
	_, err = ledger.RecordBatch(context.Background(), store, item, input)
	require.NoError(t, err)
	require.Len(t, store.batches, 2)
}

func TestApplyWaste(t *testing.T) {
	store := newMemoryStore(Item{ID: 1, CurrentStock: dec("20"), AverageCost: dec("110"), LastCost: dec("120")})
	ledger := NewLedger()
	ctx := context.Background()

	item, movement, err := ledger.ApplyWaste(ctx, store, WasteInput{ItemID: 1, Quantity: dec("8"), Reason: "spoilage"})
	require.NoError(t, err)
	require.True(t, item.CurrentStock.Equal(dec("12")))
	require.True(t, item.AverageCost.Equal(dec("110")), "outbound keeps average")
	require.True(t, movement.Quantity.Equal(dec("-8")))
	require.True(t, movement.TotalCost.Equal(dec("-880")))
	require.Equal(t, MovementWaste, movement.Type)

	_, _, err = ledger.ApplyWaste(ctx, store, WasteInput{ItemID: 1, Quantity: dec("13")})
	require.ErrorIs(t, err, ErrNegativeStock)

	item, _, err = ledger.ApplyWaste(ctx, store, WasteInput{ItemID: 1, Quantity: dec("12")})
	require.NoError(t, err)
	require.True(t, item.CurrentStock.IsZero())
	require.True(t, item.AverageCost.IsZero(), "average resets on empty stock")
}

func TestApplyAdjustment(t *testing.T) {
	store := newMemoryStore(Item{ID: 1, CurrentStock: dec("10"), AverageCost: dec("100"), LastCost: dec("100")})
	ledger := NewLedger()
	ctx := context.Background()

	item, _, err := ledger.ApplyAdjustment(ctx, store, AdjustmentInput{ItemID: 1, Quantity: dec("10"), UnitCost: dec("120")})
	require.NoError(t, err)
	require.True(t, item.AverageCost.Equal(dec("110")))
	require.True(t, item.LastCost.Equal(dec("100")), "adjustment does not touch last cost")

	item, movement, err := ledger.ApplyAdjustment(ctx, store, AdjustmentInput{ItemID: 1, Quantity: dec("-5"), Note: "count"})
	require.NoError(t, err)
	require.True(t, item.CurrentStock.Equal(dec("15")))
	require.True(t, movement.Quantity.Equal(dec("-5")))

	_, _, err = ledger.ApplyAdjustment(ctx, store, AdjustmentInput{ItemID: 1, Quantity: decimal.Zero})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestStockEqualsMovementSum(t *testing.T) {
	store := newMemoryStore(Item{ID: 1})
	ledger := NewLedger()
	ctx := context.Background()

	_, _, err := ledger.ApplyReceipt(ctx, store, ReceiptInput{ItemID: 1, Quantity: dec("50"), UnitCost: dec("10")})
	require.NoError(t, err)
	_, _, err = ledger.ApplyWaste(ctx, store, WasteInput{ItemID: 1, Quantity: dec("7")})
	require.NoError(t, err)
	_, _, err = ledger.ApplyAdjustment(ctx, store, AdjustmentInput{ItemID: 1, Quantity: dec("2"), UnitCost: dec("11")})
	require.NoError(t, err)

	sum := decimal.Zero
	for _, m := range store.movements {
		sum = sum.Add(m.Quantity)
	}
	require.True(t, store.items[1].CurrentStock.Equal(sum), "stock %s sum %s", store.items[1].CurrentStock, sum)
	require.True(t, sum.Equal(dec("45")))
}
