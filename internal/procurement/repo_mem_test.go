package procurement

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mealgrid/mealgrid-rms/internal/inventory"
)

// dec builds a decimal or panics; test helper.
func dec(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}

// invItem is the slice of inventory state the fake ledger store tracks.
type invItem struct {
	ID           int64
	CurrentStock decimal.Decimal
	AverageCost  decimal.Decimal
	LastCost     decimal.Decimal
	TrackBatch   bool
}

type memState struct {
	pos       map[int64]PurchaseOrder
	poItems   map[int64]PurchaseOrderItem
	grns      []GoodsReceipt
	grnItems  []GoodsReceiptItem
	seqs      map[string]int
	invItems  map[int64]invItem
	movements []inventory.StockMovement
	batches   []inventory.StockBatch
	nextID    int64
}

func (s *memState) clone() *memState {
	copied := &memState{
		pos:      make(map[int64]PurchaseOrder, len(s.pos)),
		poItems:  make(map[int64]PurchaseOrderItem, len(s.poItems)),
		seqs:     make(map[string]int, len(s.seqs)),
		invItems: make(map[int64]invItem, len(s.invItems)),
		nextID:   s.nextID,
	}
	for k, v := range s.pos {
		copied.pos[k] = v
	}
	for k, v := range s.poItems {
		copied.poItems[k] = v
	}
	for k, v := range s.seqs {
		copied.seqs[k] = v
	}
	for k, v := range s.invItems {
		copied.invItems[k] = v
	}
	copied.grns = append([]GoodsReceipt(nil), s.grns...)
	copied.grnItems = append([]GoodsReceiptItem(nil), s.grnItems...)
	copied.movements = append([]inventory.StockMovement(nil), s.movements...)
	copied.batches = append([]inventory.StockBatch(nil), s.batches...)
	return copied
}

// memRepo is an in-memory RepositoryPort with transaction rollback via
// snapshot restore, so atomicity tests observe real all-or-nothing behavior.
type memRepo struct {
	state *memState
}

func newMemRepo() *memRepo {
	return &memRepo{state: &memState{
		pos:      map[int64]PurchaseOrder{},
		poItems:  map[int64]PurchaseOrderItem{},
		seqs:     map[string]int{},
		invItems: map[int64]invItem{},
	}}
}

func (r *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := r.state.clone()
	if err := fn(ctx, &memTx{state: r.state}); err != nil {
		r.state = snapshot
		return err
	}
	return nil
}

func (r *memRepo) GetPO(ctx context.Context, id int64) (PurchaseOrder, []PurchaseOrderItem, error) {
	po, ok := r.state.pos[id]
	if !ok {
		return PurchaseOrder{}, nil, ErrNotFound
	}
	return po, r.linesFor(id), nil
}

func (r *memRepo) linesFor(poID int64) []PurchaseOrderItem {
	var lines []PurchaseOrderItem
	for _, item := range r.state.poItems {
		if item.POID == poID {
			lines = append(lines, item)
		}
	}
	return lines
}

func (r *memRepo) ListReceipts(ctx context.Context, poID int64) ([]GoodsReceipt, error) {
	var receipts []GoodsReceipt
	for _, grn := range r.state.grns {
		if grn.POID != poID {
			continue
		}
		for _, item := range r.state.grnItems {
			if item.GRNID == grn.ID {
				grn.Items = append(grn.Items, item)
			}
		}
		receipts = append(receipts, grn)
	}
	return receipts, nil
}

type memTx struct {
	state *memState
}

func (t *memTx) CreatePO(ctx context.Context, po PurchaseOrder) (int64, error) {
	t.state.nextID++
	po.ID = t.state.nextID
	po.CreatedAt = time.Now().UTC()
	t.state.pos[po.ID] = po
	return po.ID, nil
}

func (t *memTx) InsertPOItem(ctx context.Context, item PurchaseOrderItem) error {
	t.state.nextID++
	item.ID = t.state.nextID
	t.state.poItems[item.ID] = item
	return nil
}

func (t *memTx) GetPOForUpdate(ctx context.Context, id int64) (PurchaseOrder, error) {
	po, ok := t.state.pos[id]
	if !ok {
		return PurchaseOrder{}, ErrNotFound
	}
	return po, nil
}

func (t *memTx) GetPOItemsForUpdate(ctx context.Context, poID int64) ([]PurchaseOrderItem, error) {
	var lines []PurchaseOrderItem
	for _, item := range t.state.poItems {
		if item.POID == poID {
			lines = append(lines, item)
		}
	}
	// map iteration order is random; keep lines stable by id
	for i := 0; i < len(lines); i++ {
		for j := i + 1; j < len(lines); j++ {
			if lines[j].ID < lines[i].ID {
				lines[i], lines[j] = lines[j], lines[i]
			}
		}
	}
	return lines, nil
}

func (t *memTx) UpdatePOStatus(ctx context.Context, id int64, status POStatus) error {
	po := t.state.pos[id]
	po.Status = status
	t.state.pos[id] = po
	return nil
}

func (t *memTx) SetPOApproval(ctx context.Context, id int64, approvedBy int64, approvedAt time.Time) error {
	po := t.state.pos[id]
	po.ApprovedBy = &approvedBy
	po.ApprovedAt = &approvedAt
	t.state.pos[id] = po
	return nil
}

func (t *memTx) SetPOReceivedDate(ctx context.Context, id int64, receivedAt time.Time) error {
	po := t.state.pos[id]
	po.ReceivedDate = &receivedAt
	t.state.pos[id] = po
	return nil
}

func (t *memTx) NextGRNSequence(ctx context.Context, period string) (int, error) {
	t.state.seqs[period]++
	return t.state.seqs[period], nil
}

func (t *memTx) InsertGRN(ctx context.Context, grn GoodsReceipt) (int64, error) {
	t.state.nextID++
	grn.ID = t.state.nextID
	grn.Items = nil
	t.state.grns = append(t.state.grns, grn)
	return grn.ID, nil
}

func (t *memTx) InsertGRNItem(ctx context.Context, item GoodsReceiptItem) (int64, error) {
	t.state.nextID++
	item.ID = t.state.nextID
	t.state.grnItems = append(t.state.grnItems, item)
	return item.ID, nil
}

func (t *memTx) AddReceivedQty(ctx context.Context, poItemID int64, qty decimal.Decimal) error {
	item := t.state.poItems[poItemID]
	item.ReceivedQty = item.ReceivedQty.Add(qty)
	t.state.poItems[poItemID] = item
	return nil
}

func (t *memTx) Ledger() inventory.Store {
	return &memLedgerStore{state: t.state}
}

// memLedgerStore implements inventory.Store against the shared test state.
type memLedgerStore struct {
	state *memState
}

func (s *memLedgerStore) GetItemForUpdate(ctx context.Context, itemID int64) (inventory.Item, error) {
	item, ok := s.state.invItems[itemID]
	if !ok {
		return inventory.Item{}, inventory.ErrItemNotFound
	}
	return inventory.Item{
		ID:           item.ID,
		CurrentStock: item.CurrentStock,
		AverageCost:  item.AverageCost,
		LastCost:     item.LastCost,
		TrackBatch:   item.TrackBatch,
	}, nil
}

func (s *memLedgerStore) UpdateItemStock(ctx context.Context, itemID int64, stock, avgCost, lastCost decimal.Decimal) error {
	item := s.state.invItems[itemID]
	item.CurrentStock = stock
	item.AverageCost = avgCost
	item.LastCost = lastCost
	s.state.invItems[itemID] = item
	return nil
}

func (s *memLedgerStore) InsertMovement(ctx context.Context, m inventory.StockMovement) (int64, error) {
	s.state.nextID++
	m.ID = s.state.nextID
	s.state.movements = append(s.state.movements, m)
	return m.ID, nil
}

func (s *memLedgerStore) InsertBatch(ctx context.Context, b inventory.StockBatch) (int64, error) {
	s.state.nextID++
	b.ID = s.state.nextID
	s.state.batches = append(s.state.batches, b)
	return b.ID, nil
}
