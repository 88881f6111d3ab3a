package procurement

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mealgrid/mealgrid-rms/internal/inventory"
	"github.com/mealgrid/mealgrid-rms/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations. Ledger hands out the stock
// ledger store bound to the same transaction, so receiving commits order,
// receipt and stock changes as one unit.
type TxRepository interface {
	CreatePO(ctx context.Context, po PurchaseOrder) (int64, error)
	InsertPOItem(ctx context.Context, item PurchaseOrderItem) error
	GetPOForUpdate(ctx context.Context, id int64) (PurchaseOrder, error)
	GetPOItemsForUpdate(ctx context.Context, poID int64) ([]PurchaseOrderItem, error)
	UpdatePOStatus(ctx context.Context, id int64, status POStatus) error
	SetPOApproval(ctx context.Context, id int64, approvedBy int64, approvedAt time.Time) error
	SetPOReceivedDate(ctx context.Context, id int64, receivedAt time.Time) error
	NextGRNSequence(ctx context.Context, period string) (int, error)
	InsertGRN(ctx context.Context, grn GoodsReceipt) (int64, error)
	InsertGRNItem(ctx context.Context, item GoodsReceiptItem) (int64, error)
	AddReceivedQty(ctx context.Context, poItemID int64, qty decimal.Decimal) error
	Ledger() inventory.Store
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("procurement repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return db.MapError(err)
	}
	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return db.MapError(err)
	}
	return nil
}

const poColumns = `id, supplier_id, outlet_id, status, subtotal, tax_amount, total, approved_by, approved_at, received_date, COALESCE(notes,''), created_at`

// GetPO returns the purchase order and its lines.
func (r *Repository) GetPO(ctx context.Context, id int64) (PurchaseOrder, []PurchaseOrderItem, error) {
	po, err := scanPO(r.pool.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id=$1`, id))
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, po_id, item_id, quantity, unit_price, tax_rate, received_qty FROM purchase_order_items WHERE po_id=$1 ORDER BY id`, id)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	defer rows.Close()
	items, err := scanPOItems(rows)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	return po, items, nil
}

// ListReceipts returns all receipts with their lines for one order, oldest
// first.
func (r *Repository) ListReceipts(ctx context.Context, poID int64) ([]GoodsReceipt, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, grn_number, po_id, received_by, received_date, COALESCE(notes,'') FROM goods_receipts WHERE po_id=$1 ORDER BY received_date, id`, poID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	receipts := []GoodsReceipt{}
	index := map[int64]int{}
	for rows.Next() {
		var grn GoodsReceipt
		if err := rows.Scan(&grn.ID, &grn.GRNNumber, &grn.POID, &grn.ReceivedBy, &grn.ReceivedDate, &grn.Notes); err != nil {
			return nil, err
		}
		index[grn.ID] = len(receipts)
		receipts = append(receipts, grn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(receipts) == 0 {
		return receipts, nil
	}
	itemRows, err := r.pool.Query(ctx, `SELECT gri.id, gri.grn_id, gri.po_item_id, gri.quantity_received, COALESCE(gri.batch_number,''), gri.expiry_date
FROM goods_receipt_items gri
JOIN goods_receipts gr ON gr.id = gri.grn_id
WHERE gr.po_id=$1 ORDER BY gri.id`, poID)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var item GoodsReceiptItem
		if err := itemRows.Scan(&item.ID, &item.GRNID, &item.POItemID, &item.QuantityReceived, &item.BatchNumber, &item.ExpiryDate); err != nil {
			return nil, err
		}
		if pos, ok := index[item.GRNID]; ok {
			receipts[pos].Items = append(receipts[pos].Items, item)
		}
	}
	return receipts, itemRows.Err()
}

func (r *txRepo) CreatePO(ctx context.Context, po PurchaseOrder) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO purchase_orders (supplier_id, outlet_id, status, subtotal, tax_amount, total, notes, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW()) RETURNING id`,
		po.SupplierID, po.OutletID, string(po.Status), po.Subtotal, po.TaxAmount, po.Total, po.Notes).Scan(&id)
	if err != nil {
		return 0, db.MapError(err)
	}
	return id, nil
}

func (r *txRepo) InsertPOItem(ctx context.Context, item PurchaseOrderItem) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO purchase_order_items (po_id, item_id, quantity, unit_price, tax_rate, received_qty)
VALUES ($1,$2,$3,$4,$5,0)`, item.POID, item.ItemID, item.Quantity, item.UnitPrice, item.TaxRate)
	if err != nil {
		return db.MapError(err)
	}
	return nil
}

func (r *txRepo) GetPOForUpdate(ctx context.Context, id int64) (PurchaseOrder, error) {
	return scanPO(r.tx.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id=$1 FOR UPDATE`, id))
}

func (r *txRepo) GetPOItemsForUpdate(ctx context.Context, poID int64) ([]PurchaseOrderItem, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, po_id, item_id, quantity, unit_price, tax_rate, received_qty FROM purchase_order_items WHERE po_id=$1 ORDER BY id FOR UPDATE`, poID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPOItems(rows)
}

func (r *txRepo) UpdatePOStatus(ctx context.Context, id int64, status POStatus) error {
	_, err := r.tx.Exec(ctx, `UPDATE purchase_orders SET status=$2 WHERE id=$1`, id, string(status))
	if err != nil {
		return db.MapError(err)
	}
	return nil
}

func (r *txRepo) SetPOApproval(ctx context.Context, id int64, approvedBy int64, approvedAt time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE purchase_orders SET approved_by=$2, approved_at=$3 WHERE id=$1`, id, approvedBy, approvedAt)
	if err != nil {
		return db.MapError(err)
	}
	return nil
}

func (r *txRepo) SetPOReceivedDate(ctx context.Context, id int64, receivedAt time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE purchase_orders SET received_date=$2 WHERE id=$1`, id, receivedAt)
	if err != nil {
		return db.MapError(err)
	}
	return nil
}

// NextGRNSequence increments the per-month counter row atomically. Two
// concurrent receipts in the same month serialize on this row instead of
// computing the same number from a count.
func (r *txRepo) NextGRNSequence(ctx context.Context, period string) (int, error) {
	var seq int
	err := r.tx.QueryRow(ctx, `INSERT INTO grn_sequences (period, last_seq) VALUES ($1, 1)
ON CONFLICT (period) DO UPDATE SET last_seq = grn_sequences.last_seq + 1
RETURNING last_seq`, period).Scan(&seq)
	if err != nil {
		return 0, db.MapError(err)
	}
	return seq, nil
}

func (r *txRepo) InsertGRN(ctx context.Context, grn GoodsReceipt) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO goods_receipts (grn_number, po_id, received_by, received_date, notes)
VALUES ($1,$2,$3,$4,$5) RETURNING id`, grn.GRNNumber, grn.POID, grn.ReceivedBy, grn.ReceivedDate, grn.Notes).Scan(&id)
	if err != nil {
		return 0, db.MapError(err)
	}
	return id, nil
}

func (r *txRepo) InsertGRNItem(ctx context.Context, item GoodsReceiptItem) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO goods_receipt_items (grn_id, po_item_id, quantity_received, batch_number, expiry_date)
VALUES ($1,$2,$3,$4,$5) RETURNING id`, item.GRNID, item.POItemID, item.QuantityReceived, nullString(item.BatchNumber), item.ExpiryDate).Scan(&id)
	if err != nil {
		return 0, db.MapError(err)
	}
	return id, nil
}

func (r *txRepo) AddReceivedQty(ctx context.Context, poItemID int64, qty decimal.Decimal) error {
	_, err := r.tx.Exec(ctx, `UPDATE purchase_order_items SET received_qty = received_qty + $2 WHERE id=$1`, poItemID, qty)
	if err != nil {
		return db.MapError(err)
	}
	return nil
}

func (r *txRepo) Ledger() inventory.Store {
	return inventory.NewTxStore(r.tx)
}

func scanPO(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	var status string
	err := row.Scan(&po.ID, &po.SupplierID, &po.OutletID, &status, &po.Subtotal, &po.TaxAmount, &po.Total,
		&po.ApprovedBy, &po.ApprovedAt, &po.ReceivedDate, &po.Notes, &po.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, ErrNotFound
		}
		return PurchaseOrder{}, err
	}
	po.Status = POStatus(status)
	return po, nil
}

func scanPOItems(rows pgx.Rows) ([]PurchaseOrderItem, error) {
	var items []PurchaseOrderItem
	for rows.Next() {
		var item PurchaseOrderItem
		if err := rows.Scan(&item.ID, &item.POID, &item.ItemID, &item.Quantity, &item.UnitPrice, &item.TaxRate, &item.ReceivedQty); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
