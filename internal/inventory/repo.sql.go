package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mealgrid/mealgrid-rms/internal/platform/db"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, Store) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return db.MapError(err)
	}
	if err := fn(ctx, NewTxStore(tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return db.MapError(err)
	}
	return nil
}

// CreateItem inserts an item with zero stock.
func (r *Repository) CreateItem(ctx context.Context, item Item) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO inventory_items (outlet_id, sku, name, unit, current_stock, average_cost, last_cost, reorder_point, track_batch, created_at)
VALUES ($1,$2,$3,$4,0,0,0,$5,$6,NOW()) RETURNING id`,
		item.OutletID, item.SKU, item.Name, item.Unit, item.ReorderPoint, item.TrackBatch).Scan(&id)
	if err != nil {
		return 0, db.MapError(err)
	}
	return id, nil
}

const itemColumns = `id, outlet_id, sku, name, unit, current_stock, average_cost, last_cost, reorder_point, track_batch, created_at`

// GetItem returns one item by id.
func (r *Repository) GetItem(ctx context.Context, id int64) (Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id=$1`, id)
	return scanItem(row)
}

// ListItems returns items for one outlet ordered by name.
func (r *Repository) ListItems(ctx context.Context, outletID int64) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE outlet_id=$1 ORDER BY name, id`, outletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// NewTxStore wraps a pgx transaction as a ledger Store. Goods receiving uses
// this to share its transaction with the ledger.
func NewTxStore(tx pgx.Tx) Store {
	return &txStore{tx: tx}
}

type txStore struct {
	tx pgx.Tx
}

func (s *txStore) GetItemForUpdate(ctx context.Context, itemID int64) (Item, error) {
	row := s.tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id=$1 FOR UPDATE`, itemID)
	return scanItem(row)
}

func (s *txStore) UpdateItemStock(ctx context.Context, itemID int64, stock, avgCost, lastCost decimal.Decimal) error {
	_, err := s.tx.Exec(ctx, `UPDATE inventory_items SET current_stock=$2, average_cost=$3, last_cost=$4, updated_at=NOW() WHERE id=$1`,
		itemID, stock, avgCost, lastCost)
	if err != nil {
		return db.MapError(err)
	}
	return nil
}

func (s *txStore) InsertMovement(ctx context.Context, m StockMovement) (int64, error) {
	var id int64
	err := s.tx.QueryRow(ctx, `INSERT INTO stock_movements (item_id, movement_type, quantity, unit_cost, total_cost, reference_type, reference_id, performed_by, note, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`,
		m.ItemID, string(m.Type), m.Quantity, m.UnitCost, m.TotalCost, nullString(m.ReferenceType), nullString(m.ReferenceID), nullInt(m.PerformedBy), m.Note, m.CreatedAt).Scan(&id)
	if err != nil {
		return 0, db.MapError(err)
	}
	return id, nil
}

func (s *txStore) InsertBatch(ctx context.Context, b StockBatch) (int64, error) {
	var id int64
	err := s.tx.QueryRow(ctx, `INSERT INTO stock_batches (item_id, batch_number, quantity, unit_cost, received_date, expiry_date)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		b.ItemID, b.BatchNumber, b.Quantity, b.UnitCost, b.ReceivedDate, b.ExpiryDate).Scan(&id)
	if err != nil {
		return 0, db.MapError(err)
	}
	return id, nil
}

func scanItem(row pgx.Row) (Item, error) {
	var item Item
	err := row.Scan(&item.ID, &item.OutletID, &item.SKU, &item.Name, &item.Unit,
		&item.CurrentStock, &item.AverageCost, &item.LastCost, &item.ReorderPoint, &item.TrackBatch, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, err
	}
	return item, nil
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}
