package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads report data straight from the ledger tables.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires the reporting queries to a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ValuationRows returns every item of an outlet with its stock priced at the
// moving average cost.
func (r *Repository) ValuationRows(ctx context.Context, outletID int64) ([]ValuationRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, sku, name, unit, current_stock, average_cost,
		       current_stock * average_cost AS value
		FROM inventory_items
		WHERE outlet_id = $1
		ORDER BY sku`, outletID)
	if err != nil {
		return nil, fmt.Errorf("reporting: valuation query: %w", err)
	}
	defer rows.Close()

	var out []ValuationRow
	for rows.Next() {
		var row ValuationRow
		if err := rows.Scan(&row.ItemID, &row.SKU, &row.Name, &row.Unit, &row.CurrentStock, &row.AverageCost, &row.Value); err != nil {
			return nil, fmt.Errorf("reporting: scan valuation row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// MovementsByItem lists ledger entries for one item inside [from, to),
// oldest first.
func (r *Repository) MovementsByItem(ctx context.Context, itemID int64, from, to time.Time) ([]MovementRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, movement_type, quantity, unit_cost, total_cost,
		       COALESCE(reference_id, ''), COALESCE(note, ''), created_at
		FROM stock_movements
		WHERE item_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at, id`, itemID, from, to)
	if err != nil {
		return nil, fmt.Errorf("reporting: movements query: %w", err)
	}
	defer rows.Close()

	var out []MovementRow
	for rows.Next() {
		var row MovementRow
		if err := rows.Scan(&row.ID, &row.MovementType, &row.Quantity, &row.UnitCost, &row.TotalCost, &row.ReferenceID, &row.Note, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("reporting: scan movement row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// WasteRows aggregates WASTE movements per item for an outlet and period.
func (r *Repository) WasteRows(ctx context.Context, outletID int64, from, to time.Time) ([]WasteRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT i.id, i.sku, i.name,
		       COALESCE(SUM(-m.quantity), 0) AS quantity,
		       COALESCE(SUM(-m.total_cost), 0) AS cost
		FROM stock_movements m
		JOIN inventory_items i ON i.id = m.item_id
		WHERE i.outlet_id = $1
		  AND m.movement_type = 'WASTE'
		  AND m.created_at >= $2 AND m.created_at < $3
		GROUP BY i.id, i.sku, i.name
		ORDER BY cost DESC`, outletID, from, to)
	if err != nil {
		return nil, fmt.Errorf("reporting: waste query: %w", err)
	}
	defer rows.Close()

	var out []WasteRow
	for rows.Next() {
		var row WasteRow
		if err := rows.Scan(&row.ItemID, &row.SKU, &row.Name, &row.Quantity, &row.Cost); err != nil {
			return nil, fmt.Errorf("reporting: scan waste row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
