package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	jobmetrics "github.com/mealgrid/mealgrid-rms/internal/jobs"
)

// LowStockScanner walks the item registry looking for stock at or below the
// reorder point and surfaces the result through logs and metrics.
type LowStockScanner struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewLowStockScanner constructs the scanner.
func NewLowStockScanner(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockScanner {
	return &LowStockScanner{pool: pool, logger: logger, metrics: metrics}
}

type lowStockRow struct {
	ItemID       int64
	OutletID     int64
	SKU          string
	Name         string
	CurrentStock decimal.Decimal
	ReorderPoint decimal.Decimal
}

// Handle processes TaskLowStockScan tasks.
func (s *LowStockScanner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := s.metrics.Track(TaskLowStockScan)
	return tracker.End(s.scan(ctx))
}

func (s *LowStockScanner) scan(ctx context.Context) error {
	rows, err := s.pool.Query(ctx, `
		SELECT id, outlet_id, sku, name, current_stock, reorder_point
		FROM inventory_items
		WHERE reorder_point IS NOT NULL AND current_stock <= reorder_point
		ORDER BY outlet_id, sku`)
	if err != nil {
		return err
	}
	defer rows.Close()

	perOutlet := map[int64]int{}
	for rows.Next() {
		var row lowStockRow
		if err := rows.Scan(&row.ItemID, &row.OutletID, &row.SKU, &row.Name, &row.CurrentStock, &row.ReorderPoint); err != nil {
			return err
		}
		perOutlet[row.OutletID]++
		s.logger.Warn("item below reorder point",
			slog.Int64("item_id", row.ItemID),
			slog.Int64("outlet_id", row.OutletID),
			slog.String("sku", row.SKU),
			slog.String("current_stock", row.CurrentStock.String()),
			slog.String("reorder_point", row.ReorderPoint.String()))
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for outletID, count := range perOutlet {
		s.metrics.SetLowStockItems(outletID, count)
	}
	s.logger.Info("low stock scan complete", slog.Int("flagged_items", total(perOutlet)))
	return nil
}

func total(perOutlet map[int64]int) int {
	sum := 0
	for _, n := range perOutlet {
		sum += n
	}
	return sum
}
