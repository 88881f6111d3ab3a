package reporting

import (
	"time"

	"github.com/shopspring/decimal"
)

// ValuationRow is one item's contribution to the stock valuation of an
// outlet, priced at the moving average cost.
type ValuationRow struct {
	ItemID       int64           `json:"item_id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	AverageCost  decimal.Decimal `json:"average_cost"`
	Value        decimal.Decimal `json:"value"`
}

// ValuationReport aggregates the per-item rows for one outlet.
type ValuationReport struct {
	OutletID    int64           `json:"outlet_id"`
	TotalValue  decimal.Decimal `json:"total_value"`
	Items       []ValuationRow  `json:"items"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// MovementRow is one ledger entry in an item's history.
type MovementRow struct {
	ID           int64           `json:"id"`
	MovementType string          `json:"movement_type"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	ReferenceID  string          `json:"reference_id,omitempty"`
	Note         string          `json:"note,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// WasteRow summarises write-offs for one item over a date range.
type WasteRow struct {
	ItemID   int64           `json:"item_id"`
	SKU      string          `json:"sku"`
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Cost     decimal.Decimal `json:"cost"`
}

// WasteReport is the waste summary for one outlet and period.
type WasteReport struct {
	OutletID  int64           `json:"outlet_id"`
	From      time.Time       `json:"from"`
	To        time.Time       `json:"to"`
	TotalCost decimal.Decimal `json:"total_cost"`
	Items     []WasteRow      `json:"items"`
}
