package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// RepositoryPort exposes the report queries the service relies on.
type RepositoryPort interface {
	ValuationRows(ctx context.Context, outletID int64) ([]ValuationRow, error)
	MovementsByItem(ctx context.Context, itemID int64, from, to time.Time) ([]MovementRow, error)
	WasteRows(ctx context.Context, outletID int64, from, to time.Time) ([]WasteRow, error)
}

// Service coordinates report query execution with the cache layer. Concurrent
// requests for the same report key collapse into a single build.
type Service struct {
	repo   RepositoryPort
	cache  *Cache
	flight singleflight.Group
}

// NewService wires a RepositoryPort with a Cache helper.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Valuation returns the stock valuation of an outlet, served from cache when
// a fresh enough copy exists.
func (s *Service) Valuation(ctx context.Context, outletID int64) (ValuationReport, error) {
	key := fmt.Sprintf("reporting:valuation:%d", outletID)
	result, err := s.do(ctx, key, func(ctx context.Context) (interface{}, error) {
		var report ValuationReport
		err := s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (interface{}, error) {
			return s.buildValuation(ctx, outletID)
		})
		return report, err
	})
	if err != nil {
		return ValuationReport{}, err
	}
	return result.(ValuationReport), nil
}

func (s *Service) buildValuation(ctx context.Context, outletID int64) (ValuationReport, error) {
	rows, err := s.repo.ValuationRows(ctx, outletID)
	if err != nil {
		return ValuationReport{}, err
	}
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Value)
	}
	return ValuationReport{
		OutletID:    outletID,
		TotalValue:  total,
		Items:       rows,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// Movements lists an item's ledger history for [from, to). Histories are not
// cached; callers page through ranges and expect current data.
func (s *Service) Movements(ctx context.Context, itemID int64, from, to time.Time) ([]MovementRow, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("reporting: empty range %s..%s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	return s.repo.MovementsByItem(ctx, itemID, from, to)
}

// WasteSummary aggregates write-offs per item for an outlet and period.
func (s *Service) WasteSummary(ctx context.Context, outletID int64, from, to time.Time) (WasteReport, error) {
	if !to.After(from) {
		return WasteReport{}, fmt.Errorf("reporting: empty range %s..%s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	key := fmt.Sprintf("reporting:waste:%d:%d:%d", outletID, from.Unix(), to.Unix())
	result, err := s.do(ctx, key, func(ctx context.Context) (interface{}, error) {
		var report WasteReport
		err := s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (interface{}, error) {
			rows, err := s.repo.WasteRows(ctx, outletID, from, to)
			if err != nil {
				return nil, err
			}
			total := decimal.Zero
			for _, row := range rows {
				total = total.Add(row.Cost)
			}
			return WasteReport{OutletID: outletID, From: from, To: to, TotalCost: total, Items: rows}, nil
		})
		return report, err
	})
	if err != nil {
		return WasteReport{}, err
	}
	return result.(WasteReport), nil
}

func (s *Service) do(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	resultChan := s.flight.DoChan(key, func() (interface{}, error) {
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		return res.Val, res.Err
	}
}
