package inventory

import (
	"context"
	"fmt"

	"github.com/mealgrid/mealgrid-rms/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, Store) error) error
	CreateItem(ctx context.Context, item Item) (int64, error)
	GetItem(ctx context.Context, id int64) (Item, error)
	ListItems(ctx context.Context, outletID int64) ([]Item, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns the item registry and the ledger operations reachable without
// a purchase order: waste write-offs and manual adjustments. Receipts enter
// only through goods receiving.
type Service struct {
	repo   RepositoryPort
	ledger *Ledger
	audit  AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, ledger *Ledger, audit AuditPort) *Service {
	return &Service{repo: repo, ledger: ledger, audit: audit}
}

// CreateItem registers a new inventory item with zero stock.
func (s *Service) CreateItem(ctx context.Context, input CreateItemInput) (Item, error) {
	if input.Name == "" || input.Unit == "" || input.OutletID == 0 {
		return Item{}, ErrValidation
	}
	if input.ReorderPoint.Valid && input.ReorderPoint.Decimal.Sign() < 0 {
		return Item{}, ErrValidation
	}
	item := Item{
		OutletID:     input.OutletID,
		SKU:          input.SKU,
		Name:         input.Name,
		Unit:         input.Unit,
		ReorderPoint: input.ReorderPoint,
		TrackBatch:   input.TrackBatch,
	}
	id, err := s.repo.CreateItem(ctx, item)
	if err != nil {
		return Item{}, err
	}
	item.ID = id
	s.recordAudit(ctx, 0, "ITEM_CREATE", id, map[string]any{"name": item.Name, "outlet_id": item.OutletID})
	return item, nil
}

// GetItem returns one item.
func (s *Service) GetItem(ctx context.Context, id int64) (Item, error) {
	return s.repo.GetItem(ctx, id)
}

// ListItems returns items for an outlet.
func (s *Service) ListItems(ctx context.Context, outletID int64) ([]Item, error) {
	return s.repo.ListItems(ctx, outletID)
}

// RecordWaste posts a waste movement inside its own transaction.
func (s *Service) RecordWaste(ctx context.Context, input WasteInput) (StockMovement, error) {
	var movement StockMovement
	err := s.repo.WithTx(ctx, func(ctx context.Context, store Store) error {
		var err error
		_, movement, err = s.ledger.ApplyWaste(ctx, store, input)
		return err
	})
	if err != nil {
		return StockMovement{}, err
	}
	s.recordAudit(ctx, input.PerformedBy, "STOCK_WASTE", input.ItemID, map[string]any{"qty": input.Quantity.String(), "reason": input.Reason})
	return movement, nil
}

// RecordAdjustment posts a manual correction inside its own transaction.
func (s *Service) RecordAdjustment(ctx context.Context, input AdjustmentInput) (StockMovement, error) {
	var movement StockMovement
	err := s.repo.WithTx(ctx, func(ctx context.Context, store Store) error {
		var err error
		_, movement, err = s.ledger.ApplyAdjustment(ctx, store, input)
		return err
	})
	if err != nil {
		return StockMovement{}, err
	}
	s.recordAudit(ctx, input.PerformedBy, "STOCK_ADJUST", input.ItemID, map[string]any{"qty": input.Quantity.String(), "note": input.Note})
	return movement, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "inventory", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}
