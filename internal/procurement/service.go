package procurement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mealgrid/mealgrid-rms/internal/inventory"
	"github.com/mealgrid/mealgrid-rms/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPO(ctx context.Context, id int64) (PurchaseOrder, []PurchaseOrderItem, error)
	ListReceipts(ctx context.Context, poID int64) ([]GoodsReceipt, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates the purchase order workflow and goods receiving.
type Service struct {
	repo        RepositoryPort
	ledger      *inventory.Ledger
	audit       AuditPort
	idempotency *shared.IdempotencyStore
}

// NewService constructs the procurement service.
func NewService(repo RepositoryPort, ledger *inventory.Ledger, audit AuditPort, idem *shared.IdempotencyStore) *Service {
	return &Service{repo: repo, ledger: ledger, audit: audit, idempotency: idem}
}

// CreatePOInput describes a new purchase order.
type CreatePOInput struct {
	SupplierID int64
	OutletID   int64
	CreatedBy  int64
	Notes      string
	Items      []POItemInput
}

// POItemInput is one ordered line. TaxRate is a percentage.
type POItemInput struct {
	ItemID    int64
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	TaxRate   decimal.Decimal
}

var percent = decimal.NewFromInt(100)

// CreatePO persists a new order in DRAFT with totals computed from its lines.
func (s *Service) CreatePO(ctx context.Context, input CreatePOInput) (PurchaseOrder, error) {
	if input.SupplierID == 0 || input.OutletID == 0 || len(input.Items) == 0 {
		return PurchaseOrder{}, ErrMissingFields
	}
	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, line := range input.Items {
		if line.ItemID == 0 {
			return PurchaseOrder{}, ErrMissingFields
		}
		if line.Quantity.Sign() <= 0 {
			return PurchaseOrder{}, ErrInvalidQuantity
		}
		if line.UnitPrice.Sign() < 0 || line.TaxRate.Sign() < 0 {
			return PurchaseOrder{}, fmt.Errorf("%w: unit price and tax rate must be >= 0", ErrMissingFields)
		}
		lineTotal := line.Quantity.Mul(line.UnitPrice)
		subtotal = subtotal.Add(lineTotal)
		tax = tax.Add(lineTotal.Mul(line.TaxRate).Div(percent))
	}
	po := PurchaseOrder{
		SupplierID: input.SupplierID,
		OutletID:   input.OutletID,
		Status:     POStatusDraft,
		Subtotal:   subtotal,
		TaxAmount:  tax,
		Total:      subtotal.Add(tax),
		Notes:      input.Notes,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreatePO(ctx, po)
		if err != nil {
			return err
		}
		po.ID = id
		for _, line := range input.Items {
			if err := tx.InsertPOItem(ctx, PurchaseOrderItem{
				POID:      id,
				ItemID:    line.ItemID,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
				TaxRate:   line.TaxRate,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, input.CreatedBy, "PO_CREATE", po.ID, map[string]any{"supplier_id": po.SupplierID, "total": po.Total.String()})
	return po, nil
}

// SubmitPO moves a draft order into approval.
func (s *Service) SubmitPO(ctx context.Context, poID, employeeID int64) (PurchaseOrder, error) {
	return s.transition(ctx, poID, POStatusPendingApproval, employeeID, "PO_SUBMIT")
}

// ApprovePO approves a pending order, recording the approving employee.
func (s *Service) ApprovePO(ctx context.Context, poID, employeeID int64) (PurchaseOrder, error) {
	return s.transition(ctx, poID, POStatusApproved, employeeID, "PO_APPROVE")
}

// SendPO marks an approved order as sent to the supplier, opening it for
// receiving.
func (s *Service) SendPO(ctx context.Context, poID, employeeID int64) (PurchaseOrder, error) {
	return s.transition(ctx, poID, POStatusSent, employeeID, "PO_SEND")
}

// CancelPO cancels an order that has not started receiving.
func (s *Service) CancelPO(ctx context.Context, poID, employeeID int64) (PurchaseOrder, error) {
	return s.transition(ctx, poID, POStatusCancelled, employeeID, "PO_CANCEL")
}

func (s *Service) transition(ctx context.Context, poID int64, target POStatus, employeeID int64, auditAction string) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		po, err = tx.GetPOForUpdate(ctx, poID)
		if err != nil {
			return err
		}
		if err := Transition(&po, target, employeeID, time.Now().UTC()); err != nil {
			return err
		}
		if err := tx.UpdatePOStatus(ctx, po.ID, po.Status); err != nil {
			return err
		}
		if target == POStatusApproved && po.ApprovedBy != nil {
			return tx.SetPOApproval(ctx, po.ID, *po.ApprovedBy, *po.ApprovedAt)
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, employeeID, auditAction, po.ID, map[string]any{"status": string(po.Status)})
	return po, nil
}

// GetPOWithReceipts returns the order, its lines and every receipt posted
// against it. Read-only; repeated calls without intervening writes return
// identical data.
func (s *Service) GetPOWithReceipts(ctx context.Context, poID int64) (POWithReceipts, error) {
	po, items, err := s.repo.GetPO(ctx, poID)
	if err != nil {
		return POWithReceipts{}, err
	}
	receipts, err := s.repo.ListReceipts(ctx, poID)
	if err != nil {
		return POWithReceipts{}, err
	}
	return POWithReceipts{Order: po, Items: items, Receipts: receipts}, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	s.recordAuditEvent(ctx, uuid.Nil, actorID, action, entityID, meta)
}

func (s *Service) recordAuditEvent(ctx context.Context, eventID uuid.UUID, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{EventID: eventID, ActorID: actorID, Action: action, Entity: "procurement", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}
