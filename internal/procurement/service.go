package procurement

import (
	"context"
	"fmt"
	"time"

	"github.com/greenstock-ops/greenstock/internal/activity"
	"github.com/greenstock-ops/greenstock/internal/inventory"
	"github.com/greenstock-ops/greenstock/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (PurchaseRequest, error)
	List(ctx context.Context, filter Filter) ([]PurchaseRequest, int, error)
	Create(ctx context.Context, pr PurchaseRequest) (PurchaseRequest, error)
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (PurchaseRequest, error)
	Update(ctx context.Context, pr PurchaseRequest) error
}

// InventoryPort creates stock entries on reception.
type InventoryPort interface {
	CreateEntry(ctx context.Context, input inventory.EntryInput) (inventory.StockEntry, error)
}

// ActivityPort records action history entries.
type ActivityPort interface {
	Record(ctx context.Context, e activity.Entry) error
}

// Service drives the purchase request lifecycle.
type Service struct {
	repo      RepositoryPort
	inventory InventoryPort
	activity  ActivityPort
	clock     shared.Clock
}

// NewService builds Service.
func NewService(repo RepositoryPort, inv InventoryPort, act ActivityPort, clock shared.Clock) *Service {
	return &Service{repo: repo, inventory: inv, activity: act, clock: clock}
}

// CreateInput describes a new purchase request.
type CreateInput struct {
	ProductID    int64
	SupplierID   int64
	Quantity     int64
	UnitPrice    float64
	Observations string
	ActorID      int64
}

// Create registers a draft purchase request. Total cost is computed here,
// never accepted from the caller.
func (s *Service) Create(ctx context.Context, input CreateInput) (PurchaseRequest, error) {
	if input.ProductID == 0 {
		return PurchaseRequest{}, fmt.Errorf("%w: product required", shared.ErrValidation)
	}
	if input.SupplierID == 0 {
		return PurchaseRequest{}, fmt.Errorf("%w: supplier required", shared.ErrValidation)
	}
	if input.Quantity <= 0 {
		return PurchaseRequest{}, fmt.Errorf("%w: quantity must be positive", shared.ErrValidation)
	}
	if input.UnitPrice < 0 {
		return PurchaseRequest{}, fmt.Errorf("%w: unit price must be >= 0", shared.ErrValidation)
	}
	pr := PurchaseRequest{
		ProductID:    input.ProductID,
		SupplierID:   input.SupplierID,
		Quantity:     input.Quantity,
		UnitPrice:    input.UnitPrice,
		TotalCost:    float64(input.Quantity) * input.UnitPrice,
		Status:       StatusDraft,
		Observations: input.Observations,
		RequestedBy:  input.ActorID,
		RequestedAt:  s.now(),
	}
	created, err := s.repo.Create(ctx, pr)
	if err != nil {
		return PurchaseRequest{}, err
	}
	s.record(ctx, activity.ActionCreated, created.ID,
		fmt.Sprintf("request for %d units", created.Quantity), created.Observations, input.ActorID)
	return created, nil
}

// Get fetches one purchase request.
func (s *Service) Get(ctx context.Context, id int64) (PurchaseRequest, error) {
	return s.repo.Get(ctx, id)
}

// List lists purchase requests with filters and pagination.
func (s *Service) List(ctx context.Context, filter Filter) ([]PurchaseRequest, int, error) {
	return s.repo.List(ctx, filter)
}

// ChangeStatus moves a request along the lifecycle graph, stamping the
// matching timestamp. Completion is rejected here; it only happens through
// VerifyReception so the stock entry is never skipped.
func (s *Service) ChangeStatus(ctx context.Context, id int64, to Status, actorID int64) (PurchaseRequest, error) {
	if to == StatusCompleted {
		return PurchaseRequest{}, fmt.Errorf("%w: completion requires reception", shared.ErrInvalidState)
	}
	var pr PurchaseRequest
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		pr, err = tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(pr.Status, to) {
			return ErrInvalidTransition
		}
		pr.Status = to
		if to == StatusAccepted {
			now := s.now()
			pr.AcceptedAt = &now
		}
		return tx.Update(ctx, pr)
	})
	if err != nil {
		return PurchaseRequest{}, err
	}
	s.record(ctx, activity.ActionUpdated, pr.ID, "status "+string(to), "", actorID)
	return pr, nil
}

// ReceptionInput describes what actually arrived.
type ReceptionInput struct {
	ReceivedQty   int64
	FinalPrice    float64
	InvoiceNumber string
	ActorID       int64
}

// VerifyReception records what arrived against an in-process request,
// completes it, and books the received stock as an inventory entry, which
// updates the product quantity and its weighted average cost.
func (s *Service) VerifyReception(ctx context.Context, id int64, input ReceptionInput) (PurchaseRequest, error) {
	if input.ReceivedQty <= 0 {
		return PurchaseRequest{}, fmt.Errorf("%w: received quantity must be positive", shared.ErrValidation)
	}
	if input.FinalPrice < 0 {
		return PurchaseRequest{}, fmt.Errorf("%w: final price must be >= 0", shared.ErrValidation)
	}
	var pr PurchaseRequest
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		pr, err = tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if pr.Status != StatusInProcess {
			return ErrNotReceivable
		}
		now := s.now()
		pr.Status = StatusCompleted
		pr.ReceivedQty = input.ReceivedQty
		pr.FinalPrice = input.FinalPrice
		if input.FinalPrice == 0 {
			pr.FinalPrice = pr.UnitPrice
		}
		if input.InvoiceNumber != "" {
			pr.InvoiceNumber = input.InvoiceNumber
		}
		pr.ReceivedAt = &now
		pr.ReceivedBy = input.ActorID
		pr.CompletedAt = &now

		// Book the stock before persisting COMPLETED. A failed booking
		// rolls the status change back and the request stays IN_PROCESS,
		// so reception can be retried.
		if _, err := s.inventory.CreateEntry(ctx, inventory.EntryInput{
			ProductID:     pr.ProductID,
			SupplierID:    pr.SupplierID,
			Quantity:      pr.ReceivedQty,
			UnitCost:      pr.FinalPrice,
			InvoiceNumber: pr.InvoiceNumber,
			Note:          fmt.Sprintf("reception of purchase request %d", pr.ID),
			ActorID:       input.ActorID,
		}); err != nil {
			return fmt.Errorf("book received stock: %w", err)
		}
		return tx.Update(ctx, pr)
	})
	if err != nil {
		return PurchaseRequest{}, err
	}

	s.record(ctx, activity.ActionUpdated, pr.ID,
		fmt.Sprintf("received %d units", pr.ReceivedQty), pr.InvoiceNumber, input.ActorID)
	return pr, nil
}

func (s *Service) now() time.Time {
	if s.clock != nil {
		return s.clock.Now()
	}
	return time.Now()
}

func (s *Service) record(ctx context.Context, action activity.Action, id int64, name, detail string, actorID int64) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Record(ctx, activity.Entry{
		Action:     action,
		Kind:       activity.KindPurchaseRequest,
		ObjectID:   id,
		ObjectName: name,
		Detail:     detail,
		ActorID:    actorID,
		OccurredAt: s.now(),
	})
}
