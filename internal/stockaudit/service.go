package stockaudit

import (
	"context"
	"fmt"
	"time"

	"github.com/greenstock-ops/greenstock/internal/activity"
	"github.com/greenstock-ops/greenstock/internal/shared"
)

// ProductSnapshot is the slice of a product an audit cares about.
type ProductSnapshot struct {
	ID       int64
	Name     string
	Quantity int64
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetAudit(ctx context.Context, id int64) (Audit, error)
	ListAudits(ctx context.Context, filter Filter) ([]Audit, int, error)
	ListDetails(ctx context.Context, auditID int64) ([]AuditDetail, error)
	GetDetail(ctx context.Context, id int64) (AuditDetail, error)
	Progress(ctx context.Context, auditID int64) (Progress, error)
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	InsertAudit(ctx context.Context, audit Audit) (int64, error)
	InsertDetails(ctx context.Context, details []AuditDetail) error
	GetAuditForUpdate(ctx context.Context, id int64) (Audit, error)
	GetDetailForUpdate(ctx context.Context, id int64) (AuditDetail, error)
	UpdateDetail(ctx context.Context, detail AuditDetail) error
	ListDetailsForUpdate(ctx context.Context, auditID int64) ([]AuditDetail, error)
	UpdateAuditStatus(ctx context.Context, id int64, status Status, completedAt *time.Time) error
	DeleteAudit(ctx context.Context, id int64) error
	ListActiveProducts(ctx context.Context) ([]ProductSnapshot, error)
	SetProductQuantity(ctx context.Context, productID, quantity int64) error
}

// ActivityPort records action history entries.
type ActivityPort interface {
	Record(ctx context.Context, e activity.Entry) error
}

// Service drives the audit workflow.
type Service struct {
	repo     RepositoryPort
	activity ActivityPort
	clock    shared.Clock
}

// NewService builds Service.
func NewService(repo RepositoryPort, act ActivityPort, clock shared.Clock) *Service {
	return &Service{repo: repo, activity: act, clock: clock}
}

// Create opens a new audit and snapshots every active product into a detail
// row. The snapshot freezes the system quantities; later stock movements do
// not touch it. An empty product set still yields a valid audit.
func (s *Service) Create(ctx context.Context, notes string, actorID int64) (Audit, error) {
	audit := Audit{
		Status:    StatusInProgress,
		AuditDate: s.today(),
		Notes:     notes,
		CreatedBy: actorID,
		CreatedAt: s.now(),
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertAudit(ctx, audit)
		if err != nil {
			return err
		}
		audit.ID = id
		products, err := tx.ListActiveProducts(ctx)
		if err != nil {
			return err
		}
		if len(products) == 0 {
			return nil
		}
		details := make([]AuditDetail, 0, len(products))
		for _, p := range products {
			details = append(details, AuditDetail{
				AuditID:        audit.ID,
				ProductID:      p.ID,
				ProductName:    p.Name,
				SystemQuantity: p.Quantity,
				PhysicalCount:  0,
				Discrepancy:    -p.Quantity,
			})
		}
		return tx.InsertDetails(ctx, details)
	})
	if err != nil {
		return Audit{}, err
	}
	s.record(ctx, activity.ActionCreated, audit.ID, audit.AuditDate.Format("2006-01-02"), notes, actorID)
	return audit, nil
}

// Get fetches one audit.
func (s *Service) Get(ctx context.Context, id int64) (Audit, error) {
	return s.repo.GetAudit(ctx, id)
}

// List lists audits with filters and pagination.
func (s *Service) List(ctx context.Context, filter Filter) ([]Audit, int, error) {
	return s.repo.ListAudits(ctx, filter)
}

// ListDetails returns the detail rows of an audit.
func (s *Service) ListDetails(ctx context.Context, auditID int64) ([]AuditDetail, error) {
	if _, err := s.repo.GetAudit(ctx, auditID); err != nil {
		return nil, err
	}
	return s.repo.ListDetails(ctx, auditID)
}

// Progress returns the review counters of an audit.
func (s *Service) Progress(ctx context.Context, auditID int64) (Progress, error) {
	if _, err := s.repo.GetAudit(ctx, auditID); err != nil {
		return Progress{}, err
	}
	return s.repo.Progress(ctx, auditID)
}

// CountInput carries a physical count submission.
type CountInput struct {
	PhysicalCount int64
	// Type overrides the suggested discrepancy label when set.
	Type DiscrepancyType
	// Reviewed overrides the review flag; nil marks the row reviewed, as a
	// submitted count (zero included) is itself the act of reviewing.
	Reviewed     *bool
	Observations string
	ActorID      int64
}

// RecordCount stores a physical count on a detail row. Resubmitting is an
// idempotent overwrite of the previous count.
func (s *Service) RecordCount(ctx context.Context, detailID int64, input CountInput) (AuditDetail, error) {
	if input.PhysicalCount < 0 {
		return AuditDetail{}, fmt.Errorf("%w: physical count must be >= 0", shared.ErrValidation)
	}
	if input.Type != "" && !ValidDiscrepancyType(input.Type) {
		return AuditDetail{}, fmt.Errorf("%w: unknown discrepancy type %q", shared.ErrValidation, input.Type)
	}
	var detail AuditDetail
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		detail, err = tx.GetDetailForUpdate(ctx, detailID)
		if err != nil {
			return err
		}
		audit, err := tx.GetAuditForUpdate(ctx, detail.AuditID)
		if err != nil {
			return err
		}
		if audit.Status != StatusInProgress {
			return ErrAuditNotEditable
		}

		detail.PhysicalCount = input.PhysicalCount
		detail.Discrepancy = input.PhysicalCount - detail.SystemQuantity
		if input.Type != "" {
			detail.DiscrepancyType = input.Type
		} else {
			detail.DiscrepancyType = Classify(detail.Discrepancy)
		}
		detail.Observations = input.Observations
		reviewed := true
		if input.Reviewed != nil {
			reviewed = *input.Reviewed
		}
		detail.Reviewed = reviewed
		if reviewed {
			now := s.now()
			detail.ReviewedAt = &now
		} else {
			detail.ReviewedAt = nil
		}
		return tx.UpdateDetail(ctx, detail)
	})
	if err != nil {
		return AuditDetail{}, err
	}
	return detail, nil
}

// MarkReviewed flags a detail row as reviewed without changing its count.
func (s *Service) MarkReviewed(ctx context.Context, detailID int64) (AuditDetail, error) {
	var detail AuditDetail
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		detail, err = tx.GetDetailForUpdate(ctx, detailID)
		if err != nil {
			return err
		}
		audit, err := tx.GetAuditForUpdate(ctx, detail.AuditID)
		if err != nil {
			return err
		}
		if audit.Status != StatusInProgress {
			return ErrAuditNotEditable
		}
		detail.Reviewed = true
		now := s.now()
		detail.ReviewedAt = &now
		return tx.UpdateDetail(ctx, detail)
	})
	if err != nil {
		return AuditDetail{}, err
	}
	return detail, nil
}

// Complete closes the audit and applies every reviewed physical count to its
// product as the new on-hand quantity. Unreviewed rows are skipped. The whole
// reconciliation is one transaction, so a failure leaves both the audit and
// the products untouched and the call can be retried.
func (s *Service) Complete(ctx context.Context, auditID, actorID int64) (int, error) {
	updated := 0
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		audit, err := tx.GetAuditForUpdate(ctx, auditID)
		if err != nil {
			return err
		}
		if audit.Status != StatusInProgress {
			return ErrInvalidStateTransition
		}
		details, err := tx.ListDetailsForUpdate(ctx, auditID)
		if err != nil {
			return err
		}
		for _, d := range details {
			if !d.Reviewed {
				continue
			}
			if err := tx.SetProductQuantity(ctx, d.ProductID, d.PhysicalCount); err != nil {
				return err
			}
			updated++
		}
		completedAt := s.now()
		return tx.UpdateAuditStatus(ctx, auditID, StatusCompleted, &completedAt)
	})
	if err != nil {
		return 0, err
	}
	s.record(ctx, activity.ActionUpdated, auditID, "audit completed",
		fmt.Sprintf("%d products reconciled", updated), actorID)
	return updated, nil
}

// Cancel closes the audit without touching any product quantity.
func (s *Service) Cancel(ctx context.Context, auditID, actorID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		audit, err := tx.GetAuditForUpdate(ctx, auditID)
		if err != nil {
			return err
		}
		if audit.Status != StatusInProgress {
			return ErrInvalidStateTransition
		}
		return tx.UpdateAuditStatus(ctx, auditID, StatusCancelled, nil)
	})
	if err != nil {
		return err
	}
	s.record(ctx, activity.ActionUpdated, auditID, "audit cancelled", "", actorID)
	return nil
}

// Delete removes a closed audit and its details. In-progress audits must be
// cancelled first.
func (s *Service) Delete(ctx context.Context, auditID, actorID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		audit, err := tx.GetAuditForUpdate(ctx, auditID)
		if err != nil {
			return err
		}
		if audit.Status == StatusInProgress {
			return fmt.Errorf("%w: cancel the audit before deleting it", shared.ErrInvalidState)
		}
		return tx.DeleteAudit(ctx, auditID)
	})
	if err != nil {
		return err
	}
	s.record(ctx, activity.ActionDeleted, auditID, "audit deleted", "", actorID)
	return nil
}

func (s *Service) now() time.Time {
	if s.clock != nil {
		return s.clock.Now()
	}
	return time.Now()
}

func (s *Service) today() time.Time {
	if s.clock != nil {
		return s.clock.Today()
	}
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func (s *Service) record(ctx context.Context, action activity.Action, auditID int64, name, detail string, actorID int64) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Record(ctx, activity.Entry{
		Action:     action,
		Kind:       activity.KindAudit,
		ObjectID:   auditID,
		ObjectName: name,
		Detail:     detail,
		ActorID:    actorID,
		OccurredAt: s.now(),
	})
}
