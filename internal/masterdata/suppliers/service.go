package suppliers

import (
	"context"
	"time"

	"github.com/greenstock-ops/greenstock/internal/activity"
	"github.com/greenstock-ops/greenstock/internal/masterdata/shared"
	internalShared "github.com/greenstock-ops/greenstock/internal/shared"
)

// ActivityPort records action history entries.
type ActivityPort interface {
	Record(ctx context.Context, e activity.Entry) error
}

type Service struct {
	repo     Repository
	activity ActivityPort
}

func NewService(repo Repository, act ActivityPort) *Service {
	return &Service{repo: repo, activity: act}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, internalShared.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, supplier Supplier, actorID int64) (Supplier, error) {
	if err := s.validate(supplier); err != nil {
		return Supplier{}, err
	}
	created, err := s.repo.Create(ctx, supplier)
	if err != nil {
		return Supplier{}, err
	}
	s.record(ctx, activity.ActionCreated, created.ID, created.Name, actorID)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, supplier Supplier, actorID int64) error {
	if id <= 0 {
		return internalShared.ErrNotFound
	}
	if err := s.validate(supplier); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, id, supplier); err != nil {
		return err
	}
	s.record(ctx, activity.ActionUpdated, id, supplier.Name, actorID)
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	if id <= 0 {
		return internalShared.ErrNotFound
	}
	supplier, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, activity.ActionDeleted, id, supplier.Name, actorID)
	return nil
}

func (s *Service) record(ctx context.Context, action activity.Action, id int64, name string, actorID int64) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Record(ctx, activity.Entry{
		Action:     action,
		Kind:       activity.KindSupplier,
		ObjectID:   id,
		ObjectName: name,
		ActorID:    actorID,
		OccurredAt: time.Now(),
	})
}
