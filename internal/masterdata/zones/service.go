package zones

import (
	"context"
	"fmt"
	"strings"
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

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Zone, int, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Zone, error) {
	if id <= 0 {
		return Zone{}, internalShared.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, zone Zone, actorID int64) (Zone, error) {
	if strings.TrimSpace(zone.Name) == "" {
		return Zone{}, fmt.Errorf("%w: zone name is required", internalShared.ErrValidation)
	}
	created, err := s.repo.Create(ctx, zone)
	if err != nil {
		return Zone{}, err
	}
	s.record(ctx, activity.ActionCreated, created.ID, created.Name, actorID)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, zone Zone, actorID int64) error {
	if id <= 0 {
		return internalShared.ErrNotFound
	}
	if strings.TrimSpace(zone.Name) == "" {
		return fmt.Errorf("%w: zone name is required", internalShared.ErrValidation)
	}
	if err := s.repo.Update(ctx, id, zone); err != nil {
		return err
	}
	s.record(ctx, activity.ActionUpdated, id, zone.Name, actorID)
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	if id <= 0 {
		return internalShared.ErrNotFound
	}
	zone, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, activity.ActionDeleted, id, zone.Name, actorID)
	return nil
}

func (s *Service) record(ctx context.Context, action activity.Action, id int64, name string, actorID int64) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Record(ctx, activity.Entry{
		Action:     action,
		Kind:       activity.KindZone,
		ObjectID:   id,
		ObjectName: name,
		ActorID:    actorID,
		OccurredAt: time.Now(),
	})
}
