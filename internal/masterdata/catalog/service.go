package catalog

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

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Item, int, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Item, error) {
	if id <= 0 {
		return Item{}, internalShared.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, item Item, actorID int64) (Item, error) {
	if err := s.validate(item); err != nil {
		return Item{}, err
	}
	created, err := s.repo.Create(ctx, item)
	if err != nil {
		return Item{}, err
	}
	s.record(ctx, activity.ActionCreated, created.ID, created.Name, actorID)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, item Item, actorID int64) error {
	if id <= 0 {
		return internalShared.ErrNotFound
	}
	if err := s.validate(item); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, id, item); err != nil {
		return err
	}
	s.record(ctx, activity.ActionUpdated, id, item.Name, actorID)
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	if id <= 0 {
		return internalShared.ErrNotFound
	}
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, activity.ActionDeleted, id, item.Name, actorID)
	return nil
}

func (s *Service) validate(item Item) error {
	if item.SupplierID <= 0 {
		return fmt.Errorf("%w: catalog item supplier is required", internalShared.ErrValidation)
	}
	if strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("%w: catalog item name is required", internalShared.ErrValidation)
	}
	if strings.TrimSpace(item.ProductCode) == "" {
		return fmt.Errorf("%w: catalog item product code is required", internalShared.ErrValidation)
	}
	if item.ListPrice < 0 || item.PurchasePrice < 0 {
		return fmt.Errorf("%w: catalog item prices must be >= 0", internalShared.ErrValidation)
	}
	return nil
}

func (s *Service) record(ctx context.Context, action activity.Action, id int64, name string, actorID int64) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Record(ctx, activity.Entry{
		Action:     action,
		Kind:       activity.KindCatalogItem,
		ObjectID:   id,
		ObjectName: name,
		ActorID:    actorID,
		OccurredAt: time.Now(),
	})
}
