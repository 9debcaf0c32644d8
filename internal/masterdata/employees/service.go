package employees

import (
	"context"
	"fmt"
	"net/mail"
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

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Employee, int, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Employee, error) {
	if id <= 0 {
		return Employee{}, internalShared.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, employee Employee, actorID int64) (Employee, error) {
	if err := s.validate(employee); err != nil {
		return Employee{}, err
	}
	created, err := s.repo.Create(ctx, employee)
	if err != nil {
		return Employee{}, err
	}
	s.record(ctx, activity.ActionCreated, created.ID, created.FullName(), actorID)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, employee Employee, actorID int64) error {
	if id <= 0 {
		return internalShared.ErrNotFound
	}
	if err := s.validate(employee); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, id, employee); err != nil {
		return err
	}
	s.record(ctx, activity.ActionUpdated, id, employee.FullName(), actorID)
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	if id <= 0 {
		return internalShared.ErrNotFound
	}
	employee, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, activity.ActionDeleted, id, employee.FullName(), actorID)
	return nil
}

// FullName joins first and last name for display and logging.
func (e Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

func (s *Service) validate(e Employee) error {
	if strings.TrimSpace(e.FirstName) == "" {
		return fmt.Errorf("%w: employee first name is required", internalShared.ErrValidation)
	}
	if strings.TrimSpace(e.LastName) == "" {
		return fmt.Errorf("%w: employee last name is required", internalShared.ErrValidation)
	}
	if strings.TrimSpace(e.Email) == "" {
		return fmt.Errorf("%w: employee email is required", internalShared.ErrValidation)
	}
	if _, err := mail.ParseAddress(e.Email); err != nil {
		return fmt.Errorf("%w: invalid employee email", internalShared.ErrValidation)
	}
	if e.RoleID <= 0 {
		return fmt.Errorf("%w: employee role is required", internalShared.ErrValidation)
	}
	if e.Salary < 0 {
		return fmt.Errorf("%w: employee salary must be >= 0", internalShared.ErrValidation)
	}
	return nil
}

func (s *Service) record(ctx context.Context, action activity.Action, id int64, name string, actorID int64) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Record(ctx, activity.Entry{
		Action:     action,
		Kind:       activity.KindEmployee,
		ObjectID:   id,
		ObjectName: name,
		ActorID:    actorID,
		OccurredAt: time.Now(),
	})
}
