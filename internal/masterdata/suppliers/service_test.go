package suppliers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/greenstock-ops/greenstock/internal/masterdata/shared"
	internalShared "github.com/greenstock-ops/greenstock/internal/shared"
)

type memoryRepo struct {
	suppliers map[int64]Supplier
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{suppliers: make(map[int64]Supplier)}
}

func (r *memoryRepo) List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error) {
	var out []Supplier
	for _, s := range r.suppliers {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Supplier, error) {
	s, ok := r.suppliers[id]
	if !ok {
		return Supplier{}, internalShared.ErrNotFound
	}
	return s, nil
}

func (r *memoryRepo) Create(ctx context.Context, s Supplier) (Supplier, error) {
	r.nextID++
	s.ID = r.nextID
	s.Active = true
	r.suppliers[s.ID] = s
	return s, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, s Supplier) error {
	if _, ok := r.suppliers[id]; !ok {
		return internalShared.ErrNotFound
	}
	s.ID = id
	r.suppliers[id] = s
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.suppliers[id]; !ok {
		return internalShared.ErrNotFound
	}
	delete(r.suppliers, id)
	return nil
}

func TestCreateRequiresCodeAndName(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Create(context.Background(), Supplier{Name: "Distribuidora Sur"}, 1)
	require.ErrorIs(t, err, internalShared.ErrValidation)

	_, err = svc.Create(context.Background(), Supplier{Code: "DS-01"}, 1)
	require.ErrorIs(t, err, internalShared.ErrValidation)

	created, err := svc.Create(context.Background(), Supplier{Code: "DS-01", Name: "Distribuidora Sur"}, 1)
	require.NoError(t, err)
	require.True(t, created.Active)
}

func TestCreateRejectsBadEmail(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Create(context.Background(), Supplier{Code: "DS-01", Name: "Distribuidora Sur", Email: "not-an-email"}, 1)
	require.ErrorIs(t, err, internalShared.ErrValidation)
}

func TestUpdateAndDelete(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	created, err := svc.Create(context.Background(), Supplier{Code: "DS-01", Name: "Distribuidora Sur"}, 1)
	require.NoError(t, err)

	created.Name = "Distribuidora Sur SRL"
	require.NoError(t, svc.Update(context.Background(), created.ID, created, 1))

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, "Distribuidora Sur SRL", got.Name)

	require.NoError(t, svc.Delete(context.Background(), created.ID, 1))
	_, err = svc.Get(context.Background(), created.ID)
	require.ErrorIs(t, err, internalShared.ErrNotFound)
}
