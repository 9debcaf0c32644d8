package procurement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/greenstock-ops/greenstock/internal/inventory"
	"github.com/greenstock-ops/greenstock/internal/shared"
)

type memoryPRRepo struct {
	requests map[int64]PurchaseRequest
	nextID   int64
}

type memoryPRTx struct {
	repo *memoryPRRepo
}

func newMemoryPRRepo() *memoryPRRepo {
	return &memoryPRRepo{requests: make(map[int64]PurchaseRequest)}
}

func (r *memoryPRRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryPRTx{repo: r})
}

func (r *memoryPRRepo) Get(ctx context.Context, id int64) (PurchaseRequest, error) {
	pr, ok := r.requests[id]
	if !ok {
		return PurchaseRequest{}, shared.ErrNotFound
	}
	return pr, nil
}

func (r *memoryPRRepo) List(ctx context.Context, filter Filter) ([]PurchaseRequest, int, error) {
	var out []PurchaseRequest
	for _, pr := range r.requests {
		if filter.Status != "" && pr.Status != filter.Status {
			continue
		}
		out = append(out, pr)
	}
	return out, len(out), nil
}

func (r *memoryPRRepo) Create(ctx context.Context, pr PurchaseRequest) (PurchaseRequest, error) {
	r.nextID++
	pr.ID = r.nextID
	r.requests[pr.ID] = pr
	return pr, nil
}

func (t *memoryPRTx) GetForUpdate(ctx context.Context, id int64) (PurchaseRequest, error) {
	return t.repo.Get(ctx, id)
}

func (t *memoryPRTx) Update(ctx context.Context, pr PurchaseRequest) error {
	if _, ok := t.repo.requests[pr.ID]; !ok {
		return shared.ErrNotFound
	}
	t.repo.requests[pr.ID] = pr
	return nil
}

type fakeInventory struct {
	entries []inventory.EntryInput
	err     error
}

var errBookingDown = errors.New("stock booking unavailable")

func (f *fakeInventory) CreateEntry(ctx context.Context, input inventory.EntryInput) (inventory.StockEntry, error) {
	if f.err != nil {
		return inventory.StockEntry{}, f.err
	}
	f.entries = append(f.entries, input)
	return inventory.StockEntry{ID: int64(len(f.entries)), ProductID: input.ProductID, Quantity: input.Quantity}, nil
}

func newPRService(repo *memoryPRRepo, inv *fakeInventory) *Service {
	clock := shared.FixedClock{At: time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)}
	return NewService(repo, inv, nil, clock)
}

func seedRequest(t *testing.T, svc *Service) PurchaseRequest {
	t.Helper()
	pr, err := svc.Create(context.Background(), CreateInput{
		ProductID:  1,
		SupplierID: 2,
		Quantity:   40,
		UnitPrice:  2.5,
		ActorID:    9,
	})
	require.NoError(t, err)
	return pr
}

func advanceTo(t *testing.T, svc *Service, id int64, statuses ...Status) {
	t.Helper()
	for _, st := range statuses {
		_, err := svc.ChangeStatus(context.Background(), id, st, 9)
		require.NoError(t, err)
	}
}

func TestCreateComputesTotalCost(t *testing.T) {
	svc := newPRService(newMemoryPRRepo(), &fakeInventory{})

	pr := seedRequest(t, svc)
	require.Equal(t, StatusDraft, pr.Status)
	require.InDelta(t, 100.0, pr.TotalCost, 0.0001)
}

func TestCreateValidation(t *testing.T) {
	svc := newPRService(newMemoryPRRepo(), &fakeInventory{})

	_, err := svc.Create(context.Background(), CreateInput{SupplierID: 2, Quantity: 1})
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.Create(context.Background(), CreateInput{ProductID: 1, Quantity: 1})
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.Create(context.Background(), CreateInput{ProductID: 1, SupplierID: 2, Quantity: 0})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestLifecycleHappyPath(t *testing.T) {
	svc := newPRService(newMemoryPRRepo(), &fakeInventory{})
	pr := seedRequest(t, svc)

	advanceTo(t, svc, pr.ID, StatusSent, StatusAccepted, StatusInProcess)

	got, err := svc.Get(context.Background(), pr.ID)
	require.NoError(t, err)
	require.Equal(t, StatusInProcess, got.Status)
	require.NotNil(t, got.AcceptedAt)
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusDraft, StatusSent, true},
		{StatusDraft, StatusCancelled, true},
		{StatusDraft, StatusAccepted, false},
		{StatusSent, StatusAccepted, true},
		{StatusSent, StatusInProcess, false},
		{StatusAccepted, StatusInProcess, true},
		{StatusInProcess, StatusCompleted, true},
		{StatusInProcess, StatusSent, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusSent, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.ok, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestChangeStatusRejectsIllegalMove(t *testing.T) {
	svc := newPRService(newMemoryPRRepo(), &fakeInventory{})
	pr := seedRequest(t, svc)

	_, err := svc.ChangeStatus(context.Background(), pr.ID, StatusInProcess, 9)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestChangeStatusCannotComplete(t *testing.T) {
	svc := newPRService(newMemoryPRRepo(), &fakeInventory{})
	pr := seedRequest(t, svc)
	advanceTo(t, svc, pr.ID, StatusSent, StatusAccepted, StatusInProcess)

	_, err := svc.ChangeStatus(context.Background(), pr.ID, StatusCompleted, 9)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestVerifyReceptionBooksStockEntry(t *testing.T) {
	inv := &fakeInventory{}
	svc := newPRService(newMemoryPRRepo(), inv)
	pr := seedRequest(t, svc)
	advanceTo(t, svc, pr.ID, StatusSent, StatusAccepted, StatusInProcess)

	got, err := svc.VerifyReception(context.Background(), pr.ID, ReceptionInput{
		ReceivedQty:   38,
		FinalPrice:    2.8,
		InvoiceNumber: "FA-0001-00042",
		ActorID:       9,
	})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got.Status)
	require.EqualValues(t, 38, got.ReceivedQty)
	require.NotNil(t, got.ReceivedAt)
	require.NotNil(t, got.CompletedAt)

	require.Len(t, inv.entries, 1)
	entry := inv.entries[0]
	require.EqualValues(t, 1, entry.ProductID)
	require.EqualValues(t, 2, entry.SupplierID)
	require.EqualValues(t, 38, entry.Quantity)
	require.InDelta(t, 2.8, entry.UnitCost, 0.0001)
	require.Equal(t, "FA-0001-00042", entry.InvoiceNumber)
}

func TestVerifyReceptionDefaultsFinalPrice(t *testing.T) {
	inv := &fakeInventory{}
	svc := newPRService(newMemoryPRRepo(), inv)
	pr := seedRequest(t, svc)
	advanceTo(t, svc, pr.ID, StatusSent, StatusAccepted, StatusInProcess)

	got, err := svc.VerifyReception(context.Background(), pr.ID, ReceptionInput{ReceivedQty: 40, ActorID: 9})
	require.NoError(t, err)
	require.InDelta(t, 2.5, got.FinalPrice, 0.0001)
}

func TestVerifyReceptionStaysRetryableWhenBookingFails(t *testing.T) {
	inv := &fakeInventory{err: errBookingDown}
	repo := newMemoryPRRepo()
	svc := newPRService(repo, inv)
	pr := seedRequest(t, svc)
	advanceTo(t, svc, pr.ID, StatusSent, StatusAccepted, StatusInProcess)

	_, err := svc.VerifyReception(context.Background(), pr.ID, ReceptionInput{ReceivedQty: 38, ActorID: 9})
	require.ErrorIs(t, err, errBookingDown)

	got, err := svc.Get(context.Background(), pr.ID)
	require.NoError(t, err)
	require.Equal(t, StatusInProcess, got.Status)
	require.Nil(t, got.CompletedAt)
	require.Empty(t, inv.entries)

	inv.err = nil
	retried, err := svc.VerifyReception(context.Background(), pr.ID, ReceptionInput{ReceivedQty: 38, ActorID: 9})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, retried.Status)
	require.Len(t, inv.entries, 1)
}

func TestVerifyReceptionRequiresInProcess(t *testing.T) {
	svc := newPRService(newMemoryPRRepo(), &fakeInventory{})
	pr := seedRequest(t, svc)

	_, err := svc.VerifyReception(context.Background(), pr.ID, ReceptionInput{ReceivedQty: 40, ActorID: 9})
	require.ErrorIs(t, err, ErrNotReceivable)
}

func TestVerifyReceptionRejectsNonPositiveQuantity(t *testing.T) {
	svc := newPRService(newMemoryPRRepo(), &fakeInventory{})
	pr := seedRequest(t, svc)
	advanceTo(t, svc, pr.ID, StatusSent, StatusAccepted, StatusInProcess)

	_, err := svc.VerifyReception(context.Background(), pr.ID, ReceptionInput{ReceivedQty: 0, ActorID: 9})
	require.ErrorIs(t, err, shared.ErrValidation)
}
