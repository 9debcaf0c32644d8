package stockaudit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/greenstock-ops/greenstock/internal/shared"
)

type memoryAuditRepo struct {
	audits   map[int64]Audit
	details  map[int64]AuditDetail
	products map[int64]stockedProduct
	nextID   int64
}

// stockedProduct mirrors a product row; only active ones feed audit snapshots.
type stockedProduct struct {
	ProductSnapshot
	Active bool
}

func activeProduct(p ProductSnapshot) stockedProduct {
	return stockedProduct{ProductSnapshot: p, Active: true}
}

func inactiveProduct(p ProductSnapshot) stockedProduct {
	return stockedProduct{ProductSnapshot: p}
}

type memoryAuditTx struct {
	repo *memoryAuditRepo
}

func newMemoryAuditRepo() *memoryAuditRepo {
	return &memoryAuditRepo{
		audits:   make(map[int64]Audit),
		details:  make(map[int64]AuditDetail),
		products: make(map[int64]stockedProduct),
	}
}

func (r *memoryAuditRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryAuditTx{repo: r})
}

func (r *memoryAuditRepo) GetAudit(ctx context.Context, id int64) (Audit, error) {
	a, ok := r.audits[id]
	if !ok {
		return Audit{}, shared.ErrNotFound
	}
	return a, nil
}

func (r *memoryAuditRepo) ListAudits(ctx context.Context, filter Filter) ([]Audit, int, error) {
	var out []Audit
	for _, a := range r.audits {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, a)
	}
	return out, len(out), nil
}

func (r *memoryAuditRepo) ListDetails(ctx context.Context, auditID int64) ([]AuditDetail, error) {
	var out []AuditDetail
	for _, d := range r.details {
		if d.AuditID == auditID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memoryAuditRepo) GetDetail(ctx context.Context, id int64) (AuditDetail, error) {
	d, ok := r.details[id]
	if !ok {
		return AuditDetail{}, shared.ErrNotFound
	}
	return d, nil
}

func (r *memoryAuditRepo) Progress(ctx context.Context, auditID int64) (Progress, error) {
	var p Progress
	for _, d := range r.details {
		if d.AuditID != auditID {
			continue
		}
		p.Total++
		if d.Reviewed {
			p.Reviewed++
			if d.Discrepancy != 0 {
				p.WithDiscrepancy++
			}
		} else {
			p.Pending++
		}
	}
	return p, nil
}

func (t *memoryAuditTx) InsertAudit(ctx context.Context, a Audit) (int64, error) {
	t.repo.nextID++
	a.ID = t.repo.nextID
	t.repo.audits[a.ID] = a
	return a.ID, nil
}

func (t *memoryAuditTx) InsertDetails(ctx context.Context, details []AuditDetail) error {
	seen := make(map[int64]bool)
	for _, d := range details {
		if seen[d.ProductID] {
			return ErrDuplicateDetail
		}
		seen[d.ProductID] = true
		t.repo.nextID++
		d.ID = t.repo.nextID
		t.repo.details[d.ID] = d
	}
	return nil
}

func (t *memoryAuditTx) GetAuditForUpdate(ctx context.Context, id int64) (Audit, error) {
	return t.repo.GetAudit(ctx, id)
}

func (t *memoryAuditTx) GetDetailForUpdate(ctx context.Context, id int64) (AuditDetail, error) {
	return t.repo.GetDetail(ctx, id)
}

func (t *memoryAuditTx) UpdateDetail(ctx context.Context, d AuditDetail) error {
	if _, ok := t.repo.details[d.ID]; !ok {
		return shared.ErrNotFound
	}
	t.repo.details[d.ID] = d
	return nil
}

func (t *memoryAuditTx) ListDetailsForUpdate(ctx context.Context, auditID int64) ([]AuditDetail, error) {
	return t.repo.ListDetails(ctx, auditID)
}

func (t *memoryAuditTx) UpdateAuditStatus(ctx context.Context, id int64, status Status, completedAt *time.Time) error {
	a, ok := t.repo.audits[id]
	if !ok {
		return shared.ErrNotFound
	}
	a.Status = status
	a.CompletedAt = completedAt
	t.repo.audits[id] = a
	return nil
}

func (t *memoryAuditTx) DeleteAudit(ctx context.Context, id int64) error {
	if _, ok := t.repo.audits[id]; !ok {
		return shared.ErrNotFound
	}
	for detailID, d := range t.repo.details {
		if d.AuditID == id {
			delete(t.repo.details, detailID)
		}
	}
	delete(t.repo.audits, id)
	return nil
}

func (t *memoryAuditTx) ListActiveProducts(ctx context.Context) ([]ProductSnapshot, error) {
	var out []ProductSnapshot
	for _, p := range t.repo.products {
		if !p.Active {
			continue
		}
		out = append(out, p.ProductSnapshot)
	}
	return out, nil
}

func (t *memoryAuditTx) SetProductQuantity(ctx context.Context, productID, quantity int64) error {
	p, ok := t.repo.products[productID]
	if !ok {
		return shared.ErrNotFound
	}
	p.Quantity = quantity
	t.repo.products[productID] = p
	return nil
}

var testClock = shared.FixedClock{At: time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)}

func newAuditService(repo *memoryAuditRepo) *Service {
	return NewService(repo, nil, testClock)
}

func detailForProduct(t *testing.T, repo *memoryAuditRepo, auditID, productID int64) AuditDetail {
	t.Helper()
	for _, d := range repo.details {
		if d.AuditID == auditID && d.ProductID == productID {
			return d
		}
	}
	t.Fatalf("no detail for product %d in audit %d", productID, auditID)
	return AuditDetail{}
}

func TestCreateSnapshotsActiveProducts(t *testing.T) {
	repo := newMemoryAuditRepo()
	repo.products[1] = activeProduct(ProductSnapshot{ID: 1, Name: "Harina", Quantity: 30})
	repo.products[2] = activeProduct(ProductSnapshot{ID: 2, Name: "Azucar", Quantity: 0})
	svc := newAuditService(repo)

	audit, err := svc.Create(context.Background(), "cierre de mes", 7)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, audit.Status)
	require.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), audit.AuditDate)

	details, err := svc.ListDetails(context.Background(), audit.ID)
	require.NoError(t, err)
	require.Len(t, details, 2)

	d := detailForProduct(t, repo, audit.ID, 1)
	require.EqualValues(t, 30, d.SystemQuantity)
	require.EqualValues(t, 0, d.PhysicalCount)
	require.EqualValues(t, -30, d.Discrepancy)
	require.False(t, d.Reviewed)
	require.Empty(t, d.DiscrepancyType)
}

func TestCreateExcludesInactiveProducts(t *testing.T) {
	repo := newMemoryAuditRepo()
	repo.products[1] = activeProduct(ProductSnapshot{ID: 1, Name: "Harina", Quantity: 12})
	repo.products[2] = activeProduct(ProductSnapshot{ID: 2, Name: "Azucar", Quantity: 0})
	repo.products[3] = inactiveProduct(ProductSnapshot{ID: 3, Name: "Levadura", Quantity: 99})
	svc := newAuditService(repo)

	audit, err := svc.Create(context.Background(), "", 7)
	require.NoError(t, err)

	details, err := svc.ListDetails(context.Background(), audit.ID)
	require.NoError(t, err)
	require.Len(t, details, 2)

	d := detailForProduct(t, repo, audit.ID, 1)
	require.EqualValues(t, 12, d.SystemQuantity)
	require.EqualValues(t, -12, d.Discrepancy)
	d = detailForProduct(t, repo, audit.ID, 2)
	require.EqualValues(t, 0, d.SystemQuantity)
	for _, got := range details {
		require.NotEqualValues(t, 3, got.ProductID)
	}
}

func TestCreateWithNoActiveProducts(t *testing.T) {
	repo := newMemoryAuditRepo()
	svc := newAuditService(repo)

	audit, err := svc.Create(context.Background(), "", 1)
	require.NoError(t, err)

	details, err := svc.ListDetails(context.Background(), audit.ID)
	require.NoError(t, err)
	require.Empty(t, details)
}

func TestSnapshotFrozenAgainstLaterStockMoves(t *testing.T) {
	repo := newMemoryAuditRepo()
	repo.products[1] = activeProduct(ProductSnapshot{ID: 1, Name: "Harina", Quantity: 30})
	svc := newAuditService(repo)

	audit, err := svc.Create(context.Background(), "", 1)
	require.NoError(t, err)

	// Stock moved after the audit opened.
	repo.products[1] = activeProduct(ProductSnapshot{ID: 1, Name: "Harina", Quantity: 99})

	d := detailForProduct(t, repo, audit.ID, 1)
	require.EqualValues(t, 30, d.SystemQuantity)
}

func TestRecordCountComputesDiscrepancy(t *testing.T) {
	repo := newMemoryAuditRepo()
	repo.products[1] = activeProduct(ProductSnapshot{ID: 1, Name: "Harina", Quantity: 30})
	svc := newAuditService(repo)

	audit, err := svc.Create(context.Background(), "", 1)
	require.NoError(t, err)
	d := detailForProduct(t, repo, audit.ID, 1)

	got, err := svc.RecordCount(context.Background(), d.ID, CountInput{PhysicalCount: 27, ActorID: 1})
	require.NoError(t, err)
	require.EqualValues(t, -3, got.Discrepancy)
	require.Equal(t, DiscrepancyMissing, got.DiscrepancyType)
	require.True(t, got.Reviewed)
	require.NotNil(t, got.ReviewedAt)
}

func TestRecordCountIsIdempotentOverwrite(t *testing.T) {
	repo := newMemoryAuditRepo()
	repo.products[1] = activeProduct(ProductSnapshot{ID: 1, Name: "Harina", Quantity: 30})
	svc := newAuditService(repo)

	audit, err := svc.Create(context.Background(), "", 1)
	require.NoError(t, err)
	d := detailForProduct(t, repo, audit.ID, 1)

	_, err = svc.RecordCount(context.Background(), d.ID, CountInput{PhysicalCount: 27})
	require.NoError(t, err)
	got, err := svc.RecordCount(context.Background(), d.ID, CountInput{PhysicalCount: 33})
	require.NoError(t, err)
	require.EqualValues(t, 33, got.PhysicalCount)
	require.EqualValues(t, 3, got.Discrepancy)
	require.Equal(t, DiscrepancySurplus, got.DiscrepancyType)
}

func TestRecordCountZeroStillMarksReviewed(t *testing.T) {
	repo := newMemoryAuditRepo()
	repo.products[1] = activeProduct(ProductSnapshot{ID: 1, Name: "Harina", Quantity: 0})
	svc := newAuditService(repo)

	audit, err := svc.Create(context.Background(), "", 1)
	require.NoError(t, err)
	d := detailForProduct(t, repo, audit.ID, 1)

	got, err := svc.RecordCount(context.Background(), d.ID, CountInput{PhysicalCount: 0})
	require.NoError(t, err)
	require.True(t, got.Reviewed)
	require.Equal(t, DiscrepancyNone, got.DiscrepancyType)
}

func TestRecordCountExplicitFlagsWin(t *testing.T) {
	repo := newMemoryAuditRepo()
	repo.products[1] = activeProduct(ProductSnapshot{ID: 1, Name: "Harina", Quantity: 30})
	svc := newAuditService(repo)

	audit, err := svc.Create(context.Background(), "", 1)
	require.NoError(t, err)
	d := detailForProduct(t, repo, audit.ID, 1)

	notReviewed := false
	got, err := svc.RecordCount(context.Background(), d.ID, CountInput{
		PhysicalCount: 25,
		Type:          DiscrepancyExpired,
		Reviewed:      &notReviewed,
	})
	require.NoError(t, err)
	require.Equal(t, DiscrepancyExpired, got.DiscrepancyType)
	require.False(t, got.Reviewed)
	require.Nil(t, got.ReviewedAt)
}

func TestRecordCountRejectsNegativeAndUnknownType(t *testing.T) {
	repo := newMemoryAuditRepo()
	repo.products[1] = activeProduct(ProductSnapshot{ID: 1, Name: "Harina", Quantity: 30})
	svc := newAuditService(repo)

	audit, err := svc.Create(context.Background(), "", 1)
	require.NoError(t, err)
	d := detailForProduct(t, repo, audit.ID, 1)

	_, err = svc.RecordCount(context.Background(), d.ID, CountInput{PhysicalCount: -1})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.RecordCount(context.Background(), d.ID, CountInput{PhysicalCount: 5, Type: "LOST"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRecordCountRejectedOnceClosed(t *testing.T) {
	repo := newMemoryAuditRepo()
	repo.products[1] = activeProduct(ProductSnapshot{ID: 1, Name: "Harina", Quantity: 30})
	svc := newAuditService(repo)

	audit, err := svc.Create(context.Background(), "", 1)
	require.NoError(t, err)
	d := detailForProduct(t, repo, audit.ID, 1)

	require.NoError(t, svc.Cancel(context.Background(), audit.ID, 1))

	_, err = svc.RecordCount(context.Background(), d.ID, CountInput{PhysicalCount: 10})
	require.ErrorIs(t, err, ErrAuditNotEditable)
}

func TestCompleteAppliesReviewedCountsOnly(t *testing.T) {
	repo := newMemoryAuditRepo()
	repo.products[1] = activeProduct(ProductSnapshot{ID: 1, Name: "Harina", Quantity: 30})
	repo.products[2] = activeProduct(ProductSnapshot{ID: 2, Name: "Azucar", Quantity: 12})
	repo.products[3] = activeProduct(ProductSnapshot{ID: 3, Name: "Sal", Quantity: 8})
	svc := newAuditService(repo)

	audit, err := svc.Create(context.Background(), "", 1)
	require.NoError(t, err)

	d1 := detailForProduct(t, repo, audit.ID, 1)
	d2 := detailForProduct(t, repo, audit.ID, 2)
	_, err = svc.RecordCount(context.Background(), d1.ID, CountInput{PhysicalCount: 27})
	require.NoError(t, err)
	_, err = svc.RecordCount(context.Background(), d2.ID, CountInput{PhysicalCount: 12})
	require.NoError(t, err)
	// Product 3 never counted.

	updated, err := svc.Complete(context.Background(), audit.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 2, updated)

	require.EqualValues(t, 27, repo.products[1].Quantity)
	require.EqualValues(t, 12, repo.products[2].Quantity)
	require.EqualValues(t, 8, repo.products[3].Quantity)

	got, err := svc.Get(context.Background(), audit.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
}

func TestCompleteTwiceFails(t *testing.T) {
	repo := newMemoryAuditRepo()
	svc := newAuditService(repo)

	audit, err := svc.Create(context.Background(), "", 1)
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), audit.ID, 1)
	require.NoError(t, err)
	_, err = svc.Complete(context.Background(), audit.ID, 1)
	require.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestCancelLeavesProductsUntouched(t *testing.T) {
	repo := newMemoryAuditRepo()
	repo.products[1] = activeProduct(ProductSnapshot{ID: 1, Name: "Harina", Quantity: 30})
	svc := newAuditService(repo)

	audit, err := svc.Create(context.Background(), "", 1)
	require.NoError(t, err)
	d := detailForProduct(t, repo, audit.ID, 1)
	_, err = svc.RecordCount(context.Background(), d.ID, CountInput{PhysicalCount: 5})
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(context.Background(), audit.ID, 1))
	require.EqualValues(t, 30, repo.products[1].Quantity)

	got, err := svc.Get(context.Background(), audit.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, got.Status)
}

func TestDeleteRequiresClosedAudit(t *testing.T) {
	repo := newMemoryAuditRepo()
	repo.products[1] = activeProduct(ProductSnapshot{ID: 1, Name: "Harina", Quantity: 30})
	svc := newAuditService(repo)

	audit, err := svc.Create(context.Background(), "", 1)
	require.NoError(t, err)

	err = svc.Delete(context.Background(), audit.ID, 1)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	require.NoError(t, svc.Cancel(context.Background(), audit.ID, 1))
	require.NoError(t, svc.Delete(context.Background(), audit.ID, 1))

	_, err = svc.Get(context.Background(), audit.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
	details, err := repo.ListDetails(context.Background(), audit.ID)
	require.NoError(t, err)
	require.Empty(t, details)
}

func TestProgressCounters(t *testing.T) {
	repo := newMemoryAuditRepo()
	repo.products[1] = activeProduct(ProductSnapshot{ID: 1, Name: "Harina", Quantity: 30})
	repo.products[2] = activeProduct(ProductSnapshot{ID: 2, Name: "Azucar", Quantity: 12})
	repo.products[3] = activeProduct(ProductSnapshot{ID: 3, Name: "Sal", Quantity: 8})
	svc := newAuditService(repo)

	audit, err := svc.Create(context.Background(), "", 1)
	require.NoError(t, err)

	d1 := detailForProduct(t, repo, audit.ID, 1)
	d2 := detailForProduct(t, repo, audit.ID, 2)
	_, err = svc.RecordCount(context.Background(), d1.ID, CountInput{PhysicalCount: 27})
	require.NoError(t, err)
	_, err = svc.RecordCount(context.Background(), d2.ID, CountInput{PhysicalCount: 12})
	require.NoError(t, err)

	progress, err := svc.Progress(context.Background(), audit.ID)
	require.NoError(t, err)
	require.Equal(t, Progress{Total: 3, Reviewed: 2, Pending: 1, WithDiscrepancy: 1}, progress)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name        string
		discrepancy int64
		want        DiscrepancyType
	}{
		{"exact match", 0, DiscrepancyNone},
		{"short by one", -1, DiscrepancyMissing},
		{"large shortage", -30, DiscrepancyMissing},
		{"over by one", 1, DiscrepancySurplus},
		{"large surplus", 42, DiscrepancySurplus},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Classify(tc.discrepancy))
		})
	}
}
