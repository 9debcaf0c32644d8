package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/greenstock-ops/greenstock/internal/activity"
	"github.com/greenstock-ops/greenstock/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetProduct(ctx context.Context, id int64) (Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int, error)
	CreateProduct(ctx context.Context, product Product) (Product, error)
	UpdateProduct(ctx context.Context, id int64, product Product) error
	SetProductActive(ctx context.Context, id int64, active bool) error
	GetEntry(ctx context.Context, id int64) (StockEntry, error)
	ListEntries(ctx context.Context, filter EntryFilter) ([]StockEntry, int, error)
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	LedgerReader
	InsertEntry(ctx context.Context, entry StockEntry) (int64, error)
	UpdateEntry(ctx context.Context, entry StockEntry) error
	DeleteEntry(ctx context.Context, id int64) error
	GetEntryForUpdate(ctx context.Context, id int64) (StockEntry, error)
	GetProductForUpdate(ctx context.Context, id int64) (Product, error)
	UpdateProductQuantity(ctx context.Context, id int64, quantity int64) error
	UpdateProductAvgCost(ctx context.Context, id int64, avgCost float64) error
	LedgerCost(ctx context.Context, productID int64) (int64, float64, error)
}

// ActivityPort records action history entries.
type ActivityPort interface {
	Record(ctx context.Context, e activity.Entry) error
}

// Service coordinates product and stock entry operations.
type Service struct {
	repo        RepositoryPort
	activity    ActivityPort
	idempotency *shared.IdempotencyStore
	clock       shared.Clock
}

// NewService builds Service.
func NewService(repo RepositoryPort, act ActivityPort, idem *shared.IdempotencyStore, clock shared.Clock) *Service {
	return &Service{repo: repo, activity: act, idempotency: idem, clock: clock}
}

// CreateProduct registers a product. Supplier-sourced products start with a
// derived quantity of zero regardless of the submitted value.
func (s *Service) CreateProduct(ctx context.Context, product Product, actorID int64) (Product, error) {
	product.Name = strings.TrimSpace(product.Name)
	if product.Name == "" {
		return Product{}, fmt.Errorf("%w: product name required", shared.ErrValidation)
	}
	if product.SourceMode != SourceModeOwn && product.SourceMode != SourceModeSupplier {
		return Product{}, fmt.Errorf("%w: unknown source mode %q", shared.ErrValidation, product.SourceMode)
	}
	if product.SourceMode == SourceModeSupplier {
		product.Quantity = 0
	}
	if product.ReorderThreshold < 0 {
		return Product{}, fmt.Errorf("%w: reorder threshold must be >= 0", shared.ErrValidation)
	}
	product.Active = true
	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return Product{}, err
	}
	s.record(ctx, activity.ActionCreated, activity.KindProduct, created.ID, created.Name, "", actorID)
	return created, nil
}

// UpdateProduct replaces mutable product fields. Quantity is not editable
// here for supplier-sourced products; the ledger owns it.
func (s *Service) UpdateProduct(ctx context.Context, id int64, product Product, actorID int64) error {
	current, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	product.Name = strings.TrimSpace(product.Name)
	if product.Name == "" {
		return fmt.Errorf("%w: product name required", shared.ErrValidation)
	}
	if current.SourceMode == SourceModeSupplier {
		product.Quantity = current.Quantity
	}
	product.SourceMode = current.SourceMode
	if err := s.repo.UpdateProduct(ctx, id, product); err != nil {
		return err
	}
	s.record(ctx, activity.ActionUpdated, activity.KindProduct, id, product.Name, "", actorID)
	return nil
}

// SetProductActive suspends or reactivates a product. Inactive products keep
// their history but are excluded from new audits.
func (s *Service) SetProductActive(ctx context.Context, id int64, active bool, actorID int64) error {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.SetProductActive(ctx, id, active); err != nil {
		return err
	}
	detail := "suspended"
	if active {
		detail = "reactivated"
	}
	s.record(ctx, activity.ActionUpdated, activity.KindProduct, id, product.Name, detail, actorID)
	return nil
}

// GetProduct fetches one product.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// ListProducts lists products with filters and pagination.
func (s *Service) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int, error) {
	return s.repo.ListProducts(ctx, filter)
}

// EntryInput describes a stock entry to record.
type EntryInput struct {
	ProductID      int64
	SupplierID     int64
	Quantity       int64
	UnitCost       float64
	InvoiceNumber  string
	Note           string
	ActorID        int64
	IdempotencyKey string
}

// CreateEntry records received stock and adjusts the owning product per its
// quantity policy, all inside one transaction.
func (s *Service) CreateEntry(ctx context.Context, input EntryInput) (StockEntry, error) {
	if input.ProductID == 0 {
		return StockEntry{}, ErrProductRequired
	}
	if input.Quantity <= 0 {
		return StockEntry{}, ErrInvalidQuantity
	}
	if input.UnitCost < 0 {
		return StockEntry{}, ErrInvalidUnitCost
	}

	insertedKey := false
	if s.idempotency != nil && input.IdempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "inventory"); err != nil {
			return StockEntry{}, err
		}
		insertedKey = true
	}

	entry := StockEntry{
		ProductID:     input.ProductID,
		SupplierID:    input.SupplierID,
		Quantity:      input.Quantity,
		UnitCost:      input.UnitCost,
		InvoiceNumber: input.InvoiceNumber,
		Note:          input.Note,
		ReceivedAt:    s.now(),
		CreatedBy:     input.ActorID,
	}
	var productName string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		product, err := tx.GetProductForUpdate(ctx, input.ProductID)
		if err != nil {
			return err
		}
		productName = product.Name
		id, err := tx.InsertEntry(ctx, entry)
		if err != nil {
			return err
		}
		entry.ID = id
		quantity, err := PolicyFor(product.SourceMode).AfterCreate(ctx, tx, product, entry.Quantity)
		if err != nil {
			return err
		}
		if err := tx.UpdateProductQuantity(ctx, product.ID, quantity); err != nil {
			return err
		}
		return s.refreshAvgCost(ctx, tx, product.ID)
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, input.IdempotencyKey)
		}
		return StockEntry{}, err
	}
	s.record(ctx, activity.ActionCreated, activity.KindStockEntry, entry.ID,
		fmt.Sprintf("%d x %s", entry.Quantity, productName), entry.Note, input.ActorID)
	return entry, nil
}

// UpdateEntryInput describes an entry edit.
type UpdateEntryInput struct {
	Quantity      int64
	UnitCost      float64
	InvoiceNumber string
	Note          string
	ActorID       int64
}

// UpdateEntry edits an entry and resyncs the product quantity. Supplier-mode
// products resync authoritatively from the ledger; own-mode products apply
// the delta against the previous quantity.
func (s *Service) UpdateEntry(ctx context.Context, id int64, input UpdateEntryInput) (StockEntry, error) {
	if input.Quantity <= 0 {
		return StockEntry{}, ErrInvalidQuantity
	}
	if input.UnitCost < 0 {
		return StockEntry{}, ErrInvalidUnitCost
	}
	var updated StockEntry
	var productName string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntryForUpdate(ctx, id)
		if err != nil {
			return err
		}
		product, err := tx.GetProductForUpdate(ctx, entry.ProductID)
		if err != nil {
			return err
		}
		productName = product.Name
		prevQty := entry.Quantity
		entry.Quantity = input.Quantity
		entry.UnitCost = input.UnitCost
		entry.InvoiceNumber = input.InvoiceNumber
		entry.Note = input.Note
		if err := tx.UpdateEntry(ctx, entry); err != nil {
			return err
		}
		quantity, err := PolicyFor(product.SourceMode).AfterUpdate(ctx, tx, product, prevQty, entry.Quantity)
		if err != nil {
			return err
		}
		if err := tx.UpdateProductQuantity(ctx, product.ID, quantity); err != nil {
			return err
		}
		updated = entry
		return s.refreshAvgCost(ctx, tx, product.ID)
	})
	if err != nil {
		return StockEntry{}, err
	}
	s.record(ctx, activity.ActionUpdated, activity.KindStockEntry, updated.ID,
		fmt.Sprintf("%d x %s", updated.Quantity, productName), updated.Note, input.ActorID)
	return updated, nil
}

// DeleteEntry removes an entry and adjusts the product. Own-mode products
// have no floor at zero; a negative result signals that a stock audit is due.
func (s *Service) DeleteEntry(ctx context.Context, id int64, actorID int64) error {
	var removed StockEntry
	var productName string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntryForUpdate(ctx, id)
		if err != nil {
			return err
		}
		product, err := tx.GetProductForUpdate(ctx, entry.ProductID)
		if err != nil {
			return err
		}
		productName = product.Name
		if err := tx.DeleteEntry(ctx, id); err != nil {
			return err
		}
		quantity, err := PolicyFor(product.SourceMode).AfterDelete(ctx, tx, product, entry.Quantity)
		if err != nil {
			return err
		}
		if err := tx.UpdateProductQuantity(ctx, product.ID, quantity); err != nil {
			return err
		}
		removed = entry
		return s.refreshAvgCost(ctx, tx, product.ID)
	})
	if err != nil {
		return err
	}
	s.record(ctx, activity.ActionDeleted, activity.KindStockEntry, removed.ID,
		fmt.Sprintf("%d x %s", removed.Quantity, productName), "", actorID)
	return nil
}

// GetEntry fetches one entry.
func (s *Service) GetEntry(ctx context.Context, id int64) (StockEntry, error) {
	return s.repo.GetEntry(ctx, id)
}

// ListEntries lists stock entries with filters and pagination.
func (s *Service) ListEntries(ctx context.Context, filter EntryFilter) ([]StockEntry, int, error) {
	return s.repo.ListEntries(ctx, filter)
}

// RecomputeQuantity resyncs a supplier-mode product's quantity from its
// ledger and returns it. For own-mode products the stored counter is the
// truth source, so the current value is returned untouched. Exposed for
// diagnostic and repair use.
func (s *Service) RecomputeQuantity(ctx context.Context, productID int64) (int64, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	if product.SourceMode != SourceModeSupplier {
		return product.Quantity, nil
	}
	var quantity int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		locked, err := tx.GetProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		quantity, err = tx.SumEntryQuantities(ctx, locked.ID)
		if err != nil {
			return err
		}
		return tx.UpdateProductQuantity(ctx, locked.ID, quantity)
	})
	if err != nil {
		return 0, err
	}
	return quantity, nil
}

// ListLowStock lists active products below their reorder threshold.
func (s *Service) ListLowStock(ctx context.Context) ([]Product, error) {
	active := true
	products, _, err := s.repo.ListProducts(ctx, ProductFilter{Active: &active, LowStock: true, PerPage: 200})
	return products, err
}

// refreshAvgCost recomputes the weighted average purchase cost from the full
// ledger. An empty ledger resets it to zero.
func (s *Service) refreshAvgCost(ctx context.Context, tx TxRepository, productID int64) error {
	qty, cost, err := tx.LedgerCost(ctx, productID)
	if err != nil {
		return err
	}
	avg := 0.0
	if qty > 0 {
		avg = cost / float64(qty)
	}
	return tx.UpdateProductAvgCost(ctx, productID, avg)
}

func (s *Service) now() time.Time {
	if s.clock != nil {
		return s.clock.Now()
	}
	return time.Now()
}

func (s *Service) record(ctx context.Context, action activity.Action, kind activity.EntityKind, objectID int64, name, detail string, actorID int64) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Record(ctx, activity.Entry{
		Action:     action,
		Kind:       kind,
		ObjectID:   objectID,
		ObjectName: name,
		Detail:     detail,
		ActorID:    actorID,
		OccurredAt: s.now(),
	})
}
