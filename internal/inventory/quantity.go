package inventory

import "context"

// LedgerReader sums a product's entry ledger inside the active transaction.
type LedgerReader interface {
	SumEntryQuantities(ctx context.Context, productID int64) (int64, error)
}

// QuantityPolicy keeps Product.Quantity consistent with the entry ledger.
// Selected once per product from its source mode; the entry mutation paths
// never branch on the mode themselves.
type QuantityPolicy interface {
	AfterCreate(ctx context.Context, ledger LedgerReader, product Product, entryQty int64) (int64, error)
	AfterUpdate(ctx context.Context, ledger LedgerReader, product Product, prevQty, newQty int64) (int64, error)
	AfterDelete(ctx context.Context, ledger LedgerReader, product Product, entryQty int64) (int64, error)
}

// PolicyFor returns the quantity policy for a source mode.
func PolicyFor(mode SourceMode) QuantityPolicy {
	if mode == SourceModeSupplier {
		return SupplierDerivedQuantity{}
	}
	return DirectQuantity{}
}

// SupplierDerivedQuantity treats quantity as a materialized view over the
// ledger: every mutation resyncs from a full sum. An empty ledger is zero,
// never an error.
type SupplierDerivedQuantity struct{}

func (SupplierDerivedQuantity) AfterCreate(ctx context.Context, ledger LedgerReader, product Product, _ int64) (int64, error) {
	return ledger.SumEntryQuantities(ctx, product.ID)
}

func (SupplierDerivedQuantity) AfterUpdate(ctx context.Context, ledger LedgerReader, product Product, _, _ int64) (int64, error) {
	return ledger.SumEntryQuantities(ctx, product.ID)
}

func (SupplierDerivedQuantity) AfterDelete(ctx context.Context, ledger LedgerReader, product Product, _ int64) (int64, error) {
	return ledger.SumEntryQuantities(ctx, product.ID)
}

// DirectQuantity layers entry deltas on a directly edited counter. Updates
// are incremental, not authoritative, and deletion has no floor at zero; a
// negative quantity is a signal for a stock audit, not something to clamp.
type DirectQuantity struct{}

func (DirectQuantity) AfterCreate(_ context.Context, _ LedgerReader, product Product, entryQty int64) (int64, error) {
	return product.Quantity + entryQty, nil
}

func (DirectQuantity) AfterUpdate(_ context.Context, _ LedgerReader, product Product, prevQty, newQty int64) (int64, error) {
	return product.Quantity - prevQty + newQty, nil
}

func (DirectQuantity) AfterDelete(_ context.Context, _ LedgerReader, product Product, entryQty int64) (int64, error) {
	return product.Quantity - entryQty, nil
}
