package inventory

import (
	"fmt"
	"time"

	"github.com/greenstock-ops/greenstock/internal/shared"
)

// SourceMode selects the truth source for a product's on-hand quantity.
type SourceMode string

const (
	// SourceModeOwn marks self-produced products whose quantity is a
	// directly edited counter adjusted by entry deltas.
	SourceModeOwn SourceMode = "OWN"
	// SourceModeSupplier marks supplier-sourced products whose quantity is
	// always derived from the stock-entry ledger.
	SourceModeSupplier SourceMode = "SUPPLIER"
)

// Product is an inventory item.
type Product struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	SourceMode       SourceMode `json:"source_mode"`
	Category         string     `json:"category,omitempty"`
	Quantity         int64      `json:"quantity"`
	ReorderThreshold int64      `json:"reorder_threshold"`
	Price            float64    `json:"price"`
	AvgCost          float64    `json:"avg_cost"`
	CatalogItemID    int64      `json:"catalog_item_id,omitempty"`
	SupplierID       int64      `json:"supplier_id,omitempty"`
	ZoneID           int64      `json:"zone_id,omitempty"`
	Unit             string     `json:"unit,omitempty"`
	Description      string     `json:"description,omitempty"`
	Active           bool       `json:"active"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// LowStock reports whether the product sits below its reorder threshold.
func (p Product) LowStock() bool {
	return p.Quantity < p.ReorderThreshold
}

// StockEntry records stock received for one product.
type StockEntry struct {
	ID            int64     `json:"id"`
	ProductID     int64     `json:"product_id"`
	SupplierID    int64     `json:"supplier_id,omitempty"`
	Quantity      int64     `json:"quantity"`
	UnitCost      float64   `json:"unit_cost"`
	InvoiceNumber string    `json:"invoice_number,omitempty"`
	Note          string    `json:"note,omitempty"`
	ReceivedAt    time.Time `json:"received_at"`
	CreatedBy     int64     `json:"created_by,omitempty"`
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Search     string
	SourceMode SourceMode
	ZoneID     int64
	SupplierID int64
	Active     *bool
	LowStock   bool
	Page       int
	PerPage    int
}

// EntryFilter narrows stock entry listings.
type EntryFilter struct {
	ProductID  int64
	SupplierID int64
	From       time.Time
	To         time.Time
	Page       int
	PerPage    int
}

// ErrInvalidQuantity indicates a non-positive entry quantity.
var ErrInvalidQuantity = fmt.Errorf("%w: entry quantity must be positive", shared.ErrValidation)

// ErrInvalidUnitCost indicates a negative unit cost.
var ErrInvalidUnitCost = fmt.Errorf("%w: unit cost must be >= 0", shared.ErrValidation)

// ErrProductRequired indicates a missing product reference.
var ErrProductRequired = fmt.Errorf("%w: product required", shared.ErrValidation)
