package catalog

import (
	"time"
)

// Item represents a supplier catalog item
type Item struct {
	ID            int64     `json:"id"`
	SupplierID    int64     `json:"supplier_id"`
	ProductID     int64     `json:"product_id,omitempty"`
	Name          string    `json:"name"`
	ProductCode   string    `json:"product_code"`
	Unit          string    `json:"unit"`
	ListPrice     float64   `json:"list_price"`
	PurchasePrice float64   `json:"purchase_price"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
