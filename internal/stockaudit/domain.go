// Package stockaudit implements the physical stock audit workflow: snapshot
// the inventory, record physical counts against it, and reconcile the
// differences back into product quantities on completion.
package stockaudit

import (
	"fmt"
	"time"

	"github.com/greenstock-ops/greenstock/internal/shared"
)

// Status is the audit lifecycle state.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// DiscrepancyType labels the cause of a count difference.
type DiscrepancyType string

const (
	DiscrepancyNone    DiscrepancyType = "NONE"
	DiscrepancyMissing DiscrepancyType = "MISSING"
	DiscrepancyExpired DiscrepancyType = "EXPIRED"
	DiscrepancyDamaged DiscrepancyType = "DAMAGED"
	DiscrepancySurplus DiscrepancyType = "SURPLUS"
	DiscrepancyOther   DiscrepancyType = "OTHER"
)

// ValidDiscrepancyType reports whether t is a known label.
func ValidDiscrepancyType(t DiscrepancyType) bool {
	switch t {
	case DiscrepancyNone, DiscrepancyMissing, DiscrepancyExpired, DiscrepancyDamaged, DiscrepancySurplus, DiscrepancyOther:
		return true
	}
	return false
}

// Audit is one stock-taking round over the active product set.
type Audit struct {
	ID          int64      `json:"id"`
	Status      Status     `json:"status"`
	AuditDate   time.Time  `json:"auditDate"`
	Notes       string     `json:"notes"`
	CreatedBy   int64      `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// AuditDetail is the per-product row of an audit: the system snapshot taken
// at creation plus the physical count recorded during the round.
type AuditDetail struct {
	ID              int64           `json:"id"`
	AuditID         int64           `json:"auditId"`
	ProductID       int64           `json:"productId"`
	ProductName     string          `json:"productName"`
	SystemQuantity  int64           `json:"systemQuantity"`
	PhysicalCount   int64           `json:"physicalCount"`
	Discrepancy     int64           `json:"discrepancy"`
	DiscrepancyType DiscrepancyType `json:"discrepancyType,omitempty"`
	Observations    string          `json:"observations"`
	Reviewed        bool            `json:"reviewed"`
	ReviewedAt      *time.Time      `json:"reviewedAt,omitempty"`
}

// Progress summarizes how far along an audit is.
type Progress struct {
	Total           int `json:"total"`
	Reviewed        int `json:"reviewed"`
	Pending         int `json:"pending"`
	WithDiscrepancy int `json:"withDiscrepancy"`
}

// Filter narrows audit listings.
type Filter struct {
	Status  Status
	From    time.Time
	To      time.Time
	Page    int
	PerPage int
}

// ErrAuditNotEditable indicates a count or review against a closed audit.
var ErrAuditNotEditable = fmt.Errorf("%w: audit is not in progress", shared.ErrInvalidState)

// ErrInvalidStateTransition indicates an illegal lifecycle move.
var ErrInvalidStateTransition = fmt.Errorf("%w: audit state transition not allowed", shared.ErrInvalidState)

// ErrDuplicateDetail indicates a second detail row for the same product.
var ErrDuplicateDetail = fmt.Errorf("%w: product already present in this audit", shared.ErrValidation)
