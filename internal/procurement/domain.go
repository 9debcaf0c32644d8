// Package procurement tracks supplier purchase requests from draft through
// reception.
package procurement

import (
	"fmt"
	"time"

	"github.com/greenstock-ops/greenstock/internal/shared"
)

// Status is the purchase request lifecycle state.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSent      Status = "SENT"
	StatusAccepted  Status = "ACCEPTED"
	StatusInProcess Status = "IN_PROCESS"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// transitions is the allowed lifecycle graph. Cancellation is open from any
// non-terminal state; completion only happens through reception.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusSent, StatusCancelled},
	StatusSent:      {StatusAccepted, StatusCancelled},
	StatusAccepted:  {StatusInProcess, StatusCancelled},
	StatusInProcess: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// PurchaseRequest is one request to a supplier for a single product.
type PurchaseRequest struct {
	ID            int64      `json:"id"`
	ProductID     int64      `json:"productId"`
	SupplierID    int64      `json:"supplierId"`
	Quantity      int64      `json:"quantity"`
	UnitPrice     float64    `json:"unitPrice"`
	TotalCost     float64    `json:"totalCost"`
	Status        Status     `json:"status"`
	Observations  string     `json:"observations"`
	InvoiceNumber string     `json:"invoiceNumber"`
	RequestedBy   int64      `json:"requestedBy"`
	RequestedAt   time.Time  `json:"requestedAt"`
	AcceptedAt    *time.Time `json:"acceptedAt,omitempty"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	ReceivedQty   int64      `json:"receivedQty"`
	FinalPrice    float64    `json:"finalPrice"`
	ReceivedAt    *time.Time `json:"receivedAt,omitempty"`
	ReceivedBy    int64      `json:"receivedBy"`
}

// Filter narrows purchase request listings.
type Filter struct {
	Status     Status
	SupplierID int64
	ProductID  int64
	Page       int
	PerPage    int
}

// ErrInvalidTransition indicates a lifecycle move outside the allowed graph.
var ErrInvalidTransition = fmt.Errorf("%w: purchase request status transition not allowed", shared.ErrInvalidState)

// ErrNotReceivable indicates a reception against a request that is not in process.
var ErrNotReceivable = fmt.Errorf("%w: purchase request is not awaiting reception", shared.ErrInvalidState)
