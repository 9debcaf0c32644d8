package activity

import "time"

// Action enumerates recorded operations.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// EntityKind enumerates the record types the timeline tracks.
type EntityKind string

const (
	KindProduct         EntityKind = "product"
	KindStockEntry      EntityKind = "stock_entry"
	KindSupplier        EntityKind = "supplier"
	KindCatalogItem     EntityKind = "catalog_item"
	KindZone            EntityKind = "zone"
	KindEmployee        EntityKind = "employee"
	KindPurchaseRequest EntityKind = "purchase_request"
	KindAudit           EntityKind = "audit"
	KindRole            EntityKind = "role"
)

// Entry is one row in the action history.
type Entry struct {
	ID         string     `json:"id"`
	Action     Action     `json:"action"`
	Kind       EntityKind `json:"kind"`
	ObjectID   int64      `json:"object_id"`
	ObjectName string     `json:"object_name"`
	Detail     string     `json:"detail,omitempty"`
	ActorID    int64      `json:"actor_id"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// TimelineFilters narrows the timeline query.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	ActorID  int64
	Kind     EntityKind
	Action   Action
	Page     int
	PageSize int
}

// PagingInfo carries has-next style paging metadata.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result bundles timeline rows with paging metadata.
type Result struct {
	Rows   []Entry    `json:"rows"`
	Paging PagingInfo `json:"paging"`
}
