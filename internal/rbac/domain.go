package rbac

import "time"

// Permission names granted through role flags.
const (
	PermScheduleManage   = "schedule.manage"
	PermInventoryManage  = "inventory.manage"
	PermPurchasesView    = "purchases.view"
	PermMasterdataManage = "masterdata.manage"
)

// Role represents a job role and the capabilities it grants.
type Role struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	Description         string    `json:"description"`
	CanSchedule         bool      `json:"can_schedule"`
	CanManageInventory  bool      `json:"can_manage_inventory"`
	CanViewPurchases    bool      `json:"can_view_purchases"`
	CanManageMasterdata bool      `json:"can_manage_masterdata"`
	Active              bool      `json:"active"`
	CreatedAt           time.Time `json:"created_at"`
}

// Permissions expands the role flags into permission names.
func (r Role) Permissions() []string {
	var perms []string
	if r.CanSchedule {
		perms = append(perms, PermScheduleManage)
	}
	if r.CanManageInventory {
		perms = append(perms, PermInventoryManage)
	}
	if r.CanViewPurchases {
		perms = append(perms, PermPurchasesView)
	}
	if r.CanManageMasterdata {
		perms = append(perms, PermMasterdataManage)
	}
	return perms
}
