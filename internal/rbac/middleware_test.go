package rbac

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRolePermissions(t *testing.T) {
	full := Role{CanSchedule: true, CanManageInventory: true, CanViewPurchases: true, CanManageMasterdata: true}
	require.ElementsMatch(t,
		[]string{PermScheduleManage, PermInventoryManage, PermPurchasesView, PermMasterdataManage},
		full.Permissions())

	clerk := Role{CanManageInventory: true}
	require.Equal(t, []string{PermInventoryManage}, clerk.Permissions())

	require.Empty(t, Role{}.Permissions())
}

func TestPermissionMatching(t *testing.T) {
	granted := []string{PermInventoryManage, PermPurchasesView}

	require.True(t, hasAnyPermission(granted, []string{PermInventoryManage}))
	require.True(t, hasAnyPermission(granted, []string{PermMasterdataManage, PermPurchasesView}))
	require.False(t, hasAnyPermission(granted, []string{PermMasterdataManage}))

	require.True(t, hasAllPermissions(granted, []string{PermInventoryManage, PermPurchasesView}))
	require.False(t, hasAllPermissions(granted, []string{PermInventoryManage, PermMasterdataManage}))

	// Matching is case-insensitive against whatever the role expands to.
	require.True(t, hasAnyPermission([]string{"Inventory.Manage"}, []string{PermInventoryManage}))
}

func TestNormalizePermissions(t *testing.T) {
	normalized := normalizePermissions([]string{" Inventory.Manage ", "inventory.manage", "", PermPurchasesView})
	require.ElementsMatch(t, []string{PermInventoryManage, PermPurchasesView}, normalized)

	// Empty requirement lists leave routes open; the stack relies on this
	// for health and metrics endpoints.
	require.True(t, hasAnyPermission(nil, nil))
	require.True(t, hasAllPermissions(nil, nil))
}
