package rbac

import (
	"sync"
	"testing"

	"github.com/clinicops/clinic-core/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role   types.UserRole
		action Action
		want   bool
	}{
		{types.RoleStaff, ActionViewPatients, true},
		{types.RoleStaff, ActionCreateAppointments, true},
		{types.RoleStaff, ActionManageUsers, false},
		{types.RoleStaff, ActionViewAuditLogs, false},
		{types.RoleAdmin, ActionManageUsers, true},
		{types.RoleAdmin, ActionCheckInPatients, true},
		{types.RolePatient, ActionBookOwnAppointments, true},
		{types.RolePatient, ActionCancelOwnAppts, true},
		{types.RolePatient, ActionViewPatients, false},
		{types.RolePatient, ActionCheckInPatients, false},
		{types.UserRole("dispatcher"), ActionViewDashboard, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.action), func(t *testing.T) {
			assert.Equal(t, tt.want, HasPermission(tt.role, tt.action))
		})
	}
}

func TestAdminIsSupersetOfStaff(t *testing.T) {
	for _, a := range Permissions(types.RoleStaff) {
		assert.True(t, HasPermission(types.RoleAdmin, a), a)
	}
}

func TestPermissions_Sorted(t *testing.T) {
	perms := Permissions(types.RolePatient)
	require.NotEmpty(t, perms)
	for i := 1; i < len(perms); i++ {
		assert.Less(t, perms[i-1], perms[i])
	}
	assert.Empty(t, Permissions(types.UserRole("driver")))
}

func TestHasPermission_ConcurrentReaders(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				HasPermission(types.RoleStaff, ActionEditAppointments)
				Permissions(types.RoleAdmin)
			}
		}()
	}
	wg.Wait()
}

func TestDecision_Err(t *testing.T) {
	staff := &types.User{ID: "s1", Role: types.RoleStaff, Status: types.StatusActive}

	assert.NoError(t, Allow(staff).Err())
	assert.True(t, Allow(staff).Allowed())

	unauth := Unauthenticated("no session")
	assert.True(t, types.IsUnauthenticated(unauth.Err()))
	assert.False(t, unauth.Allowed())

	mismatch := Forbid(staff, types.ReasonRoleMismatch, "admin only")
	err := mismatch.Err()
	require.True(t, types.IsForbidden(err))
	ce, _ := types.AsClinicError(err)
	assert.Equal(t, types.RoleStaff, ce.Details["role"])
	assert.Equal(t, "/staff/dashboard", ce.Details["landing_path"])
	assert.Equal(t, "forbidden(RoleMismatch)", mismatch.String())

	denied := Forbid(staff, types.ReasonResourceAccessDenied, "no treatment relationship")
	ce, _ = types.AsClinicError(denied.Err())
	assert.Empty(t, ce.Details)
	assert.Equal(t, "Access denied", ce.Message)
}
