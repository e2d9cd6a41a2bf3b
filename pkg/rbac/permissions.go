package rbac

import (
	"sort"

	"github.com/clinicops/clinic-core/pkg/types"
)

// Action is a fine-grained operation a role may be permitted to perform
type Action string

// Actions known to the permission table
const (
	ActionViewDashboard       Action = "view_dashboard"
	ActionViewPatients        Action = "view_patients"
	ActionEditPatients        Action = "edit_patients"
	ActionCreateRecords       Action = "create_records"
	ActionViewAppointments    Action = "view_appointments"
	ActionCreateAppointments  Action = "create_appointments"
	ActionEditAppointments    Action = "edit_appointments"
	ActionCancelAppointments  Action = "cancel_appointments"
	ActionCheckInPatients     Action = "check_in_patients"
	ActionManageSchedules     Action = "manage_schedules"
	ActionViewSchedules       Action = "view_schedules"
	ActionViewOwnAppointments Action = "view_own_appointments"
	ActionBookOwnAppointments Action = "book_own_appointments"
	ActionCancelOwnAppts      Action = "cancel_own_appointments"
	ActionEditOwnProfile      Action = "edit_own_profile"
	ActionManageUsers         Action = "manage_users"
	ActionManageServices      Action = "manage_services"
	ActionManageFinances      Action = "manage_finances"
	ActionViewReports         Action = "view_reports"
	ActionViewAuditLogs       Action = "view_audit_logs"
)

type actionSet map[Action]struct{}

func newActionSet(actions ...Action) actionSet {
	set := make(actionSet, len(actions))
	for _, a := range actions {
		set[a] = struct{}{}
	}
	return set
}

var staffActions = []Action{
	ActionViewDashboard,
	ActionViewPatients,
	ActionEditPatients,
	ActionCreateRecords,
	ActionViewAppointments,
	ActionCreateAppointments,
	ActionEditAppointments,
	ActionCancelAppointments,
	ActionCheckInPatients,
	ActionManageSchedules,
	ActionViewSchedules,
	ActionEditOwnProfile,
}

var patientActions = []Action{
	ActionViewDashboard,
	ActionViewOwnAppointments,
	ActionBookOwnAppointments,
	ActionCancelOwnAppts,
	ActionViewSchedules,
	ActionEditOwnProfile,
}

var adminOnlyActions = []Action{
	ActionManageUsers,
	ActionManageServices,
	ActionManageFinances,
	ActionViewReports,
	ActionViewAuditLogs,
}

// permissionTable is built once at package init and never mutated afterwards,
// so concurrent readers need no locking.
var permissionTable = map[types.UserRole]actionSet{
	types.RoleAdmin:   newActionSet(append(append([]Action{}, staffActions...), adminOnlyActions...)...),
	types.RoleStaff:   newActionSet(staffActions...),
	types.RolePatient: newActionSet(patientActions...),
}

// HasPermission reports whether role may perform action
func HasPermission(role types.UserRole, action Action) bool {
	set, ok := permissionTable[role]
	if !ok {
		return false
	}
	_, ok = set[action]
	return ok
}

// Permissions returns the sorted action list granted to role
func Permissions(role types.UserRole) []Action {
	set := permissionTable[role]
	actions := make([]Action, 0, len(set))
	for a := range set {
		actions = append(actions, a)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}
