package types

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeSlot_Overlaps(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	slot := func(startMin, endMin int) TimeSlot {
		return TimeSlot{StartTime: base.Add(time.Duration(startMin) * time.Minute), EndTime: base.Add(time.Duration(endMin) * time.Minute)}
	}

	tests := []struct {
		name string
		a, b TimeSlot
		want bool
	}{
		{"identical", slot(0, 30), slot(0, 30), true},
		{"partial overlap", slot(0, 30), slot(15, 45), true},
		{"contained", slot(0, 60), slot(15, 30), true},
		{"touching end to start", slot(0, 30), slot(30, 60), false},
		{"disjoint", slot(0, 30), slot(120, 150), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}
}

func TestTimeSlot_Contains(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	window := TimeSlot{StartTime: base, EndTime: base.Add(3 * time.Hour)}

	assert.True(t, window.Contains(TimeSlot{StartTime: base, EndTime: base.Add(30 * time.Minute)}))
	assert.True(t, window.Contains(TimeSlot{StartTime: base.Add(150 * time.Minute), EndTime: base.Add(3 * time.Hour)}))
	assert.False(t, window.Contains(TimeSlot{StartTime: base.Add(170 * time.Minute), EndTime: base.Add(200 * time.Minute)}))
	assert.False(t, window.Contains(TimeSlot{StartTime: base.Add(-time.Minute), EndTime: base.Add(10 * time.Minute)}))
}

func TestAppointment_CloneDoesNotAlias(t *testing.T) {
	checkedIn := time.Now()
	apt := &Appointment{ID: "a", Status: StatusCheckedIn, CheckedInAt: &checkedIn, DurationMinutes: 30}

	clone := apt.Clone()
	*clone.CheckedInAt = clone.CheckedInAt.Add(time.Hour)
	clone.Status = StatusInProgress

	assert.Equal(t, checkedIn, *apt.CheckedInAt)
	assert.Equal(t, StatusCheckedIn, apt.Status)
	assert.Equal(t, apt.StartsAt.Add(30*time.Minute), apt.EndsAt())
}

func TestAppointmentStatus_Terminal(t *testing.T) {
	for _, s := range AllAppointmentStatuses {
		assert.True(t, s.Valid())
	}
	for _, s := range ActiveAppointmentStatuses {
		assert.False(t, s.IsTerminal(), s)
	}
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusNoShow.IsTerminal())
	assert.False(t, AppointmentStatus("archived").Valid())
}

func TestUserRole(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, UserRole("dispatcher").Valid())
	assert.True(t, RoleStaff.IsClinicPersonnel())
	assert.False(t, RolePatient.IsClinicPersonnel())
	assert.Equal(t, "/patient/dashboard", RolePatient.LandingPath())
	assert.Equal(t, "/login", UserRole("driver").LandingPath())

	var nobody *User
	assert.False(t, nobody.IsActive())
	assert.True(t, (&User{Status: StatusActive}).IsActive())
}

func TestReason_DistinctMessages(t *testing.T) {
	reasons := []Reason{
		ReasonRoleMismatch,
		ReasonAccountSuspended,
		ReasonStaffProfileIncomplete,
		ReasonLicenseMissing,
		ReasonLicenseExpired,
		ReasonResourceAccessDenied,
		ReasonInvalidTransition,
		ReasonCancellationWindowClosed,
		ReasonSlotConflict,
	}

	seen := map[string]Reason{}
	for _, r := range reasons {
		msg := r.Message()
		prev, dup := seen[msg]
		assert.False(t, dup, "%s and %s share a message", r, prev)
		seen[msg] = r
	}
	assert.Equal(t, "Access denied", ReasonResourceAccessDenied.Message())
}

func TestClinicError_Classification(t *testing.T) {
	unauth := fmt.Errorf("resolve: %w", NewUnauthenticatedError("session expired"))
	assert.True(t, IsUnauthenticated(unauth))
	assert.False(t, IsForbidden(unauth))

	forbidden := NewForbiddenError(ReasonLicenseExpired, nil)
	assert.True(t, IsForbidden(forbidden))
	assert.False(t, IsUnauthenticated(forbidden))
	assert.Equal(t, ReasonLicenseExpired, ReasonOf(forbidden))
	assert.False(t, IsRetryable(forbidden))

	assert.True(t, IsRetryable(NewSlotConflictError(&Conflict{Kind: ConflictDoctorBusy}, nil)))
	assert.True(t, IsRetryable(NewStaleWriteError("appointment", "a1")))
	assert.True(t, IsNotFound(NewNotFoundError("appointment", "a1")))
	assert.Equal(t, Reason(""), ReasonOf(errors.New("plain")))
}

func TestTransitionErrors(t *testing.T) {
	te := &TransitionError{From: StatusScheduled, Action: ActionCheckIn, Rule: "check_in requires confirmed"}

	err := NewInvalidTransitionError(te)
	assert.Equal(t, ReasonInvalidTransition, err.Reason)
	assert.Equal(t, StatusScheduled, err.Details["from"])

	var unwrapped *TransitionError
	require.True(t, errors.As(err, &unwrapped))
	assert.Equal(t, ActionCheckIn, unwrapped.Action)

	closed := NewCancellationWindowClosedError(&TransitionError{
		From: StatusConfirmed, Action: ActionCancel, Rule: "inside cutoff",
		Cutoff: 24 * time.Hour, Remaining: 23 * time.Hour,
	})
	assert.Equal(t, ReasonCancellationWindowClosed, ReasonOf(closed))
	assert.Equal(t, "24h0m0s", closed.Details["cutoff"])
	assert.False(t, IsRetryable(closed))
}
