package scheduling

import (
	"fmt"
	"strings"
	"time"

	"github.com/clinicops/clinic-core/pkg/config"
	"github.com/clinicops/clinic-core/pkg/rbac"
	"github.com/clinicops/clinic-core/pkg/types"
)

// Policy holds the clinic-configurable lifecycle rules
type Policy struct {
	CancellationCutoff         time.Duration
	StaffBypassCutoff          bool
	AllowCompleteFromCheckedIn bool
}

// PolicyFromConfig extracts the lifecycle rules from scheduling config
func PolicyFromConfig(cfg config.SchedulingConfig) Policy {
	return Policy{
		CancellationCutoff:         cfg.CancellationCutoff,
		StaffBypassCutoff:          cfg.StaffBypassCutoff,
		AllowCompleteFromCheckedIn: cfg.AllowCompleteFromCheckedIn,
	}
}

// TransitionInput is everything a transition may depend on besides the appointment itself
type TransitionInput struct {
	Action types.AppointmentAction
	Actor  *types.User
	Now    time.Time
	Notes  string
	Reason string
}

// Rule names reported in TransitionError.Rule
const (
	RuleTerminal           = "terminal state permits no transition"
	RuleConfirmFrom        = "confirm requires scheduled"
	RuleCheckInFrom        = "check_in requires confirmed"
	RuleStartFrom          = "start requires checked_in"
	RuleCompleteFrom       = "complete requires in_progress"
	RuleCompleteFromEither = "complete requires checked_in or in_progress"
	RuleCancelFrom         = "cancel requires scheduled or confirmed"
	RuleNoShowFrom         = "no_show requires confirmed or checked_in"
	RuleNoShowTooEarly     = "no_show requires the scheduled time to have passed"
	RuleCancellationCutoff = "cancellation cutoff has passed"
)

// Transition applies in.Action to apt and returns the resulting appointment.
// apt is never modified. It is defined for every (status, action) pair: any
// pair not explicitly permitted yields an InvalidTransition error naming the rule.
func Transition(apt *types.Appointment, in TransitionInput, policy Policy) (*types.Appointment, error) {
	if in.Actor == nil {
		return nil, types.NewUnauthenticatedError("transition requires an actor")
	}
	if !isKnownAction(in.Action) {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput,
			fmt.Sprintf("unknown action %q", in.Action),
			map[string]interface{}{"action": in.Action})
	}
	if in.Action != types.ActionCancel && !in.Actor.Role.IsClinicPersonnel() {
		return nil, rbac.Forbid(in.Actor, types.ReasonRoleMismatch,
			fmt.Sprintf("%s is performed by clinic staff", in.Action)).Err()
	}

	from := apt.Status
	if from.IsTerminal() {
		return nil, invalid(from, in.Action, "", RuleTerminal)
	}

	next := apt.Clone()
	now := in.Now.UTC()

	switch in.Action {
	case types.ActionConfirm:
		if from != types.StatusScheduled {
			return nil, invalid(from, in.Action, types.StatusConfirmed, RuleConfirmFrom)
		}
		next.Status = types.StatusConfirmed

	case types.ActionCheckIn:
		if from != types.StatusConfirmed {
			return nil, invalid(from, in.Action, types.StatusCheckedIn, RuleCheckInFrom)
		}
		next.Status = types.StatusCheckedIn
		next.CheckedInAt = &now

	case types.ActionStart:
		if from != types.StatusCheckedIn {
			return nil, invalid(from, in.Action, types.StatusInProgress, RuleStartFrom)
		}
		next.Status = types.StatusInProgress

	case types.ActionComplete:
		allowed := from == types.StatusInProgress ||
			(policy.AllowCompleteFromCheckedIn && from == types.StatusCheckedIn)
		if !allowed {
			rule := RuleCompleteFrom
			if policy.AllowCompleteFromCheckedIn {
				rule = RuleCompleteFromEither
			}
			return nil, invalid(from, in.Action, types.StatusCompleted, rule)
		}
		next.Status = types.StatusCompleted
		next.CompletedAt = &now
		next.Notes = AppendNotes(next.Notes, in.Notes)

	case types.ActionCancel:
		if from != types.StatusScheduled && from != types.StatusConfirmed {
			return nil, invalid(from, in.Action, types.StatusCancelled, RuleCancelFrom)
		}
		if err := CheckCutoff(apt, in.Actor, in.Now, policy); err != nil {
			return nil, err
		}
		next.Status = types.StatusCancelled
		next.CancelledAt = &now
		next.CancellationReason = strings.TrimSpace(in.Reason)

	case types.ActionNoShow:
		if from != types.StatusConfirmed && from != types.StatusCheckedIn {
			return nil, invalid(from, in.Action, types.StatusNoShow, RuleNoShowFrom)
		}
		if in.Now.Before(apt.StartsAt) {
			return nil, invalid(from, in.Action, types.StatusNoShow, RuleNoShowTooEarly)
		}
		next.Status = types.StatusNoShow
	}

	next.UpdatedAt = now
	return next, nil
}

// CheckCutoff enforces the cancellation window for cancel and reschedule.
// Clinic personnel bypass it when the policy allows; patients never do.
func CheckCutoff(apt *types.Appointment, actor *types.User, now time.Time, policy Policy) error {
	if policy.StaffBypassCutoff && actor != nil && actor.Role.IsClinicPersonnel() {
		return nil
	}
	remaining := apt.StartsAt.Sub(now)
	if remaining > policy.CancellationCutoff {
		return nil
	}
	if remaining < 0 {
		remaining = 0
	}
	return types.NewCancellationWindowClosedError(&types.TransitionError{
		From:      apt.Status,
		Action:    types.ActionCancel,
		To:        types.StatusCancelled,
		Rule:      RuleCancellationCutoff,
		Cutoff:    policy.CancellationCutoff,
		Remaining: remaining,
	})
}

// AppendNotes adds addition on a new line, leaving existing notes intact
func AppendNotes(existing, addition string) string {
	addition = strings.TrimSpace(addition)
	switch {
	case addition == "":
		return existing
	case existing == "":
		return addition
	default:
		return existing + "\n" + addition
	}
}

func invalid(from types.AppointmentStatus, action types.AppointmentAction, to types.AppointmentStatus, rule string) error {
	return types.NewInvalidTransitionError(&types.TransitionError{
		From:   from,
		Action: action,
		To:     to,
		Rule:   rule,
	})
}

func isKnownAction(action types.AppointmentAction) bool {
	for _, a := range types.AllAppointmentActions {
		if a == action {
			return true
		}
	}
	return false
}
