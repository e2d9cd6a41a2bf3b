package rbac

import (
	"fmt"

	"github.com/clinicops/clinic-core/pkg/types"
)

// Outcome is the top-level result of an authorization check
type Outcome string

const (
	OutcomeAllowed         Outcome = "allowed"
	OutcomeUnauthenticated Outcome = "unauthenticated"
	OutcomeForbidden       Outcome = "forbidden"
)

// Decision is the result of the role gate for a single request
type Decision struct {
	Outcome     Outcome        `json:"outcome"`
	Reason      types.Reason   `json:"reason,omitempty"`
	CallerID    string         `json:"caller_id,omitempty"`
	CallerRole  types.UserRole `json:"caller_role,omitempty"`
	LandingPath string         `json:"landing_path,omitempty"`
	Detail      string         `json:"detail,omitempty"`
}

// Allow builds an allowed decision for the caller
func Allow(caller *types.User) Decision {
	return Decision{
		Outcome:    OutcomeAllowed,
		CallerID:   caller.ID,
		CallerRole: caller.Role,
	}
}

// Unauthenticated builds the decision returned when no identity is known
func Unauthenticated(detail string) Decision {
	return Decision{
		Outcome: OutcomeUnauthenticated,
		Detail:  detail,
	}
}

// Forbid builds a forbidden decision; the caller's role and landing page are
// included so the UI can redirect without another round trip.
func Forbid(caller *types.User, reason types.Reason, detail string) Decision {
	return Decision{
		Outcome:     OutcomeForbidden,
		Reason:      reason,
		CallerID:    caller.ID,
		CallerRole:  caller.Role,
		LandingPath: caller.Role.LandingPath(),
		Detail:      detail,
	}
}

// Allowed reports whether the request may proceed
func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllowed
}

// Err converts a denial into the error taxonomy; it returns nil when allowed
func (d Decision) Err() error {
	switch d.Outcome {
	case OutcomeAllowed:
		return nil
	case OutcomeUnauthenticated:
		return types.NewUnauthenticatedError("authentication required")
	case OutcomeForbidden:
		details := map[string]interface{}{}
		// ResourceAccessDenied stays generic so the response cannot be used as an existence oracle
		if d.Reason != types.ReasonResourceAccessDenied {
			details["role"] = d.CallerRole
			details["landing_path"] = d.LandingPath
			if d.Detail != "" {
				details["detail"] = d.Detail
			}
		}
		return types.NewForbiddenError(d.Reason, details)
	}
	return types.NewInternalError(types.ErrCodeInternalError, fmt.Sprintf("unknown decision outcome %q", d.Outcome), nil)
}

// String renders the decision for logs
func (d Decision) String() string {
	if d.Reason == "" {
		return string(d.Outcome)
	}
	return fmt.Sprintf("%s(%s)", d.Outcome, d.Reason)
}
