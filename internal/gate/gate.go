package gate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clinicops/clinic-core/internal/audit"
	"github.com/clinicops/clinic-core/internal/identity"
	"github.com/clinicops/clinic-core/pkg/logger"
	"github.com/clinicops/clinic-core/pkg/monitoring"
	"github.com/clinicops/clinic-core/pkg/rbac"
	"github.com/clinicops/clinic-core/pkg/types"
)

// Requirement is what a route declares about its callers. Empty Roles admits
// any role; an empty Permission skips the permission table.
type Requirement struct {
	Roles           []types.UserRole
	Permission      rbac.Action
	ClinicalProfile bool
}

// Admits reports whether role satisfies the role list
func (r Requirement) Admits(role types.UserRole) bool {
	if len(r.Roles) == 0 {
		return true
	}
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

// SessionTerminator revokes every live session of a user
type SessionTerminator interface {
	TerminateAllForUser(ctx context.Context, userID string) (int, error)
}

// ProfileStore reads and idempotently creates patient profiles
type ProfileStore interface {
	GetPatientProfile(ctx context.Context, userID string) (*types.PatientProfile, error)
	CreatePatientProfile(ctx context.Context, profile *types.PatientProfile) (bool, error)
}

// Resolver maps a session token to a caller
type Resolver interface {
	Resolve(ctx context.Context, token string) (*types.User, *identity.Session, error)
}

// Gate decides whether a request may proceed. It keeps no per-caller state
// between calls so a suspension takes effect on the very next request.
type Gate struct {
	resolver Resolver
	sessions SessionTerminator
	profiles ProfileStore
	recorder *audit.Recorder
	metrics  *monitoring.MetricsCollector
	logger   *logger.Logger
	now      func() time.Time
}

// New creates a role gate
func New(resolver Resolver, sessions SessionTerminator, profiles ProfileStore, recorder *audit.Recorder, metrics *monitoring.MetricsCollector, log *logger.Logger) *Gate {
	return &Gate{
		resolver: resolver,
		sessions: sessions,
		profiles: profiles,
		recorder: recorder,
		metrics:  metrics,
		logger:   log,
		now:      time.Now,
	}
}

// AuthorizeSession resolves token and then runs Authorize. The resolved
// caller is returned even on denial so handlers can log who was refused.
func (g *Gate) AuthorizeSession(ctx context.Context, token string, req Requirement) (*types.User, *identity.Session, rbac.Decision, error) {
	caller, session, err := g.resolver.Resolve(ctx, token)
	if err != nil {
		if types.IsUnauthenticated(err) {
			decision := rbac.Unauthenticated(err.Error())
			g.metrics.RecordAuthorization(string(decision.Outcome), "")
			return nil, nil, decision, nil
		}
		return nil, nil, rbac.Decision{}, err
	}

	decision, err := g.Authorize(ctx, caller, req)
	return caller, session, decision, err
}

// Authorize evaluates caller against req. The returned error is reserved for
// infrastructure failures; denials are expressed in the Decision.
func (g *Gate) Authorize(ctx context.Context, caller *types.User, req Requirement) (rbac.Decision, error) {
	decision, err := g.evaluate(ctx, caller, req)
	if err != nil {
		g.metrics.RecordSystemError("authorization", "gate")
		return rbac.Decision{}, err
	}

	g.metrics.RecordAuthorization(string(decision.Outcome), string(decision.Reason))
	if decision.Outcome == rbac.OutcomeForbidden {
		g.logger.Security(ctx, "authorization_denied", decision.CallerID, map[string]interface{}{
			"reason": decision.Reason,
			"role":   decision.CallerRole,
			"detail": decision.Detail,
		})
	}
	return decision, nil
}

func (g *Gate) evaluate(ctx context.Context, caller *types.User, req Requirement) (rbac.Decision, error) {
	if caller == nil {
		return rbac.Unauthenticated("no identity"), nil
	}

	if !caller.IsActive() {
		g.forceLogout(ctx, caller)
		return rbac.Forbid(caller, types.ReasonAccountSuspended, fmt.Sprintf("account status is %s", caller.Status)), nil
	}

	if !req.Admits(caller.Role) {
		return rbac.Forbid(caller, types.ReasonRoleMismatch, fmt.Sprintf("requires one of %s", joinRoles(req.Roles))), nil
	}

	if req.Permission != "" && !rbac.HasPermission(caller.Role, req.Permission) {
		return rbac.Forbid(caller, types.ReasonRoleMismatch, fmt.Sprintf("role lacks %s", req.Permission)), nil
	}

	if caller.Role == types.RoleStaff && req.ClinicalProfile {
		if reason, detail := g.checkStaffCredentials(caller.Staff); reason != "" {
			return rbac.Forbid(caller, reason, detail), nil
		}
	}

	if caller.Role == types.RolePatient {
		if _, _, err := g.EnsurePatientProfile(ctx, caller); err != nil {
			return rbac.Decision{}, err
		}
	}

	return rbac.Allow(caller), nil
}

// checkStaffCredentials verifies the clinical profile; dentists also need a current license
func (g *Gate) checkStaffCredentials(profile *types.StaffProfile) (types.Reason, string) {
	if profile == nil || strings.TrimSpace(profile.EmployeeID) == "" || strings.TrimSpace(profile.Position) == "" {
		return types.ReasonStaffProfileIncomplete, "employee_id and position are required"
	}

	if !strings.EqualFold(profile.Position, types.PositionDentist) {
		return "", ""
	}

	if strings.TrimSpace(profile.LicenseNumber) == "" {
		return types.ReasonLicenseMissing, "license_number is required for dentists"
	}
	if profile.LicenseExpiry != nil && !profile.LicenseExpiry.After(g.now()) {
		return types.ReasonLicenseExpired, fmt.Sprintf("license expired on %s", profile.LicenseExpiry.Format(types.DateLayout))
	}
	return "", ""
}

// forceLogout revokes the caller's sessions and reports both the denial and
// the logout. A failed revocation is logged; the request is denied either way.
func (g *Gate) forceLogout(ctx context.Context, caller *types.User) {
	g.recorder.Record(ctx, caller, audit.ActionAuthorizationDenied, caller.ID, map[string]interface{}{
		"reason": types.ReasonAccountSuspended,
		"status": caller.Status,
	})

	removed, err := g.sessions.TerminateAllForUser(ctx, caller.ID)
	if err != nil {
		g.logger.WithContext(ctx).WithError(err).WithField("user_id", caller.ID).Error("Forced logout failed")
		g.metrics.RecordSystemError("forced_logout", "gate")
		return
	}

	g.metrics.RecordForcedLogout()
	g.recorder.Record(ctx, caller, audit.ActionForcedLogout, caller.ID, map[string]interface{}{
		"sessions_revoked": removed,
	})
	g.logger.Security(ctx, "forced_logout", caller.ID, map[string]interface{}{
		"status":           caller.Status,
		"sessions_revoked": removed,
	})
}

// EnsurePatientProfile returns the patient's profile, creating one with
// placeholder emergency-contact data when none exists. It is idempotent and
// reports whether this call created the profile.
func (g *Gate) EnsurePatientProfile(ctx context.Context, patient *types.User) (*types.PatientProfile, bool, error) {
	profile, err := g.profiles.GetPatientProfile(ctx, patient.ID)
	if err == nil {
		return profile, false, nil
	}
	if !types.IsNotFound(err) {
		return nil, false, fmt.Errorf("failed to load patient profile: %w", err)
	}

	now := g.now().UTC()
	profile = &types.PatientProfile{
		UserID:                patient.ID,
		EmergencyContactName:  types.PlaceholderEmergencyContact,
		EmergencyContactPhone: types.PlaceholderEmergencyContact,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	created, err := g.profiles.CreatePatientProfile(ctx, profile)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create patient profile: %w", err)
	}
	if !created {
		// A concurrent request won the insert; return its row
		existing, err := g.profiles.GetPatientProfile(ctx, patient.ID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to reload patient profile: %w", err)
		}
		return existing, false, nil
	}

	g.recorder.Record(ctx, patient, audit.ActionPatientProfileCreated, profile.ID, nil)
	g.logger.WithContext(ctx).WithField("user_id", patient.ID).Info("Created placeholder patient profile")
	return profile, true, nil
}

func joinRoles(roles []types.UserRole) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}
