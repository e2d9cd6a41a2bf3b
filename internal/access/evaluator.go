package access

import (
	"context"
	"fmt"

	"github.com/clinicops/clinic-core/pkg/logger"
	"github.com/clinicops/clinic-core/pkg/monitoring"
	"github.com/clinicops/clinic-core/pkg/rbac"
	"github.com/clinicops/clinic-core/pkg/types"
)

// RelationshipStore answers the relationship facts the evaluator needs
type RelationshipStore interface {
	HasAppointmentWith(ctx context.Context, staffID, patientID string) (bool, error)
	HasAuthoredRecordFor(ctx context.Context, staffID, patientID string) (bool, error)
	// GetAppointmentPatientID returns a NotFound ClinicError for unknown appointments
	GetAppointmentPatientID(ctx context.Context, appointmentID string) (string, error)
}

// Evaluator answers per-resource questions the static permission table cannot
type Evaluator struct {
	relationships RelationshipStore
	metrics       *monitoring.MetricsCollector
	logger        *logger.Logger
}

// NewEvaluator creates a resource access evaluator
func NewEvaluator(relationships RelationshipStore, metrics *monitoring.MetricsCollector, log *logger.Logger) *Evaluator {
	return &Evaluator{
		relationships: relationships,
		metrics:       metrics,
		logger:        log,
	}
}

// CanAccessPatient reports whether user may see patientID's data. Admins see
// everyone; staff only patients they have an appointment with or authored a
// record for; patients only themselves.
func (e *Evaluator) CanAccessPatient(ctx context.Context, user *types.User, patientID string) (bool, error) {
	if !user.IsActive() || patientID == "" {
		return false, nil
	}

	switch user.Role {
	case types.RoleAdmin:
		return true, nil
	case types.RolePatient:
		return user.ID == patientID, nil
	case types.RoleStaff:
		ok, err := e.relationships.HasAppointmentWith(ctx, user.ID, patientID)
		if err != nil {
			return false, fmt.Errorf("failed to check appointment relationship: %w", err)
		}
		if ok {
			return true, nil
		}
		ok, err = e.relationships.HasAuthoredRecordFor(ctx, user.ID, patientID)
		if err != nil {
			return false, fmt.Errorf("failed to check record authorship: %w", err)
		}
		return ok, nil
	}
	return false, nil
}

// CanActOnAppointment reports whether user may act on appointmentID. Clinic
// personnel may act on any appointment; patients only on their own.
func (e *Evaluator) CanActOnAppointment(ctx context.Context, user *types.User, appointmentID string) (bool, error) {
	if !user.IsActive() {
		return false, nil
	}
	if user.Role.IsClinicPersonnel() {
		return true, nil
	}
	if user.Role != types.RolePatient {
		return false, nil
	}

	patientID, err := e.relationships.GetAppointmentPatientID(ctx, appointmentID)
	if err != nil {
		if types.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load appointment owner: %w", err)
	}
	return patientID == user.ID, nil
}

// RequirePatientAccess is CanAccessPatient returning a uniform denial error
func (e *Evaluator) RequirePatientAccess(ctx context.Context, user *types.User, patientID string) error {
	ok, err := e.CanAccessPatient(ctx, user, patientID)
	return e.enforce(ctx, user, ok, err, "patient", patientID)
}

// RequireAppointmentAccess is CanActOnAppointment returning a uniform denial error
func (e *Evaluator) RequireAppointmentAccess(ctx context.Context, user *types.User, appointmentID string) error {
	ok, err := e.CanActOnAppointment(ctx, user, appointmentID)
	return e.enforce(ctx, user, ok, err, "appointment", appointmentID)
}

// enforce turns a boolean answer into the error taxonomy. The denial never
// says which relationship was missing or whether the target exists.
func (e *Evaluator) enforce(ctx context.Context, user *types.User, ok bool, err error, resource, id string) error {
	if err != nil {
		e.metrics.RecordSystemError("resource_access", "access")
		return err
	}
	if ok {
		e.metrics.RecordAuthorization(string(rbac.OutcomeAllowed), "")
		return nil
	}

	e.metrics.RecordAuthorization(string(rbac.OutcomeForbidden), string(types.ReasonResourceAccessDenied))
	callerID := ""
	if user != nil {
		callerID = user.ID
	}
	e.logger.Security(ctx, "resource_access_denied", callerID, map[string]interface{}{
		"resource":    resource,
		"resource_id": id,
	})
	return types.NewForbiddenError(types.ReasonResourceAccessDenied, nil)
}
