package audit

import (
	"context"
	"errors"
	"time"

	"github.com/clinicops/clinic-core/pkg/logger"
	"github.com/clinicops/clinic-core/pkg/monitoring"
	"github.com/clinicops/clinic-core/pkg/types"
	"github.com/google/uuid"
)

// Actions written to the audit trail
const (
	ActionAuthorizationDenied   = "authorization.denied"
	ActionForcedLogout          = "session.forced_logout"
	ActionLogin                 = "session.login"
	ActionLogout                = "session.logout"
	ActionPatientProfileCreated = "patient_profile.created"
	ActionAppointmentCreated    = "appointment.created"
	ActionAppointmentTransition = "appointment.transition"
	ActionAppointmentRejected   = "appointment.transition_rejected"
	ActionAppointmentReschedule = "appointment.rescheduled"
	ActionAppointmentAnnotated  = "appointment.annotated"
	ActionScheduleWindowChanged = "schedule_window.changed"
)

// Entry is one audit record: who did what to which target, when
type Entry struct {
	ID        string                 `json:"id"`
	ActorID   string                 `json:"actor_id"`
	ActorRole types.UserRole         `json:"actor_role"`
	Action    string                 `json:"action"`
	TargetID  string                 `json:"target_id"`
	Timestamp time.Time              `json:"timestamp"`
	Detail    map[string]interface{} `json:"detail,omitempty"`
}

// Sink persists audit entries; storage format is the implementation's concern
type Sink interface {
	Write(ctx context.Context, entry *Entry) error
	Name() string
}

// Recorder stamps entries and forwards them to a sink. Write failures are
// logged and counted but never returned, so an audit outage cannot turn an
// allowed request into a failed one.
type Recorder struct {
	sink    Sink
	logger  *logger.Logger
	metrics *monitoring.MetricsCollector
	now     func() time.Time
}

// NewRecorder creates a recorder for sink
func NewRecorder(sink Sink, log *logger.Logger, metrics *monitoring.MetricsCollector) *Recorder {
	return &Recorder{
		sink:    sink,
		logger:  log,
		metrics: metrics,
		now:     time.Now,
	}
}

// Record writes an entry for actor; a nil actor is recorded as anonymous
func (r *Recorder) Record(ctx context.Context, actor *types.User, action, targetID string, detail map[string]interface{}) {
	if r == nil {
		return
	}

	entry := &Entry{
		ID:        uuid.New().String(),
		ActorID:   "anonymous",
		Action:    action,
		TargetID:  targetID,
		Timestamp: r.now().UTC(),
		Detail:    detail,
	}
	if actor != nil {
		entry.ActorID = actor.ID
		entry.ActorRole = actor.Role
	}

	err := r.sink.Write(ctx, entry)
	r.metrics.RecordAuditWrite(r.sink.Name(), err == nil)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]interface{}{
			"component": "audit",
			"action":    action,
			"target_id": targetID,
		}).Error("Failed to write audit entry")
	}
}

// MultiSink fans an entry out to several sinks, attempting every one
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a fan-out sink
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Name implements Sink
func (m *MultiSink) Name() string { return "multi" }

// Write implements Sink; errors from individual sinks are joined
func (m *MultiSink) Write(ctx context.Context, entry *Entry) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
