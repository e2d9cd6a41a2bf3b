package scheduling

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/clinicops/clinic-core/internal/access"
	"github.com/clinicops/clinic-core/internal/audit"
	"github.com/clinicops/clinic-core/pkg/config"
	"github.com/clinicops/clinic-core/pkg/logger"
	"github.com/clinicops/clinic-core/pkg/monitoring"
	"github.com/clinicops/clinic-core/pkg/rbac"
	"github.com/clinicops/clinic-core/pkg/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Store is the persistence contract of the scheduling service
type Store interface {
	SlotReader
	CreateAppointment(ctx context.Context, apt *types.Appointment) error
	GetAppointment(ctx context.Context, id string) (*types.Appointment, error)
	SaveAppointment(ctx context.Context, apt *types.Appointment, expectedVersion int) error
	Reschedule(ctx context.Context, cancelled *types.Appointment, expectedVersion int, replacement *types.Appointment) error
	ListAppointments(ctx context.Context, filters *types.AppointmentFilters) ([]*types.Appointment, error)
	CreateScheduleWindow(ctx context.Context, w *types.ScheduleWindow) error
	GetScheduleWindow(ctx context.Context, id string) (*types.ScheduleWindow, error)
	SetWindowAvailability(ctx context.Context, id string, available bool, at time.Time) error
}

// UserDirectory looks up doctors and patients named in a booking
type UserDirectory interface {
	GetUserByID(ctx context.Context, id string) (*types.User, error)
}

// Options configures a Service
type Options struct {
	Store    Store
	Users    UserDirectory
	Access   *access.Evaluator
	Recorder *audit.Recorder
	Metrics  *monitoring.MetricsCollector
	Tracing  *monitoring.TracingManager
	Logger   *logger.Logger
	Config   config.SchedulingConfig
}

// Service implements booking, lifecycle transitions and availability. Every
// method assumes the caller already passed the role gate; it still checks the
// permission table and resource relationships for the specific target.
type Service struct {
	store    Store
	users    UserDirectory
	resolver *Resolver
	access   *access.Evaluator
	recorder *audit.Recorder
	metrics  *monitoring.MetricsCollector
	tracing  *monitoring.TracingManager
	logger   *logger.Logger
	cfg      config.SchedulingConfig
	policy   Policy
	loc      *time.Location
	now      func() time.Time
}

// NewService creates a scheduling service
func NewService(opts Options) *Service {
	tracing := opts.Tracing
	if tracing == nil {
		tracing = monitoring.NewNoopTracingManager()
	}
	cfg := opts.Config
	if cfg.DefaultDurationMinutes <= 0 {
		cfg.DefaultDurationMinutes = 30
	}
	if cfg.MaxDurationMinutes <= 0 {
		cfg.MaxDurationMinutes = 480
	}
	if cfg.SlotGranularity <= 0 {
		cfg.SlotGranularity = 15 * time.Minute
	}

	return &Service{
		store:    opts.Store,
		users:    opts.Users,
		resolver: NewResolver(opts.Store),
		access:   opts.Access,
		recorder: opts.Recorder,
		metrics:  opts.Metrics,
		tracing:  tracing,
		logger:   opts.Logger,
		cfg:      cfg,
		policy:   PolicyFromConfig(cfg),
		loc:      cfg.Location(),
		now:      time.Now,
	}
}

// ProposeSlot runs the conflict check without writing anything. A nil
// conflict means the slot was free at the time of the call.
func (s *Service) ProposeSlot(ctx context.Context, caller *types.User, req *types.SlotRequest) (conflict *types.Conflict, err error) {
	ctx, span := s.tracing.StartSpan(ctx, "scheduling.propose_slot", attribute.String("doctor.id", req.DoctorID))
	defer endSpan(span, &err)

	if err := s.requireBookingPermission(caller); err != nil {
		return nil, err
	}
	patientID, err := s.bookingPatient(ctx, caller, req.PatientID)
	if err != nil {
		return nil, err
	}
	duration, err := s.duration(req.DurationMinutes)
	if err != nil {
		return nil, err
	}
	slot, err := ParseSlot(req.Date, req.StartTime, duration, s.loc)
	if err != nil {
		return nil, err
	}

	conflict, err = s.resolver.FindConflict(ctx, SlotQuery{DoctorID: req.DoctorID, PatientID: patientID, Slot: slot})
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		s.metrics.RecordSlotConflict(string(conflict.Kind), "propose")
	}
	return conflict, nil
}

// CreateAppointment books a new appointment. Eligibility and conflicts are
// re-validated here regardless of any earlier ProposeSlot result.
func (s *Service) CreateAppointment(ctx context.Context, caller *types.User, req *types.CreateAppointmentRequest) (apt *types.Appointment, err error) {
	ctx, span := s.tracing.StartSpan(ctx, "scheduling.create_appointment", attribute.String("doctor.id", req.DoctorID))
	defer endSpan(span, &err)

	if err := s.requireBookingPermission(caller); err != nil {
		return nil, err
	}
	if caller.Role == types.RolePatient && !s.cfg.PatientSelfBooking {
		return nil, rbac.Forbid(caller, types.ReasonRoleMismatch, "patient self-booking is disabled").Err()
	}
	patientID, err := s.bookingPatient(ctx, caller, req.PatientID)
	if err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "reason is required", nil)
	}
	duration, err := s.duration(req.DurationMinutes)
	if err != nil {
		return nil, err
	}
	slot, err := ParseSlot(req.Date, req.StartTime, duration, s.loc)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !slot.StartTime.After(now) {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "appointments must start in the future",
			map[string]interface{}{"starts_at": slot.StartTime})
	}

	if err := s.requireRole(ctx, req.DoctorID, types.RoleStaff, "doctor_id"); err != nil {
		return nil, err
	}
	if err := s.requireRole(ctx, patientID, types.RolePatient, "patient_id"); err != nil {
		return nil, err
	}

	conflict, err := s.resolver.FindConflict(ctx, SlotQuery{DoctorID: req.DoctorID, PatientID: patientID, Slot: slot})
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		s.metrics.RecordSlotConflict(string(conflict.Kind), "precheck")
		return nil, types.NewSlotConflictError(conflict, nil)
	}

	apt = &types.Appointment{
		ID:              uuid.New().String(),
		PatientID:       patientID,
		DoctorID:        req.DoctorID,
		ServiceID:       req.ServiceID,
		StartsAt:        slot.StartTime.UTC(),
		DurationMinutes: duration,
		Status:          types.StatusScheduled,
		Reason:          reason,
		Notes:           strings.TrimSpace(req.Notes),
		CreatedBy:       caller.ID,
		Version:         1,
		CreatedAt:       now.UTC(),
		UpdatedAt:       now.UTC(),
	}

	if err := s.store.CreateAppointment(ctx, apt); err != nil {
		s.recordCommitConflict(err)
		return nil, err
	}

	s.recorder.Record(ctx, caller, audit.ActionAppointmentCreated, apt.ID, map[string]interface{}{
		"doctor_id":  apt.DoctorID,
		"patient_id": apt.PatientID,
		"starts_at":  apt.StartsAt,
		"duration":   apt.DurationMinutes,
	})
	s.logger.WithContext(ctx).WithField("appointment_id", apt.ID).Info("Appointment created")
	return apt, nil
}

// TransitionAppointment applies a lifecycle action. Rejections are audited
// with the rule that blocked them.
func (s *Service) TransitionAppointment(ctx context.Context, caller *types.User, appointmentID string, req *types.TransitionRequest) (next *types.Appointment, err error) {
	ctx, span := s.tracing.StartSpan(ctx, "scheduling.transition_appointment",
		attribute.String("appointment.id", appointmentID),
		attribute.String("appointment.action", string(req.Action)))
	defer endSpan(span, &err)

	if err := requirePermission(caller, transitionPermission(caller, req.Action)); err != nil {
		return nil, err
	}
	if err := s.access.RequireAppointmentAccess(ctx, caller, appointmentID); err != nil {
		return nil, err
	}

	apt, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	next, err = Transition(apt, TransitionInput{
		Action: req.Action,
		Actor:  caller,
		Now:    s.now(),
		Notes:  req.Notes,
		Reason: req.Reason,
	}, s.policy)
	if err != nil {
		s.metrics.RecordTransition(string(req.Action), string(apt.Status), "rejected")
		s.recorder.Record(ctx, caller, audit.ActionAppointmentRejected, apt.ID, map[string]interface{}{
			"action": req.Action,
			"from":   apt.Status,
			"reason": types.ReasonOf(err),
			"error":  err.Error(),
		})
		return nil, err
	}

	if err := s.store.SaveAppointment(ctx, next, apt.Version); err != nil {
		s.metrics.RecordTransition(string(req.Action), string(apt.Status), "write_failed")
		s.recordCommitConflict(err)
		return nil, err
	}

	s.metrics.RecordTransition(string(req.Action), string(apt.Status), "applied")
	s.recorder.Record(ctx, caller, audit.ActionAppointmentTransition, apt.ID, map[string]interface{}{
		"action": req.Action,
		"from":   apt.Status,
		"to":     next.Status,
	})
	return next, nil
}

// RescheduleAppointment cancels the appointment and books a replacement that
// references it. The cancellation obeys the same cutoff as a plain cancel.
func (s *Service) RescheduleAppointment(ctx context.Context, caller *types.User, appointmentID string, req *types.RescheduleRequest) (replacement *types.Appointment, err error) {
	ctx, span := s.tracing.StartSpan(ctx, "scheduling.reschedule_appointment", attribute.String("appointment.id", appointmentID))
	defer endSpan(span, &err)

	if err := requirePermission(caller, transitionPermission(caller, types.ActionCancel)); err != nil {
		return nil, err
	}
	if caller.Role == types.RolePatient && !s.cfg.PatientSelfBooking {
		return nil, rbac.Forbid(caller, types.ReasonRoleMismatch, "patient self-booking is disabled").Err()
	}
	if err := s.access.RequireAppointmentAccess(ctx, caller, appointmentID); err != nil {
		return nil, err
	}

	original, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	durationMinutes := req.DurationMinutes
	if durationMinutes == 0 {
		durationMinutes = original.DurationMinutes
	}
	duration, err := s.duration(durationMinutes)
	if err != nil {
		return nil, err
	}
	slot, err := ParseSlot(req.Date, req.StartTime, duration, s.loc)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !slot.StartTime.After(now) {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "appointments must start in the future",
			map[string]interface{}{"starts_at": slot.StartTime})
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "rescheduled"
	}
	cancelled, err := Transition(original, TransitionInput{
		Action: types.ActionCancel,
		Actor:  caller,
		Now:    now,
		Reason: reason,
	}, s.policy)
	if err != nil {
		s.metrics.RecordTransition("reschedule", string(original.Status), "rejected")
		s.recorder.Record(ctx, caller, audit.ActionAppointmentRejected, original.ID, map[string]interface{}{
			"action": "reschedule",
			"from":   original.Status,
			"reason": types.ReasonOf(err),
			"error":  err.Error(),
		})
		return nil, err
	}

	// The replacement is a new booking; both parties must still be eligible.
	if err := s.requireRole(ctx, original.DoctorID, types.RoleStaff, "doctor_id"); err != nil {
		return nil, err
	}
	if err := s.requireRole(ctx, original.PatientID, types.RolePatient, "patient_id"); err != nil {
		return nil, err
	}

	conflict, err := s.resolver.FindConflict(ctx, SlotQuery{
		DoctorID:             original.DoctorID,
		PatientID:            original.PatientID,
		Slot:                 slot,
		ExcludeAppointmentID: original.ID,
	})
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		s.metrics.RecordSlotConflict(string(conflict.Kind), "precheck")
		return nil, types.NewSlotConflictError(conflict, nil)
	}

	replacement = &types.Appointment{
		ID:              uuid.New().String(),
		PatientID:       original.PatientID,
		DoctorID:        original.DoctorID,
		ServiceID:       original.ServiceID,
		StartsAt:        slot.StartTime.UTC(),
		DurationMinutes: duration,
		Status:          types.StatusScheduled,
		Reason:          original.Reason,
		Notes:           original.Notes,
		RescheduledFrom: original.ID,
		CreatedBy:       caller.ID,
		Version:         1,
		CreatedAt:       now.UTC(),
		UpdatedAt:       now.UTC(),
	}

	if err := s.store.Reschedule(ctx, cancelled, original.Version, replacement); err != nil {
		s.recordCommitConflict(err)
		return nil, err
	}

	s.metrics.RecordTransition("reschedule", string(original.Status), "applied")
	s.recorder.Record(ctx, caller, audit.ActionAppointmentReschedule, original.ID, map[string]interface{}{
		"replacement_id": replacement.ID,
		"from_starts_at": original.StartsAt,
		"to_starts_at":   replacement.StartsAt,
	})
	return replacement, nil
}

// AnnotateAppointment appends clinical notes. It is the only change allowed
// once an appointment is terminal.
func (s *Service) AnnotateAppointment(ctx context.Context, caller *types.User, appointmentID, notes string) (*types.Appointment, error) {
	if err := requirePermission(caller, rbac.ActionEditAppointments); err != nil {
		return nil, err
	}
	if err := s.access.RequireAppointmentAccess(ctx, caller, appointmentID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(notes) == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "notes are required", nil)
	}

	apt, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	next := apt.Clone()
	next.Notes = AppendNotes(apt.Notes, notes)
	next.UpdatedAt = s.now().UTC()

	if err := s.store.SaveAppointment(ctx, next, apt.Version); err != nil {
		return nil, err
	}
	s.recorder.Record(ctx, caller, audit.ActionAppointmentAnnotated, apt.ID, map[string]interface{}{
		"status": apt.Status,
	})
	return next, nil
}

// GetAppointment returns one appointment the caller may act on
func (s *Service) GetAppointment(ctx context.Context, caller *types.User, appointmentID string) (*types.Appointment, error) {
	if err := requirePermission(caller, viewPermission(caller)); err != nil {
		return nil, err
	}
	if err := s.access.RequireAppointmentAccess(ctx, caller, appointmentID); err != nil {
		return nil, err
	}
	return s.store.GetAppointment(ctx, appointmentID)
}

// ListPatientAppointments lists a patient's appointments. Staff see only
// patients they have a clinical relationship with.
func (s *Service) ListPatientAppointments(ctx context.Context, caller *types.User, patientID string, filters *types.AppointmentFilters) ([]*types.Appointment, error) {
	if err := requirePermission(caller, viewPermission(caller)); err != nil {
		return nil, err
	}
	if err := s.access.RequirePatientAccess(ctx, caller, patientID); err != nil {
		return nil, err
	}

	query := types.AppointmentFilters{}
	if filters != nil {
		query = *filters
	}
	query.PatientID = patientID
	return s.store.ListAppointments(ctx, &query)
}

// CreateScheduleWindow declares availability. Staff manage their own windows;
// admins may manage anyone's.
func (s *Service) CreateScheduleWindow(ctx context.Context, caller *types.User, req *types.ScheduleWindowRequest) (*types.ScheduleWindow, error) {
	if err := requirePermission(caller, rbac.ActionManageSchedules); err != nil {
		return nil, err
	}
	staffID := req.StaffID
	if staffID == "" {
		staffID = caller.ID
	}
	if err := s.requireWindowOwner(ctx, caller, staffID); err != nil {
		return nil, err
	}

	start, err := ParseSlot(req.Date, req.StartTime, 1, s.loc)
	if err != nil {
		return nil, err
	}
	end, err := ParseSlot(req.Date, req.EndTime, 1, s.loc)
	if err != nil {
		return nil, err
	}
	if !end.StartTime.After(start.StartTime) {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "end_time must be after start_time",
			map[string]interface{}{"start_time": req.StartTime, "end_time": req.EndTime})
	}

	now := s.now().UTC()
	w := &types.ScheduleWindow{
		ID:          uuid.New().String(),
		StaffID:     staffID,
		StartsAt:    start.StartTime.UTC(),
		EndsAt:      end.StartTime.UTC(),
		IsAvailable: req.IsAvailable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateScheduleWindow(ctx, w); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, caller, audit.ActionScheduleWindowChanged, w.ID, map[string]interface{}{
		"operation":    "created",
		"staff_id":     w.StaffID,
		"is_available": w.IsAvailable,
	})
	return w, nil
}

// ListScheduleWindows returns a staff member's windows on date
func (s *Service) ListScheduleWindows(ctx context.Context, caller *types.User, staffID, date string) ([]*types.ScheduleWindow, error) {
	if err := requirePermission(caller, rbac.ActionViewSchedules); err != nil {
		return nil, err
	}
	from, to, err := DayBounds(date, s.loc)
	if err != nil {
		return nil, err
	}
	return s.store.WindowsForStaff(ctx, staffID, from, to)
}

// SetWindowAvailability opens or blocks an existing window
func (s *Service) SetWindowAvailability(ctx context.Context, caller *types.User, windowID string, available bool) (*types.ScheduleWindow, error) {
	if err := requirePermission(caller, rbac.ActionManageSchedules); err != nil {
		return nil, err
	}
	w, err := s.store.GetScheduleWindow(ctx, windowID)
	if err != nil {
		return nil, err
	}
	if err := s.requireWindowOwner(ctx, caller, w.StaffID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.store.SetWindowAvailability(ctx, windowID, available, now); err != nil {
		return nil, err
	}
	w.IsAvailable = available
	w.UpdatedAt = now

	s.recorder.Record(ctx, caller, audit.ActionScheduleWindowChanged, w.ID, map[string]interface{}{
		"operation":    "availability",
		"staff_id":     w.StaffID,
		"is_available": available,
	})
	return w, nil
}

// AvailableSlots lists bookable starts for doctorID on date. Candidates step
// through available windows at the configured granularity and are kept only
// when FindConflict reports nothing.
func (s *Service) AvailableSlots(ctx context.Context, caller *types.User, doctorID, patientID, date string, durationMinutes int) (slots []types.TimeSlot, err error) {
	ctx, span := s.tracing.StartSpan(ctx, "scheduling.available_slots", attribute.String("doctor.id", doctorID))
	defer endSpan(span, &err)

	if err := requirePermission(caller, rbac.ActionViewSchedules); err != nil {
		return nil, err
	}
	if caller.Role == types.RolePatient {
		if patientID, err = s.bookingPatient(ctx, caller, patientID); err != nil {
			return nil, err
		}
	}
	duration, err := s.duration(durationMinutes)
	if err != nil {
		return nil, err
	}
	from, to, err := DayBounds(date, s.loc)
	if err != nil {
		return nil, err
	}

	windows, err := s.store.WindowsForStaff(ctx, doctorID, from, to)
	if err != nil {
		return nil, err
	}

	now := s.now()
	length := time.Duration(duration) * time.Minute
	seen := make(map[int64]struct{})
	for _, w := range windows {
		if !w.IsAvailable {
			continue
		}
		for start := w.StartsAt; !start.Add(length).After(w.EndsAt); start = start.Add(s.cfg.SlotGranularity) {
			if !start.After(now) {
				continue
			}
			if _, ok := seen[start.Unix()]; ok {
				continue
			}
			slot := types.TimeSlot{StartTime: start, EndTime: start.Add(length)}
			conflict, err := s.resolver.FindConflict(ctx, SlotQuery{DoctorID: doctorID, PatientID: patientID, Slot: slot})
			if err != nil {
				return nil, err
			}
			if conflict == nil {
				seen[start.Unix()] = struct{}{}
				slots = append(slots, slot)
			}
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].StartTime.Before(slots[j].StartTime) })
	return slots, nil
}

// bookingPatient resolves the patient a booking is for. Patients may only
// book for themselves; staff must name the patient.
func (s *Service) bookingPatient(ctx context.Context, caller *types.User, patientID string) (string, error) {
	if caller.Role == types.RolePatient {
		if patientID == "" {
			return caller.ID, nil
		}
		if err := s.access.RequirePatientAccess(ctx, caller, patientID); err != nil {
			return "", err
		}
		return patientID, nil
	}
	if patientID == "" {
		return "", types.NewValidationError(types.ErrCodeInvalidInput, "patient_id is required", nil)
	}
	return patientID, nil
}

func (s *Service) requireBookingPermission(caller *types.User) error {
	if caller == nil {
		return types.NewUnauthenticatedError("authentication required")
	}
	action := rbac.ActionCreateAppointments
	if caller.Role == types.RolePatient {
		action = rbac.ActionBookOwnAppointments
	}
	return requirePermission(caller, action)
}

// requireRole checks that id names an active user with role
func (s *Service) requireRole(ctx context.Context, id string, role types.UserRole, field string) error {
	if id == "" {
		return types.NewValidationError(types.ErrCodeInvalidInput, field+" is required", nil)
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if types.IsNotFound(err) {
			return types.NewValidationError(types.ErrCodeInvalidRole,
				fmt.Sprintf("%s must reference an active %s", field, role),
				map[string]interface{}{field: id})
		}
		return fmt.Errorf("failed to load %s: %w", field, err)
	}
	if user.Role != role || !user.IsActive() {
		return types.NewValidationError(types.ErrCodeInvalidRole,
			fmt.Sprintf("%s must reference an active %s", field, role),
			map[string]interface{}{field: id, "role": user.Role, "status": user.Status})
	}
	return nil
}

func (s *Service) requireWindowOwner(ctx context.Context, caller *types.User, staffID string) error {
	if caller.Role == types.RoleAdmin {
		if staffID == caller.ID {
			return nil
		}
		return s.requireRole(ctx, staffID, types.RoleStaff, "staff_id")
	}
	if staffID != caller.ID {
		return types.NewForbiddenError(types.ReasonResourceAccessDenied, nil)
	}
	return nil
}

func (s *Service) duration(minutes int) (int, error) {
	if minutes == 0 {
		return s.cfg.DefaultDurationMinutes, nil
	}
	if minutes < 0 || minutes > s.cfg.MaxDurationMinutes {
		return 0, types.NewValidationError(types.ErrCodeInvalidInput,
			fmt.Sprintf("duration_minutes must be between 1 and %d", s.cfg.MaxDurationMinutes),
			map[string]interface{}{"duration_minutes": minutes})
	}
	return minutes, nil
}

// recordCommitConflict counts slot conflicts raised by the persistence guard
func (s *Service) recordCommitConflict(err error) {
	ce, ok := types.AsClinicError(err)
	if !ok || ce.Code != types.ErrCodeSlotConflict {
		return
	}
	kind := "unknown"
	if c, ok := ce.Details["conflict"].(*types.Conflict); ok {
		kind = string(c.Kind)
	}
	s.metrics.RecordSlotConflict(kind, "commit")
}

func requirePermission(caller *types.User, action rbac.Action) error {
	if caller == nil {
		return types.NewUnauthenticatedError("authentication required")
	}
	if !rbac.HasPermission(caller.Role, action) {
		return rbac.Forbid(caller, types.ReasonRoleMismatch, fmt.Sprintf("role lacks %s", action)).Err()
	}
	return nil
}

func transitionPermission(caller *types.User, action types.AppointmentAction) rbac.Action {
	switch action {
	case types.ActionCancel:
		if caller != nil && caller.Role == types.RolePatient {
			return rbac.ActionCancelOwnAppts
		}
		return rbac.ActionCancelAppointments
	case types.ActionCheckIn:
		return rbac.ActionCheckInPatients
	default:
		return rbac.ActionEditAppointments
	}
}

func viewPermission(caller *types.User) rbac.Action {
	if caller != nil && caller.Role == types.RolePatient {
		return rbac.ActionViewOwnAppointments
	}
	return rbac.ActionViewAppointments
}

func endSpan(span trace.Span, err *error) {
	if err != nil && *err != nil {
		monitoring.RecordError(span, *err)
	}
	span.End()
}
