package scheduling

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clinicops/clinic-core/pkg/database"
	"github.com/clinicops/clinic-core/pkg/logger"
	"github.com/clinicops/clinic-core/pkg/types"
	"github.com/lib/pq"
)

// Repository persists appointments and schedule windows in PostgreSQL. The
// appointments table carries EXCLUDE constraints, so an overlapping insert or
// reactivation fails at commit no matter what the pre-check saw.
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new scheduling repository
func NewRepository(db *database.DB, log *logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: log,
	}
}

const appointmentColumns = `id, patient_id, doctor_id, service_id, starts_at, duration_minutes, status,
	reason, notes, cancellation_reason, checked_in_at, completed_at, cancelled_at,
	rescheduled_from, created_by, version, created_at, updated_at`

// activeStatusArray is bound as $n in the overlap queries
var activeStatusArray = func() pq.StringArray {
	out := make(pq.StringArray, len(types.ActiveAppointmentStatuses))
	for i, s := range types.ActiveAppointmentStatuses {
		out[i] = string(s)
	}
	return out
}()

type rowScanner interface {
	Scan(dest ...interface{}) error
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CreateAppointment inserts apt. Overlap violations become SlotConflict errors.
func (r *Repository) CreateAppointment(ctx context.Context, apt *types.Appointment) error {
	start := time.Now()
	err := r.insertAppointment(ctx, r.db, apt)
	r.logger.DatabaseOperation(ctx, "insert", "appointments", time.Since(start).Milliseconds(), 1, err)
	return err
}

func (r *Repository) insertAppointment(ctx context.Context, ex execer, apt *types.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, patient_id, doctor_id, service_id, starts_at, ends_at, duration_minutes,
			status, reason, notes, cancellation_reason, rescheduled_from, created_by,
			version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := ex.ExecContext(ctx, query,
		apt.ID,
		apt.PatientID,
		apt.DoctorID,
		nullString(apt.ServiceID),
		apt.StartsAt,
		apt.EndsAt(),
		apt.DurationMinutes,
		string(apt.Status),
		apt.Reason,
		apt.Notes,
		apt.CancellationReason,
		nullString(apt.RescheduledFrom),
		apt.CreatedBy,
		apt.Version,
		apt.CreatedAt,
		apt.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err, apt)
	}
	return nil
}

// GetAppointment retrieves an appointment by ID
func (r *Repository) GetAppointment(ctx context.Context, id string) (*types.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	apt, err := scanAppointment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.NewNotFoundError("appointment", id)
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return apt, nil
}

// SaveAppointment writes the mutable fields of apt if the stored version still
// equals expectedVersion, then bumps the version. A lost race yields StaleWrite.
func (r *Repository) SaveAppointment(ctx context.Context, apt *types.Appointment, expectedVersion int) error {
	start := time.Now()
	err := r.saveAppointment(ctx, r.db, apt, expectedVersion)
	r.logger.DatabaseOperation(ctx, "update", "appointments", time.Since(start).Milliseconds(), 1, err)
	return err
}

func (r *Repository) saveAppointment(ctx context.Context, ex execer, apt *types.Appointment, expectedVersion int) error {
	query := `
		UPDATE appointments SET
			status = $1, notes = $2, cancellation_reason = $3,
			checked_in_at = $4, completed_at = $5, cancelled_at = $6,
			version = version + 1, updated_at = $7
		WHERE id = $8 AND version = $9`

	result, err := ex.ExecContext(ctx, query,
		string(apt.Status),
		apt.Notes,
		apt.CancellationReason,
		apt.CheckedInAt,
		apt.CompletedAt,
		apt.CancelledAt,
		apt.UpdatedAt,
		apt.ID,
		expectedVersion,
	)
	if err != nil {
		return mapWriteError(err, apt)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return types.NewStaleWriteError("appointment", apt.ID)
	}
	apt.Version = expectedVersion + 1
	return nil
}

// Reschedule cancels the original and inserts its replacement in one
// transaction; either both land or neither does.
func (r *Repository) Reschedule(ctx context.Context, cancelled *types.Appointment, expectedVersion int, replacement *types.Appointment) error {
	start := time.Now()
	err := r.db.WithTx(ctx, nil, func(tx *sql.Tx) error {
		if err := r.saveAppointment(ctx, tx, cancelled, expectedVersion); err != nil {
			return err
		}
		return r.insertAppointment(ctx, tx, replacement)
	})
	r.logger.DatabaseOperation(ctx, "reschedule", "appointments", time.Since(start).Milliseconds(), 2, err)
	return err
}

// ListAppointments returns appointments matching filters ordered by start time
func (r *Repository) ListAppointments(ctx context.Context, filters *types.AppointmentFilters) ([]*types.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	if filters != nil {
		if filters.PatientID != "" {
			query += fmt.Sprintf(" AND patient_id = $%d", argIndex)
			args = append(args, filters.PatientID)
			argIndex++
		}
		if filters.DoctorID != "" {
			query += fmt.Sprintf(" AND doctor_id = $%d", argIndex)
			args = append(args, filters.DoctorID)
			argIndex++
		}
		if filters.Status != "" {
			query += fmt.Sprintf(" AND status = $%d", argIndex)
			args = append(args, string(filters.Status))
			argIndex++
		}
		if !filters.FromDate.IsZero() {
			query += fmt.Sprintf(" AND starts_at >= $%d", argIndex)
			args = append(args, filters.FromDate)
			argIndex++
		}
		if !filters.ToDate.IsZero() {
			query += fmt.Sprintf(" AND starts_at < $%d", argIndex)
			args = append(args, filters.ToDate)
			argIndex++
		}
	}

	query += " ORDER BY starts_at ASC"

	if filters != nil && filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filters.Limit)
		argIndex++
		if filters.Offset > 0 {
			query += fmt.Sprintf(" OFFSET $%d", argIndex)
			args = append(args, filters.Offset)
		}
	}

	return r.queryAppointments(ctx, query, args...)
}

// OverlappingForDoctor returns the doctor's active appointments overlapping slot
func (r *Repository) OverlappingForDoctor(ctx context.Context, doctorID string, slot types.TimeSlot, excludeID string) ([]*types.Appointment, error) {
	return r.overlapping(ctx, "doctor_id", doctorID, slot, excludeID)
}

// OverlappingForPatient returns the patient's active appointments overlapping slot
func (r *Repository) OverlappingForPatient(ctx context.Context, patientID string, slot types.TimeSlot, excludeID string) ([]*types.Appointment, error) {
	return r.overlapping(ctx, "patient_id", patientID, slot, excludeID)
}

func (r *Repository) overlapping(ctx context.Context, column, id string, slot types.TimeSlot, excludeID string) ([]*types.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE ` + column + ` = $1
		  AND status = ANY($2)
		  AND starts_at < $3 AND ends_at > $4`
	args := []interface{}{id, activeStatusArray, slot.EndTime, slot.StartTime}
	if excludeID != "" {
		query += " AND id <> $5"
		args = append(args, excludeID)
	}
	query += " ORDER BY starts_at ASC"

	return r.queryAppointments(ctx, query, args...)
}

func (r *Repository) queryAppointments(ctx context.Context, query string, args ...interface{}) ([]*types.Appointment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	var appointments []*types.Appointment
	for rows.Next() {
		apt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appointments = append(appointments, apt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating appointments: %w", err)
	}
	return appointments, nil
}

func scanAppointment(row rowScanner) (*types.Appointment, error) {
	apt := &types.Appointment{}
	var (
		serviceID, rescheduledFrom            sql.NullString
		status                                string
		checkedInAt, completedAt, cancelledAt sql.NullTime
	)
	err := row.Scan(
		&apt.ID,
		&apt.PatientID,
		&apt.DoctorID,
		&serviceID,
		&apt.StartsAt,
		&apt.DurationMinutes,
		&status,
		&apt.Reason,
		&apt.Notes,
		&apt.CancellationReason,
		&checkedInAt,
		&completedAt,
		&cancelledAt,
		&rescheduledFrom,
		&apt.CreatedBy,
		&apt.Version,
		&apt.CreatedAt,
		&apt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	apt.Status = types.AppointmentStatus(status)
	apt.ServiceID = serviceID.String
	apt.RescheduledFrom = rescheduledFrom.String
	apt.CheckedInAt = timePtr(checkedInAt)
	apt.CompletedAt = timePtr(completedAt)
	apt.CancelledAt = timePtr(cancelledAt)
	return apt, nil
}

// CreateScheduleWindow inserts a schedule window
func (r *Repository) CreateScheduleWindow(ctx context.Context, w *types.ScheduleWindow) error {
	query := `
		INSERT INTO schedule_windows (id, staff_id, starts_at, ends_at, is_available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query, w.ID, w.StaffID, w.StartsAt, w.EndsAt, w.IsAvailable, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create schedule window")
		return fmt.Errorf("failed to create schedule window: %w", err)
	}
	return nil
}

// GetScheduleWindow retrieves a schedule window by ID
func (r *Repository) GetScheduleWindow(ctx context.Context, id string) (*types.ScheduleWindow, error) {
	query := `SELECT id, staff_id, starts_at, ends_at, is_available, created_at, updated_at
		FROM schedule_windows WHERE id = $1`

	w, err := scanWindow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.NewNotFoundError("schedule_window", id)
		}
		return nil, fmt.Errorf("failed to get schedule window: %w", err)
	}
	return w, nil
}

// SetWindowAvailability toggles whether a window accepts bookings
func (r *Repository) SetWindowAvailability(ctx context.Context, id string, available bool, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE schedule_windows SET is_available = $1, updated_at = $2 WHERE id = $3`,
		available, at, id)
	if err != nil {
		return fmt.Errorf("failed to update schedule window: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return types.NewNotFoundError("schedule_window", id)
	}
	return nil
}

// WindowsForStaff returns the staff member's windows overlapping [from, to)
func (r *Repository) WindowsForStaff(ctx context.Context, staffID string, from, to time.Time) ([]*types.ScheduleWindow, error) {
	query := `SELECT id, staff_id, starts_at, ends_at, is_available, created_at, updated_at
		FROM schedule_windows
		WHERE staff_id = $1 AND starts_at < $2 AND ends_at > $3
		ORDER BY starts_at ASC`

	rows, err := r.db.QueryContext(ctx, query, staffID, to, from)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule windows: %w", err)
	}
	defer rows.Close()

	var windows []*types.ScheduleWindow
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule window: %w", err)
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

func scanWindow(row rowScanner) (*types.ScheduleWindow, error) {
	w := &types.ScheduleWindow{}
	if err := row.Scan(&w.ID, &w.StaffID, &w.StartsAt, &w.EndsAt, &w.IsAvailable, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return w, nil
}

// mapWriteError converts overlap and serialization failures into SlotConflict
func mapWriteError(err error, apt *types.Appointment) error {
	if constraint, ok := database.IsExclusionViolation(err); ok {
		conflict := &types.Conflict{
			Kind:    types.ConflictDoctorBusy,
			Slot:    apt.Slot(),
			Message: "The doctor already has an appointment at this time",
		}
		if strings.EqualFold(constraint, database.ConstraintPatientNoOverlap) {
			conflict.Kind = types.ConflictPatientDoubleBooked
			conflict.Message = "The patient already has an appointment at this time"
		}
		return types.NewSlotConflictError(conflict, err)
	}
	if database.IsSerializationFailure(err) {
		return types.NewSlotConflictError(nil, err)
	}
	return fmt.Errorf("failed to write appointment: %w", err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
