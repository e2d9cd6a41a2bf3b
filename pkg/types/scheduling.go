package types

import "time"

// Date and clock layouts used on the wire
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// AppointmentStatus represents appointment status values
type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "scheduled"
	StatusConfirmed  AppointmentStatus = "confirmed"
	StatusCheckedIn  AppointmentStatus = "checked_in"
	StatusInProgress AppointmentStatus = "in_progress"
	StatusCompleted  AppointmentStatus = "completed"
	StatusCancelled  AppointmentStatus = "cancelled"
	StatusNoShow     AppointmentStatus = "no_show"
)

// AllAppointmentStatuses lists every status in lifecycle order
var AllAppointmentStatuses = []AppointmentStatus{
	StatusScheduled,
	StatusConfirmed,
	StatusCheckedIn,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
	StatusNoShow,
}

// ActiveAppointmentStatuses are the non-terminal statuses that occupy a slot
var ActiveAppointmentStatuses = []AppointmentStatus{
	StatusScheduled,
	StatusConfirmed,
	StatusCheckedIn,
	StatusInProgress,
}

// IsTerminal reports whether no further transition is permitted
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// Valid reports whether the status is known
func (s AppointmentStatus) Valid() bool {
	for _, known := range AllAppointmentStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// AppointmentAction names a lifecycle transition request
type AppointmentAction string

const (
	ActionConfirm  AppointmentAction = "confirm"
	ActionCheckIn  AppointmentAction = "check_in"
	ActionStart    AppointmentAction = "start"
	ActionComplete AppointmentAction = "complete"
	ActionCancel   AppointmentAction = "cancel"
	ActionNoShow   AppointmentAction = "no_show"
)

// AllAppointmentActions lists every transition action
var AllAppointmentActions = []AppointmentAction{
	ActionConfirm,
	ActionCheckIn,
	ActionStart,
	ActionComplete,
	ActionCancel,
	ActionNoShow,
}

// Appointment represents a scheduled appointment
type Appointment struct {
	ID                 string            `json:"id" db:"id"`
	PatientID          string            `json:"patient_id" db:"patient_id"`
	DoctorID           string            `json:"doctor_id" db:"doctor_id"`
	ServiceID          string            `json:"service_id,omitempty" db:"service_id"`
	StartsAt           time.Time         `json:"starts_at" db:"starts_at"`
	DurationMinutes    int               `json:"duration_minutes" db:"duration_minutes"`
	Status             AppointmentStatus `json:"status" db:"status"`
	Reason             string            `json:"reason" db:"reason"`
	Notes              string            `json:"notes,omitempty" db:"notes"`
	CancellationReason string            `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	CheckedInAt        *time.Time        `json:"checked_in_at,omitempty" db:"checked_in_at"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty" db:"completed_at"`
	CancelledAt        *time.Time        `json:"cancelled_at,omitempty" db:"cancelled_at"`
	RescheduledFrom    string            `json:"rescheduled_from,omitempty" db:"rescheduled_from"`
	CreatedBy          string            `json:"created_by" db:"created_by"`
	Version            int               `json:"version" db:"version"`
	CreatedAt          time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at" db:"updated_at"`
}

// EndsAt returns the exclusive end of the appointment
func (a *Appointment) EndsAt() time.Time {
	return a.StartsAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Slot returns the half-open interval occupied by the appointment
func (a *Appointment) Slot() TimeSlot {
	return TimeSlot{StartTime: a.StartsAt, EndTime: a.EndsAt()}
}

// Clone returns a deep copy so callers can derive a new state without aliasing
func (a *Appointment) Clone() *Appointment {
	c := *a
	c.CheckedInAt = cloneTime(a.CheckedInAt)
	c.CompletedAt = cloneTime(a.CompletedAt)
	c.CancelledAt = cloneTime(a.CancelledAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// TimeSlot is a half-open interval [StartTime, EndTime)
type TimeSlot struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Overlaps applies the standard interval-overlap test
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	return s.StartTime.Before(other.EndTime) && other.StartTime.Before(s.EndTime)
}

// Contains reports whether other lies entirely inside s
func (s TimeSlot) Contains(other TimeSlot) bool {
	return !other.StartTime.Before(s.StartTime) && !other.EndTime.After(s.EndTime)
}

// ScheduleWindow is a staff member's declared availability period
type ScheduleWindow struct {
	ID          string    `json:"id" db:"id"`
	StaffID     string    `json:"staff_id" db:"staff_id"`
	StartsAt    time.Time `json:"starts_at" db:"starts_at"`
	EndsAt      time.Time `json:"ends_at" db:"ends_at"`
	IsAvailable bool      `json:"is_available" db:"is_available"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Slot returns the interval covered by the window
func (w *ScheduleWindow) Slot() TimeSlot {
	return TimeSlot{StartTime: w.StartsAt, EndTime: w.EndsAt}
}

// ConflictKind distinguishes the corrective action a conflict needs
type ConflictKind string

const (
	ConflictDoctorBusy          ConflictKind = "doctor_busy"
	ConflictPatientDoubleBooked ConflictKind = "patient_double_booked"
	ConflictOutsideAvailability ConflictKind = "outside_availability"
)

// Conflict describes why a proposed slot cannot be booked
type Conflict struct {
	Kind          ConflictKind `json:"kind"`
	AppointmentID string       `json:"appointment_id,omitempty"`
	Slot          TimeSlot     `json:"slot"`
	Message       string       `json:"message"`
}

// SlotRequest is a proposed (doctor, patient, date, time, duration) placement
type SlotRequest struct {
	DoctorID        string `json:"doctor_id"`
	PatientID       string `json:"patient_id"`
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
}

// CreateAppointmentRequest carries the payload of the committing booking call
type CreateAppointmentRequest struct {
	SlotRequest
	ServiceID string `json:"service_id,omitempty"`
	Reason    string `json:"reason"`
	Notes     string `json:"notes,omitempty"`
}

// TransitionRequest asks the state machine to apply an action
type TransitionRequest struct {
	Action AppointmentAction `json:"action"`
	Notes  string            `json:"notes,omitempty"`
	Reason string            `json:"reason,omitempty"`
}

// RescheduleRequest moves an appointment by cancelling it and booking a replacement
type RescheduleRequest struct {
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

// ScheduleWindowRequest declares availability for a staff member
type ScheduleWindowRequest struct {
	StaffID     string `json:"staff_id"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	IsAvailable bool   `json:"is_available"`
}

// AppointmentFilters represents filters for appointment queries
type AppointmentFilters struct {
	PatientID string            `json:"patient_id,omitempty"`
	DoctorID  string            `json:"doctor_id,omitempty"`
	Status    AppointmentStatus `json:"status,omitempty"`
	FromDate  time.Time         `json:"from_date,omitempty"`
	ToDate    time.Time         `json:"to_date,omitempty"`
	Limit     int               `json:"limit,omitempty"`
	Offset    int               `json:"offset,omitempty"`
}
