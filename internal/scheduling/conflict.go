package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clinicops/clinic-core/pkg/types"
)

// SlotReader is the read side the resolver needs. Overlapping* return only
// appointments in an active status whose interval overlaps slot.
type SlotReader interface {
	OverlappingForDoctor(ctx context.Context, doctorID string, slot types.TimeSlot, excludeID string) ([]*types.Appointment, error)
	OverlappingForPatient(ctx context.Context, patientID string, slot types.TimeSlot, excludeID string) ([]*types.Appointment, error)
	// WindowsForStaff returns windows overlapping [from, to), ordered by start
	WindowsForStaff(ctx context.Context, staffID string, from, to time.Time) ([]*types.ScheduleWindow, error)
}

// SlotQuery is a proposed placement. ExcludeAppointmentID skips one
// appointment, used when the slot replaces it.
type SlotQuery struct {
	DoctorID             string
	PatientID            string
	Slot                 types.TimeSlot
	ExcludeAppointmentID string
}

// Resolver detects double-booking and out-of-hours placements. It is a
// pre-check; the persistence layer enforces the same rule at commit.
type Resolver struct {
	reader SlotReader
}

// NewResolver creates a slot conflict resolver
func NewResolver(reader SlotReader) *Resolver {
	return &Resolver{reader: reader}
}

// FindConflict returns the first conflict for q, or nil when the slot is free.
// Doctor availability is checked before patient double-booking, then windows.
func (r *Resolver) FindConflict(ctx context.Context, q SlotQuery) (*types.Conflict, error) {
	doctorApts, err := r.reader.OverlappingForDoctor(ctx, q.DoctorID, q.Slot, q.ExcludeAppointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check doctor schedule: %w", err)
	}
	if apt := firstOverlap(doctorApts, q); apt != nil {
		return &types.Conflict{
			Kind:          types.ConflictDoctorBusy,
			AppointmentID: apt.ID,
			Slot:          apt.Slot(),
			Message:       "The doctor already has an appointment at this time",
		}, nil
	}

	if q.PatientID != "" {
		patientApts, err := r.reader.OverlappingForPatient(ctx, q.PatientID, q.Slot, q.ExcludeAppointmentID)
		if err != nil {
			return nil, fmt.Errorf("failed to check patient schedule: %w", err)
		}
		if apt := firstOverlap(patientApts, q); apt != nil {
			return &types.Conflict{
				Kind:          types.ConflictPatientDoubleBooked,
				AppointmentID: apt.ID,
				Slot:          apt.Slot(),
				Message:       "The patient already has an appointment at this time",
			}, nil
		}
	}

	windows, err := r.reader.WindowsForStaff(ctx, q.DoctorID, q.Slot.StartTime, q.Slot.EndTime)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule windows: %w", err)
	}
	if !coveredByAvailability(windows, q.Slot) {
		return &types.Conflict{
			Kind:    types.ConflictOutsideAvailability,
			Slot:    q.Slot,
			Message: "The doctor is not available at this time",
		}, nil
	}

	return nil, nil
}

// firstOverlap re-applies the filter in memory so a reader returning a
// superset cannot produce a false conflict.
func firstOverlap(apts []*types.Appointment, q SlotQuery) *types.Appointment {
	for _, apt := range apts {
		if apt.ID == q.ExcludeAppointmentID || apt.Status.IsTerminal() {
			continue
		}
		if apt.Slot().Overlaps(q.Slot) {
			return apt
		}
	}
	return nil
}

// coveredByAvailability requires one available window containing slot and
// no blocked window overlapping it.
func coveredByAvailability(windows []*types.ScheduleWindow, slot types.TimeSlot) bool {
	covered := false
	for _, w := range windows {
		if !w.IsAvailable {
			if w.Slot().Overlaps(slot) {
				return false
			}
			continue
		}
		if w.Slot().Contains(slot) {
			covered = true
		}
	}
	return covered
}

// ParseSlot builds the half-open interval for a date, a clock time and a
// duration, interpreted in loc.
func ParseSlot(date, startTime string, durationMinutes int, loc *time.Location) (types.TimeSlot, error) {
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(types.DateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return types.TimeSlot{}, types.NewValidationError(types.ErrCodeInvalidInput,
			"date must be formatted YYYY-MM-DD", map[string]interface{}{"date": date})
	}
	clock, err := time.Parse(types.ClockLayout, strings.TrimSpace(startTime))
	if err != nil {
		return types.TimeSlot{}, types.NewValidationError(types.ErrCodeInvalidInput,
			"start_time must be formatted HH:MM", map[string]interface{}{"start_time": startTime})
	}
	if durationMinutes <= 0 {
		return types.TimeSlot{}, types.NewValidationError(types.ErrCodeInvalidInput,
			"duration_minutes must be positive", map[string]interface{}{"duration_minutes": durationMinutes})
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
	return types.TimeSlot{
		StartTime: start,
		EndTime:   start.Add(time.Duration(durationMinutes) * time.Minute),
	}, nil
}

// DayBounds returns [00:00, next 00:00) of date in loc
func DayBounds(date string, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(types.DateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, time.Time{}, types.NewValidationError(types.ErrCodeInvalidInput,
			"date must be formatted YYYY-MM-DD", map[string]interface{}{"date": date})
	}
	return day, day.AddDate(0, 0, 1), nil
}
