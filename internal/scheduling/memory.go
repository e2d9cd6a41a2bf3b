package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/clinicops/clinic-core/pkg/types"
)

// MemoryStore is an in-process Store. A single mutex serializes writes and
// each write re-checks overlap while holding it, which gives the same
// guarantee as the database exclusion constraints.
type MemoryStore struct {
	mu           sync.RWMutex
	appointments map[string]*types.Appointment
	windows      map[string]*types.ScheduleWindow
	// authored maps staff ID to the set of patients they wrote records for
	authored map[string]map[string]struct{}
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		appointments: make(map[string]*types.Appointment),
		windows:      make(map[string]*types.ScheduleWindow),
		authored:     make(map[string]map[string]struct{}),
	}
}

// CreateAppointment stores a copy of apt
func (m *MemoryStore) CreateAppointment(ctx context.Context, apt *types.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkOverlapLocked(apt, ""); err != nil {
		return err
	}
	m.appointments[apt.ID] = apt.Clone()
	return nil
}

// GetAppointment returns a copy of the stored appointment
func (m *MemoryStore) GetAppointment(ctx context.Context, id string) (*types.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	apt, ok := m.appointments[id]
	if !ok {
		return nil, types.NewNotFoundError("appointment", id)
	}
	return apt.Clone(), nil
}

// SaveAppointment replaces the stored appointment when its version matches
func (m *MemoryStore) SaveAppointment(ctx context.Context, apt *types.Appointment, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(apt, expectedVersion)
}

func (m *MemoryStore) saveLocked(apt *types.Appointment, expectedVersion int) error {
	current, ok := m.appointments[apt.ID]
	if !ok {
		return types.NewNotFoundError("appointment", apt.ID)
	}
	if current.Version != expectedVersion {
		return types.NewStaleWriteError("appointment", apt.ID)
	}
	if err := m.checkOverlapLocked(apt, apt.ID); err != nil {
		return err
	}

	stored := current.Clone()
	stored.Status = apt.Status
	stored.Notes = apt.Notes
	stored.CancellationReason = apt.CancellationReason
	stored.CheckedInAt = apt.CheckedInAt
	stored.CompletedAt = apt.CompletedAt
	stored.CancelledAt = apt.CancelledAt
	stored.UpdatedAt = apt.UpdatedAt
	stored.Version = expectedVersion + 1
	m.appointments[apt.ID] = stored.Clone()

	apt.Version = stored.Version
	return nil
}

// Reschedule cancels the original and stores the replacement atomically
func (m *MemoryStore) Reschedule(ctx context.Context, cancelled *types.Appointment, expectedVersion int, replacement *types.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	previous, ok := m.appointments[cancelled.ID]
	if !ok {
		return types.NewNotFoundError("appointment", cancelled.ID)
	}
	snapshot := previous.Clone()

	if err := m.saveLocked(cancelled, expectedVersion); err != nil {
		return err
	}
	if err := m.checkOverlapLocked(replacement, ""); err != nil {
		m.appointments[snapshot.ID] = snapshot
		cancelled.Version = expectedVersion
		return err
	}
	m.appointments[replacement.ID] = replacement.Clone()
	return nil
}

// ListAppointments returns copies matching filters ordered by start time
func (m *MemoryStore) ListAppointments(ctx context.Context, filters *types.AppointmentFilters) ([]*types.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if filters == nil {
		filters = &types.AppointmentFilters{}
	}

	var out []*types.Appointment
	for _, apt := range m.appointments {
		if filters.PatientID != "" && apt.PatientID != filters.PatientID {
			continue
		}
		if filters.DoctorID != "" && apt.DoctorID != filters.DoctorID {
			continue
		}
		if filters.Status != "" && apt.Status != filters.Status {
			continue
		}
		if !filters.FromDate.IsZero() && apt.StartsAt.Before(filters.FromDate) {
			continue
		}
		if !filters.ToDate.IsZero() && !apt.StartsAt.Before(filters.ToDate) {
			continue
		}
		out = append(out, apt.Clone())
	}
	sortByStart(out)

	if filters.Offset > 0 {
		if filters.Offset >= len(out) {
			return nil, nil
		}
		out = out[filters.Offset:]
	}
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

// OverlappingForDoctor returns the doctor's active appointments overlapping slot
func (m *MemoryStore) OverlappingForDoctor(ctx context.Context, doctorID string, slot types.TimeSlot, excludeID string) ([]*types.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.overlappingLocked(func(a *types.Appointment) bool { return a.DoctorID == doctorID }, slot, excludeID), nil
}

// OverlappingForPatient returns the patient's active appointments overlapping slot
func (m *MemoryStore) OverlappingForPatient(ctx context.Context, patientID string, slot types.TimeSlot, excludeID string) ([]*types.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.overlappingLocked(func(a *types.Appointment) bool { return a.PatientID == patientID }, slot, excludeID), nil
}

func (m *MemoryStore) overlappingLocked(match func(*types.Appointment) bool, slot types.TimeSlot, excludeID string) []*types.Appointment {
	var out []*types.Appointment
	for _, apt := range m.appointments {
		if apt.ID == excludeID || apt.Status.IsTerminal() || !match(apt) {
			continue
		}
		if apt.Slot().Overlaps(slot) {
			out = append(out, apt.Clone())
		}
	}
	sortByStart(out)
	return out
}

// checkOverlapLocked mirrors the exclusion constraints; the doctor guard is
// evaluated first so the reported kind matches the resolver's order.
func (m *MemoryStore) checkOverlapLocked(apt *types.Appointment, selfID string) error {
	if apt.Status.IsTerminal() {
		return nil
	}
	slot := apt.Slot()
	if hits := m.overlappingLocked(func(a *types.Appointment) bool { return a.DoctorID == apt.DoctorID }, slot, selfID); len(hits) > 0 {
		return types.NewSlotConflictError(&types.Conflict{
			Kind:          types.ConflictDoctorBusy,
			AppointmentID: hits[0].ID,
			Slot:          hits[0].Slot(),
			Message:       "The doctor already has an appointment at this time",
		}, nil)
	}
	if hits := m.overlappingLocked(func(a *types.Appointment) bool { return a.PatientID == apt.PatientID }, slot, selfID); len(hits) > 0 {
		return types.NewSlotConflictError(&types.Conflict{
			Kind:          types.ConflictPatientDoubleBooked,
			AppointmentID: hits[0].ID,
			Slot:          hits[0].Slot(),
			Message:       "The patient already has an appointment at this time",
		}, nil)
	}
	return nil
}

// CreateScheduleWindow stores a copy of w
func (m *MemoryStore) CreateScheduleWindow(ctx context.Context, w *types.ScheduleWindow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *w
	m.windows[w.ID] = &cp
	return nil
}

// GetScheduleWindow returns a copy of the stored window
func (m *MemoryStore) GetScheduleWindow(ctx context.Context, id string) (*types.ScheduleWindow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.windows[id]
	if !ok {
		return nil, types.NewNotFoundError("schedule_window", id)
	}
	cp := *w
	return &cp, nil
}

// SetWindowAvailability toggles whether a window accepts bookings
func (m *MemoryStore) SetWindowAvailability(ctx context.Context, id string, available bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.windows[id]
	if !ok {
		return types.NewNotFoundError("schedule_window", id)
	}
	w.IsAvailable = available
	w.UpdatedAt = at
	return nil
}

// WindowsForStaff returns the staff member's windows overlapping [from, to)
func (m *MemoryStore) WindowsForStaff(ctx context.Context, staffID string, from, to time.Time) ([]*types.ScheduleWindow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	span := types.TimeSlot{StartTime: from, EndTime: to}
	var out []*types.ScheduleWindow
	for _, w := range m.windows {
		if w.StaffID == staffID && w.Slot().Overlaps(span) {
			cp := *w
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

// RecordAuthorship notes that staffID wrote a record for patientID
func (m *MemoryStore) RecordAuthorship(staffID, patientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.authored[staffID] == nil {
		m.authored[staffID] = make(map[string]struct{})
	}
	m.authored[staffID][patientID] = struct{}{}
}

// HasAppointmentWith reports whether staffID has ever been booked with patientID
func (m *MemoryStore) HasAppointmentWith(ctx context.Context, staffID, patientID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, apt := range m.appointments {
		if apt.DoctorID == staffID && apt.PatientID == patientID {
			return true, nil
		}
	}
	return false, nil
}

// HasAuthoredRecordFor reports whether staffID wrote any record for patientID
func (m *MemoryStore) HasAuthoredRecordFor(ctx context.Context, staffID, patientID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.authored[staffID][patientID]
	return ok, nil
}

// GetAppointmentPatientID returns the patient that owns appointmentID
func (m *MemoryStore) GetAppointmentPatientID(ctx context.Context, appointmentID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	apt, ok := m.appointments[appointmentID]
	if !ok {
		return "", types.NewNotFoundError("appointment", appointmentID)
	}
	return apt.PatientID, nil
}

func sortByStart(apts []*types.Appointment) {
	sort.Slice(apts, func(i, j int) bool {
		if apts[i].StartsAt.Equal(apts[j].StartsAt) {
			return apts[i].ID < apts[j].ID
		}
		return apts[i].StartsAt.Before(apts[j].StartsAt)
	})
}
