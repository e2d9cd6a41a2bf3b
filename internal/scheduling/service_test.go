package scheduling

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/clinicops/clinic-core/internal/access"
	"github.com/clinicops/clinic-core/internal/audit"
	"github.com/clinicops/clinic-core/pkg/config"
	"github.com/clinicops/clinic-core/pkg/logger"
	"github.com/clinicops/clinic-core/pkg/monitoring"
	"github.com/clinicops/clinic-core/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers map[string]*types.User

func (f fakeUsers) GetUserByID(ctx context.Context, id string) (*types.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, types.NewNotFoundError("user", id)
	}
	return u, nil
}

type captureSink struct {
	mu      sync.Mutex
	entries []*audit.Entry
}

func (c *captureSink) Name() string { return "capture" }

func (c *captureSink) Write(ctx context.Context, entry *audit.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
	return nil
}

func (c *captureSink) actions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Action
	}
	return out
}

type fixture struct {
	svc     *Service
	store   *MemoryStore
	sink    *captureSink
	metrics *monitoring.MetricsCollector
	doctor  *types.User
	staff   *types.User
	admin   *types.User
	p1      *types.User
	p2      *types.User
}

// 07:00 on the scenario day, before the doctor's 09:00-12:00 window opens
var scenarioNow = time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, mutate ...func(*config.SchedulingConfig)) *fixture {
	t.Helper()

	f := &fixture{
		store:   NewMemoryStore(),
		sink:    &captureSink{},
		metrics: monitoring.NewMetricsCollector("clinic-core-test"),
		doctor:  &types.User{ID: "doc-d", Name: "Dr D", Role: types.RoleStaff, Status: types.StatusActive},
		staff:   &types.User{ID: "staff-r", Name: "Reception", Role: types.RoleStaff, Status: types.StatusActive},
		admin:   &types.User{ID: "admin-a", Name: "Admin", Role: types.RoleAdmin, Status: types.StatusActive},
		p1:      &types.User{ID: "pat-1", Name: "P1", Role: types.RolePatient, Status: types.StatusActive},
		p2:      &types.User{ID: "pat-2", Name: "P2", Role: types.RolePatient, Status: types.StatusActive},
	}

	cfg := config.Default().Scheduling
	for _, m := range mutate {
		m(&cfg)
	}

	log := logger.Discard()
	users := fakeUsers{}
	for _, u := range []*types.User{f.doctor, f.staff, f.admin, f.p1, f.p2} {
		users[u.ID] = u
	}

	f.svc = NewService(Options{
		Store:    f.store,
		Users:    users,
		Access:   access.NewEvaluator(f.store, f.metrics, log),
		Recorder: audit.NewRecorder(f.sink, log, f.metrics),
		Metrics:  f.metrics,
		Logger:   log,
		Config:   cfg,
	})
	f.svc.now = func() time.Time { return scenarioNow }

	_, err := f.svc.CreateScheduleWindow(context.Background(), f.doctor, &types.ScheduleWindowRequest{
		Date: "2025-03-10", StartTime: "09:00", EndTime: "12:00", IsAvailable: true,
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) book(patient *types.User, start string, minutes int) (*types.Appointment, error) {
	return f.svc.CreateAppointment(context.Background(), f.staff, &types.CreateAppointmentRequest{
		SlotRequest: types.SlotRequest{
			DoctorID:        f.doctor.ID,
			PatientID:       patient.ID,
			Date:            "2025-03-10",
			StartTime:       start,
			DurationMinutes: minutes,
		},
		Reason: "routine cleaning",
	})
}

func (f *fixture) act(actor *types.User, id string, action types.AppointmentAction) (*types.Appointment, error) {
	return f.svc.TransitionAppointment(context.Background(), actor, id, &types.TransitionRequest{Action: action})
}

func TestScenario_DoctorDayBookingAndCheckIn(t *testing.T) {
	f := newFixture(t)

	first, err := f.book(f.p1, "09:00", 30)
	require.NoError(t, err)
	assert.Equal(t, types.StatusScheduled, first.Status)

	_, err = f.book(f.p2, "09:15", 30)
	require.Error(t, err)
	ce, ok := types.AsClinicError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrCodeSlotConflict, ce.Code)
	conflict := ce.Details["conflict"].(*types.Conflict)
	assert.Equal(t, types.ConflictDoctorBusy, conflict.Kind)
	assert.Equal(t, first.ID, conflict.AppointmentID)
	assert.True(t, types.IsRetryable(err))

	second, err := f.book(f.p1, "11:00", 30)
	require.NoError(t, err)
	assert.Equal(t, types.StatusScheduled, second.Status)

	_, err = f.act(f.doctor, first.ID, types.ActionCheckIn)
	require.Error(t, err)
	assert.Equal(t, types.ReasonInvalidTransition, types.ReasonOf(err))

	confirmed, err := f.act(f.doctor, first.ID, types.ActionConfirm)
	require.NoError(t, err)
	assert.Equal(t, types.StatusConfirmed, confirmed.Status)

	checkedIn, err := f.act(f.doctor, first.ID, types.ActionCheckIn)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCheckedIn, checkedIn.Status)
	require.NotNil(t, checkedIn.CheckedInAt)
	assert.True(t, checkedIn.CheckedInAt.Equal(scenarioNow))

	stored, err := f.store.GetAppointment(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCheckedIn, stored.Status)
	assert.Equal(t, 3, stored.Version)

	assert.Contains(t, f.sink.actions(), audit.ActionAppointmentRejected)
	assert.Contains(t, f.sink.actions(), audit.ActionAppointmentTransition)
}

func TestCreateThenFindConflict_SeesNewAppointment(t *testing.T) {
	f := newFixture(t)

	apt, err := f.book(f.p1, "10:00", 30)
	require.NoError(t, err)

	conflict, err := f.svc.ProposeSlot(context.Background(), f.staff, &types.SlotRequest{
		DoctorID: f.doctor.ID, PatientID: f.p1.ID, Date: "2025-03-10", StartTime: "10:00", DurationMinutes: 30,
	})
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, types.ConflictDoctorBusy, conflict.Kind)
	assert.Equal(t, apt.ID, conflict.AppointmentID)
}

func TestCreateAppointment_ConcurrentBookingsYieldOneWinner(t *testing.T) {
	f := newFixture(t)
	patients := make([]*types.User, 12)
	users := f.svc.users.(fakeUsers)
	for i := range patients {
		patients[i] = &types.User{ID: "pat-c" + string(rune('a'+i)), Role: types.RolePatient, Status: types.StatusActive}
		users[patients[i].ID] = patients[i]
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	start := make(chan struct{})
	for _, p := range patients {
		wg.Add(1)
		go func(p *types.User) {
			defer wg.Done()
			<-start
			_, err := f.book(p, "09:30", 30)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			if ce, ok := types.AsClinicError(err); ok && ce.Code == types.ErrCodeSlotConflict {
				conflicts++
			}
		}(p)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, len(patients)-1, conflicts)

	active, err := f.store.OverlappingForDoctor(context.Background(), f.doctor.ID, slotAt("09:30", "10:00"), "")
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestTransitionAppointment_CancelCutoffByRole(t *testing.T) {
	f := newFixture(t)
	// 23 hours ahead of the fixed clock
	require.NoError(t, f.store.CreateScheduleWindow(context.Background(), &types.ScheduleWindow{
		ID: "w-next", StaffID: f.doctor.ID, StartsAt: scenarioNow.Add(20 * time.Hour), EndsAt: scenarioNow.Add(30 * time.Hour), IsAvailable: true,
	}))

	bookAt := func(p *types.User) *types.Appointment {
		apt, err := f.svc.CreateAppointment(context.Background(), f.staff, &types.CreateAppointmentRequest{
			SlotRequest: types.SlotRequest{DoctorID: f.doctor.ID, PatientID: p.ID, Date: "2025-03-11", StartTime: "06:00", DurationMinutes: 30},
			Reason:      "follow-up",
		})
		require.NoError(t, err)
		return apt
	}

	apt := bookAt(f.p1)
	_, err := f.svc.TransitionAppointment(context.Background(), f.p1, apt.ID, &types.TransitionRequest{Action: types.ActionCancel})
	require.Error(t, err)
	assert.Equal(t, types.ReasonCancellationWindowClosed, types.ReasonOf(err))
	assert.False(t, types.IsRetryable(err))

	cancelled, err := f.svc.TransitionAppointment(context.Background(), f.staff, apt.ID, &types.TransitionRequest{Action: types.ActionCancel, Reason: "patient called"})
	require.NoError(t, err)
	assert.Equal(t, types.StatusCancelled, cancelled.Status)

	apt2 := bookAt(f.p2)
	cancelled, err = f.svc.TransitionAppointment(context.Background(), f.admin, apt2.ID, &types.TransitionRequest{Action: types.ActionCancel})
	require.NoError(t, err)
	assert.Equal(t, types.StatusCancelled, cancelled.Status)
}

func TestTransitionAppointment_PatientCannotTouchOthers(t *testing.T) {
	f := newFixture(t)
	apt, err := f.book(f.p1, "09:00", 30)
	require.NoError(t, err)

	_, err = f.svc.TransitionAppointment(context.Background(), f.p2, apt.ID, &types.TransitionRequest{Action: types.ActionCancel})
	assert.Equal(t, types.ReasonResourceAccessDenied, types.ReasonOf(err))

	_, err = f.svc.TransitionAppointment(context.Background(), f.p2, "does-not-exist", &types.TransitionRequest{Action: types.ActionCancel})
	assert.Equal(t, types.ReasonResourceAccessDenied, types.ReasonOf(err))

	_, err = f.svc.GetAppointment(context.Background(), f.p2, apt.ID)
	assert.Equal(t, types.ReasonResourceAccessDenied, types.ReasonOf(err))

	got, err := f.svc.GetAppointment(context.Background(), f.p1, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, apt.ID, got.ID)

	_, err = f.act(f.p1, apt.ID, types.ActionConfirm)
	assert.Equal(t, types.ReasonRoleMismatch, types.ReasonOf(err))
}

func TestTransitionAppointment_StaleWrite(t *testing.T) {
	f := newFixture(t)
	apt, err := f.book(f.p1, "09:00", 30)
	require.NoError(t, err)

	// Another writer bumps the version between our read and write
	other, err := f.store.GetAppointment(context.Background(), apt.ID)
	require.NoError(t, err)
	other.Notes = "edited elsewhere"
	require.NoError(t, f.store.SaveAppointment(context.Background(), other, 1))

	next, err := Transition(apt, TransitionInput{Action: types.ActionConfirm, Actor: f.staff, Now: scenarioNow}, f.svc.policy)
	require.NoError(t, err)
	err = f.store.SaveAppointment(context.Background(), next, apt.Version)
	ce, ok := types.AsClinicError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrCodeStaleWrite, ce.Code)
	assert.True(t, types.IsRetryable(err))
}

func TestCreateAppointment_Eligibility(t *testing.T) {
	ctx := context.Background()

	t.Run("patient self-booking disabled by default", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CreateAppointment(ctx, f.p1, &types.CreateAppointmentRequest{
			SlotRequest: types.SlotRequest{DoctorID: f.doctor.ID, Date: "2025-03-10", StartTime: "09:00"},
			Reason:      "toothache",
		})
		assert.Equal(t, types.ReasonRoleMismatch, types.ReasonOf(err))
	})

	t.Run("patient self-booking enabled books for self only", func(t *testing.T) {
		f := newFixture(t, func(c *config.SchedulingConfig) { c.PatientSelfBooking = true })
		apt, err := f.svc.CreateAppointment(ctx, f.p1, &types.CreateAppointmentRequest{
			SlotRequest: types.SlotRequest{DoctorID: f.doctor.ID, Date: "2025-03-10", StartTime: "09:00"},
			Reason:      "toothache",
		})
		require.NoError(t, err)
		assert.Equal(t, f.p1.ID, apt.PatientID)
		assert.Equal(t, 30, apt.DurationMinutes)

		_, err = f.svc.CreateAppointment(ctx, f.p1, &types.CreateAppointmentRequest{
			SlotRequest: types.SlotRequest{DoctorID: f.doctor.ID, PatientID: f.p2.ID, Date: "2025-03-10", StartTime: "10:00"},
			Reason:      "toothache",
		})
		assert.Equal(t, types.ReasonResourceAccessDenied, types.ReasonOf(err))
	})

	t.Run("doctor must be active staff", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CreateAppointment(ctx, f.staff, &types.CreateAppointmentRequest{
			SlotRequest: types.SlotRequest{DoctorID: f.p2.ID, PatientID: f.p1.ID, Date: "2025-03-10", StartTime: "09:00"},
			Reason:      "toothache",
		})
		ce, ok := types.AsClinicError(err)
		require.True(t, ok)
		assert.Equal(t, types.ErrCodeInvalidRole, ce.Code)
	})

	t.Run("validation", func(t *testing.T) {
		f := newFixture(t)
		cases := map[string]*types.CreateAppointmentRequest{
			"missing reason": {SlotRequest: types.SlotRequest{DoctorID: f.doctor.ID, PatientID: f.p1.ID, Date: "2025-03-10", StartTime: "09:00"}},
			"too long": {SlotRequest: types.SlotRequest{DoctorID: f.doctor.ID, PatientID: f.p1.ID, Date: "2025-03-10", StartTime: "09:00", DurationMinutes: 481},
				Reason: "x"},
			"in the past": {SlotRequest: types.SlotRequest{DoctorID: f.doctor.ID, PatientID: f.p1.ID, Date: "2025-03-09", StartTime: "09:00"},
				Reason: "x"},
		}
		for name, req := range cases {
			_, err := f.svc.CreateAppointment(ctx, f.staff, req)
			ce, ok := types.AsClinicError(err)
			require.True(t, ok, name)
			assert.Equal(t, types.ErrorTypeValidation, ce.Type, name)
		}
	})

	t.Run("outside availability", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.book(f.p1, "13:00", 30)
		ce, ok := types.AsClinicError(err)
		require.True(t, ok)
		assert.Equal(t, types.ConflictOutsideAvailability, ce.Details["conflict"].(*types.Conflict).Kind)
	})
}

func TestRescheduleAppointment(t *testing.T) {
	ctx := context.Background()

	t.Run("staff reschedule cancels and links", func(t *testing.T) {
		f := newFixture(t)
		original, err := f.book(f.p1, "09:00", 30)
		require.NoError(t, err)

		replacement, err := f.svc.RescheduleAppointment(ctx, f.staff, original.ID, &types.RescheduleRequest{
			Date: "2025-03-10", StartTime: "09:15",
		})
		require.NoError(t, err)
		assert.Equal(t, types.StatusScheduled, replacement.Status)
		assert.Equal(t, original.ID, replacement.RescheduledFrom)
		assert.Equal(t, 30, replacement.DurationMinutes)

		old, err := f.store.GetAppointment(ctx, original.ID)
		require.NoError(t, err)
		assert.Equal(t, types.StatusCancelled, old.Status)
		assert.Equal(t, "rescheduled", old.CancellationReason)
		assert.Contains(t, f.sink.actions(), audit.ActionAppointmentReschedule)
	})

	t.Run("patient inside cutoff is refused and nothing changes", func(t *testing.T) {
		f := newFixture(t, func(c *config.SchedulingConfig) { c.PatientSelfBooking = true })
		original, err := f.book(f.p1, "09:00", 30)
		require.NoError(t, err)

		_, err = f.svc.RescheduleAppointment(ctx, f.p1, original.ID, &types.RescheduleRequest{Date: "2025-03-10", StartTime: "11:00"})
		assert.Equal(t, types.ReasonCancellationWindowClosed, types.ReasonOf(err))

		old, err := f.store.GetAppointment(ctx, original.ID)
		require.NoError(t, err)
		assert.Equal(t, types.StatusScheduled, old.Status)
	})

	t.Run("conflicting target keeps the original", func(t *testing.T) {
		f := newFixture(t)
		original, err := f.book(f.p1, "09:00", 30)
		require.NoError(t, err)
		_, err = f.book(f.p2, "10:00", 30)
		require.NoError(t, err)

		_, err = f.svc.RescheduleAppointment(ctx, f.staff, original.ID, &types.RescheduleRequest{Date: "2025-03-10", StartTime: "10:00"})
		ce, ok := types.AsClinicError(err)
		require.True(t, ok)
		assert.Equal(t, types.ErrCodeSlotConflict, ce.Code)

		old, err := f.store.GetAppointment(ctx, original.ID)
		require.NoError(t, err)
		assert.Equal(t, types.StatusScheduled, old.Status)
	})

	t.Run("suspended doctor cannot receive the replacement", func(t *testing.T) {
		f := newFixture(t)
		original, err := f.book(f.p1, "11:00", 30)
		require.NoError(t, err)
		f.doctor.Status = types.StatusSuspended

		replacement, err := f.svc.RescheduleAppointment(ctx, f.staff, original.ID, &types.RescheduleRequest{Date: "2025-03-10", StartTime: "10:00"})
		assert.Nil(t, replacement)
		ce, ok := types.AsClinicError(err)
		require.True(t, ok)
		assert.Equal(t, types.ErrCodeInvalidRole, ce.Code)

		old, err := f.store.GetAppointment(ctx, original.ID)
		require.NoError(t, err)
		assert.Equal(t, types.StatusScheduled, old.Status)
	})

	t.Run("inactive patient cannot be rebooked", func(t *testing.T) {
		f := newFixture(t)
		original, err := f.book(f.p1, "11:00", 30)
		require.NoError(t, err)
		f.p1.Status = types.StatusInactive

		_, err = f.svc.RescheduleAppointment(ctx, f.staff, original.ID, &types.RescheduleRequest{Date: "2025-03-10", StartTime: "10:00"})
		ce, ok := types.AsClinicError(err)
		require.True(t, ok)
		assert.Equal(t, types.ErrCodeInvalidRole, ce.Code)
	})

	t.Run("patient without self-booking is refused", func(t *testing.T) {
		f := newFixture(t)
		original, err := f.book(f.p1, "11:00", 30)
		require.NoError(t, err)

		replacement, err := f.svc.RescheduleAppointment(ctx, f.p1, original.ID, &types.RescheduleRequest{Date: "2025-03-10", StartTime: "10:00"})
		assert.Nil(t, replacement)
		assert.Equal(t, types.ReasonRoleMismatch, types.ReasonOf(err))

		old, err := f.store.GetAppointment(ctx, original.ID)
		require.NoError(t, err)
		assert.Equal(t, types.StatusScheduled, old.Status)
		all, err := f.store.ListAppointments(ctx, &types.AppointmentFilters{DoctorID: f.doctor.ID})
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestAnnotateAppointment_AllowedAfterTerminal(t *testing.T) {
	f := newFixture(t)
	apt, err := f.book(f.p1, "09:00", 30)
	require.NoError(t, err)

	_, err = f.svc.TransitionAppointment(context.Background(), f.staff, apt.ID, &types.TransitionRequest{Action: types.ActionCancel})
	require.NoError(t, err)

	annotated, err := f.svc.AnnotateAppointment(context.Background(), f.doctor, apt.ID, "patient rebooked by phone")
	require.NoError(t, err)
	assert.Equal(t, types.StatusCancelled, annotated.Status)
	assert.Contains(t, annotated.Notes, "patient rebooked by phone")

	_, err = f.svc.AnnotateAppointment(context.Background(), f.p1, apt.ID, "hello")
	assert.Equal(t, types.ReasonRoleMismatch, types.ReasonOf(err))
}

func TestListPatientAppointments_RelationshipScoped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.book(f.p1, "09:00", 30)
	require.NoError(t, err)

	apts, err := f.svc.ListPatientAppointments(ctx, f.doctor, f.p1.ID, nil)
	require.NoError(t, err)
	assert.Len(t, apts, 1)

	_, err = f.svc.ListPatientAppointments(ctx, f.doctor, f.p2.ID, nil)
	assert.Equal(t, types.ReasonResourceAccessDenied, types.ReasonOf(err))

	f.store.RecordAuthorship(f.doctor.ID, f.p2.ID)
	apts, err = f.svc.ListPatientAppointments(ctx, f.doctor, f.p2.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, apts)

	apts, err = f.svc.ListPatientAppointments(ctx, f.p1, f.p1.ID, nil)
	require.NoError(t, err)
	assert.Len(t, apts, 1)

	_, err = f.svc.ListPatientAppointments(ctx, f.p1, f.p2.ID, nil)
	assert.Equal(t, types.ReasonResourceAccessDenied, types.ReasonOf(err))
}

func TestScheduleWindows(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.CreateScheduleWindow(ctx, f.staff, &types.ScheduleWindowRequest{
		StaffID: f.doctor.ID, Date: "2025-03-10", StartTime: "13:00", EndTime: "14:00", IsAvailable: true,
	})
	assert.Equal(t, types.ReasonResourceAccessDenied, types.ReasonOf(err))

	w, err := f.svc.CreateScheduleWindow(ctx, f.admin, &types.ScheduleWindowRequest{
		StaffID: f.doctor.ID, Date: "2025-03-10", StartTime: "13:00", EndTime: "14:00", IsAvailable: true,
	})
	require.NoError(t, err)

	_, err = f.svc.CreateScheduleWindow(ctx, f.doctor, &types.ScheduleWindowRequest{
		Date: "2025-03-10", StartTime: "15:00", EndTime: "14:00",
	})
	ce, ok := types.AsClinicError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrorTypeValidation, ce.Type)

	windows, err := f.svc.ListScheduleWindows(ctx, f.p1, f.doctor.ID, "2025-03-10")
	require.NoError(t, err)
	assert.Len(t, windows, 2)

	_, err = f.book(f.p1, "13:00", 30)
	require.NoError(t, err)

	blocked, err := f.svc.SetWindowAvailability(ctx, f.doctor, w.ID, false)
	require.NoError(t, err)
	assert.False(t, blocked.IsAvailable)

	_, err = f.book(f.p2, "13:30", 30)
	ce, ok = types.AsClinicError(err)
	require.True(t, ok)
	assert.Equal(t, types.ConflictOutsideAvailability, ce.Details["conflict"].(*types.Conflict).Kind)
}

func TestAvailableSlots(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.book(f.p1, "09:00", 30)
	require.NoError(t, err)
	_, err = f.book(f.p2, "10:00", 60)
	require.NoError(t, err)

	slots, err := f.svc.AvailableSlots(ctx, f.staff, f.doctor.ID, "", "2025-03-10", 60)
	require.NoError(t, err)

	var starts []string
	for _, s := range slots {
		starts = append(starts, s.StartTime.Format(types.ClockLayout))
	}
	assert.Equal(t, []string{"11:00"}, starts)

	slots, err = f.svc.AvailableSlots(ctx, f.staff, f.doctor.ID, "", "2025-03-10", 30)
	require.NoError(t, err)
	starts = starts[:0]
	for _, s := range slots {
		starts = append(starts, s.StartTime.Format(types.ClockLayout))
	}
	assert.Equal(t, []string{"09:30", "11:00", "11:15", "11:30"}, starts)
}
