package scheduling

import (
	"net/http"
	"strconv"
	"time"

	"github.com/clinicops/clinic-core/internal/gate"
	"github.com/clinicops/clinic-core/pkg/httputil"
	"github.com/clinicops/clinic-core/pkg/logger"
	"github.com/clinicops/clinic-core/pkg/rbac"
	"github.com/clinicops/clinic-core/pkg/types"
	"github.com/gorilla/mux"
)

// Guard wraps a handler so it only runs after the role gate admitted the caller
type Guard func(req gate.Requirement, next http.HandlerFunc) http.Handler

var (
	everyone  = []types.UserRole{types.RoleAdmin, types.RoleStaff, types.RolePatient}
	personnel = []types.UserRole{types.RoleAdmin, types.RoleStaff}
)

// Handler exposes the scheduling service over HTTP
type Handler struct {
	service *Service
	respond *httputil.Responder
}

// NewHandler creates the scheduling HTTP handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		respond: httputil.NewResponder(log),
	}
}

// RegisterRoutes configures HTTP routes for the scheduling service
func (h *Handler) RegisterRoutes(router *mux.Router, guard Guard) {
	api := router.PathPrefix("/api/v1").Subrouter()

	// Appointment routes
	api.Handle("/appointments/propose", guard(gate.Requirement{Roles: everyone}, h.proposeSlotHandler)).Methods("POST")
	api.Handle("/appointments", guard(gate.Requirement{Roles: everyone}, h.createAppointmentHandler)).Methods("POST")
	api.Handle("/appointments/{id}", guard(gate.Requirement{Roles: everyone}, h.getAppointmentHandler)).Methods("GET")
	api.Handle("/appointments/{id}/transitions",
		guard(gate.Requirement{Roles: everyone, ClinicalProfile: true}, h.transitionHandler)).Methods("POST")
	api.Handle("/appointments/{id}/reschedule", guard(gate.Requirement{Roles: everyone}, h.rescheduleHandler)).Methods("POST")
	api.Handle("/appointments/{id}/notes",
		guard(gate.Requirement{Roles: personnel, Permission: rbac.ActionEditAppointments, ClinicalProfile: true}, h.annotateHandler)).Methods("POST")

	// Patient appointments
	api.Handle("/patients/{patientId}/appointments", guard(gate.Requirement{Roles: everyone}, h.patientAppointmentsHandler)).Methods("GET")

	// Availability
	api.Handle("/schedule-windows",
		guard(gate.Requirement{Roles: personnel, Permission: rbac.ActionManageSchedules}, h.createWindowHandler)).Methods("POST")
	api.Handle("/schedule-windows/{id}/availability",
		guard(gate.Requirement{Roles: personnel, Permission: rbac.ActionManageSchedules}, h.setWindowAvailabilityHandler)).Methods("PUT")
	api.Handle("/staff/{staffId}/schedule-windows",
		guard(gate.Requirement{Roles: everyone, Permission: rbac.ActionViewSchedules}, h.listWindowsHandler)).Methods("GET")
	api.Handle("/staff/{staffId}/available-slots",
		guard(gate.Requirement{Roles: everyone, Permission: rbac.ActionViewSchedules}, h.availableSlotsHandler)).Methods("GET")
}

// proposeSlotHandler reports whether a slot is currently free
func (h *Handler) proposeSlotHandler(w http.ResponseWriter, r *http.Request) {
	var req types.SlotRequest
	if err := httputil.Decode(r, &req); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	caller, _ := gate.CallerFromContext(r.Context())
	conflict, err := h.service.ProposeSlot(r.Context(), caller, &req)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	if conflict != nil {
		h.respond.JSON(w, http.StatusOK, map[string]interface{}{"accepted": false, "conflict": conflict})
		return
	}
	h.respond.JSON(w, http.StatusOK, map[string]interface{}{"accepted": true})
}

// createAppointmentHandler handles appointment creation
func (h *Handler) createAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	var req types.CreateAppointmentRequest
	if err := httputil.Decode(r, &req); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	caller, _ := gate.CallerFromContext(r.Context())
	apt, err := h.service.CreateAppointment(r.Context(), caller, &req)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.respond.JSON(w, http.StatusCreated, apt)
}

// getAppointmentHandler handles appointment retrieval
func (h *Handler) getAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	caller, _ := gate.CallerFromContext(r.Context())
	apt, err := h.service.GetAppointment(r.Context(), caller, mux.Vars(r)["id"])
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.respond.JSON(w, http.StatusOK, apt)
}

// transitionHandler applies a lifecycle action
func (h *Handler) transitionHandler(w http.ResponseWriter, r *http.Request) {
	var req types.TransitionRequest
	if err := httputil.Decode(r, &req); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	caller, _ := gate.CallerFromContext(r.Context())
	apt, err := h.service.TransitionAppointment(r.Context(), caller, mux.Vars(r)["id"], &req)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.respond.JSON(w, http.StatusOK, apt)
}

// rescheduleHandler moves an appointment to a new slot
func (h *Handler) rescheduleHandler(w http.ResponseWriter, r *http.Request) {
	var req types.RescheduleRequest
	if err := httputil.Decode(r, &req); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	caller, _ := gate.CallerFromContext(r.Context())
	apt, err := h.service.RescheduleAppointment(r.Context(), caller, mux.Vars(r)["id"], &req)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.respond.JSON(w, http.StatusCreated, apt)
}

// annotateHandler appends clinical notes
func (h *Handler) annotateHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Notes string `json:"notes"`
	}
	if err := httputil.Decode(r, &req); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	caller, _ := gate.CallerFromContext(r.Context())
	apt, err := h.service.AnnotateAppointment(r.Context(), caller, mux.Vars(r)["id"], req.Notes)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.respond.JSON(w, http.StatusOK, apt)
}

// patientAppointmentsHandler lists a patient's appointments
func (h *Handler) patientAppointmentsHandler(w http.ResponseWriter, r *http.Request) {
	filters, err := parseAppointmentFilters(r, h.service.loc)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	caller, _ := gate.CallerFromContext(r.Context())
	appointments, err := h.service.ListPatientAppointments(r.Context(), caller, mux.Vars(r)["patientId"], filters)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	if appointments == nil {
		appointments = []*types.Appointment{}
	}

	h.respond.JSON(w, http.StatusOK, appointments)
}

// createWindowHandler declares availability
func (h *Handler) createWindowHandler(w http.ResponseWriter, r *http.Request) {
	var req types.ScheduleWindowRequest
	if err := httputil.Decode(r, &req); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	caller, _ := gate.CallerFromContext(r.Context())
	window, err := h.service.CreateScheduleWindow(r.Context(), caller, &req)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.respond.JSON(w, http.StatusCreated, window)
}

// setWindowAvailabilityHandler opens or blocks a window
func (h *Handler) setWindowAvailabilityHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsAvailable bool `json:"is_available"`
	}
	if err := httputil.Decode(r, &req); err != nil {
		h.respond.Error(w, r, err)
		return
	}

	caller, _ := gate.CallerFromContext(r.Context())
	window, err := h.service.SetWindowAvailability(r.Context(), caller, mux.Vars(r)["id"], req.IsAvailable)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	h.respond.JSON(w, http.StatusOK, window)
}

// listWindowsHandler lists a staff member's windows for ?date=
func (h *Handler) listWindowsHandler(w http.ResponseWriter, r *http.Request) {
	caller, _ := gate.CallerFromContext(r.Context())
	windows, err := h.service.ListScheduleWindows(r.Context(), caller, mux.Vars(r)["staffId"], r.URL.Query().Get("date"))
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	if windows == nil {
		windows = []*types.ScheduleWindow{}
	}

	h.respond.JSON(w, http.StatusOK, windows)
}

// availableSlotsHandler lists bookable starts for ?date=&duration=&patient_id=
func (h *Handler) availableSlotsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	duration := 0
	if raw := q.Get("duration"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil {
			h.respond.Error(w, r, types.NewValidationError(types.ErrCodeInvalidInput, "duration must be an integer", nil))
			return
		}
		duration = d
	}

	caller, _ := gate.CallerFromContext(r.Context())
	slots, err := h.service.AvailableSlots(r.Context(), caller, mux.Vars(r)["staffId"], q.Get("patient_id"), q.Get("date"), duration)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	if slots == nil {
		slots = []types.TimeSlot{}
	}

	h.respond.JSON(w, http.StatusOK, slots)
}

// parseAppointmentFilters parses filters from query parameters
func parseAppointmentFilters(r *http.Request, loc *time.Location) (*types.AppointmentFilters, error) {
	q := r.URL.Query()
	filters := &types.AppointmentFilters{
		Status: types.AppointmentStatus(q.Get("status")),
	}
	if filters.Status != "" && !filters.Status.Valid() {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "unknown status",
			map[string]interface{}{"status": filters.Status})
	}

	if from := q.Get("from_date"); from != "" {
		t, err := time.ParseInLocation(types.DateLayout, from, loc)
		if err != nil {
			return nil, types.NewValidationError(types.ErrCodeInvalidInput, "from_date must be formatted YYYY-MM-DD", nil)
		}
		filters.FromDate = t
	}
	if to := q.Get("to_date"); to != "" {
		t, err := time.ParseInLocation(types.DateLayout, to, loc)
		if err != nil {
			return nil, types.NewValidationError(types.ErrCodeInvalidInput, "to_date must be formatted YYYY-MM-DD", nil)
		}
		filters.ToDate = t.AddDate(0, 0, 1)
	}

	if limit := q.Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 {
			filters.Limit = l
		}
	}
	if offset := q.Get("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil && o >= 0 {
			filters.Offset = o
		}
	}
	return filters, nil
}
