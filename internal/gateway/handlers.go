package gateway

import (
	"net/http"

	"github.com/clinicops/clinic-core/internal/gate"
	"github.com/clinicops/clinic-core/pkg/httputil"
	"github.com/clinicops/clinic-core/pkg/rbac"
	"github.com/clinicops/clinic-core/pkg/types"
	"github.com/gorilla/mux"
)

var anyRole = gate.Requirement{}

// registerAuthRoutes wires login, logout, the caller profile and account administration
func (s *Service) registerAuthRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/login", s.loginHandler).Methods("POST")
	api.Handle("/auth/logout", s.Protect(anyRole, s.logoutHandler)).Methods("POST")
	api.Handle("/auth/me", s.Protect(anyRole, s.meHandler)).Methods("GET")

	api.Handle("/admin/users/{id}/status", s.Protect(gate.Requirement{
		Roles:      []types.UserRole{types.RoleAdmin},
		Permission: rbac.ActionManageUsers,
	}, s.setUserStatusHandler)).Methods("PUT")
}

// loginHandler exchanges credentials for a session token
func (s *Service) loginHandler(w http.ResponseWriter, r *http.Request) {
	if !s.admit(w, r, "ip:"+s.clientIP(r)) {
		return
	}

	var creds types.Credentials
	if err := httputil.Decode(r, &creds); err != nil {
		s.respond.Error(w, r, err)
		return
	}

	token, user, err := s.identity.Login(r.Context(), &creds)
	if err != nil {
		s.respond.Error(w, r, err)
		return
	}

	s.respond.JSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// logoutHandler ends the session the request was made with
func (s *Service) logoutHandler(w http.ResponseWriter, r *http.Request) {
	caller, _ := gate.CallerFromContext(r.Context())
	if err := s.identity.Logout(r.Context(), caller, gate.SessionIDFromContext(r.Context())); err != nil {
		s.respond.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// meHandler returns the caller with the actions its role may perform
func (s *Service) meHandler(w http.ResponseWriter, r *http.Request) {
	caller, _ := gate.CallerFromContext(r.Context())
	s.respond.JSON(w, http.StatusOK, map[string]interface{}{
		"user":         caller,
		"permissions":  rbac.Permissions(caller.Role),
		"landing_path": caller.Role.LandingPath(),
	})
}

// setUserStatusHandler activates, deactivates or suspends an account
func (s *Service) setUserStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status types.AccountStatus `json:"status"`
	}
	if err := httputil.Decode(r, &req); err != nil {
		s.respond.Error(w, r, err)
		return
	}

	caller, _ := gate.CallerFromContext(r.Context())
	if err := s.identity.SetAccountStatus(r.Context(), caller, s.users, mux.Vars(r)["id"], req.Status); err != nil {
		s.respond.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// notFoundHandler renders unknown routes in the common error shape
func (s *Service) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.respond.Error(w, r, types.NewNotFoundError("route", r.URL.Path))
}
