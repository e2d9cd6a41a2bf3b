package types

import "time"

// UserRole represents the three clinic roles
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleStaff   UserRole = "staff"
	RolePatient UserRole = "patient"
)

// Valid reports whether the role is one of the known clinic roles
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RolePatient:
		return true
	}
	return false
}

// IsClinicPersonnel reports whether the role belongs to clinic employees
func (r UserRole) IsClinicPersonnel() bool {
	return r == RoleAdmin || r == RoleStaff
}

// LandingPath returns the UI entry point for the role
func (r UserRole) LandingPath() string {
	switch r {
	case RoleAdmin:
		return "/admin/dashboard"
	case RoleStaff:
		return "/staff/dashboard"
	case RolePatient:
		return "/patient/dashboard"
	}
	return "/login"
}

// AccountStatus represents the lifecycle status of a user account
type AccountStatus string

const (
	StatusActive    AccountStatus = "active"
	StatusInactive  AccountStatus = "inactive"
	StatusSuspended AccountStatus = "suspended"
)

// PositionDentist is the staff position that requires a valid license
const PositionDentist = "dentist"

// User represents a system user
type User struct {
	ID           string        `json:"id" db:"id"`
	Name         string        `json:"name" db:"name"`
	Email        string        `json:"email" db:"email"`
	Role         UserRole      `json:"role" db:"role"`
	Status       AccountStatus `json:"status" db:"status"`
	PasswordHash string        `json:"-" db:"password_hash"`
	Staff        *StaffProfile `json:"staff,omitempty"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the account may use the system
func (u *User) IsActive() bool {
	return u != nil && u.Status == StatusActive
}

// StaffProfile carries the role-conditional attributes of staff users
type StaffProfile struct {
	EmployeeID    string     `json:"employee_id" db:"employee_id"`
	Position      string     `json:"position" db:"position"`
	LicenseNumber string     `json:"license_number,omitempty" db:"license_number"`
	LicenseExpiry *time.Time `json:"license_expiry,omitempty" db:"license_expiry"`
}

// PlaceholderEmergencyContact is stored when a patient profile is created lazily
const PlaceholderEmergencyContact = "Not provided"

// PatientProfile extends a patient user with contact, insurance and history data
type PatientProfile struct {
	ID                    string    `json:"id" db:"id"`
	UserID                string    `json:"user_id" db:"user_id"`
	EmergencyContactName  string    `json:"emergency_contact_name" db:"emergency_contact_name"`
	EmergencyContactPhone string    `json:"emergency_contact_phone" db:"emergency_contact_phone"`
	InsuranceProvider     string    `json:"insurance_provider,omitempty" db:"insurance_provider"`
	InsurancePolicyNumber string    `json:"insurance_policy_number,omitempty" db:"insurance_policy_number"`
	MedicalHistory        string    `json:"medical_history,omitempty" db:"medical_history"`
	Allergies             string    `json:"allergies,omitempty" db:"allergies"`
	CreatedAt             time.Time `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time `json:"updated_at" db:"updated_at"`
}

// Credentials represents user login credentials
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthToken represents authentication token response
type AuthToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
	Role        UserRole  `json:"role"`
	LandingPath string    `json:"landing_path"`
}
