package identity

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
	"github.com/google/uuid"
)

// UserRepository implements user and profile persistence
type UserRepository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB, log *logger.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: log,
	}
}

const selectUserColumns = `
	SELECT u.id, u.name, u.email, u.role, u.status, u.password_hash, u.created_at, u.updated_at,
		sp.user_id, sp.employee_id, sp.position, sp.license_number, sp.license_expiry
	FROM users u
	LEFT JOIN staff_profiles sp ON sp.user_id = u.id`

// GetUserByID retrieves a user with its staff profile, if any
func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*types.User, error) {
	user, err := r.scanUser(r.db.QueryRowContext(ctx, selectUserColumns+` WHERE u.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.NewNotFoundError("user", id)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by login email
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := r.scanUser(r.db.QueryRowContext(ctx, selectUserColumns+` WHERE u.email = $1`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.NewNotFoundError("user", email)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

func (r *UserRepository) scanUser(row *sql.Row) (*types.User, error) {
	var (
		user          types.User
		staffUserID   sql.NullString
		employeeID    sql.NullString
		position      sql.NullString
		licenseNumber sql.NullString
		licenseExpiry sql.NullTime
	)

	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.Status,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
		&staffUserID,
		&employeeID,
		&position,
		&licenseNumber,
		&licenseExpiry,
	)
	if err != nil {
		return nil, err
	}

	if staffUserID.Valid {
		user.Staff = &types.StaffProfile{
			EmployeeID:    employeeID.String,
			Position:      position.String,
			LicenseNumber: licenseNumber.String,
		}
		if licenseExpiry.Valid {
			expiry := licenseExpiry.Time
			user.Staff.LicenseExpiry = &expiry
		}
	}

	return &user, nil
}

// UpdateUserStatus changes an account's lifecycle status
func (r *UserRepository) UpdateUserStatus(ctx context.Context, id string, status types.AccountStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return types.NewNotFoundError("user", id)
	}
	return nil
}

// GetPatientProfile returns the profile linked to userID
func (r *UserRepository) GetPatientProfile(ctx context.Context, userID string) (*types.PatientProfile, error) {
	query := `
		SELECT id, user_id, emergency_contact_name, emergency_contact_phone,
			COALESCE(insurance_provider, ''), COALESCE(insurance_policy_number, ''),
			COALESCE(medical_history, ''), COALESCE(allergies, ''), created_at, updated_at
		FROM patient_profiles
		WHERE user_id = $1`

	var p types.PatientProfile
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.ID,
		&p.UserID,
		&p.EmergencyContactName,
		&p.EmergencyContactPhone,
		&p.InsuranceProvider,
		&p.InsurancePolicyNumber,
		&p.MedicalHistory,
		&p.Allergies,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.NewNotFoundError("patient_profile", userID)
		}
		return nil, fmt.Errorf("failed to get patient profile: %w", err)
	}
	return &p, nil
}

// CreatePatientProfile inserts profile unless one already exists for the user.
// It reports whether a row was written.
func (r *UserRepository) CreatePatientProfile(ctx context.Context, profile *types.PatientProfile) (bool, error) {
	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}

	query := `
		INSERT INTO patient_profiles (id, user_id, emergency_contact_name, emergency_contact_phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query,
		profile.ID,
		profile.UserID,
		profile.EmergencyContactName,
		profile.EmergencyContactPhone,
		profile.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create patient profile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}
