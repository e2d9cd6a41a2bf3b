package database

import (
	"context"
	"fmt"
)

// CreateSchema creates the clinic schema; every statement is idempotent
func (db *DB) CreateSchema(ctx context.Context) error {
	log := db.logger.WithComponent("database")
	log.Info("Creating database schema")

	for _, stmt := range schemaStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}

	log.Info("Database schema created successfully")
	return nil
}

// MissingOverlapGuards returns the appointment exclusion constraints absent
// from the live schema. Without them double booking is only caught by the
// advisory pre-check.
func (db *DB) MissingOverlapGuards(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT conname FROM pg_constraint WHERE conrelid = 'appointments'::regclass AND contype = 'x'`)
	if err != nil {
		return nil, fmt.Errorf("failed to list exclusion constraints: %w", err)
	}
	defer rows.Close()

	present := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan constraint: %w", err)
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []string
	for _, name := range []string{ConstraintDoctorNoOverlap, ConstraintPatientNoOverlap} {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

func schemaStatements() []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
		// btree_gist lets the exclusion constraints combine = on text with && on ranges
		`CREATE EXTENSION IF NOT EXISTS "btree_gist";`,
		createUsersTable,
		createStaffProfilesTable,
		createPatientProfilesTable,
		createPatientRecordsTable,
		createAppointmentsTable,
		createScheduleWindowsTable,
		createAuditLogsTable,
		createIndexes,
	}
}

const (
	createUsersTable = `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(200) NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(20) NOT NULL CHECK (role IN ('admin', 'staff', 'patient')),
			status VARCHAR(20) NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'inactive', 'suspended')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

	createStaffProfilesTable = `
		CREATE TABLE IF NOT EXISTS staff_profiles (
			user_id UUID PRIMARY KEY REFERENCES users(id),
			employee_id VARCHAR(50),
			position VARCHAR(100),
			license_number VARCHAR(100),
			license_expiry DATE,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

	createPatientProfilesTable = `
		CREATE TABLE IF NOT EXISTS patient_profiles (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID UNIQUE NOT NULL REFERENCES users(id),
			emergency_contact_name VARCHAR(200) NOT NULL,
			emergency_contact_phone VARCHAR(50) NOT NULL,
			insurance_provider VARCHAR(200),
			insurance_policy_number VARCHAR(100),
			medical_history TEXT,
			allergies TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

	createPatientRecordsTable = `
		CREATE TABLE IF NOT EXISTS patient_records (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			patient_id UUID NOT NULL REFERENCES users(id),
			author_id UUID NOT NULL REFERENCES users(id),
			record_type VARCHAR(50) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

	// The EXCLUDE constraints are the commit-time slot guard: two active
	// appointments for the same doctor (or patient) may never overlap.
	createAppointmentsTable = `
		CREATE TABLE IF NOT EXISTS appointments (
			id UUID PRIMARY KEY,
			patient_id UUID NOT NULL REFERENCES users(id),
			doctor_id UUID NOT NULL REFERENCES users(id),
			service_id VARCHAR(100),
			starts_at TIMESTAMPTZ NOT NULL,
			ends_at TIMESTAMPTZ NOT NULL,
			duration_minutes INTEGER NOT NULL CHECK (duration_minutes > 0),
			status VARCHAR(20) NOT NULL CHECK (status IN ('scheduled', 'confirmed', 'checked_in', 'in_progress', 'completed', 'cancelled', 'no_show')),
			reason TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			cancellation_reason TEXT NOT NULL DEFAULT '',
			checked_in_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ,
			cancelled_at TIMESTAMPTZ,
			rescheduled_from UUID REFERENCES appointments(id),
			created_by UUID NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (ends_at > starts_at),
			CONSTRAINT appointments_doctor_no_overlap EXCLUDE USING gist (
				doctor_id WITH =,
				tstzrange(starts_at, ends_at, '[)') WITH &&
			) WHERE (status IN ('scheduled', 'confirmed', 'checked_in', 'in_progress')),
			CONSTRAINT appointments_patient_no_overlap EXCLUDE USING gist (
				patient_id WITH =,
				tstzrange(starts_at, ends_at, '[)') WITH &&
			) WHERE (status IN ('scheduled', 'confirmed', 'checked_in', 'in_progress'))
		);`

	createScheduleWindowsTable = `
		CREATE TABLE IF NOT EXISTS schedule_windows (
			id UUID PRIMARY KEY,
			staff_id UUID NOT NULL REFERENCES users(id),
			starts_at TIMESTAMPTZ NOT NULL,
			ends_at TIMESTAMPTZ NOT NULL,
			is_available BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (ends_at > starts_at)
		);`

	createAuditLogsTable = `
		CREATE TABLE IF NOT EXISTS audit_logs (
			id UUID PRIMARY KEY,
			actor_id VARCHAR(100) NOT NULL,
			actor_role VARCHAR(20) NOT NULL,
			action VARCHAR(100) NOT NULL,
			target_id VARCHAR(100) NOT NULL,
			detail JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

	createIndexes = `
		CREATE INDEX IF NOT EXISTS idx_appointments_doctor_start ON appointments(doctor_id, starts_at);
		CREATE INDEX IF NOT EXISTS idx_appointments_patient_start ON appointments(patient_id, starts_at);
		CREATE INDEX IF NOT EXISTS idx_schedule_windows_staff_start ON schedule_windows(staff_id, starts_at);
		CREATE INDEX IF NOT EXISTS idx_patient_records_author ON patient_records(author_id, patient_id);
		CREATE INDEX IF NOT EXISTS idx_audit_logs_actor ON audit_logs(actor_id, created_at);
		CREATE INDEX IF NOT EXISTS idx_audit_logs_target ON audit_logs(target_id, created_at);`
)
