package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/clinicops/clinic-core/pkg/database"
	"github.com/clinicops/clinic-core/pkg/types"
)

// Repository reads relationship facts from PostgreSQL
type Repository struct {
	db *database.DB
}

// NewRepository creates a relationship repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// HasAppointmentWith reports whether staffID has ever been booked with patientID
func (r *Repository) HasAppointmentWith(ctx context.Context, staffID, patientID string) (bool, error) {
	return r.exists(ctx,
		`SELECT EXISTS (SELECT 1 FROM appointments WHERE doctor_id = $1 AND patient_id = $2)`,
		staffID, patientID)
}

// HasAuthoredRecordFor reports whether staffID wrote any record for patientID
func (r *Repository) HasAuthoredRecordFor(ctx context.Context, staffID, patientID string) (bool, error) {
	return r.exists(ctx,
		`SELECT EXISTS (SELECT 1 FROM patient_records WHERE author_id = $1 AND patient_id = $2)`,
		staffID, patientID)
}

// GetAppointmentPatientID returns the patient that owns appointmentID
func (r *Repository) GetAppointmentPatientID(ctx context.Context, appointmentID string) (string, error) {
	var patientID string
	err := r.db.QueryRowContext(ctx, `SELECT patient_id FROM appointments WHERE id = $1`, appointmentID).Scan(&patientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", types.NewNotFoundError("appointment", appointmentID)
		}
		return "", fmt.Errorf("failed to get appointment owner: %w", err)
	}
	return patientID, nil
}

func (r *Repository) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}
