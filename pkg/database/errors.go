package database

import (
	"errors"

	"github.com/lib/pq"
)

// PostgreSQL SQLSTATE codes the repositories react to
const (
	CodeUniqueViolation      = "23505"
	CodeForeignKeyViolation  = "23503"
	CodeExclusionViolation   = "23P01"
	CodeSerializationFailure = "40001"
)

// Names of the overlap guards created by the schema
const (
	ConstraintDoctorNoOverlap  = "appointments_doctor_no_overlap"
	ConstraintPatientNoOverlap = "appointments_patient_no_overlap"
)

// PgError returns the *pq.Error in err's chain, if any
func PgError(err error) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr, true
	}
	return nil, false
}

// ErrorCode returns the SQLSTATE of err or "" when err is not a driver error
func ErrorCode(err error) string {
	if pqErr, ok := PgError(err); ok {
		return string(pqErr.Code)
	}
	return ""
}

// IsExclusionViolation reports whether an EXCLUDE constraint rejected the write and which one
func IsExclusionViolation(err error) (string, bool) {
	pqErr, ok := PgError(err)
	if !ok || string(pqErr.Code) != CodeExclusionViolation {
		return "", false
	}
	return pqErr.Constraint, true
}

// IsSerializationFailure reports whether a serializable transaction lost a race
func IsSerializationFailure(err error) bool {
	return ErrorCode(err) == CodeSerializationFailure
}

// IsUniqueViolation reports whether a unique index rejected the write
func IsUniqueViolation(err error) bool {
	return ErrorCode(err) == CodeUniqueViolation
}
