package db

import (
	"strings"

	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

const (
	sqlStateUniqueViolation = "23505"
	sqlStateCheckViolation  = "23514"
)

// IsUniqueViolation reports whether err is a unique constraint failure. When
// constraintName is provided only that constraint matches.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if pg := pkgerrors.PostgresFields(err); !pg.Empty() {
		if pg.Code != sqlStateUniqueViolation {
			return false
		}
		return constraintName == "" || pg.Constraint == constraintName
	}
	msg := err.Error()
	if constraintName != "" && strings.Contains(msg, constraintName) {
		return true
	}
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}

// IsCheckViolation reports whether err is a CHECK constraint failure.
func IsCheckViolation(err error) bool {
	if err == nil {
		return false
	}
	if pg := pkgerrors.PostgresFields(err); !pg.Empty() {
		return pg.Code == sqlStateCheckViolation
	}
	return strings.Contains(err.Error(), "CHECK constraint failed")
}
