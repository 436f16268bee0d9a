package db

import (
	"strings"

	pkgerrors "github.com/pennyekart/pennyekart-backend/pkg/errors"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// IsUniqueViolation reports whether err is a unique-key collision. When
// constraintName is provided the collision must name that constraint.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if pg, ok := pkgerrors.PostgresFields(err); ok {
		return pg.Code == pgUniqueViolation && matchesConstraint(pg.Constraint, constraintName)
	}
	// sqlite and wrapped driver errors only carry text.
	return textMatches(err.Error(), constraintName, "duplicate key value", "UNIQUE constraint failed")
}

// IsForeignKeyViolation reports whether err references a missing parent row,
// such as a batch pointing at a deleted godown.
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if pg, ok := pkgerrors.PostgresFields(err); ok {
		return pg.Code == pgForeignKeyViolation
	}
	return textMatches(err.Error(), "", "violates foreign key constraint", "FOREIGN KEY constraint failed")
}

func textMatches(msg, constraintName string, markers ...string) bool {
	for _, marker := range markers {
		if strings.Contains(msg, marker) {
			return constraintName == "" || strings.Contains(msg, constraintName)
		}
	}
	return false
}

func matchesConstraint(actual, want string) bool {
	return want == "" || actual == want
}
