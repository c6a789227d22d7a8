package sql

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	sqlite3 "modernc.org/sqlite/lib"
)

// Constraint kinds reported by ConstraintKind.
const (
	ConstraintUnique     = "unique"
	ConstraintForeignKey = "foreign_key"
	ConstraintCheck      = "check"
)

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// MySQL error numbers for constraint violations.
const (
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451 // Cannot delete or update a parent row
	mysqlForeignKeyChild        = 1452 // Cannot add or update a child row
	mysqlCheckConstraintViolate = 3819
)

// sqliteCoder is implemented by modernc.org/sqlite errors.
type sqliteCoder interface {
	Code() int
}

// sqlStateError is implemented by drivers that expose SQLSTATE codes (pgx).
type sqlStateError interface {
	SQLState() string
}

// ConstraintKind classifies a driver error as a constraint violation and
// returns its kind, or "" when the error is not a constraint violation.
func ConstraintKind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsUniqueConstraintError(err):
		return ConstraintUnique
	case IsForeignKeyConstraintError(err):
		return ConstraintForeignKey
	case IsCheckConstraintError(err):
		return ConstraintCheck
	}
	return ""
}

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	return ConstraintKind(err) != ""
}

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
// e.g. duplicate value in unique index.
func IsUniqueConstraintError(err error) bool {
	return matchError(err, []string{pgUniqueViolation}, []uint16{mysqlDuplicateEntry},
		[]int{sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY},
		"Error 1062",                 // MySQL (string fallback)
		"violates unique constraint", // Postgres (string fallback)
		"UNIQUE constraint failed",   // SQLite
	)
}

// IsForeignKeyConstraintError reports if the error resulted from a database foreign-key constraint violation.
// e.g. parent row does not exist.
func IsForeignKeyConstraintError(err error) bool {
	return matchError(err, []string{pgForeignKeyViolation}, []uint16{mysqlForeignKeyParent, mysqlForeignKeyChild},
		[]int{sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY},
		"Error 1451",                      // MySQL (Cannot delete or update a parent row)
		"Error 1452",                      // MySQL (Cannot add or update a child row)
		"violates foreign key constraint", // Postgres
		"FOREIGN KEY constraint failed",   // SQLite
	)
}

// IsCheckConstraintError reports if the error resulted from a database check constraint violation.
// e.g. a value does not satisfy a check condition.
func IsCheckConstraintError(err error) bool {
	return matchError(err, []string{pgCheckViolation}, []uint16{mysqlCheckConstraintViolate},
		[]int{sqlite3.SQLITE_CONSTRAINT_CHECK},
		"Error 3819",                // MySQL
		"violates check constraint", // Postgres
		"CHECK constraint failed",   // SQLite
	)
}

// matchError checks the typed errors of each supported driver, then the
// error message.
func matchError(err error, pgCodes []string, mysqlNumbers []uint16, sqliteCodes []int, fallback ...string) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && contains(pgCodes, string(pqErr.Code)) {
		return true
	}
	if e, ok := asError[sqlStateError](err); ok && contains(pgCodes, e.SQLState()) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && contains(mysqlNumbers, myErr.Number) {
		return true
	}
	if e, ok := asError[sqliteCoder](err); ok && contains(sqliteCodes, e.Code()) {
		return true
	}
	// Fallback to string matching for drivers without typed errors.
	return containsAny(err.Error(), fallback...)
}

// asError attempts to extract an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
