package dialect

import (
	"context"
	"fmt"
)

// Dialect names for external usage.
const (
	MySQL    = "mysql"
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// Op is the kind of statement carried by a Statement.
type Op string

// Statement kinds.
const (
	OpSelect Op = "SELECT"
	OpCount  Op = "COUNT"
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// IsWrite reports whether the operation modifies rows.
func (o Op) IsWrite() bool {
	return o == OpInsert || o == OpUpdate || o == OpDelete
}

// Statement is the compiled, executable shape of a query.
type Statement struct {
	Op    Op
	Table string
	SQL   string
	Args  []any
	// Values is the attribute payload of INSERT and UPDATE statements.
	Values map[string]any
	// Returning names the column whose generated value an INSERT reports
	// back. Drivers that support RETURNING use it, others fall back to the
	// last insert id.
	Returning string
}

// String implements the fmt.Stringer interface.
func (s *Statement) String() string {
	return fmt.Sprintf("%s args=%v", s.SQL, s.Args)
}

// Row is a single result row keyed by column name.
type Row map[string]any

// Result is the outcome of a write statement.
type Result struct {
	RowsAffected int64
	// LastInsertID is the generated primary key, or nil when the driver
	// did not report one.
	LastInsertID any
}

// Executor runs compiled statements.
type Executor interface {
	// Query runs a SELECT or COUNT statement and returns all rows.
	Query(ctx context.Context, stmt *Statement) ([]Row, error)
	// Exec runs an INSERT, UPDATE or DELETE statement.
	Exec(ctx context.Context, stmt *Statement) (Result, error)
}

// Driver is the interface that wraps all necessary operations for the
// ORM to talk to a database.
type Driver interface {
	Executor
	// Tx starts and returns a new transaction.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	Executor
	Commit() error
	Rollback() error
}

// Supported reports whether the given dialect name is known.
func Supported(name string) bool {
	switch name {
	case MySQL, SQLite, Postgres:
		return true
	}
	return false
}
