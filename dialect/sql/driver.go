package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/eloquent/dialect"
)

// Driver is a dialect.Driver implementation for SQL based databases.
type Driver struct {
	Conn
	dialect string
}

// NewDriver creates a new Driver with the given Conn and dialect.
func NewDriver(dialect string, c Conn) *Driver {
	return &Driver{dialect: dialect, Conn: c}
}

// Open wraps the database/sql.Open method and returns a dialect.Driver.
// The dialect name doubles as the registered database/sql driver name.
func Open(dialect, source string) (*Driver, error) {
	db, err := sql.Open(dialect, source)
	if err != nil {
		return nil, err
	}
	return NewDriver(dialect, Conn{db, dialect}), nil
}

// OpenDB wraps the given database/sql.DB method with a Driver.
func OpenDB(dialect string, db *sql.DB) *Driver {
	return NewDriver(dialect, Conn{db, dialect})
}

// DB returns the underlying *sql.DB instance.
func (d Driver) DB() *sql.DB {
	return d.ExecQuerier.(*sql.DB)
}

// Dialect implements the dialect.Dialect method.
func (d Driver) Dialect() string {
	// The driver name may carry a suffix, e.g. "sqlite3" or a telemetry wrapper.
	for _, name := range []string{dialect.MySQL, dialect.SQLite, dialect.Postgres} {
		if strings.HasPrefix(d.dialect, name) {
			return name
		}
	}
	return d.dialect
}

// Tx starts and returns a transaction.
func (d *Driver) Tx(ctx context.Context) (dialect.Tx, error) {
	return d.BeginTx(ctx, nil)
}

// BeginTx starts a transaction with options.
func (d *Driver) BeginTx(ctx context.Context, opts *TxOptions) (dialect.Tx, error) {
	tx, err := d.DB().BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: begin: %w", err)
	}
	return &Tx{
		Conn: Conn{tx, d.dialect},
		Tx:   tx,
	}, nil
}

// Close closes the underlying connection.
func (d *Driver) Close() error { return d.DB().Close() }

// Tx implements dialect.Tx interface.
type Tx struct {
	Conn
	driver.Tx
}

// ExecQuerier wraps the standard Exec and Query methods.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn implements dialect.Executor given ExecQuerier.
type Conn struct {
	ExecQuerier
	dialect string
}

// Query implements the dialect.Executor Query method. All rows are read and
// the cursor is closed before returning, so the connection goes back to the
// pool immediately.
func (c Conn) Query(ctx context.Context, stmt *dialect.Statement) ([]dialect.Row, error) {
	rows, err := c.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: query: %w", err)
	}
	result, err := scanRows(rows)
	if cerr := rows.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: scan: %w", err)
	}
	return result, nil
}

// Exec implements the dialect.Executor Exec method.
func (c Conn) Exec(ctx context.Context, stmt *dialect.Statement) (dialect.Result, error) {
	if stmt.Op == dialect.OpInsert && stmt.Returning != "" && c.dialect == dialect.Postgres {
		return c.execReturning(ctx, stmt)
	}
	res, err := c.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return dialect.Result{}, fmt.Errorf("dialect/sql: exec: %w", err)
	}
	var out dialect.Result
	if out.RowsAffected, err = res.RowsAffected(); err != nil {
		return dialect.Result{}, fmt.Errorf("dialect/sql: rows affected: %w", err)
	}
	if stmt.Op == dialect.OpInsert {
		// Not every driver reports generated ids; a missing id is not an error.
		if id, err := res.LastInsertId(); err == nil && id != 0 {
			out.LastInsertID = id
		}
	}
	return out, nil
}

// execReturning runs an INSERT ... RETURNING statement and reads the
// generated key from the first returned row.
func (c Conn) execReturning(ctx context.Context, stmt *dialect.Statement) (dialect.Result, error) {
	rows, err := c.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return dialect.Result{}, fmt.Errorf("dialect/sql: exec: %w", err)
	}
	scanned, err := scanRows(rows)
	if cerr := rows.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	if err != nil {
		return dialect.Result{}, fmt.Errorf("dialect/sql: scan returning: %w", err)
	}
	out := dialect.Result{RowsAffected: int64(len(scanned))}
	if len(scanned) > 0 {
		out.LastInsertID = scanned[0][stmt.Returning]
	}
	return out, nil
}

// scanRows reads every row into a column-keyed map. []byte values are
// copied into strings, as drivers hand out text columns as bytes.
func scanRows(rows *sql.Rows) ([]dialect.Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var result []dialect.Row
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make(dialect.Row, len(columns))
		for i, name := range columns {
			if b, ok := values[i].([]byte); ok {
				row[name] = string(b)
				continue
			}
			row[name] = values[i]
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

var _ dialect.Driver = (*Driver)(nil)

// TxOptions holds the transaction options to be used in DB.BeginTx.
type TxOptions = sql.TxOptions
