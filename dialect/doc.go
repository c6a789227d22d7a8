// Package dialect defines the boundary between the ORM core and the database.
//
// The core never talks to a connection directly. Every query is compiled into
// a Statement and handed to an Executor, which returns rows for reads and a
// Result for writes.
//
// # Supported Dialects
//
//   - Postgres: PostgreSQL database
//   - MySQL: MySQL/MariaDB database
//   - SQLite: SQLite database
//
// Each dialect is identified by a constant string:
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// # Executor Interface
//
//	type Executor interface {
//	    Query(ctx context.Context, stmt *Statement) ([]Row, error)
//	    Exec(ctx context.Context, stmt *Statement) (Result, error)
//	}
//
// # Driver Interface
//
// A Driver is an Executor that can also open transactions:
//
//	type Driver interface {
//	    Executor
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Usage
//
//	import (
//	    "github.com/syssam/eloquent/dialect"
//	    "github.com/syssam/eloquent/dialect/sql"
//	)
//
//	drv, err := sql.Open(dialect.Postgres, "postgres://...")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
//	client := eloquent.NewClient(drv)
//
// # Sub-packages
//
//   - dialect/sql: database/sql backed driver, statistics and debug wrappers,
//     YAML connection config and Prometheus metrics.
package dialect
