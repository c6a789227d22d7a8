// Package sql implements dialect.Driver on top of database/sql.
//
// Statements compiled by package query are executed through Conn, which reads
// result sets fully into dialect.Row maps and reports write results with
// rows affected and generated keys. On Postgres, INSERT statements carrying a
// Returning column are run as queries so the generated key is read from the
// RETURNING clause; MySQL and SQLite report it through LastInsertId.
//
// # Opening
//
//	drv, err := sql.Open(dialect.SQLite, "file:app.db")
//
// or from a YAML file:
//
//	cfg, err := sql.LoadConfig("database.yaml")
//	drv, err := sql.OpenConfig(cfg, logger)
//
// The postgres (lib/pq), mysql (go-sql-driver) and sqlite (modernc.org)
// database/sql drivers are registered by this package.
//
// # Observability
//
// StatsDriver counts statements per kind and per table, along with their
// durations and failures. DebugDriver logs every statement through slog.
// StatsCollector exports the counters to Prometheus:
//
//	stats := sql.NewStatsDriver(drv, sql.WithSlowQueryLog(logger))
//	prometheus.MustRegister(sql.NewStatsCollector("app_db", stats.QueryStats()))
//
// # Errors
//
// IsUniqueConstraintError, IsForeignKeyConstraintError and
// IsCheckConstraintError classify driver errors across Postgres, MySQL and
// SQLite.
package sql
