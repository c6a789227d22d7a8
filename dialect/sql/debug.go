package sql

import (
	"context"
	"log/slog"

	"github.com/syssam/eloquent/dialect"
)

// DebugDriver is a dialect.Driver that logs every statement and
// transaction boundary at debug level.
type DebugDriver struct {
	dialect.Driver
	logger *slog.Logger
}

// NewDebugDriver wraps drv with statement logging. A nil logger uses
// slog.Default.
//
//	drv, _ := sql.Open(dialect.SQLite, "file:app.db")
//	client := eloquent.NewClient(sql.NewDebugDriver(drv, logger))
func NewDebugDriver(drv dialect.Driver, logger *slog.Logger) *DebugDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &DebugDriver{Driver: drv, logger: logger}
}

// Query implements dialect.Executor.
func (d *DebugDriver) Query(ctx context.Context, stmt *dialect.Statement) ([]dialect.Row, error) {
	logStatement(ctx, d.logger, stmt, false)
	return d.Driver.Query(ctx, stmt)
}

// Exec implements dialect.Executor.
func (d *DebugDriver) Exec(ctx context.Context, stmt *dialect.Statement) (dialect.Result, error) {
	logStatement(ctx, d.logger, stmt, false)
	return d.Driver.Exec(ctx, stmt)
}

// Tx implements dialect.Driver.
func (d *DebugDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		d.logger.DebugContext(ctx, "begin failed", "error", err)
		return nil, err
	}
	d.logger.DebugContext(ctx, "begin")
	return &debugTx{Tx: tx, ctx: ctx, logger: d.logger}, nil
}

type debugTx struct {
	dialect.Tx
	// ctx is the context the transaction was started with. Commit and
	// Rollback take none.
	ctx    context.Context
	logger *slog.Logger
}

func (tx *debugTx) Query(ctx context.Context, stmt *dialect.Statement) ([]dialect.Row, error) {
	logStatement(ctx, tx.logger, stmt, true)
	return tx.Tx.Query(ctx, stmt)
}

func (tx *debugTx) Exec(ctx context.Context, stmt *dialect.Statement) (dialect.Result, error) {
	logStatement(ctx, tx.logger, stmt, true)
	return tx.Tx.Exec(ctx, stmt)
}

func (tx *debugTx) Commit() error {
	tx.logger.DebugContext(tx.ctx, "commit")
	return tx.Tx.Commit()
}

func (tx *debugTx) Rollback() error {
	tx.logger.DebugContext(tx.ctx, "rollback")
	return tx.Tx.Rollback()
}

func logStatement(ctx context.Context, logger *slog.Logger, stmt *dialect.Statement, inTx bool) {
	logger.DebugContext(ctx, "statement",
		slog.String("op", string(stmt.Op)),
		slog.String("sql", stmt.SQL),
		slog.Any("args", stmt.Args),
		slog.Bool("tx", inTx),
	)
}

var (
	_ dialect.Driver = (*DebugDriver)(nil)
	_ dialect.Tx     = (*debugTx)(nil)
)
