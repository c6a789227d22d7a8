package sql

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/syssam/eloquent/dialect"
)

// QueryStats accumulates counters for the statements run through a
// StatsDriver. It is safe for concurrent use.
type QueryStats struct {
	reads   atomic.Int64
	writes  atomic.Int64
	errors  atomic.Int64
	slow    atomic.Int64
	elapsed atomic.Int64

	mu     sync.Mutex
	tables map[string]int64
}

func (s *QueryStats) add(stmt *dialect.Statement, d time.Duration, err error, slow bool) {
	if stmt.Op.IsWrite() {
		s.writes.Add(1)
	} else {
		s.reads.Add(1)
	}
	s.elapsed.Add(int64(d))
	if err != nil {
		s.errors.Add(1)
	}
	if slow {
		s.slow.Add(1)
	}
	if stmt.Table != "" {
		s.mu.Lock()
		if s.tables == nil {
			s.tables = make(map[string]int64)
		}
		s.tables[stmt.Table]++
		s.mu.Unlock()
	}
}

// Stats returns a snapshot of the counters.
func (s *QueryStats) Stats() StatsSnapshot {
	s.mu.Lock()
	tables := maps.Clone(s.tables)
	s.mu.Unlock()
	return StatsSnapshot{
		TotalQueries:  s.reads.Load(),
		TotalExecs:    s.writes.Load(),
		TotalDuration: time.Duration(s.elapsed.Load()),
		SlowQueries:   s.slow.Load(),
		Errors:        s.errors.Load(),
		Tables:        tables,
	}
}

// Reset zeroes every counter.
func (s *QueryStats) Reset() {
	s.reads.Store(0)
	s.writes.Store(0)
	s.errors.Store(0)
	s.slow.Store(0)
	s.elapsed.Store(0)
	s.mu.Lock()
	s.tables = nil
	s.mu.Unlock()
}

// StatsSnapshot is a point-in-time copy of QueryStats.
type StatsSnapshot struct {
	// TotalQueries counts SELECT and COUNT statements.
	TotalQueries int64
	// TotalExecs counts INSERT, UPDATE and DELETE statements.
	TotalExecs    int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
	// Tables counts statements per target table.
	Tables map[string]int64
}

// AvgQueryDuration returns the mean statement duration.
func (s StatsSnapshot) AvgQueryDuration() time.Duration {
	n := s.TotalQueries + s.TotalExecs
	if n == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(n)
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf("queries=%d execs=%d duration=%s avg=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.TotalDuration, s.AvgQueryDuration(), s.SlowQueries, s.Errors)
}

// SlowQueryHook is called for every statement slower than the threshold.
type SlowQueryHook func(ctx context.Context, stmt *dialect.Statement, took time.Duration)

// StatsDriver is a dialect.Driver that records QueryStats for every
// statement, including those run inside transactions.
type StatsDriver struct {
	dialect.Driver
	stats     *QueryStats
	threshold time.Duration
	hooks     []SlowQueryHook
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the duration above which a statement counts as
// slow. Defaults to 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) { s.threshold = d }
}

// WithSlowQueryHook adds a hook called on slow statements.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) { s.hooks = append(s.hooks, hook) }
}

// WithSlowQueryLog logs slow statements at warn level. A nil logger uses
// slog.Default.
func WithSlowQueryLog(logger *slog.Logger) StatsOption {
	if logger == nil {
		logger = slog.Default()
	}
	return WithSlowQueryHook(func(ctx context.Context, stmt *dialect.Statement, took time.Duration) {
		logger.WarnContext(ctx, "slow statement", "op", stmt.Op, "table", stmt.Table, "took", took, "sql", stmt.SQL)
	})
}

// NewStatsDriver wraps drv with statistics collection.
//
//	drv, _ := sql.Open(dialect.Postgres, dsn)
//	stats := sql.NewStatsDriver(drv, sql.WithSlowThreshold(200*time.Millisecond))
//	client := eloquent.NewClient(stats)
//	...
//	fmt.Println(stats.QueryStats().Stats())
func NewStatsDriver(drv dialect.Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{Driver: drv, stats: &QueryStats{}, threshold: 100 * time.Millisecond}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryStats returns the counters of the driver.
func (d *StatsDriver) QueryStats() *QueryStats { return d.stats }

// SlowThreshold returns the slow statement threshold.
func (d *StatsDriver) SlowThreshold() time.Duration { return d.threshold }

// Query implements dialect.Executor.
func (d *StatsDriver) Query(ctx context.Context, stmt *dialect.Statement) ([]dialect.Row, error) {
	return observe(ctx, d, stmt, d.Driver.Query)
}

// Exec implements dialect.Executor.
func (d *StatsDriver) Exec(ctx context.Context, stmt *dialect.Statement) (dialect.Result, error) {
	return observe(ctx, d, stmt, d.Driver.Exec)
}

// Tx implements dialect.Driver. Statements of the transaction are recorded
// on the same QueryStats.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &statsTx{Tx: tx, drv: d}, nil
}

type statsTx struct {
	dialect.Tx
	drv *StatsDriver
}

func (tx *statsTx) Query(ctx context.Context, stmt *dialect.Statement) ([]dialect.Row, error) {
	return observe(ctx, tx.drv, stmt, tx.Tx.Query)
}

func (tx *statsTx) Exec(ctx context.Context, stmt *dialect.Statement) (dialect.Result, error) {
	return observe(ctx, tx.drv, stmt, tx.Tx.Exec)
}

func observe[T any](ctx context.Context, d *StatsDriver, stmt *dialect.Statement, run func(context.Context, *dialect.Statement) (T, error)) (T, error) {
	start := time.Now()
	v, err := run(ctx, stmt)
	took := time.Since(start)
	slow := took > d.threshold
	d.stats.add(stmt, took, err, slow)
	if slow {
		for _, h := range d.hooks {
			h(ctx, stmt, took)
		}
	}
	return v, err
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*statsTx)(nil)
)
