package eloquent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/eloquent/dialect"
	"github.com/syssam/eloquent/dialect/sql"
	"github.com/syssam/eloquent/query"
)

// Client binds schemas to a driver. It is safe for concurrent use; the
// entities and builders it returns are not.
type Client struct {
	driver       dialect.Driver
	exec         dialect.Executor
	tx           dialect.Tx
	compiler     *query.Compiler
	logger       *slog.Logger
	now          func() time.Time
	newKey       func() any
	eagerWorkers int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithClock sets the time source used for timestamp columns.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

// WithEagerWorkers bounds the number of relations loaded concurrently at
// one level of an eager load. Values below 1 mean 1.
func WithEagerWorkers(n int) ClientOption {
	return func(c *Client) { c.eagerWorkers = max(n, 1) }
}

// WithKeyGenerator overrides the generator of UUID primary keys.
func WithKeyGenerator(gen func() any) ClientOption {
	return func(c *Client) { c.newKey = gen }
}

// NewClient returns a client executing statements through drv.
//
//	drv, err := sql.Open(dialect.Postgres, dsn)
//	if err != nil {
//	    return err
//	}
//	client := eloquent.NewClient(drv, eloquent.WithLogger(logger))
//	users := client.Repository(schema.Users)
func NewClient(drv dialect.Driver, opts ...ClientOption) *Client {
	c := &Client{
		driver:       drv,
		exec:         drv,
		compiler:     query.NewCompiler(drv.Dialect()),
		logger:       slog.Default(),
		now:          time.Now,
		newKey:       func() any { return uuid.NewString() },
		eagerWorkers: 4,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open opens the database described by cfg and returns a client over it.
// The eager worker bound of cfg is applied before opts, and the client's
// logger is also used by the driver wrappers cfg enables.
//
//	cfg, err := sql.LoadConfig("database.yaml")
//	if err != nil {
//	    return err
//	}
//	client, err := eloquent.Open(cfg, eloquent.WithLogger(logger))
func Open(cfg *sql.Config, opts ...ClientOption) (*Client, error) {
	if cfg.EagerWorkers > 0 {
		opts = append([]ClientOption{WithEagerWorkers(cfg.EagerWorkers)}, opts...)
	}
	settings := &Client{logger: slog.Default()}
	for _, opt := range opts {
		opt(settings)
	}
	drv, err := sql.OpenConfig(cfg, settings.logger)
	if err != nil {
		return nil, err
	}
	return NewClient(drv, opts...), nil
}

// EagerWorkers returns the bound on concurrently loaded relations.
func (c *Client) EagerWorkers() int { return c.eagerWorkers }

// Dialect returns the dialect of the underlying driver.
func (c *Client) Dialect() string { return c.driver.Dialect() }

// Close closes the underlying driver.
func (c *Client) Close() error { return c.driver.Close() }

// Query starts a builder over the table of s.
func (c *Client) Query(s *Schema) *Builder {
	return newBuilder(c, s)
}

// Repository returns the query entry point for entities of s.
func (c *Client) Repository(s *Schema) *Repository {
	return &Repository{client: c, schema: s}
}

// New returns a New entity of s, mass assigned from attrs.
func (c *Client) New(s *Schema, attrs map[string]any) *Entity {
	return newEntity(c, s).Fill(attrs)
}

// WithTx runs fn with a client bound to a new transaction. The transaction
// is committed when fn returns nil and rolled back when it returns an error
// or panics. Eager loads inside fn run sequentially on the transaction.
func (c *Client) WithTx(ctx context.Context, fn func(tx *Client) error) (err error) {
	if c.tx != nil {
		return ErrTxStarted
	}
	tx, err := c.driver.Tx(ctx)
	if err != nil {
		return fmt.Errorf("eloquent: starting a transaction: %w", err)
	}
	txc := *c
	txc.exec, txc.tx = tx, tx
	txc.eagerWorkers = 1
	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()
	if err := fn(&txc); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return NewAggregateError(err, &RollbackError{Err: rerr})
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("eloquent: committing transaction: %w", err)
	}
	return nil
}

// query runs a read statement, wrapping executor failures.
func (c *Client) query(ctx context.Context, s *Schema, stmt *dialect.Statement) ([]dialect.Row, error) {
	rows, err := c.exec.Query(ctx, stmt)
	if err != nil {
		return nil, &ExecutorError{Entity: s.Name, Op: strings.ToLower(string(stmt.Op)), Err: err}
	}
	return rows, nil
}

// compileError converts a compiler failure into an argument error.
func compileError(op string, err error) error {
	return &ArgumentError{Op: op, Msg: "cannot compile query", Err: err}
}
