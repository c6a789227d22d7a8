package eloquent

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/syssam/eloquent/dialect"
	"github.com/syssam/eloquent/query"
)

// Builder accumulates the clauses of a query over one schema. Clause
// methods mutate the builder and return it for chaining; terminals compile
// a snapshot and leave the clauses unchanged, so a builder can be executed
// any number of times.
//
// Invalid clause arguments do not panic. The first one is recorded and
// returned by Err and by every terminal, before anything is executed.
//
//	users, err := client.Query(schema.Users).
//	    Where("age", ">", 18).
//	    OrWhere("role", "admin").
//	    WhereIn("status", "active", "pending").
//	    OrderBy("created_at", "desc").
//	    Take(10).
//	    With("posts.comments").
//	    Get(ctx)
type Builder struct {
	client *Client
	schema *Schema
	spec   *query.Spec
	eager  []*eagerNode
	err    error
}

func newBuilder(c *Client, s *Schema) *Builder {
	return &Builder{client: c, schema: s, spec: &query.Spec{}}
}

// Schema returns the schema the builder queries.
func (b *Builder) Schema() *Schema { return b.schema }

// Err returns the first argument error recorded by a clause method.
func (b *Builder) Err() error { return b.err }

// Spec returns a copy of the accumulated clauses.
func (b *Builder) Spec() *query.Spec { return b.spec.Clone() }

// Clone returns an independent copy of the builder.
func (b *Builder) Clone() *Builder {
	return &Builder{
		client: b.client,
		schema: b.schema,
		spec:   b.spec.Clone(),
		eager:  cloneEager(b.eager),
		err:    b.err,
	}
}

func (b *Builder) setErr(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Select narrows the selected columns. Without it every column is read.
func (b *Builder) Select(columns ...string) *Builder {
	b.spec.Select(columns...)
	return b
}

// Where appends an AND predicate. With one argument it is the value of an
// equality test; with two they are an operator and a value:
//
//	Where("name", "a8m")       // name = 'a8m'
//	Where("age", ">=", 18)     // age >= 18
//	Where("deleted_at", nil)   // deleted_at IS NULL
//	Where("email", "!=", nil)  // email IS NOT NULL
func (b *Builder) Where(field string, args ...any) *Builder {
	return b.where("Where", query.And, field, args)
}

// OrWhere is like Where, joined with OR.
func (b *Builder) OrWhere(field string, args ...any) *Builder {
	return b.where("OrWhere", query.Or, field, args)
}

func (b *Builder) where(op string, conn query.Connector, field string, args []any) *Builder {
	var p query.Predicate
	switch len(args) {
	case 1:
		p = query.EQ(field, args[0])
	case 2:
		s, ok := args[0].(string)
		if !ok {
			return b.setErr(argumentError(op, "operator for %q must be a string, got %T", field, args[0]))
		}
		operator, ok := query.ParseOperator(s)
		if !ok {
			return b.setErr(argumentError(op, "unknown operator %q for %q", s, field))
		}
		switch {
		case args[1] != nil:
			p = query.Predicate{Field: field, Op: operator, Value: args[1]}
		case operator == query.OpEQ:
			p = query.IsNull(field)
		case operator == query.OpNEQ:
			p = query.NotNull(field)
		default:
			return b.setErr(argumentError(op, "operator %s on %q requires a non-nil value", operator, field))
		}
	default:
		return b.setErr(argumentError(op, "expects a value or an operator and a value for %q, got %d arguments", field, len(args)))
	}
	p.Connector = conn
	b.spec.Where(p)
	return b
}

// WhereIn appends "field IN (values)". A single slice argument is
// expanded. An empty set matches no row.
func (b *Builder) WhereIn(field string, values ...any) *Builder {
	b.spec.Where(query.In(field, flatten(values)...))
	return b
}

// OrWhereIn is like WhereIn, joined with OR.
func (b *Builder) OrWhereIn(field string, values ...any) *Builder {
	b.spec.Where(query.In(field, flatten(values)...).Or())
	return b
}

// WhereNotIn appends "field NOT IN (values)". An empty set matches every row.
func (b *Builder) WhereNotIn(field string, values ...any) *Builder {
	b.spec.Where(query.NotIn(field, flatten(values)...))
	return b
}

// OrWhereNotIn is like WhereNotIn, joined with OR.
func (b *Builder) OrWhereNotIn(field string, values ...any) *Builder {
	b.spec.Where(query.NotIn(field, flatten(values)...).Or())
	return b
}

// WhereBetween appends "field BETWEEN low AND high". It takes exactly two
// bounds; ordered bounds (numbers, strings, times) must not be reversed.
func (b *Builder) WhereBetween(field string, bounds ...any) *Builder {
	return b.between("WhereBetween", query.Between, query.And, field, bounds)
}

// OrWhereBetween is like WhereBetween, joined with OR.
func (b *Builder) OrWhereBetween(field string, bounds ...any) *Builder {
	return b.between("OrWhereBetween", query.Between, query.Or, field, bounds)
}

// WhereNotBetween appends "field NOT BETWEEN low AND high".
func (b *Builder) WhereNotBetween(field string, bounds ...any) *Builder {
	return b.between("WhereNotBetween", query.NotBetween, query.And, field, bounds)
}

// OrWhereNotBetween is like WhereNotBetween, joined with OR.
func (b *Builder) OrWhereNotBetween(field string, bounds ...any) *Builder {
	return b.between("OrWhereNotBetween", query.NotBetween, query.Or, field, bounds)
}

func (b *Builder) between(op string, build func(string, any, any) query.Predicate, conn query.Connector, field string, bounds []any) *Builder {
	bounds = flatten(bounds)
	if len(bounds) != 2 {
		return b.setErr(argumentError(op, "expects exactly 2 bounds for %q, got %d", field, len(bounds)))
	}
	lo, hi := bounds[0], bounds[1]
	if lo == nil || hi == nil {
		return b.setErr(argumentError(op, "bounds for %q must not be nil", field))
	}
	if c, ok := compareValues(lo, hi); ok && c > 0 {
		return b.setErr(argumentError(op, "lower bound %v is greater than upper bound %v for %q", lo, hi, field))
	}
	p := build(field, lo, hi)
	p.Connector = conn
	b.spec.Where(p)
	return b
}

// WhereNull appends "field IS NULL".
func (b *Builder) WhereNull(field string) *Builder {
	b.spec.Where(query.IsNull(field))
	return b
}

// WhereNotNull appends "field IS NOT NULL".
func (b *Builder) WhereNotNull(field string) *Builder {
	b.spec.Where(query.NotNull(field))
	return b
}

// WhereGroup appends the predicates added by fn as one parenthesized AND
// term.
func (b *Builder) WhereGroup(fn func(*Builder)) *Builder {
	return b.group(query.And, fn)
}

// OrWhereGroup is like WhereGroup, joined with OR.
func (b *Builder) OrWhereGroup(fn func(*Builder)) *Builder {
	return b.group(query.Or, fn)
}

func (b *Builder) group(conn query.Connector, fn func(*Builder)) *Builder {
	sub := newBuilder(b.client, b.schema)
	fn(sub)
	if sub.err != nil {
		return b.setErr(sub.err)
	}
	if len(sub.spec.Predicates) > 0 {
		p := query.Group(sub.spec.Predicates...)
		p.Connector = conn
		b.spec.Where(p)
	}
	return b
}

// Match appends predicates built with the query package or with typed
// fields, joined with AND unless marked otherwise.
//
//	b.Match(Age.GTE(18), Name.HasPrefix("a").Or())
func (b *Builder) Match(preds ...query.Predicate) *Builder {
	b.spec.Where(preds...)
	return b
}

// OrderBy appends an ordering term. Direction is "asc" (or empty) or "desc".
func (b *Builder) OrderBy(field, direction string) *Builder {
	dir, ok := query.ParseDirection(direction)
	if !ok {
		return b.setErr(argumentError("OrderBy", "unknown direction %q for %q", direction, field))
	}
	b.spec.OrderBy(field, dir)
	return b
}

// OrderByDesc appends a descending ordering term.
func (b *Builder) OrderByDesc(field string) *Builder {
	b.spec.OrderBy(field, query.Desc)
	return b
}

// Limit sets the maximum number of rows. The last call wins.
func (b *Builder) Limit(n int) *Builder {
	if n < 0 {
		return b.setErr(argumentError("Limit", "negative limit %d", n))
	}
	b.spec.SetLimit(n)
	return b
}

// Take is an alias of Limit.
func (b *Builder) Take(n int) *Builder { return b.Limit(n) }

// Offset sets the number of rows to skip. The last call wins.
func (b *Builder) Offset(n int) *Builder {
	if n < 0 {
		return b.setErr(argumentError("Offset", "negative offset %d", n))
	}
	b.spec.SetOffset(n)
	return b
}

// Skip is an alias of Offset.
func (b *Builder) Skip(n int) *Builder { return b.Offset(n) }

// With eager loads relations on the result. Dotted paths load nested
// relations: "posts.comments" loads the posts and then their comments.
func (b *Builder) With(paths ...string) *Builder {
	eager, err := parseEager(b.schema, paths, b.eager)
	if err != nil {
		return b.setErr(err)
	}
	b.eager = eager
	return b
}

// WithFunc eager loads the relation at path, refined by fn. Predicates
// added by fn are grouped, so they cannot widen the key scope. Limit and
// Offset apply to the one query that loads the relation for all owners.
//
//	b.WithFunc("posts", func(q *eloquent.Builder) {
//	    q.Where("published", true).OrderByDesc("created_at")
//	})
func (b *Builder) WithFunc(path string, fn func(*Builder)) *Builder {
	eager, err := addEager(b.schema, b.eager, path, fn)
	if err != nil {
		return b.setErr(err)
	}
	b.eager = eager
	return b
}

// Get executes the query and returns the matching entities.
func (b *Builder) Get(ctx context.Context) (*Collection, error) {
	if b.err != nil {
		return nil, b.err
	}
	items, err := b.fetch(ctx, "Get", b.spec.Clone())
	if err != nil {
		return nil, err
	}
	return NewCollection(b.client, b.schema, items...), nil
}

// First returns the first matching entity, or nil when none matches.
func (b *Builder) First(ctx context.Context) (*Entity, error) {
	if b.err != nil {
		return nil, b.err
	}
	spec := b.spec.Clone()
	spec.SetLimit(1)
	items, err := b.fetch(ctx, "First", spec)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return items[0], nil
}

// FirstOrFail is like First, but a missing row is an ErrNotFound error.
func (b *Builder) FirstOrFail(ctx context.Context) (*Entity, error) {
	e, err := b.First(ctx)
	if err == nil && e == nil {
		err = &NotFoundError{label: b.schema.Name}
	}
	return e, err
}

// Find returns the entity with primary key id, or nil when none exists.
// The builder's own clauses still apply.
func (b *Builder) Find(ctx context.Context, id any) (*Entity, error) {
	if id == nil {
		return nil, argumentError("Find", "nil %s key", b.schema.Name)
	}
	return b.Clone().Where(b.schema.PrimaryKey, id).First(ctx)
}

// FindOrFail is like Find, but a missing row is an ErrNotFound error.
func (b *Builder) FindOrFail(ctx context.Context, id any) (*Entity, error) {
	e, err := b.Find(ctx, id)
	if err == nil && e == nil {
		err = &NotFoundError{label: b.schema.Name, id: id}
	}
	return e, err
}

// FindOrNew returns the entity with primary key id, or a new entity when
// none exists.
func (b *Builder) FindOrNew(ctx context.Context, id any) (*Entity, error) {
	e, err := b.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		e = newEntity(b.client, b.schema)
	}
	return e, nil
}

// Paginate returns page (1-indexed) of size items. TotalCount of the result
// is the number of rows matching the predicates, regardless of paging.
func (b *Builder) Paginate(ctx context.Context, page, size int) (*Collection, error) {
	if b.err != nil {
		return nil, b.err
	}
	if page < 1 {
		return nil, argumentError("Paginate", "page must be at least 1, got %d", page)
	}
	if size < 1 {
		return nil, argumentError("Paginate", "size must be at least 1, got %d", size)
	}
	spec := b.spec.Clone()
	spec.SetLimit(size)
	spec.SetOffset((page - 1) * size)
	items, err := b.fetch(ctx, "Paginate", spec)
	if err != nil {
		return nil, err
	}
	total, err := b.count(ctx, "Paginate")
	if err != nil {
		return nil, err
	}
	c := NewCollection(b.client, b.schema, items...)
	c.total = &total
	return c, nil
}

// Count returns the number of rows matching the predicates. Ordering and
// paging are ignored.
func (b *Builder) Count(ctx context.Context) (int, error) {
	if b.err != nil {
		return 0, b.err
	}
	return b.count(ctx, "Count")
}

// Exists reports whether any row matches.
func (b *Builder) Exists(ctx context.Context) (bool, error) {
	if b.err != nil {
		return false, b.err
	}
	spec := b.spec.Clone()
	spec.Select(b.schema.PrimaryKey)
	spec.SetLimit(1)
	rows, err := b.rows(ctx, "Exists", spec)
	return len(rows) > 0, err
}

// Rows executes the query and returns the raw rows, without entity mapping
// or eager loading.
func (b *Builder) Rows(ctx context.Context) ([]dialect.Row, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.rows(ctx, "Rows", b.spec.Clone())
}

func (b *Builder) rows(ctx context.Context, op string, spec *query.Spec) ([]dialect.Row, error) {
	stmt, err := b.client.compiler.Select(b.schema.Table, spec)
	if err != nil {
		return nil, compileError(op, err)
	}
	return b.client.query(ctx, b.schema, stmt)
}

// fetch runs spec, hydrates the rows and eager loads the requested
// relations onto them.
func (b *Builder) fetch(ctx context.Context, op string, spec *query.Spec) ([]*Entity, error) {
	rows, err := b.rows(ctx, op, spec)
	if err != nil {
		return nil, err
	}
	items := make([]*Entity, len(rows))
	for i, row := range rows {
		items[i] = hydrate(b.client, b.schema, row, spec.Selects)
	}
	if err := b.client.resolve(ctx, b.schema, items, b.eager); err != nil {
		return nil, err
	}
	return items, nil
}

func (b *Builder) count(ctx context.Context, op string) (int, error) {
	stmt, err := b.client.compiler.Count(b.schema.Table, b.spec.Filter())
	if err != nil {
		return 0, compileError(op, err)
	}
	rows, err := b.client.query(ctx, b.schema, stmt)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := toInt(rows[0]["count"])
	if err != nil {
		return 0, &ExecutorError{Entity: b.schema.Name, Op: "count", Err: err}
	}
	return n, nil
}

// toInt reads a count column. Text protocols report it as a string.
func toInt(v any) (int, error) {
	if i, ok := asInt64(v); ok {
		return int(i), nil
	}
	switch v := v.(type) {
	case string:
		return strconv.Atoi(strings.TrimSpace(v))
	case float64:
		return int(v), nil
	}
	return 0, fmt.Errorf("unexpected count value %v (%T)", v, v)
}

// flatten expands a single slice argument into its elements.
func flatten(values []any) []any {
	if len(values) != 1 || values[0] == nil {
		return values
	}
	rv := reflect.ValueOf(values[0])
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return values
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
