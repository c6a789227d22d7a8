package query

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/syssam/eloquent/dialect"
)

// ErrMalformed is wrapped by every error the compiler returns for clause
// input it cannot render.
var ErrMalformed = errors.New("query: malformed clause")

// validIdentifierRe validates SQL identifiers (alphanumeric, underscores, dots for table.column)
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// Compiler renders a Spec into dialect statements. It is a pure function of
// its input: compiling the same spec twice yields identical output.
type Compiler struct {
	dialect string
	builder sq.StatementBuilderType
}

// NewCompiler returns a compiler for the given dialect. Unknown dialects use
// "?" placeholders and ANSI quoting.
func NewCompiler(name string) *Compiler {
	var format sq.PlaceholderFormat = sq.Question
	if name == dialect.Postgres {
		format = sq.Dollar
	}
	return &Compiler{
		dialect: name,
		builder: sq.StatementBuilder.PlaceholderFormat(format),
	}
}

// Dialect returns the dialect name the compiler renders for.
func (c *Compiler) Dialect() string { return c.dialect }

// Quote validates and quotes an identifier. Dotted names are quoted per
// segment; a trailing ".*" and a bare "*" are kept as is.
func (c *Compiler) Quote(name string) (string, error) {
	if name == "*" {
		return name, nil
	}
	star := strings.HasSuffix(name, ".*")
	base := strings.TrimSuffix(name, ".*")
	if base == "" || len(base) > 128 || !validIdentifierRe.MatchString(base) {
		return "", malformed("invalid identifier %q", name)
	}
	q := `"`
	if c.dialect == dialect.MySQL {
		q = "`"
	}
	parts := strings.Split(base, ".")
	for i, p := range parts {
		if p == "" {
			return "", malformed("invalid identifier %q", name)
		}
		parts[i] = q + p + q
	}
	quoted := strings.Join(parts, ".")
	if star {
		quoted += ".*"
	}
	return quoted, nil
}

// Select compiles a SELECT statement.
func (c *Compiler) Select(table string, s *Spec) (*dialect.Statement, error) {
	from, err := c.Quote(table)
	if err != nil {
		return nil, err
	}
	columns := []string{"*"}
	if len(s.Selects) > 0 {
		columns = make([]string, len(s.Selects))
		for i, name := range s.Selects {
			if columns[i], err = c.Quote(name); err != nil {
				return nil, err
			}
		}
	}
	b := c.builder.Select(columns...).From(from)
	if len(s.Predicates) > 0 {
		b = b.Where(clause{c: c, preds: s.Predicates})
	}
	for _, o := range s.Orders {
		col, err := c.Quote(o.Field)
		if err != nil {
			return nil, err
		}
		dir := o.Direction
		if dir == "" {
			dir = Asc
		}
		b = b.OrderBy(col + " " + string(dir))
	}
	switch {
	case s.Limit != nil:
		if *s.Limit < 0 {
			return nil, malformed("negative limit %d", *s.Limit)
		}
		b = b.Limit(uint64(*s.Limit))
	case s.Offset != nil && c.dialect != dialect.Postgres:
		// MySQL and SQLite reject OFFSET without LIMIT.
		b = b.Limit(math.MaxInt64)
	}
	if s.Offset != nil {
		if *s.Offset < 0 {
			return nil, malformed("negative offset %d", *s.Offset)
		}
		b = b.Offset(uint64(*s.Offset))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("query: select %s: %w", table, err)
	}
	return &dialect.Statement{Op: dialect.OpSelect, Table: table, SQL: query, Args: args}, nil
}

// Count compiles a "SELECT COUNT(*)" over the predicates of s. Selects,
// ordering and paging are ignored. The count is returned in column "count".
func (c *Compiler) Count(table string, s *Spec) (*dialect.Statement, error) {
	from, err := c.Quote(table)
	if err != nil {
		return nil, err
	}
	alias, _ := c.Quote("count")
	b := c.builder.Select("COUNT(*) AS " + alias).From(from)
	if len(s.Predicates) > 0 {
		b = b.Where(clause{c: c, preds: s.Predicates})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("query: count %s: %w", table, err)
	}
	return &dialect.Statement{Op: dialect.OpCount, Table: table, SQL: query, Args: args}, nil
}

// Insert compiles an INSERT of values. Columns are written in sorted order.
// When returning is set and the dialect supports it, a RETURNING clause is
// appended.
func (c *Compiler) Insert(table string, values map[string]any, returning string) (*dialect.Statement, error) {
	into, err := c.Quote(table)
	if err != nil {
		return nil, err
	}
	stmt := &dialect.Statement{Op: dialect.OpInsert, Table: table, Values: values, Returning: returning}
	var suffix string
	if returning != "" && c.dialect == dialect.Postgres {
		col, err := c.Quote(returning)
		if err != nil {
			return nil, err
		}
		suffix = "RETURNING " + col
	}
	if len(values) == 0 {
		stmt.SQL = "INSERT INTO " + into + " DEFAULT VALUES"
		if c.dialect == dialect.MySQL {
			stmt.SQL = "INSERT INTO " + into + " () VALUES ()"
		}
		if suffix != "" {
			stmt.SQL += " " + suffix
		}
		return stmt, nil
	}
	keys := sortedKeys(values)
	columns := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		if columns[i], err = c.Quote(k); err != nil {
			return nil, err
		}
		args[i] = values[k]
	}
	b := c.builder.Insert(into).Columns(columns...).Values(args...)
	if suffix != "" {
		b = b.Suffix(suffix)
	}
	if stmt.SQL, stmt.Args, err = b.ToSql(); err != nil {
		return nil, fmt.Errorf("query: insert %s: %w", table, err)
	}
	return stmt, nil
}

// Update compiles an UPDATE of values restricted by where. An empty value
// set or an empty where clause is rejected.
func (c *Compiler) Update(table string, values map[string]any, where []Predicate) (*dialect.Statement, error) {
	if len(values) == 0 {
		return nil, malformed("update %s: no values", table)
	}
	if len(where) == 0 {
		return nil, malformed("update %s: missing where clause", table)
	}
	name, err := c.Quote(table)
	if err != nil {
		return nil, err
	}
	b := c.builder.Update(name)
	for _, k := range sortedKeys(values) {
		col, err := c.Quote(k)
		if err != nil {
			return nil, err
		}
		b = b.Set(col, values[k])
	}
	query, args, err := b.Where(clause{c: c, preds: where}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("query: update %s: %w", table, err)
	}
	return &dialect.Statement{Op: dialect.OpUpdate, Table: table, SQL: query, Args: args, Values: values}, nil
}

// Delete compiles a DELETE restricted by where. An empty where clause is
// rejected so that a table is never wiped by accident.
func (c *Compiler) Delete(table string, where []Predicate) (*dialect.Statement, error) {
	if len(where) == 0 {
		return nil, malformed("delete %s: missing where clause", table)
	}
	from, err := c.Quote(table)
	if err != nil {
		return nil, err
	}
	query, args, err := c.builder.Delete(from).Where(clause{c: c, preds: where}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("query: delete %s: %w", table, err)
	}
	return &dialect.Statement{Op: dialect.OpDelete, Table: table, SQL: query, Args: args}, nil
}

// clause renders a predicate chain in append order. It implements
// squirrel's Sqlizer so the statement builders handle placeholder numbering.
type clause struct {
	c     *Compiler
	preds []Predicate
}

// ToSql implements sq.Sqlizer.
func (w clause) ToSql() (string, []any, error) {
	var (
		b    strings.Builder
		args []any
	)
	for i, p := range w.preds {
		frag, pargs, err := w.c.predicate(p)
		if err != nil {
			return "", nil, err
		}
		if i > 0 {
			b.WriteString(" " + string(p.connector()) + " ")
		}
		b.WriteString(frag)
		args = append(args, pargs...)
	}
	return b.String(), args, nil
}

func (c *Compiler) predicate(p Predicate) (string, []any, error) {
	if p.IsGroup() {
		frag, args, err := clause{c: c, preds: p.Group}.ToSql()
		if err != nil {
			return "", nil, err
		}
		if p.Negated {
			return "NOT (" + frag + ")", args, nil
		}
		return "(" + frag + ")", args, nil
	}
	col, err := c.Quote(p.Field)
	if err != nil {
		return "", nil, err
	}
	not := ""
	if p.Negated {
		not = "NOT "
	}
	switch p.Op {
	case OpNull:
		return col + " IS " + not + "NULL", nil, nil
	case OpEQ, OpNEQ:
		if p.Value == nil {
			isNull := (p.Op == OpEQ) != p.Negated
			if isNull {
				return col + " IS NULL", nil, nil
			}
			return col + " IS NOT NULL", nil, nil
		}
		fallthrough
	case OpLT, OpLTE, OpGT, OpGTE, OpLike, OpNotLike:
		if p.Value == nil {
			return "", nil, malformed("operator %s on %q requires a non-nil value", p.Op, p.Field)
		}
		frag := col + " " + string(p.Op) + " ?"
		if p.Negated {
			frag = "NOT (" + frag + ")"
		}
		return frag, []any{p.Value}, nil
	case OpIn:
		if len(p.Values) == 0 {
			if p.Negated {
				return "1=1", nil, nil
			}
			return "1=0", nil, nil
		}
		marks := strings.TrimSuffix(strings.Repeat("?,", len(p.Values)), ",")
		return col + " " + not + "IN (" + marks + ")", slices.Clone(p.Values), nil
	case OpBetween:
		if len(p.Values) != 2 {
			return "", nil, malformed("between on %q requires exactly 2 bounds, got %d", p.Field, len(p.Values))
		}
		return col + " " + not + "BETWEEN ? AND ?", slices.Clone(p.Values), nil
	}
	return "", nil, malformed("unsupported operator %q", p.Op)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
