package query

import "strings"

// Connector joins a predicate to the one before it.
type Connector string

// Boolean connectors.
const (
	And Connector = "AND"
	Or  Connector = "OR"
)

// Operator is a comparison operator of a predicate.
type Operator string

// Supported operators.
const (
	OpEQ      Operator = "="
	OpNEQ     Operator = "<>"
	OpLT      Operator = "<"
	OpLTE     Operator = "<="
	OpGT      Operator = ">"
	OpGTE     Operator = ">="
	OpLike    Operator = "LIKE"
	OpNotLike Operator = "NOT LIKE"
	OpIn      Operator = "IN"
	OpBetween Operator = "BETWEEN"
	OpNull    Operator = "IS NULL"
)

// ParseOperator maps a user supplied operator such as "!=" or "like" to an
// Operator. Set operators (IN, BETWEEN) are not accepted here; they have
// their own clause methods.
func ParseOperator(s string) (Operator, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "=", "==":
		return OpEQ, true
	case "!=", "<>":
		return OpNEQ, true
	case "<":
		return OpLT, true
	case "<=":
		return OpLTE, true
	case ">":
		return OpGT, true
	case ">=":
		return OpGTE, true
	case "LIKE":
		return OpLike, true
	case "NOT LIKE":
		return OpNotLike, true
	}
	return "", false
}

// Predicate is a single WHERE condition, or a parenthesized group of them.
type Predicate struct {
	Field     string
	Op        Operator
	Value     any
	Values    []any
	Connector Connector
	Negated   bool
	// Group, when non-empty, makes this predicate a parenthesized
	// sub-clause. Field, Op and values are ignored.
	Group []Predicate
}

// IsGroup reports whether the predicate is a parenthesized group.
func (p Predicate) IsGroup() bool { return len(p.Group) > 0 }

// connector returns the effective connector, AND when unset.
func (p Predicate) connector() Connector {
	if p.Connector == Or {
		return Or
	}
	return And
}

// Or returns a copy of the predicate joined with OR.
func (p Predicate) Or() Predicate {
	p.Connector = Or
	return p
}

// Not returns a copy of the predicate with its negation flipped.
func (p Predicate) Not() Predicate {
	p.Negated = !p.Negated
	return p
}

// clone deep-copies the value slices and nested groups.
func (p Predicate) clone() Predicate {
	if p.Values != nil {
		p.Values = append([]any(nil), p.Values...)
	}
	if p.Group != nil {
		g := make([]Predicate, len(p.Group))
		for i := range p.Group {
			g[i] = p.Group[i].clone()
		}
		p.Group = g
	}
	return p
}

// EQ returns a "field = v" predicate. A nil value compiles to IS NULL.
func EQ(field string, v any) Predicate {
	return Predicate{Field: field, Op: OpEQ, Value: v}
}

// NEQ returns a "field <> v" predicate. A nil value compiles to IS NOT NULL.
func NEQ(field string, v any) Predicate {
	return Predicate{Field: field, Op: OpNEQ, Value: v}
}

// LT returns a "field < v" predicate.
func LT(field string, v any) Predicate {
	return Predicate{Field: field, Op: OpLT, Value: v}
}

// LTE returns a "field <= v" predicate.
func LTE(field string, v any) Predicate {
	return Predicate{Field: field, Op: OpLTE, Value: v}
}

// GT returns a "field > v" predicate.
func GT(field string, v any) Predicate {
	return Predicate{Field: field, Op: OpGT, Value: v}
}

// GTE returns a "field >= v" predicate.
func GTE(field string, v any) Predicate {
	return Predicate{Field: field, Op: OpGTE, Value: v}
}

// Like returns a "field LIKE pattern" predicate.
func Like(field, pattern string) Predicate {
	return Predicate{Field: field, Op: OpLike, Value: pattern}
}

// In returns a "field IN (vs...)" predicate.
func In(field string, vs ...any) Predicate {
	return Predicate{Field: field, Op: OpIn, Values: vs}
}

// NotIn returns a "field NOT IN (vs...)" predicate.
func NotIn(field string, vs ...any) Predicate {
	return Predicate{Field: field, Op: OpIn, Values: vs, Negated: true}
}

// Between returns a "field BETWEEN lo AND hi" predicate.
func Between(field string, lo, hi any) Predicate {
	return Predicate{Field: field, Op: OpBetween, Values: []any{lo, hi}}
}

// NotBetween returns a "field NOT BETWEEN lo AND hi" predicate.
func NotBetween(field string, lo, hi any) Predicate {
	return Predicate{Field: field, Op: OpBetween, Values: []any{lo, hi}, Negated: true}
}

// IsNull returns a "field IS NULL" predicate.
func IsNull(field string) Predicate {
	return Predicate{Field: field, Op: OpNull}
}

// NotNull returns a "field IS NOT NULL" predicate.
func NotNull(field string) Predicate {
	return Predicate{Field: field, Op: OpNull, Negated: true}
}

// Group returns a parenthesized group of predicates.
func Group(preds ...Predicate) Predicate {
	return Predicate{Group: preds}
}
