package query

import "strings"

// Direction is the sort direction of an ordering.
type Direction string

// Sort directions.
const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// ParseDirection maps "asc"/"desc" (any case) to a Direction.
// An empty string is ascending.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ASC":
		return Asc, true
	case "DESC":
		return Desc, true
	}
	return "", false
}

// Order is a single ORDER BY term.
type Order struct {
	Field     string
	Direction Direction
}

// Spec accumulates the clauses of a query. The zero value selects every
// column of every row.
//
// Predicates compile in append order. Limit and Offset keep the last value
// set.
type Spec struct {
	Selects    []string
	Predicates []Predicate
	Orders     []Order
	Limit      *int
	Offset     *int
}

// Where appends predicates.
func (s *Spec) Where(ps ...Predicate) {
	s.Predicates = append(s.Predicates, ps...)
}

// OrderBy appends an ordering term.
func (s *Spec) OrderBy(field string, dir Direction) {
	s.Orders = append(s.Orders, Order{Field: field, Direction: dir})
}

// Select replaces the selected columns.
func (s *Spec) Select(columns ...string) {
	s.Selects = append([]string(nil), columns...)
}

// SetLimit sets the row limit.
func (s *Spec) SetLimit(n int) { s.Limit = &n }

// SetOffset sets the row offset.
func (s *Spec) SetOffset(n int) { s.Offset = &n }

// Clone returns a deep copy of the spec.
func (s *Spec) Clone() *Spec {
	c := &Spec{
		Selects: append([]string(nil), s.Selects...),
		Orders:  append([]Order(nil), s.Orders...),
	}
	if s.Predicates != nil {
		c.Predicates = make([]Predicate, len(s.Predicates))
		for i := range s.Predicates {
			c.Predicates[i] = s.Predicates[i].clone()
		}
	}
	if s.Limit != nil {
		c.SetLimit(*s.Limit)
	}
	if s.Offset != nil {
		c.SetOffset(*s.Offset)
	}
	return c
}

// Filter returns a copy holding only the predicates, as used by count
// queries which ignore ordering and paging.
func (s *Spec) Filter() *Spec {
	c := s.Clone()
	c.Selects, c.Orders, c.Limit, c.Offset = nil, nil, nil, nil
	return c
}
