package eloquent

import (
	"reflect"

	"github.com/syssam/eloquent/query"
)

// Field is a typed accessor for one attribute. It reads and writes entity
// attributes and builds predicates without repeating the column name.
//
//	var (
//	    Name = eloquent.Field[string]("name")
//	    Age  = eloquent.Field[int]("age")
//	)
//	adults, err := users.Query().Match(Age.GTE(18)).Get(ctx)
//	name, ok := Name.Get(adults.First())
type Field[T any] string

// Name returns the field name.
func (f Field[T]) Name() string { return string(f) }

// Get returns the attribute as T. Numeric and string values read from the
// database are converted when T is a compatible kind; ok is false when the
// attribute is unset, nil or not convertible.
func (f Field[T]) Get(e *Entity) (T, bool) {
	var zero T
	v, ok := e.Lookup(string(f))
	if !ok || v == nil {
		return zero, false
	}
	if t, ok := v.(T); ok {
		return t, true
	}
	rv, target := reflect.ValueOf(v), reflect.TypeFor[T]()
	if !convertible(rv.Type(), target) {
		return zero, false
	}
	return rv.Convert(target).Interface().(T), true
}

// Set assigns the attribute.
func (f Field[T]) Set(e *Entity, v T) *Entity {
	return e.Set(string(f), v)
}

// EQ returns a predicate that checks if the field equals the given value.
func (f Field[T]) EQ(v T) query.Predicate { return query.EQ(string(f), v) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f Field[T]) NEQ(v T) query.Predicate { return query.NEQ(string(f), v) }

// GT returns a predicate that checks if the field is greater than the given value.
func (f Field[T]) GT(v T) query.Predicate { return query.GT(string(f), v) }

// GTE returns a predicate that checks if the field is greater than or equal to the given value.
func (f Field[T]) GTE(v T) query.Predicate { return query.GTE(string(f), v) }

// LT returns a predicate that checks if the field is less than the given value.
func (f Field[T]) LT(v T) query.Predicate { return query.LT(string(f), v) }

// LTE returns a predicate that checks if the field is less than or equal to the given value.
func (f Field[T]) LTE(v T) query.Predicate { return query.LTE(string(f), v) }

// In returns a predicate that checks if the field value is in the given list.
func (f Field[T]) In(vs ...T) query.Predicate { return query.In(string(f), toAny(vs)...) }

// NotIn returns a predicate that checks if the field value is not in the given list.
func (f Field[T]) NotIn(vs ...T) query.Predicate { return query.NotIn(string(f), toAny(vs)...) }

// Between returns a predicate that checks if the field is within [lo, hi].
func (f Field[T]) Between(lo, hi T) query.Predicate { return query.Between(string(f), lo, hi) }

// IsNull returns a predicate that checks if the field is NULL.
func (f Field[T]) IsNull() query.Predicate { return query.IsNull(string(f)) }

// NotNull returns a predicate that checks if the field is not NULL.
func (f Field[T]) NotNull() query.Predicate { return query.NotNull(string(f)) }

// StringField is a Field with pattern predicates. Wildcards in the
// arguments of Contains, HasPrefix and HasSuffix are not escaped.
type StringField string

// Field returns the underlying typed accessor.
func (f StringField) Field() Field[string] { return Field[string](f) }

// Get returns the attribute as a string.
func (f StringField) Get(e *Entity) (string, bool) { return f.Field().Get(e) }

// Set assigns the attribute.
func (f StringField) Set(e *Entity, v string) *Entity { return f.Field().Set(e, v) }

// EQ returns a predicate that checks if the field equals the given value.
func (f StringField) EQ(v string) query.Predicate { return f.Field().EQ(v) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f StringField) NEQ(v string) query.Predicate { return f.Field().NEQ(v) }

// In returns a predicate that checks if the field value is in the given list.
func (f StringField) In(vs ...string) query.Predicate { return f.Field().In(vs...) }

// Contains returns a predicate that checks if the field contains the given substring.
func (f StringField) Contains(v string) query.Predicate {
	return query.Like(string(f), "%"+v+"%")
}

// HasPrefix returns a predicate that checks if the field has the given prefix.
func (f StringField) HasPrefix(v string) query.Predicate {
	return query.Like(string(f), v+"%")
}

// HasSuffix returns a predicate that checks if the field has the given suffix.
func (f StringField) HasSuffix(v string) query.Predicate {
	return query.Like(string(f), "%"+v)
}

// IsNull returns a predicate that checks if the field is NULL.
func (f StringField) IsNull() query.Predicate { return f.Field().IsNull() }

// NotNull returns a predicate that checks if the field is not NULL.
func (f StringField) NotNull() query.Predicate { return f.Field().NotNull() }

func toAny[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

// convertible limits conversions to number to number and string to string,
// so that an int is never turned into a one-rune string.
func convertible(from, to reflect.Type) bool {
	if !from.ConvertibleTo(to) {
		return false
	}
	fk, tk := from.Kind(), to.Kind()
	if isNumberKind(fk) {
		return isNumberKind(tk)
	}
	return fk == tk
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
