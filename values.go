package eloquent

import (
	"bytes"
	"cmp"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// normalizeKey maps a key value to a comparable canonical form, so that a
// key read as int64 from one table matches the same key held as int in
// memory. Integer kinds become int64, []byte and UUIDs become strings.
func normalizeKey(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(x)
	case uuid.UUID:
		return x.String()
	case float32:
		return normalizeKey(float64(x))
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int64(x)
		}
		return x
	}
	if i, ok := asInt64(v); ok {
		return i
	}
	if !reflect.TypeOf(v).Comparable() {
		return fmt.Sprint(v)
	}
	return v
}

// asInt64 converts integer kinds that fit in an int64.
func asInt64(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if u := rv.Uint(); u <= math.MaxInt64 {
			return int64(u), true
		}
	}
	return 0, false
}

// asFloat64 converts any numeric kind.
func asFloat64(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	}
	return 0, false
}

// equalValues is the attribute equality used by dirty tracking.
func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case []byte:
		switch y := b.(type) {
		case []byte:
			return bytes.Equal(x, y)
		case string:
			return string(x) == y
		}
		return false
	case string:
		if y, ok := b.([]byte); ok {
			return x == string(y)
		}
	}
	if c, ok := compareValues(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders two numbers, two strings or two times. It reports
// false for any other combination.
func compareValues(a, b any) (int, bool) {
	if x, ok := asInt64(a); ok {
		if y, ok := asInt64(b); ok {
			return cmp.Compare(x, y), true
		}
	}
	if x, ok := asFloat64(a); ok {
		if y, ok := asFloat64(b); ok {
			return cmp.Compare(x, y), true
		}
		return 0, false
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return cmp.Compare(x, y), true
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), true
		}
	}
	return 0, false
}
