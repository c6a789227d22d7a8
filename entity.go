package eloquent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/eloquent/dialect"
)

// State is the lifecycle state of an entity.
type State int

// Entity states.
const (
	// StateNew entities have not been inserted yet.
	StateNew State = iota
	// StatePersisted entities mirror a stored row.
	StatePersisted
	// StateDeleted entities were deleted. Save and Delete fail on them.
	StateDeleted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StatePersisted:
		return "persisted"
	case StateDeleted:
		return "deleted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Pair is an attribute name and its value.
type Pair struct {
	Key   string
	Value any
}

// Entity is one row of a schema's table, loaded or to be inserted.
//
// Attributes keep their insertion order. Relatives hold relations resolved
// by eager or lazy loading: a *Collection for HasMany, an *Entity or nil for
// HasOne and BelongsTo.
//
// An entity must not be saved or deleted from two goroutines at once.
type Entity struct {
	client    *Client
	schema    *Schema
	keys      []string
	attrs     map[string]any
	originals map[string]any
	relatives map[string]any
	relKeys   []string
	state     State
}

func newEntity(c *Client, s *Schema) *Entity {
	return &Entity{
		client:    c,
		schema:    s,
		attrs:     make(map[string]any),
		originals: make(map[string]any),
		relatives: make(map[string]any),
	}
}

// hydrate builds a persisted entity from a row. Columns listed in order come
// first, then the primary key, then the rest sorted by name.
func hydrate(c *Client, s *Schema, row dialect.Row, order []string) *Entity {
	e := newEntity(c, s)
	e.state = StatePersisted
	add := func(k string) {
		if v, ok := row[k]; ok {
			if _, seen := e.attrs[k]; !seen {
				e.keys = append(e.keys, k)
				e.attrs[k] = v
			}
		}
	}
	for _, k := range order {
		add(k)
	}
	add(s.PrimaryKey)
	for _, k := range slices.Sorted(maps.Keys(row)) {
		add(k)
	}
	e.Sync()
	return e
}

// Schema returns the schema of the entity.
func (e *Entity) Schema() *Schema { return e.schema }

// State returns the lifecycle state.
func (e *Entity) State() State { return e.state }

// Exists reports whether the entity mirrors a stored row.
func (e *Entity) Exists() bool { return e.state == StatePersisted }

// PrimaryKey returns the name of the primary key column.
func (e *Entity) PrimaryKey() string { return e.schema.PrimaryKey }

// ID returns the primary key value, or nil when unset.
func (e *Entity) ID() any { return e.attrs[e.schema.PrimaryKey] }

// Get returns the attribute value, or nil when unset.
func (e *Entity) Get(key string) any { return e.attrs[key] }

// Lookup returns the attribute value and whether it is set.
func (e *Entity) Lookup(key string) (any, bool) {
	v, ok := e.attrs[key]
	return v, ok
}

// Has reports whether the attribute is set. An attribute set to nil is set.
func (e *Entity) Has(key string) bool {
	_, ok := e.attrs[key]
	return ok
}

// Set assigns an attribute. Mass assignment rules do not apply.
func (e *Entity) Set(key string, v any) *Entity {
	if _, ok := e.attrs[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.attrs[key] = v
	return e
}

// Unset removes an attribute. A removed attribute is neither a change nor
// written by the next save.
func (e *Entity) Unset(key string) *Entity {
	if _, ok := e.attrs[key]; ok {
		delete(e.attrs, key)
		e.keys = slices.DeleteFunc(e.keys, func(k string) bool { return k == key })
	}
	return e
}

// SetRaw assigns an attribute and its original value, so that it is not
// reported as a change.
func (e *Entity) SetRaw(key string, v any) *Entity {
	e.Set(key, v)
	e.originals[key] = v
	return e
}

// Sync makes the current attributes the originals.
func (e *Entity) Sync() *Entity {
	e.originals = maps.Clone(e.attrs)
	return e
}

// Fill mass assigns attrs in key order. Guarded keys, and keys missing from
// a non-empty fillable list, are dropped.
func (e *Entity) Fill(attrs map[string]any) *Entity {
	for _, k := range slices.Sorted(maps.Keys(attrs)) {
		if e.schema.fillable(k) {
			e.Set(k, attrs[k])
		}
	}
	return e
}

// Keys returns the attribute names in order.
func (e *Entity) Keys() []string { return slices.Clone(e.keys) }

// Attributes returns a copy of the current attributes.
func (e *Entity) Attributes() map[string]any { return maps.Clone(e.attrs) }

// Original returns the value of key as of the last load or save.
func (e *Entity) Original(key string) any { return e.originals[key] }

// Changes returns the attributes that differ from their originals. A key
// set to nil that has no original is a change.
func (e *Entity) Changes() map[string]any {
	changes := make(map[string]any)
	for _, k := range e.changedKeys() {
		changes[k] = e.attrs[k]
	}
	return changes
}

func (e *Entity) changedKeys() []string {
	var keys []string
	for _, k := range e.keys {
		orig, ok := e.originals[k]
		if !ok || !equalValues(orig, e.attrs[k]) {
			keys = append(keys, k)
		}
	}
	return keys
}

// IsDirty reports whether any of keys changed, or any attribute when no
// key is given.
func (e *Entity) IsDirty(keys ...string) bool {
	changed := e.changedKeys()
	if len(keys) == 0 {
		return len(changed) > 0
	}
	for _, k := range keys {
		if slices.Contains(changed, k) {
			return true
		}
	}
	return false
}

// Relative returns a resolved relation and whether it was resolved.
func (e *Entity) Relative(name string) (any, bool) {
	v, ok := e.relatives[name]
	return v, ok
}

// RelativeOne returns a resolved HasOne or BelongsTo relation, nil when it
// was not resolved or has no match.
func (e *Entity) RelativeOne(name string) *Entity {
	v, _ := e.relatives[name].(*Entity)
	return v
}

// RelativeMany returns a resolved HasMany relation, nil when it was not
// resolved.
func (e *Entity) RelativeMany(name string) *Collection {
	v, _ := e.relatives[name].(*Collection)
	return v
}

func (e *Entity) setRelative(name string, v any) {
	if _, ok := e.relatives[name]; !ok {
		e.relKeys = append(e.relKeys, name)
	}
	e.relatives[name] = v
}

// Pairs returns the attributes as ordered pairs.
func (e *Entity) Pairs() []Pair {
	pairs := make([]Pair, len(e.keys))
	for i, k := range e.keys {
		pairs[i] = Pair{Key: k, Value: e.attrs[k]}
	}
	return pairs
}

// All iterates over the attributes in order.
func (e *Entity) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, k := range e.keys {
			if !yield(k, e.attrs[k]) {
				return
			}
		}
	}
}

// serialPairs returns the attributes followed by the resolved relatives.
func (e *Entity) serialPairs() []Pair {
	pairs := e.Pairs()
	for _, name := range e.relKeys {
		pairs = append(pairs, Pair{Key: name, Value: e.relatives[name]})
	}
	return pairs
}

// MarshalJSON renders the attributes merged with the resolved relatives.
// Relations that were never loaded are omitted.
func (e *Entity) MarshalJSON() ([]byte, error) {
	if e == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range e.serialPairs() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(p.Value)
		if err != nil {
			return nil, fmt.Errorf("eloquent: marshal %s.%s: %w", e.schema.Name, p.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// String returns the JSON form of the entity.
func (e *Entity) String() string {
	b, err := e.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("%s(%v)", e.schema.Name, e.ID())
	}
	return string(b)
}

// MarshalMsgpack implements msgpack.Marshaler with the same shape as
// MarshalJSON.
func (e *Entity) MarshalMsgpack() ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeMsgpack(msgpack.NewEncoder(&buf), e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeMsgpack(enc *msgpack.Encoder, v any) error {
	switch v := v.(type) {
	case *Entity:
		if v == nil {
			return enc.EncodeNil()
		}
		pairs := v.serialPairs()
		if err := enc.EncodeMapLen(len(pairs)); err != nil {
			return err
		}
		for _, p := range pairs {
			if err := enc.EncodeString(p.Key); err != nil {
				return err
			}
			if err := encodeMsgpack(enc, p.Value); err != nil {
				return fmt.Errorf("eloquent: msgpack %s.%s: %w", v.schema.Name, p.Key, err)
			}
		}
		return nil
	case *Collection:
		if v == nil {
			return enc.EncodeNil()
		}
		if err := enc.EncodeArrayLen(len(v.items)); err != nil {
			return err
		}
		for _, item := range v.items {
			if err := encodeMsgpack(enc, item); err != nil {
				return err
			}
		}
		return nil
	}
	return enc.Encode(v)
}
