package eloquent

import (
	"bytes"
	"context"
	"encoding/json"
	"iter"
	"slices"

	"github.com/vmihailenco/msgpack/v5"
)

// Collection is an ordered list of entities in the order the executor
// returned them.
type Collection struct {
	client *Client
	schema *Schema
	items  []*Entity
	total  *int
}

// NewCollection returns a collection over items of s.
func NewCollection(c *Client, s *Schema, items ...*Entity) *Collection {
	return &Collection{client: c, schema: s, items: items}
}

// Schema returns the schema of the items.
func (c *Collection) Schema() *Schema { return c.schema }

// Len returns the number of items.
func (c *Collection) Len() int { return len(c.items) }

// TotalCount returns the number of rows matching the query when the
// collection was paginated, and Len otherwise.
func (c *Collection) TotalCount() int {
	if c.total != nil {
		return *c.total
	}
	return len(c.items)
}

// HasItems reports whether the collection is not empty.
func (c *Collection) HasItems() bool { return len(c.items) > 0 }

// First returns the first item, or nil when empty.
func (c *Collection) First() *Entity {
	if len(c.items) == 0 {
		return nil
	}
	return c.items[0]
}

// At returns the item at index i, or nil when out of range.
func (c *Collection) At(i int) *Entity {
	if i < 0 || i >= len(c.items) {
		return nil
	}
	return c.items[i]
}

// Items returns a copy of the item slice.
func (c *Collection) Items() []*Entity { return slices.Clone(c.items) }

// All iterates over index and item.
func (c *Collection) All() iter.Seq2[int, *Entity] {
	return slices.All(c.items)
}

// Each calls fn for every item until it returns false.
func (c *Collection) Each(fn func(*Entity, int) bool) {
	for i, e := range c.items {
		if !fn(e, i) {
			return
		}
	}
}

// Splice removes count items starting at offset and returns them. A
// negative offset counts from the end. Bounds are clamped. Only the
// collection is affected, stored rows are not.
func (c *Collection) Splice(offset, count int) []*Entity {
	n := len(c.items)
	if offset < 0 {
		offset = max(n+offset, 0)
	}
	offset = min(offset, n)
	end := min(offset+max(count, 0), n)
	removed := slices.Clone(c.items[offset:end])
	c.items = slices.Delete(c.items, offset, end)
	return removed
}

// Filter returns a new collection holding the items for which keep
// returns true.
func (c *Collection) Filter(keep func(e *Entity, i int, all []*Entity) bool) *Collection {
	out := &Collection{client: c.client, schema: c.schema}
	for i, e := range c.items {
		if keep(e, i, c.items) {
			out.items = append(out.items, e)
		}
	}
	return out
}

// Map applies fn to every item of c.
func Map[T any](c *Collection, fn func(e *Entity, i int, all []*Entity) T) []T {
	out := make([]T, len(c.items))
	for i, e := range c.items {
		out[i] = fn(e, i, c.items)
	}
	return out
}

// Reduce folds the items of c into an accumulator, starting from init.
func Reduce[T any](c *Collection, fn func(acc T, e *Entity, i int, all []*Entity) T, init T) T {
	acc := init
	for i, e := range c.items {
		acc = fn(acc, e, i, c.items)
	}
	return acc
}

// IDs returns the primary key values of the items.
func (c *Collection) IDs() []any {
	return Map(c, func(e *Entity, _ int, _ []*Entity) any { return e.ID() })
}

// Load eager loads relation paths onto every item.
func (c *Collection) Load(ctx context.Context, paths ...string) error {
	eager, err := parseEager(c.schema, paths, nil)
	if err != nil {
		return err
	}
	return c.client.resolve(ctx, c.schema, c.items, eager)
}

// MarshalJSON renders the items as a JSON array.
func (c *Collection) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, e := range c.items {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := e.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// String returns the JSON form of the collection.
func (c *Collection) String() string {
	b, err := json.Marshal(c)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// MarshalMsgpack implements msgpack.Marshaler.
func (c *Collection) MarshalMsgpack() ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeMsgpack(msgpack.NewEncoder(&buf), c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
