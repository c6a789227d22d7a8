package eloquent

import (
	"context"
	"maps"

	"github.com/syssam/eloquent/query"
)

// Save writes the entity. Attribute maps given to Save are mass assigned
// first, see Fill.
//
// A new entity is inserted with all its attributes, and its generated key
// is read back. A persisted entity is updated with its changed, updatable
// attributes only; when nothing changed no statement is executed. After a
// successful save the entity has no changes.
func (e *Entity) Save(ctx context.Context, attrs ...map[string]any) error {
	if e.state == StateDeleted {
		return &StateError{Entity: e.schema.Name, Op: "save", State: e.state}
	}
	for _, a := range attrs {
		e.Fill(a)
	}
	if e.state == StateNew {
		return e.insert(ctx)
	}
	return e.update(ctx)
}

func (e *Entity) insert(ctx context.Context) error {
	c, s := e.client, e.schema
	if s.Timestamps {
		now := c.now()
		for _, col := range []string{s.CreatedAt, s.UpdatedAt} {
			if col != "" && e.Get(col) == nil {
				e.Set(col, now)
			}
		}
	}
	var returning string
	if e.ID() == nil {
		switch s.KeyType {
		case KeyUUID:
			e.Set(s.PrimaryKey, c.newKey())
		case KeyAuto:
			returning = s.PrimaryKey
		}
	}
	stmt, err := c.compiler.Insert(s.Table, e.Attributes(), returning)
	if err != nil {
		return compileError("Save", err)
	}
	res, err := c.exec.Exec(ctx, stmt)
	if err != nil {
		return &PersistenceError{Entity: s.Name, Op: "insert", Err: err}
	}
	if res.RowsAffected == 0 {
		return &PersistenceError{Entity: s.Name, Op: "insert"}
	}
	if returning != "" && res.LastInsertID != nil {
		e.Set(s.PrimaryKey, res.LastInsertID)
	}
	e.state = StatePersisted
	e.Sync()
	return nil
}

func (e *Entity) update(ctx context.Context) error {
	c, s := e.client, e.schema
	values := make(map[string]any)
	for _, k := range e.changedKeys() {
		if s.updatable(k) {
			values[k] = e.attrs[k]
		}
	}
	if len(values) == 0 {
		return nil
	}
	id := e.originals[s.PrimaryKey]
	if id == nil {
		id = e.ID()
	}
	if id == nil {
		return &StateError{Entity: s.Name, Op: "update keyless", State: e.state}
	}
	if s.Timestamps && s.UpdatedAt != "" {
		if _, stamped := values[s.UpdatedAt]; !stamped {
			now := c.now()
			e.Set(s.UpdatedAt, now)
			values[s.UpdatedAt] = now
		}
	}
	stmt, err := c.compiler.Update(s.Table, values, []query.Predicate{query.EQ(s.PrimaryKey, id)})
	if err != nil {
		return compileError("Save", err)
	}
	res, err := c.exec.Exec(ctx, stmt)
	if err != nil {
		return &PersistenceError{Entity: s.Name, Op: "update", Err: err}
	}
	if res.RowsAffected == 0 {
		return &PersistenceError{Entity: s.Name, Op: "update"}
	}
	e.Sync()
	c.logger.DebugContext(ctx, "entity updated", "entity", s.Name, "id", id, "columns", len(values))
	return nil
}

// Delete deletes the entity, after the rows of its cascading relations.
// Only persisted entities can be deleted.
func (e *Entity) Delete(ctx context.Context) error {
	c, s := e.client, e.schema
	if e.state != StatePersisted {
		return &StateError{Entity: s.Name, Op: "delete", State: e.state}
	}
	id := e.ID()
	if id == nil {
		return &StateError{Entity: s.Name, Op: "delete keyless", State: e.state}
	}
	res := newDeleteResult()
	if err := c.deleteRelatives(ctx, s, []any{id}, "", res); err != nil {
		return err
	}
	affected, err := c.deleteByIDs(ctx, s, []any{id})
	if err != nil {
		return err
	}
	if affected == 0 {
		return &PersistenceError{Entity: s.Name, Op: "delete"}
	}
	e.state = StateDeleted
	if len(res.RelativeDeleted) > 0 {
		c.logger.DebugContext(ctx, "cascade deleted", "entity", s.Name, "id", id, "relatives", maps.Collect(res.counts()))
	}
	return nil
}
