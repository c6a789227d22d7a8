package eloquent

import "context"

// RelationKind is the cardinality of a relation.
type RelationKind int

// Relation kinds.
const (
	KindBelongsTo RelationKind = iota
	KindHasOne
	KindHasMany
)

// String returns the kind name.
func (k RelationKind) String() string {
	switch k {
	case KindBelongsTo:
		return "BelongsTo"
	case KindHasOne:
		return "HasOne"
	case KindHasMany:
		return "HasMany"
	}
	return "Unknown"
}

// Relation describes how entities of Owner reach entities of Related.
//
// For HasOne and HasMany, Related.ForeignKey references Owner.LocalKey.
// For BelongsTo, Owner.ForeignKey references Related.LocalKey.
type Relation struct {
	Name       string
	Kind       RelationKind
	Owner      *Schema
	Related    *Schema
	ForeignKey string
	LocalKey   string
	// Cascade deletes related rows before the owner is deleted.
	Cascade bool
}

// RelationOption configures a Relation.
type RelationOption func(*Relation)

// ForeignKey overrides the foreign key column.
func ForeignKey(column string) RelationOption {
	return func(r *Relation) { r.ForeignKey = column }
}

// LocalKey overrides the referenced key column. For BelongsTo this is the
// owner key on the related table.
func LocalKey(column string) RelationOption {
	return func(r *Relation) { r.LocalKey = column }
}

// Cascade marks the relation for cascading deletes.
func Cascade() RelationOption {
	return func(r *Relation) { r.Cascade = true }
}

// Many reports whether the relation resolves to a Collection.
func (r *Relation) Many() bool { return r.Kind == KindHasMany }

// ownerColumn is the owner attribute whose values scope the related query.
func (r *Relation) ownerColumn() string {
	if r.Kind == KindBelongsTo {
		return r.ForeignKey
	}
	return r.LocalKey
}

// relatedColumn is the related column matched against owner values.
func (r *Relation) relatedColumn() string {
	if r.Kind == KindBelongsTo {
		return r.LocalKey
	}
	return r.ForeignKey
}

// Related returns a builder over the rows of the named relation of e.
// HasMany relations are read with Get, the others with First.
//
//	posts, err := user.Related("posts").Where("published", true).Get(ctx)
func (e *Entity) Related(name string) *Builder {
	r, ok := e.schema.Relation(name)
	if !ok {
		return newBuilder(e.client, e.schema).setErr(argumentError("Related", "unknown relation %q on %s", name, e.schema.Name))
	}
	b := newBuilder(e.client, r.Related)
	v := e.Get(r.ownerColumn())
	if v == nil {
		// An unset key matches no row.
		return b.WhereIn(r.relatedColumn())
	}
	return b.Where(r.relatedColumn(), v)
}

// Load eager loads relation paths onto e.
func (e *Entity) Load(ctx context.Context, paths ...string) error {
	eager, err := parseEager(e.schema, paths, nil)
	if err != nil {
		return err
	}
	return e.client.resolve(ctx, e.schema, []*Entity{e}, eager)
}

// NewRelated returns a New entity of a HasOne or HasMany relation with its
// foreign key set to e. It is not saved.
func (e *Entity) NewRelated(name string, attrs map[string]any) (*Entity, error) {
	r, ok := e.schema.Relation(name)
	if !ok {
		return nil, argumentError("NewRelated", "unknown relation %q on %s", name, e.schema.Name)
	}
	if r.Kind == KindBelongsTo {
		return nil, argumentError("NewRelated", "relation %q of %s is %s", name, e.schema.Name, r.Kind)
	}
	key := e.Get(r.LocalKey)
	if key == nil {
		return nil, &StateError{Entity: e.schema.Name, Op: "relate unsaved", State: e.state}
	}
	return e.client.New(r.Related, attrs).Set(r.ForeignKey, key), nil
}

// FirstOrNewRelated returns the first row of the named relation, or a New
// related entity as NewRelated does.
func (e *Entity) FirstOrNewRelated(ctx context.Context, name string, attrs map[string]any) (*Entity, error) {
	found, err := e.Related(name).First(ctx)
	if err != nil || found != nil {
		return found, err
	}
	return e.NewRelated(name, attrs)
}
