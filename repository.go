package eloquent

import "context"

// Repository is the query entry point of one schema. It forwards to a
// fresh Builder on every call.
type Repository struct {
	client *Client
	schema *Schema
}

// Schema returns the schema of the repository.
func (r *Repository) Schema() *Schema { return r.schema }

// Query starts a new builder.
func (r *Repository) Query() *Builder { return newBuilder(r.client, r.schema) }

// New returns a New entity, mass assigned from attrs.
func (r *Repository) New(attrs map[string]any) *Entity {
	return r.client.New(r.schema, attrs)
}

// Create inserts a new entity mass assigned from attrs.
func (r *Repository) Create(ctx context.Context, attrs map[string]any) (*Entity, error) {
	e := r.New(attrs)
	if err := e.Save(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// Find returns the entity with primary key id and the given relations
// loaded, or nil when none exists. Every column is selected; narrow them
// through the builder:
//
//	r.Query().Select("id", "name").With("posts").Find(ctx, id)
func (r *Repository) Find(ctx context.Context, id any, relations ...string) (*Entity, error) {
	return r.Query().With(relations...).Find(ctx, id)
}

// FindOrFail is like Find, but a missing row is an ErrNotFound error.
func (r *Repository) FindOrFail(ctx context.Context, id any) (*Entity, error) {
	return r.Query().FindOrFail(ctx, id)
}

// FindOrNew returns the entity with primary key id, or a New entity.
func (r *Repository) FindOrNew(ctx context.Context, id any) (*Entity, error) {
	return r.Query().FindOrNew(ctx, id)
}

// All returns every entity.
func (r *Repository) All(ctx context.Context) (*Collection, error) {
	return r.Query().Get(ctx)
}

// Where starts a builder with a predicate, see Builder.Where.
func (r *Repository) Where(field string, args ...any) *Builder {
	return r.Query().Where(field, args...)
}

// With starts a builder loading relations, see Builder.With.
func (r *Repository) With(paths ...string) *Builder {
	return r.Query().With(paths...)
}

// Paginate returns a page of every entity, see Builder.Paginate.
func (r *Repository) Paginate(ctx context.Context, page, size int) (*Collection, error) {
	return r.Query().Paginate(ctx, page, size)
}

// Destroy deletes the entities with the given primary keys, with their
// cascading relations, and returns the number of entities deleted.
func (r *Repository) Destroy(ctx context.Context, ids ...any) (int, error) {
	ids = flatten(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.Query().WhereIn(r.schema.PrimaryKey, ids...).Delete(ctx)
	if res == nil {
		return 0, err
	}
	return len(res.ItemsDeleted), err
}
