package eloquent

import (
	"slices"
	"strings"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// KeyType describes how primary key values are produced on insert.
type KeyType int

// Primary key strategies.
const (
	// KeyAuto keys are generated by the database and read back after insert.
	KeyAuto KeyType = iota
	// KeyUUID keys are generated client side with a random UUID.
	KeyUUID
)

// Schema is the metadata of one entity type: its table, key, mass
// assignment rules, timestamp columns and declared relations.
//
// Schemas are declared once, at program start, and are read-only after the
// relations are registered.
type Schema struct {
	Name       string
	Table      string
	PrimaryKey string
	KeyType    KeyType
	// Fillable is the mass assignment allow-list. Empty allows every key
	// that is not guarded.
	Fillable []string
	// Guarded keys are never mass assigned.
	Guarded []string
	// Updatable restricts the columns written by updates. Empty allows every
	// column but the primary key.
	Updatable []string
	// Timestamps enables stamping of CreatedAt and UpdatedAt. An empty column
	// name disables that column.
	Timestamps bool
	CreatedAt  string
	UpdatedAt  string

	relations map[string]*Relation
	order     []string
}

// Option configures a Schema.
type Option func(*Schema)

// Mixin bundles schema options for reuse across entity types.
// See the contrib/mixin package.
type Mixin interface {
	Apply(*Schema)
}

// Define declares the schema of entities stored in table.
//
//	users := eloquent.Define("users", eloquent.Fillable("name", "email"), eloquent.Timestamps())
//	posts := eloquent.Define("posts")
//	users.HasMany("posts", posts)
//	posts.BelongsTo("author", users, eloquent.ForeignKey("user_id"))
func Define(table string, opts ...Option) *Schema {
	s := &Schema{
		Name:       Label(table),
		Table:      table,
		PrimaryKey: "id",
		relations:  make(map[string]*Relation),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefineModel declares a schema from a model name such as "OrderItem",
// stored in the conventional table ("order_items").
func DefineModel(name string, opts ...Option) *Schema {
	return Define(TableName(name), append([]Option{WithLabel(name)}, opts...)...)
}

// PrimaryKey sets the primary key column. Defaults to "id".
func PrimaryKey(column string) Option {
	return func(s *Schema) { s.PrimaryKey = column }
}

// Fillable sets the mass assignment allow-list.
func Fillable(columns ...string) Option {
	return func(s *Schema) { s.Fillable = append(s.Fillable, columns...) }
}

// Guarded sets the mass assignment deny-list.
func Guarded(columns ...string) Option {
	return func(s *Schema) { s.Guarded = append(s.Guarded, columns...) }
}

// Updatable sets the columns updates may write.
func Updatable(columns ...string) Option {
	return func(s *Schema) { s.Updatable = append(s.Updatable, columns...) }
}

// Timestamps enables created_at and updated_at stamping.
func Timestamps() Option {
	return TimestampColumns("created_at", "updated_at")
}

// TimestampColumns enables stamping with custom column names.
func TimestampColumns(createdAt, updatedAt string) Option {
	return func(s *Schema) {
		s.Timestamps = true
		s.CreatedAt, s.UpdatedAt = createdAt, updatedAt
	}
}

// UUIDKeys makes inserts generate a random UUID primary key when none is set.
func UUIDKeys() Option {
	return func(s *Schema) { s.KeyType = KeyUUID }
}

// WithLabel sets the entity label used in errors and logs.
func WithLabel(name string) Option {
	return func(s *Schema) { s.Name = name }
}

// WithMixin applies mixins in order.
func WithMixin(mixins ...Mixin) Option {
	return func(s *Schema) {
		for _, m := range mixins {
			m.Apply(s)
		}
	}
}

// HasMany declares a one-to-many relation. The related table holds the
// foreign key, by default "<singular owner table>_id".
func (s *Schema) HasMany(name string, related *Schema, opts ...RelationOption) *Schema {
	return s.addRelation(name, KindHasMany, related, opts)
}

// HasOne declares a one-to-one relation owned by s. The related table holds
// the foreign key.
func (s *Schema) HasOne(name string, related *Schema, opts ...RelationOption) *Schema {
	return s.addRelation(name, KindHasOne, related, opts)
}

// BelongsTo declares the inverse of HasOne or HasMany. The table of s holds
// the foreign key, by default "<singular related table>_id".
func (s *Schema) BelongsTo(name string, related *Schema, opts ...RelationOption) *Schema {
	return s.addRelation(name, KindBelongsTo, related, opts)
}

func (s *Schema) addRelation(name string, kind RelationKind, related *Schema, opts []RelationOption) *Schema {
	r := &Relation{Name: name, Kind: kind, Owner: s, Related: related}
	if kind == KindBelongsTo {
		r.ForeignKey = ForeignKeyName(related.Table)
		r.LocalKey = related.PrimaryKey
	} else {
		r.ForeignKey = ForeignKeyName(s.Table)
		r.LocalKey = s.PrimaryKey
	}
	for _, opt := range opts {
		opt(r)
	}
	if _, ok := s.relations[name]; !ok {
		s.order = append(s.order, name)
	}
	s.relations[name] = r
	return s
}

// Relation returns the relation declared under name.
func (s *Schema) Relation(name string) (*Relation, bool) {
	r, ok := s.relations[name]
	return r, ok
}

// Relations returns the declared relations in declaration order.
func (s *Schema) Relations() []*Relation {
	rs := make([]*Relation, len(s.order))
	for i, name := range s.order {
		rs[i] = s.relations[name]
	}
	return rs
}

// fillable reports whether key may be mass assigned.
func (s *Schema) fillable(key string) bool {
	if slices.Contains(s.Guarded, key) {
		return false
	}
	return len(s.Fillable) == 0 || slices.Contains(s.Fillable, key)
}

// updatable reports whether an update may write key.
func (s *Schema) updatable(key string) bool {
	if key == s.PrimaryKey {
		return false
	}
	return len(s.Updatable) == 0 || slices.Contains(s.Updatable, key) ||
		(s.Timestamps && key == s.UpdatedAt && key != "")
}

// Label derives an entity label from a table name: "order_items" becomes
// "OrderItem".
func Label(table string) string {
	// Casers carry state and are not shared between goroutines.
	caser := cases.Title(language.English)
	parts := strings.Split(inflect.Singularize(table), "_")
	for i, p := range parts {
		parts[i] = caser.String(p)
	}
	return strings.Join(parts, "")
}

// TableName derives the conventional table name of a model: "OrderItem"
// becomes "order_items".
func TableName(model string) string {
	return inflect.Pluralize(inflect.Underscore(model))
}

// ForeignKeyName returns the conventional foreign key referencing table:
// "users" becomes "user_id".
func ForeignKeyName(table string) string {
	return inflect.Singularize(table) + "_id"
}
