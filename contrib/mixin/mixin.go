// Package mixin provides reusable schema options for eloquent entities.
//
// Mixins are applied with eloquent.WithMixin:
//
//	users := eloquent.Define("users",
//	    eloquent.Fillable("name", "email"),
//	    eloquent.WithMixin(mixin.Time{}, mixin.SoftDelete{}),
//	)
//
// Custom mixins implement eloquent.Mixin:
//
//	type Audit struct{}
//
//	func (Audit) Apply(s *eloquent.Schema) {
//	    s.Guarded = append(s.Guarded, "created_by", "updated_by")
//	}
package mixin

import (
	"context"
	"slices"
	"time"

	"github.com/syssam/eloquent"
)

// Column names managed by the mixins of this package.
const (
	CreatedAt = "created_at"
	UpdatedAt = "updated_at"
	DeletedAt = "deleted_at"
	TenantKey = "tenant_id"
)

func guard(s *eloquent.Schema, columns ...string) {
	for _, c := range columns {
		if !slices.Contains(s.Guarded, c) {
			s.Guarded = append(s.Guarded, c)
		}
	}
}

// CreateTime stamps created_at on insert. The column is guarded from mass
// assignment.
type CreateTime struct{}

// Apply implements eloquent.Mixin.
func (CreateTime) Apply(s *eloquent.Schema) {
	s.Timestamps = true
	s.CreatedAt = CreatedAt
	guard(s, CreatedAt)
}

// UpdateTime stamps updated_at on insert and on every update that writes
// a column.
type UpdateTime struct{}

// Apply implements eloquent.Mixin.
func (UpdateTime) Apply(s *eloquent.Schema) {
	s.Timestamps = true
	s.UpdatedAt = UpdatedAt
	guard(s, UpdatedAt)
}

// Time composes CreateTime and UpdateTime.
type Time struct{}

// Apply implements eloquent.Mixin.
func (Time) Apply(s *eloquent.Schema) {
	CreateTime{}.Apply(s)
	UpdateTime{}.Apply(s)
}

// ID makes "id" a client generated UUID key. The key is guarded, so it is
// only ever set explicitly or by the generator.
type ID struct{}

// Apply implements eloquent.Mixin.
func (ID) Apply(s *eloquent.Schema) {
	s.PrimaryKey = "id"
	s.KeyType = eloquent.KeyUUID
	guard(s, "id")
}

// SoftDelete guards a nullable deleted_at column. Rows are marked with
// Trash instead of being deleted, and Alive restricts a query to unmarked
// rows.
type SoftDelete struct{}

// Apply implements eloquent.Mixin.
func (SoftDelete) Apply(s *eloquent.Schema) {
	guard(s, DeletedAt)
}

// Alive restricts b to rows that were not trashed.
func Alive(b *eloquent.Builder) *eloquent.Builder {
	return b.WhereNull(DeletedAt)
}

// Trashed restricts b to trashed rows.
func Trashed(b *eloquent.Builder) *eloquent.Builder {
	return b.WhereNotNull(DeletedAt)
}

// Trash marks a persisted entity as deleted at the given time and saves it.
func Trash(ctx context.Context, e *eloquent.Entity, at time.Time) error {
	if e.State() != eloquent.StatePersisted {
		return &eloquent.StateError{Entity: e.Schema().Name, Op: "trash", State: e.State()}
	}
	return e.Set(DeletedAt, at).Save(ctx)
}

// Restore clears the deletion mark of a trashed entity and saves it.
func Restore(ctx context.Context, e *eloquent.Entity) error {
	return e.Set(DeletedAt, nil).Save(ctx)
}

// TimeSoftDelete composes Time and SoftDelete.
type TimeSoftDelete struct{}

// Apply implements eloquent.Mixin.
func (TimeSoftDelete) Apply(s *eloquent.Schema) {
	Time{}.Apply(s)
	SoftDelete{}.Apply(s)
}

// TenantID guards tenant_id, so a tenant can only be set explicitly.
// Queries are scoped with ForTenant.
type TenantID struct{}

// Apply implements eloquent.Mixin.
func (TenantID) Apply(s *eloquent.Schema) {
	guard(s, TenantKey)
}

// ForTenant restricts b to rows owned by tenant.
func ForTenant(b *eloquent.Builder, tenant any) *eloquent.Builder {
	return b.Where(TenantKey, tenant)
}

var (
	_ eloquent.Mixin = CreateTime{}
	_ eloquent.Mixin = UpdateTime{}
	_ eloquent.Mixin = Time{}
	_ eloquent.Mixin = ID{}
	_ eloquent.Mixin = SoftDelete{}
	_ eloquent.Mixin = TimeSoftDelete{}
	_ eloquent.Mixin = TenantID{}
)
