package eloquent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/eloquent"
)

func TestNaming(t *testing.T) {
	t.Parallel()

	tests := []struct {
		table, label, model, foreignKey string
	}{
		{"users", "User", "User", "user_id"},
		{"order_items", "OrderItem", "OrderItem", "order_item_id"},
		{"categories", "Category", "Category", "category_id"},
		{"people", "Person", "Person", "person_id"},
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			assert.Equal(t, tt.label, eloquent.Label(tt.table))
			assert.Equal(t, tt.table, eloquent.TableName(tt.model))
			assert.Equal(t, tt.foreignKey, eloquent.ForeignKeyName(tt.table))
		})
	}
}

type tenantMixin struct{}

func (tenantMixin) Apply(s *eloquent.Schema) {
	s.Guarded = append(s.Guarded, "tenant_id")
}

func TestDefine(t *testing.T) {
	t.Parallel()

	s := eloquent.Define("users")
	assert.Equal(t, "User", s.Name)
	assert.Equal(t, "users", s.Table)
	assert.Equal(t, "id", s.PrimaryKey)
	assert.Equal(t, eloquent.KeyAuto, s.KeyType)
	assert.False(t, s.Timestamps)
	assert.Empty(t, s.Relations())

	s = eloquent.DefineModel("OrderItem",
		eloquent.PrimaryKey("item_id"),
		eloquent.TimestampColumns("inserted_at", ""),
		eloquent.UUIDKeys(),
		eloquent.WithMixin(tenantMixin{}),
	)
	assert.Equal(t, "OrderItem", s.Name)
	assert.Equal(t, "order_items", s.Table)
	assert.Equal(t, "item_id", s.PrimaryKey)
	assert.Equal(t, eloquent.KeyUUID, s.KeyType)
	assert.True(t, s.Timestamps)
	assert.Equal(t, "inserted_at", s.CreatedAt)
	assert.Empty(t, s.UpdatedAt)
	assert.Equal(t, []string{"tenant_id"}, s.Guarded)

	s = eloquent.Define("accounts", eloquent.WithLabel("Member"), eloquent.Fillable("a"), eloquent.Fillable("b"))
	assert.Equal(t, "Member", s.Name)
	assert.Equal(t, []string{"a", "b"}, s.Fillable)
}
