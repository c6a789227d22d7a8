package dataloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID      int
	OwnerID any
	Name    string
}

func TestUnique(t *testing.T) {
	t.Parallel()

	keyFn := func(r *row) (any, bool) { return r.OwnerID, r.OwnerID != nil }

	t.Run("first seen order", func(t *testing.T) {
		t.Parallel()
		rows := []*row{{OwnerID: 3}, {OwnerID: 1}, {OwnerID: 3}, {OwnerID: nil}, {OwnerID: 2}, {OwnerID: 1}}
		assert.Equal(t, []any{3, 1, 2}, Unique(rows, keyFn))
	})

	t.Run("all skipped", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, Unique([]*row{{}, {}}, keyFn))
		assert.Empty(t, Unique(nil, keyFn))
	})
}

func TestOrderByKeys(t *testing.T) {
	t.Parallel()

	keyFn := func(r *row) int { return r.ID }

	t.Run("all keys found", func(t *testing.T) {
		t.Parallel()
		values := []*row{{ID: 3, Name: "third"}, {ID: 1, Name: "first"}, {ID: 2, Name: "second"}}

		result, errs := OrderByKeys([]int{1, 2, 3}, values, keyFn)

		require.Len(t, result, 3)
		require.Len(t, errs, 3)
		assert.Equal(t, "first", result[0].Name)
		assert.Equal(t, "second", result[1].Name)
		assert.Equal(t, "third", result[2].Name)
		for _, err := range errs {
			assert.NoError(t, err)
		}
	})

	t.Run("some keys missing", func(t *testing.T) {
		t.Parallel()
		values := []*row{{ID: 1, Name: "first"}, {ID: 3, Name: "third"}}

		result, errs := OrderByKeys([]int{1, 2, 3, 4}, values, keyFn)

		require.Len(t, result, 4)
		assert.Equal(t, "first", result[0].Name)
		assert.Nil(t, result[1])
		assert.Equal(t, "third", result[2].Name)
		assert.Nil(t, result[3])
		assert.NoError(t, errs[0])
		assert.ErrorIs(t, errs[1], ErrNotFound)
		assert.ErrorIs(t, errs[3], ErrNotFound)
	})

	t.Run("first value of a key wins", func(t *testing.T) {
		t.Parallel()
		values := []*row{{ID: 1, Name: "a"}, {ID: 1, Name: "b"}}

		result := OrderByKeysNoError([]int{1, 1}, values, keyFn)

		require.Len(t, result, 2)
		assert.Equal(t, "a", result[0].Name)
		assert.Equal(t, "a", result[1].Name)
	})
}

func TestGroupByKey(t *testing.T) {
	t.Parallel()

	keyFn := func(r *row) any { return r.OwnerID }
	rows := []*row{
		{ID: 1, OwnerID: int64(10)},
		{ID: 2, OwnerID: int64(10)},
		{ID: 3, OwnerID: int64(20)},
		{ID: 4, OwnerID: int64(10)},
	}

	grouped := GroupByKey(rows, keyFn)

	require.Len(t, grouped, 2)
	require.Len(t, grouped[int64(10)], 3)
	assert.Equal(t, 1, grouped[int64(10)][0].ID)
	assert.Equal(t, 2, grouped[int64(10)][1].ID)
	assert.Equal(t, 4, grouped[int64(10)][2].ID)
	assert.Equal(t, 3, grouped[int64(20)][0].ID)

	ordered := OrderGroupsByKeys([]any{int64(20), int64(30), int64(10)}, grouped)
	require.Len(t, ordered, 3)
	assert.Len(t, ordered[0], 1)
	assert.Empty(t, ordered[1])
	assert.Len(t, ordered[2], 3)
}

func TestFirstByKey(t *testing.T) {
	t.Parallel()
	rows := []*row{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}, {ID: 1, Name: "c"}}

	first := FirstByKey(rows, func(r *row) int { return r.ID })

	require.Len(t, first, 2)
	assert.Equal(t, "a", first[1].Name)
	assert.Equal(t, "b", first[2].Name)
}
