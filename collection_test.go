package eloquent_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/eloquent"
)

func seedCollection(t *testing.T, n int) (*fixture, *eloquent.Collection) {
	t.Helper()
	f := newFixture(t)
	for i := range n {
		f.createUser(t, fmt.Sprintf("user-%d", i+1), 10*(i+1))
	}
	c, err := f.client.Repository(f.users).Query().OrderBy("id", "asc").Get(t.Context())
	require.NoError(t, err)
	require.Equal(t, n, c.Len())
	return f, c
}

func names(c *eloquent.Collection) []string {
	return eloquent.Map(c, func(e *eloquent.Entity, _ int, _ []*eloquent.Entity) string {
		return e.Get("name").(string)
	})
}

func TestCollectionAccess(t *testing.T) {
	_, c := seedCollection(t, 3)
	assert.True(t, c.HasItems())
	assert.Equal(t, 3, c.TotalCount())
	assert.Equal(t, "user-1", c.First().Get("name"))
	assert.Equal(t, "user-3", c.At(2).Get("name"))
	assert.Nil(t, c.At(3))
	assert.Nil(t, c.At(-1))
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, c.IDs())

	items := c.Items()
	items[0] = nil
	assert.NotNil(t, c.First(), "Items returns a copy")

	var visited []int
	c.Each(func(_ *eloquent.Entity, i int) bool {
		visited = append(visited, i)
		return i < 1
	})
	assert.Equal(t, []int{0, 1}, visited)

	for i, e := range c.All() {
		assert.Equal(t, c.At(i), e)
	}

	empty := eloquent.NewCollection(nil, nil)
	assert.False(t, empty.HasItems())
	assert.Nil(t, empty.First())
	assert.Zero(t, empty.TotalCount())
}

func TestCollectionSplice(t *testing.T) {
	tests := []struct {
		name          string
		offset, count int
		removed       []string
		left          []string
	}{
		{"Middle", 1, 2, []string{"user-2", "user-3"}, []string{"user-1", "user-4", "user-5"}},
		{"FromEnd", -2, 1, []string{"user-4"}, []string{"user-1", "user-2", "user-3", "user-5"}},
		{"ClampedCount", 3, 10, []string{"user-4", "user-5"}, []string{"user-1", "user-2", "user-3"}},
		{"OffsetPastEnd", 9, 1, []string{}, []string{"user-1", "user-2", "user-3", "user-4", "user-5"}},
		{"NegativeCount", 0, -1, []string{}, []string{"user-1", "user-2", "user-3", "user-4", "user-5"}},
		{"LargeNegativeOffset", -10, 1, []string{"user-1"}, []string{"user-2", "user-3", "user-4", "user-5"}},
	}
	f, base := seedCollection(t, 5)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := eloquent.NewCollection(f.client, f.users, base.Items()...)
			removed := c.Splice(tt.offset, tt.count)
			got := make([]string, len(removed))
			for i, e := range removed {
				got[i] = e.Get("name").(string)
			}
			assert.Equal(t, tt.removed, got)
			assert.Equal(t, tt.left, names(c))
		})
	}
	assert.Equal(t, 5, f.count(t, f.users), "stored rows are untouched")
}

func TestCollectionTraversal(t *testing.T) {
	_, c := seedCollection(t, 4)

	adults := c.Filter(func(e *eloquent.Entity, i int, all []*eloquent.Entity) bool {
		assert.Len(t, all, 4)
		assert.Same(t, all[i], e)
		return e.Get("age").(int64) >= 30
	})
	assert.Equal(t, []string{"user-3", "user-4"}, names(adults))
	assert.Equal(t, 4, c.Len(), "Filter returns a new collection")

	indexed := eloquent.Map(c, func(e *eloquent.Entity, i int, _ []*eloquent.Entity) string {
		return fmt.Sprintf("%d:%v", i, e.Get("name"))
	})
	assert.Equal(t, []string{"0:user-1", "1:user-2", "2:user-3", "3:user-4"}, indexed)

	total := eloquent.Reduce(c, func(acc int64, e *eloquent.Entity, _ int, _ []*eloquent.Entity) int64 {
		return acc + e.Get("age").(int64)
	}, 0)
	assert.Equal(t, int64(100), total)

	age := eloquent.Field[int]("age")
	oldest := eloquent.Reduce(c, func(acc *eloquent.Entity, e *eloquent.Entity, _ int, _ []*eloquent.Entity) *eloquent.Entity {
		a, _ := age.Get(acc)
		b, _ := age.Get(e)
		if b > a {
			return e
		}
		return acc
	}, c.First())
	assert.Equal(t, "user-4", oldest.Get("name"))
}

func TestSerialization(t *testing.T) {
	f := newFixture(t)
	u := f.createUser(t, "a", 30)
	f.createPost(t, u, "hello", 2)

	posts, err := f.client.Query(f.posts).
		Select("id", "title", "user_id").
		WithFunc("comments", func(q *eloquent.Builder) { q.OrderBy("id", "asc") }).
		Get(t.Context())
	require.NoError(t, err)
	p := posts.First()

	t.Run("JSON", func(t *testing.T) {
		want := `{"id":1,"title":"hello","user_id":1,"comments":[` +
			`{"id":1,"body":"hello #1","post_id":1},` +
			`{"id":2,"body":"hello #2","post_id":1}]}`
		b, err := json.Marshal(p)
		require.NoError(t, err)
		assert.Equal(t, want, string(b))
		assert.Equal(t, want, p.String())
		assert.Equal(t, "["+want+"]", posts.String())
	})

	t.Run("UnresolvedOmitted", func(t *testing.T) {
		p, err := f.client.Query(f.posts).Select("id", "title").First(t.Context())
		require.NoError(t, err)
		assert.Equal(t, `{"id":1,"title":"hello"}`, p.String())
	})

	t.Run("MissingOneIsNull", func(t *testing.T) {
		got, err := f.client.Query(f.users).Select("id", "name").With("profile").First(t.Context())
		require.NoError(t, err)
		assert.Equal(t, `{"id":1,"name":"a","profile":null}`, got.String())
	})

	t.Run("Msgpack", func(t *testing.T) {
		type comment struct {
			ID     int64  `msgpack:"id"`
			Body   string `msgpack:"body"`
			PostID int64  `msgpack:"post_id"`
		}
		type post struct {
			ID       int64     `msgpack:"id"`
			Title    string    `msgpack:"title"`
			UserID   int64     `msgpack:"user_id"`
			Comments []comment `msgpack:"comments"`
		}
		b, err := msgpack.Marshal(p)
		require.NoError(t, err)
		var got post
		require.NoError(t, msgpack.Unmarshal(b, &got))
		assert.Equal(t, post{
			ID:     1,
			Title:  "hello",
			UserID: 1,
			Comments: []comment{
				{ID: 1, Body: "hello #1", PostID: 1},
				{ID: 2, Body: "hello #2", PostID: 1},
			},
		}, got)

		b, err = msgpack.Marshal(posts)
		require.NoError(t, err)
		var list []post
		require.NoError(t, msgpack.Unmarshal(b, &list))
		assert.Equal(t, []post{got}, list)
	})

	t.Run("Pairs", func(t *testing.T) {
		assert.Equal(t, []eloquent.Pair{
			{Key: "id", Value: int64(1)},
			{Key: "title", Value: "hello"},
			{Key: "user_id", Value: int64(1)},
		}, p.Pairs())
		var keys []string
		for k := range p.All() {
			keys = append(keys, k)
		}
		assert.Equal(t, []string{"id", "title", "user_id"}, keys)
	})
}
