package eloquent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/eloquent"
)

func TestRelationDefaults(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		schema     *eloquent.Schema
		name       string
		kind       eloquent.RelationKind
		foreignKey string
		localKey   string
		cascade    bool
	}{
		{f.users, "posts", eloquent.KindHasMany, "user_id", "id", true},
		{f.users, "profile", eloquent.KindHasOne, "user_id", "id", true},
		{f.posts, "author", eloquent.KindBelongsTo, "user_id", "id", false},
		{f.comments, "post", eloquent.KindBelongsTo, "post_id", "id", false},
	}
	for _, tt := range tests {
		t.Run(tt.schema.Name+"."+tt.name, func(t *testing.T) {
			r, ok := tt.schema.Relation(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.kind, r.Kind)
			assert.Equal(t, tt.foreignKey, r.ForeignKey)
			assert.Equal(t, tt.localKey, r.LocalKey)
			assert.Equal(t, tt.cascade, r.Cascade)
			assert.Equal(t, tt.kind == eloquent.KindHasMany, r.Many())
			assert.Same(t, tt.schema, r.Owner)
		})
	}

	names := make([]string, 0, 2)
	for _, r := range f.users.Relations() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"posts", "profile"}, names)
	assert.Equal(t, "HasOne", eloquent.KindHasOne.String())

	custom := eloquent.Define("articles")
	custom.BelongsTo("writer", f.users, eloquent.ForeignKey("writer_id"), eloquent.LocalKey("uuid"))
	r, _ := custom.Relation("writer")
	assert.Equal(t, "writer_id", r.ForeignKey)
	assert.Equal(t, "uuid", r.LocalKey)
}

func TestRelated(t *testing.T) {
	f := newFixture(t)
	a := f.createUser(t, "a", 30)
	b := f.createUser(t, "b", 40)
	post := f.createPost(t, a, "hello", 2)
	f.createPost(t, b, "other", 0)

	t.Run("HasMany", func(t *testing.T) {
		posts, err := a.Related("posts").Get(t.Context())
		require.NoError(t, err)
		require.Equal(t, 1, posts.Len())
		assert.Equal(t, "hello", posts.First().Get("title"))

		comments, err := post.Related("comments").OrderByDesc("id").Get(t.Context())
		require.NoError(t, err)
		assert.Equal(t, []any{"hello #2", "hello #1"}, eloquent.Map(comments, func(e *eloquent.Entity, _ int, _ []*eloquent.Entity) any {
			return e.Get("body")
		}))
	})

	t.Run("BelongsTo", func(t *testing.T) {
		author, err := post.Related("author").First(t.Context())
		require.NoError(t, err)
		assert.Equal(t, a.ID(), author.ID())
	})

	t.Run("Unsaved", func(t *testing.T) {
		fresh := f.client.New(f.users, map[string]any{"name": "c"})
		f.stats.Reset()
		posts, err := fresh.Related("posts").Get(t.Context())
		require.NoError(t, err)
		assert.Zero(t, posts.Len())
		assert.Equal(t, int64(1), f.stats.Stats().TotalQueries)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := a.Related("likes").Get(t.Context())
		assert.True(t, eloquent.IsInvalidArgument(err))
	})

	t.Run("Load", func(t *testing.T) {
		require.NoError(t, post.Load(t.Context(), "author", "comments"))
		assert.Equal(t, "a", post.RelativeOne("author").Get("name"))
		assert.Equal(t, 2, post.RelativeMany("comments").Len())
		assert.False(t, post.Has("author"), "relatives are kept apart from attributes")
	})
}

func TestNewRelated(t *testing.T) {
	f := newFixture(t)
	u := f.createUser(t, "a", 30)

	t.Run("HasMany", func(t *testing.T) {
		p, err := u.NewRelated("posts", map[string]any{"title": "draft"})
		require.NoError(t, err)
		assert.Equal(t, eloquent.StateNew, p.State())
		assert.Equal(t, u.ID(), p.Get("user_id"))
		assert.Equal(t, "draft", p.Get("title"))
	})

	t.Run("BelongsTo", func(t *testing.T) {
		p := f.createPost(t, u, "p", 0)
		_, err := p.NewRelated("author", nil)
		assert.True(t, eloquent.IsInvalidArgument(err))
	})

	t.Run("Unsaved", func(t *testing.T) {
		fresh := f.client.New(f.users, nil)
		_, err := fresh.NewRelated("posts", nil)
		assert.True(t, eloquent.IsInvalidState(err))
	})

	t.Run("FirstOrNew", func(t *testing.T) {
		profile, err := u.FirstOrNewRelated(t.Context(), "profile", map[string]any{"bio": "hi"})
		require.NoError(t, err)
		assert.Equal(t, eloquent.StateNew, profile.State())
		require.NoError(t, profile.Save(t.Context()))

		again, err := u.FirstOrNewRelated(t.Context(), "profile", map[string]any{"bio": "ignored"})
		require.NoError(t, err)
		assert.Equal(t, eloquent.StatePersisted, again.State())
		assert.Equal(t, profile.ID(), again.ID())
		assert.Equal(t, "hi", again.Get("bio"))
	})
}

func TestHasOneFirstMatchWins(t *testing.T) {
	f := newFixture(t)
	u := f.createUser(t, "a", 30)
	for _, bio := range []string{"first", "second"} {
		p, err := u.NewRelated("profile", map[string]any{"bio": bio})
		require.NoError(t, err)
		require.NoError(t, p.Save(t.Context()))
	}

	got, err := f.client.Repository(f.users).Query().
		WithFunc("profile", func(q *eloquent.Builder) { q.OrderBy("id", "asc") }).
		First(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "first", got.RelativeOne("profile").Get("bio"))

	got, err = f.client.Repository(f.users).Query().
		WithFunc("profile", func(q *eloquent.Builder) { q.OrderByDesc("id") }).
		First(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "second", got.RelativeOne("profile").Get("bio"))
}

func TestEagerNarrowedSelectKeepsNestedKeys(t *testing.T) {
	tests := []struct {
		name  string
		build func(*eloquent.Builder) *eloquent.Builder
	}{
		{"NestedPath", func(b *eloquent.Builder) *eloquent.Builder {
			return b.WithFunc("posts", func(q *eloquent.Builder) { q.Select("title") }).With("posts.comments")
		}},
		{"RefinementPath", func(b *eloquent.Builder) *eloquent.Builder {
			return b.WithFunc("posts", func(q *eloquent.Builder) { q.Select("title").With("comments") })
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			u := f.createUser(t, "a", 30)
			f.createPost(t, u, "p1", 3)

			got, err := tt.build(f.client.Repository(f.users).Query()).First(t.Context())
			require.NoError(t, err)
			posts := got.RelativeMany("posts")
			require.Equal(t, 1, posts.Len())
			p := posts.First()
			assert.ElementsMatch(t, []string{"title", "user_id", "id"}, p.Keys())
			assert.Equal(t, 3, p.RelativeMany("comments").Len())
		})
	}
}
