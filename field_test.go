package eloquent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/eloquent"
	"github.com/syssam/eloquent/query"
)

var (
	userName  = eloquent.StringField("name")
	userAge   = eloquent.Field[int]("age")
	userEmail = eloquent.Field[string]("email")
	userScore = eloquent.Field[float64]("score")
)

func TestFieldAccess(t *testing.T) {
	f := newFixture(t)
	u := f.createUser(t, "a8m", 30)

	age, ok := userAge.Get(u)
	assert.True(t, ok)
	assert.Equal(t, 30, age)

	loaded, err := f.client.Repository(f.users).Find(t.Context(), u.ID())
	require.NoError(t, err)
	age, ok = userAge.Get(loaded)
	assert.True(t, ok, "int64 columns convert to int")
	assert.Equal(t, 30, age)

	score, ok := userScore.Get(loaded.Set("score", int64(7)))
	assert.True(t, ok)
	assert.Equal(t, 7.0, score)

	_, ok = userAge.Get(loaded.Set("age", "thirty"))
	assert.False(t, ok, "strings do not convert to numbers")
	_, ok = userEmail.Get(loaded.Set("email", 5))
	assert.False(t, ok, "numbers do not convert to strings")
	_, ok = userAge.Get(loaded.Set("age", nil))
	assert.False(t, ok)
	_, ok = userAge.Get(f.client.New(f.users, nil))
	assert.False(t, ok)

	userName.Set(u, "renamed")
	name, ok := userName.Get(u)
	assert.True(t, ok)
	assert.Equal(t, "renamed", name)
	assert.Equal(t, "age", userAge.Name())
}

func TestFieldPredicates(t *testing.T) {
	tests := []struct {
		name string
		pred query.Predicate
		want query.Predicate
	}{
		{"EQ", userAge.EQ(1), query.EQ("age", 1)},
		{"NEQ", userAge.NEQ(1), query.NEQ("age", 1)},
		{"GT", userAge.GT(1), query.GT("age", 1)},
		{"GTE", userAge.GTE(1), query.GTE("age", 1)},
		{"LT", userAge.LT(1), query.LT("age", 1)},
		{"LTE", userAge.LTE(1), query.LTE("age", 1)},
		{"In", userAge.In(1, 2), query.In("age", 1, 2)},
		{"NotIn", userAge.NotIn(1, 2), query.NotIn("age", 1, 2)},
		{"Between", userAge.Between(1, 2), query.Between("age", 1, 2)},
		{"IsNull", userAge.IsNull(), query.IsNull("age")},
		{"NotNull", userAge.NotNull(), query.NotNull("age")},
		{"Contains", userName.Contains("8"), query.Like("name", "%8%")},
		{"HasPrefix", userName.HasPrefix("a"), query.Like("name", "a%")},
		{"HasSuffix", userName.HasSuffix("m"), query.Like("name", "%m")},
		{"StringEQ", userName.EQ("a"), query.EQ("name", "a")},
		{"StringIn", userName.In("a", "b"), query.In("name", "a", "b")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pred)
		})
	}
}

func TestMatch(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"a8m", "ariel", "bob", "alice"} {
		f.createUser(t, name, len(name)*10)
	}

	got, err := f.client.Repository(f.users).Query().
		Match(userName.HasPrefix("a"), userAge.GTE(40)).
		Match(userName.EQ("bob").Or()).
		OrderBy("name", "asc").
		Get(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "ariel", "bob"}, names(got))

	got, err = f.client.Repository(f.users).Query().
		WhereGroup(func(q *eloquent.Builder) {
			q.Where("name", "bob").OrWhere("name", "ariel")
		}).
		Match(userAge.LT(35)).
		Get(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, names(got))
}
