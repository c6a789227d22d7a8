// Package eloquent is an active record ORM core. Applications declare entity
// schemas and relations once; the package builds parameterized queries,
// executes them through a dialect.Driver and hydrates the rows into entities
// with dirty tracking.
//
// Schemas and relations:
//
//	users := eloquent.Define("users", eloquent.Fillable("name", "email"), eloquent.Timestamps())
//	posts := eloquent.Define("posts")
//	users.HasMany("posts", posts, eloquent.Cascade())
//	posts.BelongsTo("author", users, eloquent.ForeignKey("user_id"))
//
// Querying:
//
//	client := eloquent.NewClient(drv)
//	list, err := client.Repository(users).
//	    Where("age", ">=", 18).
//	    OrderByDesc("created_at").
//	    With("posts").
//	    Paginate(ctx, 1, 20)
//
// Relations named in With are loaded with one query per relation, whatever
// the number of owners.
//
// Persistence:
//
//	u := client.New(users, map[string]any{"name": "a8m"})
//	if err := u.Save(ctx); err != nil {
//	    return err
//	}
//	u.Set("email", "a8m@example.com")
//	err = u.Save(ctx) // UPDATE of the email column only
//
// Find and First report a missing row as a nil entity, not an error.
// Argument and lifecycle errors match ErrInvalidArgument and ErrInvalidState.
package eloquent
