package eloquent

import (
	"context"
	"iter"
	"maps"
	"slices"

	"github.com/syssam/eloquent/contrib/dataloader"
	"github.com/syssam/eloquent/query"
)

// DeleteResult reports the rows removed by a batch delete.
type DeleteResult struct {
	// ItemsDeleted holds the primary keys of the deleted root rows.
	ItemsDeleted []any
	// RelativeDeleted holds the primary keys of cascaded rows by relation
	// path, e.g. "posts" and "posts.comments".
	RelativeDeleted map[string][]any
}

func newDeleteResult() *DeleteResult {
	return &DeleteResult{RelativeDeleted: make(map[string][]any)}
}

// counts yields the number of deleted rows per relation path.
func (r *DeleteResult) counts() iter.Seq2[string, int] {
	return func(yield func(string, int) bool) {
		for _, path := range slices.Sorted(maps.Keys(r.RelativeDeleted)) {
			if !yield(path, len(r.RelativeDeleted[path])) {
				return
			}
		}
	}
}

// Delete deletes the matching rows. The keys of the matching rows are read
// first; rows of cascading relations are deleted before their owners.
//
// When a cascade step fails the matching rows are not deleted, and the
// result reports what was deleted before the failure. Run Delete inside
// Client.WithTx to make it atomic.
func (b *Builder) Delete(ctx context.Context) (*DeleteResult, error) {
	if b.err != nil {
		return nil, b.err
	}
	c, s := b.client, b.schema
	spec := b.spec.Clone()
	spec.Select(s.PrimaryKey)
	rows, err := b.rows(ctx, "Delete", spec)
	if err != nil {
		return nil, err
	}
	ids := uniqueColumn(rows, s.PrimaryKey)
	res := newDeleteResult()
	if len(ids) == 0 {
		return res, nil
	}
	if err := c.deleteRelatives(ctx, s, ids, "", res); err != nil {
		c.logger.WarnContext(ctx, "cascade delete failed", "entity", s.Name, "roots", len(ids), "error", err)
		return res, err
	}
	if _, err := c.deleteByIDs(ctx, s, ids); err != nil {
		return res, err
	}
	res.ItemsDeleted = ids
	c.logger.DebugContext(ctx, "entities deleted", "entity", s.Name, "count", len(ids), "relatives", maps.Collect(res.counts()))
	return res, nil
}

// deleteRelatives deletes, depth first, the rows of every cascading HasOne
// and HasMany relation of the rows of s keyed by ids.
func (c *Client) deleteRelatives(ctx context.Context, s *Schema, ids []any, prefix string, res *DeleteResult) error {
	for _, r := range s.Relations() {
		if !r.Cascade || r.Kind == KindBelongsTo {
			continue
		}
		owners := ids
		if r.LocalKey != s.PrimaryKey {
			var err error
			if owners, err = c.pluck(ctx, s, r.LocalKey, query.In(s.PrimaryKey, ids...)); err != nil {
				return err
			}
		}
		if len(owners) == 0 {
			continue
		}
		rel := r.Related
		childIDs, err := c.pluck(ctx, rel, rel.PrimaryKey, query.In(r.ForeignKey, owners...))
		if err != nil {
			return err
		}
		if len(childIDs) == 0 {
			continue
		}
		path := r.Name
		if prefix != "" {
			path = prefix + "." + r.Name
		}
		if err := c.deleteRelatives(ctx, rel, childIDs, path, res); err != nil {
			return err
		}
		if _, err := c.deleteByIDs(ctx, rel, childIDs); err != nil {
			return err
		}
		res.RelativeDeleted[path] = append(res.RelativeDeleted[path], childIDs...)
	}
	return nil
}

// pluck returns the distinct non-nil values of column in the rows matching p.
func (c *Client) pluck(ctx context.Context, s *Schema, column string, p query.Predicate) ([]any, error) {
	spec := &query.Spec{}
	spec.Select(column)
	spec.Where(p)
	stmt, err := c.compiler.Select(s.Table, spec)
	if err != nil {
		return nil, compileError("Delete", err)
	}
	rows, err := c.query(ctx, s, stmt)
	if err != nil {
		return nil, err
	}
	return uniqueColumn(rows, column), nil
}

// deleteByIDs deletes the rows of s keyed by ids.
func (c *Client) deleteByIDs(ctx context.Context, s *Schema, ids []any) (int64, error) {
	stmt, err := c.compiler.Delete(s.Table, []query.Predicate{query.In(s.PrimaryKey, ids...)})
	if err != nil {
		return 0, compileError("Delete", err)
	}
	out, err := c.exec.Exec(ctx, stmt)
	if err != nil {
		return 0, &PersistenceError{Entity: s.Name, Op: "delete", Err: err}
	}
	return out.RowsAffected, nil
}

func uniqueColumn[R ~map[string]any](rows []R, column string) []any {
	return dataloader.Unique(rows, func(r R) (any, bool) {
		v := r[column]
		return normalizeKey(v), v != nil
	})
}
