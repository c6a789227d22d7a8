package eloquent

import (
	"context"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/eloquent/contrib/dataloader"
	"github.com/syssam/eloquent/query"
)

// eagerNode is one relation of an eager load tree.
type eagerNode struct {
	relation *Relation
	refine   func(*Builder)
	children []*eagerNode
}

// parseEager adds dotted relation paths to nodes.
func parseEager(s *Schema, paths []string, nodes []*eagerNode) ([]*eagerNode, error) {
	var err error
	for _, path := range paths {
		if nodes, err = addEager(s, nodes, path, nil); err != nil {
			return nil, err
		}
	}
	return nodes, nil
}

// addEager adds path to nodes, attaching fn to its last segment. Nodes are
// shared with clones, so they are copied before they change.
func addEager(s *Schema, nodes []*eagerNode, path string, fn func(*Builder)) ([]*eagerNode, error) {
	name, rest, nested := strings.Cut(path, ".")
	r, ok := s.Relation(name)
	if !ok {
		return nil, argumentError("With", "unknown relation %q on %s", name, s.Name)
	}
	nodes = slices.Clone(nodes)
	i := slices.IndexFunc(nodes, func(n *eagerNode) bool { return n.relation.Name == name })
	if i < 0 {
		nodes = append(nodes, &eagerNode{relation: r})
		i = len(nodes) - 1
	}
	node := *nodes[i]
	if !nested {
		if fn != nil {
			node.refine = fn
		}
	} else {
		children, err := addEager(r.Related, node.children, rest, fn)
		if err != nil {
			return nil, err
		}
		node.children = children
	}
	nodes[i] = &node
	return nodes, nil
}

func cloneEager(nodes []*eagerNode) []*eagerNode {
	return slices.Clone(nodes)
}

// loaded is the outcome of loading one relation for a set of owners.
type loaded struct {
	items    []*Entity
	children []*eagerNode
}

// resolve loads every relation of nodes onto owners. Relations of the same
// level are loaded concurrently, one query each, and attached once all of
// them succeeded. Nested relations are then loaded on the related entities.
func (c *Client) resolve(ctx context.Context, s *Schema, owners []*Entity, nodes []*eagerNode) error {
	if len(owners) == 0 || len(nodes) == 0 {
		return nil
	}
	results := make([]loaded, len(nodes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.eagerWorkers)
	for i, n := range nodes {
		g.Go(func() error {
			res, err := c.load(gctx, owners, n)
			if err != nil {
				return &QueryError{Entity: s.Name, Op: "with " + n.relation.Name, Err: err}
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, n := range nodes {
		c.attach(owners, n.relation, results[i].items)
		c.logger.DebugContext(ctx, "relation loaded",
			"entity", s.Name, "relation", n.relation.Name, "owners", len(owners), "related", len(results[i].items))
	}
	for i, n := range nodes {
		if err := c.resolve(ctx, n.relation.Related, results[i].items, results[i].children); err != nil {
			return err
		}
	}
	return nil
}

// load issues the single query of relation n for all owners.
func (c *Client) load(ctx context.Context, owners []*Entity, n *eagerNode) (loaded, error) {
	r := n.relation
	res := loaded{children: n.children}
	keys := dataloader.Unique(owners, func(e *Entity) (any, bool) {
		v := e.Get(r.ownerColumn())
		return normalizeKey(v), v != nil
	})
	if len(keys) == 0 {
		return res, nil
	}
	b := newBuilder(c, r.Related)
	spec := &query.Spec{}
	spec.Where(query.In(r.relatedColumn(), keys...))
	if n.refine != nil {
		n.refine(b)
		if b.err != nil {
			return res, b.err
		}
		if len(b.spec.Predicates) > 0 {
			spec.Where(query.Group(b.spec.Predicates...))
		}
		res.children = append(slices.Clone(n.children), b.eager...)
		spec.Selects = b.spec.Selects
		if len(spec.Selects) > 0 && !slices.Contains(spec.Selects, "*") {
			// Partitioning needs the related key and nested paths need
			// their owner keys.
			spec.Selects = appendMissing(slices.Clone(spec.Selects), r.relatedColumn())
			for _, child := range res.children {
				spec.Selects = appendMissing(spec.Selects, child.relation.ownerColumn())
			}
		}
		spec.Orders = b.spec.Orders
		spec.Limit, spec.Offset = b.spec.Limit, b.spec.Offset
	}
	// The refinement's own eager paths are resolved with the children.
	b.eager = nil
	items, err := b.fetch(ctx, "With", spec)
	if err != nil {
		return res, err
	}
	res.items = items
	return res, nil
}

func appendMissing(columns []string, column string) []string {
	if slices.Contains(columns, column) {
		return columns
	}
	return append(columns, column)
}

// attach partitions related onto owners by key equality. HasMany owners
// always get a collection; HasOne and BelongsTo owners get the first match
// in result order, or nil.
func (c *Client) attach(owners []*Entity, r *Relation, related []*Entity) {
	ownerKeys := make([]any, len(owners))
	for i, o := range owners {
		ownerKeys[i] = normalizeKey(o.Get(r.ownerColumn()))
	}
	keyFn := func(e *Entity) any { return normalizeKey(e.Get(r.relatedColumn())) }
	if r.Many() {
		groups := dataloader.OrderGroupsByKeys(ownerKeys, dataloader.GroupByKey(related, keyFn))
		for i, o := range owners {
			o.setRelative(r.Name, NewCollection(c, r.Related, slices.Clone(groups[i])...))
		}
		return
	}
	matches := dataloader.OrderByKeysNoError(ownerKeys, related, keyFn)
	for i, o := range owners {
		o.setRelative(r.Name, matches[i])
	}
}
