// Package dataloader provides generic helpers for batch loading: collecting
// the distinct keys of a set of owners, and distributing the rows of one
// batched query back onto them.
//
// The eager loader of the eloquent package resolves every relation with a
// single IN query built from these helpers:
//
//	keys := dataloader.Unique(owners, func(u *User) (int, bool) { return u.ID, true })
//	posts := loadPostsByUserIDs(ctx, keys)
//	groups := dataloader.GroupByKey(posts, func(p *Post) int { return p.UserID })
//	perOwner := dataloader.OrderGroupsByKeys(ownerIDs, groups)
//	// perOwner[i] contains all posts of owners[i]
package dataloader

import "errors"

// ErrNotFound is returned when an entity is not found in a batch result.
var ErrNotFound = errors.New("dataloader: entity not found")

// KeyFunc extracts a key from an entity.
type KeyFunc[K comparable, V any] func(V) K

// Unique returns the distinct keys of values in first-seen order. Values for
// which keyFn reports false are skipped.
func Unique[K comparable, V any](values []V, keyFn func(V) (K, bool)) []K {
	seen := make(map[K]struct{}, len(values))
	var keys []K
	for _, v := range values {
		k, ok := keyFn(v)
		if !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// OrderByKeys reorders entities to match the order of requested keys.
// Missing entities are represented as zero values with corresponding errors.
// When several entities share a key, the first one wins.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) ([]V, []error) {
	lookup := FirstByKey(values, keyFn)
	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			result[i] = v
		} else {
			errs[i] = ErrNotFound
		}
	}
	return result, errs
}

// OrderByKeysNoError reorders entities to match the order of requested keys.
// Returns zero values for missing entities without errors.
// Use this when missing entities are acceptable (e.g., optional relationships).
func OrderByKeysNoError[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) []V {
	result, _ := OrderByKeys(keys, values, keyFn)
	return result
}

// FirstByKey indexes values by key, keeping the first value of each key.
func FirstByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K]V {
	result := make(map[K]V, len(values))
	for _, v := range values {
		key := keyFn(v)
		if _, ok := result[key]; !ok {
			result[key] = v
		}
	}
	return result
}

// GroupByKey groups entities by a key function, keeping their order within
// each group. Useful for one-to-many relationships where multiple entities
// share the same foreign key.
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	result := make(map[K][]V)
	for _, v := range values {
		key := keyFn(v)
		result[key] = append(result[key], v)
	}
	return result
}

// OrderGroupsByKeys reorders grouped entities to match the order of requested keys.
// Returns a slice of slices where each inner slice contains entities for that key.
func OrderGroupsByKeys[K comparable, V any](keys []K, groups map[K][]V) [][]V {
	result := make([][]V, len(keys))
	for i, key := range keys {
		result[i] = groups[key]
	}
	return result
}
