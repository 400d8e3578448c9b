package schema

import (
	"github.com/pkg/errors"
)

// reconcileOpts tunes the per-kind reconciliation pass.
type reconcileOpts[T Object] struct {
	// keep reports objects that must never be marked for dropping, such
	// as system schemas or plpgsql.
	keep func(T) bool

	// rank orders the desired-side scan into sub-passes, lower first.
	// Functions rank before the aggregates that reference them.
	rank func(T) int
}

// reconcile runs the three-step pass for one object kind: renames and
// creates from the desired scan, then alterations and drop marking from
// the current scan. Renamed objects are re-keyed into the current
// collection under the new name so the alteration scan still compares
// them; dropped objects are only marked here, the sweep happens after all
// kinds have been processed.
func reconcile[T Object](current, desired *Collection[T], opts reconcileOpts[T]) ([]string, error) {
	ranks := []int{0}
	if opts.rank != nil {
		seen := map[int]bool{0: true}
		for _, k := range desired.Keys() {
			want, _ := desired.Get(k)
			if r := opts.rank(want); !seen[r] {
				seen[r] = true
				ranks = append(ranks, r)
			}
		}
		for i := 1; i < len(ranks); i++ {
			for j := i; j > 0 && ranks[j] < ranks[j-1]; j-- {
				ranks[j], ranks[j-1] = ranks[j-1], ranks[j]
			}
		}
	}

	var stmts []string
	for _, rank := range ranks {
		for _, k := range desired.Keys() {
			want, err := desired.Get(k)
			if err != nil {
				return nil, err
			}
			if opts.rank != nil && opts.rank(want) != rank {
				continue
			}
			if current.Contains(k) {
				continue
			}
			old := want.base().OldName
			if old == "" {
				stmts = append(stmts, want.Create()...)
				continue
			}
			oldKey := k.withName(old)
			cur, err := current.Get(oldKey)
			if err != nil {
				return nil, errors.Wrapf(ErrAmbiguousRename,
					"%s %q: no object named %q to rename", want.ObjectType(), want.base().Name, old)
			}
			stmts = append(stmts, renameSQL(cur, want.base().Name))
			current.Remove(oldKey)
			cur.base().Name = want.base().Name
			if err := current.Put(cur); err != nil {
				return nil, errors.Wrapf(ErrAmbiguousRename,
					"%s %q: rename target already exists", cur.ObjectType(), cur.base().Name)
			}
		}
	}

	for _, k := range current.Keys() {
		cur, err := current.Get(k)
		if err != nil {
			return nil, err
		}
		want, err := desired.Get(k)
		if err != nil {
			if opts.keep == nil || !opts.keep(cur) {
				cur.base().dropped = true
			}
			continue
		}
		altered, err := cur.AlterDiff(want)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, altered...)
	}
	return stmts, nil
}

// droppedObjects returns the marked objects of a collection in insertion
// order.
func droppedObjects[T Object](c *Collection[T]) []T {
	var out []T
	for _, k := range c.Keys() {
		o, err := c.Get(k)
		if err == nil && o.base().dropped {
			out = append(out, o)
		}
	}
	return out
}
