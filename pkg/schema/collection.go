package schema

import "github.com/pkg/errors"

// Collection is an ordered mapping from a composite identity key to an
// object, one per object kind. Iteration follows insertion order, which the
// catalog ingestor guarantees to be the catalog's ORDER BY and the
// specification ingestor guarantees to be sorted map-key order.
type Collection[T Object] struct {
	order []Key
	items map[string]T
}

// NewCollection creates an empty collection.
func NewCollection[T Object]() *Collection[T] {
	return &Collection[T]{items: map[string]T{}}
}

// Put inserts an object under its key. A key is never reused within one
// collection snapshot; inserting a duplicate is an error.
func (c *Collection[T]) Put(obj T) error {
	k := obj.Key()
	if _, ok := c.items[k.raw()]; ok {
		return errors.Wrapf(ErrDuplicateKey, "%s", k)
	}
	c.order = append(c.order, k)
	c.items[k.raw()] = obj
	return nil
}

// Get returns the object stored under the key, or ErrNotFound.
func (c *Collection[T]) Get(k Key) (T, error) {
	obj, ok := c.items[k.raw()]
	if !ok {
		var zero T
		return zero, errors.Wrapf(ErrNotFound, "%s", k)
	}
	return obj, nil
}

// Contains reports whether the key is present.
func (c *Collection[T]) Contains(k Key) bool {
	_, ok := c.items[k.raw()]
	return ok
}

// Remove deletes the key from the collection. Used when a rename consumes
// an old key. Removing an absent key is a no-op.
func (c *Collection[T]) Remove(k Key) {
	if _, ok := c.items[k.raw()]; !ok {
		return
	}
	delete(c.items, k.raw())
	for i, existing := range c.order {
		if existing.raw() == k.raw() {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in iteration order. The slice is a copy; mutating
// the collection while ranging over a previously obtained slice is safe.
func (c *Collection[T]) Keys() []Key {
	out := make([]Key, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of objects in the collection.
func (c *Collection[T]) Len() int {
	return len(c.items)
}
