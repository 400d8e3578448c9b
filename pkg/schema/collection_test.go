package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newSchema(name string) *Schema {
	s := &Schema{}
	s.Name = name
	return s
}

func TestCollectionOrdering(t *testing.T) {
	c := NewCollection[*Schema]()
	for _, name := range []string{"zoo", "alpha", "mid"} {
		require.NoError(t, c.Put(newSchema(name)))
	}

	keys := c.Keys()
	require.Len(t, keys, 3)
	require.Equal(t, Key{"zoo"}, keys[0])
	require.Equal(t, Key{"alpha"}, keys[1])
	require.Equal(t, Key{"mid"}, keys[2])
}

func TestCollectionDuplicateKey(t *testing.T) {
	c := NewCollection[*Schema]()
	require.NoError(t, c.Put(newSchema("s1")))

	err := c.Put(newSchema("s1"))
	require.ErrorIs(t, err, ErrDuplicateKey)
}

func TestCollectionGetMissing(t *testing.T) {
	c := NewCollection[*Schema]()
	_, err := c.Get(Key{"nope"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCollectionRemove(t *testing.T) {
	c := NewCollection[*Schema]()
	require.NoError(t, c.Put(newSchema("s1")))
	require.NoError(t, c.Put(newSchema("s2")))

	c.Remove(Key{"s1"})
	require.False(t, c.Contains(Key{"s1"}))
	require.Equal(t, []Key{{"s2"}}, c.Keys())
	require.Equal(t, 1, c.Len())

	// removing an absent key is a no-op
	c.Remove(Key{"s1"})
	require.Equal(t, 1, c.Len())
}

func TestKeyWithName(t *testing.T) {
	k := Key{"sd", "t1", "integer"}
	require.Equal(t, Key{"sd", "t1", "old"}, k.withName("old"))
	// the original is untouched
	require.Equal(t, Key{"sd", "t1", "integer"}, k)
}
