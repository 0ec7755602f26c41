package trie

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smontant/hexfog/trie/kv"
)

func TestFrontierCacheMissOnColdCache(t *testing.T) {
	c := NewTrieFrontierCache()
	_, _, err := c.Get(EmptyPath())
	require.Error(t, err)
	_, ok := err.(*NotCached)
	assert.True(t, ok)
}

func TestFrontierCacheReturnsLongestAncestor(t *testing.T) {
	tr := NewEmpty(kv.NewMemStore())
	require.NoError(t, tr.Set([]byte("dog"), []byte("puppy")))
	require.NoError(t, tr.Set([]byte("doge"), []byte("coin")))

	root, err := tr.RootNode()
	require.NoError(t, err)

	c := NewTrieFrontierCache()
	c.Add(EmptyPath(), root.Raw, root.SubSegments)

	anchor, suffix, err := c.Get(NewPathFromBytes([]byte("doge")))
	require.NoError(t, err)
	assert.Equal(t, root.Kind, anchor.Kind)
	assert.Equal(t, NewPathFromBytes([]byte("doge")), suffix)
}

func someEncodedLeaf(tag byte) []byte {
	return encodeNode(&leafNode{Key: NewPath(Nibble(tag)), Val: []byte{tag}})
}

func TestFrontierCacheDelete(t *testing.T) {
	c := NewTrieFrontierCache()
	c.Add(NewPath(1, 2), someEncodedLeaf(1), nil)
	_, _, err := c.Get(NewPath(1, 2, 3))
	require.NoError(t, err)

	c.Delete(NewPath(1, 2))
	_, _, err = c.Get(NewPath(1, 2, 3))
	require.Error(t, err)
}

func TestBoundedFrontierCacheEvictsAndStaysConsistent(t *testing.T) {
	c, err := NewBoundedFrontierCache(2)
	require.NoError(t, err)

	c.Add(NewPath(1), someEncodedLeaf(1), nil)
	c.Add(NewPath(2), someEncodedLeaf(2), nil)
	c.Add(NewPath(3), someEncodedLeaf(3), nil) // should evict one of the earlier entries

	present := 0
	for _, p := range []Path{NewPath(1), NewPath(2), NewPath(3)} {
		if _, _, err := c.Get(p); err == nil {
			present++
		}
	}
	assert.Equal(t, 2, present, "bounded cache must keep exactly its capacity worth of entries")
}
