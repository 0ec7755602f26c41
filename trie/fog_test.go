package trie

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smontant/hexfog/trie/kv"
)

func TestNewFogStartsWithOnlyEmptyPathUnknown(t *testing.T) {
	f := NewHexaryTrieFog()
	assert.False(t, f.IsComplete())
	assert.Equal(t, []Path{EmptyPath()}, f.Unknown())
}

func TestExploreReplacesPrefixWithSubSegments(t *testing.T) {
	f := NewHexaryTrieFog()
	next, err := f.Explore(EmptyPath(), []Path{NewPath(1), NewPath(2)})
	require.NoError(t, err)
	assert.ElementsMatch(t, []Path{NewPath(1), NewPath(2)}, next.Unknown())
}

func TestExploreWithNoSubSegmentsMarksSubtreeComplete(t *testing.T) {
	f := NewHexaryTrieFog()
	next, err := f.Explore(EmptyPath(), nil)
	require.NoError(t, err)
	assert.True(t, next.IsComplete())
}

func TestExploreUntrackedPrefixErrors(t *testing.T) {
	f := NewHexaryTrieFog()
	_, err := f.Explore(NewPath(9), []Path{NewPath(1)})
	assert.Error(t, err)
}

func TestNearestUnknownReturnsPerfectVisibilityWhenDone(t *testing.T) {
	f := NewHexaryTrieFog()
	f, err := f.Explore(EmptyPath(), nil)
	require.NoError(t, err)
	_, err = f.NearestUnknown(EmptyPath())
	_, ok := err.(*PerfectVisibility)
	assert.True(t, ok)
}

func TestNearestUnknownExactMatch(t *testing.T) {
	f := NewHexaryTrieFog()
	f, err := f.Explore(EmptyPath(), []Path{NewPath(1), NewPath(5), NewPath(0xf)})
	require.NoError(t, err)
	got, err := f.NearestUnknown(NewPath(5))
	require.NoError(t, err)
	assert.True(t, got.Equal(NewPath(5)))
}

func TestNearestUnknownPicksLongerCommonPrefix(t *testing.T) {
	f := NewHexaryTrieFog()
	f, err := f.Explore(EmptyPath(), []Path{NewPath(1, 0), NewPath(1, 2, 3), NewPath(9)})
	require.NoError(t, err)
	// index shares a longer prefix with NewPath(1,2,3) than with NewPath(1,0).
	got, err := f.NearestUnknown(NewPath(1, 2, 9))
	require.NoError(t, err)
	assert.True(t, got.Equal(NewPath(1, 2, 3)))
}

func TestMarkAllCompleteRemovesListedPrefixes(t *testing.T) {
	f := NewHexaryTrieFog()
	f, err := f.Explore(EmptyPath(), []Path{NewPath(1), NewPath(2), NewPath(3)})
	require.NoError(t, err)
	f = f.MarkAllComplete([]Path{NewPath(1), NewPath(3), NewPath(9)})
	assert.ElementsMatch(t, []Path{NewPath(2)}, f.Unknown())
}

func TestFogIsImmutable(t *testing.T) {
	f := NewHexaryTrieFog()
	_, err := f.Explore(EmptyPath(), []Path{NewPath(1)})
	require.NoError(t, err)
	assert.Equal(t, []Path{EmptyPath()}, f.Unknown(), "Explore must not mutate the receiver")
}

// TestFogSurvivesMixedMutationBatch mixes an insert, an update of an
// existing key, and a delete into one batch, then drives a fresh fog
// walk to completion over the post-commit root and checks the walk
// surfaces exactly the keys that survived the batch.
func TestFogSurvivesMixedMutationBatch(t *testing.T) {
	store := kv.NewMemStore()
	tr := NewEmpty(store)
	require.NoError(t, tr.Set([]byte("dog"), []byte("puppy")))
	require.NoError(t, tr.Set([]byte("doge"), []byte("coin")))
	require.NoError(t, tr.Set([]byte("horse"), []byte("stallion")))

	b := tr.SquashChanges()
	require.NoError(t, b.Set([]byte("doge"), []byte("newcoin"))) // update
	require.NoError(t, b.Delete([]byte("dog")))                  // delete
	require.NoError(t, b.Set([]byte("cat"), []byte("meow")))     // insert
	require.NoError(t, b.Commit())

	f := NewHexaryTrieFog()
	cache := NewTrieFrontierCache()
	for !f.IsComplete() {
		prefix, err := f.NearestUnknown(EmptyPath())
		if _, ok := err.(*PerfectVisibility); ok {
			break
		}
		require.NoError(t, err)

		node, err := tr.Traverse(prefix)
		require.NoError(t, err)
		cache.Add(prefix, node.Raw, node.SubSegments)
		f, err = f.Explore(prefix, node.SubSegments)
		require.NoError(t, err)
	}

	it, err := tr.NewNodeIterator(EmptyPath())
	require.NoError(t, err)
	gotValues := map[string]bool{}
	for {
		_, val, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		gotValues[string(val)] = true
	}

	assert.True(t, gotValues["newcoin"], "updated value must survive the batch")
	assert.True(t, gotValues["stallion"], "untouched value must survive the batch")
	assert.True(t, gotValues["meow"], "inserted value must survive the batch")
	assert.False(t, gotValues["puppy"], "deleted key's old value must not appear")
	assert.False(t, gotValues["coin"], "stale pre-update value must not appear")
}

// TestFogContinuesThroughPartialPathAfterMutation halts a walk after its
// very first expansion, mutates the trie out from under the now-stale
// unknown prefixes, then continues the same walk. The deletion collapses
// a branch into a longer Extension, so resuming at the stale one-nibble
// prefix lands strictly inside that Extension's own key and the walk
// must handle TraversedPartialPath to make any further progress - the
// scenario the earlier fresh-fog test never exercised, since it only
// ever walks a fog it starts after the mutation.
func TestFogContinuesThroughPartialPathAfterMutation(t *testing.T) {
	store := kv.NewMemStore()
	tr := NewEmpty(store)
	keyA := []byte{0x12, 0x30}
	keyB := []byte{0x12, 0x35}
	keyC := []byte{0x50, 0x00}
	require.NoError(t, tr.Set(keyA, []byte("vA")))
	require.NoError(t, tr.Set(keyB, []byte("vB")))
	require.NoError(t, tr.Set(keyC, []byte("vC")))

	f := NewHexaryTrieFog()
	cache := NewTrieFrontierCache()

	// One expansion: explore the root, which at this point is a plain
	// Branch with live exits at nibble 1 (the A/B subtree) and nibble 5
	// (C). The walk halts here, before either child is visited.
	root, err := tr.Traverse(EmptyPath())
	require.NoError(t, err)
	cache.Add(EmptyPath(), root.Raw, root.SubSegments)
	f, err = f.Explore(EmptyPath(), root.SubSegments)
	require.NoError(t, err)
	assert.ElementsMatch(t, []Path{NewPath(1), NewPath(5)}, f.Unknown())

	// Mutate out from under the halted walk: deleting C leaves nibble 1
	// as the root's only live exit, and reduceBranch collapses the root
	// down to an Extension spanning more nibbles than the stale,
	// already-queued prefix [1] covers.
	require.NoError(t, tr.Delete(keyC))

	continued := false
	for !f.IsComplete() {
		prefix, err := f.NearestUnknown(EmptyPath())
		if _, ok := err.(*PerfectVisibility); ok {
			break
		}
		require.NoError(t, err)

		node, traverseErr := tr.Traverse(prefix)
		if partial, ok := traverseErr.(*TraversedPartialPath); ok {
			continued = true
			segments := make([]Path, len(partial.Node.SubSegments))
			for i, s := range partial.Node.SubSegments {
				segments[i] = partial.Remaining.Concat(s)
			}
			f, err = f.Explore(prefix, segments)
			require.NoError(t, err)
			continue
		}
		require.NoError(t, traverseErr)

		if len(node.SubSegments) > 0 {
			cache.Add(prefix, node.Raw, node.SubSegments)
		} else {
			cache.Delete(prefix)
		}
		f, err = f.Explore(prefix, node.SubSegments)
		require.NoError(t, err)
	}

	assert.True(t, continued, "walk must actually hit a TraversedPartialPath fault after the mutation")

	it, err := tr.NewNodeIterator(EmptyPath())
	require.NoError(t, err)
	gotValues := map[string]bool{}
	for {
		_, val, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		gotValues[string(val)] = true
	}
	assert.True(t, gotValues["vA"])
	assert.True(t, gotValues["vB"])
	assert.False(t, gotValues["vC"], "deleted key must not reappear once the walk completes")
}
