package trie

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smontant/hexfog/trie/kv"
)

func keysFromIterator(t *testing.T, tr *HexaryTrie) []string {
	t.Helper()
	it, err := tr.NewNodeIterator(EmptyPath())
	require.NoError(t, err)
	var keys []string
	for {
		k, _, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		b, ok := k.Bytes()
		require.True(t, ok, "full keys are always even-length")
		keys = append(keys, string(b))
	}
	return keys
}

func TestNodeIteratorEnumeratesAllKeysInOrder(t *testing.T) {
	tr := NewEmpty(kv.NewMemStore())
	input := []string{"doge", "dog", "do", "horse", "a", "ab"}
	for _, k := range input {
		require.NoError(t, tr.Set([]byte(k), []byte("v-"+k)))
	}

	got := keysFromIterator(t, tr)
	want := []string{"a", "ab", "do", "dog", "doge", "horse"}
	assert.Equal(t, want, got)
}

func TestNodeIteratorOnEmptyTrieYieldsNothing(t *testing.T) {
	tr := NewEmpty(kv.NewMemStore())
	got := keysFromIterator(t, tr)
	assert.Empty(t, got)
}

func TestHexaryTrieNextWrapperResumesAfterGivenKey(t *testing.T) {
	tr := NewEmpty(kv.NewMemStore())
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, tr.Set([]byte(k), []byte(k)))
	}
	key, _, ok, err := tr.Next(NewPathFromBytes([]byte("a")))
	require.NoError(t, err)
	require.True(t, ok)
	b, _ := key.Bytes()
	assert.Equal(t, "b", string(b))
}

func TestNodeIteratorSeekSkipsKeysAtOrBeforeAfter(t *testing.T) {
	tr := NewEmpty(kv.NewMemStore())
	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, tr.Set([]byte(k), []byte(k)))
	}
	it, err := tr.NewNodeIterator(NewPathFromBytes([]byte("b")))
	require.NoError(t, err)

	var got []string
	for {
		k, _, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		b, _ := k.Bytes()
		got = append(got, string(b))
	}
	assert.Equal(t, []string{"c", "d"}, got)
}
