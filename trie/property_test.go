package trie

import (
	"math/rand"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smontant/hexfog/trie/kv"
)

// TestFuzzedInsertThenDeleteReturnsToEmptyRoot generates random
// key/value sets and checks the universal property that setting then
// deleting every key brings the trie back to the empty-trie hash,
// regardless of what was inserted or in what order.
func TestFuzzedInsertThenDeleteReturnsToEmptyRoot(t *testing.T) {
	f := fuzz.New().NilChance(0).NumElements(1, 12).RandSource(rand.NewSource(1))

	for round := 0; round < 20; round++ {
		var keys [][]byte
		var values [][]byte
		f.Fuzz(&keys)
		f.Fuzz(&values)

		tr := NewEmpty(kv.NewMemStore())
		n := len(keys)
		if len(values) < n {
			n = len(values)
		}
		seen := map[string][]byte{}
		for i := 0; i < n; i++ {
			if len(keys[i]) == 0 || len(values[i]) == 0 {
				continue
			}
			require.NoError(t, tr.Set(keys[i], values[i]))
			seen[string(keys[i])] = values[i]
		}
		for k, v := range seen {
			got, err := tr.Get([]byte(k))
			require.NoError(t, err)
			assert.Equal(t, v, got)
		}
		for k := range seen {
			require.NoError(t, tr.Delete([]byte(k)))
		}
		assert.Equal(t, emptyRootHash, tr.RootHash())
	}
}
