package trie

import (
	"hash"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// hasherPool follows the teacher's newHasher/returnHasherToPool
// pattern: a sync.Pool of live Keccak-256 states so a busy walk driver
// doesn't pay an allocation per node hashed.
var hasherPool = sync.Pool{
	New: func() interface{} {
		return sha3.NewLegacyKeccak256()
	},
}

func keccak256(data []byte) common.Hash {
	h := hasherPool.Get().(hash.Hash)
	defer func() {
		h.Reset()
		hasherPool.Put(h)
	}()
	h.Write(data)
	var out common.Hash
	h.Sum(out[:0])
	return out
}

// emptyRootHash is the root hash of a trie with no keys: the Keccak
// hash of the Blank node's RLP encoding (the empty string).
var emptyRootHash = keccak256(encodeNode(nil))

// collapse walks n bottom-up, replacing every child whose encoded body
// is hashLen bytes or larger with a hashNode reference and recording
// its (hash, blob) pair in collected. Children that stay small are
// left decoded, ready to be embedded inline in their parent's
// encoding - spec.md §3.2's inlining rule, implemented here rather
// than cached incrementally: every commit or RootHash call walks the
// whole live subtree, trading the teacher's dirty-flag short-circuit
// for a simpler, easier-to-get-right implementation (see DESIGN.md).
func (t *HexaryTrie) collapse(n node, collected map[common.Hash][]byte) node {
	switch n := n.(type) {
	case nil:
		return nil
	case hashNode:
		return n
	case *leafNode:
		enc := encodeNode(n)
		return t.promote(enc, collected)
	case *extensionNode:
		childRef := t.collapse(n.Val, collected)
		enc := encodeNode(&extensionNode{Key: n.Key, Val: childRef})
		return t.promote(enc, collected)
	case *branchNode:
		nc := &branchNode{Value: n.Value}
		for i, c := range n.Children {
			nc.Children[i] = t.collapse(c, collected)
		}
		enc := encodeNode(nc)
		return t.promote(enc, collected)
	default:
		panic("trie: collapse of unknown node type")
	}
}

func (t *HexaryTrie) promote(enc []byte, collected map[common.Hash][]byte) node {
	if len(enc) < hashLen {
		inline, err := decodeNode(enc)
		if err != nil {
			// A malformed small encoding is a codec bug, not a runtime
			// fault; the encoder just produced bytes its own decoder
			// can't read back.
			panic(err)
		}
		return inline
	}
	h := keccak256(enc)
	collected[h] = enc
	return hashNode(h.Bytes())
}

// collapseRoot computes the root hash of n, optionally gathering every
// (hash, blob) pair that a commit needs to persist. The root is always
// addressed by hash regardless of its encoded size, unlike an ordinary
// child - per the classic Merkle-Patricia convention every other repo
// in the pack also follows. It also returns the node n collapses to
// when re-rooted at that hash, so a caller that's about to make this
// the trie's live root (Commit) re-roots at hashNode/small-inline
// children instead of the original, fully-decoded working tree -
// otherwise a later encodeRef over an un-collapsed child ≥hashLen
// bytes has no hash to address it by.
func (t *HexaryTrie) collapseRoot(n node) (common.Hash, node, map[common.Hash][]byte) {
	switch n := n.(type) {
	case nil:
		return emptyRootHash, nil, nil
	case hashNode:
		return common.BytesToHash(n), n, nil
	default:
		collected := make(map[common.Hash][]byte)
		ref := t.collapse(n, collected)
		var raw []byte
		if hn, ok := ref.(hashNode); ok {
			raw = collected[common.BytesToHash(hn)]
		} else {
			raw = encodeNode(ref)
		}
		h := keccak256(raw)
		collected[h] = raw
		return h, hashNode(h.Bytes()), collected
	}
}
