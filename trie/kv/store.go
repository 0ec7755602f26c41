// Package kv defines the NodeStore collaborator spec.md §6 treats as
// external: a byte-keyed, content-addressed store of encoded trie node
// bodies. HexaryTrie never assumes a particular backing; it only needs
// get/put/contains.
package kv

import "github.com/ethereum/go-ethereum/common"

// NodeStore is the storage side of a HexaryTrie. Implementations are
// free to be partial - a beam-sync peer only has some of the nodes a
// full trie would - since every miss surfaces as a typed fault the
// caller can backfill and retry against.
type NodeStore interface {
	// Get returns the encoded body stored under hash, and whether it
	// was present.
	Get(hash common.Hash) ([]byte, bool)
	// Put stores blob under hash, overwriting any previous value.
	Put(hash common.Hash, blob []byte)
	// Has reports whether hash is present without fetching its body.
	Has(hash common.Hash) bool
}
