// Package trie implements a hexary (radix-16) Merkle-Patricia trie
// built to tolerate partial visibility of its own node set: any read
// that needs a node the backing NodeStore doesn't have fails with a
// typed fault instead of blocking, so a caller driving a beam sync or
// a snapshot download can backfill exactly the nodes it's missing and
// retry.
package trie

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// HexaryTrie is a Merkle-Patricia trie over a partially-visible
// NodeStore. It is not safe for concurrent use - the same restriction
// the teacher's Trie carries - but a single HexaryTrie's traversal and
// mutation methods are what a HexaryTrieFog-driven walker calls
// directly.
type HexaryTrie struct {
	store NodeStore
	root  node
}

// NodeStore is declared here (rather than requiring every caller to
// import trie/kv) so New's signature can take it directly. It is a
// separate interface with the same method set as trie/kv's NodeStore,
// so any kv store satisfies both.
type NodeStore interface {
	Get(hash common.Hash) ([]byte, bool)
	Put(hash common.Hash, blob []byte)
	Has(hash common.Hash) bool
}

// New builds a HexaryTrie rooted at root against store. If root is the
// empty-trie hash, the trie starts empty and store may be nil (it will
// never be read until something is inserted). Otherwise New records
// the root as an unresolved hash reference without reading store, and
// always returns a nil error; a missing root node surfaces on the
// first Get, Traverse or mutation that needs it.
func New(root common.Hash, store NodeStore) (*HexaryTrie, error) {
	t := &HexaryTrie{store: store}
	if root == (common.Hash{}) || root == emptyRootHash {
		return t, nil
	}
	t.root = hashNode(root.Bytes())
	return t, nil
}

// NewEmpty returns a trie with no keys, backed by store for future
// mutations.
func NewEmpty(store NodeStore) *HexaryTrie {
	return &HexaryTrie{store: store}
}

// resolveForMutation loads the node hashNode ref points at, for use by
// insert/delete. A miss surfaces as MissingTrieNode, carrying the
// original byte key the caller was trying to mutate.
func (t *HexaryTrie) resolveForMutation(ref node, prefix Path, key []byte) (node, error) {
	hn, ok := ref.(hashNode)
	if !ok {
		return ref, nil
	}
	hash := common.BytesToHash(hn)
	blob, ok := t.store.Get(hash)
	if !ok {
		return nil, &MissingTrieNode{MissingNodeHash: hash, Key: key, PrefixTraversed: prefix}
	}
	return decodeNode(blob)
}

// resolveForTraversal is resolveForMutation's Traverse/TraverseFrom
// counterpart: it has no full key on hand, only the path walked so
// far, so a miss surfaces as MissingTraversalNode instead.
func (t *HexaryTrie) resolveForTraversal(ref node, prefix Path) (node, error) {
	hn, ok := ref.(hashNode)
	if !ok {
		return ref, nil
	}
	hash := common.BytesToHash(hn)
	blob, ok := t.store.Get(hash)
	if !ok {
		return nil, &MissingTraversalNode{MissingNodeHash: hash, PathTraversed: prefix}
	}
	return decodeNode(blob)
}

// Get returns the value stored under key, or nil if key is absent. It
// returns MissingTrieNode if resolving a node along the way hits a
// NodeStore miss.
func (t *HexaryTrie) Get(key []byte) ([]byte, error) {
	path := NewPathFromBytes(key)
	n, err := t.traverseNode(t.root, EmptyPath(), path)
	if err != nil {
		switch e := err.(type) {
		case *TraversedPartialPath:
			return nil, nil
		case *MissingTraversalNode:
			return nil, &MissingTrieNode{MissingNodeHash: e.MissingNodeHash, Key: key, PrefixTraversed: e.PathTraversed}
		default:
			return nil, err
		}
	}
	switch n.Kind {
	case KindLeaf, KindBranch:
		return n.Value, nil
	default:
		return nil, nil
	}
}

// Set stores value under key as a single committed change: it is
// exactly SquashChanges().Set(key, value) followed by Commit. A failed
// Set never mutates the trie - it returns with the receiver
// observationally unchanged.
func (t *HexaryTrie) Set(key, value []byte) error {
	b := t.SquashChanges()
	if err := b.Set(key, value); err != nil {
		return err
	}
	return b.Commit()
}

// Delete removes key as a single committed change, or is a no-op if
// key isn't present.
func (t *HexaryTrie) Delete(key []byte) error {
	b := t.SquashChanges()
	if err := b.Delete(key); err != nil {
		return err
	}
	return b.Commit()
}

// RootHash returns the 256-bit hash of the root node, computing it
// on demand from the current in-memory tree if anything's changed
// since the last commit. It never writes to the NodeStore.
func (t *HexaryTrie) RootHash() common.Hash {
	h, _, _ := t.collapseRoot(t.root)
	return h
}

// RootNode returns the decoded root node, resolving it from the
// NodeStore first if the trie was opened from a bare root hash and
// nothing has touched it since.
func (t *HexaryTrie) RootNode() (HexaryTrieNode, error) {
	return t.Traverse(EmptyPath())
}

// Traverse walks from the root along path and returns the node found
// there. It raises MissingTraversalNode if a NodeStore lookup along
// the way misses, and TraversedPartialPath if path runs out partway
// through a Leaf or Extension's own key instead of landing on a node
// boundary.
func (t *HexaryTrie) Traverse(path Path) (HexaryTrieNode, error) {
	return t.traverseNode(t.root, EmptyPath(), path)
}

// TraverseFrom continues a traversal from a previously obtained
// HexaryTrieNode - typically one fetched from a TrieFrontierCache or
// returned by an earlier Traverse call - descending subPath nibbles
// further below it. Paths and faults raised are relative to anchor,
// not to the trie root; the caller is responsible for tracking the
// absolute prefix anchor sits at.
func (t *HexaryTrie) TraverseFrom(anchor HexaryTrieNode, subPath Path) (HexaryTrieNode, error) {
	var n node
	if anchor.Kind != KindBlank {
		decoded, err := decodeNode(anchor.Raw)
		if err != nil {
			return HexaryTrieNode{}, fmt.Errorf("trie: invalid anchor node: %w", err)
		}
		n = decoded
	}
	return t.traverseNode(n, EmptyPath(), subPath)
}

func (t *HexaryTrie) traverseNode(n node, traversedSoFar, remaining Path) (HexaryTrieNode, error) {
	switch n := n.(type) {
	case nil:
		return snapshotBlank(), nil

	case hashNode:
		resolved, err := t.resolveForTraversal(n, traversedSoFar)
		if err != nil {
			return HexaryTrieNode{}, err
		}
		return t.traverseNode(resolved, traversedSoFar, remaining)

	case *leafNode:
		// remaining landing exactly on n.Key (not just a prefix of it)
		// is a full match through this leaf, not a partial one - a
		// Leaf has nothing beyond its own key, so that's the only way
		// to reach it with a nonzero remaining at all. Check the exact
		// match before the strict-prefix case, since n.Key trivially
		// has remaining as a (non-strict) prefix of itself too.
		switch {
		case remaining.Len() == 0, remaining.Equal(n.Key):
			return t.snapshotLeaf(n), nil
		case remaining.Len() < n.Key.Len() && n.Key.HasPrefix(remaining):
			return HexaryTrieNode{}, &TraversedPartialPath{
				Node:             t.snapshotLeaf(n),
				NibblesTraversed: remaining,
				Remaining:        n.Key.Slice(remaining.Len(), n.Key.Len()),
			}
		default:
			return snapshotBlank(), nil
		}

	case *extensionNode:
		switch {
		case remaining.Len() == 0:
			return t.snapshotExtension(n), nil
		case remaining.HasPrefix(n.Key):
			// remaining covers the whole extension key (possibly more):
			// a full match through this node, continue into the child.
			return t.traverseNode(n.Val, traversedSoFar.Concat(n.Key), remaining.Slice(n.Key.Len(), remaining.Len()))
		case n.Key.HasPrefix(remaining):
			// remaining runs out strictly inside the extension's own
			// key. A landed-on-exactly Extension reports
			// SubSegments=[n.Key] because a caller there still owes the
			// whole key to reach the child. Here requestedPath already
			// covers NibblesTraversed nibbles of that same key and
			// Remaining covers the rest, so the snapshot's own
			// SubSegments must shrink to a single empty segment -
			// otherwise the requestedPath ++ Remaining ++ s
			// continuation formula would re-add the matched prefix a
			// second time.
			partial := t.snapshotExtension(n)
			partial.SubSegments = []Path{EmptyPath()}
			return HexaryTrieNode{}, &TraversedPartialPath{
				Node:             partial,
				NibblesTraversed: remaining,
				Remaining:        n.Key.Slice(remaining.Len(), n.Key.Len()),
			}
		default:
			return snapshotBlank(), nil
		}

	case *branchNode:
		if remaining.Len() == 0 {
			return t.snapshotBranch(n), nil
		}
		idx := remaining.At(0)
		child := n.Children[idx]
		if child == nil {
			return snapshotBlank(), nil
		}
		return t.traverseNode(child, traversedSoFar.Append(idx), remaining.Slice(1, remaining.Len()))

	default:
		panic(fmt.Sprintf("trie: unknown node type %T", n))
	}
}

// insert returns the new subtree after setting key (relative to n's
// position) to value.
func (t *HexaryTrie) insert(n node, prefix, key Path, value []byte, fullKey []byte) (node, error) {
	switch n := n.(type) {
	case nil:
		return &leafNode{Key: key, Val: value}, nil

	case hashNode:
		resolved, err := t.resolveForMutation(n, prefix, fullKey)
		if err != nil {
			return nil, err
		}
		return t.insert(resolved, prefix, key, value, fullKey)

	case *leafNode:
		match := n.Key.CommonPrefixLen(key)
		if match == n.Key.Len() && match == key.Len() {
			return &leafNode{Key: n.Key, Val: value}, nil
		}
		branch := &branchNode{}
		if match == n.Key.Len() {
			branch.Value = n.Val
		} else {
			branch.Children[n.Key.At(match)] = &leafNode{Key: n.Key.Slice(match+1, n.Key.Len()), Val: n.Val}
		}
		if match == key.Len() {
			branch.Value = value
		} else {
			branch.Children[key.At(match)] = &leafNode{Key: key.Slice(match+1, key.Len()), Val: value}
		}
		if match == 0 {
			return branch, nil
		}
		return &extensionNode{Key: key.Slice(0, match), Val: branch}, nil

	case *extensionNode:
		match := n.Key.CommonPrefixLen(key)
		if match < n.Key.Len() {
			branch := &branchNode{}
			if n.Key.Len()-match == 1 {
				branch.Children[n.Key.At(match)] = n.Val
			} else {
				branch.Children[n.Key.At(match)] = &extensionNode{Key: n.Key.Slice(match+1, n.Key.Len()), Val: n.Val}
			}
			if match == key.Len() {
				branch.Value = value
			} else {
				branch.Children[key.At(match)] = &leafNode{Key: key.Slice(match+1, key.Len()), Val: value}
			}
			if match == 0 {
				return branch, nil
			}
			return &extensionNode{Key: key.Slice(0, match), Val: branch}, nil
		}
		child, err := t.insert(n.Val, prefix.Concat(n.Key), key.Slice(match, key.Len()), value, fullKey)
		if err != nil {
			return nil, err
		}
		return &extensionNode{Key: n.Key, Val: child}, nil

	case *branchNode:
		nc := n.copy()
		if key.Len() == 0 {
			nc.Value = value
			return nc, nil
		}
		idx := key.At(0)
		child, err := t.insert(n.Children[idx], prefix.Append(idx), key.Slice(1, key.Len()), value, fullKey)
		if err != nil {
			return nil, err
		}
		nc.Children[idx] = child
		return nc, nil

	default:
		panic(fmt.Sprintf("trie: unknown node type %T", n))
	}
}

// delete returns the new subtree after removing key (relative to n's
// position), or n unchanged if key isn't present below n.
func (t *HexaryTrie) delete(n node, prefix, key Path, fullKey []byte) (node, error) {
	switch n := n.(type) {
	case nil:
		return nil, nil

	case hashNode:
		resolved, err := t.resolveForMutation(n, prefix, fullKey)
		if err != nil {
			return nil, err
		}
		return t.delete(resolved, prefix, key, fullKey)

	case *leafNode:
		if n.Key.Equal(key) {
			return nil, nil
		}
		return n, nil

	case *extensionNode:
		match := n.Key.CommonPrefixLen(key)
		if match < n.Key.Len() {
			return n, nil
		}
		child, err := t.delete(n.Val, prefix.Concat(n.Key), key.Slice(match, key.Len()), fullKey)
		if err != nil {
			return nil, err
		}
		if sameNode(child, n.Val) {
			return n, nil
		}
		switch c := child.(type) {
		case nil:
			return nil, nil
		case *leafNode:
			return &leafNode{Key: n.Key.Concat(c.Key), Val: c.Val}, nil
		case *extensionNode:
			return &extensionNode{Key: n.Key.Concat(c.Key), Val: c.Val}, nil
		default:
			return &extensionNode{Key: n.Key, Val: child}, nil
		}

	case *branchNode:
		if key.Len() == 0 {
			if n.Value == nil {
				return n, nil
			}
			nc := n.copy()
			nc.Value = nil
			return t.reduceBranch(nc, prefix)
		}
		idx := key.At(0)
		child, err := t.delete(n.Children[idx], prefix.Append(idx), key.Slice(1, key.Len()), fullKey)
		if err != nil {
			return nil, err
		}
		if sameNode(child, n.Children[idx]) {
			return n, nil
		}
		nc := n.copy()
		nc.Children[idx] = child
		return t.reduceBranch(nc, prefix)

	default:
		panic(fmt.Sprintf("trie: unknown node type %T", n))
	}
}

// reduceBranch collapses n if deleting left it with fewer than two
// live exits (a populated child or a terminal value), per spec.md
// §3.3's "no Branch has fewer than two live exits" invariant.
func (t *HexaryTrie) reduceBranch(n *branchNode, prefix Path) (node, error) {
	live := 0
	lastIdx := -1
	for i, c := range n.Children {
		if c != nil {
			live++
			lastIdx = i
		}
	}
	if n.Value != nil {
		live++
	}
	if live >= 2 || live == 0 {
		return n, nil
	}
	if lastIdx == -1 {
		// Only the terminal value survives: collapse to a Leaf with an
		// empty remaining key.
		return &leafNode{Key: EmptyPath(), Val: n.Value}, nil
	}
	childPrefix := prefix.Append(Nibble(lastIdx))
	resolved, err := t.resolveForMutation(n.Children[lastIdx], childPrefix, nil)
	if err != nil {
		return nil, err
	}
	switch c := resolved.(type) {
	case *leafNode:
		return &leafNode{Key: NewPath(Nibble(lastIdx)).Concat(c.Key), Val: c.Val}, nil
	case *extensionNode:
		return &extensionNode{Key: NewPath(Nibble(lastIdx)).Concat(c.Key), Val: c.Val}, nil
	default:
		return &extensionNode{Key: NewPath(Nibble(lastIdx)), Val: n.Children[lastIdx]}, nil
	}
}

// sameNode is a cheap identity check used to short-circuit "nothing
// changed" along a delete path without relying on a dirty flag: a
// delete that found no matching key returns the same decoded node value
// it was given, not a structurally-equal copy. A hashNode argument is
// the exception: it comes back as its resolved node, so that case
// reports a change and the caller rebuilds an equivalent node.
func sameNode(a, b node) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case *leafNode:
		bv, ok := b.(*leafNode)
		return ok && av == bv
	case *extensionNode:
		bv, ok := b.(*extensionNode)
		return ok && av == bv
	case *branchNode:
		bv, ok := b.(*branchNode)
		return ok && av == bv
	case hashNode:
		bv, ok := b.(hashNode)
		return ok && string(av) == string(bv)
	default:
		return false
	}
}
