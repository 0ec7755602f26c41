package trie

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ErrEmptyValue is returned by Set when asked to store an empty-bytes
// value: an empty value would be indistinguishable from an absent key
// once read back through Get, which returns nil for both.
var ErrEmptyValue = errors.New("trie: value must not be empty")

// MissingTrieNode is raised by Get and the batch Set/Delete path
// whenever resolving a child hash against the NodeStore comes back
// empty. Key and PrefixTraversed let a caller that is driving a
// partial-visibility walk figure out exactly what to backfill and
// where it sits relative to the key it was originally chasing.
type MissingTrieNode struct {
	MissingNodeHash common.Hash
	Key             []byte
	PrefixTraversed Path
}

func (e *MissingTrieNode) Error() string {
	return fmt.Sprintf("missing trie node %x (prefix %s) needed to resolve key %x", e.MissingNodeHash, e.PrefixTraversed, e.Key)
}

// MissingTraversalNode is the Traverse/TraverseFrom/RootNode analogue of
// MissingTrieNode: it carries a path, not a caller-supplied key, since
// a walker doing partial-visibility traversal rarely has a full key on
// hand yet.
type MissingTraversalNode struct {
	MissingNodeHash common.Hash
	PathTraversed   Path
}

func (e *MissingTraversalNode) Error() string {
	return fmt.Sprintf("missing trie node %x at path %s", e.MissingNodeHash, e.PathTraversed)
}

// TraversedPartialPath is raised when a traversal's requested path runs
// out in the middle of a Leaf or Extension's own key rather than at a
// node boundary. NibblesTraversed is the portion of the node's own key
// that was matched before the request was exhausted; Remaining is the
// unconsumed tail of that same key. A caller continuing a walk computes
// the absolute prefixes worth exploring as
// requestedPath ++ Remaining ++ s, for each s in Node.SubSegments.
type TraversedPartialPath struct {
	Node             HexaryTrieNode
	NibblesTraversed Path
	Remaining        Path
}

func (e *TraversedPartialPath) Error() string {
	return fmt.Sprintf("traversal exhausted requested path %d nibbles into a %s node's own path (%d nibbles remaining)",
		e.NibblesTraversed.Len(), e.Node.Kind, e.Remaining.Len())
}

// PerfectVisibility is returned by HexaryTrieFog.NearestUnknown once
// the fog's unknown set is empty: every reachable key is now known to
// the caller, and the walk driving the fog can stop.
type PerfectVisibility struct{}

func (e *PerfectVisibility) Error() string {
	return "fog has perfect visibility: no unknown prefixes remain"
}

// NotCached is returned by TrieFrontierCache.Get when no stored prefix
// is an ancestor of (or equal to) the requested path.
type NotCached struct {
	Requested Path
}

func (e *NotCached) Error() string {
	return fmt.Sprintf("no cached ancestor for path %s", e.Requested)
}
