package trie

// iterFrame is one level of a NodeIterator's explicit walk stack: the
// node at this position, the absolute path leading to it, and how far
// through its children/value the iterator has already advanced.
type iterFrame struct {
	path         Path
	node         node
	childIdx     int // branchNode: next child index to try, 0-16. extensionNode: 0 (not descended) or 1 (done). leafNode: unused; see valueEmitted.
	valueEmitted bool
}

// NodeIterator enumerates a trie's (key, value) pairs in lexicographic
// key order. Unlike the Python original's next(prev) - which
// recomputes a full descent from the root on every call - a
// NodeIterator keeps an explicit stack of frames and advances it in
// place, per spec.md Design Notes' preference for a restartable,
// stateful walker; HexaryTrie.Next offers next(prev) back as a thin
// wrapper for callers that only want one key at a time.
type NodeIterator struct {
	trie  *HexaryTrie
	stack []iterFrame
}

// NewNodeIterator returns an iterator positioned just before the first
// key strictly greater than after. Pass EmptyPath() to start from the
// very first key in the trie.
func (t *HexaryTrie) NewNodeIterator(after Path) (*NodeIterator, error) {
	it := &NodeIterator{trie: t}
	if err := it.seek(after); err != nil {
		return nil, err
	}
	return it, nil
}

// Next advances the iterator and returns the next key/value pair. ok
// is false once the trie is exhausted.
func (it *NodeIterator) Next() (key Path, value []byte, ok bool, err error) {
	for len(it.stack) > 0 {
		top := &it.stack[len(it.stack)-1]
		switch n := top.node.(type) {
		case *leafNode:
			if !top.valueEmitted {
				top.valueEmitted = true
				return top.path.Concat(n.Key), n.Val, true, nil
			}
			it.stack = it.stack[:len(it.stack)-1]

		case *extensionNode:
			if top.childIdx == 0 {
				top.childIdx = 1
				child, rerr := it.trie.resolveForTraversal(n.Val, top.path.Concat(n.Key))
				if rerr != nil {
					return Path{}, nil, false, rerr
				}
				it.stack = append(it.stack, iterFrame{path: top.path.Concat(n.Key), node: child})
				continue
			}
			it.stack = it.stack[:len(it.stack)-1]

		case *branchNode:
			if !top.valueEmitted {
				top.valueEmitted = true
				if n.Value != nil {
					return top.path, n.Value, true, nil
				}
			}
			advanced := false
			for top.childIdx < 16 {
				idx := top.childIdx
				top.childIdx++
				if n.Children[idx] == nil {
					continue
				}
				child, rerr := it.trie.resolveForTraversal(n.Children[idx], top.path.Append(Nibble(idx)))
				if rerr != nil {
					return Path{}, nil, false, rerr
				}
				it.stack = append(it.stack, iterFrame{path: top.path.Append(Nibble(idx)), node: child})
				advanced = true
				break
			}
			if !advanced {
				it.stack = it.stack[:len(it.stack)-1]
			}

		case nil:
			it.stack = it.stack[:len(it.stack)-1]

		default:
			it.stack = it.stack[:len(it.stack)-1]
		}
	}
	return Path{}, nil, false, nil
}

// seek builds the initial stack so that repeated Next calls yield
// exactly the keys strictly greater than after, in order.
func (it *NodeIterator) seek(after Path) error {
	cur, err := it.trie.resolveForTraversal(it.trie.root, EmptyPath())
	if err != nil {
		return err
	}
	path := EmptyPath()
	remaining := after

	for {
		switch n := cur.(type) {
		case nil:
			return nil

		case *leafNode:
			if n.Key.Compare(remaining) > 0 {
				it.stack = append(it.stack, iterFrame{path: path, node: n})
			}
			return nil

		case *extensionNode:
			c := n.Key.CommonPrefixLen(remaining)
			if c == n.Key.Len() {
				it.stack = append(it.stack, iterFrame{path: path, node: n, childIdx: 1})
				child, err := it.trie.resolveForTraversal(n.Val, path.Concat(n.Key))
				if err != nil {
					return err
				}
				cur = child
				path = path.Concat(n.Key)
				remaining = remaining.Slice(n.Key.Len(), remaining.Len())
				continue
			}
			if n.Key.Compare(remaining) > 0 {
				it.stack = append(it.stack, iterFrame{path: path, node: n, childIdx: 0})
			}
			return nil

		case *branchNode:
			if remaining.Len() == 0 {
				it.stack = append(it.stack, iterFrame{path: path, node: n, childIdx: 0, valueEmitted: true})
				return nil
			}
			idx := remaining.At(0)
			it.stack = append(it.stack, iterFrame{path: path, node: n, childIdx: int(idx) + 1, valueEmitted: true})
			child := n.Children[idx]
			if child == nil {
				return nil
			}
			resolved, err := it.trie.resolveForTraversal(child, path.Append(idx))
			if err != nil {
				return err
			}
			cur = resolved
			path = path.Append(idx)
			remaining = remaining.Slice(1, remaining.Len())
			continue

		default:
			return nil
		}
	}
}

// Next is the stateless next(prev) wrapper from spec.md Design Notes:
// it builds a fresh iterator seeked just past prev and returns its
// first result. Callers doing a long walk should prefer NewNodeIterator
// plus repeated NodeIterator.Next, which doesn't re-descend from the
// root on every key.
func (t *HexaryTrie) Next(prev Path) (key Path, value []byte, ok bool, err error) {
	it, err := t.NewNodeIterator(prev)
	if err != nil {
		return Path{}, nil, false, err
	}
	return it.Next()
}
