package trie

import (
	"sort"

	lru "github.com/hashicorp/golang-lru"
)

// FrontierCache is the interface a HexaryTrieFog-driven walker uses to
// remember decoded nodes across calls to TraverseFrom, so repeated
// walks don't re-resolve the same ancestor nodes from the NodeStore.
// Entries may be evicted at any time without affecting correctness -
// a cache miss degrades to a slower Traverse from the root, never to
// an incorrect answer - which is exactly the contract
// github.com/hashicorp/golang-lru gives an evicting cache.
type FrontierCache interface {
	Add(prefix Path, raw []byte, subSegments []Path)
	Get(path Path) (anchor HexaryTrieNode, uncachedSuffix Path, err error)
	Delete(prefix Path)
}

type cacheEntry struct {
	raw         []byte
	subSegments []Path
}

func entryToNode(e cacheEntry) HexaryTrieNode {
	n, err := decodeNode(e.raw)
	if err != nil {
		panic(err)
	}
	switch nn := n.(type) {
	case nil:
		return snapshotBlank()
	case *leafNode:
		return HexaryTrieNode{Kind: KindLeaf, Value: nn.Val, Raw: e.raw}
	case *extensionNode:
		return HexaryTrieNode{Kind: KindExtension, SubSegments: e.subSegments, Raw: e.raw}
	case *branchNode:
		return HexaryTrieNode{Kind: KindBranch, Value: nn.Value, SubSegments: e.subSegments, Raw: e.raw}
	default:
		panic("trie: cache holds an undecodable node")
	}
}

// TrieFrontierCache is the default, unbounded FrontierCache: a plain
// map keeping every entry a caller has Add-ed until it's explicitly
// Deleted. It is the right default whenever a walk's working set is
// small enough that eviction isn't a concern - spec.md's own
// preference for strict correctness-under-eviction over any specific
// policy.
type TrieFrontierCache struct {
	entries map[string]cacheEntry
	sorted  []Path
}

// NewTrieFrontierCache returns an empty, unbounded frontier cache.
func NewTrieFrontierCache() *TrieFrontierCache {
	return &TrieFrontierCache{entries: make(map[string]cacheEntry)}
}

// Add records the node found at prefix (its encoded body and the
// sub-segments reachable below it) so a later Get can return it
// without re-traversing from the root.
func (c *TrieFrontierCache) Add(prefix Path, raw []byte, subSegments []Path) {
	key := prefix.String()
	if _, exists := c.entries[key]; !exists {
		c.insertSorted(prefix)
	}
	c.entries[key] = cacheEntry{raw: raw, subSegments: subSegments}
}

// Get returns the cached node whose prefix is the longest stored
// ancestor of (or equal to) path, along with the suffix still to
// traverse below it. It returns NotCached if no ancestor is stored -
// in particular, always for path == ε on a cold cache.
func (c *TrieFrontierCache) Get(path Path) (HexaryTrieNode, Path, error) {
	i := sort.Search(len(c.sorted), func(i int) bool {
		return c.sorted[i].Compare(path) > 0
	})
	for j := i - 1; j >= 0; j-- {
		if path.HasPrefix(c.sorted[j]) {
			entry := c.entries[c.sorted[j].String()]
			return entryToNode(entry), path.Slice(c.sorted[j].Len(), path.Len()), nil
		}
	}
	return HexaryTrieNode{}, Path{}, &NotCached{Requested: path}
}

// Delete removes prefix from the cache, if present.
func (c *TrieFrontierCache) Delete(prefix Path) {
	key := prefix.String()
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	for i, p := range c.sorted {
		if p.Equal(prefix) {
			c.sorted = append(c.sorted[:i], c.sorted[i+1:]...)
			break
		}
	}
}

func (c *TrieFrontierCache) insertSorted(p Path) {
	i := sort.Search(len(c.sorted), func(i int) bool { return c.sorted[i].Compare(p) >= 0 })
	c.sorted = append(c.sorted, Path{})
	copy(c.sorted[i+1:], c.sorted[i:])
	c.sorted[i] = p
}

// BoundedFrontierCache is a FrontierCache backed by
// github.com/hashicorp/golang-lru: a fixed capacity, least-recently-
// used eviction policy, for walkers over large tries where caching
// every ancestor visited would grow unbounded. Because FrontierCache
// entries are allowed to disappear at any time, swapping this in for
// TrieFrontierCache never changes a walk's correctness, only its
// re-traversal rate.
type BoundedFrontierCache struct {
	entries *lru.Cache
	sorted  []Path
}

// NewBoundedFrontierCache returns a FrontierCache capped at size
// entries.
func NewBoundedFrontierCache(size int) (*BoundedFrontierCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &BoundedFrontierCache{entries: c}, nil
}

func (c *BoundedFrontierCache) Add(prefix Path, raw []byte, subSegments []Path) {
	key := prefix.String()
	if !c.entries.Contains(key) {
		c.insertSorted(prefix)
	}
	evictedKey, evicted := c.addAndMaybeEvict(key, cacheEntry{raw: raw, subSegments: subSegments})
	if evicted {
		c.removeSorted(evictedKey)
	}
}

func (c *BoundedFrontierCache) addAndMaybeEvict(key string, e cacheEntry) (string, bool) {
	evicted := c.entries.Add(key, e)
	if !evicted {
		return "", false
	}
	// golang-lru doesn't report which key it evicted; reconcile sorted
	// against whatever keys remain.
	live := make(map[string]struct{}, c.entries.Len())
	for _, k := range c.entries.Keys() {
		live[k.(string)] = struct{}{}
	}
	var stale string
	kept := c.sorted[:0:0]
	for _, p := range c.sorted {
		if _, ok := live[p.String()]; ok {
			kept = append(kept, p)
		} else {
			stale = p.String()
		}
	}
	c.sorted = kept
	return stale, true
}

func (c *BoundedFrontierCache) Get(path Path) (HexaryTrieNode, Path, error) {
	i := sort.Search(len(c.sorted), func(i int) bool {
		return c.sorted[i].Compare(path) > 0
	})
	for j := i - 1; j >= 0; j-- {
		if !path.HasPrefix(c.sorted[j]) {
			continue
		}
		v, ok := c.entries.Get(c.sorted[j].String())
		if !ok {
			continue
		}
		entry := v.(cacheEntry)
		return entryToNode(entry), path.Slice(c.sorted[j].Len(), path.Len()), nil
	}
	return HexaryTrieNode{}, Path{}, &NotCached{Requested: path}
}

func (c *BoundedFrontierCache) Delete(prefix Path) {
	c.entries.Remove(prefix.String())
	c.removeSorted(prefix.String())
}

func (c *BoundedFrontierCache) insertSorted(p Path) {
	i := sort.Search(len(c.sorted), func(i int) bool { return c.sorted[i].Compare(p) >= 0 })
	c.sorted = append(c.sorted, Path{})
	copy(c.sorted[i+1:], c.sorted[i:])
	c.sorted[i] = p
}

func (c *BoundedFrontierCache) removeSorted(key string) {
	for i, p := range c.sorted {
		if p.String() == key {
			c.sorted = append(c.sorted[:i], c.sorted[i+1:]...)
			return
		}
	}
}
