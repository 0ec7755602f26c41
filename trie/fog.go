package trie

import "sort"

// HexaryTrieFog tracks which prefixes of a trie are still unknown to
// a partial-visibility caller. It is immutable: every operation
// returns a new fog rather than mutating the receiver, and the set it
// carries is minimal - no stored prefix is a strict prefix of another
// - and kept in lexicographic order throughout.
//
// Grounded structurally on the request bookkeeping in go-ethereum's
// classic trie/sync.go TrieSync scheduler and on eth2030/eth2030's
// pkg/sync/beam.go driver shape, but reworked from a hash-keyed request
// queue into a flat sorted vector of Paths, matching spec.md's stated
// preference for the simpler representation.
type HexaryTrieFog struct {
	unknown []Path
}

// NewHexaryTrieFog returns a fog whose only unknown prefix is the
// empty path - nothing about the trie has been explored yet.
func NewHexaryTrieFog() HexaryTrieFog {
	return HexaryTrieFog{unknown: []Path{EmptyPath()}}
}

// IsComplete reports whether the fog's unknown set is empty.
func (f HexaryTrieFog) IsComplete() bool {
	return len(f.unknown) == 0
}

// NearestUnknown returns the unknown prefix closest to index: the one
// sharing the longest common prefix with it, ties broken toward the
// lexicographically smaller candidate. It returns PerfectVisibility
// once the fog has nothing left unknown.
func (f HexaryTrieFog) NearestUnknown(index Path) (Path, error) {
	if len(f.unknown) == 0 {
		return Path{}, &PerfectVisibility{}
	}
	i := sort.Search(len(f.unknown), func(i int) bool {
		return f.unknown[i].Compare(index) >= 0
	})

	var before, after *Path
	if i > 0 {
		before = &f.unknown[i-1]
	}
	if i < len(f.unknown) {
		if f.unknown[i].Equal(index) {
			return f.unknown[i], nil
		}
		after = &f.unknown[i]
	}
	switch {
	case before == nil:
		return *after, nil
	case after == nil:
		return *before, nil
	default:
		bLen := before.CommonPrefixLen(index)
		aLen := after.CommonPrefixLen(index)
		if bLen >= aLen {
			return *before, nil
		}
		return *after, nil
	}
}

// Explore replaces oldPrefix in the unknown set with oldPrefix++s for
// each s in subSegments. oldPrefix must currently be in the unknown
// set. An empty subSegments list simply removes oldPrefix, marking
// that whole subtree as fully known.
func (f HexaryTrieFog) Explore(oldPrefix Path, subSegments []Path) (HexaryTrieFog, error) {
	idx, found := f.indexOf(oldPrefix)
	if !found {
		return f, &fogPrefixNotTracked{Prefix: oldPrefix}
	}
	next := make([]Path, 0, len(f.unknown)-1+len(subSegments))
	next = append(next, f.unknown[:idx]...)
	next = append(next, f.unknown[idx+1:]...)
	for _, s := range subSegments {
		next = append(next, oldPrefix.Concat(s))
	}
	sort.Slice(next, func(i, j int) bool { return next[i].Compare(next[j]) < 0 })
	return HexaryTrieFog{unknown: next}, nil
}

// MarkAllComplete removes each listed prefix from the unknown set
// unconditionally; prefixes not present are silently ignored.
func (f HexaryTrieFog) MarkAllComplete(prefixes []Path) HexaryTrieFog {
	remove := make(map[string]struct{}, len(prefixes))
	for _, p := range prefixes {
		remove[p.String()] = struct{}{}
	}
	next := make([]Path, 0, len(f.unknown))
	for _, u := range f.unknown {
		if _, drop := remove[u.String()]; !drop {
			next = append(next, u)
		}
	}
	return HexaryTrieFog{unknown: next}
}

// Unknown returns a copy of the fog's current unknown prefixes, in
// lexicographic order.
func (f HexaryTrieFog) Unknown() []Path {
	out := make([]Path, len(f.unknown))
	copy(out, f.unknown)
	return out
}

func (f HexaryTrieFog) indexOf(p Path) (int, bool) {
	i := sort.Search(len(f.unknown), func(i int) bool {
		return f.unknown[i].Compare(p) >= 0
	})
	if i < len(f.unknown) && f.unknown[i].Equal(p) {
		return i, true
	}
	return 0, false
}

// fogPrefixNotTracked is returned by Explore when asked to explore a
// prefix the fog doesn't currently list as unknown - a programmer
// error in the caller's walk loop, not a partial-visibility fault.
type fogPrefixNotTracked struct {
	Prefix Path
}

func (e *fogPrefixNotTracked) Error() string {
	return "fog: prefix " + e.Prefix.String() + " is not in the unknown set"
}
