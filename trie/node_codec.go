package trie

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// hashLen is the byte length of a Keccak-256 hash, and the inlining
// threshold from spec.md §3.2: a node whose encoded body is shorter
// than this many bytes is embedded directly in its parent instead of
// being referenced by hash.
const hashLen = 32

// hexPrefixEncode applies the compact hex-prefix scheme to a path,
// folding a leaf/extension flag and an odd-length flag into the first
// nibble so the decoder can recover both the path and which kind of
// node it terminates: 0x00 extension-even, 0x1X extension-odd,
// 0x20 leaf-even, 0x3X leaf-odd.
func hexPrefixEncode(p Path, leaf bool) []byte {
	odd := p.Len()%2 == 1
	flag := byte(0)
	if leaf {
		flag |= 2
	}
	if odd {
		flag |= 1
	}

	out := make([]byte, p.Len()/2+1)
	n := 0
	if odd {
		out[0] = flag<<4 | byte(p.At(0))
		n = 1
	} else {
		out[0] = flag << 4
	}
	i := 1
	for ; n < p.Len(); n += 2 {
		out[i] = byte(p.At(n))<<4 | byte(p.At(n+1))
		i++
	}
	return out
}

// hexPrefixDecode reverses hexPrefixEncode.
func hexPrefixDecode(buf []byte) (p Path, leaf bool, err error) {
	if len(buf) == 0 {
		return Path{}, false, fmt.Errorf("trie: empty hex-prefix buffer")
	}
	flag := buf[0] >> 4
	leaf = flag&2 != 0
	odd := flag&1 != 0

	nibbles := make([]Nibble, 0, 2*len(buf))
	if odd {
		nibbles = append(nibbles, Nibble(buf[0]&0x0f))
	}
	for _, b := range buf[1:] {
		nibbles = append(nibbles, Nibble(b>>4), Nibble(b&0x0f))
	}
	return Path{nibbles: nibbles}, leaf, nil
}

// encodeNode produces the canonical RLP body for a node. RLP is the
// out-of-scope "recursive binary encoding" spec.md §6 names as an
// external collaborator; the hex-prefix nibble scheme and the
// inline-vs-hash child resolution around it are in-scope codec logic.
func encodeNode(n node) []byte {
	switch n := n.(type) {
	case nil:
		enc, _ := rlp.EncodeToBytes([]byte{})
		return enc
	case hashNode:
		panic("trie: cannot encode an unresolved hashNode")
	case *leafNode:
		enc, _ := rlp.EncodeToBytes([]interface{}{
			hexPrefixEncode(n.Key, true),
			n.Val,
		})
		return enc
	case *extensionNode:
		enc, _ := rlp.EncodeToBytes([]interface{}{
			hexPrefixEncode(n.Key, false),
			encodeRef(n.Val),
		})
		return enc
	case *branchNode:
		var items [17]interface{}
		for i := 0; i < 16; i++ {
			items[i] = encodeRef(n.Children[i])
		}
		if n.Value != nil {
			items[16] = n.Value
		} else {
			items[16] = []byte{}
		}
		enc, _ := rlp.EncodeToBytes(items[:])
		return enc
	default:
		panic(fmt.Sprintf("trie: unknown node type %T", n))
	}
}

// encodeRef produces the RLP item used to reference a child from its
// parent: a bare hash for an already-hashed child, a raw embedded list
// for an inline one, or the empty string for an absent child.
func encodeRef(n node) interface{} {
	switch n := n.(type) {
	case nil:
		return []byte{}
	case hashNode:
		return []byte(n)
	default:
		enc := encodeNode(n)
		if len(enc) >= hashLen {
			panic("trie: child large enough to be hashed was not collapsed before encoding")
		}
		return rlp.RawValue(enc)
	}
}

// decodeNode parses a node's RLP-encoded body back into its structural
// form. Embedded (inline) child references are decoded eagerly, so
// traversal never issues a store lookup to resolve one; only genuine
// 32-byte hash references are left as hashNode for on-demand
// resolution.
func decodeNode(buf []byte) (node, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("trie: decodeNode called with empty buffer")
	}
	kind, _, _, err := rlp.Split(buf)
	if err != nil {
		return nil, err
	}
	if kind != rlp.List {
		// A bare RLP string; only the empty-trie encoding takes this
		// shape, and it decodes to Blank.
		return nil, nil
	}
	count, err := rlp.CountValues(mustListContent(buf))
	if err != nil {
		return nil, err
	}
	switch count {
	case 2:
		return decodeShort(mustListContent(buf))
	case 17:
		return decodeFull(mustListContent(buf))
	default:
		return nil, fmt.Errorf("trie: invalid node: %d list elements", count)
	}
}

func mustListContent(buf []byte) []byte {
	content, _, err := rlp.SplitList(buf)
	if err != nil {
		panic(err)
	}
	return content
}

func decodeShort(content []byte) (node, error) {
	kbuf, rest, err := rlp.SplitString(content)
	if err != nil {
		return nil, err
	}
	key, isLeaf, err := hexPrefixDecode(kbuf)
	if err != nil {
		return nil, err
	}
	if isLeaf {
		val, _, err := rlp.SplitString(rest)
		if err != nil {
			return nil, err
		}
		return &leafNode{Key: key, Val: append([]byte(nil), val...)}, nil
	}
	child, err := decodeRefItem(rest)
	if err != nil {
		return nil, err
	}
	return &extensionNode{Key: key, Val: child}, nil
}

func decodeFull(content []byte) (node, error) {
	n := &branchNode{}
	rest := content
	for i := 0; i < 16; i++ {
		var item []byte
		var err error
		item, rest, err = splitRawItem(rest)
		if err != nil {
			return nil, err
		}
		child, err := decodeRefRaw(item)
		if err != nil {
			return nil, err
		}
		n.Children[i] = child
	}
	val, _, err := rlp.SplitString(rest)
	if err != nil {
		return nil, err
	}
	if len(val) > 0 {
		n.Value = append([]byte(nil), val...)
	}
	return n, nil
}

// splitRawItem splits a single RLP item (string or list) off buf,
// returning its full raw encoding (including header) and the
// remainder.
func splitRawItem(buf []byte) (item, rest []byte, err error) {
	if len(buf) == 0 {
		return nil, nil, fmt.Errorf("trie: unexpected end of branch node")
	}
	kind, _, tail, err := rlp.Split(buf)
	if err != nil {
		return nil, nil, err
	}
	itemLen := len(buf) - len(tail)
	_ = kind
	return buf[:itemLen], tail, nil
}

// decodeRefItem decodes the child reference in an Extension's second
// slot. encodeRef writes it exactly like a branch slot - a 32-byte hash
// string, or an inline child embedded as a raw RLP list - so it
// delegates to the same raw-item decoder.
func decodeRefItem(buf []byte) (node, error) {
	item, _, err := splitRawItem(buf)
	if err != nil {
		return nil, err
	}
	return decodeRefRaw(item)
}

// decodeRefRaw decodes a single already-isolated RLP item representing
// a child reference: empty (absent), a 32-byte hash string, or an
// embedded encoded node (an RLP list). Any other string length is an
// error.
func decodeRefRaw(item []byte) (node, error) {
	if len(item) == 0 {
		return nil, nil
	}
	kind, content, _, err := rlp.Split(item)
	if err != nil {
		return nil, err
	}
	if kind == rlp.List {
		return decodeNode(item)
	}
	if len(content) == 0 {
		return nil, nil
	}
	if len(content) == hashLen {
		return hashNode(append([]byte(nil), content...)), nil
	}
	return nil, fmt.Errorf("trie: invalid reference string length %d", len(content))
}
