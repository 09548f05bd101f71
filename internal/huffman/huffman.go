// Package huffman implements the canonical Huffman tables CRN uses for its
// entropy-coded sub-streams: table construction from per-symbol code
// lengths, flattened-table decode, and the run-length meta-code used to
// transmit a table's code lengths compactly (crnlib calls this the "key"
// Huffman over a 21-symbol shuffled alphabet).
//
// The construction and lookup algorithm mirrors the canonical-code
// approach used by CHD's Huffman decoder (depth histogram → starting
// code per depth → flattened prefix table), adapted to the MSB-first,
// fixed-alphabet-shuffle, run-length-coded variant this format uses.
package huffman

import (
	"github.com/deepteams/crnlib/internal/bitio"
	"github.com/deepteams/crnlib/internal/crnerr"
)

// MaxDepth is the longest canonical code length this format allows.
const MaxDepth = 16

// entry is one slot of the flattened reverse-lookup table.
type entry struct {
	symbol uint32
	depth  uint8
	valid  bool
}

// Table is a canonical Huffman code table built from per-symbol code
// lengths. The zero value decodes nothing (an empty alphabet).
type Table struct {
	maxDepth int
	lookup   []entry // size 1<<maxDepth, or nil when empty
}

// Empty returns a Table over the empty alphabet: Next always fails on it.
func Empty() *Table { return &Table{} }

// IsEmpty reports whether the table has no coded symbols.
func (t *Table) IsEmpty() bool { return len(t.lookup) == 0 }

// Build constructs a canonical Huffman table from symbolDepth, a map from
// symbol to code length in [1,MaxDepth]. Symbols absent from the map are
// not coded. Degenerate alphabets (zero or one symbol) bypass the Kraft
// completeness check per spec: a one-symbol table always decodes that
// symbol after consuming exactly one bit, regardless of the bit's value.
func Build(symbolDepth map[uint32]int) (*Table, error) {
	if len(symbolDepth) == 0 {
		return Empty(), nil
	}
	if len(symbolDepth) == 1 {
		var sym uint32
		for s := range symbolDepth {
			sym = s
		}
		lookup := make([]entry, 2)
		lookup[0] = entry{symbol: sym, depth: 1, valid: true}
		lookup[1] = entry{symbol: sym, depth: 1, valid: true}
		return &Table{maxDepth: 1, lookup: lookup}, nil
	}

	var depthCount [MaxDepth + 1]int
	for _, d := range symbolDepth {
		if d < 1 || d > MaxDepth {
			return nil, crnerr.Newf(crnerr.IncompleteHuffmanTree, "code length %d out of range [1,%d]", d, MaxDepth)
		}
		depthCount[d]++
	}

	var depthBound [MaxDepth + 1]uint32
	maxDepth := 0
	var available uint32
	for d := 0; d <= MaxDepth; d++ {
		available <<= 1
		if d != 0 {
			available += uint32(depthCount[d])
			if depthCount[d] > 0 {
				maxDepth = d
			}
		}
		depthBound[d] = available
	}
	if depthBound[maxDepth] != uint32(1)<<uint(maxDepth) {
		return nil, crnerr.Newf(crnerr.IncompleteHuffmanTree, "incomplete huffman tree: depth_bound[%d]=%d, want %d", maxDepth, depthBound[maxDepth], uint32(1)<<uint(maxDepth))
	}

	// Canonical code assignment: within each depth, codes are consecutive
	// integers starting at 2*depth_bound[d-1], assigned in ascending
	// symbol order.
	var depthCurrent [MaxDepth + 1]uint32
	for d := 1; d <= MaxDepth; d++ {
		depthCurrent[d] = depthBound[d-1] * 2
	}

	symbols := sortedKeys(symbolDepth)
	type code struct {
		depth uint8
		code  uint32
	}
	codes := make(map[uint32]code, len(symbols))
	for _, sym := range symbols {
		d := symbolDepth[sym]
		codes[sym] = code{depth: uint8(d), code: depthCurrent[d]}
		depthCurrent[d]++
	}

	size := 1 << uint(maxDepth)
	lookup := make([]entry, size)
	for sym, c := range codes {
		depth := int(c.depth)
		shift := uint(maxDepth - depth)
		start := c.code << shift
		end := (c.code + 1) << shift
		for idx := start; idx < end; idx++ {
			lookup[idx] = entry{symbol: sym, depth: c.depth, valid: true}
		}
	}

	return &Table{maxDepth: maxDepth, lookup: lookup}, nil
}

// sortedKeys returns m's keys in ascending order (canonical code
// assignment is defined in terms of ascending symbol order).
func sortedKeys(m map[uint32]int) []uint32 {
	keys := make([]uint32, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// Next decodes one symbol from r using t. It peeks t.maxDepth bits (via
// r.Look, which is zero-padded near end of stream) and consumes exactly
// as many bits as the matched code's depth.
func (t *Table) Next(r *bitio.Reader) (uint32, error) {
	if len(t.lookup) == 0 {
		return 0, crnerr.New(crnerr.HuffmanNoMatch, "huffman decode: empty table")
	}
	k := t.lookup[r.Look(t.maxDepth)]
	if !k.valid {
		return 0, crnerr.New(crnerr.HuffmanNoMatch, "huffman decode: no matching code")
	}
	r.Skip(int(k.depth))
	return k.symbol, nil
}

// Meta symbols for the 21-entry "key" alphabet used to transmit a target
// table's code lengths. Depth(d) is represented directly by the value d
// (0..16); the four run-length control codes use sentinel values outside
// that range.
const (
	metaShortZero uint32 = MaxDepth + 1 + iota
	metaLongZero
	metaShortRepeat
	metaLongRepeat
)

// shuffle fixes which alphabet index (the position read from the
// bitstream) corresponds to which meta-symbol, per the format's SHUFFLE
// table.
var shuffle = [21]uint32{
	metaShortZero, metaLongZero, metaShortRepeat, metaLongRepeat,
	0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15, 16,
}

// DecodeTable reads one canonical Huffman table from r: a 14-bit symbol
// count, a key table over the 21-symbol shuffle alphabet (a 5-bit entry
// count followed by one 3-bit code length per entry), then symbolCount
// code lengths decoded through that key table, with its run-length
// symbols expanding into runs. context names the sub-stream, used to annotate any failure.
func DecodeTable(r *bitio.Reader, context string) (*Table, error) {
	symbolCount, err := r.Read(14)
	if err != nil {
		return nil, crnerr.Wrapf(err, "%s: symbol count", context)
	}
	if symbolCount == 0 {
		return Empty(), nil
	}

	tmpCount, err := r.Read(5)
	if err != nil {
		return nil, crnerr.Wrapf(err, "%s: tmp symbol count", context)
	}
	if tmpCount >= uint64(len(shuffle)) {
		return nil, crnerr.Newf(crnerr.MetaCountExceedsShuffle, "%s: tmp symbol count %d exceeds shuffle length %d", context, tmpCount, len(shuffle))
	}

	tmpSymbolDepth := make(map[uint32]int, tmpCount)
	for i := uint64(0); i < tmpCount; i++ {
		d, err := r.Read(3)
		if err != nil {
			return nil, crnerr.Wrapf(err, "%s: key depth %d", context, i)
		}
		if d != 0 {
			tmpSymbolDepth[shuffle[i]] = int(d)
		}
	}

	key, err := Build(tmpSymbolDepth)
	if err != nil {
		return nil, crnerr.Wrapf(err, "%s: key huffman", context)
	}

	symbolDepth := make(map[uint32]int, symbolCount)
	var i uint64
	haveLast := false
	last := 0
	for i < symbolCount {
		sym, err := key.Next(r)
		if err != nil {
			return nil, crnerr.Wrapf(err, "%s: key symbol at position %d", context, i)
		}

		var length uint64
		var d int
		switch {
		case sym <= MaxDepth:
			length, d = 1, int(sym)
		case sym == metaShortZero:
			n, err := r.Read(3)
			if err != nil {
				return nil, crnerr.Wrapf(err, "%s: short zero run length", context)
			}
			length, d = n+3, 0
		case sym == metaLongZero:
			n, err := r.Read(7)
			if err != nil {
				return nil, crnerr.Wrapf(err, "%s: long zero run length", context)
			}
			length, d = n+11, 0
		case sym == metaShortRepeat:
			n, err := r.Read(2)
			if err != nil {
				return nil, crnerr.Wrapf(err, "%s: short repeat run length", context)
			}
			if !haveLast {
				return nil, crnerr.Newf(crnerr.RunLengthBeforeAnyDepth, "%s: short repeat before any depth emitted", context)
			}
			length, d = n+3, last
		case sym == metaLongRepeat:
			n, err := r.Read(6)
			if err != nil {
				return nil, crnerr.Wrapf(err, "%s: long repeat run length", context)
			}
			if !haveLast {
				return nil, crnerr.Newf(crnerr.RunLengthBeforeAnyDepth, "%s: long repeat before any depth emitted", context)
			}
			length, d = n+7, last
		default:
			return nil, crnerr.Newf(crnerr.IncompleteHuffmanTree, "%s: impossible key symbol %d", context, sym)
		}

		last, haveLast = d, true
		if i+length > symbolCount {
			return nil, crnerr.Newf(crnerr.IncompleteHuffmanTree, "%s: run of length %d at position %d exceeds symbol count %d", context, length, i, symbolCount)
		}
		if d != 0 {
			for j := uint64(0); j < length; j++ {
				symbolDepth[uint32(i+j)] = d
			}
		}
		i += length
	}

	table, err := Build(symbolDepth)
	if err != nil {
		return nil, crnerr.Wrapf(err, "%s: target huffman", context)
	}
	return table, nil
}
