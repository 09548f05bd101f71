// Package bitio provides the MSB-first bit cursor the CRN codec reads every
// sub-stream through: table data, palette deltas, and per-level chunk
// encoding all sit on top of a single Reader.
package bitio

import "github.com/deepteams/crnlib/internal/crnerr"

// Reader is an MSB-first bit cursor over a byte slice. Bit 0 of byte 0 is
// the most significant bit of the stream; Index advances monotonically and
// never exceeds 8*len(data) as an observable post-state of a successful
// Read.
type Reader struct {
	data  []byte
	index int // current bit cursor; Read keeps it <= 8*len(data), Skip may pass it
}

// New creates a Reader over data, positioned at bit 0.
func New(data []byte) *Reader {
	return &Reader{data: data}
}

// Len returns the total number of bits in the underlying buffer.
func (r *Reader) Len() int { return 8 * len(r.data) }

// Index returns the current bit cursor.
func (r *Reader) Index() int { return r.index }

// bitAt returns bit i of the stream (0 = MSB of byte 0), or 0 if i is past
// the end of the buffer (used only by the zero-padded lookahead path).
func (r *Reader) bitAt(i int) uint64 {
	byteIdx := i >> 3
	if byteIdx >= len(r.data) {
		return 0
	}
	shift := 7 - uint(i&7)
	return uint64(r.data[byteIdx]>>shift) & 1
}

// Look returns the next n bits (n in [0,64]) without consuming them,
// right-justified. If fewer than n bits remain in the buffer, the missing
// bits are treated as zero padding appended to the stream — this is
// essential so Huffman decode can always peek max_depth bits even near the
// end of the stream; the code actually consumed is bounded by what is
// really there, so the padding is never visible to a well-formed bitstream.
func (r *Reader) Look(n int) uint64 {
	var v uint64
	for i := 0; i < n; i++ {
		v = (v << 1) | r.bitAt(r.index+i)
	}
	return v
}

// Read consumes and returns the next n bits (n in [0,64]), MSB-first,
// right-justified. It fails with crnerr.ReadPastEnd if fewer than n bits
// remain in the buffer. n=0 returns 0 without advancing the cursor.
func (r *Reader) Read(n int) (uint64, error) {
	if n == 0 {
		return 0, nil
	}
	if r.index+n > r.Len() {
		return 0, crnerr.Newf(crnerr.ReadPastEnd, "read %d bits at index %d: only %d bits remain", n, r.index, r.Len()-r.index)
	}
	v := r.Look(n)
	r.index += n
	return v, nil
}

// Skip advances the cursor by n bits without a bounds check; a subsequent
// Read enforces bounds normally.
func (r *Reader) Skip(n int) { r.index += n }

// IsComplete reports whether every whole byte of the buffer has been
// consumed, allowing at most 7 trailing pad bits.
func (r *Reader) IsComplete() bool {
	total := r.Len()
	return r.index >= total-7 && r.index <= total
}
