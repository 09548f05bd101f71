package unpack

import (
	"bytes"
	"testing"

	"github.com/deepteams/crnlib/internal/bitio"
	"github.com/deepteams/crnlib/internal/huffman"
	"github.com/deepteams/crnlib/internal/palette"
	"github.com/deepteams/crnlib/internal/tables"
)

func TestCeilDiv(t *testing.T) {
	cases := []struct{ a, b, want int }{{8, 4, 2}, {7, 4, 2}, {1, 4, 1}, {0, 4, 0}}
	for _, c := range cases {
		if got := ceilDiv(c.a, c.b); got != c.want {
			t.Errorf("ceilDiv(%d, %d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestNewGeometry(t *testing.T) {
	g := newGeometry(7, 9)
	want := geometry{blockX: 2, blockY: 3, chunkX: 1, chunkY: 2}
	if g != want {
		t.Fatalf("newGeometry(7, 9) = %+v, want %+v", g, want)
	}
}

func TestRowRange(t *testing.T) {
	if got := rowRange(0, 3); !equalInts(got, []int{0, 1, 2}) {
		t.Fatalf("rowRange(0, 3) = %v, want [0 1 2]", got)
	}
	if got := rowRange(1, 3); !equalInts(got, []int{2, 1, 0}) {
		t.Fatalf("rowRange(1, 3) = %v, want [2 1 0]", got)
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestClipped(t *testing.T) {
	cases := []struct {
		i              int
		skipX, skipY   bool
		want           bool
	}{
		{0, false, false, false},
		{1, true, false, true},
		{3, true, false, true},
		{0, true, false, false},
		{2, false, true, true},
		{1, false, true, false},
		{3, false, true, true},
		{3, true, true, true},
	}
	for _, c := range cases {
		if got := clipped(c.i, c.skipX, c.skipY); got != c.want {
			t.Errorf("clipped(%d, %v, %v) = %v, want %v", c.i, c.skipX, c.skipY, got, c.want)
		}
	}
}

func TestBlockOffset(t *testing.T) {
	cases := []struct {
		chunkRow, chunkCol, i, pitch, blockSize int
		want                                    int
	}{
		{0, 0, 0, 16, 8, 0},
		{0, 0, 1, 16, 8, 8},
		{0, 0, 2, 16, 8, 16},
		{0, 0, 3, 16, 8, 24},
		{1, 2, 0, 32, 8, 96},
	}
	for _, c := range cases {
		got := blockOffset(c.chunkRow, c.chunkCol, c.i, c.pitch, c.blockSize)
		if got != c.want {
			t.Errorf("blockOffset(%d,%d,%d,%d,%d) = %d, want %d",
				c.chunkRow, c.chunkCol, c.i, c.pitch, c.blockSize, got, c.want)
		}
	}
}

func TestTileBitsRefillAndDrain(t *testing.T) {
	chunkEnc, err := huffman.Build(map[uint32]int{5: 1})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	tb := newTileBits()
	r := bitio.New([]byte{0x00})

	count, tiles, err := tb.next(r, chunkEnc)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if count != countTiles[5] || tiles != tileMap[5] {
		t.Fatalf("next() = %d, %v, want %d, %v", count, tiles, countTiles[5], tileMap[5])
	}

	// 5|512 = 0b1000000101: after the first pop the remaining two 3-bit
	// codes are 0 and 0, and the third pop drains back to the sentinel.
	for i := 0; i < 2; i++ {
		count, tiles, err = tb.next(r, chunkEnc)
		if err != nil {
			t.Fatalf("next #%d: %v", i+2, err)
		}
		if count != countTiles[0] || tiles != tileMap[0] {
			t.Fatalf("next #%d = %d, %v, want %d, %v", i+2, count, tiles, countTiles[0], tileMap[0])
		}
	}
	if tb.v != 1 || r.Index() != 1 {
		t.Fatalf("after 3 pops: v = %d, Index() = %d; want 1, 1 (drained, one refill)", tb.v, r.Index())
	}
}

// TestDxt1NoClip decodes a single unclipped 2x2-block chunk covering an
// entire 8x8 level: one tile (chunk code 0), one color endpoint, and four
// color selectors read through the one shared selector cursor.
func TestDxt1NoClip(t *testing.T) {
	chunkEnc, err := huffman.Build(map[uint32]int{0: 1})
	if err != nil {
		t.Fatalf("Build chunkEnc: %v", err)
	}
	colorEndpointDelta, err := huffman.Build(map[uint32]int{0: 1})
	if err != nil {
		t.Fatalf("Build colorEndpointDelta: %v", err)
	}
	colorSelectorDelta, err := huffman.Build(map[uint32]int{0: 1, 1: 1})
	if err != nil {
		t.Fatalf("Build colorSelectorDelta: %v", err)
	}

	tb := &tables.Tables{
		ChunkEncoding: chunkEnc,
		ColorEndpoint: tables.Palette[palette.ColorEndpoint]{
			Delta: colorEndpointDelta, Entries: []palette.ColorEndpoint{{Low: 1, High: 2}},
		},
		ColorSelector: tables.Palette[palette.ColorSelector]{
			Delta:   colorSelectorDelta,
			Entries: []palette.ColorSelector{{9, 9, 9, 9}, {8, 8, 8, 8}},
		},
	}

	// bits: chunk(0), colorEndpoint delta(0), 4 selector deltas: 0,1,1,0
	data := []byte{0x18} // 00011000
	r := bitio.New(data)

	got, err := Dxt1(tb, r, 8, 8, 1)
	if err != nil {
		t.Fatalf("Dxt1: %v", err)
	}

	want := make([]byte, 32)
	putColorEndpoint(want[0:], palette.ColorEndpoint{Low: 1, High: 2})
	putColorSelector(want[4:], palette.ColorSelector{9, 9, 9, 9})
	putColorEndpoint(want[8:], palette.ColorEndpoint{Low: 1, High: 2})
	putColorSelector(want[12:], palette.ColorSelector{8, 8, 8, 8})
	putColorEndpoint(want[16:], palette.ColorEndpoint{Low: 1, High: 2})
	putColorSelector(want[20:], palette.ColorSelector{9, 9, 9, 9})
	putColorEndpoint(want[24:], palette.ColorEndpoint{Low: 1, High: 2})
	putColorSelector(want[28:], palette.ColorSelector{9, 9, 9, 9})

	if !bytes.Equal(got, want) {
		t.Fatalf("Dxt1() = %v, want %v", got, want)
	}
}

// TestDxt1ClipOddWidth decodes a 4x8 level (blockX=1, odd) so the single
// chunk clips its right-hand column: positions 1 and 3 are decoded (their
// selector cursor still advances) but never written.
func TestDxt1ClipOddWidth(t *testing.T) {
	chunkEnc, _ := huffman.Build(map[uint32]int{0: 1})
	colorEndpointDelta, _ := huffman.Build(map[uint32]int{0: 1})
	colorSelectorDelta, _ := huffman.Build(map[uint32]int{0: 1, 1: 1})

	tb := &tables.Tables{
		ChunkEncoding: chunkEnc,
		ColorEndpoint: tables.Palette[palette.ColorEndpoint]{
			Delta: colorEndpointDelta, Entries: []palette.ColorEndpoint{{Low: 1, High: 2}},
		},
		ColorSelector: tables.Palette[palette.ColorSelector]{
			Delta:   colorSelectorDelta,
			Entries: []palette.ColorSelector{{9, 9, 9, 9}, {8, 8, 8, 8}},
		},
	}

	data := []byte{0x18} // same 6-bit stream as above
	r := bitio.New(data)

	got, err := Dxt1(tb, r, 4, 8, 1)
	if err != nil {
		t.Fatalf("Dxt1: %v", err)
	}

	want := make([]byte, 16)
	putColorEndpoint(want[0:], palette.ColorEndpoint{Low: 1, High: 2})
	putColorSelector(want[4:], palette.ColorSelector{9, 9, 9, 9})
	putColorEndpoint(want[8:], palette.ColorEndpoint{Low: 1, High: 2})
	putColorSelector(want[12:], palette.ColorSelector{9, 9, 9, 9})

	if !bytes.Equal(got, want) {
		t.Fatalf("Dxt1() = %v, want %v", got, want)
	}
}
