package crnlib_test

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/deepteams/crnlib"
	"github.com/deepteams/crnlib/internal/container"
)

// bitWriter accumulates individual bits MSB-first and packs them into
// bytes, padding the final byte with zero bits.
type bitWriter struct {
	bits []byte
}

func (w *bitWriter) writeBits(v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		w.bits = append(w.bits, byte((v>>uint(i))&1))
	}
}

func (w *bitWriter) bytes() []byte {
	n := (len(w.bits) + 7) / 8
	out := make([]byte, n)
	for i, b := range w.bits {
		if b != 0 {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	return out
}

// writeSingletonZeroDeltaTable emits a 77-bit DecodeTable encoding whose
// target table has one symbol, value 0, at depth 1.
func writeSingletonZeroDeltaTable(w *bitWriter) {
	w.writeBits(1, 14)
	w.writeBits(19, 5)
	for i := 0; i < 18; i++ {
		w.writeBits(0, 3)
	}
	w.writeBits(1, 3)
	w.writeBits(0, 1)
}

// writeTwoSymbolEqualDepthTable emits a 78-bit DecodeTable encoding whose
// target table has two symbols, 0 and 1, both at depth 1 (a plain 1-bit
// canonical code, symbol 0 = "0", symbol 1 = "1").
func writeTwoSymbolEqualDepthTable(w *bitWriter) {
	w.writeBits(2, 14)
	w.writeBits(19, 5)
	for i := 0; i < 18; i++ {
		w.writeBits(0, 3)
	}
	w.writeBits(1, 3)
	w.writeBits(0, 1)
	w.writeBits(0, 1)
}

// buildCRN assembles a complete, CRC-valid CRN file for an 8x8 single-face
// DXT1 texture: one unclipped chunk, one color-endpoint entry, and two
// color-selector entries.
func buildCRN(t *testing.T) []byte {
	t.Helper()

	tw := &bitWriter{}
	writeSingletonZeroDeltaTable(tw)  // chunk encoding: always tile code 0
	writeSingletonZeroDeltaTable(tw)  // color_endpoint table: always delta 0
	writeTwoSymbolEqualDepthTable(tw) // color_selector table: delta 0 or 1
	writeSingletonZeroDeltaTable(tw)  // alpha_endpoint table (unused by DXT1)
	writeSingletonZeroDeltaTable(tw)  // alpha_selector table (unused by DXT1)
	tableData := tw.bytes()

	cew := &bitWriter{}
	writeSingletonZeroDeltaTable(cew) // dm1
	writeSingletonZeroDeltaTable(cew) // dm2
	cew.writeBits(0, 6)               // a..f deltas
	colorEndpointData := cew.bytes()

	csw := &bitWriter{}
	writeSingletonZeroDeltaTable(csw) // dm
	csw.writeBits(0, 16)              // 2 entries x 8 cell deltas
	colorSelectorData := csw.bytes()

	levelData := []byte{0x18} // chunk(0), color_endpoint delta(0), selectors 0,1,1,0

	const levelCount = 1
	headerSize := 70 + 4*levelCount // fixedHeaderSize + 4*levelCount

	tableOffset := headerSize
	colorEndpointsOffset := tableOffset + len(tableData)
	colorSelectorsOffset := colorEndpointsOffset + len(colorEndpointData)
	levelOffset := colorSelectorsOffset + len(colorSelectorData)
	fileSize := levelOffset + len(levelData)

	buf := make([]byte, fileSize)
	copy(buf[tableOffset:], tableData)
	copy(buf[colorEndpointsOffset:], colorEndpointData)
	copy(buf[colorSelectorsOffset:], colorSelectorData)
	copy(buf[levelOffset:], levelData)

	copy(buf[0:2], []byte{'H', '3'})
	binary.BigEndian.PutUint16(buf[2:4], uint16(headerSize))
	binary.BigEndian.PutUint32(buf[6:10], uint32(fileSize))
	binary.BigEndian.PutUint16(buf[12:14], 8) // Width
	binary.BigEndian.PutUint16(buf[14:16], 8) // Height
	buf[16] = levelCount
	buf[17] = 1 // FaceCount
	buf[18] = byte(container.FormatDxt1)

	off := 33
	putPalette := func(offset, size uint32, count uint16) {
		buf[off] = byte(offset >> 16)
		buf[off+1] = byte(offset >> 8)
		buf[off+2] = byte(offset)
		buf[off+3] = byte(size >> 16)
		buf[off+4] = byte(size >> 8)
		buf[off+5] = byte(size)
		binary.BigEndian.PutUint16(buf[off+6:off+8], count)
		off += 8
	}
	putPalette(uint32(colorEndpointsOffset), uint32(len(colorEndpointData)), 1)
	putPalette(uint32(colorSelectorsOffset), uint32(len(colorSelectorData)), 2)
	putPalette(0, 0, 0) // alpha endpoints, absent
	putPalette(0, 0, 0) // alpha selectors, absent

	binary.BigEndian.PutUint16(buf[off:off+2], uint16(len(tableData))) // TableSize
	buf[off+2] = byte(tableOffset >> 16)
	buf[off+3] = byte(tableOffset >> 8)
	buf[off+4] = byte(tableOffset)
	off += 5

	binary.BigEndian.PutUint32(buf[off:off+4], uint32(levelOffset))

	dataCRC := crc16ForTest(buf[headerSize:])
	binary.BigEndian.PutUint16(buf[10:12], dataCRC)
	headerCRC := crc16ForTest(buf[6:headerSize])
	binary.BigEndian.PutUint16(buf[4:6], headerCRC)

	return buf
}

// crc16ForTest reproduces the package's table-free CRC16/CCITT fold so the
// test can stamp a CRC-valid header without exporting the internal
// function.
func crc16ForTest(input []byte) uint16 {
	v := ^uint16(0)
	for _, c := range input {
		x := c ^ byte(v>>8)
		x ^= x >> 4
		xw := uint16(x)
		v = (v << 8) ^ (xw << 12) ^ (xw << 5) ^ xw
	}
	return ^v
}

func TestGetFeatures(t *testing.T) {
	buf := buildCRN(t)
	f, err := crnlib.GetFeatures(buf)
	if err != nil {
		t.Fatalf("GetFeatures: %v", err)
	}
	if f.Width != 8 || f.Height != 8 || f.LevelCount != 1 || f.FaceCount != 1 {
		t.Fatalf("GetFeatures() = %+v", f)
	}
	if f.Format != container.FormatDxt1 {
		t.Fatalf("Format = %v, want DXT1", f.Format)
	}
}

func TestGetFeaturesCorruptCRC(t *testing.T) {
	buf := buildCRN(t)
	buf[20] ^= 0xff
	if _, err := crnlib.GetFeatures(buf); !errors.Is(err, crnlib.ErrCorruptHeader) {
		t.Fatalf("GetFeatures() on corrupt file: err = %v, want ErrCorruptHeader", err)
	}
}

func TestDecodeAndLevel(t *testing.T) {
	buf := buildCRN(t)
	archive, err := crnlib.Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if archive.BlockSize() != 8 {
		t.Fatalf("BlockSize() = %d, want 8", archive.BlockSize())
	}

	got, err := archive.Level(0)
	if err != nil {
		t.Fatalf("Level(0): %v", err)
	}
	want := []byte{
		0, 0, 0, 0, 0xAA, 0xAA, 0xAA, 0xAA, // position 0
		0, 0, 0, 0, 0xFF, 0xFF, 0xFF, 0xFF, // position 1
		0, 0, 0, 0, 0xAA, 0xAA, 0xAA, 0xAA, // position 2
		0, 0, 0, 0, 0xAA, 0xAA, 0xAA, 0xAA, // position 3
	}
	if len(got) != len(want) {
		t.Fatalf("Level(0) length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Level(0)[%d] = %#x, want %#x\ngot:  %x\nwant: %x", i, got[i], want[i], got, want)
		}
	}
}

func TestDecodeLevelOutOfRange(t *testing.T) {
	buf := buildCRN(t)
	archive, err := crnlib.Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, err := archive.Level(5); err == nil {
		t.Fatal("Level(5): want error, got nil")
	}
}

func TestDecodeUnsupportedFormat(t *testing.T) {
	buf := buildCRN(t)
	buf[18] = byte(container.FormatEtc1)
	headerSize := 74
	dataCRC := crc16ForTest(buf[headerSize:])
	binary.BigEndian.PutUint16(buf[10:12], dataCRC)
	headerCRC := crc16ForTest(buf[6:headerSize])
	binary.BigEndian.PutUint16(buf[4:6], headerCRC)

	if _, err := crnlib.Decode(buf); !errors.Is(err, crnlib.ErrUnsupportedFormat) {
		t.Fatalf("Decode() with unsupported format: err = %v, want ErrUnsupportedFormat", err)
	}
}
