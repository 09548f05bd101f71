package container

import (
	"encoding/binary"
	"testing"

	"github.com/deepteams/crnlib/internal/crnerr"
)

// buildHeaderBytes constructs a minimal, internally consistent one-level
// header (no palettes, empty table, zero-length level 0 data) with both
// CRC16 fields computed from the package's own crc16 function.
func buildHeaderBytes() []byte {
	const levelCount = 1
	headerSize := fixedHeaderSize + 4*levelCount

	buf := make([]byte, headerSize)
	copy(buf[0:2], []byte{'H', '3'})
	binary.BigEndian.PutUint16(buf[2:4], uint16(headerSize))
	binary.BigEndian.PutUint32(buf[6:10], uint32(headerSize)) // FileSize
	binary.BigEndian.PutUint16(buf[12:14], 16)                // Width
	binary.BigEndian.PutUint16(buf[14:16], 8)                 // Height
	buf[16] = levelCount
	buf[17] = 1 // FaceCount
	buf[18] = byte(FormatDxt1)

	off := 33 + 8*4 // skip the four absent (zero) palettes
	binary.BigEndian.PutUint16(buf[off:off+2], 0)                  // TableSize
	off += 5                                                       // skip TableSize+TableOffset
	binary.BigEndian.PutUint32(buf[off:off+4], uint32(headerSize)) // level 0 offset

	dataCRC := ^crc16(0, buf[headerSize:])
	binary.BigEndian.PutUint16(buf[10:12], dataCRC)
	headerCRC := ^crc16(0, buf[6:headerSize])
	binary.BigEndian.PutUint16(buf[4:6], headerCRC)

	return buf
}

func TestParse(t *testing.T) {
	buf := buildHeaderBytes()
	h, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if h.Width != 16 || h.Height != 8 || h.LevelCount != 1 || h.FaceCount != 1 {
		t.Fatalf("Parse() fields = %+v", h)
	}
	if h.Format != FormatDxt1 {
		t.Fatalf("Format = %v, want DXT1", h.Format)
	}
	if len(h.LevelOffset) != 1 || h.LevelOffset[0] != uint32(len(buf)) {
		t.Fatalf("LevelOffset = %v, want [%d]", h.LevelOffset, len(buf))
	}
}

func TestParseTooShort(t *testing.T) {
	if _, err := Parse(make([]byte, 10)); crnerr.KindOf(err) != crnerr.ReadPastEnd {
		t.Fatalf("Parse(10 bytes): err = %v, want Kind ReadPastEnd", err)
	}
}

func TestCheckCRC(t *testing.T) {
	buf := buildHeaderBytes()
	h, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !h.CheckCRC(buf) {
		t.Fatal("CheckCRC() = false, want true")
	}

	corrupt := append([]byte(nil), buf...)
	corrupt[20] ^= 0xff
	if h.CheckCRC(corrupt) {
		t.Fatal("CheckCRC() after corrupting a header byte = true, want false")
	}
}

func TestLevelData(t *testing.T) {
	buf := buildHeaderBytes()
	h, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	data, err := h.LevelData(buf, 0)
	if err != nil {
		t.Fatalf("LevelData: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("LevelData(0) length = %d, want 0", len(data))
	}
	if _, err := h.LevelData(buf, 5); crnerr.KindOf(err) != crnerr.LevelOutOfRange {
		t.Fatalf("LevelData(5): err = %v, want Kind LevelOutOfRange", err)
	}
}

func TestTableData(t *testing.T) {
	buf := buildHeaderBytes()
	h, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	data, err := h.TableData(buf)
	if err != nil {
		t.Fatalf("TableData: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("TableData() length = %d, want 0", len(data))
	}
}

func TestPaletteDataAbsent(t *testing.T) {
	buf := buildHeaderBytes()
	h, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	data, err := h.PaletteData(buf, h.ColorEndpoints)
	if err != nil || data != nil {
		t.Fatalf("PaletteData(absent) = %v, %v; want nil, nil", data, err)
	}
}

func TestLevelDimensions(t *testing.T) {
	buf := buildHeaderBytes()
	h, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	w, he, ok := h.LevelDimensions(0)
	if !ok || w != 16 || he != 8 {
		t.Fatalf("LevelDimensions(0) = %d, %d, %v; want 16, 8, true", w, he, ok)
	}
	if _, _, ok := h.LevelDimensions(1); ok {
		t.Fatal("LevelDimensions(1) ok = true, want false (only 1 level)")
	}
}
