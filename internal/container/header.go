// Package container parses a CRN file's fixed-layout binary header: the
// big-endian struct crnlib writes ahead of the table stream, the four
// palette streams, and the per-mip-level data blocks, plus the CRC16
// checksums that guard the header and the remainder of the file.
package container

import (
	"encoding/binary"

	"github.com/deepteams/crnlib/internal/crnerr"
)

// Format identifies a CRN file's block-compression format.
type Format uint8

const (
	FormatDxt1     Format = 0
	FormatDxt3     Format = 1
	FormatDxt5     Format = 2
	FormatDxt5CCxY Format = 3
	FormatDxt5xGxR Format = 4
	FormatDxt5xGBR Format = 5
	FormatDxt5AGBR Format = 6
	FormatDxnXY    Format = 7
	FormatDxnYX    Format = 8
	FormatDxt5A    Format = 9
	FormatEtc1     Format = 10
	FormatInvalid  Format = 0xff
)

func (f Format) String() string {
	switch f {
	case FormatDxt1:
		return "DXT1"
	case FormatDxt3:
		return "DXT3"
	case FormatDxt5:
		return "DXT5"
	case FormatDxt5CCxY:
		return "DXT5_CCxY"
	case FormatDxt5xGxR:
		return "DXT5_xGxR"
	case FormatDxt5xGBR:
		return "DXT5_xGBR"
	case FormatDxt5AGBR:
		return "DXT5_AGBR"
	case FormatDxnXY:
		return "DXN_XY"
	case FormatDxnYX:
		return "DXN_YX"
	case FormatDxt5A:
		return "DXT5A"
	case FormatEtc1:
		return "ETC1"
	default:
		return "invalid"
	}
}

// BlockSize returns the compressed block size in bytes this format uses:
// 8 for DXT1 and the single-channel DXT5A, 16 for every other format
// (the DXT5 variants and the two-channel DXN formats).
func (f Format) BlockSize() int {
	switch f {
	case FormatDxt1, FormatDxt5A:
		return 8
	default:
		return 16
	}
}

// Palette describes one of the header's four palette byte ranges: where
// it sits in the file, how large it is, and how many entries it decodes
// to. Count 0 means the palette is absent.
type Palette struct {
	Offset uint32
	Size   uint32
	Count  uint16
}

// fixedHeaderSize is the byte length of Header's fields up to but not
// including the trailing per-level offset table: 33 scalar/array bytes +
// 4 Palette structs of 8 bytes each + 5 bytes of table_size/table_offset.
const fixedHeaderSize = 33 + 8*4 + 5

// Header is CRN's fixed-layout file header, parsed directly from the big
// endian, fixed-width wire encoding (mirrors the original bincode
// FixintEncoding/BigEndian configuration).
type Header struct {
	Magic       [2]byte
	HeaderSize  uint16
	HeaderCRC16 uint16
	FileSize    uint32
	DataCRC16   uint16

	Width      uint16
	Height     uint16
	LevelCount uint8
	FaceCount  uint8 // 1, or 6 for a cubemap
	Format     Format
	Flags      uint16

	Reserved uint32
	UserData [2]uint32

	ColorEndpoints Palette
	ColorSelectors Palette
	AlphaEndpoints Palette
	AlphaSelectors Palette

	TableSize   uint16
	TableOffset uint32

	LevelOffset []uint32
}

func readU24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

func readPalette(b []byte) Palette {
	return Palette{
		Offset: readU24(b[0:3]),
		Size:   readU24(b[3:6]),
		Count:  binary.BigEndian.Uint16(b[6:8]),
	}
}

// Parse reads a Header from the start of input. It requires input to be
// at least fixedHeaderSize plus 4*level_count bytes long, since the
// per-level offset table immediately follows the fixed fields.
func Parse(input []byte) (*Header, error) {
	if len(input) < fixedHeaderSize {
		return nil, crnerr.Newf(crnerr.ReadPastEnd, "header: need %d bytes, got %d", fixedHeaderSize, len(input))
	}

	h := &Header{}
	copy(h.Magic[:], input[0:2])
	h.HeaderSize = binary.BigEndian.Uint16(input[2:4])
	h.HeaderCRC16 = binary.BigEndian.Uint16(input[4:6])
	h.FileSize = binary.BigEndian.Uint32(input[6:10])
	h.DataCRC16 = binary.BigEndian.Uint16(input[10:12])

	h.Width = binary.BigEndian.Uint16(input[12:14])
	h.Height = binary.BigEndian.Uint16(input[14:16])
	h.LevelCount = input[16]
	h.FaceCount = input[17]
	h.Format = Format(input[18])
	h.Flags = binary.BigEndian.Uint16(input[19:21])

	h.Reserved = binary.BigEndian.Uint32(input[21:25])
	h.UserData[0] = binary.BigEndian.Uint32(input[25:29])
	h.UserData[1] = binary.BigEndian.Uint32(input[29:33])

	off := 33
	h.ColorEndpoints = readPalette(input[off : off+8])
	off += 8
	h.ColorSelectors = readPalette(input[off : off+8])
	off += 8
	h.AlphaEndpoints = readPalette(input[off : off+8])
	off += 8
	h.AlphaSelectors = readPalette(input[off : off+8])
	off += 8

	h.TableSize = binary.BigEndian.Uint16(input[off : off+2])
	h.TableOffset = readU24(input[off+2 : off+5])

	levelTableEnd := fixedHeaderSize + 4*int(h.LevelCount)
	if len(input) < levelTableEnd {
		return nil, crnerr.Newf(crnerr.ReadPastEnd, "header: level offset table needs %d bytes, got %d", levelTableEnd, len(input))
	}
	h.LevelOffset = make([]uint32, h.LevelCount)
	for i := 0; i < int(h.LevelCount); i++ {
		p := fixedHeaderSize + 4*i
		h.LevelOffset[i] = binary.BigEndian.Uint32(input[p : p+4])
	}

	return h, nil
}

// crc16 computes the table-free CRC16/CCITT variant crnlib uses, folding
// init (inverted) across input one byte at a time.
func crc16(init uint16, input []byte) uint16 {
	v := ^init
	for _, c := range input {
		x := c ^ byte(v>>8)
		x ^= x >> 4
		xw := uint16(x)
		v = (v << 8) ^ (xw << 12) ^ (xw << 5) ^ xw
	}
	return v
}

// CheckCRC reports whether h is consistent with input: the declared
// header size matches the fixed layout plus the level offset table, the
// declared file size matches input's length, and both CRC16 checksums
// (header bytes after the magic/size/crc fields, and everything after
// the header) match.
func (h *Header) CheckCRC(input []byte) bool {
	expectedHeaderSize := fixedHeaderSize + 4*int(h.LevelCount)
	if int(h.HeaderSize) != expectedHeaderSize {
		return false
	}
	if int(h.FileSize) != len(input) {
		return false
	}
	if len(input) < int(h.HeaderSize) {
		return false
	}
	if h.HeaderCRC16 != ^crc16(0, input[6:h.HeaderSize]) {
		return false
	}
	if h.DataCRC16 != ^crc16(0, input[h.HeaderSize:]) {
		return false
	}
	return true
}

// LevelData returns the byte range of level idx's compressed data: from
// its recorded offset up to the next level's offset, or the file's end
// for the last level.
func (h *Header) LevelData(input []byte, idx int) ([]byte, error) {
	if idx < 0 || idx >= len(h.LevelOffset) {
		return nil, crnerr.Newf(crnerr.LevelOutOfRange, "level %d out of range [0,%d)", idx, len(h.LevelOffset))
	}
	start := int(h.LevelOffset[idx])
	end := int(h.FileSize)
	if idx+1 < len(h.LevelOffset) {
		end = int(h.LevelOffset[idx+1])
	}
	if start > len(input) || end > len(input) || start > end {
		return nil, crnerr.Newf(crnerr.ReadPastEnd, "level %d data range [%d,%d) outside file of length %d", idx, start, end, len(input))
	}
	return input[start:end], nil
}

// TableData returns the byte range of the table stream (the five
// Huffman tables decoded by package tables).
func (h *Header) TableData(input []byte) ([]byte, error) {
	start := int(h.TableOffset)
	end := start + int(h.TableSize)
	if start > len(input) || end > len(input) {
		return nil, crnerr.Newf(crnerr.ReadPastEnd, "table data range [%d,%d) outside file of length %d", start, end, len(input))
	}
	return input[start:end], nil
}

// PaletteData returns the byte range for palette p, or nil if the
// palette is absent (count 0).
func (h *Header) PaletteData(input []byte, p Palette) ([]byte, error) {
	if p.Count == 0 {
		return nil, nil
	}
	start := int(p.Offset)
	end := start + int(p.Size)
	if start > len(input) || end > len(input) {
		return nil, crnerr.Newf(crnerr.ReadPastEnd, "palette data range [%d,%d) outside file of length %d", start, end, len(input))
	}
	return input[start:end], nil
}

// LevelDimensions returns the pixel width and height of mip level idx,
// halving (with a floor of 1) idx times from the base dimensions.
func (h *Header) LevelDimensions(idx int) (width, height int, ok bool) {
	if idx < 0 || idx >= int(h.LevelCount) {
		return 0, 0, false
	}
	w := int(h.Width) >> uint(idx)
	he := int(h.Height) >> uint(idx)
	if w < 1 {
		w = 1
	}
	if he < 1 {
		he = 1
	}
	return w, he, true
}
