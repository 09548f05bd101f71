package main

import (
	"encoding/binary"

	"github.com/deepteams/crnlib/internal/container"
)

// DDS constants (see the Microsoft DDS file reference). Only the fields
// crndump needs to produce a loadable single-mip DDS are set; unused
// reserved fields are left zero.
const (
	ddsMagic       = "DDS "
	ddsHeaderSize  = 124
	ddspfSize      = 32
	ddsFlags       = 0x1 | 0x2 | 0x4 | 0x1000 | 0x80000 // CAPS|HEIGHT|WIDTH|PIXELFORMAT|LINEARSIZE
	ddsCapsTexture = 0x1000
	ddpfFourCC     = 0x4
)

func fourCC(format container.Format) string {
	switch format {
	case container.FormatDxt1:
		return "DXT1"
	case container.FormatDxt5A:
		return "ATI1"
	case container.FormatDxnXY, container.FormatDxnYX:
		return "ATI2"
	default:
		return "DXT5"
	}
}

// buildDDS wraps raw block-compressed level bytes in a minimal single-mip
// DDS container: the 4-byte "DDS " magic, the 124-byte DDS_HEADER with a
// DDS_PIXELFORMAT naming the block format's FourCC, followed by the
// blocks themselves unmodified.
func buildDDS(width, height int, format container.Format, blockSize int, levelData []byte) []byte {
	buf := make([]byte, 4+ddsHeaderSize+len(levelData))
	copy(buf[0:4], ddsMagic)

	h := buf[4:]
	binary.LittleEndian.PutUint32(h[0:4], ddsHeaderSize)
	binary.LittleEndian.PutUint32(h[4:8], ddsFlags)
	binary.LittleEndian.PutUint32(h[8:12], uint32(height))
	binary.LittleEndian.PutUint32(h[12:16], uint32(width))
	blocksWide := (width + 3) / 4
	blocksHigh := (height + 3) / 4
	binary.LittleEndian.PutUint32(h[16:20], uint32(blocksWide*blocksHigh*blockSize))
	// depth (20:24), mipMapCount (24:28), reserved1 (28:72) left zero.

	pf := h[72:104]
	binary.LittleEndian.PutUint32(pf[0:4], ddspfSize)
	binary.LittleEndian.PutUint32(pf[4:8], ddpfFourCC)
	copy(pf[8:12], fourCC(format))

	binary.LittleEndian.PutUint32(h[104:108], ddsCapsTexture)
	// caps2/3/4, reserved2 left zero.

	copy(buf[4+ddsHeaderSize:], levelData)
	return buf
}
