package main

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/deepteams/crnlib/internal/container"
)

// decompressBlocks turns raw block-compressed bytes for one face of one
// level into an ordinary image.Image, using the standard (non-CRN
// specific) DXT1/DXT5/BC4/BC5 block decompression math.
func decompressBlocks(data []byte, width, height int, format container.Format) (image.Image, error) {
	blocksWide := (width + 3) / 4
	blocksHigh := (height + 3) / 4

	switch format {
	case container.FormatDxt5A:
		img := image.NewGray(image.Rect(0, 0, width, height))
		block := func(x, y int, tile [4][4]uint8) {
			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 4; dx++ {
					px, py := x*4+dx, y*4+dy
					if px >= width || py >= height {
						continue
					}
					img.SetGray(px, py, color.Gray{Y: tile[dy][dx]})
				}
			}
		}
		blockSize := 8
		for by := 0; by < blocksHigh; by++ {
			for bx := 0; bx < blocksWide; bx++ {
				off := (by*blocksWide + bx) * blockSize
				if off+blockSize > len(data) {
					return nil, fmt.Errorf("block (%d,%d) out of range", bx, by)
				}
				tile := decodeAlphaBlock(data[off : off+8])
				block(bx, by, tile)
			}
		}
		return img, nil

	case container.FormatDxnXY, container.FormatDxnYX:
		img := image.NewNRGBA(image.Rect(0, 0, width, height))
		blockSize := 16
		for by := 0; by < blocksHigh; by++ {
			for bx := 0; bx < blocksWide; bx++ {
				off := (by*blocksWide + bx) * blockSize
				if off+blockSize > len(data) {
					return nil, fmt.Errorf("block (%d,%d) out of range", bx, by)
				}
				x := decodeAlphaBlock(data[off : off+8])
				y := decodeAlphaBlock(data[off+8 : off+16])
				for dy := 0; dy < 4; dy++ {
					for dx := 0; dx < 4; dx++ {
						px, py := bx*4+dx, by*4+dy
						if px >= width || py >= height {
							continue
						}
						img.SetNRGBA(px, py, color.NRGBA{R: x[dy][dx], G: y[dy][dx], B: 255, A: 255})
					}
				}
			}
		}
		return img, nil

	default: // Dxt1 or one of the DXT5 variants
		img := image.NewNRGBA(image.Rect(0, 0, width, height))
		blockSize := format.BlockSize()
		hasAlpha := blockSize == 16
		for by := 0; by < blocksHigh; by++ {
			for bx := 0; bx < blocksWide; bx++ {
				off := (by*blocksWide + bx) * blockSize
				if off+blockSize > len(data) {
					return nil, fmt.Errorf("block (%d,%d) out of range", bx, by)
				}
				block := data[off : off+blockSize]

				var alphaTile [4][4]uint8
				colorBlock := block
				if hasAlpha {
					alphaTile = decodeAlphaBlock(block[0:8])
					colorBlock = block[8:16]
				} else {
					for dy := range alphaTile {
						for dx := range alphaTile[dy] {
							alphaTile[dy][dx] = 255
						}
					}
				}
				colorTile := decodeColorBlock(colorBlock)

				for dy := 0; dy < 4; dy++ {
					for dx := 0; dx < 4; dx++ {
						px, py := bx*4+dx, by*4+dy
						if px >= width || py >= height {
							continue
						}
						c := colorTile[dy][dx]
						img.SetNRGBA(px, py, color.NRGBA{R: c.R, G: c.G, B: c.B, A: alphaTile[dy][dx]})
					}
				}
			}
		}
		return img, nil
	}
}

// decodeColorBlock decodes an 8-byte DXT1-layout color block (two
// RGB565 endpoints, little-endian, followed by 16 2-bit indices packed
// little-endian into a 32-bit word) into a 4x4 tile of colors.
// When the first endpoint's 16-bit value is not greater than the
// second's, index 3 is transparent black per the DXT1 punch-through
// convention; DXT5's color block never relies on that case.
func decodeColorBlock(block []byte) [4][4]color.NRGBA {
	c0 := binary.LittleEndian.Uint16(block[0:2])
	c1 := binary.LittleEndian.Uint16(block[2:4])
	indices := binary.LittleEndian.Uint32(block[4:8])

	r0, g0, b0 := rgb565(c0)
	r1, g1, b1 := rgb565(c1)

	var palette [4]color.NRGBA
	palette[0] = color.NRGBA{R: r0, G: g0, B: b0, A: 255}
	palette[1] = color.NRGBA{R: r1, G: g1, B: b1, A: 255}
	if c0 > c1 {
		palette[2] = lerpColor(palette[0], palette[1], 1, 3)
		palette[3] = lerpColor(palette[0], palette[1], 2, 3)
	} else {
		palette[2] = lerpColor(palette[0], palette[1], 1, 2)
		palette[3] = color.NRGBA{A: 0}
	}

	var tile [4][4]color.NRGBA
	for i := 0; i < 16; i++ {
		idx := (indices >> uint(2*i)) & 3
		tile[i/4][i%4] = palette[idx]
	}
	return tile
}

// decodeAlphaBlock decodes an 8-byte DXT5-layout alpha/single-channel
// block (two 8-bit endpoints followed by 16 3-bit indices packed
// little-endian into a 48-bit word) into a 4x4 tile of channel values.
func decodeAlphaBlock(block []byte) [4][4]uint8 {
	a0, a1 := block[0], block[1]
	var bits uint64
	for i := 0; i < 6; i++ {
		bits |= uint64(block[2+i]) << uint(8*i)
	}

	var palette [8]uint8
	palette[0], palette[1] = a0, a1
	if a0 > a1 {
		for i := 1; i < 7; i++ {
			palette[1+i] = uint8((uint32(7-i)*uint32(a0) + uint32(i)*uint32(a1)) / 7)
		}
	} else {
		for i := 1; i < 5; i++ {
			palette[1+i] = uint8((uint32(5-i)*uint32(a0) + uint32(i)*uint32(a1)) / 5)
		}
		palette[6] = 0
		palette[7] = 255
	}

	var tile [4][4]uint8
	for i := 0; i < 16; i++ {
		idx := (bits >> uint(3*i)) & 7
		tile[i/4][i%4] = palette[idx]
	}
	return tile
}

func rgb565(v uint16) (r, g, b uint8) {
	r5 := v >> 11 & 0x1f
	g6 := v >> 5 & 0x3f
	b5 := v & 0x1f
	return uint8(r5<<3 | r5>>2), uint8(g6<<2 | g6>>4), uint8(b5<<3 | b5>>2)
}

func lerpColor(a, b color.NRGBA, num, den uint32) color.NRGBA {
	lerp := func(x, y uint8) uint8 {
		return uint8((uint32(x)*(den-num) + uint32(y)*num) / den)
	}
	return color.NRGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: 255}
}

func encodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}
