// Package unpack implements CRN's chunk/tile state machine: the serpentine
// 2×2-chunk traversal that reads tile structure from a 9-bit recirculating
// register and drives the shared palette cursors to emit raw DXT1/DXT5/
// DXT5A/DXN block bytes in raster scan order.
package unpack

import (
	"encoding/binary"

	"github.com/deepteams/crnlib/internal/bitio"
	"github.com/deepteams/crnlib/internal/crnerr"
	"github.com/deepteams/crnlib/internal/palette"
	"github.com/deepteams/crnlib/internal/tables"
)

// countTiles maps a 3-bit tile-structure code to the number of distinct
// tiles present in the chunk.
var countTiles = [8]int{1, 2, 2, 3, 3, 3, 3, 4}

// tileMap maps a 3-bit tile-structure code to the tile ID used by each of
// the chunk's 4 block positions (row-major: top-left, top-right,
// bottom-left, bottom-right).
var tileMap = [8][4]int{
	{0, 0, 0, 0},
	{0, 0, 1, 1}, {0, 1, 0, 1},
	{0, 0, 1, 2}, {1, 2, 0, 0},
	{0, 1, 0, 2}, {1, 0, 2, 0},
	{0, 1, 2, 3},
}

// ceilDiv returns ceil(a/b) for positive a, b.
func ceilDiv(a, b int) int { return (a + b - 1) / b }

// geometry holds the block/chunk dimensions derived from a level's pixel
// width and height, shared by every format's unpacker.
type geometry struct {
	blockX, blockY int
	chunkX, chunkY int
}

func newGeometry(width, height int) geometry {
	blockX := ceilDiv(width, 4)
	blockY := ceilDiv(height, 4)
	return geometry{
		blockX: blockX, blockY: blockY,
		chunkX: ceilDiv(blockX, 2),
		chunkY: ceilDiv(blockY, 2),
	}
}

// tileBits is the 9-bit recirculating register that feeds 3-bit
// tile-structure codes to the chunk decoder, refilling itself from the
// chunk-encoding Huffman whenever it drains back to its sentinel value.
type tileBits struct{ v uint32 }

func newTileBits() tileBits { return tileBits{v: 1} }

// next refills the register if needed and pops the next 3-bit code,
// returning the tile count and per-position tile IDs it selects.
func (tb *tileBits) next(r *bitio.Reader, chunkEncoding interface {
	Next(*bitio.Reader) (uint32, error)
}) (int, [4]int, error) {
	if tb.v == 1 {
		s, err := chunkEncoding.Next(r)
		if err != nil {
			return 0, [4]int{}, crnerr.Wrap(err, "chunk encoding")
		}
		tb.v = s | 512
	}
	idx := tb.v & 7
	tb.v >>= 3
	return countTiles[idx], tileMap[idx], nil
}

// rowRange returns the chunk-x traversal order for serpentine row y:
// left-to-right on even rows, right-to-left on odd rows.
func rowRange(y, chunkX int) []int {
	xs := make([]int, chunkX)
	if y&1 == 0 {
		for i := range xs {
			xs[i] = i
		}
	} else {
		for i := range xs {
			xs[i] = chunkX - 1 - i
		}
	}
	return xs
}

// clipped reports whether block position i (0=TL,1=TR,2=BL,3=BR) falls
// outside the texture in a chunk clipped by an odd block dimension.
func clipped(i int, skipX, skipY bool) bool {
	if skipX && (i == 1 || i == 3) {
		return true
	}
	if skipY && (i == 2 || i == 3) {
		return true
	}
	return false
}

// blockOffset returns the byte offset of block position i within chunk
// (chunkCol, chunkRow), given the level's pitch and this format's block
// size.
func blockOffset(chunkRow, chunkCol, i, pitch, blockSize int) int {
	return (chunkRow*2+i/2)*pitch + chunkCol*blockSize*2 + (i%2)*blockSize
}

func putColorEndpoint(buf []byte, ep palette.ColorEndpoint) {
	binary.LittleEndian.PutUint16(buf[0:2], ep.Low)
	binary.LittleEndian.PutUint16(buf[2:4], ep.High)
}

func putColorSelector(buf []byte, sel palette.ColorSelector) {
	copy(buf[0:4], sel[:])
}

func putAlphaEndpoint(buf []byte, ep palette.AlphaEndpoint) {
	buf[0] = ep.Low
	buf[1] = ep.High
}

func putAlphaSelector(buf []byte, sel palette.AlphaSelector) {
	copy(buf[0:6], sel[:])
}

// Dxt1 unpacks a DXT1 level: 8-byte blocks of (color_endpoint,
// color_selector), no alpha palettes.
func Dxt1(t *tables.Tables, r *bitio.Reader, width, height, faceCount int) ([]byte, error) {
	const blockSize = 8
	g := newGeometry(width, height)
	pitch := g.blockX * blockSize
	out := make([]byte, g.blockY*pitch*faceCount)

	var colorEndpointIdx, colorSelectorIdx int
	tb := newTileBits()

	for face := 0; face < faceCount; face++ {
		faceOut := out[face*g.blockY*pitch : (face+1)*g.blockY*pitch]
		for y := 0; y < g.chunkY; y++ {
			skipY := g.blockY&1 == 1 && y == g.chunkY-1
			for _, x := range rowRange(y, g.chunkX) {
				skipX := g.blockX&1 == 1 && x == g.chunkX-1

				tilesCount, tiles, err := tb.next(r, t.ChunkEncoding)
				if err != nil {
					return nil, err
				}

				var colorEndpoints [4]palette.ColorEndpoint
				for i := 0; i < tilesCount; i++ {
					colorEndpoints[i], err = t.ColorEndpoint.Next(r, &colorEndpointIdx)
					if err != nil {
						return nil, crnerr.Wrap(err, "color_endpoint delta")
					}
				}

				for i, tile := range tiles {
					colorSelector, err := t.ColorSelector.Next(r, &colorSelectorIdx)
					if err != nil {
						return nil, crnerr.Wrap(err, "color_selector delta")
					}
					if clipped(i, skipX, skipY) {
						continue
					}
					off := blockOffset(y, x, i, pitch, blockSize)
					putColorEndpoint(faceOut[off:], colorEndpoints[tile])
					putColorSelector(faceOut[off+4:], colorSelector)
				}
			}
		}
	}

	if !r.IsComplete() {
		return nil, crnerr.New(crnerr.LevelTrailingBytes, "dxt1 level: trailing bytes")
	}
	return out, nil
}

// Dxt5 unpacks a DXT5 level: 16-byte blocks of (alpha_endpoint,
// alpha_selector, color_endpoint, color_selector).
func Dxt5(t *tables.Tables, r *bitio.Reader, width, height, faceCount int) ([]byte, error) {
	const blockSize = 16
	g := newGeometry(width, height)
	pitch := g.blockX * blockSize
	out := make([]byte, g.blockY*pitch*faceCount)

	var colorEndpointIdx, colorSelectorIdx, alphaEndpointIdx, alphaSelectorIdx int
	tb := newTileBits()

	for face := 0; face < faceCount; face++ {
		faceOut := out[face*g.blockY*pitch : (face+1)*g.blockY*pitch]
		for y := 0; y < g.chunkY; y++ {
			skipY := g.blockY&1 == 1 && y == g.chunkY-1
			for _, x := range rowRange(y, g.chunkX) {
				skipX := g.blockX&1 == 1 && x == g.chunkX-1

				tilesCount, tiles, err := tb.next(r, t.ChunkEncoding)
				if err != nil {
					return nil, err
				}

				var alphaEndpoints [4]palette.AlphaEndpoint
				var colorEndpoints [4]palette.ColorEndpoint
				for i := 0; i < tilesCount; i++ {
					alphaEndpoints[i], err = t.AlphaEndpoint.Next(r, &alphaEndpointIdx)
					if err != nil {
						return nil, crnerr.Wrap(err, "alpha_endpoint delta")
					}
				}
				for i := 0; i < tilesCount; i++ {
					colorEndpoints[i], err = t.ColorEndpoint.Next(r, &colorEndpointIdx)
					if err != nil {
						return nil, crnerr.Wrap(err, "color_endpoint delta")
					}
				}

				for i, tile := range tiles {
					alphaSelector, err := t.AlphaSelector.Next(r, &alphaSelectorIdx)
					if err != nil {
						return nil, crnerr.Wrap(err, "alpha_selector delta")
					}
					colorSelector, err := t.ColorSelector.Next(r, &colorSelectorIdx)
					if err != nil {
						return nil, crnerr.Wrap(err, "color_selector delta")
					}
					if clipped(i, skipX, skipY) {
						continue
					}
					off := blockOffset(y, x, i, pitch, blockSize)
					putAlphaEndpoint(faceOut[off:], alphaEndpoints[tile])
					putAlphaSelector(faceOut[off+2:], alphaSelector)
					putColorEndpoint(faceOut[off+8:], colorEndpoints[tile])
					putColorSelector(faceOut[off+12:], colorSelector)
				}
			}
		}
	}

	if !r.IsComplete() {
		return nil, crnerr.New(crnerr.LevelTrailingBytes, "dxt5 level: trailing bytes")
	}
	return out, nil
}

// Dxt5A unpacks a DXT5A (single-channel) level: 8-byte blocks of
// (alpha_endpoint, alpha_selector), no color palettes.
func Dxt5A(t *tables.Tables, r *bitio.Reader, width, height, faceCount int) ([]byte, error) {
	const blockSize = 8
	g := newGeometry(width, height)
	pitch := g.blockX * blockSize
	out := make([]byte, g.blockY*pitch*faceCount)

	var alphaEndpointIdx, alphaSelectorIdx int
	tb := newTileBits()

	for face := 0; face < faceCount; face++ {
		faceOut := out[face*g.blockY*pitch : (face+1)*g.blockY*pitch]
		for y := 0; y < g.chunkY; y++ {
			skipY := g.blockY&1 == 1 && y == g.chunkY-1
			for _, x := range rowRange(y, g.chunkX) {
				skipX := g.blockX&1 == 1 && x == g.chunkX-1

				tilesCount, tiles, err := tb.next(r, t.ChunkEncoding)
				if err != nil {
					return nil, err
				}

				var alphaEndpoints [4]palette.AlphaEndpoint
				for i := 0; i < tilesCount; i++ {
					alphaEndpoints[i], err = t.AlphaEndpoint.Next(r, &alphaEndpointIdx)
					if err != nil {
						return nil, crnerr.Wrap(err, "alpha_endpoint delta")
					}
				}

				for i, tile := range tiles {
					alphaSelector, err := t.AlphaSelector.Next(r, &alphaSelectorIdx)
					if err != nil {
						return nil, crnerr.Wrap(err, "alpha_selector delta")
					}
					if clipped(i, skipX, skipY) {
						continue
					}
					off := blockOffset(y, x, i, pitch, blockSize)
					putAlphaEndpoint(faceOut[off:], alphaEndpoints[tile])
					putAlphaSelector(faceOut[off+2:], alphaSelector)
				}
			}
		}
	}

	if !r.IsComplete() {
		return nil, crnerr.New(crnerr.LevelTrailingBytes, "dxt5a level: trailing bytes")
	}
	return out, nil
}

// Dxn unpacks a DXN (two-channel, e.g. tangent-space normal map) level:
// 16-byte blocks of (alpha0_endpoint, alpha0_selector, alpha1_endpoint,
// alpha1_selector). Each channel reads the shared alpha_endpoint and
// alpha_selector palettes through its own independent cursor.
func Dxn(t *tables.Tables, r *bitio.Reader, width, height, faceCount int) ([]byte, error) {
	const blockSize = 16
	g := newGeometry(width, height)
	pitch := g.blockX * blockSize
	out := make([]byte, g.blockY*pitch*faceCount)

	var alpha0EndpointIdx, alpha1EndpointIdx int
	var alpha0SelectorIdx, alpha1SelectorIdx int
	tb := newTileBits()

	for face := 0; face < faceCount; face++ {
		faceOut := out[face*g.blockY*pitch : (face+1)*g.blockY*pitch]
		for y := 0; y < g.chunkY; y++ {
			skipY := g.blockY&1 == 1 && y == g.chunkY-1
			for _, x := range rowRange(y, g.chunkX) {
				skipX := g.blockX&1 == 1 && x == g.chunkX-1

				tilesCount, tiles, err := tb.next(r, t.ChunkEncoding)
				if err != nil {
					return nil, err
				}

				var alpha0Endpoints, alpha1Endpoints [4]palette.AlphaEndpoint
				for i := 0; i < tilesCount; i++ {
					alpha0Endpoints[i], err = t.AlphaEndpoint.Next(r, &alpha0EndpointIdx)
					if err != nil {
						return nil, crnerr.Wrap(err, "alpha0_endpoint delta")
					}
				}
				for i := 0; i < tilesCount; i++ {
					alpha1Endpoints[i], err = t.AlphaEndpoint.Next(r, &alpha1EndpointIdx)
					if err != nil {
						return nil, crnerr.Wrap(err, "alpha1_endpoint delta")
					}
				}

				for i, tile := range tiles {
					alpha0Selector, err := t.AlphaSelector.Next(r, &alpha0SelectorIdx)
					if err != nil {
						return nil, crnerr.Wrap(err, "alpha0_selector delta")
					}
					alpha1Selector, err := t.AlphaSelector.Next(r, &alpha1SelectorIdx)
					if err != nil {
						return nil, crnerr.Wrap(err, "alpha1_selector delta")
					}
					if clipped(i, skipX, skipY) {
						continue
					}
					off := blockOffset(y, x, i, pitch, blockSize)
					putAlphaEndpoint(faceOut[off:], alpha0Endpoints[tile])
					putAlphaSelector(faceOut[off+2:], alpha0Selector)
					putAlphaEndpoint(faceOut[off+8:], alpha1Endpoints[tile])
					putAlphaSelector(faceOut[off+10:], alpha1Selector)
				}
			}
		}
	}

	if !r.IsComplete() {
		return nil, crnerr.New(crnerr.LevelTrailingBytes, "dxn level: trailing bytes")
	}
	return out, nil
}
