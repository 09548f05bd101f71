// Package tables bundles the five Huffman tables and four palette vectors
// a CRN file carries into the single aggregate the per-level unpacker
// walks: the chunk-encoding Huffman plus four (delta-huffman, palette)
// pairs, each exposing a "decode a delta, advance the cursor, return the
// palette entry" primitive.
package tables

import (
	"github.com/deepteams/crnlib/internal/bitio"
	"github.com/deepteams/crnlib/internal/crnerr"
	"github.com/deepteams/crnlib/internal/huffman"
	"github.com/deepteams/crnlib/internal/palette"
)

// Palette pairs a delta Huffman with the shared vector of entries it
// indexes into. The cursor it advances is owned by the caller (the
// per-level unpack state, per spec: these cursors persist across chunks,
// rows, and faces of an entire level) so the same Palette value can drive
// several independent cursors (e.g. DXN's two alpha-endpoint cursors).
type Palette[T any] struct {
	Delta   *huffman.Table
	Entries []T
}

// Next decodes one delta via p.Delta, advances *cursor by that delta
// modulo len(p.Entries), and returns the palette entry it now points at.
// Calling Next on an empty palette (no entries) is a fatal error.
func (p Palette[T]) Next(r *bitio.Reader, cursor *int) (T, error) {
	var zero T
	if len(p.Entries) == 0 {
		return zero, crnerr.New(crnerr.EmptyPaletteAccess, "palette next: palette is empty")
	}
	delta, err := p.Delta.Next(r)
	if err != nil {
		return zero, crnerr.Wrap(err, "palette next: delta")
	}
	n := len(p.Entries)
	*cursor = int((uint64(*cursor) + uint64(delta)) % uint64(n))
	return p.Entries[*cursor], nil
}

// Tables is the fully assembled per-file aggregate: immutable once built,
// shared read-only across every level and face decoded from the file.
type Tables struct {
	ChunkEncoding *huffman.Table

	ColorEndpoint Palette[palette.ColorEndpoint]
	ColorSelector Palette[palette.ColorSelector]
	AlphaEndpoint Palette[palette.AlphaEndpoint]
	AlphaSelector Palette[palette.AlphaSelector]
}

// Build reads the five Huffman tables from tableData, in the fixed order
// {chunk_encoding, color_endpoint_Δ, color_selector_Δ, alpha_endpoint_Δ,
// alpha_selector_Δ}, and pairs the last four with their already-decoded
// palette vectors (built by package palette from the file's separate
// palette byte slices).
func Build(
	tableData []byte,
	colorEndpoints []palette.ColorEndpoint,
	colorSelectors []palette.ColorSelector,
	alphaEndpoints []palette.AlphaEndpoint,
	alphaSelectors []palette.AlphaSelector,
) (*Tables, error) {
	r := bitio.New(tableData)

	chunkEncoding, err := huffman.DecodeTable(r, "chunk encoding table")
	if err != nil {
		return nil, err
	}
	colorEndpointDelta, err := huffman.DecodeTable(r, "color_endpoint table")
	if err != nil {
		return nil, err
	}
	colorSelectorDelta, err := huffman.DecodeTable(r, "color_selector table")
	if err != nil {
		return nil, err
	}
	alphaEndpointDelta, err := huffman.DecodeTable(r, "alpha_endpoint table")
	if err != nil {
		return nil, err
	}
	alphaSelectorDelta, err := huffman.DecodeTable(r, "alpha_selector table")
	if err != nil {
		return nil, err
	}
	if !r.IsComplete() {
		return nil, crnerr.New(crnerr.TableTrailingBytes, "table data: trailing bytes")
	}

	return &Tables{
		ChunkEncoding: chunkEncoding,
		ColorEndpoint: Palette[palette.ColorEndpoint]{Delta: colorEndpointDelta, Entries: colorEndpoints},
		ColorSelector: Palette[palette.ColorSelector]{Delta: colorSelectorDelta, Entries: colorSelectors},
		AlphaEndpoint: Palette[palette.AlphaEndpoint]{Delta: alphaEndpointDelta, Entries: alphaEndpoints},
		AlphaSelector: Palette[palette.AlphaSelector]{Delta: alphaSelectorDelta, Entries: alphaSelectors},
	}, nil
}
