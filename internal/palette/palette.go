// Package palette reconstructs CRN's four shared delta-coded palettes:
// color endpoints, color selectors, alpha endpoints, and alpha selectors.
// Each palette's byte slice embeds its own delta Huffman table(s) ahead of
// the coded entries, in the same shape the container's main table stream
// uses for its five Huffman tables.
package palette

import (
	"github.com/deepteams/crnlib/internal/bitio"
	"github.com/deepteams/crnlib/internal/crnerr"
	"github.com/deepteams/crnlib/internal/huffman"
)

// ColorEndpoint is a pair of packed 5:6:5 RGB endpoints.
type ColorEndpoint struct {
	Low, High uint16
}

// AlphaEndpoint is a pair of 8-bit alpha endpoints.
type AlphaEndpoint struct {
	Low, High uint8
}

// ColorSelector holds 16 two-bit selectors packed in DXT1 layout.
type ColorSelector [4]byte

// AlphaSelector holds 16 three-bit selectors packed in DXT5 layout.
type AlphaSelector [6]byte

// colorSelectorPermutation maps a raw 2-bit accumulator value to the DXT1
// selector code it represents.
var colorSelectorPermutation = [4]byte{0, 2, 3, 1}

// alphaSelectorPermutation maps a raw 3-bit accumulator value to the DXT5
// selector code it represents.
var alphaSelectorPermutation = [8]byte{0, 2, 3, 4, 5, 6, 7, 1}

// modEuclid returns n mod m in [0,m), the Euclidean remainder, for m > 0.
func modEuclid(n, m int) int {
	r := n % m
	if r < 0 {
		r += m
	}
	return r
}

// DecodeColorEndpoints decodes count color-endpoint entries from data.
// If count is 0 the palette is absent and an empty slice is returned
// without consuming any bytes.
func DecodeColorEndpoints(data []byte, count int) ([]ColorEndpoint, error) {
	if count == 0 {
		return nil, nil
	}
	r := bitio.New(data)
	dm1, err := huffman.DecodeTable(r, "color_endpoints_dm1")
	if err != nil {
		return nil, err
	}
	dm2, err := huffman.DecodeTable(r, "color_endpoints_dm2")
	if err != nil {
		return nil, err
	}

	var a, b, c, d, e, f uint32
	out := make([]ColorEndpoint, count)
	for i := 0; i < count; i++ {
		da, err := dm1.Next(r)
		if err != nil {
			return nil, crnerr.Wrapf(err, "color_endpoints[%d].a", i)
		}
		a = (a + da) % 32
		db, err := dm2.Next(r)
		if err != nil {
			return nil, crnerr.Wrapf(err, "color_endpoints[%d].b", i)
		}
		b = (b + db) % 64
		dc, err := dm1.Next(r)
		if err != nil {
			return nil, crnerr.Wrapf(err, "color_endpoints[%d].c", i)
		}
		c = (c + dc) % 32
		dd, err := dm1.Next(r)
		if err != nil {
			return nil, crnerr.Wrapf(err, "color_endpoints[%d].d", i)
		}
		d = (d + dd) % 32
		de, err := dm2.Next(r)
		if err != nil {
			return nil, crnerr.Wrapf(err, "color_endpoints[%d].e", i)
		}
		e = (e + de) % 64
		df, err := dm1.Next(r)
		if err != nil {
			return nil, crnerr.Wrapf(err, "color_endpoints[%d].f", i)
		}
		f = (f + df) % 32

		out[i] = ColorEndpoint{
			Low:  uint16(a<<11 | b<<5 | c),
			High: uint16(d<<11 | e<<5 | f),
		}
	}
	if !r.IsComplete() {
		return nil, crnerr.New(crnerr.PaletteTrailingBytes, "color_endpoints: trailing bytes")
	}
	return out, nil
}

// DecodeAlphaEndpoints decodes count alpha-endpoint entries from data.
func DecodeAlphaEndpoints(data []byte, count int) ([]AlphaEndpoint, error) {
	if count == 0 {
		return nil, nil
	}
	r := bitio.New(data)
	dm, err := huffman.DecodeTable(r, "alpha_endpoints_dm")
	if err != nil {
		return nil, err
	}

	var a, b uint32
	out := make([]AlphaEndpoint, count)
	for i := 0; i < count; i++ {
		da, err := dm.Next(r)
		if err != nil {
			return nil, crnerr.Wrapf(err, "alpha_endpoints[%d].a", i)
		}
		a = (a + da) % 256
		db, err := dm.Next(r)
		if err != nil {
			return nil, crnerr.Wrapf(err, "alpha_endpoints[%d].b", i)
		}
		b = (b + db) % 256
		out[i] = AlphaEndpoint{Low: uint8(a), High: uint8(b)}
	}
	if !r.IsComplete() {
		return nil, crnerr.New(crnerr.PaletteTrailingBytes, "alpha_endpoints: trailing bytes")
	}
	return out, nil
}

// DecodeColorSelectors decodes count color-selector entries from data.
func DecodeColorSelectors(data []byte, count int) ([]ColorSelector, error) {
	if count == 0 {
		return nil, nil
	}
	r := bitio.New(data)
	dm, err := huffman.DecodeTable(r, "color_selectors_dm")
	if err != nil {
		return nil, err
	}

	var x, y [8]int
	out := make([]ColorSelector, count)
	for i := 0; i < count; i++ {
		for cell := 0; cell < 8; cell++ {
			delta, err := dm.Next(r)
			if err != nil {
				return nil, crnerr.Wrapf(err, "color_selectors[%d].cell[%d]", i, cell)
			}
			d := int(delta)
			x[cell] = modEuclid(x[cell]+modEuclid(d, 7)-3, 4)
			y[cell] = modEuclid(y[cell]+floorDiv(d, 7)-3, 4)
		}
		var packed uint32
		for cell := 0; cell < 8; cell++ {
			packed |= uint32(colorSelectorPermutation[x[cell]]) << uint(4*cell)
			packed |= uint32(colorSelectorPermutation[y[cell]]) << uint(4*cell+2)
		}
		out[i] = ColorSelector{byte(packed), byte(packed >> 8), byte(packed >> 16), byte(packed >> 24)}
	}
	if !r.IsComplete() {
		return nil, crnerr.New(crnerr.PaletteTrailingBytes, "color_selectors: trailing bytes")
	}
	return out, nil
}

// DecodeAlphaSelectors decodes count alpha-selector entries from data.
func DecodeAlphaSelectors(data []byte, count int) ([]AlphaSelector, error) {
	if count == 0 {
		return nil, nil
	}
	r := bitio.New(data)
	dm, err := huffman.DecodeTable(r, "alpha_selectors_dm")
	if err != nil {
		return nil, err
	}

	var x, y [8]int
	out := make([]AlphaSelector, count)
	for i := 0; i < count; i++ {
		for cell := 0; cell < 8; cell++ {
			delta, err := dm.Next(r)
			if err != nil {
				return nil, crnerr.Wrapf(err, "alpha_selectors[%d].cell[%d]", i, cell)
			}
			d := int(delta)
			x[cell] = modEuclid(x[cell]+modEuclid(d, 15)-7, 8)
			y[cell] = modEuclid(y[cell]+floorDiv(d, 15)-7, 8)
		}
		var packed uint64
		for cell := 0; cell < 8; cell++ {
			field := uint64(alphaSelectorPermutation[x[cell]]) | uint64(alphaSelectorPermutation[y[cell]])<<3
			packed |= field << uint(6*cell)
		}
		out[i] = AlphaSelector{
			byte(packed), byte(packed >> 8), byte(packed >> 16),
			byte(packed >> 24), byte(packed >> 32), byte(packed >> 40),
		}
	}
	if !r.IsComplete() {
		return nil, crnerr.New(crnerr.PaletteTrailingBytes, "alpha_selectors: trailing bytes")
	}
	return out, nil
}

// floorDiv returns the Euclidean (floor) quotient of n/m for m > 0, which
// agrees with truncated division here since n is built from an unsigned
// Huffman-decoded delta before the signed subtraction.
func floorDiv(n, m int) int {
	q := n / m
	if n%m < 0 {
		q--
	}
	return q
}
