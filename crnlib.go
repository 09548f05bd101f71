// Package crnlib implements a decoder for the CRN compressed DDS texture
// container format: a Huffman-entropy-coded wrapper around DXT1/DXT5/
// DXT5A/DXN block-compressed mip levels, originally produced by Unity's
// crunch compressor.
package crnlib

import (
	"github.com/pkg/errors"

	"github.com/deepteams/crnlib/internal/bitio"
	"github.com/deepteams/crnlib/internal/container"
	"github.com/deepteams/crnlib/internal/crnerr"
	"github.com/deepteams/crnlib/internal/palette"
	"github.com/deepteams/crnlib/internal/tables"
	"github.com/deepteams/crnlib/internal/unpack"
)

// Errors returned by the decoder.
var (
	ErrUnsupportedFormat = errors.New("crn: unsupported format")
	ErrCorruptHeader     = errors.New("crn: header failed crc check")
)

// Format re-exports the container's format enum so callers never need to
// import the internal package directly.
type Format = container.Format

// Features describes a CRN file's properties, as returned by
// [GetFeatures], without fully decoding any level.
type Features struct {
	Width      int
	Height     int
	LevelCount int
	FaceCount  int
	Format     Format
}

// GetFeatures parses data's header and CRC but does not decode any mip
// level or palette.
func GetFeatures(data []byte) (*Features, error) {
	h, err := container.Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, "crn: parsing header")
	}
	if !h.CheckCRC(data) {
		return nil, ErrCorruptHeader
	}
	return &Features{
		Width:      int(h.Width),
		Height:     int(h.Height),
		LevelCount: int(h.LevelCount),
		FaceCount:  int(h.FaceCount),
		Format:     h.Format,
	}, nil
}

// Archive is a fully parsed CRN file: its header, decoded tables, and
// the raw file bytes levels are unpacked from on demand.
type Archive struct {
	header *container.Header
	tables *tables.Tables
	data   []byte
}

// Decode parses data as a complete CRN file: header, CRC, four palettes,
// and the table stream. Level data is decoded lazily by [Archive.Level].
func Decode(data []byte) (*Archive, error) {
	h, err := container.Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, "crn: parsing header")
	}
	if !h.CheckCRC(data) {
		return nil, ErrCorruptHeader
	}
	if _, ok := dispatch[h.Format]; !ok {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "format %s", h.Format)
	}

	colorEndpointData, err := h.PaletteData(data, h.ColorEndpoints)
	if err != nil {
		return nil, errors.Wrap(err, "crn: color_endpoints range")
	}
	colorEndpoints, err := palette.DecodeColorEndpoints(colorEndpointData, int(h.ColorEndpoints.Count))
	if err != nil {
		return nil, errors.Wrap(err, "crn: decoding color_endpoints")
	}

	colorSelectorData, err := h.PaletteData(data, h.ColorSelectors)
	if err != nil {
		return nil, errors.Wrap(err, "crn: color_selectors range")
	}
	colorSelectors, err := palette.DecodeColorSelectors(colorSelectorData, int(h.ColorSelectors.Count))
	if err != nil {
		return nil, errors.Wrap(err, "crn: decoding color_selectors")
	}

	alphaEndpointData, err := h.PaletteData(data, h.AlphaEndpoints)
	if err != nil {
		return nil, errors.Wrap(err, "crn: alpha_endpoints range")
	}
	alphaEndpoints, err := palette.DecodeAlphaEndpoints(alphaEndpointData, int(h.AlphaEndpoints.Count))
	if err != nil {
		return nil, errors.Wrap(err, "crn: decoding alpha_endpoints")
	}

	alphaSelectorData, err := h.PaletteData(data, h.AlphaSelectors)
	if err != nil {
		return nil, errors.Wrap(err, "crn: alpha_selectors range")
	}
	alphaSelectors, err := palette.DecodeAlphaSelectors(alphaSelectorData, int(h.AlphaSelectors.Count))
	if err != nil {
		return nil, errors.Wrap(err, "crn: decoding alpha_selectors")
	}

	tableData, err := h.TableData(data)
	if err != nil {
		return nil, errors.Wrap(err, "crn: table data range")
	}
	t, err := tables.Build(tableData, colorEndpoints, colorSelectors, alphaEndpoints, alphaSelectors)
	if err != nil {
		return nil, errors.Wrap(err, "crn: building tables")
	}

	return &Archive{header: h, tables: t, data: data}, nil
}

// Features returns the archive's dimensions, level/face counts and
// format.
func (a *Archive) Features() Features {
	return Features{
		Width:      int(a.header.Width),
		Height:     int(a.header.Height),
		LevelCount: int(a.header.LevelCount),
		FaceCount:  int(a.header.FaceCount),
		Format:     a.header.Format,
	}
}

// Level decodes mip level idx and returns its raw block-compressed bytes
// (all faces concatenated, in DDS/cubemap face order). idx 0 is the
// full-resolution level.
func (a *Archive) Level(idx int) ([]byte, error) {
	levelData, err := a.header.LevelData(a.data, idx)
	if err != nil {
		return nil, errors.Wrapf(err, "crn: level %d data range", idx)
	}
	width, height, ok := a.header.LevelDimensions(idx)
	if !ok {
		return nil, errors.Wrapf(crnerr.New(crnerr.LevelOutOfRange, "level out of range"), "crn: level %d", idx)
	}

	unpackFn, ok := dispatch[a.header.Format]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "format %s", a.header.Format)
	}
	out, err := unpackFn(a.tables, levelData, width, height, int(a.header.FaceCount))
	if err != nil {
		return nil, errors.Wrapf(err, "crn: unpacking level %d", idx)
	}
	return out, nil
}

// BlockSize returns the byte size of one compressed block for the
// archive's format.
func (a *Archive) BlockSize() int {
	return a.header.Format.BlockSize()
}

// dispatch maps each supported container format to its unpacker. Only
// the formats whose block layout this package implements are present;
// anything else is rejected with ErrUnsupportedFormat before any bytes
// are decoded.
var dispatch = map[Format]func(t *tables.Tables, levelData []byte, width, height, faceCount int) ([]byte, error){
	container.FormatDxt1:     dxt1Unpack,
	container.FormatDxt5:     dxt5Unpack,
	container.FormatDxt5CCxY: dxt5Unpack,
	container.FormatDxt5xGxR: dxt5Unpack,
	container.FormatDxt5xGBR: dxt5Unpack,
	container.FormatDxt5AGBR: dxt5Unpack,
	container.FormatDxt5A:    dxt5aUnpack,
	container.FormatDxnXY:    dxnUnpack,
	container.FormatDxnYX:    dxnUnpack,
}

func dxt1Unpack(t *tables.Tables, levelData []byte, width, height, faceCount int) ([]byte, error) {
	return unpack.Dxt1(t, bitio.New(levelData), width, height, faceCount)
}

func dxt5Unpack(t *tables.Tables, levelData []byte, width, height, faceCount int) ([]byte, error) {
	return unpack.Dxt5(t, bitio.New(levelData), width, height, faceCount)
}

func dxt5aUnpack(t *tables.Tables, levelData []byte, width, height, faceCount int) ([]byte, error) {
	return unpack.Dxt5A(t, bitio.New(levelData), width, height, faceCount)
}

func dxnUnpack(t *tables.Tables, levelData []byte, width, height, faceCount int) ([]byte, error) {
	return unpack.Dxn(t, bitio.New(levelData), width, height, faceCount)
}
