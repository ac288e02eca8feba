package structure

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const mrcHeaderSize = 1024

// MRC/CCP4 data modes this reader understands.
const (
	mrcModeInt8    = 0
	mrcModeInt16   = 1
	mrcModeFloat32 = 2
)

// mrcHeader mirrors the 1024 byte MRC2014 header.
type mrcHeader struct {
	NX, NY, NZ                int32
	Mode                      int32
	NXStart, NYStart, NZStart int32
	MX, MY, MZ                int32
	CellA                     [3]float32
	CellB                     [3]float32
	MapC, MapR, MapS          int32
	DMin, DMax, DMean         float32
	ISPG                      int32
	NSymBT                    int32
	Extra                     [25]int32
	Origin                    [3]float32
	Map                       [4]byte
	MachSt                    [4]byte
	RMS                       float32
	NLabl                     int32
	Labels                    [10][80]byte
}

// ReadMRC reads an MRC or CCP4 density map. Only the standard axis order
// (columns=x, rows=y, sections=z) is supported.
func ReadMRC(r io.Reader) (*Volume, error) {
	raw := make([]byte, mrcHeaderSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var order binary.ByteOrder = binary.LittleEndian
	if raw[212] == 0x11 {
		order = binary.BigEndian
	}
	var h mrcHeader
	if err := binary.Read(bytes.NewReader(raw), order, &h); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}

	if h.NX <= 0 || h.NY <= 0 || h.NZ <= 0 {
		return nil, fmt.Errorf("invalid grid size %dx%dx%d", h.NX, h.NY, h.NZ)
	}
	if (h.MapC != 0 || h.MapR != 0 || h.MapS != 0) && (h.MapC != 1 || h.MapR != 2 || h.MapS != 3) {
		return nil, fmt.Errorf("unsupported axis order %d,%d,%d", h.MapC, h.MapR, h.MapS)
	}
	if h.NSymBT > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(h.NSymBT)); err != nil {
			return nil, fmt.Errorf("skip extended header: %w", err)
		}
	}

	n := int(h.NX) * int(h.NY) * int(h.NZ)
	data := make([]float32, n)
	switch h.Mode {
	case mrcModeFloat32:
		if err := binary.Read(r, order, data); err != nil {
			return nil, fmt.Errorf("read voxels: %w", err)
		}
	case mrcModeInt16:
		buf := make([]int16, n)
		if err := binary.Read(r, order, buf); err != nil {
			return nil, fmt.Errorf("read voxels: %w", err)
		}
		for i, v := range buf {
			data[i] = float32(v)
		}
	case mrcModeInt8:
		buf := make([]int8, n)
		if err := binary.Read(r, order, buf); err != nil {
			return nil, fmt.Errorf("read voxels: %w", err)
		}
		for i, v := range buf {
			data[i] = float32(v)
		}
	default:
		return nil, fmt.Errorf("unsupported data mode %d", h.Mode)
	}

	vol := &Volume{
		Size: [3]int{int(h.NX), int(h.NY), int(h.NZ)},
		Data: data,
	}
	vol.Step = [3]float64{
		cellStep(h.CellA[0], h.MX, h.NX),
		cellStep(h.CellA[1], h.MY, h.NY),
		cellStep(h.CellA[2], h.MZ, h.NZ),
	}
	if h.Origin != [3]float32{} {
		vol.Origin = Coord{X: float64(h.Origin[0]), Y: float64(h.Origin[1]), Z: float64(h.Origin[2])}
	} else {
		vol.Origin = Coord{
			X: float64(h.NXStart) * vol.Step[0],
			Y: float64(h.NYStart) * vol.Step[1],
			Z: float64(h.NZStart) * vol.Step[2],
		}
	}
	for _, s := range vol.Step {
		if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, errors.New("invalid voxel size in header")
		}
	}
	return vol, nil
}

// cellStep is the voxel size along one axis: cell length over sampling.
// A zero sampling falls back to the grid size.
func cellStep(cell float32, sampling, size int32) float64 {
	if sampling <= 0 {
		sampling = size
	}
	return float64(cell) / float64(sampling)
}
