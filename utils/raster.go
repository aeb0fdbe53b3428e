package utils

import (
	"fmt"
	"math"
)

// DefaultNoData is the nodata value written for float products that do
// not declare their own.
const DefaultNoData = -9999.0

// GeoReference holds the georeferencing of a grid. It is never
// interpreted by the pipeline, only copied from the input grid to
// every product derived from it.
type GeoReference struct {
	GeoTransform [6]float64 `yaml:"geo_transform"`
	Projection   string     `yaml:"projection"`
}

// CellSize returns the x resolution of the geotransform.
func (g GeoReference) CellSize() float64 {
	return math.Abs(g.GeoTransform[1])
}

type Raster interface {
	GetNoData() float64
}

// Grid is a row-major single band of float64 samples.
type Grid struct {
	Data          []float64
	Height, Width int
	CellSize      float64
	NoData        float64
	GeoRef        GeoReference
}

func (g *Grid) GetNoData() float64 {
	return g.NoData
}

// NewGrid allocates a zeroed grid.
func NewGrid(height, width int, cellSize, noData float64, geoRef GeoReference) *Grid {
	return &Grid{
		Data:     make([]float64, height*width),
		Height:   height,
		Width:    width,
		CellSize: cellSize,
		NoData:   noData,
		GeoRef:   geoRef,
	}
}

// Derive allocates an empty grid of the same shape and georeferencing.
func (g *Grid) Derive(noData float64) *Grid {
	return NewGrid(g.Height, g.Width, g.CellSize, noData, g.GeoRef)
}

func (g *Grid) At(row, col int) float64 {
	return g.Data[row*g.Width+col]
}

func (g *Grid) Set(row, col int, v float64) {
	g.Data[row*g.Width+col] = v
}

// Validate checks the grid shape and cell size.
func (g *Grid) Validate() error {
	if g.Height <= 0 || g.Width <= 0 {
		return fmt.Errorf("invalid grid size %dx%d", g.Width, g.Height)
	}
	if len(g.Data) != g.Height*g.Width {
		return fmt.Errorf("grid data length %d does not match %dx%d", len(g.Data), g.Width, g.Height)
	}
	if !(g.CellSize > 0) {
		return fmt.Errorf("invalid cell size: %v", g.CellSize)
	}
	return nil
}

// MaskNoData returns a copy of g in which every sample equal to the
// nodata value is replaced by NaN.
func (g *Grid) MaskNoData() *Grid {
	out := g.Derive(math.NaN())
	for i, v := range g.Data {
		if v == g.NoData {
			out.Data[i] = math.NaN()
		} else {
			out.Data[i] = v
		}
	}
	return out
}

// ColorGrid holds three colour bands of the same shape.
type ColorGrid struct {
	R, G, B       []uint8
	Height, Width int
	GeoRef        GeoReference
}

func NewColorGrid(height, width int, geoRef GeoReference) *ColorGrid {
	return &ColorGrid{
		R:      make([]uint8, height*width),
		G:      make([]uint8, height*width),
		B:      make([]uint8, height*width),
		Height: height,
		Width:  width,
		GeoRef: geoRef,
	}
}

func (c *ColorGrid) Set(i int, rgb [3]uint8) {
	c.R[i] = rgb[0]
	c.G[i] = rgb[1]
	c.B[i] = rgb[2]
}

func (c *ColorGrid) At(i int) [3]uint8 {
	return [3]uint8{c.R[i], c.G[i], c.B[i]}
}

type ByteRaster struct {
	Data          []uint8
	Height, Width int
	NoData        float64
	HasNoData     bool
}

func (r *ByteRaster) GetNoData() float64 {
	return r.NoData
}

type Float32Raster struct {
	Data          []float32
	Height, Width int
	NoData        float64
}

func (r *Float32Raster) GetNoData() float64 {
	return r.NoData
}

// ValidateRasterSlice checks that every raster in rs has the same type
// and size and returns them.
func ValidateRasterSlice(rs []Raster) (int, int, string, error) {
	var width, height int
	var rasterType string

	if len(rs) == 0 {
		return 0, 0, "", fmt.Errorf("Empty raster slice")
	}

	for _, r := range rs {
		var w, h int
		var rType string
		switch t := r.(type) {
		case *ByteRaster:
			w, h, rType = t.Width, t.Height, "Byte"
		case *Float32Raster:
			w, h, rType = t.Width, t.Height, "Float32"
		default:
			return 0, 0, "", fmt.Errorf("Raster type not implemented")
		}

		if rasterType == "" {
			rasterType = rType
		} else if rasterType != rType {
			return 0, 0, "", fmt.Errorf("Mixed types")
		}

		if width == 0 {
			width = w
		} else if width != w {
			return 0, 0, "", fmt.Errorf("Mixed width sizes")
		}

		if height == 0 {
			height = h
		} else if height != h {
			return 0, 0, "", fmt.Errorf("Mixed height sizes")
		}
	}
	return width, height, rasterType, nil
}
