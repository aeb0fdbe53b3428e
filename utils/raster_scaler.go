package utils

import (
	"fmt"
	"math"
)

// ToFloat32 converts a grid to its storage raster. NaN samples, the
// in-memory invalid marker, are written as noData.
func ToFloat32(g *Grid, noData float64) *Float32Raster {
	out := &Float32Raster{Data: make([]float32, len(g.Data)), Height: g.Height, Width: g.Width, NoData: noData}

	fill := float32(noData)
	for i, value := range g.Data {
		if math.IsNaN(value) {
			out.Data[i] = fill
		} else {
			out.Data[i] = float32(value)
		}
	}
	return out
}

// FromRaster converts a stored band back to a float64 grid.
func FromRaster(r Raster, cellSize float64, geoRef GeoReference) (*Grid, error) {
	switch t := r.(type) {
	case *Float32Raster:
		g := NewGrid(t.Height, t.Width, cellSize, t.NoData, geoRef)
		for i, value := range t.Data {
			g.Data[i] = float64(value)
		}
		return g, nil

	case *ByteRaster:
		g := NewGrid(t.Height, t.Width, cellSize, t.NoData, geoRef)
		for i, value := range t.Data {
			g.Data[i] = float64(value)
		}
		return g, nil

	default:
		return nil, fmt.Errorf("Raster type not implemented")
	}
}

// ColorBands splits a colour grid into three byte bands without nodata.
func ColorBands(c *ColorGrid) []Raster {
	out := make([]Raster, 3)
	for i, band := range [][]uint8{c.R, c.G, c.B} {
		data := make([]uint8, len(band))
		copy(data, band)
		out[i] = &ByteRaster{Data: data, Height: c.Height, Width: c.Width}
	}
	return out
}
