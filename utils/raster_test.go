package utils

import (
	"math"
	"testing"
)

func TestMaskNoData(t *testing.T) {
	g := NewGrid(2, 2, 1, -9999, GeoReference{})
	copy(g.Data, []float64{1, -9999, 3, 4})

	masked := g.MaskNoData()
	if !math.IsNaN(masked.Data[1]) || masked.Data[0] != 1 {
		t.Errorf("unexpected masked grid %v", masked.Data)
	}
	if g.Data[1] != -9999 {
		t.Errorf("MaskNoData must not modify its input")
	}
}

func TestToFloat32(t *testing.T) {
	g := NewGrid(1, 3, 1, -9999, GeoReference{})
	copy(g.Data, []float64{math.NaN(), 12.5, -1})

	r := ToFloat32(g, -1)
	if r.NoData != -1 || r.Data[0] != -1 || r.Data[1] != 12.5 || r.Data[2] != -1 {
		t.Errorf("unexpected raster %+v", r)
	}

	back, err := FromRaster(r, 2, GeoReference{})
	if err != nil {
		t.Fatal(err)
	}
	if back.CellSize != 2 || back.NoData != -1 || back.Data[1] != 12.5 {
		t.Errorf("unexpected grid %+v", back)
	}
}

func TestValidateRasterSlice(t *testing.T) {
	f := &Float32Raster{Data: make([]float32, 6), Height: 2, Width: 3}
	b := &ByteRaster{Data: make([]uint8, 6), Height: 2, Width: 3}

	w, h, rType, err := ValidateRasterSlice([]Raster{b, b, b})
	if err != nil || w != 3 || h != 2 || rType != "Byte" {
		t.Errorf("unexpected result %d %d %s %v", w, h, rType, err)
	}

	if _, _, _, err := ValidateRasterSlice(nil); err == nil {
		t.Errorf("expecting an error for an empty slice")
	}
	if _, _, _, err := ValidateRasterSlice([]Raster{f, b}); err == nil {
		t.Errorf("expecting an error for mixed types")
	}
	small := &Float32Raster{Data: make([]float32, 2), Height: 1, Width: 2}
	if _, _, _, err := ValidateRasterSlice([]Raster{f, small}); err == nil {
		t.Errorf("expecting an error for mixed sizes")
	}
}

func TestParallelRows(t *testing.T) {
	for _, workers := range []int{0, 1, 3, 16} {
		seen := make([]int, 100)
		ParallelRows(len(seen), workers, func(rowStart, rowEnd int) {
			for r := rowStart; r < rowEnd; r++ {
				seen[r]++
			}
		})
		for r, n := range seen {
			if n != 1 {
				t.Errorf("workers=%d: row %d visited %d times", workers, r, n)
			}
		}
	}
}
