// Package terrain implements the raster stencils of the terrain
// analysis pipeline: finite-difference gradients, slope, aspect and the
// terrain ruggedness index. Every function is a pure function of its
// input grid and allocates its own output.
package terrain

import (
	"github.com/nci/terrain/utils"
)

// Kernel is a 3x3 weight matrix indexed [row][col], the centre being
// at [1][1].
type Kernel [3][3]float64

// Convolve applies k to every cell of g:
//
//	out[r][c] = sum over dr, dc in {-1,0,1} of in[r+dr][c+dc] * k[dr+1][dc+1]
//
// Neighbours outside the grid take the constant value cval. With a NaN
// cval the outer ring of the output is NaN. The output grid carries
// NaN as its nodata marker.
func Convolve(g *utils.Grid, k Kernel, cval float64, workers int) *utils.Grid {
	out := g.Derive(cval)
	h, w := g.Height, g.Width

	utils.ParallelRows(h, workers, func(rowStart, rowEnd int) {
		for r := rowStart; r < rowEnd; r++ {
			interiorRow := r > 0 && r < h-1
			for c := 0; c < w; c++ {
				if interiorRow && c > 0 && c < w-1 {
					out.Data[r*w+c] = convolveInterior(g.Data, w, r, c, &k)
				} else {
					out.Data[r*w+c] = convolvePadded(g, r, c, &k, cval)
				}
			}
		}
	})
	return out
}

func convolveInterior(data []float64, w, r, c int, k *Kernel) float64 {
	var sum float64
	for dr := -1; dr <= 1; dr++ {
		base := (r+dr)*w + c
		for dc := -1; dc <= 1; dc++ {
			sum += data[base+dc] * k[dr+1][dc+1]
		}
	}
	return sum
}

func convolvePadded(g *utils.Grid, r, c int, k *Kernel, cval float64) float64 {
	var sum float64
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			rr, cc := r+dr, c+dc
			v := cval
			if rr >= 0 && rr < g.Height && cc >= 0 && cc < g.Width {
				v = g.Data[rr*g.Width+cc]
			}
			sum += v * k[dr+1][dc+1]
		}
	}
	return sum
}

// divide scales g by 1/d in place. Applying the divisor after the
// integer weighted sum keeps flat surfaces at exactly zero.
func divide(g *utils.Grid, d float64, workers int) *utils.Grid {
	w := g.Width
	utils.ParallelRows(g.Height, workers, func(rowStart, rowEnd int) {
		for i := rowStart * w; i < rowEnd*w; i++ {
			g.Data[i] /= d
		}
	})
	return g
}
