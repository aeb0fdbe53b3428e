package terrain

import (
	"math"

	"github.com/nci/terrain/utils"
)

// TRI computes the terrain ruggedness index: the root mean square of
// the elevation differences between a cell and its 8 neighbours. The
// outer ring of the output is 0.
func TRI(g *utils.Grid, workers int) *utils.Grid {
	out := g.Derive(utils.DefaultNoData)
	h, w := g.Height, g.Width
	if h < 3 || w < 3 {
		return out
	}

	offsets := [8]int{-w - 1, -w, -w + 1, -1, 1, w - 1, w, w + 1}
	data := g.Data

	utils.ParallelRows(h-2, workers, func(rowStart, rowEnd int) {
		for r := rowStart + 1; r < rowEnd+1; r++ {
			for c := 1; c < w-1; c++ {
				i := r*w + c
				center := data[i]
				var sum float64
				for _, off := range offsets {
					d := center - data[i+off]
					sum += d * d
				}
				out.Data[i] = math.Sqrt(sum / 8)
			}
		}
	})
	return out
}
