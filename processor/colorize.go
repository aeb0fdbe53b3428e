package processor

import (
	"github.com/nci/terrain/terrain"
	"github.com/nci/terrain/utils"
)

const flatAspect = terrain.FlatAspect

func colorize(g *utils.Grid, workers int, classify func(float64) ([3]uint8, bool)) *utils.ColorGrid {
	out := utils.NewColorGrid(g.Height, g.Width, g.GeoRef)
	w := g.Width

	utils.ParallelRows(g.Height, workers, func(rowStart, rowEnd int) {
		for i := rowStart * w; i < rowEnd*w; i++ {
			if rgb, ok := classify(g.Data[i]); ok {
				out.Set(i, rgb)
			}
		}
	})
	return out
}

// ColorizeSlope classifies every slope cell with scheme.
func ColorizeSlope(slope *utils.Grid, scheme *BinScheme, workers int) *utils.ColorGrid {
	return colorize(slope, workers, scheme.Classify)
}

// ColorizeAspect classifies every aspect cell into the eight compass
// sectors, flat cells being gray.
func ColorizeAspect(aspect *utils.Grid, workers int) *utils.ColorGrid {
	return colorize(aspect, workers, ClassifyAspect)
}

// CountColoured returns the number of cells that are not black.
func CountColoured(c *utils.ColorGrid) int {
	n := 0
	for i := range c.R {
		if c.R[i] != 0 || c.G[i] != 0 || c.B[i] != 0 {
			n++
		}
	}
	return n
}
