package terrain

import (
	"math"

	"github.com/nci/terrain/utils"
)

const (
	// FlatAspect marks cells whose slope is below FlatSlopeThreshold.
	FlatAspect = -1.0

	// FlatSlopeThreshold is in degrees.
	FlatSlopeThreshold = 1.0

	// AspectNoData is the nodata value of stored aspect grids. It is
	// the flat marker as well.
	AspectNoData = FlatAspect
)

func aspectDegrees(gx, gy float64) float64 {
	deg := math.Atan2(gy, -gx) * 180 / math.Pi
	return math.Mod(math.Mod(deg, 360)+360, 360)
}

// AspectFromGradient computes aspect in [0, 360) from grad. Angles are
// counter-clockwise from the column axis of the grid, not compass
// bearings: 0 is a surface falling toward increasing column index, 90
// one falling toward row 0, 180 toward column 0 and 270 toward the last
// row. Flatness is decided from the slope of the same gradient, never
// from a slope grid computed elsewhere.
func AspectFromGradient(grad *Gradient, workers int) *utils.Grid {
	out := grad.X.Derive(AspectNoData)
	w := out.Width

	utils.ParallelRows(out.Height, workers, func(rowStart, rowEnd int) {
		for i := rowStart * w; i < rowEnd*w; i++ {
			gx, gy := grad.X.Data[i], grad.Y.Data[i]
			if slopeDegrees(gx, gy) < FlatSlopeThreshold {
				out.Data[i] = FlatAspect
			} else {
				out.Data[i] = aspectDegrees(gx, gy)
			}
		}
	})
	return out
}

// Aspect computes the aspect of g. It always uses the
// Zevenbergen-Thorne kernels, whatever slope algorithm is in use.
func Aspect(g *utils.Grid, workers int) (*utils.Grid, error) {
	grad, err := ComputeGradient(g, ZevenbergenThorne, workers)
	if err != nil {
		return nil, err
	}
	return AspectFromGradient(grad, workers), nil
}

// CountFlat returns the number of flat and non-flat cells of an aspect
// grid. NaN cells are in neither count.
func CountFlat(aspect *utils.Grid) (flat, nonFlat int) {
	for _, v := range aspect.Data {
		switch {
		case v == FlatAspect:
			flat++
		case !math.IsNaN(v):
			nonFlat++
		}
	}
	return flat, nonFlat
}
