package terrain

import (
	"math"

	"github.com/nci/terrain/utils"
)

// SlopeNoData is written in place of the invalid border ring.
const SlopeNoData = -9999.0

func slopeDegrees(gx, gy float64) float64 {
	return math.Atan(math.Sqrt(gx*gx+gy*gy)) * 180 / math.Pi
}

// SlopeFromGradient returns the slope in degrees for every cell of the
// gradient. Cells with a NaN gradient stay NaN.
func SlopeFromGradient(grad *Gradient, workers int) *utils.Grid {
	out := grad.X.Derive(SlopeNoData)
	w := out.Width

	utils.ParallelRows(out.Height, workers, func(rowStart, rowEnd int) {
		for i := rowStart * w; i < rowEnd*w; i++ {
			out.Data[i] = slopeDegrees(grad.X.Data[i], grad.Y.Data[i])
		}
	})
	return out
}

// Slope computes the slope of g in degrees with the named algorithm.
func Slope(g *utils.Grid, algorithm string, workers int) (*utils.Grid, error) {
	grad, err := ComputeGradient(g, algorithm, workers)
	if err != nil {
		return nil, err
	}
	return SlopeFromGradient(grad, workers), nil
}
