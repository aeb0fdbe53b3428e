package terrain

import (
	"fmt"
	"math"

	"github.com/nci/terrain/utils"
	"gonum.org/v1/gonum/floats"
)

// Stats summarises the valid (non NaN) samples of a grid. Min, Max and
// Mean are NaN when no sample is valid.
type Stats struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
	Valid   int     `json:"valid"`
	Invalid int     `json:"invalid"`
}

// ComputeStats summarises g, skipping NaN samples.
func ComputeStats(g *utils.Grid) Stats {
	valid := make([]float64, 0, len(g.Data))
	for _, v := range g.Data {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}

	st := Stats{Valid: len(valid), Invalid: len(g.Data) - len(valid)}
	if len(valid) == 0 {
		st.Min, st.Max, st.Mean = math.NaN(), math.NaN(), math.NaN()
		return st
	}

	st.Min = floats.Min(valid)
	st.Max = floats.Max(valid)
	st.Mean = floats.Sum(valid) / float64(len(valid))
	return st
}

// Degenerate reports whether the statistics describe an empty or
// constant grid.
func (s Stats) Degenerate() bool {
	return s.Valid == 0 || s.Min == s.Max
}

func (s Stats) String() string {
	return fmt.Sprintf("min=%.2f, max=%.2f, mean=%.2f (%d valid, %d invalid)", s.Min, s.Max, s.Mean, s.Valid, s.Invalid)
}
