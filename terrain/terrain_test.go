package terrain

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/nci/terrain/utils"
)

const eps = 1e-9

var testGeoRef = utils.GeoReference{
	GeoTransform: [6]float64{600000, 2, 0, 5100000, 0, -2},
	Projection:   `PROJCS["WGS 84 / UTM zone 32N"]`,
}

func newTestGrid(height, width int, cellSize float64, f func(r, c int) float64) *utils.Grid {
	g := utils.NewGrid(height, width, cellSize, utils.DefaultNoData, testGeoRef)
	for r := 0; r < height; r++ {
		for c := 0; c < width; c++ {
			g.Set(r, c, f(r, c))
		}
	}
	return g
}

func randomGrid(seed int64, height, width int) *utils.Grid {
	rnd := rand.New(rand.NewSource(seed))
	return newTestGrid(height, width, 1, func(r, c int) float64 {
		return 500 + 50*rnd.Float64() + float64(r)*0.7
	})
}

func isBorder(g *utils.Grid, r, c int) bool {
	return r == 0 || c == 0 || r == g.Height-1 || c == g.Width-1
}

func TestConvolveConstantPadding(t *testing.T) {
	g := newTestGrid(3, 3, 1, func(r, c int) float64 { return float64(r*3 + c + 1) })
	ones := Kernel{{1, 1, 1}, {1, 1, 1}, {1, 1, 1}}

	out := Convolve(g, ones, math.NaN(), 1)
	if out.At(1, 1) != 45 {
		t.Errorf("centre: expecting 45, actual %v", out.At(1, 1))
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if isBorder(out, r, c) && !math.IsNaN(out.At(r, c)) {
				t.Errorf("border (%d,%d): expecting NaN, actual %v", r, c, out.At(r, c))
			}
		}
	}

	out = Convolve(g, ones, 0, 1)
	// 1 + 2 + 4 + 5
	if out.At(0, 0) != 12 {
		t.Errorf("corner with zero padding: expecting 12, actual %v", out.At(0, 0))
	}
	// three padded neighbours below the last row
	out = Convolve(g, ones, -1, 1)
	if out.At(2, 1) != 4+5+6+7+8+9-3 {
		t.Errorf("edge with -1 padding: expecting %v, actual %v", 4+5+6+7+8+9-3, out.At(2, 1))
	}
}

func TestConvolveIsCorrelation(t *testing.T) {
	g := newTestGrid(3, 3, 1, func(r, c int) float64 {
		if r == 1 && c == 2 {
			return 1
		}
		return 0
	})
	k := Kernel{{0, 0, 0}, {0, 0, 5}, {0, 0, 0}}
	out := Convolve(g, k, math.NaN(), 1)
	if out.At(1, 1) != 5 {
		t.Errorf("expecting the right neighbour to be weighted by k[1][2], actual %v", out.At(1, 1))
	}
}

func TestUnknownAlgorithm(t *testing.T) {
	g := newTestGrid(4, 4, 1, func(r, c int) float64 { return 0 })
	_, err := Slope(g, "sobel", 1)
	var cerr *utils.ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expecting a ConfigError, actual %v", err)
	}
	if cerr.Value != "sobel" {
		t.Errorf("expecting the bad name in the error, actual %q", cerr.Value)
	}
}

func TestSlopeFlat(t *testing.T) {
	g := newTestGrid(6, 7, 1, func(r, c int) float64 { return 1234.5 })
	for _, alg := range Algorithms() {
		slope, err := Slope(g, alg, 2)
		if err != nil {
			t.Fatalf("%s: %v", alg, err)
		}
		for r := 0; r < g.Height; r++ {
			for c := 0; c < g.Width; c++ {
				v := slope.At(r, c)
				if isBorder(g, r, c) {
					if !math.IsNaN(v) {
						t.Errorf("%s: border (%d,%d) expecting NaN, actual %v", alg, r, c, v)
					}
				} else if v != 0 {
					t.Errorf("%s: (%d,%d) expecting 0, actual %v", alg, r, c, v)
				}
			}
		}
	}
}

func TestSlopePlane(t *testing.T) {
	tests := []struct {
		gx, gy, cellSize float64
	}{
		{0.3, -0.2, 2},
		{1, 0, 1},
		{0, 0.5, 0.5},
		{-2.5, 1.5, 10},
	}

	for _, tc := range tests {
		g := newTestGrid(8, 9, tc.cellSize, func(r, c int) float64 {
			return 100 + tc.gx*tc.cellSize*float64(c) + tc.gy*tc.cellSize*float64(r)
		})
		expected := math.Atan(math.Sqrt(tc.gx*tc.gx+tc.gy*tc.gy)) * 180 / math.Pi

		for _, alg := range Algorithms() {
			slope, err := Slope(g, alg, 1)
			if err != nil {
				t.Fatalf("%s: %v", alg, err)
			}
			for r := 1; r < g.Height-1; r++ {
				for c := 1; c < g.Width-1; c++ {
					if math.Abs(slope.At(r, c)-expected) > eps {
						t.Errorf("%s gx=%v gy=%v: (%d,%d) expecting %v, actual %v", alg, tc.gx, tc.gy, r, c, expected, slope.At(r, c))
					}
				}
			}
		}
	}
}

func TestSlopeRange(t *testing.T) {
	g := randomGrid(7, 40, 30)
	for _, alg := range Algorithms() {
		slope, _ := Slope(g, alg, 3)
		for i, v := range slope.Data {
			if math.IsNaN(v) {
				continue
			}
			if v < 0 || v >= 90 {
				t.Errorf("%s: cell %d out of range: %v", alg, i, v)
			}
		}
	}
}

func TestAspectFlat(t *testing.T) {
	g := newTestGrid(5, 5, 1, func(r, c int) float64 { return 42 })
	aspect, err := Aspect(g, 1)
	if err != nil {
		t.Fatal(err)
	}
	for r := 1; r < 4; r++ {
		for c := 1; c < 4; c++ {
			if aspect.At(r, c) != FlatAspect {
				t.Errorf("(%d,%d) expecting %v, actual %v", r, c, FlatAspect, aspect.At(r, c))
			}
		}
	}
	if aspect.NoData != FlatAspect {
		t.Errorf("aspect nodata must be the flat marker, actual %v", aspect.NoData)
	}
}

func TestAspectCardinalPlanes(t *testing.T) {
	tests := []struct {
		name     string
		z        func(r, c int) float64
		expected float64
	}{
		{"decreasing along columns", func(r, c int) float64 { return -float64(c) }, 0},
		{"increasing along rows", func(r, c int) float64 { return float64(r) }, 90},
		{"increasing along columns", func(r, c int) float64 { return float64(c) }, 180},
		{"decreasing along rows", func(r, c int) float64 { return -float64(r) }, 270},
	}

	for _, tc := range tests {
		g := newTestGrid(5, 6, 1, tc.z)
		aspect, err := Aspect(g, 1)
		if err != nil {
			t.Fatal(err)
		}
		for r := 1; r < g.Height-1; r++ {
			for c := 1; c < g.Width-1; c++ {
				if math.Abs(aspect.At(r, c)-tc.expected) > eps {
					t.Errorf("%s: (%d,%d) expecting %v, actual %v", tc.name, r, c, tc.expected, aspect.At(r, c))
				}
			}
		}
	}
}

func TestAspectFlatThreshold(t *testing.T) {
	// tan(0.9 deg) and tan(1.1 deg) rises per cell
	below := math.Tan(0.9 * math.Pi / 180)
	above := math.Tan(1.1 * math.Pi / 180)

	g := newTestGrid(3, 3, 1, func(r, c int) float64 { return below * float64(c) })
	aspect, _ := Aspect(g, 1)
	if aspect.At(1, 1) != FlatAspect {
		t.Errorf("0.9 degree slope: expecting flat, actual %v", aspect.At(1, 1))
	}

	g = newTestGrid(3, 3, 1, func(r, c int) float64 { return above * float64(c) })
	aspect, _ = Aspect(g, 1)
	if math.Abs(aspect.At(1, 1)-180) > eps {
		t.Errorf("1.1 degree slope: expecting 180, actual %v", aspect.At(1, 1))
	}
}

func TestAspectUsesOwnGradient(t *testing.T) {
	g := randomGrid(11, 30, 25)

	aspect, err := Aspect(g, 2)
	if err != nil {
		t.Fatal(err)
	}

	zt, _ := ComputeGradient(g, ZevenbergenThorne, 1)
	shared := AspectFromGradient(zt, 1)
	for i := range aspect.Data {
		a, b := aspect.Data[i], shared.Data[i]
		if !(a == b || math.IsNaN(a) && math.IsNaN(b)) {
			t.Fatalf("cell %d: %v != %v", i, a, b)
		}
	}

	for i, v := range aspect.Data {
		if math.IsNaN(v) || v == FlatAspect {
			continue
		}
		if v < 0 || v >= 360 {
			t.Errorf("cell %d out of range: %v", i, v)
		}
	}
}

func TestCountFlat(t *testing.T) {
	g := newTestGrid(4, 4, 1, func(r, c int) float64 { return 0 })
	aspect, _ := Aspect(g, 1)
	flat, nonFlat := CountFlat(aspect)
	if flat != 4 || nonFlat != 0 {
		t.Errorf("expecting 4 flat and 0 non-flat cells, actual %d and %d", flat, nonFlat)
	}
}

func TestTRIFlat(t *testing.T) {
	g := newTestGrid(6, 5, 1, func(r, c int) float64 { return 250 })
	tri := TRI(g, 1)
	for i, v := range tri.Data {
		if v != 0 {
			t.Errorf("cell %d: expecting 0, actual %v", i, v)
		}
	}
}

func TestTRIValues(t *testing.T) {
	g := newTestGrid(3, 3, 1, func(r, c int) float64 {
		if r == 1 && c == 1 {
			return 1
		}
		return 0
	})
	tri := TRI(g, 1)
	if tri.At(1, 1) != 1 {
		t.Errorf("expecting 1, actual %v", tri.At(1, 1))
	}

	g = randomGrid(3, 50, 40)
	tri = TRI(g, 4)
	for r := 0; r < g.Height; r++ {
		for c := 0; c < g.Width; c++ {
			if isBorder(g, r, c) {
				if tri.At(r, c) != 0 {
					t.Errorf("border (%d,%d): expecting 0, actual %v", r, c, tri.At(r, c))
				}
				continue
			}

			center := g.At(r, c)
			var diffs []float64
			for dr := -1; dr <= 1; dr++ {
				for dc := -1; dc <= 1; dc++ {
					if dr == 0 && dc == 0 {
						continue
					}
					d := center - g.At(r+dr, c+dc)
					diffs = append(diffs, d*d)
				}
			}
			var sum float64
			for _, d := range diffs {
				sum += d
			}
			expected := math.Sqrt(sum / 8)
			if math.Abs(tri.At(r, c)-expected) > eps {
				t.Errorf("(%d,%d): expecting %v, actual %v", r, c, expected, tri.At(r, c))
			}
		}
	}
}

func TestTRISmallGrid(t *testing.T) {
	g := newTestGrid(2, 7, 1, func(r, c int) float64 { return float64(r * c) })
	tri := TRI(g, 1)
	for i, v := range tri.Data {
		if v != 0 {
			t.Errorf("cell %d: expecting 0, actual %v", i, v)
		}
	}
}

func TestParallelBandsMatchSerial(t *testing.T) {
	g := randomGrid(5, 131, 57)

	serial, _ := Slope(g, Horn, 1)
	parallel, _ := Slope(g, Horn, 8)
	for i := range serial.Data {
		a, b := serial.Data[i], parallel.Data[i]
		if !(a == b || math.IsNaN(a) && math.IsNaN(b)) {
			t.Fatalf("slope cell %d: %v != %v", i, a, b)
		}
	}

	triSerial := TRI(g, 1)
	triParallel := TRI(g, 8)
	for i := range triSerial.Data {
		if triSerial.Data[i] != triParallel.Data[i] {
			t.Fatalf("tri cell %d: %v != %v", i, triSerial.Data[i], triParallel.Data[i])
		}
	}
}

func TestNoDataPropagates(t *testing.T) {
	g := newTestGrid(5, 5, 1, func(r, c int) float64 { return float64(r + c) })
	g.Set(2, 2, utils.DefaultNoData)
	masked := g.MaskNoData()

	slope, _ := Slope(masked, ZevenbergenThorne, 1)
	for r := 1; r < 4; r++ {
		for c := 1; c < 4; c++ {
			if !math.IsNaN(slope.At(r, c)) {
				t.Errorf("(%d,%d) next to a nodata cell: expecting NaN, actual %v", r, c, slope.At(r, c))
			}
		}
	}

	if g.At(2, 2) != utils.DefaultNoData {
		t.Errorf("MaskNoData must not modify its input")
	}
}

func TestStats(t *testing.T) {
	g := newTestGrid(2, 2, 1, func(r, c int) float64 { return float64(r*2 + c) })
	g.Set(1, 1, math.NaN())
	st := ComputeStats(g)
	if st.Min != 0 || st.Max != 2 || st.Mean != 1 || st.Valid != 3 || st.Invalid != 1 {
		t.Errorf("unexpected stats: %+v", st)
	}

	empty := newTestGrid(2, 2, 1, func(r, c int) float64 { return math.NaN() })
	st = ComputeStats(empty)
	if st.Valid != 0 || !math.IsNaN(st.Mean) || !st.Degenerate() {
		t.Errorf("unexpected stats for an all-NaN grid: %+v", st)
	}

	zero := TRI(newTestGrid(4, 4, 1, func(r, c int) float64 { return 3 }), 1)
	st = ComputeStats(zero)
	if st.Min != 0 || st.Max != 0 || st.Mean != 0 || !st.Degenerate() {
		t.Errorf("unexpected stats for an all-zero grid: %+v", st)
	}
}
