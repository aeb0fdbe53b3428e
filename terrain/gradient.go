package terrain

import (
	"math"

	"github.com/nci/terrain/utils"
)

// Slope algorithm names.
const (
	ZevenbergenThorne = "zevenbergen_thorne"
	Horn              = "horn"
)

// KernelPair is a pair of x/y finite-difference kernels before scaling
// by the cell size.
type KernelPair struct {
	Name    string
	X, Y    Kernel
	Divisor float64
}

var kernelPairs = map[string]KernelPair{
	ZevenbergenThorne: {
		Name:    ZevenbergenThorne,
		X:       Kernel{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}},
		Y:       Kernel{{-1, -2, -1}, {0, 0, 0}, {1, 2, 1}},
		Divisor: 8,
	},
	Horn: {
		Name:    Horn,
		X:       Kernel{{-1, 0, 1}, {-1, 0, 1}, {-1, 0, 1}},
		Y:       Kernel{{-1, -1, -1}, {0, 0, 0}, {1, 1, 1}},
		Divisor: 6,
	},
}

// Algorithms lists the accepted slope algorithm names.
func Algorithms() []string {
	return []string{ZevenbergenThorne, Horn}
}

// LookupKernelPair returns the kernel pair registered under name.
func LookupKernelPair(name string) (KernelPair, error) {
	kp, ok := kernelPairs[name]
	if !ok {
		return KernelPair{}, &utils.ConfigError{Field: "slope algorithm", Value: name,
			Msg: "valid algorithms are zevenbergen_thorne and horn"}
	}
	return kp, nil
}

// Gradient holds the x and y derivatives of a grid. Both grids carry NaN
// on their outer ring.
type Gradient struct {
	Algorithm string
	X, Y      *utils.Grid
}

// ComputeGradient convolves g with the kernel pair named algorithm,
// scaled by the grid cell size, padding with NaN.
func ComputeGradient(g *utils.Grid, algorithm string, workers int) (*Gradient, error) {
	kp, err := LookupKernelPair(algorithm)
	if err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	d := kp.Divisor * g.CellSize
	return &Gradient{
		Algorithm: kp.Name,
		X:         divide(Convolve(g, kp.X, math.NaN(), workers), d, workers),
		Y:         divide(Convolve(g, kp.Y, math.NaN(), workers), d, workers),
	}, nil
}
