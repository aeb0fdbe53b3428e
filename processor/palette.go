package processor

import (
	"sort"

	"github.com/nci/terrain/utils"
)

var (
	Red     = [3]uint8{255, 0, 0}
	Green   = [3]uint8{0, 255, 0}
	Blue    = [3]uint8{0, 0, 255}
	Yellow  = [3]uint8{255, 255, 0}
	Cyan    = [3]uint8{0, 255, 255}
	Magenta = [3]uint8{255, 0, 255}
	White   = [3]uint8{255, 255, 255}
	Orange  = [3]uint8{255, 165, 0}
	Gray    = [3]uint8{128, 128, 128}
	Black   = [3]uint8{0, 0, 0}

	// SafeGreen is the darker green of the ski touring scheme.
	SafeGreen = [3]uint8{0, 200, 0}
)

// BinScheme maps a scalar to the colour of the half-open interval
// [Edges[i], Edges[i+1]) containing it.
type BinScheme struct {
	Name    string
	Edges   []float64
	Colours [][3]uint8
}

var binSchemes = map[string]*BinScheme{
	"skitour": {
		Name:    "skitour",
		Edges:   []float64{0, 20, 45, 90},
		Colours: [][3]uint8{SafeGreen, Yellow, Red},
	},
	"climbing": {
		Name:    "climbing",
		Edges:   []float64{0, 20, 35, 50, 90},
		Colours: [][3]uint8{Blue, Green, Yellow, Red},
	},
}

// SchemeNames lists the built in slope schemes.
func SchemeNames() []string {
	names := make([]string, 0, len(binSchemes))
	for name := range binSchemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupScheme resolves a scheme name against the custom schemes first,
// then the built in ones.
func LookupScheme(name string, custom []utils.SchemeConfig) (*BinScheme, error) {
	for _, sc := range custom {
		if sc.Name != name {
			continue
		}
		colours, err := sc.RGB()
		if err != nil {
			return nil, err
		}
		return &BinScheme{Name: sc.Name, Edges: sc.Edges, Colours: colours}, nil
	}

	if scheme, ok := binSchemes[name]; ok {
		return scheme, nil
	}
	return nil, &utils.ConfigError{Field: "slope colorization", Value: name, Msg: "unknown scheme"}
}

// Classify returns the colour of the bin holding v. NaN and values
// outside the edges match no bin.
func (s *BinScheme) Classify(v float64) ([3]uint8, bool) {
	for i := 0; i < len(s.Colours); i++ {
		if v >= s.Edges[i] && v < s.Edges[i+1] {
			return s.Colours[i], true
		}
	}
	return Black, false
}

// CompassSector is a half-open range of aspect degrees.
type CompassSector struct {
	Name         string
	Lower, Upper float64
	Colour       [3]uint8
}

// CompassSectors covers [0, 360). North is split across 0 so that
// [337.5, 360) maps to the north colour too.
var CompassSectors = []CompassSector{
	{"N", 0, 22.5, Red},
	{"NE", 22.5, 67.5, Yellow},
	{"E", 67.5, 112.5, Green},
	{"SE", 112.5, 157.5, Cyan},
	{"S", 157.5, 202.5, Blue},
	{"SW", 202.5, 247.5, Magenta},
	{"W", 247.5, 292.5, White},
	{"NW", 292.5, 337.5, Orange},
	{"N", 337.5, 360, Red},
}

// FlatColour is used for cells holding the flat aspect marker.
var FlatColour = Gray

// ClassifyAspect returns the compass colour of an aspect value.
func ClassifyAspect(v float64) ([3]uint8, bool) {
	if v == flatAspect {
		return FlatColour, true
	}
	for _, s := range CompassSectors {
		if v >= s.Lower && v < s.Upper {
			return s.Colour, true
		}
	}
	return Black, false
}
