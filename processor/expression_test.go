package processor

import (
	"errors"
	"math"
	"testing"

	"github.com/nci/terrain/utils"
)

func TestParseExpression(t *testing.T) {
	available := map[string]bool{LayerElevation: true, LayerSlope: true, LayerAspect: false, LayerTRI: true}

	ep, err := ParseExpression(utils.ExpressionConfig{Name: "steep_rough", Expr: "slope > 30 && tri > slope / 10"}, available)
	if err != nil {
		t.Fatalf("ParseExpression() error: %v", err)
	}
	if len(ep.Vars) != 2 || ep.Vars[0] != LayerSlope || ep.Vars[1] != LayerTRI {
		t.Errorf("expecting vars [slope tri], actual %v", ep.Vars)
	}

	bad := []utils.ExpressionConfig{
		{Name: "north", Expr: "aspect < 45"},
		{Name: "wet", Expr: "rainfall > 2"},
		{Name: "bad name", Expr: "slope"},
		{Name: "empty", Expr: "  "},
		{Name: "syntax", Expr: "slope >"},
	}
	for _, cfg := range bad {
		_, err := ParseExpression(cfg, available)
		var cerr *utils.ConfigError
		if !errors.As(err, &cerr) {
			t.Errorf("%s: expecting a ConfigError, actual %v", cfg.Name, err)
		}
	}
}

func TestEvaluateExpression(t *testing.T) {
	elevation := utils.NewGrid(2, 2, 1, utils.DefaultNoData, utils.GeoReference{})
	slope := elevation.Derive(utils.DefaultNoData)
	copy(elevation.Data, []float64{1000, 2000, 1500, 2500})
	copy(slope.Data, []float64{10, 40, math.NaN(), 35})
	layers := map[string]*utils.Grid{LayerElevation: elevation, LayerSlope: slope}
	available := map[string]bool{LayerElevation: true, LayerSlope: true}

	ep, err := ParseExpression(utils.ExpressionConfig{Name: "steep_high", Expr: "slope > 30 && elevation > 1800"}, available)
	if err != nil {
		t.Fatal(err)
	}
	out, err := ep.Evaluate(layers, 1)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if out.Data[0] != 0 || out.Data[1] != 1 || !math.IsNaN(out.Data[2]) || out.Data[3] != 1 {
		t.Errorf("unexpected result %v", out.Data)
	}
	if out.NoData != utils.DefaultNoData {
		t.Errorf("expecting nodata %v, actual %v", utils.DefaultNoData, out.NoData)
	}

	ep, _ = ParseExpression(utils.ExpressionConfig{Name: "relief", Expr: "elevation / 1000 + slope"}, available)
	out, err = ep.Evaluate(layers, 2)
	if err != nil {
		t.Fatal(err)
	}
	if out.Data[0] != 11 || out.Data[3] != 37.5 {
		t.Errorf("unexpected result %v", out.Data)
	}
}
