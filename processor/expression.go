package processor

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	goeval "github.com/edisonguo/govaluate"
	"github.com/nci/terrain/utils"
)

// Layer names available to expressions.
const (
	LayerElevation = "elevation"
	LayerSlope     = "slope"
	LayerAspect    = "aspect"
	LayerTRI       = "tri"
)

var productNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ExpressionProduct is a per-cell expression over the computed layers.
// Boolean results are stored as 1 and 0.
type ExpressionProduct struct {
	Name string
	Expr string
	Vars []string

	expr *goeval.EvaluableExpression
}

// ParseExpression compiles an expression and checks that every variable
// it references is one of the available layers.
func ParseExpression(cfg utils.ExpressionConfig, available map[string]bool) (*ExpressionProduct, error) {
	if !productNamePattern.MatchString(cfg.Name) {
		return nil, &utils.ConfigError{Field: "expressions", Value: cfg.Name, Msg: "name must match " + productNamePattern.String()}
	}
	if len(strings.TrimSpace(cfg.Expr)) == 0 {
		return nil, &utils.ConfigError{Field: "expressions", Value: cfg.Name, Msg: "empty expression"}
	}

	expr, err := goeval.NewEvaluableExpression(cfg.Expr)
	if err != nil {
		return nil, &utils.ConfigError{Field: "expressions", Value: cfg.Name, Msg: err.Error()}
	}

	seen := make(map[string]struct{})
	var vars []string
	for _, token := range expr.Tokens() {
		if token.Kind != goeval.VARIABLE {
			continue
		}
		varName, ok := token.Value.(string)
		if !ok {
			return nil, fmt.Errorf("variable token '%v' failed to cast string", token.Value)
		}
		if !available[varName] {
			return nil, &utils.ConfigError{Field: "expressions", Value: cfg.Name,
				Msg: fmt.Sprintf("variable %v is not available. Valid variables are %v", varName, availableNames(available))}
		}
		if _, found := seen[varName]; !found {
			seen[varName] = struct{}{}
			vars = append(vars, varName)
		}
	}

	return &ExpressionProduct{Name: cfg.Name, Expr: cfg.Expr, Vars: vars, expr: expr}, nil
}

func availableNames(available map[string]bool) []string {
	var names []string
	for name, ok := range available {
		if ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Evaluate computes the expression for every cell. Cells where any
// referenced layer is NaN are NaN in the output.
func (e *ExpressionProduct) Evaluate(layers map[string]*utils.Grid, workers int) (*utils.Grid, error) {
	var ref *utils.Grid
	bands := make([][]float64, len(e.Vars))
	for i, name := range e.Vars {
		g, ok := layers[name]
		if !ok {
			return nil, fmt.Errorf("expression %s: layer %s was not computed", e.Name, name)
		}
		if ref != nil && (g.Height != ref.Height || g.Width != ref.Width) {
			return nil, fmt.Errorf("expression %s: layer %s has a different size", e.Name, name)
		}
		ref = g
		bands[i] = g.Data
	}
	if ref == nil {
		// constant expression
		ref = layers[LayerElevation]
		if ref == nil {
			return nil, fmt.Errorf("expression %s: no layer to evaluate over", e.Name)
		}
	}

	out := ref.Derive(utils.DefaultNoData)
	w := out.Width

	var errOnce sync.Once
	var evalErr error

	utils.ParallelRows(out.Height, workers, func(rowStart, rowEnd int) {
		params := make(map[string]interface{}, len(e.Vars))
	cells:
		for i := rowStart * w; i < rowEnd*w; i++ {
			for j, name := range e.Vars {
				v := bands[j][i]
				if math.IsNaN(v) {
					out.Data[i] = math.NaN()
					continue cells
				}
				params[name] = v
			}

			res, err := e.expr.Evaluate(params)
			if err == nil {
				out.Data[i], err = toFloat(res)
			}
			if err != nil {
				errOnce.Do(func() { evalErr = fmt.Errorf("expression %s: %v", e.Name, err) })
				return
			}
		}
	})

	if evalErr != nil {
		return nil, evalErr
	}
	return out, nil
}

func toFloat(res interface{}) (float64, error) {
	switch v := res.(type) {
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case float64:
		return v, nil
	default:
		return math.NaN(), fmt.Errorf("unsupported result type %T", res)
	}
}
