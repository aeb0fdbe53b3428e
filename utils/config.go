package utils

import (
	"fmt"
	"io/ioutil"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v2"
)

const (
	DefaultOutputDir      = "./terrain_analysis"
	DefaultSlopeAlgorithm = "zevenbergen_thorne"
	DefaultSlopeScheme    = "skitour"
	DefaultFormat         = "gtiff"
)

// SchemeConfig describes a custom slope classification: one colour
// per half-open interval [Edges[i], Edges[i+1]).
type SchemeConfig struct {
	Name    string    `yaml:"name"`
	Edges   []float64 `yaml:"edges"`
	Colours []string  `yaml:"colours"`
}

// ExpressionConfig names a per-cell expression evaluated over the
// computed products.
type ExpressionConfig struct {
	Name string `yaml:"name"`
	Expr string `yaml:"expr"`
}

// PipelineConfig is the configuration of a terrain analysis run. It can
// be loaded from a YAML document and is then overridden by command line
// flags.
type PipelineConfig struct {
	DTM            string             `yaml:"dtm"`
	OutputDir      string             `yaml:"output_dir"`
	SlopeAlgorithm string             `yaml:"slope_algorithm"`
	ColorizeSlope  string             `yaml:"colorize_slope"`
	SkipAspect     bool               `yaml:"skip_aspect"`
	SkipTRI        bool               `yaml:"skip_tri"`
	Format         string             `yaml:"format"`
	CellSize       float64            `yaml:"cell_size"`
	Workers        int                `yaml:"workers"`
	KeepNoData     bool               `yaml:"keep_nodata"`
	MetricsLogDir  string             `yaml:"metrics_log_dir"`
	ReportTemplate string             `yaml:"report_template"`
	Verbose        bool               `yaml:"verbose"`
	Schemes        []SchemeConfig     `yaml:"schemes"`
	Expressions    []ExpressionConfig `yaml:"expressions"`
}

// NewPipelineConfig returns a configuration holding the defaults.
func NewPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		OutputDir:      DefaultOutputDir,
		SlopeAlgorithm: DefaultSlopeAlgorithm,
		ColorizeSlope:  DefaultSlopeScheme,
		Format:         DefaultFormat,
	}
}

// LoadConfigFile unmarshals a YAML config document on top of the
// defaults.
func (config *PipelineConfig) LoadConfigFile(configFile string) error {
	*config = *NewPipelineConfig()
	cfg, err := ioutil.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("Error while reading config file: %s. Error: %v", configFile, err)
	}

	err = yaml.Unmarshal(cfg, config)
	if err != nil {
		return fmt.Errorf("Error at YAML parsing config document: %s. Error: %v", configFile, err)
	}

	return config.Validate()
}

// Validate checks the fields that can be checked without knowing the
// terrain algorithms and presets.
func (config *PipelineConfig) Validate() error {
	if config.CellSize < 0 || math.IsNaN(config.CellSize) || math.IsInf(config.CellSize, 0) {
		return &ConfigError{Field: "cell_size", Value: fmt.Sprint(config.CellSize), Msg: "must be positive"}
	}
	if config.Workers < 0 {
		return &ConfigError{Field: "workers", Value: fmt.Sprint(config.Workers), Msg: "must not be negative"}
	}

	seen := make(map[string]bool)
	for _, scheme := range config.Schemes {
		if _, err := scheme.RGB(); err != nil {
			return err
		}
		if seen[scheme.Name] {
			return &ConfigError{Field: "schemes", Value: scheme.Name, Msg: "duplicate scheme name"}
		}
		seen[scheme.Name] = true
	}
	return nil
}

// RGB validates the scheme and returns its colours.
func (s SchemeConfig) RGB() ([][3]uint8, error) {
	if len(s.Name) == 0 {
		return nil, &ConfigError{Field: "schemes", Msg: "scheme without a name"}
	}
	if len(s.Edges) < 2 {
		return nil, &ConfigError{Field: "schemes", Value: s.Name, Msg: "at least 2 edges are required"}
	}
	if len(s.Colours) != len(s.Edges)-1 {
		return nil, &ConfigError{Field: "schemes", Value: s.Name,
			Msg: fmt.Sprintf("%d edges need %d colours, got %d", len(s.Edges), len(s.Edges)-1, len(s.Colours))}
	}
	for i := 1; i < len(s.Edges); i++ {
		if !(s.Edges[i] > s.Edges[i-1]) {
			return nil, &ConfigError{Field: "schemes", Value: s.Name, Msg: "edges must be strictly increasing"}
		}
	}

	out := make([][3]uint8, len(s.Colours))
	for i, hex := range s.Colours {
		c, err := colorful.Hex(hex)
		if err != nil {
			return nil, &ConfigError{Field: "schemes", Value: s.Name, Msg: fmt.Sprintf("bad colour %q: %v", hex, err)}
		}
		r, g, b := c.RGB255()
		out[i] = [3]uint8{r, g, b}
	}
	return out, nil
}
