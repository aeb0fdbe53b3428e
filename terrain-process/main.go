package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/nci/terrain/gdalio"
	"github.com/nci/terrain/metrics"
	"github.com/nci/terrain/processor"
	"github.com/nci/terrain/rasterio"
	"github.com/nci/terrain/terrain"
	"github.com/nci/terrain/utils"
)

var (
	dtmPath        = flag.String("dtm", "", "Path to the input DTM.")
	outputDir      = flag.String("output-dir", utils.DefaultOutputDir, "Output directory.")
	skipTRI        = flag.Bool("skip-tri", false, "Skip the Terrain Ruggedness Index.")
	skipAspect     = flag.Bool("skip-aspect", false, "Skip aspect and its colorization.")
	slopeAlgorithm = flag.String("slope-algorithm", utils.DefaultSlopeAlgorithm, "Slope algorithm: "+strings.Join(terrain.Algorithms(), ", ")+".")
	colorizeSlope  = flag.String("colorize-slope", utils.DefaultSlopeScheme, "Slope colour scheme: "+strings.Join(processor.SchemeNames(), ", ")+" or a scheme of the config file.")
	configFile     = flag.String("conf", "", "YAML config file. Flags given on the command line override it.")
	format         = flag.String("format", utils.DefaultFormat, "Output format: gtiff, aaigrid or memory for a dry run.")
	cellSize       = flag.Float64("cell-size", 0, "Override the cell size of the input DTM.")
	workers        = flag.Int("workers", 0, "Number of parallel row bands, defaults to the number of CPUs.")
	metricsLogDir  = flag.String("metrics-log-dir", "", "Run metrics directory, - for stdout.")
	reportTemplate = flag.String("report-template", "", "Jet template of the run report.")
	verbose        = flag.Bool("verbose", false, "Verbose mode for more outputs.")
)

var (
	Error *log.Logger
	Info  *log.Logger
)

func init() {
	Error = log.New(os.Stderr, "TERRAIN: ", log.Ldate|log.Ltime|log.Lshortfile)
	Info = log.New(os.Stdout, "TERRAIN: ", log.Ldate|log.Ltime|log.Lshortfile)
}

// loadConfig builds the run configuration from the config file, if any,
// with the flags set on the command line applied on top.
func loadConfig() (*utils.PipelineConfig, error) {
	config := utils.NewPipelineConfig()
	if len(*configFile) > 0 {
		if err := config.LoadConfigFile(*configFile); err != nil {
			return nil, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dtm":
			config.DTM = *dtmPath
		case "output-dir":
			config.OutputDir = *outputDir
		case "skip-tri":
			config.SkipTRI = *skipTRI
		case "skip-aspect":
			config.SkipAspect = *skipAspect
		case "slope-algorithm":
			config.SlopeAlgorithm = *slopeAlgorithm
		case "colorize-slope":
			config.ColorizeSlope = *colorizeSlope
		case "format":
			config.Format = *format
		case "cell-size":
			config.CellSize = *cellSize
		case "workers":
			config.Workers = *workers
		case "metrics-log-dir":
			config.MetricsLogDir = *metricsLogDir
		case "report-template":
			config.ReportTemplate = *reportTemplate
		case "verbose":
			config.Verbose = *verbose
		}
	})

	if len(config.DTM) == 0 {
		return nil, &utils.ConfigError{Field: "dtm", Msg: "an input DTM is required"}
	}
	return config, nil
}

func newLoader(path string) processor.GridLoader {
	if strings.EqualFold(filepath.Ext(path), ".asc") {
		return rasterio.NewASCIIStore()
	}
	return gdalio.NewGeoTIFFStore()
}

func newStore(format string) (processor.RasterStore, error) {
	switch strings.ToLower(format) {
	case "gtiff", "geotiff":
		return gdalio.NewGeoTIFFStore(), nil
	case "aaigrid", "ascii":
		return rasterio.NewASCIIStore(), nil
	case "memory":
		return rasterio.NewMemoryStore(), nil
	default:
		return nil, &utils.ConfigError{Field: "format", Value: format, Msg: "valid formats are gtiff, aaigrid and memory"}
	}
}

func newMetricsLogger(logDir string, verbose bool) (metrics.Logger, func(), error) {
	if len(logDir) == 0 {
		return nil, func() {}, nil
	}
	if logDir == "-" {
		return metrics.NewStdoutLogger(), func() {}, nil
	}

	maxLogFileSize := int64(0)
	if val, ok := os.LookupEnv("TERRAIN_MAX_LOG_FILE_SIZE"); ok {
		valInt, e := strconv.ParseInt(val, 10, 64)
		if e == nil {
			maxLogFileSize = valInt
		} else {
			Error.Printf("invalid TERRAIN_MAX_LOG_FILE_SIZE: %v", e)
		}
	}

	maxLogFiles := -1
	if val, ok := os.LookupEnv("TERRAIN_MAX_LOG_FILES"); ok {
		valInt, e := strconv.ParseInt(val, 10, 32)
		if e == nil {
			maxLogFiles = int(valInt)
		} else {
			Error.Printf("invalid TERRAIN_MAX_LOG_FILES: %v", e)
		}
	}

	logger, err := metrics.NewFileLogger(logDir, maxLogFileSize, maxLogFiles, verbose)
	if err != nil {
		return nil, nil, err
	}
	return logger, logger.Close, nil
}

func report(config *utils.PipelineConfig, runID string, products []*processor.Product) {
	data := processor.NewReportData(runID, config.DTM, config.OutputDir, products)
	if len(config.ReportTemplate) == 0 {
		fmt.Print(processor.PlainReport(data))
		return
	}

	resolver := utils.NewRuntimeFileResolver(os.Getenv("TERRAIN_TEMPLATE_PATH"))
	tplPath, err := resolver.Lookup(config.ReportTemplate)
	if err != nil {
		Error.Printf("%v", err)
		fmt.Print(processor.PlainReport(data))
		return
	}

	out, err := processor.RenderReport(tplPath, data)
	if err != nil {
		Error.Printf("%v", err)
		fmt.Print(processor.PlainReport(data))
		return
	}
	fmt.Print(out)
}

// newPipeline checks the configuration, then the input path, so a bad
// algorithm or scheme name is reported even when the input is missing.
func newPipeline(config *utils.PipelineConfig, collector *metrics.MetricsCollector) (*processor.TerrainPipeline, error) {
	store, err := newStore(config.Format)
	if err != nil {
		return nil, err
	}

	pipeline, err := processor.NewTerrainPipeline(config, newLoader(config.DTM), store, collector)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(config.DTM); err != nil {
		return nil, &utils.InputError{Path: config.DTM, Err: err}
	}
	return pipeline, nil
}

func run() int {
	flag.Parse()

	config, err := loadConfig()
	if err != nil {
		Error.Printf("%v", err)
		return 1
	}

	metricsLogger, closeLogger, err := newMetricsLogger(config.MetricsLogDir, config.Verbose)
	if err != nil {
		Error.Printf("%v", err)
		return 1
	}
	defer closeLogger()

	collector := metrics.NewMetricsCollector(metricsLogger)
	defer collector.Log()

	pipeline, err := newPipeline(config, collector)
	if err != nil {
		collector.SetError(err)
		Error.Printf("%v", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if config.Verbose {
		Info.Printf("run %s: %s -> %s", collector.Info.RunID, config.DTM, config.OutputDir)
	}

	products, err := pipeline.Run(ctx)
	if err != nil {
		var cerr *utils.ConfigError
		var ierr *utils.InputError
		switch {
		case errors.As(err, &cerr), errors.As(err, &ierr):
			Error.Printf("%v", err)
		default:
			Error.Printf("terrain analysis failed: %v", err)
		}
		return 1
	}

	report(config, collector.Info.RunID, products)
	return 0
}

func main() {
	os.Exit(run())
}
