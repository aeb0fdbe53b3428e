package processor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/nci/terrain/metrics"
	"github.com/nci/terrain/terrain"
	"github.com/nci/terrain/utils"
	"golang.org/x/sync/errgroup"
)

// Output product names.
const (
	SlopeDegrees    = "slope_degrees"
	AspectDegrees   = "aspect_degrees"
	AspectColorized = "aspect_colorized"
	SlopeColorized  = "slope_colorized"
	TRIProduct      = "tri"
)

// GridLoader reads the input elevation grid.
type GridLoader interface {
	Load(path string) (*utils.Grid, error)
}

// RasterStore persists either one Float32Raster or three ByteRaster
// bands and returns the path it wrote.
type RasterStore interface {
	Store(basePath string, rs []utils.Raster, geoRef utils.GeoReference) (string, error)
}

// Product is a stored output of a run.
type Product struct {
	Name     string
	Path     string
	Stats    *terrain.Stats
	Counts   map[string]int
	Duration time.Duration
}

type TerrainPipeline struct {
	Config  *utils.PipelineConfig
	Loader  GridLoader
	Store   RasterStore
	Metrics *metrics.MetricsCollector

	scheme      *BinScheme
	expressions []*ExpressionProduct
}

// NewTerrainPipeline validates the configuration. It performs no I/O,
// so every configuration error is reported before the input is read.
func NewTerrainPipeline(config *utils.PipelineConfig, loader GridLoader, store RasterStore, collector *metrics.MetricsCollector) (*TerrainPipeline, error) {
	if _, err := terrain.LookupKernelPair(config.SlopeAlgorithm); err != nil {
		return nil, err
	}

	scheme, err := LookupScheme(config.ColorizeSlope, config.Schemes)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	available := map[string]bool{
		LayerElevation: true,
		LayerSlope:     true,
		LayerAspect:    !config.SkipAspect,
		LayerTRI:       !config.SkipTRI,
	}
	reserved := map[string]bool{SlopeDegrees: true, AspectDegrees: true, AspectColorized: true, SlopeColorized: true, TRIProduct: true}

	var expressions []*ExpressionProduct
	for _, ec := range config.Expressions {
		if reserved[ec.Name] {
			return nil, &utils.ConfigError{Field: "expressions", Value: ec.Name, Msg: "name clashes with a built in product"}
		}
		reserved[ec.Name] = true

		ep, err := ParseExpression(ec, available)
		if err != nil {
			return nil, err
		}
		expressions = append(expressions, ep)
	}

	return &TerrainPipeline{
		Config:      config,
		Loader:      loader,
		Store:       store,
		Metrics:     collector,
		scheme:      scheme,
		expressions: expressions,
	}, nil
}

type gradientCache struct {
	dtm     *utils.Grid
	workers int
	mu      sync.Mutex
	entries map[string]*gradientEntry
}

type gradientEntry struct {
	once sync.Once
	grad *terrain.Gradient
	err  error
}

// get computes the gradient for an algorithm once, whichever engine
// asks first.
func (c *gradientCache) get(algorithm string) (*terrain.Gradient, error) {
	c.mu.Lock()
	e, ok := c.entries[algorithm]
	if !ok {
		e = &gradientEntry{}
		c.entries[algorithm] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		e.grad, e.err = terrain.ComputeGradient(c.dtm, algorithm, c.workers)
	})
	return e.grad, e.err
}

type layer struct {
	grid     *utils.Grid
	err      error
	duration time.Duration
}

// Run loads the input, computes every product and stores them in the
// output directory. Products are stored in a fixed order; when one
// fails the error is returned at once and products stored before it
// remain on disk.
func (p *TerrainPipeline) Run(ctx context.Context) ([]*Product, error) {
	cfg := p.Config
	if err := ctx.Err(); err != nil {
		return nil, p.fail(err)
	}

	dtm, err := p.loadDTM()
	if err != nil {
		return nil, err
	}

	if p.Metrics != nil {
		p.Metrics.Info.Input = cfg.DTM
		p.Metrics.Info.OutputDir = cfg.OutputDir
		p.Metrics.Info.SlopeAlgorithm = cfg.SlopeAlgorithm
		p.Metrics.Info.SlopeScheme = p.scheme.Name
		p.Metrics.Info.Width = dtm.Width
		p.Metrics.Info.Height = dtm.Height
		p.Metrics.Info.CellSize = dtm.CellSize
	}

	grads := &gradientCache{dtm: dtm, workers: cfg.Workers, entries: make(map[string]*gradientEntry)}
	var slope, aspect, tri layer

	var g errgroup.Group
	g.Go(func() error {
		if cfg.Verbose {
			log.Printf("Computing slope (%s)...", cfg.SlopeAlgorithm)
		}
		start := time.Now()
		grad, err := grads.get(cfg.SlopeAlgorithm)
		if err == nil {
			slope.grid = terrain.SlopeFromGradient(grad, cfg.Workers)
		}
		slope.err, slope.duration = err, time.Since(start)
		return err
	})

	if !cfg.SkipAspect {
		g.Go(func() error {
			if cfg.Verbose {
				log.Printf("Computing aspect...")
			}
			start := time.Now()
			grad, err := grads.get(terrain.ZevenbergenThorne)
			if err == nil {
				aspect.grid = terrain.AspectFromGradient(grad, cfg.Workers)
			}
			aspect.err, aspect.duration = err, time.Since(start)
			return err
		})
	}

	if !cfg.SkipTRI {
		g.Go(func() error {
			if cfg.Verbose {
				log.Printf("Computing Terrain Ruggedness Index...")
			}
			start := time.Now()
			tri.grid = terrain.TRI(dtm, cfg.Workers)
			tri.duration = time.Since(start)
			return nil
		})
	}

	if err := g.Wait(); err != nil && cfg.Verbose {
		log.Printf("Terrain engines returned error: %v", err)
	}

	var products []*Product
	emit := func(name string, duration time.Duration, build func() ([]utils.Raster, *Product)) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		rs, prod := build()
		path, err := p.Store.Store(filepath.Join(cfg.OutputDir, name), rs, dtm.GeoRef)
		prod.Name = name
		prod.Path = path
		prod.Duration = duration + time.Since(start)
		p.record(prod, err)
		if err != nil {
			return fmt.Errorf("storing %s: %w", name, err)
		}

		log.Printf("Saved: %s", path)
		products = append(products, prod)
		return nil
	}

	if slope.err != nil {
		return products, p.fail(fmt.Errorf("computing slope: %w", slope.err))
	}
	err = emit(SlopeDegrees, slope.duration, func() ([]utils.Raster, *Product) {
		st := terrain.ComputeStats(slope.grid)
		logStats("Slope", st)
		return []utils.Raster{utils.ToFloat32(slope.grid, terrain.SlopeNoData)}, &Product{Stats: &st}
	})
	if err != nil {
		return products, p.fail(err)
	}

	if !cfg.SkipAspect {
		if aspect.err != nil {
			return products, p.fail(fmt.Errorf("computing aspect: %w", aspect.err))
		}
		err = emit(AspectDegrees, aspect.duration, func() ([]utils.Raster, *Product) {
			st := terrain.ComputeStats(aspect.grid)
			flat, nonFlat := terrain.CountFlat(aspect.grid)
			log.Printf("Aspect: computed for %d non-flat cells, %d flat cells", nonFlat, flat)
			return []utils.Raster{utils.ToFloat32(aspect.grid, terrain.AspectNoData)},
				&Product{Stats: &st, Counts: map[string]int{"flat": flat, "non_flat": nonFlat}}
		})
		if err != nil {
			return products, p.fail(err)
		}

		err = emit(AspectColorized, 0, func() ([]utils.Raster, *Product) {
			rgb := ColorizeAspect(aspect.grid, cfg.Workers)
			n := CountColoured(rgb)
			log.Printf("Colorized aspect: 8 compass directions, %d coloured pixels", n)
			return utils.ColorBands(rgb), &Product{Counts: map[string]int{"coloured": n}}
		})
		if err != nil {
			return products, p.fail(err)
		}
	}

	err = emit(SlopeColorized, 0, func() ([]utils.Raster, *Product) {
		rgb := ColorizeSlope(slope.grid, p.scheme, cfg.Workers)
		n := CountColoured(rgb)
		log.Printf("Colorized slope (%s): %d coloured pixels", p.scheme.Name, n)
		return utils.ColorBands(rgb), &Product{Counts: map[string]int{"coloured": n}}
	})
	if err != nil {
		return products, p.fail(err)
	}

	if !cfg.SkipTRI {
		err = emit(TRIProduct, tri.duration, func() ([]utils.Raster, *Product) {
			st := terrain.ComputeStats(tri.grid)
			logStats("TRI", st)
			return []utils.Raster{utils.ToFloat32(tri.grid, utils.DefaultNoData)}, &Product{Stats: &st}
		})
		if err != nil {
			return products, p.fail(err)
		}
	}

	layers := map[string]*utils.Grid{
		LayerElevation: dtm,
		LayerSlope:     slope.grid,
	}
	if !cfg.SkipAspect {
		layers[LayerAspect] = aspect.grid
	}
	if !cfg.SkipTRI {
		layers[LayerTRI] = tri.grid
	}

	for _, ep := range p.expressions {
		start := time.Now()
		out, err := ep.Evaluate(layers, cfg.Workers)
		if err != nil {
			p.record(&Product{Name: ep.Name}, err)
			return products, p.fail(err)
		}

		err = emit(ep.Name, time.Since(start), func() ([]utils.Raster, *Product) {
			st := terrain.ComputeStats(out)
			logStats(ep.Name, st)
			return []utils.Raster{utils.ToFloat32(out, utils.DefaultNoData)}, &Product{Stats: &st}
		})
		if err != nil {
			return products, p.fail(err)
		}
	}

	return products, nil
}

func (p *TerrainPipeline) loadDTM() (*utils.Grid, error) {
	cfg := p.Config

	if cfg.Verbose {
		log.Printf("Loading DTM from %s...", cfg.DTM)
	}
	dtm, err := p.Loader.Load(cfg.DTM)
	if err != nil {
		var ierr *utils.InputError
		if !errors.As(err, &ierr) {
			err = &utils.InputError{Path: cfg.DTM, Err: err}
		}
		return nil, p.fail(err)
	}

	if cfg.CellSize > 0 {
		dtm.CellSize = cfg.CellSize
	}
	if err := dtm.Validate(); err != nil {
		return nil, p.fail(&utils.InputError{Path: cfg.DTM, Err: err})
	}

	log.Printf("Loaded DTM: %dx%d, cell size: %v, geotransform: %v", dtm.Width, dtm.Height, dtm.CellSize, dtm.GeoRef.GeoTransform)

	if !cfg.KeepNoData {
		dtm = dtm.MaskNoData()
	}
	return dtm, nil
}

func (p *TerrainPipeline) record(prod *Product, err error) {
	if p.Metrics == nil {
		return
	}

	info := &metrics.ProductInfo{
		Name:     prod.Name,
		Path:     prod.Path,
		Duration: prod.Duration,
		Counts:   prod.Counts,
	}
	if prod.Stats != nil {
		st := prod.Stats
		info.Stats = metrics.NewStatsInfo(st.Min, st.Max, st.Mean, st.Valid, st.Invalid)
	}
	if err != nil {
		info.Error = err.Error()
	}
	p.Metrics.AddProduct(info)
}

func (p *TerrainPipeline) fail(err error) error {
	if p.Metrics != nil {
		p.Metrics.SetError(err)
	}
	return err
}

func logStats(name string, st terrain.Stats) {
	log.Printf("%s: %v", name, st)
	if st.Valid == 0 {
		log.Printf("Warning: %s has no valid cells", name)
	} else if st.Degenerate() {
		log.Printf("Warning: %s is constant (%.2f)", name, st.Min)
	}
}
