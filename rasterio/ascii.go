package rasterio

import (
	"bufio"
	"fmt"
	"image"
	"image/png"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nci/terrain/utils"
	"gopkg.in/yaml.v2"
)

// sidecar keeps the exact metadata next to a stored raster, which the
// ASCII grid header can only approximate.
type sidecar struct {
	Bands    int                `yaml:"bands"`
	DataType string             `yaml:"data_type"`
	NoData   *float64           `yaml:"nodata,omitempty"`
	GeoRef   utils.GeoReference `yaml:"geo_reference"`
}

// ASCIIStore writes single band rasters as Esri ASCII grids (.asc) and
// colour rasters as PNG images with a world file (.pgw). Both get a
// YAML sidecar holding the full georeferencing.
type ASCIIStore struct{}

func NewASCIIStore() *ASCIIStore {
	return &ASCIIStore{}
}

func sidecarPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".yaml"
}

func (s *ASCIIStore) Store(basePath string, rs []utils.Raster, geoRef utils.GeoReference) (string, error) {
	_, _, rType, err := utils.ValidateRasterSlice(rs)
	if err != nil {
		return "", fmt.Errorf("Error validating raster %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(basePath), 0755); err != nil {
		return "", err
	}

	var files utils.OutputFiles
	outPath, err := s.write(&files, basePath, rs, rType, geoRef)
	if err != nil {
		files.Discard()
		return "", err
	}
	if err := files.Commit(); err != nil {
		return "", err
	}
	return outPath, nil
}

func (s *ASCIIStore) write(files *utils.OutputFiles, basePath string, rs []utils.Raster, rType string, geoRef utils.GeoReference) (string, error) {
	switch {
	case rType == "Float32" && len(rs) == 1:
		r := rs[0].(*utils.Float32Raster)
		outPath := basePath + ".asc"
		if err := writeASCIIGrid(files.Add(outPath), r, geoRef); err != nil {
			return "", err
		}
		noData := r.NoData
		return outPath, writeSidecar(files.Add(sidecarPath(outPath)), &sidecar{Bands: 1, DataType: rType, NoData: &noData, GeoRef: geoRef})

	case rType == "Byte" && len(rs) == 3:
		outPath := basePath + ".png"
		if err := writeRGBPNG(files.Add(outPath), rs); err != nil {
			return "", err
		}
		if err := writeWorldFile(files.Add(basePath+".pgw"), geoRef); err != nil {
			return "", err
		}
		return outPath, writeSidecar(files.Add(sidecarPath(outPath)), &sidecar{Bands: 3, DataType: rType, GeoRef: geoRef})

	default:
		return "", fmt.Errorf("Cannot store %d %s bands as ASCII grid or PNG", len(rs), rType)
	}
}

func checkAxisAligned(geoRef utils.GeoReference) error {
	gt := geoRef.GeoTransform
	if gt[2] != 0 || gt[4] != 0 {
		return fmt.Errorf("rotated geotransforms are not supported: %v", gt)
	}
	if gt[1] <= 0 || gt[5] >= 0 {
		return fmt.Errorf("expecting a north up geotransform: %v", gt)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeASCIIGrid(path string, r *utils.Float32Raster, geoRef utils.GeoReference) error {
	if err := checkAxisAligned(geoRef); err != nil {
		return err
	}
	gt := geoRef.GeoTransform

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "ncols        %d\n", r.Width)
	fmt.Fprintf(w, "nrows        %d\n", r.Height)
	fmt.Fprintf(w, "xllcorner    %s\n", formatFloat(gt[0]))
	fmt.Fprintf(w, "yllcorner    %s\n", formatFloat(gt[3]+gt[5]*float64(r.Height)))
	if gt[1] == -gt[5] {
		fmt.Fprintf(w, "cellsize     %s\n", formatFloat(gt[1]))
	} else {
		fmt.Fprintf(w, "dx           %s\n", formatFloat(gt[1]))
		fmt.Fprintf(w, "dy           %s\n", formatFloat(-gt[5]))
	}
	fmt.Fprintf(w, "NODATA_value %s\n", formatFloat(r.NoData))

	for row := 0; row < r.Height; row++ {
		for col := 0; col < r.Width; col++ {
			if col > 0 {
				w.WriteByte(' ')
			}
			w.WriteString(strconv.FormatFloat(float64(r.Data[row*r.Width+col]), 'g', -1, 32))
		}
		w.WriteByte('\n')
	}

	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func writeRGBPNG(path string, rs []utils.Raster) error {
	rasterR := rs[0].(*utils.ByteRaster)
	rasterG := rs[1].(*utils.ByteRaster)
	rasterB := rs[2].(*utils.ByteRaster)

	canvas := image.NewRGBA(image.Rect(0, 0, rasterR.Width, rasterR.Height))
	for i := 0; i < rasterR.Width*rasterR.Height; i++ {
		start := i * 4
		canvas.Pix[start] = rasterR.Data[i]
		canvas.Pix[start+1] = rasterG.Data[i]
		canvas.Pix[start+2] = rasterB.Data[i]
		canvas.Pix[start+3] = 0xff
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := png.Encode(f, canvas); err != nil {
		return err
	}
	return f.Close()
}

// writeWorldFile writes the six line world file, whose origin is the
// centre of the top left pixel.
func writeWorldFile(path string, geoRef utils.GeoReference) error {
	gt := geoRef.GeoTransform
	lines := []float64{
		gt[1],
		gt[4],
		gt[2],
		gt[5],
		gt[0] + gt[1]/2 + gt[2]/2,
		gt[3] + gt[4]/2 + gt[5]/2,
	}

	var b strings.Builder
	for _, v := range lines {
		b.WriteString(formatFloat(v))
		b.WriteByte('\n')
	}
	return ioutil.WriteFile(path, []byte(b.String()), 0644)
}

func writeSidecar(path string, sc *sidecar) error {
	out, err := yaml.Marshal(sc)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, out, 0644)
}

func readSidecar(path string) (*sidecar, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc := &sidecar{}
	if err := yaml.Unmarshal(raw, sc); err != nil {
		return nil, fmt.Errorf("Error at YAML parsing %s: %v", path, err)
	}
	return sc, nil
}

type asciiHeader struct {
	ncols, nrows int
	xll, yll     float64
	center       bool
	dx, dy       float64
	noData       float64
}

// Load reads an Esri ASCII grid. The sidecar, when present, overrides
// the georeferencing derived from the header and a .prj file provides
// the projection otherwise.
func (s *ASCIIStore) Load(path string) (*utils.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	scanner.Split(bufio.ScanWords)

	hdr := asciiHeader{noData: utils.DefaultNoData}
	var first string
	for scanner.Scan() {
		key := scanner.Text()
		if !isHeaderKey(key) {
			first = key
			break
		}
		if !scanner.Scan() {
			return nil, fmt.Errorf("%s: missing value for %s", path, key)
		}
		if err := hdr.set(strings.ToLower(key), scanner.Text()); err != nil {
			return nil, fmt.Errorf("%s: %v", path, err)
		}
	}
	if hdr.ncols <= 0 || hdr.nrows <= 0 || hdr.dx <= 0 || hdr.dy <= 0 {
		return nil, fmt.Errorf("%s: incomplete ASCII grid header", path)
	}

	xll, yll := hdr.xll, hdr.yll
	if hdr.center {
		xll -= hdr.dx / 2
		yll -= hdr.dy / 2
	}
	geoRef := utils.GeoReference{
		GeoTransform: [6]float64{xll, hdr.dx, 0, yll + hdr.dy*float64(hdr.nrows), 0, -hdr.dy},
	}
	noData := hdr.noData

	if sc, err := readSidecar(sidecarPath(path)); err == nil {
		geoRef = sc.GeoRef
		if sc.NoData != nil {
			noData = *sc.NoData
		}
	} else if prj, err := ioutil.ReadFile(strings.TrimSuffix(path, filepath.Ext(path)) + ".prj"); err == nil {
		geoRef.Projection = strings.TrimSpace(string(prj))
	}

	g := utils.NewGrid(hdr.nrows, hdr.ncols, geoRef.CellSize(), noData, geoRef)
	n := 0
	if len(first) > 0 {
		v, err := strconv.ParseFloat(first, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: bad value %q", path, first)
		}
		g.Data[n] = v
		n++
	}
	for scanner.Scan() {
		if n >= len(g.Data) {
			return nil, fmt.Errorf("%s: more than %d values", path, len(g.Data))
		}
		v, err := strconv.ParseFloat(scanner.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: bad value %q", path, scanner.Text())
		}
		g.Data[n] = v
		n++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if n != len(g.Data) {
		return nil, fmt.Errorf("%s: expecting %d values, found %d", path, len(g.Data), n)
	}
	return g, nil
}

var headerKeys = map[string]bool{
	"ncols": true, "nrows": true,
	"xllcorner": true, "yllcorner": true, "xllcenter": true, "yllcenter": true,
	"cellsize": true, "dx": true, "dy": true, "nodata_value": true,
}

// isHeaderKey reports whether tok names a header field. Any other token,
// including nan or inf, starts the data section.
func isHeaderKey(tok string) bool {
	return headerKeys[strings.ToLower(tok)]
}

func (h *asciiHeader) set(key, value string) error {
	switch key {
	case "ncols", "nrows":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("bad %s %q", key, value)
		}
		if key == "ncols" {
			h.ncols = n
		} else {
			h.nrows = n
		}
		return nil
	}

	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("bad %s %q", key, value)
	}
	switch key {
	case "xllcorner":
		h.xll = v
	case "yllcorner":
		h.yll = v
	case "xllcenter":
		h.xll, h.center = v, true
	case "yllcenter":
		h.yll, h.center = v, true
	case "cellsize":
		h.dx, h.dy = v, v
	case "dx":
		h.dx = v
	case "dy":
		h.dy = v
	case "nodata_value":
		h.noData = v
	default:
		return fmt.Errorf("unknown header key %q", key)
	}
	return nil
}

// LoadColor reads back a colour raster written by Store.
func (s *ASCIIStore) LoadColor(path string) (*utils.ColorGrid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}

	var geoRef utils.GeoReference
	if sc, err := readSidecar(sidecarPath(path)); err == nil {
		geoRef = sc.GeoRef
	}

	b := img.Bounds()
	out := utils.NewColorGrid(b.Dy(), b.Dx(), geoRef)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out.Set(y*b.Dx()+x, [3]uint8{uint8(r >> 8), uint8(g >> 8), uint8(bl >> 8)})
		}
	}
	return out, nil
}
