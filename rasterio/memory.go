// Package rasterio holds the pure Go raster stores: an in-memory store
// and an Esri ASCII grid store. The GDAL backed store lives in gdalio.
package rasterio

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/nci/terrain/utils"
)

type memoryEntry struct {
	rasters []utils.Raster
	geoRef  utils.GeoReference
}

// MemoryStore keeps stored rasters in a map keyed by path.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memoryEntry)}
}

// Put registers a grid so it can be loaded back, as an input DTM.
func (s *MemoryStore) Put(path string, g *utils.Grid) {
	data := make([]float64, len(g.Data))
	copy(data, g.Data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[path] = &memoryEntry{
		rasters: []utils.Raster{&utils.Grid{Data: data, Height: g.Height, Width: g.Width, CellSize: g.CellSize, NoData: g.NoData, GeoRef: g.GeoRef}},
		geoRef:  g.GeoRef,
	}
}

func (s *MemoryStore) Store(basePath string, rs []utils.Raster, geoRef utils.GeoReference) (string, error) {
	if _, _, _, err := utils.ValidateRasterSlice(rs); err != nil {
		return "", fmt.Errorf("Error validating raster %v", err)
	}

	copies := make([]utils.Raster, len(rs))
	for i, r := range rs {
		switch t := r.(type) {
		case *utils.Float32Raster:
			data := make([]float32, len(t.Data))
			copy(data, t.Data)
			copies[i] = &utils.Float32Raster{Data: data, Height: t.Height, Width: t.Width, NoData: t.NoData}
		case *utils.ByteRaster:
			data := make([]uint8, len(t.Data))
			copy(data, t.Data)
			copies[i] = &utils.ByteRaster{Data: data, Height: t.Height, Width: t.Width, NoData: t.NoData, HasNoData: t.HasNoData}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[basePath] = &memoryEntry{rasters: copies, geoRef: geoRef}
	return basePath, nil
}

// Load returns the first band stored under path.
func (s *MemoryStore) Load(path string) (*utils.Grid, error) {
	s.mu.RLock()
	entry, ok := s.entries[path]
	s.mu.RUnlock()
	if !ok {
		return nil, &os.PathError{Op: "load", Path: path, Err: os.ErrNotExist}
	}

	switch t := entry.rasters[0].(type) {
	case *utils.Grid:
		out := t.Derive(t.NoData)
		copy(out.Data, t.Data)
		return out, nil
	default:
		return utils.FromRaster(t, entry.geoRef.CellSize(), entry.geoRef)
	}
}

// Rasters returns the bands stored under path.
func (s *MemoryStore) Rasters(path string) ([]utils.Raster, utils.GeoReference, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[path]
	if !ok {
		return nil, utils.GeoReference{}, false
	}
	return entry.rasters, entry.geoRef, true
}

// Paths lists every stored path in lexical order.
func (s *MemoryStore) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := make([]string, 0, len(s.entries))
	for p := range s.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
