package gdalio

// #include <stdlib.h>
// #include "gdal.h"
// #include "cpl_string.h"
// #cgo pkg-config: gdal
import "C"

import (
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"github.com/nci/terrain/utils"
)

var GDALTypes = map[string]C.GDALDataType{"Byte": 1, "Float32": 6, "Float64": 7}

// DefaultCreationOptions are passed to the GTiff driver for every
// stored raster.
var DefaultCreationOptions = []string{"COMPRESS=DEFLATE", "TILED=YES"}

// GeoTIFFStore writes rasters as GeoTIFF files.
type GeoTIFFStore struct {
	CreationOptions []string
}

func NewGeoTIFFStore() *GeoTIFFStore {
	InitGdal()
	return &GeoTIFFStore{CreationOptions: DefaultCreationOptions}
}

// Store writes rs as the bands of basePath.tif. Float32 bands carry
// their nodata value, Byte bands only when HasNoData is set.
func (s *GeoTIFFStore) Store(basePath string, rs []utils.Raster, geoRef utils.GeoReference) (string, error) {
	w, h, rType, err := utils.ValidateRasterSlice(rs)
	if err != nil {
		return "", fmt.Errorf("Error validating raster %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(basePath), 0755); err != nil {
		return "", err
	}
	outPath := basePath + ".tif"

	var files utils.OutputFiles
	if err := s.writeDataset(files.Add(outPath), w, h, rType, rs, geoRef); err != nil {
		files.Discard()
		return "", fmt.Errorf("Error storing %s: %v", outPath, err)
	}
	if err := files.Commit(); err != nil {
		return "", err
	}
	return outPath, nil
}

// writeDataset creates path with the GTiff driver and writes every band.
// The dataset is closed on every return.
func (s *GeoTIFFStore) writeDataset(path string, w, h int, rType string, rs []utils.Raster, geoRef utils.GeoReference) error {
	driverNameC := C.CString("GTiff")
	defer C.free(unsafe.Pointer(driverNameC))
	hDriver := C.GDALGetDriverByName(driverNameC)
	if hDriver == nil {
		return fmt.Errorf("GTiff driver not available")
	}

	var opts **C.char
	for _, opt := range s.CreationOptions {
		optC := C.CString(opt)
		opts = C.CSLAddString(opts, optC)
		C.free(unsafe.Pointer(optC))
	}
	defer C.CSLDestroy(opts)

	pathC := C.CString(path)
	defer C.free(unsafe.Pointer(pathC))

	hDstDS := C.GDALCreate(hDriver, pathC, C.int(w), C.int(h), C.int(len(rs)), GDALTypes[rType], opts)
	if hDstDS == nil {
		return fmt.Errorf("Error creating raster")
	}
	defer C.GDALClose(hDstDS)

	if len(geoRef.Projection) > 0 {
		projWKT := C.CString(geoRef.Projection)
		defer C.free(unsafe.Pointer(projWKT))
		if gerr := C.GDALSetProjection(hDstDS, projWKT); gerr != 0 {
			return fmt.Errorf("Error setting projection")
		}
	}

	geot := geoRef.GeoTransform
	C.GDALSetGeoTransform(hDstDS, (*C.double)(&geot[0]))

	for i, r := range rs {
		hBand := C.GDALGetRasterBand(hDstDS, C.int(i+1))
		gerr := C.CPLErr(0)
		switch t := r.(type) {
		case *utils.ByteRaster:
			if t.HasNoData {
				C.GDALSetRasterNoDataValue(hBand, C.double(t.NoData))
			}
			gerr = C.GDALRasterIO(hBand, C.GF_Write, 0, 0, C.int(t.Width), C.int(t.Height), unsafe.Pointer(&t.Data[0]), C.int(t.Width), C.int(t.Height), C.GDT_Byte, 0, 0)

		case *utils.Float32Raster:
			C.GDALSetRasterNoDataValue(hBand, C.double(t.NoData))
			gerr = C.GDALRasterIO(hBand, C.GF_Write, 0, 0, C.int(t.Width), C.int(t.Height), unsafe.Pointer(&t.Data[0]), C.int(t.Width), C.int(t.Height), C.GDT_Float32, 0, 0)

		default:
			return fmt.Errorf("Unsupported gdal data type")
		}

		if gerr != 0 {
			return fmt.Errorf("Error writing raster band %d", i)
		}
	}
	return nil
}
