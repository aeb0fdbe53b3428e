package gdalio

// #include <stdlib.h>
// #include "gdal.h"
// #cgo pkg-config: gdal
import "C"

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/nci/terrain/utils"
)

// Load reads the first band of a GDAL dataset as float64 together with
// its geotransform, projection and nodata value.
func (s *GeoTIFFStore) Load(path string) (*utils.Grid, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	pathC := C.CString(path)
	defer C.free(unsafe.Pointer(pathC))

	ds := C.GDALOpen(pathC, C.GA_ReadOnly)
	if ds == nil {
		return nil, fmt.Errorf("Failed to open dataset: %s", path)
	}
	defer C.GDALClose(ds)

	if C.GDALGetRasterCount(ds) < 1 {
		return nil, fmt.Errorf("%s has no raster bands", path)
	}

	width := int(C.GDALGetRasterXSize(ds))
	height := int(C.GDALGetRasterYSize(ds))

	var geoRef utils.GeoReference
	geot := &geoRef.GeoTransform
	if gerr := C.GDALGetGeoTransform(ds, (*C.double)(&geot[0])); gerr != 0 {
		return nil, fmt.Errorf("%s has no geotransform", path)
	}
	geoRef.Projection = C.GoString(C.GDALGetProjectionRef(ds))

	hBand := C.GDALGetRasterBand(ds, 1)
	var hasNoData C.int
	noData := float64(C.GDALGetRasterNoDataValue(hBand, &hasNoData))
	if hasNoData == 0 {
		noData = utils.DefaultNoData
	}

	g := utils.NewGrid(height, width, geoRef.CellSize(), noData, geoRef)
	gerr := C.GDALRasterIO(hBand, C.GF_Read, 0, 0, C.int(width), C.int(height), unsafe.Pointer(&g.Data[0]), C.int(width), C.int(height), C.GDT_Float64, 0, 0)
	if gerr != 0 {
		return nil, fmt.Errorf("Error reading raster band of %s", path)
	}
	return g, nil
}

// LoadBands reads every band of a byte dataset, used for the colour
// products.
func (s *GeoTIFFStore) LoadBands(path string) ([]*utils.ByteRaster, error) {
	pathC := C.CString(path)
	defer C.free(unsafe.Pointer(pathC))

	ds := C.GDALOpen(pathC, C.GA_ReadOnly)
	if ds == nil {
		return nil, fmt.Errorf("Failed to open dataset: %s", path)
	}
	defer C.GDALClose(ds)

	width := int(C.GDALGetRasterXSize(ds))
	height := int(C.GDALGetRasterYSize(ds))

	var bands []*utils.ByteRaster
	for i := 1; i <= int(C.GDALGetRasterCount(ds)); i++ {
		hBand := C.GDALGetRasterBand(ds, C.int(i))
		r := &utils.ByteRaster{Data: make([]uint8, width*height), Height: height, Width: width}
		var hasNoData C.int
		r.NoData = float64(C.GDALGetRasterNoDataValue(hBand, &hasNoData))
		r.HasNoData = hasNoData != 0
		gerr := C.GDALRasterIO(hBand, C.GF_Read, 0, 0, C.int(width), C.int(height), unsafe.Pointer(&r.Data[0]), C.int(width), C.int(height), C.GDT_Byte, 0, 0)
		if gerr != 0 {
			return nil, fmt.Errorf("Error reading band %d of %s", i, path)
		}
		bands = append(bands, r)
	}
	return bands, nil
}
