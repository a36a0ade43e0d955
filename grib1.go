// Package grib1 locates, validates and decodes meteorological fields stored
// in the GRIB edition-1 binary format. Given a byte stream of concatenated
// messages it finds records matching (parameter, level) criteria and either
// unpacks the grid values into float64s or hands back the exact original
// byte span for downstream storage. Only rotated latitude-longitude grids
// (data representation type 10) with simple packing can be decoded.
package grib1

// Field is a decoded GRIB1 field: a rotated lat-lon grid + float64 values.
// Values are in scan order as dictated by the grid's scanning-mode flags;
// points flagged missing by the bitmap hold math.NaN(). A Field owns its
// data and carries no reference to the source stream.
type Field struct {
	Grid RotatedGrid
	Vals []float64
}

// Lookup returns the nearest-neighbour value at (lat°N, lon°E).
func (f *Field) Lookup(lat, lon float64) float64 {
	return f.Grid.Lookup(lat, lon, f.Vals)
}
