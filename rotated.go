package grib1

import "math"

// Scan mode flag bits (GRIB1 flag table 8). The direction bits 0x80/0x40 are
// already reflected in the first/last grid point coordinates, so the grid
// math derives step signs from those; 0x20 switches which axis varies
// fastest in the packed value order.
const scanConsecutiveJ = 0x20

// RotatedGrid holds the parameters of a rotated latitude-longitude grid
// (GRIB1 data representation type 10): a regular lat-lon grid expressed in a
// coordinate system whose pole has been shifted to better fit a regional
// domain.
type RotatedGrid struct {
	Ni, Nj     int     // points per row, number of rows
	Lat1, Lon1 float64 // first grid point, rotated degrees
	Lat2, Lon2 float64 // last grid point, rotated degrees
	Di, Dj     float64 // declared increments, degrees; NaN when not given
	ResFlags   byte
	ScanMode   byte
	PoleLat    float64 // latitude of the southern pole of rotation, true degrees
	PoleLon    float64 // longitude of the southern pole of rotation, true degrees
	Angle      float64 // rotation angle about the new axis, degrees
}

// Points returns the total grid point count.
func (g *RotatedGrid) Points() int { return g.Ni * g.Nj }

// steps returns the per-index coordinate deltas in rotated degrees, derived
// from the first/last point so the scan-direction signs are exact even when
// the declared increments are absent.
func (g *RotatedGrid) steps() (di, dj float64) {
	if g.Ni > 1 {
		di = (g.Lon2 - g.Lon1) / float64(g.Ni-1)
	}
	if g.Nj > 1 {
		dj = (g.Lat2 - g.Lat1) / float64(g.Nj-1)
	}
	return di, dj
}

// pointIJ maps a scan-order linear index to (column, row) indices.
func (g *RotatedGrid) pointIJ(k int) (i, j int) {
	if g.ScanMode&scanConsecutiveJ != 0 {
		return k / g.Nj, k % g.Nj
	}
	return k % g.Ni, k / g.Ni
}

// index maps (column, row) indices to the scan-order linear index.
func (g *RotatedGrid) index(i, j int) int {
	if g.ScanMode&scanConsecutiveJ != 0 {
		return i*g.Nj + j
	}
	return j*g.Ni + i
}

// PointLatLon returns the geographic (lat°N, lon°E) of the grid point at
// scan-order index k. This is the only key linking decoded values back to
// geographic coordinates, so it follows the scanning-mode flags exactly.
func (g *RotatedGrid) PointLatLon(k int) (lat, lon float64) {
	i, j := g.pointIJ(k)
	di, dj := g.steps()
	return g.unrotate(g.Lat1+float64(j)*dj, g.Lon1+float64(i)*di)
}

// LatLonToIJ maps a geographic point to the nearest (column, row) indices.
func (g *RotatedGrid) LatLonToIJ(lat, lon float64) (i, j int) {
	latr, lonr := g.rotate(lat, lon)
	di, dj := g.steps()
	if di != 0 {
		i = int(math.Round((lonr - g.Lon1) / di))
	}
	if dj != 0 {
		j = int(math.Round((latr - g.Lat1) / dj))
	}
	return i, j
}

// Lookup returns the value nearest to (lat°N, lon°E) from vals, which must
// be in scan order. Returns math.NaN() outside the grid.
func (g *RotatedGrid) Lookup(lat, lon float64, vals []float64) float64 {
	i, j := g.LatLonToIJ(lat, lon)
	if i < 0 || i >= g.Ni || j < 0 || j >= g.Nj {
		return math.NaN()
	}
	return vals[g.index(i, j)]
}

// unrotate transforms rotated coordinates to geographic ones. The rotated
// sphere is obtained by tilting the pole so the geographic point
// (PoleLat, PoleLon) becomes the rotated south pole, then spinning by Angle
// about the new axis; this applies the inverse.
func (g *RotatedGrid) unrotate(latr, lonr float64) (lat, lon float64) {
	φ := toRad(latr)
	λ := toRad(lonr + g.Angle)
	θ := toRad(g.PoleLat + 90)

	sinφ, cosφ := math.Sincos(φ)
	sinλ, cosλ := math.Sincos(λ)
	sinθ, cosθ := math.Sincos(θ)

	x := cosθ*cosφ*cosλ - sinθ*sinφ
	y := cosφ * sinλ
	z := sinθ*cosφ*cosλ + cosθ*sinφ

	lat = toDeg(math.Asin(clamp1(z)))
	lon = NormLon(toDeg(math.Atan2(y, x)) + g.PoleLon)
	return lat, lon
}

// rotate transforms geographic coordinates into the rotated system.
func (g *RotatedGrid) rotate(lat, lon float64) (latr, lonr float64) {
	φ := toRad(lat)
	λ := toRad(lon - g.PoleLon)
	θ := toRad(g.PoleLat + 90)

	sinφ, cosφ := math.Sincos(φ)
	sinλ, cosλ := math.Sincos(λ)
	sinθ, cosθ := math.Sincos(θ)

	x := cosθ*cosφ*cosλ + sinθ*sinφ
	y := cosφ * sinλ
	z := -sinθ*cosφ*cosλ + cosθ*sinφ

	latr = toDeg(math.Asin(clamp1(z)))
	lonr = NormLon(toDeg(math.Atan2(y, x)) - g.Angle)
	return latr, lonr
}

// helpers
func toRad(d float64) float64 { return d * math.Pi / 180 }
func toDeg(r float64) float64 { return r * 180 / math.Pi }

// clamp1 keeps asin arguments inside [-1, 1] against rounding drift.
func clamp1(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// NormLon normalizes a longitude to -180..+180. Exported so callers can
// normalize GRIB1 longitudes (which mix 0–360 and signed conventions).
func NormLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}
