// Package geomath provides the small-scale geographic math used by the
// sampling engine. Edges here are short (well under ~200m), so a flat
// local-tangent-plane approximation is used throughout instead of geodesic
// math. That trade-off is deliberate: the positional error at this scale is
// far below the jitter radius applied to every probe anyway.
package geomath

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/shadewalk/shadewalk/internal/model"
)

// metersPerDegreeLat is the length of one degree of latitude in meters,
// treated as constant (the actual value varies by ~0.5% with latitude).
const metersPerDegreeLat = 111320.0

// MetersToDegrees converts a meter offset at the given latitude to degree
// offsets. Longitude degrees shrink with cos(lat).
func MetersToDegrees(meters, atLat float64) (dLat, dLng float64) {
	dLat = meters / metersPerDegreeLat
	dLng = meters / (metersPerDegreeLat * math.Cos(atLat*math.Pi/180))
	return dLat, dLng
}

// EdgeLength returns the planar-approximation length of the segment a-b in
// meters.
func EdgeLength(a, b model.GeoPoint) float64 {
	meanLat := (a.Lat + b.Lat) / 2
	dy := (b.Lat - a.Lat) * metersPerDegreeLat
	dx := (b.Lng - a.Lng) * metersPerDegreeLat * math.Cos(meanLat*math.Pi/180)
	return math.Hypot(dx, dy)
}

// Interpolate returns the point at parameter t along the segment a-b.
// t=0 is a, t=1 is b. Linear in lat/lng, not geodesic.
func Interpolate(a, b model.GeoPoint, t float64) model.GeoPoint {
	return model.GeoPoint{
		Lat: a.Lat + (b.Lat-a.Lat)*t,
		Lng: a.Lng + (b.Lng-a.Lng)*t,
	}
}

// Jitter applies a random polar offset of up to radiusMeters to p, breaking
// the sampling bias of probing an exact centerline.
func Jitter(p model.GeoPoint, radiusMeters float64, rng *rand.Rand) model.GeoPoint {
	if radiusMeters <= 0 {
		return p
	}
	angle := rng.Float64() * 2 * math.Pi
	dist := rng.Float64() * radiusMeters
	dLat, dLng := MetersToDegrees(dist, p.Lat)
	return model.GeoPoint{
		Lat: p.Lat + dLat*math.Sin(angle),
		Lng: p.Lng + dLng*math.Cos(angle),
	}
}

// InShadow classifies a surface opacity sample: a probe counts as shadowed
// once its opacity reaches the threshold.
func InShadow(opacity uint8, alphaThreshold uint8) bool {
	return opacity >= alphaThreshold
}

// QuantizeBounds rounds bounds to the given number of decimal places and
// renders a stable cache key. Sub-precision viewport wobble (pan inertia,
// float noise from projection round-trips) maps to the same key.
func QuantizeBounds(b model.Bounds, precision int) string {
	q := func(v float64) float64 {
		scale := math.Pow(10, float64(precision))
		return math.Round(v*scale) / scale
	}
	return fmt.Sprintf("%.*f,%.*f,%.*f,%.*f",
		precision, q(b.North),
		precision, q(b.South),
		precision, q(b.East),
		precision, q(b.West),
	)
}
