// Package features supplies building-footprint geometry to the shadow
// surface provider: a remote GeoJSON feature service, an offline shapefile
// loader, and the single-slot cache that keeps repeat viewport queries from
// re-fetching.
package features

import (
	"strconv"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/shadewalk/shadewalk/internal/model"
)

// DefaultBuildingHeightM is assumed when a feature carries no usable height
// attribute.
const DefaultBuildingHeightM = 10.0

// metersPerLevel converts building:levels counts to heights.
const metersPerLevel = 3.0

// Building is one footprint with a normalized height.
type Building struct {
	ID        string
	Footprint geom.T
	HeightM   float64
}

// FeatureSet is the building geometry for one viewport.
type FeatureSet struct {
	Bounds    model.Bounds
	Buildings []Building
}

// Empty reports whether the set contains no buildings.
func (fs *FeatureSet) Empty() bool {
	return fs == nil || len(fs.Buildings) == 0
}

// FromGeoJSON converts a decoded feature collection into a FeatureSet,
// normalizing missing or malformed heights to DefaultBuildingHeightM.
func FromGeoJSON(fc *geojson.FeatureCollection, bounds model.Bounds) *FeatureSet {
	fs := &FeatureSet{Bounds: bounds}
	for i, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		id := f.ID
		if id == "" {
			id = "building_" + strconv.Itoa(i)
		}
		fs.Buildings = append(fs.Buildings, Building{
			ID:        id,
			Footprint: f.Geometry,
			HeightM:   heightFromProperties(f.Properties),
		})
	}
	return fs
}

// heightFromProperties extracts a height in meters from OSM-style feature
// properties: "height" wins, then "building:levels" x 3m, else the default.
func heightFromProperties(props map[string]any) float64 {
	if h, ok := asMeters(props["height"]); ok && h > 0 {
		return h
	}
	if levels, ok := asMeters(props["building:levels"]); ok && levels > 0 {
		return levels * metersPerLevel
	}
	return DefaultBuildingHeightM
}

// asMeters coerces the loose typing of GeoJSON properties: numbers arrive
// as float64, OSM tags as strings, sometimes with a unit suffix.
func asMeters(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		s := t
		for i, r := range s {
			if (r < '0' || r > '9') && r != '.' && r != '-' {
				s = s[:i]
				break
			}
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
