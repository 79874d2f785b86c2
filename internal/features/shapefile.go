package features

import (
	"strconv"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/shadewalk/shadewalk/internal/model"
)

// heightFieldNames are the attribute names probed, in order, for a building
// height on shapefile records.
var heightFieldNames = []string{"height", "height_m", "bldg_hgt", "max_hgt"}

// LoadShapefile reads building footprints from a polygon shapefile,
// keeping only features intersecting bounds. Records without a parseable
// height get DefaultBuildingHeightM.
func LoadShapefile(path string, bounds model.Bounds) (*FeatureSet, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "features: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	heightIdx := -1
	for i, f := range fields {
		name := strings.ToLower(strings.TrimRight(f.String(), "\x00"))
		for _, candidate := range heightFieldNames {
			if name == candidate {
				heightIdx = i
				break
			}
		}
		if heightIdx >= 0 {
			break
		}
	}

	fs := &FeatureSet{Bounds: bounds}
	var skipped int

	for reader.Next() {
		n, shape := reader.Shape()

		poly, ok := shape.(*shp.Polygon)
		if !ok || len(poly.Points) == 0 {
			skipped++
			continue
		}
		box := poly.BBox()
		if box.MaxY < bounds.South || box.MinY > bounds.North ||
			box.MaxX < bounds.West || box.MinX > bounds.East {
			continue
		}

		height := DefaultBuildingHeightM
		if heightIdx >= 0 {
			raw := strings.TrimSpace(strings.TrimRight(reader.Attribute(heightIdx), "\x00"))
			if h, err := strconv.ParseFloat(raw, 64); err == nil && h > 0 {
				height = h
			}
		}

		fs.Buildings = append(fs.Buildings, Building{
			ID:        "building_" + strconv.Itoa(n),
			Footprint: polygonToGeom(poly),
			HeightM:   height,
		})
	}

	if skipped > 0 {
		zap.L().Debug("features: skipped non-polygon shapefile records", zap.Int("skipped", skipped))
	}
	zap.L().Info("features: loaded shapefile",
		zap.String("path", path),
		zap.Int("buildings", len(fs.Buildings)),
	)
	return fs, nil
}

// polygonToGeom converts a shapefile polygon (flat point list with part
// offsets) to a geom.Polygon with one linear ring per part.
func polygonToGeom(p *shp.Polygon) geom.T {
	poly := geom.NewPolygon(geom.XY).SetSRID(4326)

	numParts := int(p.NumParts)
	for i := 0; i < numParts; i++ {
		start := int(p.Parts[i])
		end := len(p.Points)
		if i+1 < numParts {
			end = int(p.Parts[i+1])
		}

		coords := make([]geom.Coord, 0, end-start)
		for j := start; j < end; j++ {
			coords = append(coords, geom.Coord{p.Points[j].X, p.Points[j].Y})
		}
		ring := geom.NewLinearRing(geom.XY)
		if _, err := ring.SetCoords(coords); err != nil {
			continue
		}
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("features: skipping malformed polygon part", zap.Int("part", i), zap.Error(err))
		}
	}
	return poly
}
