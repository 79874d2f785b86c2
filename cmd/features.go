package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/shadewalk/shadewalk/internal/features"
	"github.com/shadewalk/shadewalk/internal/model"
)

var featuresFlags struct {
	north     float64
	south     float64
	east      float64
	west      float64
	shapefile string
	out       string
}

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Fetch building footprints for a viewport",
	Long:  "Loads the building geometry a shadow surface is rendered from, either from the configured feature service or from a local shapefile.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if featuresFlags.shapefile != "" {
			cfg.Features.ShapefilePath = featuresFlags.shapefile
		}
		if err := cfg.Validate("features"); err != nil {
			return err
		}

		bounds := model.Bounds{
			North: featuresFlags.north,
			South: featuresFlags.south,
			East:  featuresFlags.east,
			West:  featuresFlags.west,
		}

		var (
			fs  *features.FeatureSet
			err error
		)
		if cfg.Features.ShapefilePath != "" {
			fs, err = features.LoadShapefile(cfg.Features.ShapefilePath, bounds)
		} else {
			cache := features.NewCache(features.NewClient(features.ClientOptions{
				BaseURL:        cfg.Features.BaseURL,
				Timeout:        time.Duration(cfg.Features.TimeoutSecs) * time.Second,
				RequestsPerSec: cfg.Features.RatePerSec,
			}), features.CacheOptions{FailOpen: cfg.Features.FailOpen})
			fs, err = cache.GetFeatures(cmd.Context(), bounds)
		}
		if err != nil {
			return err
		}

		var totalHeight float64
		for _, b := range fs.Buildings {
			totalHeight += b.HeightM
		}
		avgHeight := 0.0
		if len(fs.Buildings) > 0 {
			avgHeight = totalHeight / float64(len(fs.Buildings))
		}
		zap.L().Info("features loaded",
			zap.Int("buildings", len(fs.Buildings)),
			zap.Float64("avg_height_m", avgHeight),
		)

		if featuresFlags.out != "" {
			return writeFeatureCollection(fs, featuresFlags.out)
		}
		return nil
	},
}

// writeFeatureCollection exports the footprints as a GeoJSON file.
func writeFeatureCollection(fs *features.FeatureSet, path string) error {
	fc := geojson.FeatureCollection{}
	for _, b := range fs.Buildings {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         b.ID,
			Geometry:   b.Footprint,
			Properties: map[string]any{"height_m": b.HeightM},
		})
	}

	raw, err := json.MarshalIndent(&fc, "", "  ")
	if err != nil {
		return eris.Wrap(err, "encode feature collection")
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return eris.Wrapf(err, "write %s", path)
	}
	return nil
}

func init() {
	featuresCmd.Flags().Float64Var(&featuresFlags.north, "north", 0, "viewport north latitude")
	featuresCmd.Flags().Float64Var(&featuresFlags.south, "south", 0, "viewport south latitude")
	featuresCmd.Flags().Float64Var(&featuresFlags.east, "east", 0, "viewport east longitude")
	featuresCmd.Flags().Float64Var(&featuresFlags.west, "west", 0, "viewport west longitude")
	featuresCmd.Flags().StringVar(&featuresFlags.shapefile, "shapefile", "", "local building shapefile instead of the remote service")
	featuresCmd.Flags().StringVar(&featuresFlags.out, "out", "", "write footprints as GeoJSON to this file")

	_ = featuresCmd.MarkFlagRequired("north")
	_ = featuresCmd.MarkFlagRequired("south")
	_ = featuresCmd.MarkFlagRequired("east")
	_ = featuresCmd.MarkFlagRequired("west")

	rootCmd.AddCommand(featuresCmd)
}
