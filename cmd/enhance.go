package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shadewalk/shadewalk/internal/export"
	"github.com/shadewalk/shadewalk/internal/graph"
)

var enhanceFlags struct {
	graphPath  string
	resultPath string
	hour       int
	out        string
	overwrite  bool
}

var enhanceCmd = &cobra.Command{
	Use:   "enhance",
	Short: "Merge classification results into a pedestrian graph",
	Long:  "Adds one hour's shade attributes to every graph edge, preserving any other hours already merged.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("enhance"); err != nil {
			return err
		}

		g, err := graph.Load(enhanceFlags.graphPath)
		if err != nil {
			return err
		}

		result, err := export.ReadJSON(enhanceFlags.resultPath)
		if err != nil {
			return err
		}

		sum, err := g.Enhance(result, enhanceFlags.hour, enhanceFlags.overwrite)
		if err != nil {
			return err
		}

		out := enhanceFlags.out
		if out == "" {
			out = enhanceFlags.graphPath
		}
		if err := g.Save(out); err != nil {
			return err
		}

		stats := g.StatsForHour(enhanceFlags.hour)
		zap.L().Info("graph enhanced",
			zap.String("graph", out),
			zap.Int("hour", enhanceFlags.hour),
			zap.Int("updated", sum.Updated),
			zap.Int("missing", sum.MissingShade),
			zap.Int("shaded_edges", stats.ShadedEdges),
			zap.Float64("avg_shade_fraction", stats.AvgShadeFrac),
		)
		return nil
	},
}

func init() {
	enhanceCmd.Flags().StringVar(&enhanceFlags.graphPath, "graph", "", "pedestrian graph JSON (required)")
	enhanceCmd.Flags().StringVar(&enhanceFlags.resultPath, "result", "", "classification result JSON (required)")
	enhanceCmd.Flags().IntVar(&enhanceFlags.hour, "hour", 9, "simulated hour the result was computed for")
	enhanceCmd.Flags().StringVar(&enhanceFlags.out, "out", "", "output path (default: overwrite input graph)")
	enhanceCmd.Flags().BoolVar(&enhanceFlags.overwrite, "overwrite", false, "replace existing data for the hour")

	_ = enhanceCmd.MarkFlagRequired("graph")
	_ = enhanceCmd.MarkFlagRequired("result")

	rootCmd.AddCommand(enhanceCmd)
}
