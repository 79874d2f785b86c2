package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shadewalk/shadewalk/internal/export"
	"github.com/shadewalk/shadewalk/internal/model"
	"github.com/shadewalk/shadewalk/internal/scheduler"
)

var analyzeFlags struct {
	edgesPath string
	maskPath  string
	north     float64
	south     float64
	east      float64
	west      float64
	hour      int
	label     string
	out       string
	format    string
	seed      uint64
	record    bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Classify edge shade against a rendered shadow mask",
	Long:  "Samples every edge in the input list against the shadow mask and writes the classification results.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		edges, err := loadEdges(analyzeFlags.edgesPath)
		if err != nil {
			return err
		}

		bounds := model.Bounds{
			North: analyzeFlags.north,
			South: analyzeFlags.south,
			East:  analyzeFlags.east,
			West:  analyzeFlags.west,
		}
		surf, err := loadMaskSurface(analyzeFlags.maskPath, bounds)
		if err != nil {
			return err
		}

		var recorder func(*model.AnalysisResult, error) error
		if analyzeFlags.record {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if err := st.Migrate(ctx); err != nil {
				return err
			}

			run, err := st.CreateRun(ctx, analyzeFlags.label, analyzeFlags.hour)
			if err != nil {
				return err
			}
			if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusClassifying); err != nil {
				return err
			}
			recorder = func(result *model.AnalysisResult, runErr error) error {
				if runErr != nil {
					return st.FailRun(ctx, run.ID)
				}
				return st.CompleteRun(ctx, run.ID, result)
			}
		}

		result, err := scheduler.Run(ctx, edges, surf, samplingParams(), scheduler.Options{
			BatchSize: cfg.Batch.BulkSize,
			Seed:      analyzeFlags.seed,
			OnProgress: func(p model.Progress) {
				zap.L().Info("classification progress",
					zap.Int("processed", p.Processed),
					zap.Int("total", p.Total),
					zap.Int("errors", p.ErrorCount),
					zap.Float64("edges_per_sec", p.EdgesPerSec),
					zap.Duration("eta", p.ETA),
				)
			},
		})
		if recorder != nil {
			if rerr := recorder(result, err); rerr != nil {
				zap.L().Warn("record run", zap.Error(rerr))
			}
		}
		if err != nil {
			return err
		}

		zap.L().Info("classification complete",
			zap.Int("edges", result.TotalEdges),
			zap.Int("errors", result.Errors),
			zap.Int64("elapsed_ms", result.ProcessingTimeMs),
		)
		return writeResult(result)
	},
}

func writeResult(result *model.AnalysisResult) error {
	switch strings.ToLower(analyzeFlags.format) {
	case "json", "":
		return export.WriteJSON(result, analyzeFlags.out)
	case "xlsx":
		return export.WriteXLSX(result, analyzeFlags.out)
	default:
		return eris.Errorf("unknown export format %q", analyzeFlags.format)
	}
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFlags.edgesPath, "edges", "", "edge list JSON file (required)")
	analyzeCmd.Flags().StringVar(&analyzeFlags.maskPath, "mask", "", "shadow mask PNG (required)")
	analyzeCmd.Flags().Float64Var(&analyzeFlags.north, "north", 0, "viewport north latitude")
	analyzeCmd.Flags().Float64Var(&analyzeFlags.south, "south", 0, "viewport south latitude")
	analyzeCmd.Flags().Float64Var(&analyzeFlags.east, "east", 0, "viewport east longitude")
	analyzeCmd.Flags().Float64Var(&analyzeFlags.west, "west", 0, "viewport west longitude")
	analyzeCmd.Flags().IntVar(&analyzeFlags.hour, "hour", 9, "simulated hour (0-23)")
	analyzeCmd.Flags().StringVar(&analyzeFlags.label, "label", "", "run label for the history store")
	analyzeCmd.Flags().StringVar(&analyzeFlags.out, "out", "shade_analysis.json", "output file")
	analyzeCmd.Flags().StringVar(&analyzeFlags.format, "format", "json", "output format (json, xlsx)")
	analyzeCmd.Flags().Uint64Var(&analyzeFlags.seed, "seed", 0, "RNG seed for reproducible sampling (0 = random)")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.record, "record", false, "record the run in the history store")

	_ = analyzeCmd.MarkFlagRequired("edges")
	_ = analyzeCmd.MarkFlagRequired("mask")

	rootCmd.AddCommand(analyzeCmd)
}
