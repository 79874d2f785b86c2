package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shadewalk/shadewalk/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "shadewalk",
	Short: "Shade analysis engine for pedestrian routing",
	Long:  "Samples pre-rendered shadow surfaces to classify how shaded each sidewalk edge is, merges the results into pedestrian graphs, and serves shade-aware routes.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
