package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shadewalk/shadewalk/internal/weights"
	"github.com/shadewalk/shadewalk/pkg/anthropic"
)

var weightsCmd = &cobra.Command{
	Use:   "weights <prompt>",
	Short: "Turn a plain-English routing preference into structured weights",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt := strings.Join(args, " ")

		var refiner *weights.Refiner
		if cfg.Anthropic.Key != "" {
			refiner = weights.NewRefiner(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model)
		}

		w := refiner.Refine(cmd.Context(), prompt)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(w)
	},
}

func init() {
	rootCmd.AddCommand(weightsCmd)
}
