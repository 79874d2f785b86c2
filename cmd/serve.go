package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shadewalk/shadewalk/internal/model"
	"github.com/shadewalk/shadewalk/internal/server"
	"github.com/shadewalk/shadewalk/internal/solver"
	"github.com/shadewalk/shadewalk/internal/surface"
	"github.com/shadewalk/shadewalk/internal/weights"
	"github.com/shadewalk/shadewalk/pkg/anthropic"
)

var serveFlags struct {
	port     int
	maskPath string
	north    float64
	south    float64
	east     float64
	west     float64
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the shade analysis HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		var surf surface.Surface
		if serveFlags.maskPath != "" {
			surf, err = loadMaskSurface(serveFlags.maskPath, model.Bounds{
				North: serveFlags.north, South: serveFlags.south,
				East: serveFlags.east, West: serveFlags.west,
			})
			if err != nil {
				return err
			}
		}

		var refiner *weights.Refiner
		if cfg.Anthropic.Key != "" {
			refiner = weights.NewRefiner(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model)
		}

		srv := server.New(server.Options{
			Solver: solver.NewHTTPClient(solver.HTTPOptions{
				BaseURL: cfg.Solver.BaseURL,
				Timeout: time.Duration(cfg.Solver.TimeoutSecs) * time.Second,
			}),
			Surface:  surf,
			Store:    st,
			Refiner:  refiner,
			Sampling: samplingParams(),
		})

		port := serveFlags.port
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srv.Router(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = httpSrv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&serveFlags.port, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.maskPath, "mask", "", "shadow mask PNG for local re-sampling")
	serveCmd.Flags().Float64Var(&serveFlags.north, "north", 0, "viewport north latitude")
	serveCmd.Flags().Float64Var(&serveFlags.south, "south", 0, "viewport south latitude")
	serveCmd.Flags().Float64Var(&serveFlags.east, "east", 0, "viewport east longitude")
	serveCmd.Flags().Float64Var(&serveFlags.west, "west", 0, "viewport west longitude")
	rootCmd.AddCommand(serveCmd)
}
