package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shadewalk/shadewalk/internal/debounce"
	"github.com/shadewalk/shadewalk/internal/model"
	"github.com/shadewalk/shadewalk/internal/route"
	"github.com/shadewalk/shadewalk/internal/solver"
	"github.com/shadewalk/shadewalk/internal/surface"
)

var routeFlags struct {
	startLat float64
	startLng float64
	endLat   float64
	endLng   float64
	hour     int
	penalty  float64
	shade    bool
	watch    bool
	maskPath string
	north    float64
	south    float64
	east     float64
	west     float64
}

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Solve a route and report its shade statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("route"); err != nil {
			return err
		}

		mode := model.ModeStandard
		if routeFlags.shade && !route.IsNight(routeFlags.hour) {
			mode = model.ModeShadeAware
		}

		client := solver.NewHTTPClient(solver.HTTPOptions{
			BaseURL: cfg.Solver.BaseURL,
			Timeout: time.Duration(cfg.Solver.TimeoutSecs) * time.Second,
		})

		// With a shadow mask the path segments are re-sampled locally;
		// otherwise only the solver's distances are reported.
		var surf surface.Surface = surface.Empty{Viewport: model.Bounds{
			North: routeFlags.north, South: routeFlags.south,
			East: routeFlags.east, West: routeFlags.west,
		}}
		if routeFlags.maskPath != "" {
			var err error
			surf, err = loadMaskSurface(routeFlags.maskPath, model.Bounds{
				North: routeFlags.north, South: routeFlags.south,
				East: routeFlags.east, West: routeFlags.west,
			})
			if err != nil {
				return err
			}
		}

		if err := solveAndPrint(ctx, client, surf, routeFlags.hour, routeFlags.penalty, mode); err != nil {
			return err
		}

		if routeFlags.watch {
			return watchRoute(ctx, client, surf, mode)
		}
		return nil
	},
}

// solveRoute runs one solve + shade analysis between the flag endpoints.
func solveRoute(ctx context.Context, client solver.Client, surf surface.Surface, hour int, penalty float64, mode model.RoutingMode) (*solver.Result, *model.RouteShadeStats, error) {
	res, err := client.Solve(ctx, solver.Request{
		Start:              model.GeoPoint{Lat: routeFlags.startLat, Lng: routeFlags.startLng},
		End:                model.GeoPoint{Lat: routeFlags.endLat, Lng: routeFlags.endLng},
		SimulatedHour:      hour,
		ShadePenaltyWeight: penalty,
		Mode:               mode,
	})
	if err != nil {
		return nil, nil, err
	}

	stats, err := route.Analyze(ctx, res.Path, surf, &route.Baseline{
		OriginalDistance:   res.OriginalDistance,
		ShadeAwareDistance: res.ShadeAwareDistance,
	})
	if err != nil {
		return nil, nil, err
	}
	return res, stats, nil
}

func printRoute(res *solver.Result, stats *model.RouteShadeStats, hour int, mode model.RoutingMode) error {
	zap.L().Info("route solved",
		zap.String("mode", string(mode)),
		zap.Int("hour", hour),
		zap.Int("segments", stats.SegmentCount),
		zap.Float64("distance_m", stats.OriginalDistance),
		zap.Float64("shade_pct", stats.ShadePct),
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"path":  res.Path,
		"mode":  mode,
		"stats": stats,
	})
}

func solveAndPrint(ctx context.Context, client solver.Client, surf surface.Surface, hour int, penalty float64, mode model.RoutingMode) error {
	res, stats, err := solveRoute(ctx, client, surf, hour, penalty, mode)
	if err != nil {
		return err
	}
	return printRoute(res, stats, hour, mode)
}

// watchRoute keeps the route live: parameter updates read from stdin are
// debounced and each settled burst re-solves with the latest values. Weight
// changes settle fast; hour and mode changes wait out the longer surface
// delay. Input lines: "hour N", "penalty X", "mode standard|shade", "quit".
func watchRoute(ctx context.Context, client solver.Client, surf surface.Surface, mode model.RoutingMode) error {
	var ctrl *debounce.Controller
	ctrl = debounce.New(debounce.Inputs{
		SimulatedHour:      routeFlags.hour,
		ShadePenaltyWeight: routeFlags.penalty,
		RoutingMode:        mode,
	}, func(in debounce.Inputs, token uint64) {
		effective := in.RoutingMode
		if route.IsNight(in.SimulatedHour) {
			effective = model.ModeStandard
		}
		res, stats, err := solveRoute(ctx, client, surf, in.SimulatedHour, in.ShadePenaltyWeight, effective)
		if err != nil {
			zap.L().Error("recompute failed", zap.Error(err))
			return
		}
		// A newer burst may have settled while this solve was in flight.
		if !ctrl.Current(token) {
			zap.L().Debug("recompute superseded, dropping result", zap.Uint64("token", token))
			return
		}
		if err := printRoute(res, stats, in.SimulatedHour, effective); err != nil {
			zap.L().Error("recompute print failed", zap.Error(err))
		}
	}, debounce.Options{
		SurfaceDelay: time.Duration(cfg.Debounce.SurfaceDelayMs) * time.Millisecond,
		WeightDelay:  time.Duration(cfg.Debounce.WeightDelayMs) * time.Millisecond,
	})

	start := model.GeoPoint{Lat: routeFlags.startLat, Lng: routeFlags.startLng}
	end := model.GeoPoint{Lat: routeFlags.endLat, Lng: routeFlags.endLng}
	ctrl.SetEndpoints(&start, &end)

	fmt.Fprintln(os.Stderr, "watching; commands: hour N | penalty X | mode standard|shade | quit")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "hour":
			if len(fields) == 2 {
				if h, err := strconv.Atoi(fields[1]); err == nil && h >= 0 && h <= 23 {
					ctrl.SetSimulatedHour(h)
					continue
				}
			}
			fmt.Fprintln(os.Stderr, "usage: hour N (0-23)")
		case "penalty", "weight":
			if len(fields) == 2 {
				if w, err := strconv.ParseFloat(fields[1], 64); err == nil && w >= 0 {
					ctrl.SetShadePenaltyWeight(w)
					continue
				}
			}
			fmt.Fprintln(os.Stderr, "usage: penalty X (>= 0)")
		case "mode":
			if len(fields) == 2 {
				switch fields[1] {
				case "standard":
					ctrl.SetRoutingMode(model.ModeStandard)
					continue
				case "shade":
					ctrl.SetRoutingMode(model.ModeShadeAware)
					continue
				}
			}
			fmt.Fprintln(os.Stderr, "usage: mode standard|shade")
		case "quit", "exit":
			return nil
		default:
			fmt.Fprintln(os.Stderr, "commands: hour N | penalty X | mode standard|shade | quit")
		}
	}
	return scanner.Err()
}

func init() {
	routeCmd.Flags().Float64Var(&routeFlags.startLat, "start-lat", 0, "start latitude")
	routeCmd.Flags().Float64Var(&routeFlags.startLng, "start-lng", 0, "start longitude")
	routeCmd.Flags().Float64Var(&routeFlags.endLat, "end-lat", 0, "end latitude")
	routeCmd.Flags().Float64Var(&routeFlags.endLng, "end-lng", 0, "end longitude")
	routeCmd.Flags().IntVar(&routeFlags.hour, "hour", 9, "simulated hour (0-23)")
	routeCmd.Flags().Float64Var(&routeFlags.penalty, "penalty", 1.0, "shade penalty factor")
	routeCmd.Flags().BoolVar(&routeFlags.shade, "shade", false, "use shade-aware weighting")
	routeCmd.Flags().BoolVar(&routeFlags.watch, "watch", false, "stay live and re-solve on parameter updates from stdin")
	routeCmd.Flags().StringVar(&routeFlags.maskPath, "mask", "", "optional shadow mask PNG for local re-sampling")
	routeCmd.Flags().Float64Var(&routeFlags.north, "north", 90, "viewport north latitude")
	routeCmd.Flags().Float64Var(&routeFlags.south, "south", -90, "viewport south latitude")
	routeCmd.Flags().Float64Var(&routeFlags.east, "east", 180, "viewport east longitude")
	routeCmd.Flags().Float64Var(&routeFlags.west, "west", -180, "viewport west longitude")

	_ = routeCmd.MarkFlagRequired("start-lat")
	_ = routeCmd.MarkFlagRequired("start-lng")
	_ = routeCmd.MarkFlagRequired("end-lat")
	_ = routeCmd.MarkFlagRequired("end-lng")

	rootCmd.AddCommand(routeCmd)
}
