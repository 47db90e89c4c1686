package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/farlane/lastmile/internal/legcache"
	"github.com/farlane/lastmile/internal/routing/anneal"
	"github.com/farlane/lastmile/internal/routing/matrix"
)

var (
	solveInitTemp float64
	solveCooling  float64
	solveMinTemp  float64
	solveIters    int
	solveTimeout  time.Duration
	solveStrategy string
	solveSeed     int64
	solveOpenTour bool
	solveRestarts int
)

// NewSolveCmd creates the solve command.
func NewSolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve <stops.json>",
		Short: "Optimize a delivery route",
		Long: `Solve builds the travel-cost matrix for the stop list and runs
simulated annealing over it.

Examples:
  routectl --graph city.json.zst solve stops.json
  routectl solve --seed 42 --strategy mixed --restarts 4 stops.json
  routectl solve --open-tour --format json stops.json`,
		Args: cobra.ExactArgs(1),
		RunE: runSolve,
	}

	cmd.Flags().Float64Var(&solveInitTemp, "initial-temperature", 1000, "Starting temperature")
	cmd.Flags().Float64Var(&solveCooling, "cooling-rate", 0.995, "Geometric cooling factor in (0, 1)")
	cmd.Flags().Float64Var(&solveMinTemp, "min-temperature", 1, "Temperature floor that ends the search")
	cmd.Flags().IntVar(&solveIters, "max-iterations", 5000, "Iteration budget")
	cmd.Flags().DurationVar(&solveTimeout, "max-duration", 30*time.Second, "Wall-clock budget per restart")
	cmd.Flags().StringVar(&solveStrategy, "strategy", "swap", "Neighbor strategy: swap, segmentReverse or mixed")
	cmd.Flags().Int64Var(&solveSeed, "seed", 0, "Random seed (0 picks one)")
	cmd.Flags().BoolVar(&solveOpenTour, "open-tour", false, "Do not return to the depot")
	cmd.Flags().IntVar(&solveRestarts, "restarts", 1, "Independent searches to run")

	return cmd
}

func runSolve(cmd *cobra.Command, args []string) error {
	strategy, err := anneal.ParseStrategy(solveStrategy)
	if err != nil {
		return err
	}
	cfg := anneal.Config{
		InitialTemperature: solveInitTemp,
		CoolingRate:        solveCooling,
		MinTemperature:     solveMinTemp,
		MaxIterations:      solveIters,
		MaxDuration:        solveTimeout,
		NeighborStrategy:   strategy,
		RandomSeed:         solveSeed,
		ClosedTour:         !solveOpenTour,
		Restarts:           solveRestarts,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	g, err := loadGraph()
	if err != nil {
		return err
	}
	stops, err := loadStops(args[0])
	if err != nil {
		return err
	}

	provider := matrix.NewProvider(g, matrix.WithCache(legcache.NewMemory(0)))
	m, err := provider.Build(cmd.Context(), stops)
	if err != nil {
		return err
	}

	res, err := anneal.Solve(cmd.Context(), stops, m, cfg, nil)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling result: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
		return nil
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSTOP\tLAT\tLON")
	for pos, idx := range res.Route {
		s := stops.At(idx)
		fmt.Fprintf(w, "%d\t%s\t%.6f\t%.6f\n", pos, s.ID, s.Lat, s.Lon)
	}
	if res.ClosedTour {
		depot := stops.Depot()
		fmt.Fprintf(w, "%d\t%s\t%.6f\t%.6f\n", len(res.Route), depot.ID, depot.Lat, depot.Lon)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\ncost: %.3f (initial %.3f, improved %.1f%%)\n",
		res.Cost, res.InitialCost, res.ImprovementPct)
	fmt.Fprintf(out, "iterations: %d  converged: %v  seed: %d\n",
		res.Iterations, res.Converged, res.Seed)
	return nil
}
