// Package commands implements the routectl CLI.
package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/farlane/lastmile/internal/roadnet"
	"github.com/farlane/lastmile/internal/routing"
)

var (
	graphPath    string
	snapRadius   float64
	filterSCC    bool
	outputFormat string
)

// NewRootCmd assembles the routectl command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routectl",
		Short: "Last-mile route optimization from the command line",
		Long: `routectl solves delivery routing problems offline: load a road
network, build the travel-cost matrix for a stop list, and anneal it into a
visiting order.

The road network is a JSON document with "nodes" and "edges"; zstd-compressed
files (.zst) are decompressed transparently. Stops are a JSON document with a
"stops" array of {id, lat, lon, role} objects containing exactly one depot.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&graphPath, "graph", "data/roadnet.json", "Road network file (.json or .json.zst)")
	cmd.PersistentFlags().Float64Var(&snapRadius, "snap-radius", roadnet.DefaultSnapRadiusMeters, "Stop snap radius in meters")
	cmd.PersistentFlags().BoolVar(&filterSCC, "filter-scc", true, "Keep only the largest strongly connected component")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "Output format: text or json")

	cmd.AddCommand(NewSolveCmd())
	cmd.AddCommand(NewMatrixCmd())
	return cmd
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadGraph reads the road network selected by the global flags.
func loadGraph() (*roadnet.Graph, error) {
	g, err := roadnet.LoadFile(graphPath, roadnet.WithSnapRadius(snapRadius))
	if err != nil {
		return nil, err
	}
	if filterSCC {
		g = g.LargestSCC()
	}
	return g, nil
}

// stopsDocument is the on-disk stop list format.
type stopsDocument struct {
	Stops []routing.Stop `json:"stops"`
}

// loadStops reads and validates a stop list file.
func loadStops(path string) (*routing.StopSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var doc stopsDocument
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding stops file: %w", err)
	}
	return routing.NewStopSet(doc.Stops)
}
