package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/farlane/lastmile/internal/routing/matrix"
)

// NewMatrixCmd creates the matrix command.
func NewMatrixCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "matrix <stops.json>",
		Short: "Print the travel-cost matrix for a stop list",
		Long: `Matrix snaps every stop to the road graph, computes pairwise
shortest-path costs and prints the full matrix without solving.

Useful for sanity-checking the graph and the snap radius before a run.`,
		Args: cobra.ExactArgs(1),
		RunE: runMatrix,
	}
}

type matrixDocument struct {
	GraphTag string      `json:"graph_tag"`
	StopIDs  []string    `json:"stop_ids"`
	Costs    [][]float64 `json:"costs"`
}

func runMatrix(cmd *cobra.Command, args []string) error {
	g, err := loadGraph()
	if err != nil {
		return err
	}
	stops, err := loadStops(args[0])
	if err != nil {
		return err
	}

	provider := matrix.NewProvider(g)
	m, err := provider.Build(cmd.Context(), stops)
	if err != nil {
		return err
	}

	n := m.Len()
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = stops.At(i).ID
	}

	if outputFormat == "json" {
		doc := matrixDocument{GraphTag: m.GraphTag(), StopIDs: ids, Costs: make([][]float64, n)}
		for i := 0; i < n; i++ {
			row := make([]float64, n)
			for j := 0; j < n; j++ {
				row[j] = m.Cost(i, j)
			}
			doc.Costs[i] = row
		}
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling matrix: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprint(w, "FROM\\TO")
	for _, id := range ids {
		fmt.Fprintf(w, "\t%s", id)
	}
	fmt.Fprintln(w)
	for i := 0; i < n; i++ {
		fmt.Fprint(w, ids[i])
		for j := 0; j < n; j++ {
			fmt.Fprintf(w, "\t%.3f", m.Cost(i, j))
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}
