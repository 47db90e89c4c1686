package commands

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farlane/lastmile/internal/routing"
)

func TestSolveText(t *testing.T) {
	graphFile, stopsFile := writeFixtures(t)

	out, err := runCLI(t, "solve", "--graph", graphFile, "--seed", "42", stopsFile)
	require.NoError(t, err)

	assert.Contains(t, out, "cost: 40.000")
	assert.Contains(t, out, "converged: true")
	assert.Contains(t, out, "seed: 42")
	// Closed tour: the depot appears as both the first and the last row.
	assert.Equal(t, 2, strings.Count(out, "depot"))
}

func TestSolveJSON(t *testing.T) {
	graphFile, stopsFile := writeFixtures(t)

	out, err := runCLI(t, "solve", "--graph", graphFile, "--seed", "42", "--format", "json", stopsFile)
	require.NoError(t, err)

	var res routing.RouteResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.InDelta(t, 40.0, res.Cost, 1e-9)
	assert.Equal(t, int64(42), res.Seed)
	assert.True(t, res.ClosedTour)
	require.NoError(t, routing.ValidateRoute(res.Route, 4))
	assert.Len(t, res.StopIDs, 5)
	assert.Equal(t, "depot", res.StopIDs[0])
	assert.Equal(t, "depot", res.StopIDs[4])
}

func TestSolveOpenTour(t *testing.T) {
	graphFile, stopsFile := writeFixtures(t)

	out, err := runCLI(t, "solve", "--graph", graphFile, "--seed", "42", "--open-tour", "--format", "json", stopsFile)
	require.NoError(t, err)

	var res routing.RouteResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.InDelta(t, 30.0, res.Cost, 1e-9)
	assert.False(t, res.ClosedTour)
	assert.Len(t, res.StopIDs, 4)
}

func TestSolveRestartsAreDeterministic(t *testing.T) {
	graphFile, stopsFile := writeFixtures(t)
	args := []string{"solve", "--graph", graphFile, "--seed", "7", "--restarts", "3", "--format", "json", stopsFile}

	first, err := runCLI(t, args...)
	require.NoError(t, err)
	second, err := runCLI(t, args...)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSolveRejectsBadStrategy(t *testing.T) {
	graphFile, stopsFile := writeFixtures(t)

	_, err := runCLI(t, "solve", "--graph", graphFile, "--strategy", "greedy", stopsFile)
	require.Error(t, err)
	cfgErr, ok := routing.AsConfigError(err)
	require.True(t, ok)
	assert.Equal(t, "neighborStrategy", cfgErr.Param)
}

func TestSolveRejectsBadCoolingRate(t *testing.T) {
	graphFile, stopsFile := writeFixtures(t)

	_, err := runCLI(t, "solve", "--graph", graphFile, "--cooling-rate", "2", stopsFile)
	require.Error(t, err)
	cfgErr, ok := routing.AsConfigError(err)
	require.True(t, ok)
	assert.Equal(t, "coolingRate", cfgErr.Param)
}

func TestSolveMissingStopsFile(t *testing.T) {
	graphFile, _ := writeFixtures(t)

	_, err := runCLI(t, "solve", "--graph", graphFile, "no-such-stops.json")
	require.Error(t, err)
}

func TestSolveMissingGraph(t *testing.T) {
	_, stopsFile := writeFixtures(t)

	_, err := runCLI(t, "solve", "--graph", "no-such-graph.json", stopsFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening road network file")
}
