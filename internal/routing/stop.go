// Package routing defines the domain model for last-mile route optimization:
// stops, travel-cost matrices, routes and their results, the optimizer
// contract, and the error taxonomy shared by the matrix provider and the
// annealing search.
package routing

import "math"

// Role classifies a stop within a delivery run.
type Role string

const (
	// RoleDepot marks the single start (and, for closed tours, end) location.
	RoleDepot Role = "depot"
	// RoleDelivery marks a customer drop-off.
	RoleDelivery Role = "delivery"
)

// Stop is a geocoded location visited by the vehicle. Immutable once created.
type Stop struct {
	ID   string  `json:"id"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Role Role    `json:"role"`
}

func (s Stop) validate() error {
	if s.ID == "" {
		return NewInputError("id", "stop ID must not be empty")
	}
	if math.IsNaN(s.Lat) || s.Lat < -90 || s.Lat > 90 {
		return NewInputErrorf(s.ID, "latitude %v out of range [-90, 90]", s.Lat)
	}
	if math.IsNaN(s.Lon) || s.Lon < -180 || s.Lon > 180 {
		return NewInputErrorf(s.ID, "longitude %v out of range [-180, 180]", s.Lon)
	}
	if s.Role != RoleDepot && s.Role != RoleDelivery {
		return NewInputErrorf(s.ID, "unknown role %q", s.Role)
	}
	return nil
}

// StopSet is an ordered, validated collection of stops with exactly one
// depot, normalized to index 0. A StopSet is created once per optimization
// request and never mutated; re-optimization builds a new StopSet.
type StopSet struct {
	stops []Stop
}

// NewStopSet validates the stops and returns a set with the depot moved to
// index 0. The relative order of deliveries is preserved. Violations are
// reported as *InputError.
func NewStopSet(stops []Stop) (*StopSet, error) {
	if len(stops) < 2 {
		return nil, NewInputErrorf("stops", "need at least 2 stops, got %d", len(stops))
	}

	depot := -1
	seen := make(map[string]struct{}, len(stops))
	for i, s := range stops {
		if err := s.validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[s.ID]; dup {
			return nil, NewInputErrorf(s.ID, "duplicate stop ID")
		}
		seen[s.ID] = struct{}{}
		if s.Role == RoleDepot {
			if depot >= 0 {
				return nil, NewInputErrorf(s.ID, "more than one depot (first was %q)", stops[depot].ID)
			}
			depot = i
		}
	}
	if depot < 0 {
		return nil, NewInputError("stops", "no depot stop")
	}

	ordered := make([]Stop, 0, len(stops))
	ordered = append(ordered, stops[depot])
	ordered = append(ordered, stops[:depot]...)
	ordered = append(ordered, stops[depot+1:]...)
	return &StopSet{stops: ordered}, nil
}

// Len returns the number of stops, depot included.
func (ss *StopSet) Len() int {
	return len(ss.stops)
}

// At returns the stop at index i. Index 0 is always the depot.
func (ss *StopSet) At(i int) Stop {
	return ss.stops[i]
}

// Depot returns the depot stop.
func (ss *StopSet) Depot() Stop {
	return ss.stops[0]
}

// Stops returns a copy of the ordered stops.
func (ss *StopSet) Stops() []Stop {
	out := make([]Stop, len(ss.stops))
	copy(out, ss.stops)
	return out
}

// Extend returns a new StopSet with one delivery appended. The receiver is
// not modified. The new stop is validated against the existing IDs.
func (ss *StopSet) Extend(s Stop) (*StopSet, error) {
	if s.Role != RoleDelivery {
		return nil, NewInputErrorf(s.ID, "added stops must have role %q, got %q", RoleDelivery, s.Role)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	for _, existing := range ss.stops {
		if existing.ID == s.ID {
			return nil, NewInputErrorf(s.ID, "duplicate stop ID")
		}
	}
	stops := make([]Stop, 0, len(ss.stops)+1)
	stops = append(stops, ss.stops...)
	stops = append(stops, s)
	return &StopSet{stops: stops}, nil
}
