package routing

// Route is a visiting order over stop indices. The depot (index 0) is always
// first; whether the vehicle returns to it afterwards is the evaluator's
// closed-tour setting, not a property of the route itself.
type Route []int

// Clone returns an independent copy of the route.
func (r Route) Clone() Route {
	out := make(Route, len(r))
	copy(out, r)
	return out
}

// ValidateRoute checks that r is a depot-anchored permutation of n stop
// indices: length n, r[0] == 0, and every index 0..n-1 present exactly once.
func ValidateRoute(r Route, n int) error {
	if len(r) != n {
		return NewInputErrorf("route", "length %d does not match stop count %d", len(r), n)
	}
	if r[0] != 0 {
		return NewInputErrorf("route", "must start at the depot (index 0), got %d", r[0])
	}
	seen := make([]bool, n)
	for _, idx := range r {
		if idx < 0 || idx >= n {
			return NewInputErrorf("route", "index %d out of range [0, %d)", idx, n)
		}
		if seen[idx] {
			return NewInputErrorf("route", "index %d appears more than once", idx)
		}
		seen[idx] = true
	}
	return nil
}

// IdentityRoute returns the route visiting stops in their StopSet order.
func IdentityRoute(n int) Route {
	r := make(Route, n)
	for i := range r {
		r[i] = i
	}
	return r
}
