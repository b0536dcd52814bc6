// Package tsp orders points of interest into a low-cost visiting
// sequence over a precomputed distance table. The algorithm is selected
// by problem size: exhaustive search for small inputs, nearest-neighbor
// construction plus 2-opt for mid-size ones, and multi-start local
// search with 3-opt polishing for larger ones.
//
// The objective is an open path: the cost of an order is the sum of
// consecutive-pair distances with no closing edge back to the first stop.
package tsp

import (
	"errors"
	"fmt"
)

// ErrInfeasible is returned (wrapped) when a requested point is missing
// from the table or a required pairwise distance is absent or
// unreachable. An unreachable pair is never silently treated as a large
// finite cost.
var ErrInfeasible = errors.New("tour infeasible")

const (
	// exactLimit is the largest input solved by exhaustive enumeration.
	exactLimit = 7
	// localSearchLimit is the largest input solved by a single
	// nearest-neighbor construction plus 2-opt.
	localSearchLimit = 10
	// threeOptLimit is the largest input that gets 3-opt polishing;
	// above it only 2-opt runs, trading quality for latency.
	threeOptLimit = 50
	// maxStarts bounds the nearest-neighbor starting anchors tried in
	// the multi-start tier.
	maxStarts = 5

	twoOptMaxMoves   = 1000
	threeOptMaxMoves = 100
)

// Solver solves tour-ordering problems. The zero seed draws a fresh
// random sequence per solve; a fixed seed makes multi-start runs
// reproducible. A Solver is stateless and safe for concurrent use.
type Solver struct {
	seed int64
}

// NewSolver creates a Solver with the given multi-start seed.
func NewSolver(seed int64) *Solver {
	return &Solver{seed: seed}
}

// Solve returns the requested points reordered into a low-cost open
// path. The result is always a permutation of the (deduplicated) input
// set. Duplicates in points are collapsed, keeping first occurrences.
func (s *Solver) Solve(t *Table, points []string) ([]string, error) {
	stops := dedupe(points)
	if err := validate(t, stops); err != nil {
		return nil, err
	}

	n := len(stops)
	switch {
	case n <= 1:
		return stops, nil
	case n <= exactLimit:
		return exact(t, stops), nil
	case n <= localSearchLimit:
		tour := nearestNeighbor(t, stops, 0)
		return twoOpt(t, tour), nil
	default:
		return s.multiStart(t, stops), nil
	}
}

// Cost returns the total open-path cost of visiting order: the sum of
// consecutive-pair distances, with no return edge. All pairs must exist
// in the table.
func Cost(t *Table, order []string) int {
	total := 0
	for i := 0; i+1 < len(order); i++ {
		d, _ := t.Distance(order[i], order[i+1])
		total += d
	}
	return total
}

// dedupe collapses repeated ids, preserving first-occurrence order.
func dedupe(points []string) []string {
	seen := make(map[string]struct{}, len(points))
	out := make([]string, 0, len(points))
	for _, p := range points {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// validate checks up front that every stop exists in the table and every
// pairwise distance among the stops is present and reachable, so the
// search tiers never have to handle missing edges.
func validate(t *Table, stops []string) error {
	for _, id := range stops {
		if !t.Has(id) {
			return fmt.Errorf("%w: unknown point %q", ErrInfeasible, id)
		}
	}
	for i := 0; i < len(stops); i++ {
		for j := i + 1; j < len(stops); j++ {
			d, ok := t.Distance(stops[i], stops[j])
			if !ok {
				return fmt.Errorf("%w: no distance between %q and %q", ErrInfeasible, stops[i], stops[j])
			}
			if d < 0 {
				return fmt.Errorf("%w: %q and %q are unreachable from each other", ErrInfeasible, stops[i], stops[j])
			}
		}
	}
	return nil
}

// exact enumerates every permutation of stops (Heap's algorithm) and
// returns the minimum-cost order. The open-path objective is not
// invariant under rotation, so no anchor is fixed. Ties keep the first
// minimum found, which makes the result deterministic.
func exact(t *Table, stops []string) []string {
	cur := make([]string, len(stops))
	copy(cur, stops)

	best := make([]string, len(cur))
	copy(best, cur)
	bestCost := Cost(t, cur)

	n := len(cur)
	counters := make([]int, n)
	for i := 0; i < n; {
		if counters[i] < i {
			if i%2 == 0 {
				cur[0], cur[i] = cur[i], cur[0]
			} else {
				cur[counters[i]], cur[i] = cur[i], cur[counters[i]]
			}
			if c := Cost(t, cur); c < bestCost {
				bestCost = c
				copy(best, cur)
			}
			counters[i]++
			i = 0
		} else {
			counters[i] = 0
			i++
		}
	}

	return best
}
