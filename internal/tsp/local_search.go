package tsp

import (
	"math/rand"
	"time"
)

// nearestNeighbor builds a tour greedily from stops[start], always
// extending to the closest unvisited stop. Ties break toward the earlier
// stop in input order, keeping construction deterministic. All pairs are
// known reachable (validated by Solve).
func nearestNeighbor(t *Table, stops []string, start int) []string {
	tour := make([]string, 0, len(stops))
	visited := make(map[string]bool, len(stops))

	cur := stops[start]
	tour = append(tour, cur)
	visited[cur] = true

	for len(tour) < len(stops) {
		next := ""
		nextDist := 0
		for _, candidate := range stops {
			if visited[candidate] {
				continue
			}
			d, _ := t.Distance(cur, candidate)
			if next == "" || d < nextDist {
				next = candidate
				nextDist = d
			}
		}
		tour = append(tour, next)
		visited[next] = true
		cur = next
	}

	return tour
}

// twoOpt improves tour with first-improvement 2-opt: remove edges
// (i,i+1) and (j,j+1), reconnect by reversing the segment between them,
// and keep the swap when it strictly reduces the open-path cost. Scans
// restart after each accepted move and stop at a local optimum or after
// twoOptMaxMoves accepted moves.
func twoOpt(t *Table, tour []string) []string {
	out := make([]string, len(tour))
	copy(out, tour)
	n := len(out)

	moves := 0
	for moves < twoOptMaxMoves {
		improved := false
		for i := 0; i < n-1 && !improved; i++ {
			for j := i + 2; j < n; j++ {
				// Removed edges: (i,i+1) and, when j is not the last
				// stop, (j,j+1). On an open path the final stop has no
				// outgoing edge.
				before, _ := t.Distance(out[i], out[i+1])
				after, _ := t.Distance(out[i], out[j])
				if j+1 < n {
					d1, _ := t.Distance(out[j], out[j+1])
					d2, _ := t.Distance(out[i+1], out[j+1])
					before += d1
					after += d2
				}
				if after < before {
					reverse(out[i+1 : j+1])
					moves++
					improved = true
					break
				}
			}
		}
		if !improved {
			break
		}
	}

	return out
}

// threeOpt applies a first-improvement 3-opt pass: for each edge triple
// it tests the segment-exchange reconnection (swap the two inner
// segments, reversing the second), which no sequence of single 2-opt
// moves can produce. Accepting the first strictly improving move and
// rescanning continues until a local optimum or threeOptMaxMoves
// accepted moves.
func threeOpt(t *Table, tour []string) []string {
	cur := make([]string, len(tour))
	copy(cur, tour)
	n := len(cur)
	curCost := Cost(t, cur)

	moves := 0
	for moves < threeOptMaxMoves {
		improved := false
	scan:
		for i := 0; i < n-2; i++ {
			for j := i + 2; j < n-1; j++ {
				for k := j + 2; k < n; k++ {
					candidate := reconnect(cur, i, j, k)
					if c := Cost(t, candidate); c < curCost {
						cur = candidate
						curCost = c
						moves++
						improved = true
						break scan
					}
				}
			}
		}
		if !improved {
			break
		}
	}

	return cur
}

// reconnect rebuilds the tour with segments (i+1..j) and (j+1..k)
// exchanged and the latter reversed:
//
//	a[:i+1] + reversed(a[j+1:k+1]) + a[i+1:j+1] + a[k+1:]
func reconnect(a []string, i, j, k int) []string {
	out := make([]string, 0, len(a))
	out = append(out, a[:i+1]...)
	for p := k; p > j; p-- {
		out = append(out, a[p])
	}
	out = append(out, a[i+1:j+1]...)
	out = append(out, a[k+1:]...)
	return out
}

// multiStart runs nearest-neighbor from up to maxStarts anchors (the
// first stop plus randomly chosen others), improves each with 2-opt, and
// keeps the cheapest result. With a fixed seed the chosen anchors, and
// therefore the output, are reproducible. The best tour gets a 3-opt
// polish when the problem is small enough to afford it.
func (s *Solver) multiStart(t *Table, stops []string) []string {
	seed := s.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	n := len(stops)
	starts := []int{0}
	extra := maxStarts - 1
	if extra > n-1 {
		extra = n - 1
	}
	for _, idx := range rng.Perm(n - 1)[:extra] {
		starts = append(starts, idx+1)
	}

	var best []string
	bestCost := 0
	for _, start := range starts {
		tour := twoOpt(t, nearestNeighbor(t, stops, start))
		if c := Cost(t, tour); best == nil || c < bestCost {
			best = tour
			bestCost = c
		}
	}

	if n <= threeOptLimit {
		best = threeOpt(t, best)
	}

	return best
}

func reverse(a []string) {
	for i, j := 0, len(a)-1; i < j; i, j = i+1, j-1 {
		a[i], a[j] = a[j], a[i]
	}
}
