// Package pathfind computes shortest obstacle-avoiding distances between
// grid cells using A* over 4-connected movement with unit step cost.
package pathfind

import (
	"container/heap"

	"github.com/sevenvista/MB-TSP/internal/warehouse"
)

// Unreachable is the distance sentinel for disconnected cell pairs.
// Disconnection is a normal result, not an error.
const Unreachable = -1

// Distance returns the length of the shortest 4-connected path between
// from and to, treating OBSTACLE cells as impassable. All other kinds are
// traversable. Returns Unreachable when no path exists.
func Distance(g *warehouse.Grid, from, to warehouse.Point) int {
	if !g.Walkable(from) || !g.Walkable(to) {
		return Unreachable
	}
	if from == to {
		return 0
	}

	open := &frontier{}
	heap.Init(open)
	heap.Push(open, node{pos: from, g: 0, f: manhattan(from, to)})

	gScore := map[warehouse.Point]int{from: 0}
	closed := make(map[warehouse.Point]bool)

	steps := [4]warehouse.Point{{Row: -1}, {Row: 1}, {Col: -1}, {Col: 1}}

	for open.Len() > 0 {
		cur := heap.Pop(open).(node)
		if closed[cur.pos] {
			continue
		}
		if cur.pos == to {
			return cur.g
		}
		closed[cur.pos] = true

		for _, d := range steps {
			next := warehouse.Point{Row: cur.pos.Row + d.Row, Col: cur.pos.Col + d.Col}
			if !g.Walkable(next) || closed[next] {
				continue
			}
			tentative := cur.g + 1
			if best, seen := gScore[next]; seen && tentative >= best {
				continue
			}
			gScore[next] = tentative
			heap.Push(open, node{pos: next, g: tentative, f: tentative + manhattan(next, to)})
		}
	}

	return Unreachable
}

// manhattan is the admissible heuristic for 4-connected unit-cost movement.
func manhattan(a, b warehouse.Point) int {
	return abs(a.Row-b.Row) + abs(a.Col-b.Col)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// node is a frontier entry. seq is the insertion counter: equal-f nodes pop
// in insertion order, keeping the search deterministic.
type node struct {
	pos warehouse.Point
	g   int
	f   int
	seq int
}

type frontier struct {
	nodes []node
	next  int
}

func (q *frontier) Len() int { return len(q.nodes) }

func (q *frontier) Less(i, j int) bool {
	if q.nodes[i].f != q.nodes[j].f {
		return q.nodes[i].f < q.nodes[j].f
	}
	return q.nodes[i].seq < q.nodes[j].seq
}

func (q *frontier) Swap(i, j int) { q.nodes[i], q.nodes[j] = q.nodes[j], q.nodes[i] }

func (q *frontier) Push(x any) {
	n := x.(node)
	n.seq = q.next
	q.next++
	q.nodes = append(q.nodes, n)
}

func (q *frontier) Pop() any {
	old := q.nodes
	n := old[len(old)-1]
	q.nodes = old[:len(old)-1]
	return n
}
