package pathfind

import (
	"testing"

	"github.com/sevenvista/MB-TSP/internal/warehouse"
)

// parseGrid builds a grid from a compact rune map:
// '.' path, '#' obstacle, 'S' start, 'E' end, 's' shelf.
func parseGrid(t *testing.T, rows []string) *warehouse.Grid {
	t.Helper()
	raw := make([][]warehouse.Cell, len(rows))
	for r, row := range rows {
		raw[r] = make([]warehouse.Cell, len(row))
		for c, ch := range row {
			var kind warehouse.CellKind
			switch ch {
			case '.':
				kind = warehouse.KindPath
			case '#':
				kind = warehouse.KindObstacle
			case 'S':
				kind = warehouse.KindStart
			case 'E':
				kind = warehouse.KindEnd
			case 's':
				kind = warehouse.KindShelf
			default:
				t.Fatalf("unknown cell rune %q", ch)
			}
			raw[r][c] = warehouse.Cell{Kind: kind}
		}
	}
	g, err := warehouse.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	return g
}

func TestDistanceEqualsManhattanOnOpenGrid(t *testing.T) {
	g := parseGrid(t, []string{
		".....",
		".....",
		".....",
		".....",
	})

	for _, tc := range []struct {
		from, to warehouse.Point
		want     int
	}{
		{warehouse.Point{Row: 0, Col: 0}, warehouse.Point{Row: 0, Col: 4}, 4},
		{warehouse.Point{Row: 0, Col: 0}, warehouse.Point{Row: 3, Col: 4}, 7},
		{warehouse.Point{Row: 2, Col: 1}, warehouse.Point{Row: 0, Col: 3}, 4},
		{warehouse.Point{Row: 1, Col: 1}, warehouse.Point{Row: 1, Col: 1}, 0},
	} {
		if got := Distance(g, tc.from, tc.to); got != tc.want {
			t.Errorf("Distance(%v, %v) = %d, want %d", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestDistanceSymmetric(t *testing.T) {
	g := parseGrid(t, []string{
		"S.#.s",
		"..#..",
		".....",
	})

	points := []warehouse.Point{{Row: 0, Col: 0}, {Row: 0, Col: 4}, {Row: 2, Col: 2}, {Row: 1, Col: 0}}
	for _, a := range points {
		for _, b := range points {
			if d1, d2 := Distance(g, a, b), Distance(g, b, a); d1 != d2 {
				t.Errorf("Distance(%v,%v)=%d but Distance(%v,%v)=%d", a, b, d1, b, a, d2)
			}
		}
	}
}

func TestDistanceDetour(t *testing.T) {
	// Start at (0,0), shelf at (0,2). Open grid: distance 2.
	open := parseGrid(t, []string{
		"S.s",
		"...",
		"...",
	})
	if got := Distance(open, warehouse.Point{Row: 0, Col: 0}, warehouse.Point{Row: 0, Col: 2}); got != 2 {
		t.Errorf("open grid distance = %d, want 2", got)
	}

	// Obstacle at (0,1) forces a detour through row 1.
	detour := parseGrid(t, []string{
		"S#s",
		"...",
		"...",
	})
	if got := Distance(detour, warehouse.Point{Row: 0, Col: 0}, warehouse.Point{Row: 0, Col: 2}); got != 4 {
		t.Errorf("detour distance = %d, want 4", got)
	}

	// Blocking (1,1) too pushes the path down through row 2.
	longDetour := parseGrid(t, []string{
		"S#s",
		".#.",
		"...",
	})
	if got := Distance(longDetour, warehouse.Point{Row: 0, Col: 0}, warehouse.Point{Row: 0, Col: 2}); got != 6 {
		t.Errorf("long detour distance = %d, want 6", got)
	}

	// Sealing row 2 as well disconnects the shelf entirely.
	sealed := parseGrid(t, []string{
		"S#s",
		".#.",
		".##",
	})
	if got := Distance(sealed, warehouse.Point{Row: 0, Col: 0}, warehouse.Point{Row: 0, Col: 2}); got != Unreachable {
		t.Errorf("sealed distance = %d, want Unreachable", got)
	}
}

func TestDistanceUnreachable(t *testing.T) {
	g := parseGrid(t, []string{
		"S#E",
		".#.",
		".#.",
	})

	if got := Distance(g, warehouse.Point{Row: 0, Col: 0}, warehouse.Point{Row: 0, Col: 2}); got != Unreachable {
		t.Errorf("Distance across wall = %d, want Unreachable", got)
	}
}

func TestDistanceObstacleEndpoint(t *testing.T) {
	g := parseGrid(t, []string{
		"S#.",
	})

	if got := Distance(g, warehouse.Point{Row: 0, Col: 0}, warehouse.Point{Row: 0, Col: 1}); got != Unreachable {
		t.Errorf("Distance to obstacle = %d, want Unreachable", got)
	}
}

func TestDistanceTraversesRoutableCells(t *testing.T) {
	// Shelves and start/end cells are walkable, so the straight line
	// through the shelf at (0,1) is usable.
	g := parseGrid(t, []string{
		"SsE",
	})

	if got := Distance(g, warehouse.Point{Row: 0, Col: 0}, warehouse.Point{Row: 0, Col: 2}); got != 2 {
		t.Errorf("Distance through shelf = %d, want 2", got)
	}
}

func TestDistanceLargeMaze(t *testing.T) {
	g := parseGrid(t, []string{
		"S.#......",
		".####.##.",
		".#...#...",
		".#.#.#.#.",
		"...#...#E",
	})

	from := warehouse.Point{Row: 0, Col: 0}
	to := warehouse.Point{Row: 4, Col: 8}
	got := Distance(g, from, to)
	if got != 20 {
		t.Errorf("maze distance = %d, want 20", got)
	}
	if back := Distance(g, to, from); back != got {
		t.Errorf("maze distance not symmetric: %d vs %d", got, back)
	}
}
