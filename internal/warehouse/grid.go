// Package warehouse models the grid-based warehouse map: cell kinds,
// normalization, and deterministic id assignment for routable cells.
package warehouse

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation is returned (wrapped) for malformed maps: ragged rows,
// empty grids, unknown cell kinds, or duplicate routing ids.
var ErrValidation = errors.New("invalid map")

// CellKind is the wire-level cell classification.
type CellKind string

const (
	KindObstacle CellKind = "OBSTACLE"
	KindPath     CellKind = "PATH"
	KindStart    CellKind = "START"
	KindEnd      CellKind = "END"
	KindShelf    CellKind = "SHELF"
)

// Valid reports whether k is one of the five known kinds.
func (k CellKind) Valid() bool {
	switch k {
	case KindObstacle, KindPath, KindStart, KindEnd, KindShelf:
		return true
	}
	return false
}

// Routable reports whether cells of this kind are addressable points of
// interest (tour stops and distance-table endpoints).
func (k CellKind) Routable() bool {
	return k == KindStart || k == KindEnd || k == KindShelf
}

// Cell is one grid square as it appears on the wire.
// ID may be empty on input; normalization fills it in.
type Cell struct {
	Kind CellKind `json:"type"`
	ID   string   `json:"id"`
}

// Point is a (row, col) grid coordinate.
type Point struct {
	Row int
	Col int
}

// POI is an identified routable cell.
type POI struct {
	ID  string
	Pos Point
}

// Grid is a validated, normalized map. It is immutable after Normalize and
// safe for concurrent readers.
type Grid struct {
	cells [][]Cell
	rows  int
	cols  int

	byID    map[string]Point
	starts  []POI
	ends    []POI
	shelves []POI
}

// Normalize validates raw and produces a Grid ready for pathfinding.
// Cells without an id get a deterministic one derived from kind and
// position ("shelf_2_4"), so reprocessing an unchanged map yields
// identical ids. Duplicate ids among START/END/SHELF cells are rejected.
func Normalize(raw [][]Cell) (*Grid, error) {
	if len(raw) == 0 || len(raw[0]) == 0 {
		return nil, fmt.Errorf("%w: grid is empty", ErrValidation)
	}

	cols := len(raw[0])
	cells := make([][]Cell, len(raw))
	for r, row := range raw {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrValidation, r, len(row), cols)
		}
		cells[r] = make([]Cell, cols)
		copy(cells[r], row)
	}

	g := &Grid{
		cells: cells,
		rows:  len(cells),
		cols:  cols,
		byID:  make(map[string]Point),
	}

	for r := range cells {
		for c := range cells[r] {
			cell := &cells[r][c]
			if !cell.Kind.Valid() {
				return nil, fmt.Errorf("%w: unknown cell type %q at (%d,%d)", ErrValidation, cell.Kind, r, c)
			}
			if cell.ID == "" {
				cell.ID = AutoID(cell.Kind, r, c)
			}
			if !cell.Kind.Routable() {
				continue
			}
			p := Point{Row: r, Col: c}
			if prev, dup := g.byID[cell.ID]; dup {
				return nil, fmt.Errorf("%w: duplicate id %q at (%d,%d) and (%d,%d)",
					ErrValidation, cell.ID, prev.Row, prev.Col, r, c)
			}
			g.byID[cell.ID] = p
			poi := POI{ID: cell.ID, Pos: p}
			switch cell.Kind {
			case KindStart:
				g.starts = append(g.starts, poi)
			case KindEnd:
				g.ends = append(g.ends, poi)
			case KindShelf:
				g.shelves = append(g.shelves, poi)
			}
		}
	}

	return g, nil
}

// AutoID derives the default id for a cell from its kind and position.
func AutoID(kind CellKind, row, col int) string {
	return fmt.Sprintf("%s_%d_%d", strings.ToLower(string(kind)), row, col)
}

// Rows returns the number of rows.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of columns.
func (g *Grid) Cols() int { return g.cols }

// At returns the cell at p. p must be in bounds.
func (g *Grid) At(p Point) Cell { return g.cells[p.Row][p.Col] }

// InBounds reports whether p is inside the grid.
func (g *Grid) InBounds(p Point) bool {
	return p.Row >= 0 && p.Row < g.rows && p.Col >= 0 && p.Col < g.cols
}

// Walkable reports whether p is inside the grid and not an obstacle.
func (g *Grid) Walkable(p Point) bool {
	return g.InBounds(p) && g.cells[p.Row][p.Col].Kind != KindObstacle
}

// Locate returns the position of a routable cell by id.
func (g *Grid) Locate(id string) (Point, bool) {
	p, ok := g.byID[id]
	return p, ok
}

// Starts returns all START cells in row-major order.
func (g *Grid) Starts() []POI { return g.starts }

// Ends returns all END cells in row-major order.
func (g *Grid) Ends() []POI { return g.ends }

// Shelves returns all SHELF cells in row-major order.
func (g *Grid) Shelves() []POI { return g.shelves }
