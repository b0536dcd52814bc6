package tsp

// Table is an undirected pairwise distance lookup for one map's points of
// interest. Distances are stored once per unordered pair; lookups try
// both directions.
type Table struct {
	dist map[pairKey]int
	ids  map[string]struct{}
}

type pairKey struct {
	from string
	to   string
}

// NewTable returns an empty distance table.
func NewTable() *Table {
	return &Table{
		dist: make(map[pairKey]int),
		ids:  make(map[string]struct{}),
	}
}

// Set records the distance between two points. A negative d marks the
// pair as unreachable.
func (t *Table) Set(from, to string, d int) {
	t.dist[pairKey{from: from, to: to}] = d
	t.ids[from] = struct{}{}
	t.ids[to] = struct{}{}
}

// Has reports whether id appears as an endpoint of any record.
func (t *Table) Has(id string) bool {
	_, ok := t.ids[id]
	return ok
}

// Distance looks up the distance between two points, trying both
// directions. The distance of a point to itself is 0.
func (t *Table) Distance(from, to string) (int, bool) {
	if from == to {
		return 0, true
	}
	if d, ok := t.dist[pairKey{from: from, to: to}]; ok {
		return d, true
	}
	d, ok := t.dist[pairKey{from: to, to: from}]
	return d, ok
}
