package mosaic

import (
	"container/heap"
	"context"
	"runtime"

	"hexmosaic/internal/grid"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// candidate is one database tile and its distance to a cell.
type candidate struct {
	tile int
	dist float64
}

// ranking is a min-heap of candidates, nearest first. Equal distances are
// ordered by tile index so rankings are reproducible.
type ranking []candidate

func (r ranking) Len() int { return len(r) }
func (r ranking) Less(i, j int) bool {
	if r[i].dist != r[j].dist {
		return r[i].dist < r[j].dist
	}
	return r[i].tile < r[j].tile
}
func (r ranking) Swap(i, j int) { r[i], r[j] = r[j], r[i] }
func (r *ranking) Push(x any)   { *r = append(*r, x.(candidate)) }
func (r *ranking) Pop() any {
	old := *r
	n := len(old)
	c := old[n-1]
	*r = old[:n-1]
	return c
}

// assignedTiles records, per database tile, the cells it was placed in.
type assignedTiles map[int][]int

// placement is the outcome of matching one cell.
type placement struct {
	cell   int
	tile   int
	dist   float64
	reused bool
}

// matcher assigns tiles to cells greedily. Each cell takes the nearest tile
// that does not already appear within minRadius of it; when every tile is
// blocked the constraint is waived and the nearest tile is used. This is a
// heuristic, not a minimum-cost assignment.
type matcher struct {
	cells     []grid.Cell
	cellVecs  *mat.Dense // one row per cell
	tileVecs  *mat.Dense // one row per database tile
	minRadius int
	assigned  assignedTiles
}

func newMatcher(cells []grid.Cell, cellVecs, tileVecs *mat.Dense, minRadius int) *matcher {
	return &matcher{
		cells:     cells,
		cellVecs:  cellVecs,
		tileVecs:  tileVecs,
		minRadius: minRadius,
		assigned:  make(assignedTiles),
	}
}

// rank orders every tile by Euclidean distance to cell. It only reads the
// feature matrices, so calls for different cells may run concurrently.
func (m *matcher) rank(cell int) ranking {
	n, _ := m.tileVecs.Dims()
	v := m.cellVecs.RawRowView(cell)
	r := make(ranking, n)
	for i := 0; i < n; i++ {
		r[i] = candidate{tile: i, dist: floats.Distance(v, m.tileVecs.RawRowView(i), 2)}
	}
	heap.Init(&r)
	return r
}

// blocked reports whether tile already sits within minRadius of cell.
func (m *matcher) blocked(tile, cell int) bool {
	for _, other := range m.assigned[tile] {
		if m.cells[other].Distance(m.cells[cell]) <= m.minRadius {
			return true
		}
	}
	return false
}

// accept pops candidates until one satisfies the radius constraint and
// records it. It must be called in visiting order, one cell at a time.
func (m *matcher) accept(cell int, r ranking) placement {
	best := candidate{tile: -1}
	for r.Len() > 0 {
		c := heap.Pop(&r).(candidate)
		if best.tile < 0 {
			best = c
		}
		if !m.blocked(c.tile, cell) {
			m.assigned[c.tile] = append(m.assigned[c.tile], cell)
			return placement{cell: cell, tile: c.tile, dist: c.dist}
		}
	}
	m.assigned[best.tile] = append(m.assigned[best.tile], cell)
	return placement{cell: cell, tile: best.tile, dist: best.dist, reused: true}
}

// run matches cells in the given order. Rankings for the next window cells
// are computed in parallel; acceptance stays sequential. place is called for
// each placement in order. The context is checked between cells.
func (m *matcher) run(ctx context.Context, order []int, window int, place func(placement) error) error {
	window = max(window, 1)
	rankings := make([]ranking, window)
	for start := 0; start < len(order); start += window {
		batch := order[start:min(start+window, len(order))]

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(runtime.NumCPU())
		for i, cell := range batch {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				rankings[i] = m.rank(cell)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for i, cell := range batch {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := place(m.accept(cell, rankings[i])); err != nil {
				return err
			}
			rankings[i] = nil
		}
	}
	return nil
}
