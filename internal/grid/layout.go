package grid

import (
	"fmt"
	"math"
)

// maxRows bounds the aspect search for degenerate inputs.
const maxRows = 1 << 16

// Layout is a complete lattice: the cells, their shared mask and footprint,
// and the canvas that holds them.
type Layout struct {
	Lattice    Lattice
	Cols, Rows int
	TileSize   int // canonical tile edge
	TileWidth  int // footprint width, narrower than TileSize for hex
	TileHeight int
	Cells      []Cell
	Mask       *Mask
	Width      int
	Height     int
}

// NewLayout builds the cells and mask for cols×rows cells of tileSize pixels.
// The canvas is the bounding box of every placed footprint.
func NewLayout(lattice Lattice, cols, rows, tileSize int) (*Layout, error) {
	w, h, err := CanvasSize(lattice, cols, rows, tileSize)
	if err != nil {
		return nil, err
	}
	l := &Layout{Lattice: lattice, Cols: cols, Rows: rows, TileSize: tileSize, Width: w, Height: h}
	switch lattice {
	case Square:
		l.TileWidth, l.TileHeight = tileSize, tileSize
		l.Cells = BuildSquareGrid(cols, rows, tileSize)
		l.Mask = FullMask(tileSize, tileSize)
	case Hex:
		l.TileWidth, l.TileHeight = HexWidth(tileSize), tileSize
		l.Cells = BuildHexGrid(cols, rows, tileSize)
		l.Mask = BuildHexMask(tileSize)
	}
	return l, nil
}

// CanvasSize returns the canvas NewLayout would build, without building the
// cells. Row 0 is the widest row and the last row is the lowest.
func CanvasSize(lattice Lattice, cols, rows, tileSize int) (width, height int, err error) {
	if cols <= 0 || rows <= 0 || tileSize <= 0 {
		return 0, 0, fmt.Errorf("grid: invalid layout %dx%d of %dpx tiles", cols, rows, tileSize)
	}
	switch lattice {
	case Square:
		return cols * tileSize, rows * tileSize, nil
	case Hex:
		if cols < 2 {
			return 0, 0, fmt.Errorf("grid: hex lattice needs at least 2 columns, got %d", cols)
		}
		r := HexRadius(tileSize)
		right := int(math.Round(r * math.Sqrt(3) * float64(cols-1)))
		bottom := int(math.Round(1.5 * r * float64(rows-1)))
		return right + HexWidth(tileSize), bottom + tileSize, nil
	}
	return 0, 0, fmt.Errorf("grid: unknown lattice %v", lattice)
}

// Aspect returns the canvas width/height ratio.
func (l *Layout) Aspect() float64 { return float64(l.Width) / float64(l.Height) }

// FitRows picks the row count whose canvas aspect best matches a srcW×srcH
// image. Rows are tried in increasing order and the search stops at the first
// row count that does worse than its predecessor. Only the winner is built.
func FitRows(lattice Lattice, cols, tileSize, srcW, srcH int) (*Layout, error) {
	if srcW <= 0 || srcH <= 0 {
		return nil, fmt.Errorf("grid: invalid source size %dx%d", srcW, srcH)
	}
	target := float64(srcW) / float64(srcH)
	diff := func(rows int) (float64, error) {
		w, h, err := CanvasSize(lattice, cols, rows, tileSize)
		if err != nil {
			return 0, err
		}
		return math.Abs(float64(w)/float64(h) - target), nil
	}

	best := 1
	bestDiff, err := diff(best)
	if err != nil {
		return nil, err
	}
	for rows := 2; rows <= maxRows; rows++ {
		d, err := diff(rows)
		if err != nil {
			return nil, err
		}
		if d > bestDiff {
			break
		}
		best, bestDiff = rows, d
	}
	return NewLayout(lattice, cols, best, tileSize)
}
