// Package grid computes where mosaic cells sit on the canvas and which pixels
// of a cell footprint belong to the tile shape.
package grid

import (
	"fmt"
	"math"

	"hexmosaic/pkg/geometry"
)

// Lattice selects the cell arrangement.
type Lattice int

const (
	Square Lattice = iota
	Hex
)

func (l Lattice) String() string {
	switch l {
	case Square:
		return "square"
	case Hex:
		return "hex"
	default:
		return fmt.Sprintf("Lattice(%d)", int(l))
	}
}

// Cell is one placement position. Anchor is the top-left pixel of the cell's
// footprint on the canvas.
type Cell struct {
	Col, Row int
	Anchor   geometry.PointInt
}

// Pos returns the cell's lattice coordinates as a point.
func (c Cell) Pos() geometry.PointInt {
	return geometry.PointInt{X: c.Col, Y: c.Row}
}

// Distance returns the grid distance between two cells: the Euclidean
// distance of their (col, row) coordinates, rounded up.
func (c Cell) Distance(o Cell) int {
	return c.Pos().GridDistance(o.Pos())
}

// BuildSquareGrid places width×height cells of tileSize pixels edge to edge.
func BuildSquareGrid(width, height, tileSize int) []Cell {
	cells := make([]Cell, 0, width*height)
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			cells = append(cells, Cell{
				Col:    col,
				Row:    row,
				Anchor: geometry.PointInt{X: col * tileSize, Y: row * tileSize},
			})
		}
	}
	return cells
}

// HexRadius returns the corner radius of a hexagon hexHeight pixels tall.
func HexRadius(hexHeight int) float64 { return float64(hexHeight) / 2 }

// HexWidth returns the flat-to-flat width of a pointy-top hexagon that is
// hexHeight pixels tall.
func HexWidth(hexHeight int) int {
	return int(math.Round(HexRadius(hexHeight) * math.Sqrt(3)))
}

// BuildHexGrid places an interlocking pointy-top lattice of width columns by
// height rows. Odd rows are shifted right by half a hexagon and drop their
// last column, so the result has height·width − ⌊height/2⌋ cells.
func BuildHexGrid(width, height, hexHeight int) []Cell {
	r := HexRadius(hexHeight)
	step := r * math.Sqrt(3)
	cells := make([]Cell, 0, width*height-height/2)
	for row := 0; row < height; row++ {
		odd := row % 2
		for col := 0; col < width-odd; col++ {
			x := step * (float64(col) + float64(odd)/2)
			y := 1.5 * r * float64(row)
			cells = append(cells, Cell{
				Col:    col,
				Row:    row,
				Anchor: geometry.Point2D{X: x, Y: y}.Round(),
			})
		}
	}
	return cells
}
