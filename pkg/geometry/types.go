// Package geometry holds the point types shared by the lattice and feature
// code.
package geometry

import "math"

// Point2D is a point with floating-point coordinates.
type Point2D struct {
	X, Y float64
}

// Round returns the nearest integer point.
func (p Point2D) Round() PointInt {
	return PointInt{X: int(math.Round(p.X)), Y: int(math.Round(p.Y))}
}

// PointInt is a point with integer coordinates: a pixel, or a (col, row)
// lattice position.
type PointInt struct {
	X, Y int
}

// GridDistance returns the Euclidean distance to other rounded up to the
// next integer. Two cells at GridDistance 0 are the same cell.
func (p PointInt) GridDistance(other PointInt) int {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return int(math.Ceil(math.Sqrt(float64(dx*dx + dy*dy))))
}

// GenerateCirclePoints generates n evenly-spaced points around a circle.
// The first point sits at angle 2π/n·offset measured from the +Y axis, so
// offset=1 reproduces a ring whose first sample is one step clockwise from
// north.
func GenerateCirclePoints(centerX, centerY, radius float64, n int, offset float64) []Point2D {
	points := make([]Point2D, n)
	for i := 0; i < n; i++ {
		angle := (float64(i) + offset) * 2.0 * math.Pi / float64(n)
		points[i] = Point2D{
			X: centerX + radius*math.Sin(angle),
			Y: centerY + radius*math.Cos(angle),
		}
	}
	return points
}
