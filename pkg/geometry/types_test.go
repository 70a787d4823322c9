package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGridDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b PointInt
		want int
	}{
		{"Same", PointInt{3, 4}, PointInt{3, 4}, 0},
		{"Horizontal", PointInt{0, 0}, PointInt{2, 0}, 2},
		{"Diagonal", PointInt{0, 0}, PointInt{1, 1}, 2},
		{"KnightMove", PointInt{5, 5}, PointInt{6, 7}, 3},
		{"Pythagorean", PointInt{0, 0}, PointInt{3, 4}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.GridDistance(tt.b))
			assert.Equal(t, tt.want, tt.b.GridDistance(tt.a))
		})
	}
}

func TestGenerateCirclePoints(t *testing.T) {
	pts := GenerateCirclePoints(10, 10, 5, 6, 0)
	assert.Len(t, pts, 6)
	assert.InDelta(t, 10.0, pts[0].X, 1e-9)
	assert.InDelta(t, 15.0, pts[0].Y, 1e-9)
	for _, p := range pts {
		assert.InDelta(t, 5.0, math.Hypot(p.X-10, p.Y-10), 1e-9)
	}

	shifted := GenerateCirclePoints(0, 0, 1, 6, 1)
	assert.InDelta(t, math.Sin(math.Pi/3), shifted[0].X, 1e-9)
}

func TestRound(t *testing.T) {
	assert.Equal(t, PointInt{1, 3}, Point2D{1.4, 2.6}.Round())
	assert.Equal(t, PointInt{-2, 0}, Point2D{-1.5, 0.49}.Round())
}
