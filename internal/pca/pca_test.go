package pca

import (
	"math"
	"math/rand/v2"
	"testing"

	"hexmosaic/internal/errs"
	"hexmosaic/internal/linalg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func trainingSet(rows, cols int) [][]float64 {
	rng := rand.New(rand.NewPCG(7, 11))
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, cols)
		for j := range out[i] {
			// Correlated columns give a spectrum with a clear ordering.
			out[i][j] = rng.NormFloat64()*float64(1+j%4) + float64(j)
		}
	}
	return out
}

func solved(t *testing.T, data [][]float64, dims int) *Projector {
	t.Helper()
	p, err := New(len(data), len(data[0]), linalg.Reference{})
	require.NoError(t, err)
	for _, r := range data {
		require.NoError(t, p.AddRow(r))
	}
	require.NoError(t, p.Solve(dims))
	return p
}

func TestMean(t *testing.T) {
	data := [][]float64{{1, 2, 3}, {3, 4, 5}}
	p, err := New(2, 3, nil)
	require.NoError(t, err)
	for _, r := range data {
		require.NoError(t, p.AddRow(r))
	}
	assert.InDeltaSlice(t, []float64{2, 3, 4}, p.Mean(), 1e-12)
}

func TestReconstructionErrorDecreases(t *testing.T) {
	data := trainingSet(9, 24)
	prev := math.Inf(1)
	for dims := 1; dims < len(data); dims++ {
		p := solved(t, data, dims)
		var total float64
		for _, v := range data {
			c, err := p.Project(v, nil)
			require.NoError(t, err)
			back, err := p.BackProject(c)
			require.NoError(t, err)
			total += floats.Distance(v, back, 2)
		}
		assert.LessOrEqual(t, total, prev+1e-9, "dims %d", dims)
		prev = total
	}
	// rows−1 components span the centred training set.
	assert.InDelta(t, 0, prev, 1e-6)
}

func TestEigenVectorsOrthonormal(t *testing.T) {
	data := trainingSet(8, 30)
	p := solved(t, data, 5)
	for i := 0; i < 5; i++ {
		vi, err := p.EigenVector(i)
		require.NoError(t, err)
		assert.InDelta(t, 1, floats.Norm(vi, 2), 1e-9)
		for j := i + 1; j < 5; j++ {
			vj, err := p.EigenVector(j)
			require.NoError(t, err)
			assert.InDelta(t, 0, floats.Dot(vi, vj), 1e-9, "%d·%d", i, j)
		}
	}
	vals := p.EigenValues()
	for i := 1; i < len(vals); i++ {
		assert.GreaterOrEqual(t, vals[i-1], vals[i])
	}
}

func TestProjectMatrixMatchesProject(t *testing.T) {
	data := trainingSet(6, 12)
	p := solved(t, data, 3)

	m := mat.NewDense(len(data), 12, nil)
	for i, r := range data {
		m.SetRow(i, r)
	}
	got, err := p.ProjectMatrix(m)
	require.NoError(t, err)
	for i, r := range data {
		want, err := p.Project(r, nil)
		require.NoError(t, err)
		assert.InDeltaSlice(t, want, mat.Row(nil, i, got), 1e-9)
	}
}

func TestDegenerateTraining(t *testing.T) {
	// Identical rows: every eigenvalue is zero.
	row := []float64{1, 2, 3, 4}
	p, err := New(3, 4, nil)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, p.AddRow(row))
	}
	require.NoError(t, p.Solve(2))
	c, err := p.Project(row, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, c)
}

func TestInvariants(t *testing.T) {
	_, err := New(5, 4, nil)
	assert.ErrorIs(t, err, errs.ErrInvariant)

	p, err := New(3, 4, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, p.AddRow([]float64{1, 2}), errs.ErrInvariant)
	require.NoError(t, p.AddRow([]float64{1, 0, 0, 0}))
	assert.ErrorIs(t, p.Solve(1), errs.ErrInvariant, "solve before all rows")

	_, err = p.Project([]float64{1, 2, 3, 4}, nil)
	assert.ErrorIs(t, err, errs.ErrInvariant, "project before solve")

	require.NoError(t, p.AddRow([]float64{0, 1, 0, 0}))
	require.NoError(t, p.AddRow([]float64{0, 0, 1, 0}))
	assert.ErrorIs(t, p.AddRow([]float64{0, 0, 0, 1}), errs.ErrInvariant)

	for _, dims := range []int{0, 3, -1} {
		assert.ErrorIs(t, p.Solve(dims), errs.ErrInvariant, "dims %d", dims)
	}
	require.NoError(t, p.Solve(2))
	assert.ErrorIs(t, p.Solve(1), errs.ErrInvariant)

	_, err = p.BackProject([]float64{1})
	assert.ErrorIs(t, err, errs.ErrInvariant)
	_, err = p.EigenVector(2)
	assert.ErrorIs(t, err, errs.ErrInvariant)
}
