// Package pca learns a linear subspace from training vectors and maps
// vectors into and out of it.
//
// The training set is assumed to have fewer samples than dimensions, so the
// decomposition is done on the small rows×rows matrix X·Xᵗ and the eigenvectors
// of the full space are recovered from it.
package pca

import (
	"math"

	"hexmosaic/internal/errs"
	"hexmosaic/internal/linalg"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Projector accumulates training rows, solves for the leading eigenvectors
// and projects vectors onto them. Once solved the model is read-only and may
// be shared between goroutines.
type Projector struct {
	rows, cols int
	backend    linalg.Backend

	data  *mat.Dense
	added int
	mean  []float64

	eigen  *mat.Dense // dims×cols, one eigenvector per row
	values []float64
}

// New prepares a projector for rows training vectors of length cols.
// rows must not exceed cols. A nil backend selects the reference one.
func New(rows, cols int, backend linalg.Backend) (*Projector, error) {
	if rows < 1 || cols < 2 {
		return nil, errs.Invariantf("pca: need at least 1 row and 2 columns, got %dx%d", rows, cols)
	}
	if rows > cols {
		return nil, errs.Invariantf("pca: %d rows exceed %d columns", rows, cols)
	}
	if backend == nil {
		backend = linalg.Reference{}
	}
	return &Projector{
		rows:    rows,
		cols:    cols,
		backend: backend,
		data:    mat.NewDense(rows, cols, nil),
		mean:    make([]float64, cols),
	}, nil
}

// AddRow appends one training vector and folds it into the running mean.
func (p *Projector) AddRow(v []float64) error {
	if p.data == nil {
		return errs.Invariantf("pca: AddRow after Solve")
	}
	if len(v) != p.cols {
		return errs.Invariantf("pca: row length %d, want %d", len(v), p.cols)
	}
	if p.added == p.rows {
		return errs.Invariantf("pca: all %d rows already added", p.rows)
	}
	p.data.SetRow(p.added, v)
	floats.AddScaled(p.mean, 1/float64(p.rows), v)
	p.added++
	return nil
}

// Solve computes the leading dims eigenvectors. It requires every row to have
// been added and 0 < dims < rows. The training matrix is released afterwards.
//
// Components whose eigenvalue is not positive (rank-deficient training data)
// get a zero eigenvector, so they contribute nothing to projections.
func (p *Projector) Solve(dims int) error {
	if p.data == nil {
		return errs.Invariantf("pca: already solved")
	}
	if dims <= 0 || dims >= p.rows {
		return errs.Invariantf("pca: dimensions %d not in (0, %d)", dims, p.rows)
	}
	if p.added != p.rows {
		return errs.Invariantf("pca: %d of %d rows added", p.added, p.rows)
	}

	for i := 0; i < p.rows; i++ {
		floats.Sub(p.data.RawRowView(i), p.mean)
	}

	n := float64(p.cols - 1)
	cov, err := linalg.Covariance(p.backend, p.data, 1/n)
	if err != nil {
		return err
	}
	vals, vecs, err := p.backend.EigenSym(cov)
	if err != nil {
		return err
	}

	// Columns of Xᵗ·V are the full-space eigenvectors, up to scale.
	lead := vecs.Slice(0, p.rows, 0, dims)
	full, err := p.backend.Gemm(p.data, lead, 1, true, false)
	if err != nil {
		return err
	}

	p.eigen = mat.NewDense(dims, p.cols, nil)
	p.values = make([]float64, dims)
	tol := 1e-12 * math.Max(vals[0], 1)
	for i := 0; i < dims; i++ {
		p.values[i] = vals[i]
		if vals[i] <= tol {
			continue
		}
		row := p.eigen.RawRowView(i)
		mat.Col(row, i, full)
		floats.Scale(1/math.Sqrt(n*vals[i]), row)
	}

	p.data = nil
	return nil
}

// Dimensions returns the subspace dimensionality, or 0 before Solve.
func (p *Projector) Dimensions() int {
	if p.eigen == nil {
		return 0
	}
	r, _ := p.eigen.Dims()
	return r
}

// Len returns the length of the vectors the projector accepts.
func (p *Projector) Len() int { return p.cols }

// Mean returns a copy of the training mean.
func (p *Projector) Mean() []float64 {
	return append([]float64(nil), p.mean...)
}

// EigenValues returns the eigenvalues of the kept components, descending.
func (p *Projector) EigenValues() []float64 {
	return append([]float64(nil), p.values...)
}

// EigenVector returns a copy of eigenvector i.
func (p *Projector) EigenVector(i int) ([]float64, error) {
	if p.eigen == nil {
		return nil, errs.Invariantf("pca: not solved")
	}
	if i < 0 || i >= p.Dimensions() {
		return nil, errs.Invariantf("pca: eigenvector %d out of range [0, %d)", i, p.Dimensions())
	}
	return mat.Row(nil, i, p.eigen), nil
}

// Project maps v into the subspace as (v − mean)·Eᵗ. If dst has the right
// length it is reused.
func (p *Projector) Project(v, dst []float64) ([]float64, error) {
	if p.eigen == nil {
		return nil, errs.Invariantf("pca: not solved")
	}
	if len(v) != p.cols {
		return nil, errs.Invariantf("pca: vector length %d, want %d", len(v), p.cols)
	}
	dims := p.Dimensions()
	if len(dst) != dims {
		dst = make([]float64, dims)
	}
	centered := make([]float64, p.cols)
	floats.SubTo(centered, v, p.mean)
	for i := range dst {
		dst[i] = floats.Dot(centered, p.eigen.RawRowView(i))
	}
	return dst, nil
}

// ProjectMatrix projects every row of m. The multiply runs on the backend.
func (p *Projector) ProjectMatrix(m *mat.Dense) (*mat.Dense, error) {
	if p.eigen == nil {
		return nil, errs.Invariantf("pca: not solved")
	}
	r, c := m.Dims()
	if c != p.cols {
		return nil, errs.Invariantf("pca: matrix has %d columns, want %d", c, p.cols)
	}
	centered := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		floats.SubTo(centered.RawRowView(i), m.RawRowView(i), p.mean)
	}
	return p.backend.Gemm(centered, p.eigen, 1, false, true)
}

// BackProject maps subspace coordinates back as coords·E + mean.
func (p *Projector) BackProject(coords []float64) ([]float64, error) {
	if p.eigen == nil {
		return nil, errs.Invariantf("pca: not solved")
	}
	if len(coords) != p.Dimensions() {
		return nil, errs.Invariantf("pca: %d coordinates, want %d", len(coords), p.Dimensions())
	}
	out := append([]float64(nil), p.mean...)
	for i, c := range coords {
		floats.AddScaled(out, c, p.eigen.RawRowView(i))
	}
	return out, nil
}
