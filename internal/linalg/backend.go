// Package linalg provides the matrix operations the subspace model needs:
// general matrix multiply and symmetric eigendecomposition.
//
// A pure Go reference implementation built on gonum is always available. An
// accelerated implementation may be registered (see RegisterAccelerator);
// Select decides once, at startup, which one a run uses.
package linalg

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Backend is a linear-algebra capability.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string

	// Gemm returns alpha·op(a)·op(b), where op transposes its argument when
	// the corresponding flag is set.
	Gemm(a, b mat.Matrix, alpha float64, transA, transB bool) (*mat.Dense, error)

	// EigenSym decomposes a symmetric matrix. Eigenvalues are returned in
	// descending order and column i of vectors belongs to values[i].
	EigenSym(a mat.Symmetric) (values []float64, vectors *mat.Dense, err error)
}

// Reference is the CPU implementation on top of gonum.
type Reference struct{}

// Name implements Backend.
func (Reference) Name() string { return "gonum" }

// Gemm implements Backend.
func (Reference) Gemm(a, b mat.Matrix, alpha float64, transA, transB bool) (*mat.Dense, error) {
	if transA {
		a = a.T()
	}
	if transB {
		b = b.T()
	}
	_, ac := a.Dims()
	br, _ := b.Dims()
	if ac != br {
		return nil, fmt.Errorf("gemm: inner dimensions differ (%d vs %d)", ac, br)
	}

	var out mat.Dense
	out.Mul(a, b)
	if alpha != 1 {
		out.Scale(alpha, &out)
	}
	return &out, nil
}

// EigenSym implements Backend.
func (Reference) EigenSym(a mat.Symmetric) ([]float64, *mat.Dense, error) {
	var es mat.EigenSym
	if ok := es.Factorize(a, true); !ok {
		return nil, nil, fmt.Errorf("eigen: factorization did not converge")
	}

	asc := es.Values(nil)
	var ev mat.Dense
	es.VectorsTo(&ev)

	n := len(asc)
	values := make([]float64, n)
	vectors := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		src := n - 1 - i
		values[i] = asc[src]
		for r := 0; r < n; r++ {
			vectors.Set(r, i, ev.At(r, src))
		}
	}
	return values, vectors, nil
}

// Covariance returns the rows×rows matrix alpha·x·xᵗ as a symmetric matrix.
func Covariance(b Backend, x mat.Matrix, alpha float64) (*mat.SymDense, error) {
	c, err := b.Gemm(x, x, alpha, false, true)
	if err != nil {
		return nil, err
	}
	n, _ := c.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			// Average the halves so rounding differences cannot break symmetry.
			sym.SetSym(i, j, 0.5*(c.At(i, j)+c.At(j, i)))
		}
	}
	return sym, nil
}
