//go:build !nogocv

package cvaccel

import (
	"fmt"

	"hexmosaic/internal/errs"
	"hexmosaic/internal/linalg"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// cv::GemmFlags
const (
	gemmTransA = 1
	gemmTransB = 2
)

func init() {
	_ = linalg.RegisterAccelerator(&Backend{})
}

// Backend runs Gemm and EigenSym through OpenCV's core module.
type Backend struct{}

// Name implements linalg.Backend.
func (*Backend) Name() string { return "opencv" }

// Init checks that the native library answers a trivial call.
func (b *Backend) Init() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("opencv init: %v", r)
		}
	}()
	one := mat.NewDense(1, 1, []float64{2})
	out, err := b.Gemm(one, one, 1, false, false)
	if err != nil {
		return err
	}
	if out.At(0, 0) != 4 {
		return fmt.Errorf("opencv init: unexpected result %v", out.At(0, 0))
	}
	return nil
}

// Close implements linalg.Accelerator. OpenCV holds no per-backend state.
func (*Backend) Close() {}

// Gemm implements linalg.Backend.
func (*Backend) Gemm(a, b mat.Matrix, alpha float64, transA, transB bool) (out *mat.Dense, err error) {
	defer recoverFallback("gemm", &err)

	ma := toMat(a)
	defer ma.Close()
	mb := toMat(b)
	defer mb.Close()
	empty := gocv.NewMat()
	defer empty.Close()
	dst := gocv.NewMat()
	defer dst.Close()

	switch {
	case transA && transB:
		gocv.Gemm(ma, mb, alpha, empty, 0, &dst, gemmTransA|gemmTransB)
	case transA:
		gocv.Gemm(ma, mb, alpha, empty, 0, &dst, gemmTransA)
	case transB:
		gocv.Gemm(ma, mb, alpha, empty, 0, &dst, gemmTransB)
	default:
		gocv.Gemm(ma, mb, alpha, empty, 0, &dst, 0)
	}
	if dst.Empty() {
		return nil, fmt.Errorf("gemm: %w", errs.ErrFallback)
	}
	return fromMat(dst), nil
}

// EigenSym implements linalg.Backend. OpenCV returns eigenvalues in
// descending order with eigenvectors as rows; they are transposed to columns.
func (*Backend) EigenSym(a mat.Symmetric) (values []float64, vectors *mat.Dense, err error) {
	defer recoverFallback("eigen", &err)

	src := toMat(a)
	defer src.Close()
	vals := gocv.NewMat()
	defer vals.Close()
	vecs := gocv.NewMat()
	defer vecs.Close()

	if !gocv.Eigen(src, &vals, &vecs) {
		return nil, nil, fmt.Errorf("eigen: %w", errs.ErrFallback)
	}
	n := a.SymmetricDim()
	if vals.Rows()*vals.Cols() != n || vecs.Rows() != n || vecs.Cols() != n {
		return nil, nil, fmt.Errorf("eigen: unexpected result shape: %w", errs.ErrFallback)
	}
	values = make([]float64, n)
	vectors = mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		values[i] = vals.GetDoubleAt(i, 0)
		for r := 0; r < n; r++ {
			vectors.Set(r, i, vecs.GetDoubleAt(i, r))
		}
	}
	return values, vectors, nil
}

func toMat(m mat.Matrix) gocv.Mat {
	r, c := m.Dims()
	out := gocv.NewMatWithSize(r, c, gocv.MatTypeCV64F)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.SetDoubleAt(i, j, m.At(i, j))
		}
	}
	return out
}

func fromMat(m gocv.Mat) *mat.Dense {
	r, c := m.Rows(), m.Cols()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, m.GetDoubleAt(i, j))
		}
	}
	return out
}

// recoverFallback turns a panic raised across the cgo boundary into an
// ErrFallback so the caller reruns the operation on the reference backend.
func recoverFallback(op string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s: %v: %w", op, r, errs.ErrFallback)
	}
}
