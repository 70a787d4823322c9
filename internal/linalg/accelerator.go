package linalg

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"hexmosaic/internal/errs"

	"gonum.org/v1/gonum/mat"
)

// Accelerator is an optional faster Backend, typically backed by native code.
//
// Implementations register themselves from an init function:
//
//	func init() {
//	    linalg.RegisterAccelerator(newBackend())
//	}
//
// If Init fails, if the startup self-check disagrees with the reference, or if a
// later call returns an error, the run continues on the reference backend.
type Accelerator interface {
	Backend

	// Init acquires native resources. Called once by Select.
	Init() error

	// Close releases native resources.
	Close()
}

var (
	accelMu sync.RWMutex
	accel   Accelerator
)

// RegisterAccelerator registers the accelerator Select will try. Only one
// accelerator is kept; a later registration replaces the earlier one.
func RegisterAccelerator(a Accelerator) error {
	if a == nil {
		return errors.New("linalg: accelerator must not be nil")
	}
	accelMu.Lock()
	accel = a
	accelMu.Unlock()
	return nil
}

// RegisteredAccelerator returns the registered accelerator, or nil.
func RegisteredAccelerator() Accelerator {
	accelMu.RLock()
	defer accelMu.RUnlock()
	return accel
}

// Select picks the backend for this process. Call it once at startup and
// pass the result to every component. It never fails: any problem with the
// accelerator is logged at warn level and the reference backend is returned.
func Select(logger *slog.Logger) Backend {
	logger = errs.OrNop(logger)
	ref := Reference{}

	a := RegisteredAccelerator()
	if a == nil {
		logger.Info("linear algebra backend selected", "backend", ref.Name())
		return ref
	}
	if err := a.Init(); err != nil {
		logger.Warn("accelerator unavailable, falling back to CPU", "accelerator", a.Name(), "err", err)
		return ref
	}
	if err := selfCheck(a, ref); err != nil {
		a.Close()
		logger.Warn("accelerator failed self-test, falling back to CPU", "accelerator", a.Name(), "err", err)
		return ref
	}

	logger.Info("linear algebra backend selected", "backend", a.Name())
	return &guarded{primary: a, ref: ref, logger: logger}
}

// selfCheck runs a small problem on both backends and compares the results.
func selfCheck(a Backend, ref Backend) error {
	x := mat.NewDense(3, 5, []float64{
		1, 2, 0, -1, 3,
		0, 1, 4, 2, -2,
		2, -1, 1, 0, 1,
	})
	want, err := Covariance(ref, x, 0.25)
	if err != nil {
		return err
	}
	got, err := Covariance(a, x, 0.25)
	if err != nil {
		return fmt.Errorf("gemm: %w", err)
	}
	if !mat.EqualApprox(want, got, 1e-6) {
		return errors.New("gemm result differs from reference")
	}

	wantVals, wantVecs, err := ref.EigenSym(want)
	if err != nil {
		return err
	}
	gotVals, gotVecs, err := a.EigenSym(want)
	if err != nil {
		return fmt.Errorf("eigen: %w", err)
	}
	if len(gotVals) != len(wantVals) {
		return errors.New("eigenvalue count differs from reference")
	}
	for i := range wantVals {
		if math.Abs(wantVals[i]-gotVals[i]) > 1e-6 {
			return errors.New("eigenvalues differ from reference")
		}
		// Eigenvectors are defined up to sign.
		dot := mat.Dot(wantVecs.ColView(i), gotVecs.ColView(i))
		if math.Abs(math.Abs(dot)-1) > 1e-6 {
			return errors.New("eigenvectors differ from reference")
		}
	}
	return nil
}

// guarded runs calls on the accelerator until the first failure, then on
// the reference backend for the rest of the process.
type guarded struct {
	primary  Accelerator
	ref      Reference
	logger   *slog.Logger
	disabled atomic.Bool
}

func (g *guarded) Name() string {
	if g.disabled.Load() {
		return g.ref.Name()
	}
	return g.primary.Name()
}

func (g *guarded) Gemm(a, b mat.Matrix, alpha float64, transA, transB bool) (*mat.Dense, error) {
	if !g.disabled.Load() {
		out, err := g.primary.Gemm(a, b, alpha, transA, transB)
		if err == nil {
			return out, nil
		}
		g.disable("gemm", err)
	}
	return g.ref.Gemm(a, b, alpha, transA, transB)
}

func (g *guarded) EigenSym(a mat.Symmetric) ([]float64, *mat.Dense, error) {
	if !g.disabled.Load() {
		vals, vecs, err := g.primary.EigenSym(a)
		if err == nil {
			return vals, vecs, nil
		}
		g.disable("eigen", err)
	}
	return g.ref.EigenSym(a)
}

func (g *guarded) disable(op string, err error) {
	if g.disabled.CompareAndSwap(false, true) {
		g.logger.Warn("accelerator call failed, falling back to CPU",
			"accelerator", g.primary.Name(), "op", op, "err", err,
			"requested_fallback", errors.Is(err, errs.ErrFallback))
		g.primary.Close()
	}
}
