// Package cvaccel registers an OpenCV-backed linear-algebra accelerator.
//
// Importing the package for its side effect is enough:
//
//	import _ "hexmosaic/internal/linalg/cvaccel"
//
// Build with -tags nogocv to leave it out; the reference backend is then the
// only one available.
package cvaccel
