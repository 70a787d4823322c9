package mosaic

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"hexmosaic/internal/errs"
	"hexmosaic/internal/grid"
)

// Matcher selects how cells and tiles are compared.
type Matcher int

const (
	// MatchPCA compares masked pixels projected onto a subspace learned
	// from the source cells.
	MatchPCA Matcher = iota
	// MatchDescriptor compares seven-disc ring descriptors directly.
	MatchDescriptor
)

func (m Matcher) String() string {
	switch m {
	case MatchPCA:
		return "pca"
	case MatchDescriptor:
		return "descriptor"
	}
	return fmt.Sprintf("Matcher(%d)", int(m))
}

// ParseMatcher accepts "pca" or "descriptor".
func ParseMatcher(s string) (Matcher, error) {
	switch strings.ToLower(s) {
	case "pca":
		return MatchPCA, nil
	case "descriptor", "ring":
		return MatchDescriptor, nil
	}
	return 0, fmt.Errorf("unknown matcher %q", s)
}

// Config holds the parameters of one mosaic build.
type Config struct {
	Width      int          // grid columns
	Dimensions int          // subspace dimensions, 1..100
	MinRadius  int          // grid distance within which a tile may not repeat
	Ratio      float64      // colour balance strength, 0..1
	Grayscale  bool         // build from single-channel tiles
	Lattice    grid.Lattice // square or hex
	Matcher    Matcher      // how cells and tiles are compared
	Seed       uint64       // cell visiting order

	// OutputDir receives the mosaic; empty means the working directory.
	OutputDir string
	// CacheFeatures stores raw tile features next to the database.
	CacheFeatures bool
	// Window is how many upcoming cells are ranked in parallel.
	Window int

	Logger *slog.Logger
}

// DefaultConfig returns a 40-column square mosaic with 20 dimensions, a
// minimum reuse radius of 3 and no colour balance.
func DefaultConfig() Config {
	return Config{
		Width:         40,
		Dimensions:    20,
		MinRadius:     3,
		Ratio:         0,
		Lattice:       grid.Square,
		Matcher:       MatchPCA,
		CacheFeatures: true,
		Window:        4 * runtime.NumCPU(),
	}
}

// WithHex returns a copy of c using the hexagonal lattice.
func (c Config) WithHex() Config {
	c.Lattice = grid.Hex
	return c
}

// WithLogger returns a copy of c that logs to l.
func (c Config) WithLogger(l *slog.Logger) Config {
	c.Logger = l
	return c
}

// Validate reports the first parameter out of range as an *errs.ConfigError.
func (c Config) Validate() error {
	switch {
	case c.Width <= 0:
		return &errs.ConfigError{Param: "width", Value: c.Width, Reason: "must be > 0"}
	case c.Lattice == grid.Hex && c.Width < 2:
		return &errs.ConfigError{Param: "width", Value: c.Width, Reason: "hex lattice needs at least 2 columns"}
	case c.Dimensions < 1 || c.Dimensions > 100:
		return &errs.ConfigError{Param: "dimensions", Value: c.Dimensions, Reason: "must be in 1..100"}
	case c.MinRadius < 0:
		return &errs.ConfigError{Param: "min radius", Value: c.MinRadius, Reason: "must be >= 0"}
	case c.Ratio < 0 || c.Ratio > 1:
		return &errs.ConfigError{Param: "colour balance ratio", Value: c.Ratio, Reason: "must be in [0, 1]"}
	case c.Lattice != grid.Square && c.Lattice != grid.Hex:
		return &errs.ConfigError{Param: "lattice", Value: c.Lattice, Reason: "must be square or hex"}
	case c.Matcher != MatchPCA && c.Matcher != MatchDescriptor:
		return &errs.ConfigError{Param: "matcher", Value: c.Matcher, Reason: "must be pca or descriptor"}
	case c.Window < 0:
		return &errs.ConfigError{Param: "window", Value: c.Window, Reason: "must be >= 0"}
	}
	return nil
}

func (c Config) channels() int {
	if c.Grayscale {
		return 1
	}
	return 3
}
