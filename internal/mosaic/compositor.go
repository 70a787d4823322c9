// Package mosaic builds a photo mosaic: it matches every cell of a square or
// hexagonal lattice laid over a source image to a tile from a database,
// composites the tiles, optionally pulls their colour towards the source and
// fills the pixels no tile covered.
package mosaic

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"time"

	"hexmosaic/internal/database"
	"hexmosaic/internal/errs"
	"hexmosaic/internal/features"
	"hexmosaic/internal/grid"
	"hexmosaic/internal/imgbuf"
	"hexmosaic/internal/linalg"
	"hexmosaic/internal/resample"

	"gonum.org/v1/gonum/mat"
)

// Assignment records the tile placed in one cell.
type Assignment struct {
	Cell     grid.Cell
	Tile     int     // database index
	Distance float64 // feature distance between cell and tile
	Reused   bool    // the radius constraint was waived for this cell
}

// Result is a finished mosaic.
type Result struct {
	Canvas      *imgbuf.Buffer
	Layout      *grid.Layout
	Assignments []Assignment // in placement order
	OutputPath  string       // set by Build
	Reused      int          // cells placed with the constraint waived
	Filled      int          // pixels filled by seam repair
}

// Compositor runs mosaic builds. It keeps no state between builds.
type Compositor struct {
	cfg     Config
	store   imgbuf.Store
	backend linalg.Backend
	logger  *slog.Logger
}

// New validates cfg. A nil backend selects the reference implementation.
func New(cfg Config, store imgbuf.Store, backend linalg.Backend) (*Compositor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if backend == nil {
		backend = linalg.Reference{}
	}
	return &Compositor{
		cfg:     cfg,
		store:   store,
		backend: backend,
		logger:  errs.OrNop(cfg.Logger),
	}, nil
}

// Build reads the source image and the database in databaseDir, composes the
// mosaic and writes it to the output directory under OutputName.
func (c *Compositor) Build(ctx context.Context, sourcePath, databaseDir string) (*Result, error) {
	src, err := c.store.Read(sourcePath)
	if err != nil {
		return nil, err
	}
	db, err := database.Open(databaseDir, c.store)
	if err != nil {
		return nil, err
	}

	res, err := c.Compose(ctx, src, db)
	if err != nil {
		return nil, err
	}

	res.OutputPath = filepath.Join(c.cfg.OutputDir, OutputName(c.cfg, res.Layout, sourcePath, db.Name()))
	if err := c.store.Write(res.OutputPath, res.Canvas); err != nil {
		return nil, err
	}
	c.logger.Info("mosaic written", "path", res.OutputPath)
	return res, nil
}

// Compose builds the mosaic of src from db without touching the output.
func (c *Compositor) Compose(ctx context.Context, src *imgbuf.Buffer, db *database.Database) (*Result, error) {
	start := time.Now()
	ch := c.cfg.channels()
	if src.Channels != ch {
		return nil, errs.Invariantf("source has %d channels, want %d", src.Channels, ch)
	}

	// Lattice and canvas.
	layout, err := grid.FitRows(c.cfg.Lattice, c.cfg.Width, db.TileSize(), src.Width, src.Height)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("layout",
		"database", db.Len(), "tile_size", db.TileSize(),
		"source", fmt.Sprintf("%dx%d", src.Width, src.Height),
		"cells", fmt.Sprintf("%dx%d", layout.Cols, layout.Rows),
		"canvas", fmt.Sprintf("%dx%d", layout.Width, layout.Height),
		"footprint", fmt.Sprintf("%dx%d", layout.TileWidth, layout.TileHeight),
		"aspect", layout.Aspect())

	// Source patches and their features.
	scaled := resample.Scale(src, layout.Width, layout.Height)
	patches := Patches(scaled, layout)
	ext := c.extractor(layout, ch)
	cellVecs, err := Extract(ext, patches)
	if err != nil {
		return nil, err
	}
	tileVecs, err := c.tileFeatures(db, layout, ext)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c.cfg.Matcher == MatchPCA {
		cellVecs, tileVecs, err = c.project(cellVecs, tileVecs)
		if err != nil {
			return nil, err
		}
	}

	// Visit cells in a fixed pseudo-random order so ties do not follow
	// raster order.
	order := rand.New(rand.NewPCG(c.cfg.Seed, c.cfg.Seed)).Perm(len(layout.Cells))

	res := &Result{
		Canvas:      imgbuf.New(layout.Width, layout.Height, ch),
		Layout:      layout,
		Assignments: make([]Assignment, 0, len(layout.Cells)),
	}
	cov := newCoverage(layout.Width, layout.Height)
	m := newMatcher(layout.Cells, cellVecs, tileVecs, c.cfg.MinRadius)

	err = m.run(ctx, order, c.cfg.Window, func(p placement) error {
		cell := layout.Cells[p.cell]
		tile, err := db.Tile(p.tile)
		if err != nil {
			return fmt.Errorf("database tile %d: %w", p.tile, err)
		}
		patch := tile.CropCenter(layout.TileWidth, layout.TileHeight)
		patch = balance(patch, patches[p.cell], layout.Mask, c.cfg.Ratio)
		place(res.Canvas, cov, patch, layout.Mask, cell.Anchor.X, cell.Anchor.Y)

		res.Assignments = append(res.Assignments, Assignment{
			Cell: cell, Tile: p.tile, Distance: p.dist, Reused: p.reused,
		})
		if p.reused {
			res.Reused++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Filled = repairSeams(res.Canvas, cov)
	c.logger.Info("mosaic composed",
		"cells", len(res.Assignments), "reused", res.Reused, "filled", res.Filled,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return res, nil
}

func (c *Compositor) extractor(layout *grid.Layout, channels int) features.Extractor {
	if c.cfg.Matcher == MatchDescriptor {
		return features.NewRingDescriptor(layout.TileWidth, layout.TileHeight, channels)
	}
	return features.NewMaskedPixels(layout.Mask, channels)
}

// project trains the subspace on the source cells and maps both feature
// sets into it.
func (c *Compositor) project(cellVecs, tileVecs *mat.Dense) (*mat.Dense, *mat.Dense, error) {
	proj, err := TrainProjector(cellVecs, c.cfg.Dimensions, c.backend)
	if err != nil {
		return nil, nil, err
	}
	c.logger.Debug("subspace solved", "dimensions", proj.Dimensions(), "backend", c.backend.Name())

	cells, err := proj.ProjectMatrix(cellVecs)
	if err != nil {
		return nil, nil, err
	}
	tiles, err := proj.ProjectMatrix(tileVecs)
	if err != nil {
		return nil, nil, err
	}
	return cells, tiles, nil
}

// place copies the masked pixels of patch onto canvas at (x, y) and marks
// them covered.
func place(canvas *imgbuf.Buffer, cov *coverage, patch *imgbuf.Buffer, mask *grid.Mask, x, y int) {
	for _, p := range mask.Points {
		cx, cy := x+p.X, y+p.Y
		if cx < 0 || cy < 0 || cx >= canvas.Width || cy >= canvas.Height {
			continue
		}
		canvas.SetPixel(cx, cy, patch.Pixel(p.X, p.Y))
		cov.mark(cx, cy)
	}
}
