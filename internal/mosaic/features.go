package mosaic

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"hexmosaic/internal/database"
	"hexmosaic/internal/errs"
	"hexmosaic/internal/features"
	"hexmosaic/internal/grid"
	"hexmosaic/internal/imgbuf"
	"hexmosaic/internal/linalg"
	"hexmosaic/internal/matio"
	"hexmosaic/internal/pca"

	"gonum.org/v1/gonum/mat"
)

// Patches cuts one footprint-sized patch per cell out of a canvas-sized
// image.
func Patches(scaled *imgbuf.Buffer, layout *grid.Layout) []*imgbuf.Buffer {
	out := make([]*imgbuf.Buffer, len(layout.Cells))
	for i, c := range layout.Cells {
		r := image.Rect(c.Anchor.X, c.Anchor.Y, c.Anchor.X+layout.TileWidth, c.Anchor.Y+layout.TileHeight)
		out[i] = scaled.Crop(r)
	}
	return out
}

// Extract runs ext over every buffer and stacks the vectors as rows.
func Extract(ext features.Extractor, bufs []*imgbuf.Buffer) (*mat.Dense, error) {
	m := mat.NewDense(len(bufs), ext.Len(), nil)
	for i, b := range bufs {
		if err := ext.Extract(b, m.RawRowView(i)); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// TrainProjector learns a dims-dimensional subspace from the rows of raw.
// The row count must not exceed the vector length, and dims must be smaller
// than the row count; both are reported as configuration errors.
func TrainProjector(raw *mat.Dense, dims int, backend linalg.Backend) (*pca.Projector, error) {
	rows, cols := raw.Dims()
	if rows > cols {
		return nil, &errs.ConfigError{Param: "width", Value: rows,
			Reason: fmt.Sprintf("grid has %d cells but a cell has only %d features; use fewer columns or larger tiles", rows, cols)}
	}
	if dims >= rows {
		return nil, &errs.ConfigError{Param: "dimensions", Value: dims,
			Reason: fmt.Sprintf("must be smaller than the number of cells (%d)", rows)}
	}
	p, err := pca.New(rows, cols, backend)
	if err != nil {
		return nil, err
	}
	for i := 0; i < rows; i++ {
		if err := p.AddRow(raw.RawRowView(i)); err != nil {
			return nil, err
		}
	}
	if err := p.Solve(dims); err != nil {
		return nil, err
	}
	return p, nil
}

// cachePath names the feature cache of db for one footprint and extractor.
func cachePath(db *database.Database, layout *grid.Layout, channels int, ext features.Extractor) string {
	return filepath.Join(db.Dir(), fmt.Sprintf("features-%dx%d-%d-%s.mat.zst",
		layout.TileWidth, layout.TileHeight, channels, ext.Name()))
}

// tileFeatures extracts the raw features of every database tile, centre
// cropped to the cell footprint. With caching enabled the matrix is read
// from, or written to, a compressed file in the database directory.
func (c *Compositor) tileFeatures(db *database.Database, layout *grid.Layout, ext features.Extractor) (*mat.Dense, error) {
	path := cachePath(db, layout, c.cfg.channels(), ext)
	if c.cfg.CacheFeatures {
		if m, ok := c.loadCache(db, path, db.Len(), ext.Len()); ok {
			c.logger.Info("tile features loaded from cache", "path", path)
			return m, nil
		}
	}

	m := mat.NewDense(db.Len(), ext.Len(), nil)
	for i := 0; i < db.Len(); i++ {
		tile, err := db.Tile(i)
		if err != nil {
			return nil, fmt.Errorf("database tile %d: %w", i, err)
		}
		if tile.Channels != c.cfg.channels() {
			return nil, errs.Invariantf("tile %s has %d channels, want %d", db.Path(i), tile.Channels, c.cfg.channels())
		}
		if err := ext.Extract(tile.CropCenter(layout.TileWidth, layout.TileHeight), m.RawRowView(i)); err != nil {
			return nil, err
		}
	}

	if c.cfg.CacheFeatures {
		if err := matio.Save(path, m); err != nil {
			c.logger.Warn("could not write feature cache", "path", path, "err", err)
		}
	}
	return m, nil
}

func (c *Compositor) loadCache(db *database.Database, path string, rows, cols int) (*mat.Dense, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	manifest, err := os.Stat(filepath.Join(db.Dir(), database.ManifestName))
	if err != nil || info.ModTime().Before(manifest.ModTime()) {
		c.logger.Info("feature cache predates database", "path", path)
		return nil, false
	}
	m, err := matio.LoadShape(path, rows, cols)
	switch {
	case errors.Is(err, matio.ErrShape):
		c.logger.Info("feature cache is stale", "path", path, "err", err)
		return nil, false
	case err != nil:
		c.logger.Warn("ignoring unreadable feature cache", "path", path, "err", err)
		return nil, false
	}
	return m, true
}
