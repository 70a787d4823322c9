package database

import (
	"errors"
	"fmt"
	"path/filepath"

	"hexmosaic/internal/errs"
	"hexmosaic/internal/imgbuf"
)

// ErrManifestMismatch reports a manifest that does not describe the files
// actually present in the database directory.
var ErrManifestMismatch = errors.New("manifest does not match database")

// Database is an ordered, lazily loaded set of tiles.
type Database struct {
	dir      string
	manifest *Manifest
	paths    []string
	store    imgbuf.Store
}

// Open loads the manifest of dir and checks it against the tiles on disk:
// the image count must match and the first tile must have the recorded size.
func Open(dir string, store imgbuf.Store) (*Database, error) {
	m, err := LoadManifest(dir)
	if err != nil {
		return nil, err
	}
	if m.TileWidth <= 0 || m.TileWidth != m.TileHeight {
		return nil, fmt.Errorf("%s: tiles must be square, manifest says %dx%d: %w",
			dir, m.TileWidth, m.TileHeight, ErrManifestMismatch)
	}

	paths, err := imgbuf.ListImages(dir)
	if err != nil {
		return nil, &errs.IOError{Op: "list", Path: dir, Err: err}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%s: database contains no images", dir)
	}
	if len(paths) != m.ImageCount {
		return nil, fmt.Errorf("%s: manifest lists %d images, found %d: %w",
			dir, m.ImageCount, len(paths), ErrManifestMismatch)
	}

	db := &Database{dir: dir, manifest: m, paths: paths, store: store}
	if _, err := db.Tile(0); err != nil {
		return nil, err
	}
	return db, nil
}

// Dir returns the database directory.
func (d *Database) Dir() string { return d.dir }

// Name returns the database directory's base name.
func (d *Database) Name() string { return filepath.Base(filepath.Clean(d.dir)) }

// Len returns the number of tiles.
func (d *Database) Len() int { return len(d.paths) }

// TileSize returns the edge length of every tile.
func (d *Database) TileSize() int { return d.manifest.TileWidth }

// Path returns the file of tile i.
func (d *Database) Path(i int) string { return d.paths[i] }

// Tile reads tile i. A tile that cannot be read, or whose shape differs from
// the manifest, is an error; a build cannot continue without it.
func (d *Database) Tile(i int) (*imgbuf.Buffer, error) {
	if i < 0 || i >= len(d.paths) {
		return nil, errs.Invariantf("tile index %d out of range [0, %d)", i, len(d.paths))
	}
	b, err := d.store.Read(d.paths[i])
	if err != nil {
		return nil, err
	}
	if !b.Square() || b.Width != d.manifest.TileWidth {
		return nil, errs.Invariantf("tile %s is %dx%d, want %dx%d",
			d.paths[i], b.Width, b.Height, d.manifest.TileWidth, d.manifest.TileHeight)
	}
	return b, nil
}
