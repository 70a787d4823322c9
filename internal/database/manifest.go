// Package database manages a directory of canonical tiles: the manifest that
// describes it, lazy access to its tiles, and the crawler that fills it.
package database

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"hexmosaic/internal/errs"
)

// ManifestName is the manifest's file name inside a database directory.
const ManifestName = "manifest.json"

const manifestVersion = 1

// Manifest describes a tile database (manifest.json).
type Manifest struct {
	Version    int       `json:"version"`
	ImageCount int       `json:"image_count"`
	TileWidth  int       `json:"tile_width"`
	TileHeight int       `json:"tile_height"`
	Channels   int       `json:"channels"`
	Gamma      float64   `json:"gamma,omitempty"`
	Created    time.Time `json:"created"`
	Modified   time.Time `json:"modified"`
}

// NewManifest creates an empty manifest for tileSize square tiles.
func NewManifest(tileSize, channels int, gamma float64) *Manifest {
	now := time.Now()
	return &Manifest{
		Version:    manifestVersion,
		TileWidth:  tileSize,
		TileHeight: tileSize,
		Channels:   channels,
		Gamma:      gamma,
		Created:    now,
		Modified:   now,
	}
}

// LoadManifest reads the manifest of the database in dir.
func LoadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errs.IOError{Op: "read", Path: path, Err: err}
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &errs.IOError{Op: "decode", Path: path, Err: err}
	}
	return &m, nil
}

// Save writes the manifest into dir.
func (m *Manifest) Save(dir string) error {
	m.Modified = time.Now()

	path := filepath.Join(dir, ManifestName)
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return &errs.IOError{Op: "encode", Path: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &errs.IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}
