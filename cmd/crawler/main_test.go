package main

import (
	"os"
	"path/filepath"
	"testing"

	"hexmosaic/internal/database"
	"hexmosaic/internal/errs"
	"hexmosaic/internal/imgbuf"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunReturnsErrors(t *testing.T) {
	cfg := database.DefaultCrawlConfig()
	cfg.TileSize = 0
	err := run(cfg, t.TempDir(), t.TempDir())
	assert.True(t, errs.IsConfig(err), "got %v", err)
}

func TestRunCrawls(t *testing.T) {
	src := t.TempDir()
	photo := imgbuf.New(12, 12, 3)
	require.NoError(t, imgbuf.NewFileStore(false).Write(filepath.Join(src, "p.png"), photo))
	out := filepath.Join(t.TempDir(), "db")

	cfg := database.DefaultCrawlConfig()
	cfg.TileSize = 6
	require.NoError(t, run(cfg, src, out))
	assert.FileExists(t, filepath.Join(out, "p.tiff"))

	// Reusing the directory with another tile size fails, and run returns.
	cfg.TileSize = 4
	err := run(cfg, src, out)
	assert.True(t, errs.IsConfig(err), "got %v", err)
	_, statErr := os.Stat(filepath.Join(out, database.ManifestName))
	assert.NoError(t, statErr)
}
