package main

import (
	"path/filepath"
	"testing"

	"hexmosaic/internal/errs"
	"hexmosaic/internal/mosaic"

	"github.com/stretchr/testify/assert"
)

func TestRunReturnsErrors(t *testing.T) {
	cfg := mosaic.DefaultConfig()
	cfg.Width = 0
	err := run(cfg, "src.png", t.TempDir())
	assert.True(t, errs.IsConfig(err), "got %v", err)

	cfg = mosaic.DefaultConfig()
	cfg.OutputDir = t.TempDir()
	err = run(cfg, filepath.Join(t.TempDir(), "missing.png"), t.TempDir())
	assert.True(t, errs.IsIO(err), "got %v", err)
}
