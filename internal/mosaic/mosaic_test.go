package mosaic

import (
	"container/heap"
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hexmosaic/internal/database"
	"hexmosaic/internal/errs"
	"hexmosaic/internal/grid"
	"hexmosaic/internal/imgbuf"
	"hexmosaic/internal/matio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func noise(w, h, ch int, seed uint32) *imgbuf.Buffer {
	b := imgbuf.New(w, h, ch)
	x := seed
	for i := range b.Pix {
		x = x*1664525 + 1013904223
		b.Pix[i] = uint8(x >> 24)
	}
	return b
}

// writeDatabase creates a database of n noise tiles in a directory named db.
func writeDatabase(t *testing.T, n, size, channels int) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "db")
	store := imgbuf.NewFileStore(channels == 1)
	require.NoError(t, os.MkdirAll(dir, 0755))
	for i := 0; i < n; i++ {
		require.NoError(t, store.Write(filepath.Join(dir, fmt.Sprintf("tile%02d.tiff", i)), noise(size, size, channels, uint32(i+100))))
	}
	m := database.NewManifest(size, channels, 1)
	m.ImageCount = n
	require.NoError(t, m.Save(dir))
	return dir
}

func writeSource(t *testing.T, b *imgbuf.Buffer) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "src.png")
	require.NoError(t, imgbuf.NewFileStore(b.Channels == 1).Write(path, b))
	return path
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"Width", func(c *Config) { c.Width = 0 }},
		{"HexWidth", func(c *Config) { c.Width = 1; c.Lattice = grid.Hex }},
		{"DimensionsLow", func(c *Config) { c.Dimensions = 0 }},
		{"DimensionsHigh", func(c *Config) { c.Dimensions = 101 }},
		{"MinRadius", func(c *Config) { c.MinRadius = -1 }},
		{"RatioLow", func(c *Config) { c.Ratio = -0.1 }},
		{"RatioHigh", func(c *Config) { c.Ratio = 1.5 }},
		{"Lattice", func(c *Config) { c.Lattice = grid.Lattice(7) }},
		{"Matcher", func(c *Config) { c.Matcher = Matcher(9) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			assert.True(t, errs.IsConfig(err), "got %v", err)
			_, err = New(cfg, imgbuf.NewFileStore(false), nil)
			assert.Error(t, err)
		})
	}
}

func TestParseMatcher(t *testing.T) {
	m, err := ParseMatcher("Descriptor")
	require.NoError(t, err)
	assert.Equal(t, MatchDescriptor, m)
	_, err = ParseMatcher("svm")
	assert.Error(t, err)
}

func TestOutputName(t *testing.T) {
	layout, err := grid.NewLayout(grid.Hex, 40, 31, 100)
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.Ratio = 0.5
	got := OutputName(cfg, layout, "/photos/beach.jpg", "holiday")
	assert.Equal(t, "source-beach_hex-40x31_pca-20_tile-87x100_minradius-3_db-holiday_cbr-0.5.tiff", got)

	cfg.Matcher = MatchDescriptor
	cfg.Ratio = 0
	got = OutputName(cfg, layout, "beach.png", "db")
	assert.Equal(t, "source-beach_hex-40x31_descriptor_tile-87x100_minradius-3_db-db_cbr-0.tiff", got)
}

func TestBuildSquareEndToEnd(t *testing.T) {
	dbDir := writeDatabase(t, 3, 10, 1)
	srcPath := writeSource(t, noise(20, 20, 1, 7))
	out := t.TempDir()

	cfg := DefaultConfig()
	cfg.Width = 2
	cfg.Dimensions = 2
	cfg.MinRadius = 1
	cfg.Grayscale = true
	cfg.OutputDir = out
	c, err := New(cfg, imgbuf.NewFileStore(true), nil)
	require.NoError(t, err)

	res, err := c.Build(t.Context(), srcPath, dbDir)
	require.NoError(t, err)

	assert.Equal(t, 20, res.Canvas.Width)
	assert.Equal(t, 20, res.Canvas.Height)
	assert.Equal(t, 2, res.Layout.Rows)
	assert.Len(t, res.Assignments, 4)
	assert.Equal(t, 0, res.Filled)
	assert.Equal(t, 0, res.Reused)
	assert.Equal(t, filepath.Join(out, "source-src_square-2x2_pca-2_tile-10x10_minradius-1_db-db_cbr-0.tiff"), res.OutputPath)
	assert.FileExists(t, res.OutputPath)
	assertUnique(t, res.Assignments, 1)

	// Every pixel is a copy of the tile placed over it.
	store := imgbuf.NewFileStore(true)
	db, err := database.Open(dbDir, store)
	require.NoError(t, err)
	for _, a := range res.Assignments {
		tile, err := db.Tile(a.Tile)
		require.NoError(t, err)
		for y := 0; y < 10; y++ {
			for x := 0; x < 10; x++ {
				require.Equal(t, tile.Pixel(x, y), res.Canvas.Pixel(a.Cell.Anchor.X+x, a.Cell.Anchor.Y+y))
			}
		}
	}

	written, err := store.Read(res.OutputPath)
	require.NoError(t, err)
	assert.True(t, written.Equal(res.Canvas))

	// The second build reads the feature cache and places the same tiles.
	assert.FileExists(t, filepath.Join(dbDir, "features-10x10-1-pixels.mat.zst"))
	again, err := c.Build(t.Context(), srcPath, dbDir)
	require.NoError(t, err)
	assert.Equal(t, res.Assignments, again.Assignments)
}

func TestBuildIgnoresCorruptCache(t *testing.T) {
	dbDir := writeDatabase(t, 3, 10, 1)
	srcPath := writeSource(t, noise(20, 20, 1, 7))

	cfg := DefaultConfig()
	cfg.Width = 2
	cfg.Dimensions = 2
	cfg.Grayscale = true
	cfg.OutputDir = t.TempDir()
	c, err := New(cfg, imgbuf.NewFileStore(true), nil)
	require.NoError(t, err)

	want, err := c.Build(t.Context(), srcPath, dbDir)
	require.NoError(t, err)

	// A header claiming a 2^32-1 square matrix, newer than the manifest.
	cache := filepath.Join(dbDir, "features-10x10-1-pixels.mat.zst")
	hdr := []byte{'H', 'X', 'M', 'T', 1, 2, 0, 0, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	require.NoError(t, os.WriteFile(cache, hdr, 0644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(cache, future, future))

	got, err := c.Build(t.Context(), srcPath, dbDir)
	require.NoError(t, err)
	assert.Equal(t, want.Assignments, got.Assignments)

	// The cache was rebuilt.
	m, err := matio.LoadShape(cache, 3, 100)
	require.NoError(t, err)
	assert.Equal(t, 3, m.RawMatrix().Rows)
}

func TestComposeHexFillsSeams(t *testing.T) {
	dbDir := writeDatabase(t, 4, 20, 3)
	store := imgbuf.NewFileStore(false)
	db, err := database.Open(dbDir, store)
	require.NoError(t, err)

	cfg := DefaultConfig().WithHex()
	cfg.Width = 3
	cfg.Dimensions = 2
	cfg.MinRadius = 0
	cfg.Ratio = 0.5
	cfg.CacheFeatures = false
	c, err := New(cfg, store, nil)
	require.NoError(t, err)

	res, err := c.Compose(t.Context(), noise(60, 60, 3, 3), db)
	require.NoError(t, err)
	assert.Len(t, res.Assignments, len(res.Layout.Cells))
	assert.Equal(t, res.Layout.Width, res.Canvas.Width)
	assert.Equal(t, res.Layout.Height, res.Canvas.Height)
	assert.Greater(t, res.Filled, 0, "hexagon corners leave holes to fill")
}

func TestComposeDescriptorMatcher(t *testing.T) {
	dbDir := writeDatabase(t, 5, 16, 3)
	store := imgbuf.NewFileStore(false)
	db, err := database.Open(dbDir, store)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Width = 4
	cfg.Matcher = MatchDescriptor
	cfg.MinRadius = 1
	cfg.CacheFeatures = false
	c, err := New(cfg, store, nil)
	require.NoError(t, err)

	res, err := c.Compose(t.Context(), noise(64, 48, 3, 9), db)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Layout.Rows)
	assert.Len(t, res.Assignments, 12)
	assertUnique(t, res.Assignments, 1)
}

func TestComposeErrors(t *testing.T) {
	dbDir := writeDatabase(t, 3, 10, 1)
	store := imgbuf.NewFileStore(true)
	db, err := database.Open(dbDir, store)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Width = 2
	cfg.Dimensions = 2
	cfg.Grayscale = true
	cfg.CacheFeatures = false
	c, err := New(cfg, store, nil)
	require.NoError(t, err)

	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		_, err := c.Compose(ctx, noise(20, 20, 1, 1), db)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("ChannelMismatch", func(t *testing.T) {
		_, err := c.Compose(t.Context(), noise(20, 20, 3, 1), db)
		assert.ErrorIs(t, err, errs.ErrInvariant)
	})

	t.Run("TooFewCells", func(t *testing.T) {
		cfg := cfg
		cfg.Dimensions = 4
		c, err := New(cfg, store, nil)
		require.NoError(t, err)
		_, err = c.Compose(t.Context(), noise(20, 20, 1, 1), db)
		assert.True(t, errs.IsConfig(err))
	})

	t.Run("MissingDatabase", func(t *testing.T) {
		_, err := c.Build(t.Context(), writeSource(t, noise(20, 20, 1, 1)), t.TempDir())
		assert.True(t, errs.IsIO(err))
	})
}

func TestTrainProjectorTooManyCells(t *testing.T) {
	_, err := TrainProjector(mat.NewDense(5, 4, nil), 2, nil)
	assert.True(t, errs.IsConfig(err))
}

// assertUnique checks that two cells within radius only share a tile when
// the later one was placed with the constraint waived.
func assertUnique(t *testing.T, as []Assignment, radius int) {
	t.Helper()
	for i := range as {
		for j := i + 1; j < len(as); j++ {
			if as[i].Tile == as[j].Tile && as[i].Cell.Distance(as[j].Cell) <= radius {
				assert.True(t, as[j].Reused, "tile %d repeated within radius at %v and %v", as[i].Tile, as[i].Cell, as[j].Cell)
			}
		}
	}
}

func randomMatrix(rows, cols int, seed uint64) *mat.Dense {
	rng := rand.New(rand.NewPCG(seed, 1))
	m := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.Set(i, j, rng.Float64())
		}
	}
	return m
}

func runMatcher(t *testing.T, cells []grid.Cell, tiles, radius, window int) []placement {
	t.Helper()
	m := newMatcher(cells, randomMatrix(len(cells), 6, 1), randomMatrix(tiles, 6, 2), radius)
	order := rand.New(rand.NewPCG(0, 0)).Perm(len(cells))
	var out []placement
	require.NoError(t, m.run(t.Context(), order, window, func(p placement) error {
		out = append(out, p)
		return nil
	}))
	return out
}

func TestMatcherUniqueness(t *testing.T) {
	cells := grid.BuildSquareGrid(6, 6, 10)

	t.Run("EnoughTiles", func(t *testing.T) {
		ps := runMatcher(t, cells, 40, 2, 4)
		require.Len(t, ps, 36)
		for i := range ps {
			assert.False(t, ps[i].reused)
			for j := i + 1; j < len(ps); j++ {
				if cells[ps[i].cell].Distance(cells[ps[j].cell]) <= 2 {
					assert.NotEqual(t, ps[i].tile, ps[j].tile)
				}
			}
		}
	})

	t.Run("SingleTile", func(t *testing.T) {
		// The radius spans the whole grid, so every cell after the first
		// finds the only tile blocked.
		ps := runMatcher(t, cells, 1, 10, 4)
		reused := 0
		for _, p := range ps {
			assert.Equal(t, 0, p.tile)
			if p.reused {
				reused++
			}
		}
		assert.Equal(t, 35, reused, "only the first placement is free")
	})

	t.Run("ZeroRadiusPicksNearest", func(t *testing.T) {
		ps := runMatcher(t, cells, 5, 0, 1)
		m := newMatcher(cells, randomMatrix(len(cells), 6, 1), randomMatrix(5, 6, 2), 0)
		for _, p := range ps {
			r := m.rank(p.cell)
			assert.Equal(t, r[0].tile, p.tile)
			assert.False(t, p.reused)
		}
	})
}

func TestMatcherWindowDoesNotChangeResult(t *testing.T) {
	cells := grid.BuildHexGrid(7, 5, 20)
	serial := runMatcher(t, cells, 12, 2, 1)
	parallel := runMatcher(t, cells, 12, 2, 16)
	assert.Equal(t, serial, parallel)
}

func TestRankingOrder(t *testing.T) {
	cells := grid.BuildSquareGrid(1, 1, 1)
	cellVecs := mat.NewDense(1, 1, []float64{0})
	tileVecs := mat.NewDense(4, 1, []float64{3, -1, 1, 2})
	m := newMatcher(cells, cellVecs, tileVecs, 0)
	r := m.rank(0)
	var got []int
	for r.Len() > 0 {
		got = append(got, heap.Pop(&r).(candidate).tile)
	}
	assert.Equal(t, []int{1, 2, 3, 0}, got)
}
