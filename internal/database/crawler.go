package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"hexmosaic/internal/errs"
	"hexmosaic/internal/imgbuf"
	"hexmosaic/internal/resample"

	"golang.org/x/sync/errgroup"
)

// CrawlConfig controls how source photos become tiles.
type CrawlConfig struct {
	TileSize  int
	Gamma     float64
	Fast      bool
	Grayscale bool
	Workers   int
	Logger    *slog.Logger
}

// DefaultCrawlConfig returns 100 px colour tiles, no gamma correction and one
// worker per CPU.
func DefaultCrawlConfig() CrawlConfig {
	return CrawlConfig{
		TileSize: 100,
		Gamma:    1,
		Workers:  runtime.NumCPU(),
	}
}

// Validate checks the configuration.
func (c CrawlConfig) Validate() error {
	if c.TileSize <= 0 {
		return &errs.ConfigError{Param: "tile size", Value: c.TileSize, Reason: "must be > 0"}
	}
	if c.Gamma <= 0 {
		return &errs.ConfigError{Param: "gamma", Value: c.Gamma, Reason: "must be > 0"}
	}
	if c.Workers < 1 {
		return &errs.ConfigError{Param: "workers", Value: c.Workers, Reason: "must be >= 1"}
	}
	return nil
}

// CrawlStats counts what happened to each source file.
type CrawlStats struct {
	Processed int // new tiles written
	Existing  int // identical tile already present
	Clashed   int // renames caused by a different tile with the same name
	Failed    int // unreadable or smaller than the tile size
}

// crawled is one normalised source; tile is nil when the file was skipped.
type crawled struct {
	path string
	tile *imgbuf.Buffer
}

// Crawler converts a tree of photos into a tile database.
type Crawler struct {
	cfg    CrawlConfig
	store  imgbuf.Store
	norm   *resample.Normalizer
	logger *slog.Logger

	mu    sync.Mutex // guards stats
	stats CrawlStats
}

// NewCrawler validates cfg and prepares a crawler writing through store.
func NewCrawler(cfg CrawlConfig, store imgbuf.Store) (*Crawler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Crawler{
		cfg:    cfg,
		store:  store,
		norm:   resample.NewNormalizer(resample.Options{Crop: true, Gamma: cfg.Gamma, Fast: cfg.Fast}),
		logger: errs.OrNop(cfg.Logger),
	}, nil
}

// Crawl normalises every supported image under inputDir into outputDir and
// rewrites the manifest. Files that cannot be used are counted and skipped.
// Resampling runs on up to Workers goroutines; tiles are named and written
// in sorted source order, so clash suffixes do not depend on scheduling.
func (c *Crawler) Crawl(ctx context.Context, inputDir, outputDir string) (CrawlStats, error) {
	c.stats = CrawlStats{}

	manifest, err := c.prepareOutput(outputDir)
	if err != nil {
		return c.stats, err
	}

	files, err := imgbuf.ListImages(inputDir)
	if err != nil {
		return c.stats, &errs.IOError{Op: "list", Path: inputDir, Err: err}
	}
	c.logger.Info("crawling", "input", inputDir, "files", len(files), "tile_size", c.cfg.TileSize,
		"gamma", c.cfg.Gamma, "fast", c.cfg.Fast, "workers", c.cfg.Workers)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// queue holds one result slot per submitted file, in file order. Its
	// capacity bounds how far resampling runs ahead of writing.
	queue := make(chan chan crawled, 2*c.cfg.Workers)
	written := make(chan error, 1)
	go func() {
		var werr error
		for slot := range queue {
			r := <-slot
			if r.tile == nil || werr != nil {
				continue
			}
			if werr = c.writeTile(r.path, outputDir, r.tile); werr != nil {
				cancel()
			}
		}
		written <- werr
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)
	for _, path := range files {
		if gctx.Err() != nil {
			break
		}
		slot := make(chan crawled, 1)
		queue <- slot
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				slot <- crawled{path: path}
				return err
			}
			slot <- crawled{path: path, tile: c.normalize(path)}
			return nil
		})
	}
	crawlErr := g.Wait()
	close(queue)
	if err := <-written; err != nil {
		// A tile that cannot be written aborts the crawl: the output
		// directory is the one thing every file shares.
		crawlErr = err
	}
	if crawlErr == nil {
		crawlErr = ctx.Err()
	}

	// The manifest reflects whatever was written, even after cancellation.
	if err := c.finishManifest(manifest, outputDir); err != nil && crawlErr == nil {
		crawlErr = err
	}
	return c.stats, crawlErr
}

func (c *Crawler) prepareOutput(dir string) (*Manifest, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &errs.IOError{Op: "mkdir", Path: dir, Err: err}
	}
	m, err := LoadManifest(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			channels := 3
			if c.cfg.Grayscale {
				channels = 1
			}
			return NewManifest(c.cfg.TileSize, channels, c.cfg.Gamma), nil
		}
		return nil, err
	}
	if m.TileWidth != c.cfg.TileSize {
		return nil, &errs.ConfigError{
			Param:  "tile size",
			Value:  c.cfg.TileSize,
			Reason: fmt.Sprintf("database %s already holds %dpx tiles", dir, m.TileWidth),
		}
	}
	c.logger.Warn("adding to existing database", "dir", dir, "images", m.ImageCount)
	return m, nil
}

func (c *Crawler) finishManifest(m *Manifest, dir string) error {
	tiles, err := imgbuf.ListImages(dir)
	if err != nil {
		return &errs.IOError{Op: "list", Path: dir, Err: err}
	}
	m.ImageCount = len(tiles)
	return m.Save(dir)
}

// normalize reads and resamples one source. Unusable files are counted as
// failed and yield nil.
func (c *Crawler) normalize(path string) *imgbuf.Buffer {
	src, err := c.store.Read(path)
	if err != nil {
		c.fail(path, err)
		return nil
	}
	if src.Width < c.cfg.TileSize || src.Height < c.cfg.TileSize {
		c.fail(path, fmt.Errorf("image is %dx%d, smaller than tile size %d", src.Width, src.Height, c.cfg.TileSize))
		return nil
	}
	return c.norm.Normalize(src, c.cfg.TileSize)
}

// writeTile picks a free name for tile and writes it. A pixel-identical tile
// already on disk is counted as existing instead. Only the crawl's writer
// goroutine calls it.
func (c *Crawler) writeTile(path, outputDir string, tile *imgbuf.Buffer) error {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	dst := filepath.Join(outputDir, base+".tiff")
	for n := 0; ; n++ {
		if _, err := os.Stat(dst); os.IsNotExist(err) {
			break
		}
		existing, err := c.store.Read(dst)
		if err == nil && existing.Equal(tile) {
			c.count(&c.stats.Existing)
			c.logger.Debug("tile exists", "source", path, "tile", dst)
			return nil
		}
		c.count(&c.stats.Clashed)
		c.logger.Debug("name clash", "source", path, "tile", dst)
		dst = filepath.Join(outputDir, fmt.Sprintf("%s-%d.tiff", base, n))
	}

	if err := c.store.Write(dst, tile); err != nil {
		return err
	}
	c.count(&c.stats.Processed)
	c.logger.Debug("tile written", "source", path, "tile", dst)
	return nil
}

func (c *Crawler) count(n *int) {
	c.mu.Lock()
	*n++
	c.mu.Unlock()
}

func (c *Crawler) fail(path string, err error) {
	c.mu.Lock()
	c.stats.Failed++
	c.mu.Unlock()
	c.logger.Warn("skipping image", "path", path, "err", err)
}
