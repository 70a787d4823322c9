// Package main provides the hexmosaic command, which builds one photo mosaic
// from a source image and a tile database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"hexmosaic/internal/errs"
	"hexmosaic/internal/imgbuf"
	"hexmosaic/internal/linalg"
	_ "hexmosaic/internal/linalg/cvaccel"
	"hexmosaic/internal/mosaic"
	"hexmosaic/internal/version"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	defaults := mosaic.DefaultConfig()
	source := flag.String("i", "", "Source image")
	dbDir := flag.String("d", "", "Tile database directory")
	width := flag.Int("w", defaults.Width, "Mosaic width in cells")
	dims := flag.Int("p", defaults.Dimensions, "PCA dimensions (1-100)")
	radius := flag.Int("r", defaults.MinRadius, "Minimum grid distance between repeats of a tile")
	ratio := flag.Float64("c", defaults.Ratio, "Colour balance ratio (0-1)")
	gray := flag.Bool("g", false, "Build in grayscale")
	hex := flag.Bool("hex", false, "Use the hexagonal lattice")
	matcher := flag.String("matcher", defaults.Matcher.String(), "Feature matcher: pca or descriptor")
	outDir := flag.String("o", ".", "Output directory")
	seed := flag.Uint64("seed", defaults.Seed, "Seed for the cell visiting order")
	window := flag.Int("j", defaults.Window, "Cells ranked in parallel")
	noCache := flag.Bool("nocache", false, "Do not read or write the tile feature cache")
	verbose := flag.Bool("v", false, "Verbose logging")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("hexmosaic"))
		return
	}
	if *source == "" || *dbDir == "" {
		fmt.Println("Usage: hexmosaic -i IMAGE -d DATABASE [-w 40] [-p 20] [-r 3] [-c 0.5] [-g] [-hex] [-o DIR]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logger := errs.NewCommandLogger(os.Stderr, *verbose)

	m, err := mosaic.ParseMatcher(*matcher)
	if err != nil {
		log.Fatalf("Invalid matcher: %v", err)
	}
	cfg := defaults.WithLogger(logger)
	cfg.Width = *width
	cfg.Dimensions = *dims
	cfg.MinRadius = *radius
	cfg.Ratio = *ratio
	cfg.Grayscale = *gray
	cfg.Matcher = m
	cfg.OutputDir = *outDir
	cfg.Seed = *seed
	cfg.Window = *window
	cfg.CacheFeatures = !*noCache
	if *hex {
		cfg = cfg.WithHex()
	}

	if err := run(cfg, *source, *dbDir); err != nil {
		log.Fatal(err)
	}
}

// run builds one mosaic. It returns instead of exiting so the interrupt
// handler is released on every path.
func run(cfg mosaic.Config, source, dbDir string) error {
	backend := linalg.Select(cfg.Logger)
	c, err := mosaic.New(cfg, imgbuf.NewFileStore(cfg.Grayscale), backend)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := c.Build(ctx, source, dbDir)
	if err != nil {
		return fmt.Errorf("mosaic failed: %w", err)
	}
	fmt.Printf("Mosaic: %s\n", res.OutputPath)
	fmt.Printf("  %dx%d cells, %dx%d pixels, %d tiles reused, %d seam pixels filled\n",
		res.Layout.Cols, res.Layout.Rows, res.Canvas.Width, res.Canvas.Height, res.Reused, res.Filled)
	return nil
}
