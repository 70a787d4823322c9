// Command crawler builds a tile database from a directory tree of photos.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"hexmosaic/internal/database"
	"hexmosaic/internal/errs"
	"hexmosaic/internal/imgbuf"
	"hexmosaic/internal/version"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	defaults := database.DefaultCrawlConfig()
	input := flag.String("i", "", "Directory to crawl for images")
	output := flag.String("o", "", "Database directory")
	size := flag.Int("t", 0, "Tile size in pixels")
	gamma := flag.Float64("gamma", defaults.Gamma, "Gamma applied around resampling")
	fast := flag.Bool("fast", false, "Use the faster Catmull-Rom resize")
	gray := flag.Bool("gray", false, "Store grayscale tiles")
	workers := flag.Int("j", defaults.Workers, "Parallel workers")
	verbose := flag.Bool("v", false, "Verbose logging")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("crawler"))
		return
	}
	if *input == "" || *output == "" || *size == 0 {
		fmt.Println("Usage: crawler -i DIR -o DATABASE -t SIZE [-gamma 2.2] [-fast] [-gray] [-j N]")
		os.Exit(1)
	}
	if st, err := os.Stat(*input); err != nil || !st.IsDir() {
		log.Fatalf("Input directory %s does not exist", *input)
	}

	cfg := defaults
	cfg.TileSize = *size
	cfg.Gamma = *gamma
	cfg.Fast = *fast
	cfg.Grayscale = *gray
	cfg.Workers = *workers
	cfg.Logger = errs.NewCommandLogger(os.Stderr, *verbose)

	if err := run(cfg, *input, *output); err != nil {
		log.Fatal(err)
	}
}

// run crawls input into output and prints the counters, also after a
// failure. It returns instead of exiting so the interrupt handler is
// released on every path.
func run(cfg database.CrawlConfig, input, output string) error {
	c, err := database.NewCrawler(cfg, imgbuf.NewFileStore(cfg.Grayscale))
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	stats, err := c.Crawl(ctx, input, output)
	fmt.Printf("Failed    %d images\n", stats.Failed)
	fmt.Printf("Existing  %d images\n", stats.Existing)
	fmt.Printf("Clashed   %d images\n", stats.Clashed)
	fmt.Printf("Processed %d images\n", stats.Processed)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	return nil
}
