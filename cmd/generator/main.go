// Command generator writes a synthetic tile database of random line drawings.
// It is meant for exercising the mosaic pipeline without a photo collection.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"

	"hexmosaic/internal/database"
	"hexmosaic/internal/imgbuf"
	"hexmosaic/internal/version"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	output := flag.String("o", "", "Database directory")
	size := flag.Int("t", 150, "Tile size in pixels")
	count := flag.Int("n", 1000, "Number of tiles")
	seed := flag.Uint64("seed", 1, "Random seed")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("generator"))
		return
	}
	if *output == "" || *size < 2 || *count < 1 {
		fmt.Println("Usage: generator -o DIR [-t 150] [-n 1000] [-seed 1]")
		os.Exit(1)
	}
	if err := os.MkdirAll(*output, 0755); err != nil {
		log.Fatalf("Failed to create %s: %v", *output, err)
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	store := imgbuf.NewFileStore(false)
	for i := 0; i < *count; i++ {
		tile := drawTile(rng, *size)
		path := filepath.Join(*output, fmt.Sprintf("img-%06d.tiff", i))
		if err := store.Write(path, tile); err != nil {
			log.Fatalf("Failed to write tile: %v", err)
		}
		if (i+1)%100 == 0 {
			fmt.Printf("\r%d/%d", i+1, *count)
		}
	}
	fmt.Printf("\r%d/%d\n", *count, *count)

	m := database.NewManifest(*size, 3, 1)
	m.ImageCount = *count
	if err := m.Save(*output); err != nil {
		log.Fatalf("Failed to write manifest: %v", err)
	}
}
