// Command eigenviz shows what the subspace model learns from a source image.
// It writes the mean cell and every eigenvector as images, plus the source
// rebuilt from its reduced cell coordinates.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"hexmosaic/internal/database"
	"hexmosaic/internal/features"
	"hexmosaic/internal/grid"
	"hexmosaic/internal/imgbuf"
	"hexmosaic/internal/linalg"
	_ "hexmosaic/internal/linalg/cvaccel"
	"hexmosaic/internal/mosaic"
	"hexmosaic/internal/resample"
	"hexmosaic/internal/version"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	source := flag.String("i", "", "Source image")
	dbDir := flag.String("d", "", "Tile database directory (for the tile size)")
	width := flag.Int("w", 40, "Width in cells")
	dims := flag.Int("p", 20, "PCA dimensions")
	gray := flag.Bool("g", false, "Work in grayscale")
	hex := flag.Bool("hex", false, "Use the hexagonal lattice")
	outDir := flag.String("o", ".", "Output directory")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("eigenviz"))
		return
	}
	if *source == "" || *dbDir == "" {
		fmt.Println("Usage: eigenviz -i IMAGE -d DATABASE [-w 40] [-p 20] [-g] [-hex] [-o DIR]")
		os.Exit(1)
	}

	store := imgbuf.NewFileStore(*gray)
	src, err := store.Read(*source)
	if err != nil {
		log.Fatalf("Failed to read source: %v", err)
	}
	manifest, err := database.LoadManifest(*dbDir)
	if err != nil {
		log.Fatalf("Failed to read database: %v", err)
	}

	lattice := grid.Square
	if *hex {
		lattice = grid.Hex
	}
	layout, err := grid.FitRows(lattice, *width, manifest.TileWidth, src.Width, src.Height)
	if err != nil {
		log.Fatalf("Invalid layout: %v", err)
	}
	fmt.Printf("Layout: %s %dx%d cells, canvas %dx%d (aspect %.3f)\n",
		layout.Lattice, layout.Cols, layout.Rows, layout.Width, layout.Height, layout.Aspect())

	scaled := resample.Scale(src, layout.Width, layout.Height)
	patches := mosaic.Patches(scaled, layout)
	ext := features.NewMaskedPixels(layout.Mask, src.Channels)
	raw, err := mosaic.Extract(ext, patches)
	if err != nil {
		log.Fatalf("Feature extraction failed: %v", err)
	}
	proj, err := mosaic.TrainProjector(raw, *dims, linalg.Select(nil))
	if err != nil {
		log.Fatalf("Subspace training failed: %v", err)
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("Failed to create %s: %v", *outDir, err)
	}
	out := imgbuf.NewFileStore(false)
	meanPath := filepath.Join(*outDir, "mean.png")
	if err := out.Write(meanPath, vectorImage(proj.Mean(), layout.Mask, src.Channels)); err != nil {
		log.Fatalf("Failed to write %s: %v", meanPath, err)
	}
	var total float64
	vals := proj.EigenValues()
	for _, v := range vals {
		total += v
	}
	for i := 0; i < proj.Dimensions(); i++ {
		if total > 0 {
			fmt.Printf("  component %2d: eigenvalue %.4g (%.1f%% of kept variance)\n", i, vals[i], 100*vals[i]/total)
		}
		vec, err := proj.EigenVector(i)
		if err != nil {
			log.Fatalf("Eigenvector %d: %v", i, err)
		}
		path := filepath.Join(*outDir, fmt.Sprintf("eigenvec-%d.png", i))
		if err := out.Write(path, vectorImage(vec, layout.Mask, src.Channels)); err != nil {
			log.Fatalf("Failed to write %s: %v", path, err)
		}
	}

	canvas, err := reduce(proj, raw, layout, src.Channels)
	if err != nil {
		log.Fatalf("Reconstruction failed: %v", err)
	}
	path := filepath.Join(*outDir, fmt.Sprintf("reduced-%d.png", proj.Dimensions()))
	if err := out.Write(path, canvas); err != nil {
		log.Fatalf("Failed to write %s: %v", path, err)
	}
	fmt.Printf("Wrote %d eigenvectors and %s\n", proj.Dimensions(), path)
}
