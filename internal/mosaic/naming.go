package mosaic

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"hexmosaic/internal/grid"
)

// OutputName builds the mosaic file name from the parameters that shaped it,
// for example
//
//	source-beach_hex-40x31_pca-20_tile-87x100_minradius-3_db-holiday_cbr-0.5.tiff
func OutputName(cfg Config, layout *grid.Layout, sourcePath, dbName string) string {
	source := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))

	features := fmt.Sprintf("pca-%d", cfg.Dimensions)
	if cfg.Matcher == MatchDescriptor {
		features = "descriptor"
	}

	return fmt.Sprintf("source-%s_%s-%dx%d_%s_tile-%dx%d_minradius-%d_db-%s_cbr-%s.tiff",
		source,
		layout.Lattice, layout.Cols, layout.Rows,
		features,
		layout.TileWidth, layout.TileHeight,
		cfg.MinRadius,
		dbName,
		strconv.FormatFloat(cfg.Ratio, 'g', -1, 64),
	)
}
