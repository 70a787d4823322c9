package imgbuf

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"hexmosaic/internal/errs"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Store reads and writes pixel buffers.
type Store interface {
	Read(path string) (*Buffer, error)
	Write(path string, b *Buffer) error
}

// FileStore is a Store on the local filesystem. It decodes BMP, JPEG, PNG
// and TIFF, and encodes by file extension (TIFF when unknown).
type FileStore struct {
	// Grayscale makes Read return single-channel buffers.
	Grayscale bool
}

// NewFileStore creates a FileStore.
func NewFileStore(grayscale bool) *FileStore {
	return &FileStore{Grayscale: grayscale}
}

// Read decodes the image at path.
func (s *FileStore) Read(path string) (*Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &errs.IOError{Op: "open", Path: path, Err: err}
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, &errs.IOError{Op: "decode", Path: path, Err: err}
	}
	return FromImage(img, s.Grayscale), nil
}

// Write encodes b to path, creating or truncating the file.
func (s *FileStore) Write(path string, b *Buffer) error {
	img, err := b.ToImage()
	if err != nil {
		return &errs.IOError{Op: "encode", Path: path, Err: err}
	}

	file, err := os.Create(path)
	if err != nil {
		return &errs.IOError{Op: "create", Path: path, Err: err}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		err = png.Encode(file, img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: 95})
	default:
		err = tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	}
	if err != nil {
		file.Close()
		return &errs.IOError{Op: "encode", Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return &errs.IOError{Op: "close", Path: path, Err: err}
	}
	return nil
}

// SupportedFormats returns the file extensions ListImages accepts.
func SupportedFormats() []string {
	return []string{".bmp", ".jpg", ".jpeg", ".png", ".tif", ".tiff"}
}

// IsSupportedFormat checks if the given path has a supported image extension,
// ignoring case.
func IsSupportedFormat(path string) bool {
	return slices.Contains(SupportedFormats(), strings.ToLower(filepath.Ext(path)))
}

// ListImages walks root recursively and returns every regular file with a
// supported extension, sorted so that database order is reproducible.
func ListImages(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && IsSupportedFormat(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", root, err)
	}
	slices.Sort(paths)
	return paths, nil
}
