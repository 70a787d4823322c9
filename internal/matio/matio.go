// Package matio stores dense float64 matrices on disk, optionally
// compressed. It backs the per-database feature cache.
//
// File layout (little endian):
//
//	magic "HXMT" | version u8 | codec u8 | reserved u16 | rows u32 | cols u32 | blocks...
package matio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"hexmosaic/internal/errs"

	"gonum.org/v1/gonum/mat"
)

const (
	magic      = "HXMT"
	version    = 1
	headerSize = 16
)

// CodecForPath picks the codec from the file extension: .zst, .lz4, or raw.
func CodecForPath(path string) Codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return CodecZstd
	case ".lz4":
		return CodecLZ4
	}
	return CodecRaw
}

// Encode writes m to w.
func Encode(w io.Writer, m *mat.Dense, codec Codec) error {
	rows, cols := m.Dims()
	var hdr [headerSize]byte
	copy(hdr[:4], magic)
	hdr[4] = version
	hdr[5] = byte(codec)
	binary.LittleEndian.PutUint32(hdr[8:], uint32(rows))
	binary.LittleEndian.PutUint32(hdr[12:], uint32(cols))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	raw := make([]byte, 0, rows*cols*8)
	for i := 0; i < rows; i++ {
		for _, v := range m.RawRowView(i) {
			raw = binary.LittleEndian.AppendUint64(raw, math.Float64bits(v))
		}
	}
	for len(raw) > 0 {
		n := min(len(raw), blockSize)
		block, err := compressBlock(raw[:n], codec)
		if err != nil {
			return fmt.Errorf("compress: %w", err)
		}
		if _, err := w.Write(block); err != nil {
			return err
		}
		raw = raw[n:]
	}
	return nil
}

// ErrShape is returned when a file holds a matrix of other dimensions than
// the caller asked for.
var ErrShape = errors.New("matrix shape mismatch")

// maxElements bounds the size a header may claim (2 GiB of float64).
const maxElements = 1 << 28

// Decode reads a matrix written by Encode.
func Decode(r io.Reader) (*mat.Dense, error) {
	return DecodeShape(r, 0, 0)
}

// DecodeShape reads a matrix written by Encode and fails with ErrShape
// before reading any data unless it is rows×cols. Zero skips the check for
// that axis.
func DecodeShape(r io.Reader, rows, cols int) (*mat.Dense, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil || string(hdr[:4]) != magic {
		return nil, fmt.Errorf("not a matrix file")
	}
	if hdr[4] != version {
		return nil, fmt.Errorf("unsupported matrix file version %d", hdr[4])
	}
	codec := Codec(hdr[5])
	r32 := binary.LittleEndian.Uint32(hdr[8:])
	c32 := binary.LittleEndian.Uint32(hdr[12:])
	if r32 == 0 || c32 == 0 {
		return nil, fmt.Errorf("empty matrix %dx%d", r32, c32)
	}
	// Both factors fit in 32 bits, so the product cannot wrap.
	if n := uint64(r32) * uint64(c32); n > maxElements {
		return nil, fmt.Errorf("matrix %dx%d exceeds %d elements", r32, c32, maxElements)
	}
	fr, fc := int(r32), int(c32)
	if (rows > 0 && fr != rows) || (cols > 0 && fc != cols) {
		return nil, fmt.Errorf("%w: file is %dx%d, want %dx%d", ErrShape, fr, fc, rows, cols)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	want := fr * fc * 8
	raw := make([]byte, 0, want)
	for off := 0; off < len(data); {
		block, n, err := decompressBlock(data[off:], codec, want-len(raw))
		if err != nil {
			return nil, fmt.Errorf("%s block at %d: %w", codec, headerSize+off, err)
		}
		raw = append(raw, block...)
		off += n
	}
	if len(raw) != want {
		return nil, fmt.Errorf("matrix data is %d bytes, want %d", len(raw), want)
	}

	vals := make([]float64, fr*fc)
	for i := range vals {
		vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return mat.NewDense(fr, fc, vals), nil
}

// Save writes m to path using the codec implied by its extension. The file
// is written to a temporary name and renamed into place.
func Save(path string, m *mat.Dense) error {
	var buf bytes.Buffer
	if err := Encode(&buf, m, CodecForPath(path)); err != nil {
		return &errs.IOError{Op: "encode", Path: path, Err: err}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return &errs.IOError{Op: "write", Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &errs.IOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

// Load reads a matrix saved by Save.
func Load(path string) (*mat.Dense, error) {
	return LoadShape(path, 0, 0)
}

// LoadShape reads a matrix saved by Save, requiring it to be rows×cols (see
// DecodeShape).
func LoadShape(path string, rows, cols int) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &errs.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()
	m, err := DecodeShape(bufio.NewReader(f), rows, cols)
	if err != nil {
		return nil, &errs.IOError{Op: "decode", Path: path, Err: err}
	}
	return m, nil
}
