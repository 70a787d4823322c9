package matio

import (
	"bytes"
	"encoding/binary"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"hexmosaic/internal/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func sample(rows, cols int, smooth bool) *mat.Dense {
	rng := rand.New(rand.NewPCG(1, 2))
	m := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if smooth {
				// Pixel-like integer values compress well.
				m.Set(i, j, float64((i+j)%17))
			} else {
				m.Set(i, j, rng.NormFloat64())
			}
		}
	}
	return m
}

func TestCodecForPath(t *testing.T) {
	assert.Equal(t, CodecZstd, CodecForPath("a/features.mat.zst"))
	assert.Equal(t, CodecLZ4, CodecForPath("x.LZ4"))
	assert.Equal(t, CodecRaw, CodecForPath("x.mat"))
}

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		name   string
		codec  Codec
		rows   int
		cols   int
		smooth bool
	}{
		{"Raw", CodecRaw, 3, 5, false},
		{"LZ4Smooth", CodecLZ4, 40, 300, true},
		{"ZstdSmooth", CodecZstd, 40, 300, true},
		{"ZstdNoise", CodecZstd, 10, 50, false},
		// More than one block.
		{"LZ4MultiBlock", CodecLZ4, 100, 400, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := sample(tt.rows, tt.cols, tt.smooth)
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, m, tt.codec))
			if tt.smooth && tt.codec != CodecRaw {
				assert.Less(t, buf.Len(), tt.rows*tt.cols*8/2)
			}
			got, err := Decode(&buf)
			require.NoError(t, err)
			assert.True(t, mat.Equal(m, got))
		})
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("nope")))
	assert.Error(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sample(4, 4, false), CodecRaw))
	truncated := buf.Bytes()[:buf.Len()-8]
	_, err = Decode(bytes.NewReader(truncated))
	assert.Error(t, err)

	header := func(codec Codec, rows, cols uint32) []byte {
		h := make([]byte, headerSize)
		copy(h, magic)
		h[4] = version
		h[5] = byte(codec)
		binary.LittleEndian.PutUint32(h[8:], rows)
		binary.LittleEndian.PutUint32(h[12:], cols)
		return h
	}
	tests := []struct {
		name string
		data []byte
	}{
		{"MaxDims", header(CodecZstd, 0xFFFFFFFF, 0xFFFFFFFF)},
		{"Huge", header(CodecRaw, 65536, 65536)},
		{"BlockLargerThanMatrix", append(header(CodecLZ4, 2, 2),
			0, 0, 0, 0x40, 4, 0, 0, 0, 1, 2, 3, 4)},
		{"RawBlockLargerThanMatrix", append(header(CodecRaw, 1, 1),
			16, 0, 0, 0, 0, 0, 0, 0, 1, 2, 3, 4, 5, 6, 7, 8, 1, 2, 3, 4, 5, 6, 7, 8)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, err := Decode(bytes.NewReader(tt.data))
				assert.Error(t, err)
			})
		})
	}
}

func TestDecodeShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sample(3, 7, true), CodecZstd))
	data := buf.Bytes()

	m, err := DecodeShape(bytes.NewReader(data), 3, 7)
	require.NoError(t, err)
	assert.True(t, mat.Equal(sample(3, 7, true), m))

	_, err = DecodeShape(bytes.NewReader(data), 4, 7)
	assert.ErrorIs(t, err, ErrShape)
	_, err = DecodeShape(bytes.NewReader(data), 0, 8)
	assert.ErrorIs(t, err, ErrShape)
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "features.mat.zst")
	m := sample(12, 64, true)
	require.NoError(t, Save(path, m))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	got, err := Load(path)
	require.NoError(t, err)
	assert.True(t, mat.Equal(m, got))

	_, err = LoadShape(path, 12, 65)
	assert.ErrorIs(t, err, ErrShape)
	assert.True(t, errs.IsIO(err))

	_, err = Load(filepath.Join(dir, "missing.mat"))
	assert.True(t, errs.IsIO(err))
}
