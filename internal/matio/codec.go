package matio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec selects how matrix blocks are compressed.
type Codec uint8

const (
	CodecRaw  Codec = 0
	CodecLZ4  Codec = 1
	CodecZstd Codec = 2
)

func (c Codec) String() string {
	switch c {
	case CodecRaw:
		return "raw"
	case CodecLZ4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	}
	return "unknown"
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

// Block layout: [uncompressed u32][compressed u32][payload]. A compressed
// size of 0 means the payload is stored as is.
const blockHeaderSize = 8

// blockSize is the uncompressed size of every block but the last.
const blockSize = 256 * 1024

func compressBlock(data []byte, codec Codec) ([]byte, error) {
	var packed []byte
	switch codec {
	case CodecLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		packed = buf[:n]
	case CodecZstd:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, err
		}
		packed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	}

	// Keep incompressible blocks raw.
	if len(packed) == 0 || float64(len(packed)) > float64(len(data))*0.9 {
		out := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
		copy(out[blockHeaderSize:], data)
		return out, nil
	}
	out := make([]byte, blockHeaderSize+len(packed))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(packed)))
	copy(out[blockHeaderSize:], packed)
	return out, nil
}

// decompressBlock decodes the block at the start of data and returns it with
// the number of bytes consumed. A block may not decode to more than limit
// bytes.
func decompressBlock(data []byte, codec Codec, limit int) ([]byte, int, error) {
	if len(data) < blockHeaderSize {
		return nil, 0, errors.New("block too small for header")
	}
	size := binary.LittleEndian.Uint32(data[0:])
	packedSize := binary.LittleEndian.Uint32(data[4:])
	if int64(size) > int64(min(limit, blockSize)) {
		return nil, 0, fmt.Errorf("block of %d bytes exceeds limit %d", size, min(limit, blockSize))
	}

	if packedSize == 0 {
		end := blockHeaderSize + int(size)
		if len(data) < end {
			return nil, 0, errors.New("block extends beyond data")
		}
		return data[blockHeaderSize:end], end, nil
	}

	end := blockHeaderSize + int(packedSize)
	if len(data) < end {
		return nil, 0, errors.New("compressed block extends beyond data")
	}
	packed := data[blockHeaderSize:end]
	out := make([]byte, size)

	switch codec {
	case CodecLZ4:
		n, err := lz4.UncompressBlock(packed, out)
		if err != nil {
			return nil, 0, err
		}
		if uint32(n) != size {
			return nil, 0, errors.New("decompressed size mismatch")
		}
	case CodecZstd:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, 0, err
		}
		decoded, err := dec.DecodeAll(packed, out[:0])
		zstdDecoderPool.Put(dec)
		if err != nil {
			return nil, 0, err
		}
		if uint32(len(decoded)) != size {
			return nil, 0, errors.New("decompressed size mismatch")
		}
		out = decoded
	default:
		return nil, 0, errors.New("compressed block in raw stream")
	}
	return out, end, nil
}
