package volume

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the codec of a stored member. The value is written
// as the first byte of the member and must not change.
type Compression uint8

const (
	Stored  Compression = 0
	Deflate Compression = 1
	Zstd    Compression = 2
	LZ4     Compression = 3
)

func (c Compression) String() string {
	switch c {
	case Stored:
		return "stored"
	case Deflate:
		return "deflate"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a codec name as written in configuration.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "stored", "none":
		return Stored, nil
	case "deflate":
		return Deflate, nil
	case "zstd":
		return Zstd, nil
	case "lz4":
		return LZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("volume: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("volume: zstd decoder initialization failed: " + err.Error())
	}
}

var errIncompressible = errors.New("data is incompressible")

// encode frames data as: codec byte, uvarint uncompressed length, payload.
// LZ4 falls back to Stored for data it cannot shrink.
func encode(data []byte, c Compression) ([]byte, error) {
	payload, err := compress(data, c)
	if errors.Is(err, errIncompressible) {
		payload, c = data, Stored
	} else if err != nil {
		return nil, err
	}

	out := make([]byte, 0, 1+binary.MaxVarintLen64+len(payload))
	out = append(out, byte(c))
	out = binary.AppendUvarint(out, uint64(len(data)))
	return append(out, payload...), nil
}

// decode reverses encode.
func decode(framed []byte) ([]byte, error) {
	if len(framed) == 0 {
		return nil, errors.New("member header truncated")
	}
	c := Compression(framed[0])
	size, n := binary.Uvarint(framed[1:])
	if n <= 0 {
		return nil, errors.New("member length truncated")
	}
	return decompress(framed[1+n:], c, int(size))
}

func compress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case Stored:
		return data, nil

	case Deflate:
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, fmt.Errorf("deflate compress: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("deflate compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("deflate compress: %w", err)
		}
		return buf.Bytes(), nil

	case Zstd:
		return zstdEncoder.EncodeAll(data, nil), nil

	case LZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		written, err := lz4.CompressBlock(data, dst, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if written == 0 || written >= len(data) {
			return nil, errIncompressible
		}
		return dst[:written], nil

	default:
		return nil, fmt.Errorf("unsupported compression: %s", c)
	}
}

func decompress(payload []byte, c Compression, size int) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch c {
	case Stored:
		out = payload

	case Deflate:
		r := flate.NewReader(bytes.NewReader(payload))
		out, err = io.ReadAll(r)
		r.Close()
		if err != nil {
			return nil, fmt.Errorf("deflate decompress: %w", err)
		}

	case Zstd:
		out, err = zstdDecoder.DecodeAll(payload, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}

	case LZ4:
		out = make([]byte, size)
		read, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		out = out[:read]

	default:
		return nil, fmt.Errorf("unsupported compression: %s", c)
	}

	if len(out) != size {
		return nil, fmt.Errorf("%s member: got %d bytes, expected %d", c, len(out), size)
	}
	return out, nil
}
