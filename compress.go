package slackfs

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// CompressionTag identifies the compression applied before encryption. The
// tag is not stored alongside the data: reader and writer must agree on it
// through configuration.
type CompressionTag uint8

const (
	// CompressionZlib is deflate in a zlib wrapper at level 9, the format
	// legacy slackdisk stores use.
	CompressionZlib CompressionTag = iota

	// CompressionZstd is zstd at its best-compression level.
	CompressionZstd

	// CompressionLZ4 is an LZ4 frame at level 9.
	CompressionLZ4

	// CompressionXZ is an xz container with LZMA2.
	CompressionXZ

	// CompressionNone stores the serialized payload as is.
	CompressionNone
)

// String returns the human-readable name of a compression tag.
func (tag CompressionTag) String() string {
	switch tag {
	case CompressionZlib:
		return "zlib"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	case CompressionXZ:
		return "xz"
	case CompressionNone:
		return "none"
	default:
		return fmt.Sprintf("unknown(%d)", tag)
	}
}

// ParseCompressionTag parses a compression tag from its string
// representation.
func ParseCompressionTag(name string) (CompressionTag, error) {
	switch name {
	case "zlib":
		return CompressionZlib, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	case "xz":
		return CompressionXZ, nil
	case "none":
		return CompressionNone, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedCompression, name)
	}
}

func (tag CompressionTag) MarshalText() ([]byte, error) {
	return []byte(tag.String()), nil
}

func (tag *CompressionTag) UnmarshalText(text []byte) error {
	parsed, err := ParseCompressionTag(string(text))
	if err != nil {
		return err
	}
	*tag = parsed
	return nil
}

func (tag CompressionTag) validate() error {
	if tag > CompressionNone {
		return fmt.Errorf("%w: %d", ErrUnsupportedCompression, tag)
	}
	return nil
}

// zstdEncoder and zstdDecoder are reused across calls. Both are safe for
// concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedBestCompression),
	)
	if err != nil {
		panic("slackfs: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("slackfs: zstd decoder initialization failed: " + err.Error())
	}
}

// Compress compresses data with the algorithm named by tag.
func Compress(data []byte, tag CompressionTag) ([]byte, error) {
	switch tag {
	case CompressionZlib:
		return compressZlib(data)
	case CompressionZstd:
		return zstdEncoder.EncodeAll(data, nil), nil
	case CompressionLZ4:
		return compressLZ4(data)
	case CompressionXZ:
		return compressXZ(data)
	case CompressionNone:
		return data, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedCompression, tag)
	}
}

// Decompress reverses Compress for the same tag.
func Decompress(compressed []byte, tag CompressionTag) ([]byte, error) {
	switch tag {
	case CompressionZlib:
		return decompressZlib(compressed)
	case CompressionZstd:
		result, err := zstdDecoder.DecodeAll(compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return result, nil
	case CompressionLZ4:
		return readAllFrom(lz4.NewReader(bytes.NewReader(compressed)), "lz4")
	case CompressionXZ:
		r, err := xz.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, fmt.Errorf("xz decompress: %w", err)
		}
		return readAllFrom(r, "xz")
	case CompressionNone:
		return compressed, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedCompression, tag)
	}
}

func compressZlib(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressZlib(compressed []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("zlib decompress: %w", err)
	}
	defer r.Close()
	return readAllFrom(r, "zlib")
}

func compressLZ4(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if err := w.Apply(lz4.CompressionLevelOption(lz4.Level9)); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	return buf.Bytes(), nil
}

func compressXZ(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("xz compress: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("xz compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("xz compress: %w", err)
	}
	return buf.Bytes(), nil
}

func readAllFrom(r io.Reader, name string) ([]byte, error) {
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s decompress: %w", name, err)
	}
	return out, nil
}
