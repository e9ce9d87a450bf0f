// Package chunkio wraps the sorted-chunk and merge-round temp files written
// during index construction with optional zstd compression, trading CPU for
// the disk and I/O bandwidth a multi-round merge-sort otherwise burns.
package chunkio

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Level selects a speed/ratio tradeoff for chunk compression.
type Level int

const (
	LevelFastest Level = 1
	LevelDefault Level = 3
	LevelBest    Level = 9
)

func (l Level) encoderLevel() zstd.EncoderLevel {
	switch l {
	case LevelFastest:
		return zstd.SpeedFastest
	case LevelBest:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

// Compressor wraps raw writers/readers with zstd framing, or passes bytes
// through unchanged when disabled - merge rounds on already-small hprofs
// are often faster uncompressed, so the index build leaves it off unless
// its configuration enables compression.
type Compressor struct {
	enabled bool
	level   Level
}

// NewCompressor returns a Compressor. When enabled is false, Wrap*
// methods are no-ops.
func NewCompressor(enabled bool, level Level) *Compressor {
	return &Compressor{enabled: enabled, level: level}
}

// WrapWriter returns w, or a zstd encoder writing into w when enabled.
// The returned io.WriteCloser must be closed to flush the zstd frame
// footer; closing the passthrough writer returned when disabled is a no-op
// and never closes w itself.
func (c *Compressor) WrapWriter(w io.Writer) (io.WriteCloser, error) {
	if !c.enabled {
		return nopWriteCloser{w}, nil
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(c.level.encoderLevel()))
	if err != nil {
		return nil, fmt.Errorf("chunkio: create zstd writer: %w", err)
	}
	return enc, nil
}

// WrapReader returns r, or a zstd decoder reading from r when enabled.
func (c *Compressor) WrapReader(r io.Reader) (io.Reader, error) {
	if !c.enabled {
		return r, nil
	}
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("chunkio: create zstd reader: %w", err)
	}
	return &decoderReader{dec: dec}, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

type decoderReader struct {
	dec *zstd.Decoder
}

func (r *decoderReader) Read(p []byte) (int, error) {
	return r.dec.Read(p)
}

// CompressBytes compresses data in memory in a single call, for small
// payloads where a streaming writer isn't worth it.
func (c *Compressor) CompressBytes(data []byte) ([]byte, error) {
	if !c.enabled {
		return data, nil
	}
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(c.level.encoderLevel()))
	if err != nil {
		return nil, err
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
