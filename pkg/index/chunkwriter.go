package index

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hprofgraph/hprofviz/internal/chunkio"
)

// Codec is the boring details of how one datum type is ordered and
// serialized inside a chunk file - kept as a value rather than a type
// parameter's method set so SortedChunkWriter stays a single generic type
// instead of needing one concrete type per datum kind.
type Codec[T any] struct {
	Size   int
	Key    func(T) uint64
	Encode func(T, []byte)
	Decode func([]byte) T
}

var objClassCodec = Codec[ObjClassPair]{
	Size:   objClassPairSize,
	Key:    ObjClassPair.key,
	Encode: func(p ObjClassPair, buf []byte) { p.encode(buf) },
	Decode: decodeObjClassPair,
}

var objPrimTypeCodec = Codec[ObjPrimTypePair]{
	Size:   objPrimTypePairSize,
	Key:    ObjPrimTypePair.key,
	Encode: func(p ObjPrimTypePair, buf []byte) { p.encode(buf) },
	Decode: decodeObjPrimTypePair,
}

// SortedChunkWriter accumulates data in memory, sorts it by key, and
// flushes it to a file once the buffer reaches chunkSize items (or on an
// explicit Flush). Each flush produces one more sorted chunk file;
// downstream merge rounds combine them into a single globally sorted file.
type SortedChunkWriter[T any] struct {
	codec       Codec[T]
	dir         string
	recordIndex int
	chunkIndex  int
	chunkSize   int
	compressor  *chunkio.Compressor

	buf []T
}

// NewSortedChunkWriter creates a writer that flushes every chunkSize items
// into dir, naming files by recordIndex (the top-level record this writer
// is scoped to - callers run one writer per record so that parallel
// records never contend on the same chunk-index counter) and an
// increasing chunk index.
func NewSortedChunkWriter[T any](codec Codec[T], dir string, recordIndex, chunkSize int, compressor *chunkio.Compressor) *SortedChunkWriter[T] {
	return &SortedChunkWriter[T]{
		codec:       codec,
		dir:         dir,
		recordIndex: recordIndex,
		chunkSize:   chunkSize,
		compressor:  compressor,
	}
}

// Append buffers one datum, flushing automatically once chunkSize is
// reached.
func (w *SortedChunkWriter[T]) Append(item T) error {
	w.buf = append(w.buf, item)
	if len(w.buf) >= w.chunkSize {
		return w.Flush()
	}
	return nil
}

// Flush sorts and writes out any buffered data. It is a no-op if the
// buffer is empty, so it is always safe to call once more at the end of a
// writer's life to catch a partial final chunk.
func (w *SortedChunkWriter[T]) Flush() error {
	if len(w.buf) == 0 {
		return nil
	}

	sort.Slice(w.buf, func(i, j int) bool {
		return w.codec.Key(w.buf[i]) < w.codec.Key(w.buf[j])
	})

	path := filepath.Join(w.dir, fmt.Sprintf("record-%010d-chunk-%03d", w.recordIndex, w.chunkIndex))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("index: create chunk file: %w", err)
	}
	defer f.Close()

	out, err := w.compressor.WrapWriter(f)
	if err != nil {
		return err
	}

	enc := make([]byte, w.codec.Size)
	for _, item := range w.buf {
		w.codec.Encode(item, enc)
		if _, err := out.Write(enc); err != nil {
			out.Close()
			return fmt.Errorf("index: write chunk datum: %w", err)
		}
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("index: close chunk writer: %w", err)
	}

	w.chunkIndex++
	w.buf = w.buf[:0]
	return nil
}
