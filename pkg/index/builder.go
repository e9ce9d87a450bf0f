package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/hprofgraph/hprofviz/internal/apperrors"
	"github.com/hprofgraph/hprofviz/internal/chunkio"
	"github.com/hprofgraph/hprofviz/internal/parallel"
	"github.com/hprofgraph/hprofviz/pkg/hprof"
)

const (
	// objClassChunkSize keeps chunk files around 256MiB: 16M pairs * 16
	// bytes/pair.
	objClassChunkSize = 16 * 1024 * 1024
	// objPrimTypeChunkSize keeps chunk files around 256MiB: 28M pairs * 9
	// bytes/pair.
	objPrimTypeChunkSize = 28 * 1024 * 1024
)

// Config controls index construction.
type Config struct {
	Workers          parallel.Config
	Compress         bool
	CompressionLevel chunkio.Level
}

// DefaultConfig returns the default index-build configuration. Chunk
// compression defaults off: chunk files are transient and local, so the
// CPU/IO tradeoff usually favors raw writes over zstd framing.
func DefaultConfig() Config {
	return Config{Workers: parallel.DefaultConfig(), Compress: false, CompressionLevel: chunkio.LevelDefault}
}

// Build runs the full out-of-core pipeline - sorted chunks, n-way
// merge-sort, bulk-load - over workDir as scratch space, and returns the
// opened Store plus the fingerprint it was built with. workDir is removed
// of all temporary chunk and merge files on success; only the final store
// file remains.
func Build(ctx context.Context, buf []byte, workDir string, cfg Config) (*Store, hprof.Fingerprint, error) {
	header, recordStream, err := hprof.ParseHeader(buf)
	if err != nil {
		return nil, hprof.Fingerprint{}, err
	}

	chunksObjClassDir := filepath.Join(workDir, "chunks", "obj-id-class-id")
	chunksObjPrimDir := filepath.Join(workDir, "chunks", "obj-id-prim-array-type")
	for _, d := range []string{chunksObjClassDir, chunksObjPrimDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, hprof.Fingerprint{}, apperrors.IOFailure("create chunk dir", err)
		}
	}

	compressor := chunkio.NewCompressor(cfg.Compress, cfg.CompressionLevel)

	headerLen := int64(len(buf) - len(recordStream))
	it := hprof.NewRecordIterator(recordStream, header.IDSize, headerLen)

	var recordCount int64
	bridge := parallel.NewRecordBridge(cfg.Workers, func() (hprof.Record, bool, error) {
		r, ok, err := it.Next()
		if ok {
			atomic.AddInt64(&recordCount, 1)
		}
		return r, ok, err
	})

	err = bridge.Run(ctx, func(_ context.Context, r hprof.Record) error {
		if !r.IsHeapDumpEnvelope() {
			return nil
		}
		return writeRecordChunks(r, chunksObjClassDir, chunksObjPrimDir, compressor)
	})
	if err != nil {
		return nil, hprof.Fingerprint{}, err
	}

	fingerprint := hprof.Fingerprint{
		HeaderTimestampMillis: header.TimestampMillis,
		TotalRecordCount:      uint64(recordCount),
	}

	mergeRoot := filepath.Join(workDir, "merge")
	mergedObjClass, err := mergeChunks(objClassCodec, chunksObjClassDir, filepath.Join(mergeRoot, "obj-id-class-id"), compressor)
	if err != nil {
		return nil, hprof.Fingerprint{}, err
	}
	mergedObjPrim, err := mergeChunks(objPrimTypeCodec, chunksObjPrimDir, filepath.Join(mergeRoot, "obj-id-prim-array-type"), compressor)
	if err != nil {
		return nil, hprof.Fingerprint{}, err
	}

	storePath := filepath.Join(workDir, "index.bolt")
	store, err := bulkLoad(storePath, fingerprint, mergedObjClass, mergedObjPrim, compressor)
	if err != nil {
		return nil, hprof.Fingerprint{}, err
	}

	if err := os.RemoveAll(filepath.Join(workDir, "chunks")); err != nil {
		return nil, hprof.Fingerprint{}, fmt.Errorf("index: remove chunk dir: %w", err)
	}
	if err := os.RemoveAll(mergeRoot); err != nil {
		return nil, hprof.Fingerprint{}, fmt.Errorf("index: remove merge dir: %w", err)
	}

	return store, fingerprint, nil
}

// ComputeFingerprint derives the fingerprint Build would have produced for
// buf without writing any chunk or merge files, by walking the top-level
// record stream purely to count records. Callers that re-open a
// previously-built store (rather than building one fresh) use this to
// verify the store still matches the hprof file on disk.
func ComputeFingerprint(buf []byte) (hprof.Fingerprint, error) {
	header, recordStream, err := hprof.ParseHeader(buf)
	if err != nil {
		return hprof.Fingerprint{}, err
	}

	headerLen := int64(len(buf) - len(recordStream))
	it := hprof.NewRecordIterator(recordStream, header.IDSize, headerLen)

	var recordCount uint64
	for {
		_, ok, err := it.Next()
		if err != nil {
			return hprof.Fingerprint{}, err
		}
		if !ok {
			break
		}
		recordCount++
	}

	return hprof.Fingerprint{
		HeaderTimestampMillis: header.TimestampMillis,
		TotalRecordCount:      recordCount,
	}, nil
}

// writeRecordChunks writes one top-level record's sub-record obj-id
// mappings into per-record sorted chunk writers, keyed by the record's
// absolute byte offset so concurrent records never share a chunk-index
// counter.
func writeRecordChunks(r hprof.Record, classDir, primDir string, compressor *chunkio.Compressor) error {
	classWriter := NewSortedChunkWriter(objClassCodec, classDir, int(r.Offset), objClassChunkSize, compressor)
	primWriter := NewSortedChunkWriter(objPrimTypeCodec, primDir, int(r.Offset), objPrimTypeChunkSize, compressor)

	subIt := r.SubRecords()
	for {
		sr, ok, err := subIt.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		switch sr.Tag {
		case hprof.HeapTagInstance:
			if err := classWriter.Append(ObjClassPair{ObjID: uint64(sr.Instance.ObjID), ClassID: uint64(sr.Instance.ClassObjID)}); err != nil {
				return err
			}
		case hprof.HeapTagObjectArray:
			if err := classWriter.Append(ObjClassPair{ObjID: uint64(sr.ObjectArray.ObjID), ClassID: uint64(sr.ObjectArray.ArrayClassObjID)}); err != nil {
				return err
			}
		case hprof.HeapTagPrimitiveArray:
			if err := primWriter.Append(ObjPrimTypePair{ObjID: uint64(sr.PrimitiveArray.ObjID), TypeCode: uint8(sr.PrimitiveArray.ElementType)}); err != nil {
				return err
			}
		}
	}

	if err := classWriter.Flush(); err != nil {
		return err
	}
	return primWriter.Flush()
}
