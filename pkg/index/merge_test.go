package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hprofgraph/hprofviz/internal/apperrors"
	"github.com/hprofgraph/hprofviz/internal/chunkio"
)

func TestMergeChunks_CombinesIntoOneSortedFile(t *testing.T) {
	root := t.TempDir()
	chunksDir := filepath.Join(root, "chunks")
	mergeRoot := filepath.Join(root, "merge")
	require.NoError(t, os.MkdirAll(chunksDir, 0o755))

	compressor := chunkio.NewCompressor(false, chunkio.LevelDefault)

	writeChunk(t, chunksDir, "chunk-000", compressor, []ObjClassPair{{ObjID: 5, ClassID: 50}, {ObjID: 9, ClassID: 90}})
	writeChunk(t, chunksDir, "chunk-001", compressor, []ObjClassPair{{ObjID: 1, ClassID: 10}, {ObjID: 7, ClassID: 70}})
	writeChunk(t, chunksDir, "chunk-002", compressor, []ObjClassPair{{ObjID: 3, ClassID: 30}})

	merged, err := mergeChunks(objClassCodec, chunksDir, mergeRoot, compressor)
	require.NoError(t, err)

	r, err := newChunkFileReader(objClassCodec, merged, compressor)
	require.NoError(t, err)
	defer r.Close()

	var got []uint64
	for {
		item, ok, err := r.next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, item.ObjID)
	}

	assert.Equal(t, []uint64{1, 3, 5, 7, 9}, got)
}

func TestVerifySorted_DetectsOutOfOrderOutput(t *testing.T) {
	root := t.TempDir()
	compressor := chunkio.NewCompressor(false, chunkio.LevelDefault)
	path := filepath.Join(root, "unsorted")
	writeChunk(t, root, "unsorted", compressor, []ObjClassPair{{ObjID: 5, ClassID: 50}, {ObjID: 1, ClassID: 10}})

	err := verifySorted[ObjClassPair](objClassCodec, path, compressor)
	require.Error(t, err)
	assert.True(t, apperrors.IsIndexInconsistency(err))
}

func writeChunk(t *testing.T, dir, name string, compressor *chunkio.Compressor, pairs []ObjClassPair) {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w, err := compressor.WrapWriter(f)
	require.NoError(t, err)

	buf := make([]byte, objClassPairSize)
	for _, p := range pairs {
		p.encode(buf)
		_, err := w.Write(buf)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}
