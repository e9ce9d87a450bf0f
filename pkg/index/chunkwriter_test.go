package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hprofgraph/hprofviz/internal/chunkio"
)

func TestSortedChunkWriter_SortsWithinAChunk(t *testing.T) {
	dir := t.TempDir()
	compressor := chunkio.NewCompressor(false, chunkio.LevelDefault)

	w := NewSortedChunkWriter(objClassCodec, dir, 7, 100, compressor)
	require.NoError(t, w.Append(ObjClassPair{ObjID: 3, ClassID: 300}))
	require.NoError(t, w.Append(ObjClassPair{ObjID: 1, ClassID: 100}))
	require.NoError(t, w.Append(ObjClassPair{ObjID: 2, ClassID: 200}))
	require.NoError(t, w.Flush())

	path := filepath.Join(dir, "record-0000000007-chunk-000")
	r, err := newChunkFileReader(objClassCodec, path, compressor)
	require.NoError(t, err)
	defer r.Close()

	var got []ObjClassPair
	for {
		item, ok, err := r.next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, item)
	}

	assert.Equal(t, []ObjClassPair{
		{ObjID: 1, ClassID: 100},
		{ObjID: 2, ClassID: 200},
		{ObjID: 3, ClassID: 300},
	}, got)
}

func TestSortedChunkWriter_AutoFlushesAtChunkSize(t *testing.T) {
	dir := t.TempDir()
	compressor := chunkio.NewCompressor(false, chunkio.LevelDefault)

	w := NewSortedChunkWriter(objClassCodec, dir, 1, 2, compressor)
	require.NoError(t, w.Append(ObjClassPair{ObjID: 1, ClassID: 10}))
	require.NoError(t, w.Append(ObjClassPair{ObjID: 2, ClassID: 20}))
	// auto-flushed at 2; this one lands in its own chunk
	require.NoError(t, w.Append(ObjClassPair{ObjID: 3, ClassID: 30}))
	require.NoError(t, w.Flush())

	assert.Equal(t, 2, w.chunkIndex)
}

func TestSortedChunkWriter_FlushIsNoOpWhenEmpty(t *testing.T) {
	dir := t.TempDir()
	compressor := chunkio.NewCompressor(false, chunkio.LevelDefault)
	w := NewSortedChunkWriter(objClassCodec, dir, 1, 100, compressor)
	require.NoError(t, w.Flush())
	assert.Equal(t, 0, w.chunkIndex)
}
