package hprof

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildRecord(t *testing.T, tag RecordTag, micros uint32, body []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteByte(byte(tag))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, micros))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(len(body))))
	buf.Write(body)
	return buf.Bytes()
}

func TestRecordIterator_FramesRecords(t *testing.T) {
	var stream []byte
	stream = append(stream, buildRecord(t, TagUtf8, 0, []byte{1, 2, 3, 4, 5, 6, 7, 8})...)
	stream = append(stream, buildRecord(t, TagHeapDumpEnd, 10, nil)...)

	it := NewRecordIterator(stream, IDSize8, 0)

	r1, ok, err := it.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, TagUtf8, r1.Tag)
	assert.Len(t, r1.Body, 8)

	r2, ok, err := it.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, TagHeapDumpEnd, r2.Tag)
	assert.Equal(t, uint32(10), r2.MicrosSinceHeader)
	assert.Empty(t, r2.Body)

	_, ok, err = it.Next()
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 2, it.Count())
}

func TestRecordIterator_RejectsUnknownTag(t *testing.T) {
	stream := buildRecord(t, RecordTag(0x99), 0, nil)
	it := NewRecordIterator(stream, IDSize8, 0)
	_, _, err := it.Next()
	require.Error(t, err)
}

func TestRecordIterator_RejectsTruncatedBody(t *testing.T) {
	stream := []byte{byte(TagUtf8), 0, 0, 0, 0, 0, 0, 0, 5}
	it := NewRecordIterator(stream, IDSize8, 0)
	_, _, err := it.Next()
	require.Error(t, err)
}

func TestUtf8RecordRoundTrip(t *testing.T) {
	var idBytes bytes.Buffer
	require.NoError(t, binary.Write(&idBytes, binary.BigEndian, uint64(0xCAFEBABE)))
	utf8Body := append(idBytes.Bytes(), []byte("java.lang.String")...)
	stream := buildRecord(t, TagUtf8, 0, utf8Body)

	it := NewRecordIterator(stream, IDSize8, 0)
	rec, ok, err := it.Next()
	require.NoError(t, err)
	require.True(t, ok)

	u, matched, err := rec.AsUtf8()
	require.NoError(t, err)
	require.True(t, matched)
	assert.Equal(t, Id(0xCAFEBABE), u.NameID)
	assert.Equal(t, "java.lang.String", u.Text())
}
