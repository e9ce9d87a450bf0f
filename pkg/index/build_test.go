package index

import (
	"bytes"
	"context"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hprofgraph/hprofviz/pkg/hprof"
)

func putBEu64(buf *bytes.Buffer, v uint64) { _ = binary.Write(buf, binary.BigEndian, v) }
func putBEu32(buf *bytes.Buffer, v uint32) { _ = binary.Write(buf, binary.BigEndian, v) }
func putBEu16(buf *bytes.Buffer, v uint16) { _ = binary.Write(buf, binary.BigEndian, v) }

// buildMinimalHprof constructs a complete, valid hprof byte stream with an
// 8-byte id size: one Class sub-record (obj id 10, no fields), one
// Instance referencing it (obj id 20), and one PrimitiveArray (obj id 30),
// all inside a single HeapDump record.
func buildMinimalHprof(t *testing.T) []byte {
	t.Helper()

	var classBody bytes.Buffer
	classBody.WriteByte(byte(hprof.HeapTagClass))
	putBEu64(&classBody, 10) // obj id
	putBEu32(&classBody, 0)  // stack trace serial
	putBEu64(&classBody, 0)  // super class obj id (none)
	putBEu64(&classBody, 0)  // class loader
	putBEu64(&classBody, 0)  // signers
	putBEu64(&classBody, 0)  // protection domain
	putBEu64(&classBody, 0)  // reserved
	putBEu64(&classBody, 0)  // reserved
	putBEu32(&classBody, 0)  // instance size bytes
	putBEu16(&classBody, 0)  // constant pool len
	putBEu16(&classBody, 0)  // num static fields
	putBEu16(&classBody, 0)  // num instance fields

	var instanceBody bytes.Buffer
	instanceBody.WriteByte(byte(hprof.HeapTagInstance))
	putBEu64(&instanceBody, 20) // obj id
	putBEu32(&instanceBody, 0)  // stack trace serial
	putBEu64(&instanceBody, 10) // class obj id
	putBEu32(&instanceBody, 0)  // fields byte len

	var primBody bytes.Buffer
	primBody.WriteByte(byte(hprof.HeapTagPrimitiveArray))
	putBEu64(&primBody, 30) // obj id
	putBEu32(&primBody, 0)  // stack trace serial
	putBEu32(&primBody, 2)  // num elements
	primBody.WriteByte(byte(hprof.PrimitiveArrayInt))
	putBEu32(&primBody, 1)
	putBEu32(&primBody, 2)

	var heapDumpBody bytes.Buffer
	heapDumpBody.Write(classBody.Bytes())
	heapDumpBody.Write(instanceBody.Bytes())
	heapDumpBody.Write(primBody.Bytes())

	var stream bytes.Buffer
	stream.WriteString("JAVA PROFILE 1.0.2")
	stream.WriteByte(0)
	putBEu32(&stream, 8)   // id size
	putBEu32(&stream, 0)   // timestamp hi
	putBEu32(&stream, 999) // timestamp lo

	stream.WriteByte(byte(hprof.TagHeapDump))
	putBEu32(&stream, 0) // micros
	putBEu32(&stream, uint32(heapDumpBody.Len()))
	stream.Write(heapDumpBody.Bytes())

	stream.WriteByte(byte(hprof.TagHeapDumpEnd))
	putBEu32(&stream, 0)
	putBEu32(&stream, 0)

	return stream.Bytes()
}

func TestBuildAndOpen_RoundTrip(t *testing.T) {
	buf := buildMinimalHprof(t)
	workDir := t.TempDir()

	store, fingerprint, err := Build(context.Background(), buf, workDir, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, uint64(999), fingerprint.HeaderTimestampMillis)
	assert.Equal(t, uint64(2), fingerprint.TotalRecordCount) // HeapDump + HeapDumpEnd
	require.NoError(t, store.Close())

	reopened, err := Open(filepath.Join(workDir, "index.bolt"), fingerprint)
	require.NoError(t, err)
	defer reopened.Close()

	classID, ok, err := reopened.GetClassID(20)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(10), classID)

	typeCode, ok, err := reopened.GetPrimArrayType(30)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint8(hprof.PrimitiveArrayInt), typeCode)

	_, ok, err = reopened.GetClassID(999)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpen_RejectsFingerprintMismatch(t *testing.T) {
	buf := buildMinimalHprof(t)
	workDir := t.TempDir()

	_, fingerprint, err := Build(context.Background(), buf, workDir, DefaultConfig())
	require.NoError(t, err)

	wrong := fingerprint
	wrong.TotalRecordCount++

	_, err = Open(filepath.Join(workDir, "index.bolt"), wrong)
	require.Error(t, err)
}
