package graph

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/hprofgraph/hprofviz/pkg/hprof"
	"github.com/hprofgraph/hprofviz/pkg/index"
	"github.com/stretchr/testify/require"
)

func putID8(buf *bytes.Buffer, v uint64) { _ = binary.Write(buf, binary.BigEndian, v) }
func putU32(buf *bytes.Buffer, v uint32) { _ = binary.Write(buf, binary.BigEndian, v) }
func putU16(buf *bytes.Buffer, v uint16) { _ = binary.Write(buf, binary.BigEndian, v) }

func buildHeader(label string, idSize uint32, timestampMillis uint64) []byte {
	var buf bytes.Buffer
	buf.WriteString(label)
	buf.WriteByte(0)
	_ = binary.Write(&buf, binary.BigEndian, idSize)
	_ = binary.Write(&buf, binary.BigEndian, uint32(timestampMillis>>32))
	_ = binary.Write(&buf, binary.BigEndian, uint32(timestampMillis))
	return buf.Bytes()
}

func buildRecord(tag hprof.RecordTag, micros uint32, body []byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(tag))
	_ = binary.Write(&buf, binary.BigEndian, micros)
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(body)))
	buf.Write(body)
	return buf.Bytes()
}

func utf8Body(nameID uint64, text string) []byte {
	var buf bytes.Buffer
	putID8(&buf, nameID)
	buf.WriteString(text)
	return buf.Bytes()
}

func loadClassBody(classObjID, classNameID uint64) []byte {
	var buf bytes.Buffer
	putU32(&buf, uint32(classNameID)) // class serial number, distinct per class in these fixtures
	putID8(&buf, classObjID)
	putU32(&buf, 0) // stack trace serial
	putID8(&buf, classNameID)
	return buf.Bytes()
}

func classSubRecordBody(objID, superID uint64, instanceSizeBytes uint32, instanceFieldNameID uint64, hasInstanceField bool) []byte {
	var buf bytes.Buffer
	putID8(&buf, objID)
	putU32(&buf, 0) // stack trace serial
	putID8(&buf, superID)
	putID8(&buf, 0) // class loader obj id
	putID8(&buf, 0) // signers obj id
	putID8(&buf, 0) // protection domain obj id
	putID8(&buf, 0) // reserved
	putID8(&buf, 0) // reserved
	putU32(&buf, instanceSizeBytes)
	putU16(&buf, 0) // constant pool len
	putU16(&buf, 0) // num static fields
	if hasInstanceField {
		putU16(&buf, 1)
		putID8(&buf, instanceFieldNameID)
		buf.WriteByte(byte(hprof.FieldTypeObjectID))
	} else {
		putU16(&buf, 0)
	}
	return buf.Bytes()
}

func instanceSubRecordBody(objID, classObjID uint64, fieldBytes []byte) []byte {
	var buf bytes.Buffer
	putID8(&buf, objID)
	putU32(&buf, 0)
	putID8(&buf, classObjID)
	putU32(&buf, uint32(len(fieldBytes)))
	buf.Write(fieldBytes)
	return buf.Bytes()
}

func objectArraySubRecordBody(objID, arrayClassObjID uint64, elements []uint64) []byte {
	var buf bytes.Buffer
	putID8(&buf, objID)
	putU32(&buf, 0)
	putU32(&buf, uint32(len(elements)))
	putID8(&buf, arrayClassObjID)
	for _, e := range elements {
		putID8(&buf, e)
	}
	return buf.Bytes()
}

func primitiveArrayIntBody(objID uint64, values []int32) []byte {
	var buf bytes.Buffer
	putID8(&buf, objID)
	putU32(&buf, 0)
	putU32(&buf, uint32(len(values)))
	buf.WriteByte(byte(hprof.PrimitiveArrayInt))
	for _, v := range values {
		putU32(&buf, uint32(v))
	}
	return buf.Bytes()
}

func gcRootJavaStackFrameBody(objID uint64) []byte {
	var buf bytes.Buffer
	putID8(&buf, objID)
	putU32(&buf, 1) // thread serial
	putU32(&buf, 0) // frame number
	return buf.Bytes()
}

func subRecord(tag hprof.HeapDumpTag, body []byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(tag))
	buf.Write(body)
	return buf.Bytes()
}

// buildReferenceDump constructs a full hprof buffer:
//   - classes Base(10, no fields), Derived(20, extends 10, one "ref"
//     object-id field), Holder(40, one "target" object-id field),
//     ArrayOfDerived(30, the [LDerived; array class, no fields)
//   - instance 100 (Derived, ref=null), instance 101 (Holder, target=100)
//   - a GcRootJavaStackFrame pointing at 101
//   - an object array 200 of class 30 holding [100, null]
//   - a primitive int[] array 300
//
// This exercises the HeapGraphSource/HeapGraphDest variants the
// reference-count graph and root-path tests check: instance fields, GC
// roots, and object-array elements all resolving to an InstanceOfClass
// destination, plus a primitive array that never participates as a
// source.
func buildReferenceDump(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.Write(buildHeader("JAVA PROFILE 1.0.2", 8, 1))

	buf.Write(buildRecord(hprof.TagUtf8, 0, utf8Body(1, "Base")))
	buf.Write(buildRecord(hprof.TagUtf8, 0, utf8Body(2, "Derived")))
	buf.Write(buildRecord(hprof.TagUtf8, 0, utf8Body(3, "[LDerived;")))
	buf.Write(buildRecord(hprof.TagUtf8, 0, utf8Body(4, "Holder")))
	buf.Write(buildRecord(hprof.TagUtf8, 0, utf8Body(7, "ref")))
	buf.Write(buildRecord(hprof.TagUtf8, 0, utf8Body(8, "target")))

	buf.Write(buildRecord(hprof.TagLoadClass, 0, loadClassBody(10, 1)))
	buf.Write(buildRecord(hprof.TagLoadClass, 0, loadClassBody(20, 2)))
	buf.Write(buildRecord(hprof.TagLoadClass, 0, loadClassBody(30, 3)))
	buf.Write(buildRecord(hprof.TagLoadClass, 0, loadClassBody(40, 4)))

	var segment bytes.Buffer
	segment.Write(subRecord(hprof.HeapTagClass, classSubRecordBody(10, 0, 0, 0, false)))
	segment.Write(subRecord(hprof.HeapTagClass, classSubRecordBody(20, 10, 8, 7, true)))
	segment.Write(subRecord(hprof.HeapTagClass, classSubRecordBody(30, 0, 0, 0, false)))
	segment.Write(subRecord(hprof.HeapTagClass, classSubRecordBody(40, 0, 8, 8, true)))

	var nullRef bytes.Buffer
	putID8(&nullRef, 0)
	segment.Write(subRecord(hprof.HeapTagInstance, instanceSubRecordBody(100, 20, nullRef.Bytes())))

	var targetRef bytes.Buffer
	putID8(&targetRef, 100)
	segment.Write(subRecord(hprof.HeapTagInstance, instanceSubRecordBody(101, 40, targetRef.Bytes())))

	segment.Write(subRecord(hprof.HeapTagGcRootJavaStackFrame, gcRootJavaStackFrameBody(101)))
	segment.Write(subRecord(hprof.HeapTagObjectArray, objectArraySubRecordBody(200, 30, []uint64{100, 0})))
	segment.Write(subRecord(hprof.HeapTagPrimitiveArray, primitiveArrayIntBody(300, []int32{1, 2, 3})))

	buf.Write(buildRecord(hprof.TagHeapDump, 0, segment.Bytes()))
	return buf.Bytes()
}

// buildIndexStore runs the real out-of-core index pipeline over buf in a
// fresh temp directory and returns the opened store, closed automatically
// at test cleanup.
func buildIndexStore(t *testing.T, buf []byte) *index.Store {
	t.Helper()
	store, _, err := index.Build(context.Background(), buf, t.TempDir(), index.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}
