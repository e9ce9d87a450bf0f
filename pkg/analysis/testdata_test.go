package analysis

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/hprofgraph/hprofviz/pkg/hprof"
)

func putID8(buf *bytes.Buffer, v uint64) {
	_ = binary.Write(buf, binary.BigEndian, v)
}

func putU32(buf *bytes.Buffer, v uint32) {
	_ = binary.Write(buf, binary.BigEndian, v)
}

func putU16(buf *bytes.Buffer, v uint16) {
	_ = binary.Write(buf, binary.BigEndian, v)
}

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

// classSubRecordBody builds a HeapTagClass sub-record body (tag byte
// excluded) for a class with no static fields and no instance fields,
// matching the layout pkg/hprof's parseClass expects.
func classSubRecordBody(objID, superID uint64, instanceSizeBytes uint32) []byte {
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
	putU16(&buf, 0) // num instance fields
	return buf.Bytes()
}

func instanceSubRecordBody(objID, classObjID uint64, fieldBytes []byte) []byte {
	var buf bytes.Buffer
	putID8(&buf, objID)
	putU32(&buf, 0) // stack trace serial
	putID8(&buf, classObjID)
	putU32(&buf, uint32(len(fieldBytes)))
	buf.Write(fieldBytes)
	return buf.Bytes()
}

func objectArraySubRecordBody(objID, arrayClassObjID uint64, elements []uint64) []byte {
	var buf bytes.Buffer
	putID8(&buf, objID)
	putU32(&buf, 0) // stack trace serial
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
	putU32(&buf, 0) // stack trace serial
	putU32(&buf, uint32(len(values)))
	buf.WriteByte(byte(hprof.PrimitiveArrayInt))
	for _, v := range values {
		putU32(&buf, uint32(v))
	}
	return buf.Bytes()
}

func subRecord(tag hprof.HeapDumpTag, body []byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(tag))
	buf.Write(body)
	return buf.Bytes()
}

// buildTwoClassDump constructs a full hprof buffer (header + Utf8 +
// LoadClass + Class records for a Base/Derived pair, then a heap dump
// segment holding one Derived instance, one Object[] array of Derived
// refs, and one int[] primitive array) shared across this package's
// tests.
func buildTwoClassDump(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.Write(buildHeader("JAVA PROFILE 1.0.2", 8, 1))

	buf.Write(buildRecord(hprof.TagUtf8, 0, utf8Body(1, "Base")))
	buf.Write(buildRecord(hprof.TagUtf8, 0, utf8Body(2, "Derived")))
	buf.Write(buildRecord(hprof.TagUtf8, 0, utf8Body(3, "[LDerived;")))
	buf.Write(buildRecord(hprof.TagLoadClass, 0, loadClassBody(10, 1)))
	buf.Write(buildRecord(hprof.TagLoadClass, 0, loadClassBody(20, 2)))
	buf.Write(buildRecord(hprof.TagLoadClass, 0, loadClassBody(30, 3)))

	var segment bytes.Buffer
	segment.Write(subRecord(hprof.HeapTagClass, classSubRecordBody(10, 0, 16)))
	segment.Write(subRecord(hprof.HeapTagClass, classSubRecordBody(20, 10, 24)))
	segment.Write(subRecord(hprof.HeapTagClass, classSubRecordBody(30, 0, 0)))
	segment.Write(subRecord(hprof.HeapTagInstance, instanceSubRecordBody(100, 20, nil)))
	segment.Write(subRecord(hprof.HeapTagInstance, instanceSubRecordBody(101, 20, nil)))
	segment.Write(subRecord(hprof.HeapTagObjectArray, objectArraySubRecordBody(200, 30, []uint64{100, 0})))
	segment.Write(subRecord(hprof.HeapTagPrimitiveArray, primitiveArrayIntBody(300, []int32{1, 2, 3})))

	buf.Write(buildRecord(hprof.TagHeapDump, 0, segment.Bytes()))
	return buf.Bytes()
}
