package hprof

// HeapDumpTag identifies the kind of a heap-dump sub-record, framed inside a
// HeapDump or HeapDumpSegment record's body.
type HeapDumpTag uint8

const (
	HeapTagGcRootUnknown       HeapDumpTag = 0xFF
	HeapTagGcRootJniGlobal     HeapDumpTag = 0x01
	HeapTagGcRootJniLocalRef   HeapDumpTag = 0x02
	HeapTagGcRootJavaStackFrame HeapDumpTag = 0x03
	HeapTagGcRootNativeStack   HeapDumpTag = 0x04
	HeapTagGcRootSystemClass   HeapDumpTag = 0x05
	HeapTagGcRootThreadBlock   HeapDumpTag = 0x06
	HeapTagGcRootBusyMonitor   HeapDumpTag = 0x07
	HeapTagGcRootThreadObj     HeapDumpTag = 0x08
	HeapTagClass               HeapDumpTag = 0x20
	HeapTagInstance            HeapDumpTag = 0x21
	HeapTagObjectArray         HeapDumpTag = 0x22
	HeapTagPrimitiveArray      HeapDumpTag = 0x23
)

func (t HeapDumpTag) String() string {
	switch t {
	case HeapTagGcRootUnknown:
		return "GcRootUnknown"
	case HeapTagGcRootJniGlobal:
		return "GcRootJniGlobal"
	case HeapTagGcRootJniLocalRef:
		return "GcRootJniLocalRef"
	case HeapTagGcRootJavaStackFrame:
		return "GcRootJavaStackFrame"
	case HeapTagGcRootNativeStack:
		return "GcRootNativeStack"
	case HeapTagGcRootSystemClass:
		return "GcRootSystemClass"
	case HeapTagGcRootThreadBlock:
		return "GcRootThreadBlock"
	case HeapTagGcRootBusyMonitor:
		return "GcRootBusyMonitor"
	case HeapTagGcRootThreadObj:
		return "GcRootThreadObj"
	case HeapTagClass:
		return "Class"
	case HeapTagInstance:
		return "Instance"
	case HeapTagObjectArray:
		return "ObjectArray"
	case HeapTagPrimitiveArray:
		return "PrimitiveArray"
	default:
		return "Unknown"
	}
}

// GcRootUnknown is a GC root of unspecified kind. The JDK heap dumper
// documents this tag but is not known to ever emit it.
type GcRootUnknown struct{ ObjID Id }

// GcRootThreadObj is a GC root rooted by a live thread object.
type GcRootThreadObj struct {
	ThreadObjID      OptionalID // absent for a thread newly attached through JNI
	ThreadSerial     Serial
	StackTraceSerial Serial
}

// GcRootJniGlobal is a GC root held by a JNI global reference.
type GcRootJniGlobal struct {
	ObjID          Id
	JniGlobalRefID Id
}

// GcRootJniLocalRef is a GC root held by a JNI local reference on a thread's
// stack.
type GcRootJniLocalRef struct {
	ObjID        Id
	ThreadSerial Serial
	FrameIndex   OptionalSerial
}

// GcRootJavaStackFrame is a GC root held by a local variable in a Java stack
// frame.
type GcRootJavaStackFrame struct {
	ObjID        Id
	ThreadSerial Serial
	FrameIndex   OptionalSerial
}

// GcRootNativeStack is a GC root held by the native (JNI) call stack. The
// JDK heap dumper documents this tag but is not known to ever emit it.
type GcRootNativeStack struct {
	ObjID        Id
	ThreadSerial Serial
}

// GcRootSystemClass is a GC root rooted by a JVM-internal system class.
type GcRootSystemClass struct{ ObjID Id }

// GcRootThreadBlock is a GC root held by a thread block. The JDK heap
// dumper documents this tag but is not known to ever emit it.
type GcRootThreadBlock struct {
	ObjID        Id
	ThreadSerial Serial
}

// GcRootBusyMonitor is a GC root held because the object's monitor is
// currently locked.
type GcRootBusyMonitor struct{ ObjID Id }

// SubRecord is a parsed heap-dump sub-record. Exactly one of the typed
// fields is populated, selected by Tag; callers switch on Tag rather than
// type-asserting, matching how the rest of this package reports which
// variant a sum-typed record holds.
type SubRecord struct {
	Tag    HeapDumpTag
	Offset int64

	GcRootUnknown        GcRootUnknown
	GcRootThreadObj      GcRootThreadObj
	GcRootJniGlobal      GcRootJniGlobal
	GcRootJniLocalRef    GcRootJniLocalRef
	GcRootJavaStackFrame GcRootJavaStackFrame
	GcRootNativeStack    GcRootNativeStack
	GcRootSystemClass    GcRootSystemClass
	GcRootThreadBlock    GcRootThreadBlock
	GcRootBusyMonitor    GcRootBusyMonitor
	Class                Class
	Instance             Instance
	ObjectArray          ObjectArray
	PrimitiveArray       PrimitiveArray
}

// SubRecordIterator lazily frames heap-dump sub-records out of a HeapDump or
// HeapDumpSegment record's body.
type SubRecordIterator struct {
	cur    *cursor
	idSize IdSize
}

func newSubRecordIterator(body []byte, idSize IdSize, base int64) *SubRecordIterator {
	return &SubRecordIterator{cur: newCursorAt(body, base), idSize: idSize}
}

// Next returns the next sub-record, or ok=false at end of the enclosing
// record's body.
func (it *SubRecordIterator) Next() (SubRecord, bool, error) {
	if it.cur.len() == 0 {
		return SubRecord{}, false, nil
	}

	offset := it.cur.offset()
	tagByte, err := it.cur.readByte()
	if err != nil {
		return SubRecord{}, false, err
	}

	var out SubRecord
	out.Offset = offset
	out.Tag = HeapDumpTag(tagByte)

	switch out.Tag {
	case HeapTagGcRootUnknown:
		id, err := it.cur.readID(it.idSize)
		if err != nil {
			return SubRecord{}, false, err
		}
		out.GcRootUnknown = GcRootUnknown{ObjID: id}
	case HeapTagGcRootThreadObj:
		threadObjID, err := it.cur.readOptionalID(it.idSize)
		if err != nil {
			return SubRecord{}, false, err
		}
		threadSerial, err := it.cur.readU32()
		if err != nil {
			return SubRecord{}, false, err
		}
		stackSerial, err := it.cur.readU32()
		if err != nil {
			return SubRecord{}, false, err
		}
		out.GcRootThreadObj = GcRootThreadObj{
			ThreadObjID:      threadObjID,
			ThreadSerial:     Serial(threadSerial),
			StackTraceSerial: Serial(stackSerial),
		}
	case HeapTagGcRootJniGlobal:
		objID, err := it.cur.readID(it.idSize)
		if err != nil {
			return SubRecord{}, false, err
		}
		refID, err := it.cur.readID(it.idSize)
		if err != nil {
			return SubRecord{}, false, err
		}
		out.GcRootJniGlobal = GcRootJniGlobal{ObjID: objID, JniGlobalRefID: refID}
	case HeapTagGcRootJniLocalRef:
		objID, err := it.cur.readID(it.idSize)
		if err != nil {
			return SubRecord{}, false, err
		}
		threadSerial, err := it.cur.readU32()
		if err != nil {
			return SubRecord{}, false, err
		}
		frameIndex, err := it.cur.readOptionalSerial()
		if err != nil {
			return SubRecord{}, false, err
		}
		out.GcRootJniLocalRef = GcRootJniLocalRef{ObjID: objID, ThreadSerial: Serial(threadSerial), FrameIndex: frameIndex}
	case HeapTagGcRootJavaStackFrame:
		objID, err := it.cur.readID(it.idSize)
		if err != nil {
			return SubRecord{}, false, err
		}
		threadSerial, err := it.cur.readU32()
		if err != nil {
			return SubRecord{}, false, err
		}
		frameIndex, err := it.cur.readOptionalSerial()
		if err != nil {
			return SubRecord{}, false, err
		}
		out.GcRootJavaStackFrame = GcRootJavaStackFrame{ObjID: objID, ThreadSerial: Serial(threadSerial), FrameIndex: frameIndex}
	case HeapTagGcRootNativeStack:
		objID, err := it.cur.readID(it.idSize)
		if err != nil {
			return SubRecord{}, false, err
		}
		threadSerial, err := it.cur.readU32()
		if err != nil {
			return SubRecord{}, false, err
		}
		out.GcRootNativeStack = GcRootNativeStack{ObjID: objID, ThreadSerial: Serial(threadSerial)}
	case HeapTagGcRootSystemClass:
		id, err := it.cur.readID(it.idSize)
		if err != nil {
			return SubRecord{}, false, err
		}
		out.GcRootSystemClass = GcRootSystemClass{ObjID: id}
	case HeapTagGcRootThreadBlock:
		objID, err := it.cur.readID(it.idSize)
		if err != nil {
			return SubRecord{}, false, err
		}
		threadSerial, err := it.cur.readU32()
		if err != nil {
			return SubRecord{}, false, err
		}
		out.GcRootThreadBlock = GcRootThreadBlock{ObjID: objID, ThreadSerial: Serial(threadSerial)}
	case HeapTagGcRootBusyMonitor:
		id, err := it.cur.readID(it.idSize)
		if err != nil {
			return SubRecord{}, false, err
		}
		out.GcRootBusyMonitor = GcRootBusyMonitor{ObjID: id}
	case HeapTagClass:
		v, err := parseClass(it.cur, it.idSize)
		if err != nil {
			return SubRecord{}, false, err
		}
		out.Class = v
	case HeapTagInstance:
		v, err := parseInstance(it.cur, it.idSize)
		if err != nil {
			return SubRecord{}, false, err
		}
		out.Instance = v
	case HeapTagObjectArray:
		v, err := parseObjectArray(it.cur, it.idSize)
		if err != nil {
			return SubRecord{}, false, err
		}
		out.ObjectArray = v
	case HeapTagPrimitiveArray:
		v, err := parsePrimitiveArray(it.cur, it.idSize)
		if err != nil {
			return SubRecord{}, false, err
		}
		out.PrimitiveArray = v
	default:
		return SubRecord{}, false, it.cur.malformed("unknown heap-dump sub-record tag")
	}

	return out, true, nil
}
