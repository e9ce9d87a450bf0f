package hprof

// RecordTag identifies the kind of a top-level hprof record.
type RecordTag uint8

const (
	TagUtf8            RecordTag = 0x01
	TagLoadClass       RecordTag = 0x02
	TagUnloadClass     RecordTag = 0x03
	TagStackFrame      RecordTag = 0x04
	TagStackTrace      RecordTag = 0x05
	TagAllocSites      RecordTag = 0x06
	TagHeapSummary     RecordTag = 0x07
	TagStartThread     RecordTag = 0x0A
	TagEndThread       RecordTag = 0x0B
	TagHeapDump        RecordTag = 0x0C
	TagCPUSamples      RecordTag = 0x0D
	TagControlSettings RecordTag = 0x0E
	TagHeapDumpSegment RecordTag = 0x1C
	TagHeapDumpEnd     RecordTag = 0x2C
)

// String names the tag for logging and error messages.
func (t RecordTag) String() string {
	switch t {
	case TagUtf8:
		return "Utf8"
	case TagLoadClass:
		return "LoadClass"
	case TagUnloadClass:
		return "UnloadClass"
	case TagStackFrame:
		return "StackFrame"
	case TagStackTrace:
		return "StackTrace"
	case TagAllocSites:
		return "AllocSites"
	case TagHeapSummary:
		return "HeapSummary"
	case TagStartThread:
		return "StartThread"
	case TagEndThread:
		return "EndThread"
	case TagHeapDump:
		return "HeapDump"
	case TagCPUSamples:
		return "CpuSamples"
	case TagControlSettings:
		return "ControlSettings"
	case TagHeapDumpSegment:
		return "HeapDumpSegment"
	case TagHeapDumpEnd:
		return "HeapDumpEnd"
	default:
		return "Unknown"
	}
}

func isKnownTag(b byte) bool {
	switch RecordTag(b) {
	case TagUtf8, TagLoadClass, TagUnloadClass, TagStackFrame, TagStackTrace,
		TagAllocSites, TagHeapSummary, TagStartThread, TagEndThread,
		TagHeapDump, TagCPUSamples, TagControlSettings, TagHeapDumpSegment, TagHeapDumpEnd:
		return true
	default:
		return false
	}
}

// Record is a framing envelope over one top-level hprof record. Body is
// interpreted lazily: constructing a Record touches only the tag, timestamp
// delta, and length fields, never the body's contents, which is what keeps
// whole-file traversal cheap.
type Record struct {
	Tag               RecordTag
	MicrosSinceHeader uint32
	IDSize            IdSize
	Body              []byte
	// Offset is the absolute byte offset of this record's tag byte, kept for
	// error reporting and for the parallel index stage's per-record chunk
	// keying (§4.8).
	Offset int64
}

// AsUtf8 parses Body as a Utf8 record if Tag matches.
func (r Record) AsUtf8() (Utf8Record, bool, error) {
	if r.Tag != TagUtf8 {
		return Utf8Record{}, false, nil
	}
	v, err := parseUtf8(r.Body, r.IDSize, r.Offset)
	return v, true, err
}

// AsLoadClass parses Body as a LoadClass record if Tag matches.
func (r Record) AsLoadClass() (LoadClassRecord, bool, error) {
	if r.Tag != TagLoadClass {
		return LoadClassRecord{}, false, nil
	}
	v, err := parseLoadClass(r.Body, r.IDSize, r.Offset)
	return v, true, err
}

// IsHeapDumpEnvelope reports whether Tag is HeapDump or HeapDumpSegment -
// the two tags whose body is a sequence of heap-dump sub-records.
func (r Record) IsHeapDumpEnvelope() bool {
	return r.Tag == TagHeapDump || r.Tag == TagHeapDumpSegment
}

// SubRecords returns a lazy iterator over this record's heap-dump
// sub-records. It is only meaningful when IsHeapDumpEnvelope is true.
func (r Record) SubRecords() *SubRecordIterator {
	return newSubRecordIterator(r.Body, r.IDSize, r.Offset)
}

// RecordIterator lazily frames top-level records out of a header-stripped
// byte slice. A single instance is single-use and single-threaded; the
// parallel bridge (internal/parallel) pulls from one shared instance behind
// a mutex to fan records out across workers.
type RecordIterator struct {
	cur    *cursor
	idSize IdSize
	count  int
}

// NewRecordIterator builds a record iterator over the record stream
// (the bytes following the header) with the header's declared IdSize.
func NewRecordIterator(recordStream []byte, idSize IdSize, base int64) *RecordIterator {
	return &RecordIterator{cur: newCursorAt(recordStream, base), idSize: idSize}
}

// Next returns the next record, or ok=false at end of stream.
func (it *RecordIterator) Next() (Record, bool, error) {
	if it.cur.len() == 0 {
		return Record{}, false, nil
	}

	offset := it.cur.offset()
	tagByte, err := it.cur.readByte()
	if err != nil {
		return Record{}, false, err
	}
	if !isKnownTag(tagByte) {
		return Record{}, false, it.cur.malformed("unknown top-level record tag")
	}

	micros, err := it.cur.readU32()
	if err != nil {
		return Record{}, false, err
	}
	length, err := it.cur.readU32()
	if err != nil {
		return Record{}, false, err
	}
	body, err := it.cur.take(int(length))
	if err != nil {
		return Record{}, false, err
	}

	it.count++
	return Record{
		Tag:               RecordTag(tagByte),
		MicrosSinceHeader: micros,
		IDSize:            it.idSize,
		Body:              body,
		Offset:            offset,
	}, true, nil
}

// Count returns the number of records produced so far.
func (it *RecordIterator) Count() int { return it.count }
