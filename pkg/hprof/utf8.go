package hprof

// Utf8Record maps a string id to its UTF-8 bytes. The bytes are a borrowed
// view over the record body; Text allocates a new string on each call.
type Utf8Record struct {
	NameID Id
	Bytes  []byte
	Offset int64
}

// Text decodes Bytes as UTF-8. The format does not guarantee valid UTF-8
// (the JVM writes modified-UTF-8 / raw bytes for some strings); Text
// converts the bytes as they are and does not validate them.
func (u Utf8Record) Text() string {
	return string(u.Bytes)
}

func parseUtf8(body []byte, idSize IdSize, base int64) (Utf8Record, error) {
	cur := newCursorAt(body, base)
	id, err := cur.readID(idSize)
	if err != nil {
		return Utf8Record{}, err
	}
	return Utf8Record{NameID: id, Bytes: cur.remaining(), Offset: base}, nil
}

// LoadClassRecord announces that a class with the given object id and name
// (via NameID, resolved against the Utf8Record table) has been loaded,
// tagged with its class-serial-number and the serial/frame of the stack
// trace that triggered the load.
type LoadClassRecord struct {
	ClassSerial      Serial
	ClassObjectID    Id
	StackTraceSerial Serial
	ClassNameID      Id
	Offset           int64
}

func parseLoadClass(body []byte, idSize IdSize, base int64) (LoadClassRecord, error) {
	cur := newCursorAt(body, base)

	classSerial, err := cur.readU32()
	if err != nil {
		return LoadClassRecord{}, err
	}
	classObjID, err := cur.readID(idSize)
	if err != nil {
		return LoadClassRecord{}, err
	}
	stackSerial, err := cur.readU32()
	if err != nil {
		return LoadClassRecord{}, err
	}
	nameID, err := cur.readID(idSize)
	if err != nil {
		return LoadClassRecord{}, err
	}

	return LoadClassRecord{
		ClassSerial:      Serial(classSerial),
		ClassObjectID:    classObjID,
		StackTraceSerial: Serial(stackSerial),
		ClassNameID:      nameID,
		Offset:           base,
	}, nil
}
