package hprof

// FieldType is the wire tag for a field's primitive or reference type.
// Values match the primitive array element type codes in array.go by
// construction: both come from the same JVM-internal basic-type tag set.
type FieldType uint8

const (
	FieldTypeObjectID FieldType = 0x02
	FieldTypeBoolean  FieldType = 0x04
	FieldTypeChar     FieldType = 0x05
	FieldTypeFloat    FieldType = 0x06
	FieldTypeDouble   FieldType = 0x07
	FieldTypeByte     FieldType = 0x08
	FieldTypeShort    FieldType = 0x09
	FieldTypeInt      FieldType = 0x0A
	FieldTypeLong     FieldType = 0x0B
)

// JavaTypeName returns the Java source-level spelling of the type, used for
// node/field labels in the ref-count graph's DOT output.
func (t FieldType) JavaTypeName() string {
	switch t {
	case FieldTypeObjectID:
		return "Object"
	case FieldTypeBoolean:
		return "boolean"
	case FieldTypeChar:
		return "char"
	case FieldTypeFloat:
		return "float"
	case FieldTypeDouble:
		return "double"
	case FieldTypeByte:
		return "byte"
	case FieldTypeShort:
		return "short"
	case FieldTypeInt:
		return "int"
	case FieldTypeLong:
		return "long"
	default:
		return "<unknown>"
	}
}

func parseFieldType(cur *cursor) (FieldType, error) {
	b, err := cur.readByte()
	if err != nil {
		return 0, err
	}
	switch FieldType(b) {
	case FieldTypeObjectID, FieldTypeBoolean, FieldTypeChar, FieldTypeFloat, FieldTypeDouble,
		FieldTypeByte, FieldTypeShort, FieldTypeInt, FieldTypeLong:
		return FieldType(b), nil
	default:
		return 0, cur.malformed("unexpected field type tag")
	}
}

// FieldValue is a decoded field or static-field value. Exactly one field is
// meaningful, selected by Type.
type FieldValue struct {
	Type      FieldType
	ObjectRef OptionalID
	Boolean   bool
	Char      uint16
	Float     float32
	Double    float64
	Byte      int8
	Short     int16
	Int       int32
	Long      int64
}

func parseFieldValue(cur *cursor, idSize IdSize, t FieldType) (FieldValue, error) {
	fv := FieldValue{Type: t}
	var err error
	switch t {
	case FieldTypeObjectID:
		fv.ObjectRef, err = cur.readOptionalID(idSize)
	case FieldTypeBoolean:
		fv.Boolean, err = cur.readBool()
	case FieldTypeChar:
		fv.Char, err = cur.readU16()
	case FieldTypeFloat:
		fv.Float, err = cur.readF32()
	case FieldTypeDouble:
		fv.Double, err = cur.readF64()
	case FieldTypeByte:
		fv.Byte, err = cur.readI8()
	case FieldTypeShort:
		fv.Short, err = cur.readI16()
	case FieldTypeInt:
		fv.Int, err = cur.readI32()
	case FieldTypeLong:
		fv.Long, err = cur.readI64()
	default:
		return FieldValue{}, cur.malformed("unexpected field type tag")
	}
	if err != nil {
		return FieldValue{}, err
	}
	return fv, nil
}

// StaticFieldEntry is one entry of a class's static field table: a name id
// (resolved against the Utf8Record table) paired with its decoded value.
type StaticFieldEntry struct {
	NameID Id
	Value  FieldValue
}

func parseStaticFieldEntry(cur *cursor, idSize IdSize) (StaticFieldEntry, error) {
	nameID, err := cur.readID(idSize)
	if err != nil {
		return StaticFieldEntry{}, err
	}
	ft, err := parseFieldType(cur)
	if err != nil {
		return StaticFieldEntry{}, err
	}
	val, err := parseFieldValue(cur, idSize, ft)
	if err != nil {
		return StaticFieldEntry{}, err
	}
	return StaticFieldEntry{NameID: nameID, Value: val}, nil
}

// FieldDescriptor names one of a class's own (non-static) instance fields
// and its type, without a value: instance values live in each Instance
// sub-record, positionally matched against the owning class's descriptor
// chain (§4.5 denormalized class view).
type FieldDescriptor struct {
	NameID Id
	Type   FieldType
}

func parseFieldDescriptor(cur *cursor, idSize IdSize) (FieldDescriptor, error) {
	nameID, err := cur.readID(idSize)
	if err != nil {
		return FieldDescriptor{}, err
	}
	ft, err := parseFieldType(cur)
	if err != nil {
		return FieldDescriptor{}, err
	}
	return FieldDescriptor{NameID: nameID, Type: ft}, nil
}

// Class is a heap-dump Class sub-record: the class object's identity, its
// loader chain, and its own static and instance field tables. Static and
// instance fields are kept as borrowed byte slices and parsed lazily via
// StaticFields/InstanceFieldDescriptors, mirroring the rest of this
// package's zero-copy posture.
type Class struct {
	ObjID                 Id
	StackTraceSerial      Serial
	SuperClassObjID       OptionalID
	ClassLoaderObjID      OptionalID
	SignersObjID          OptionalID
	ProtectionDomainObjID OptionalID
	InstanceSizeBytes     uint32

	idSize            IdSize
	numStaticFields   uint16
	staticFieldsBytes []byte
	numInstanceFields uint16
	instanceFieldsBytes []byte
}

// parseClass implements the JDK heap dumper's class layout. Static field
// values are variable-width (FieldValue depends on FieldType), so the
// number of trailing bytes they occupy can only be discovered by parsing
// them once; parseClass does that single pass purely to measure the byte
// span, then re-exposes that span as a lazy iterator rather than retaining
// the parsed values, since classes vastly outnumber static fields touched
// by any one query.
func parseClass(cur *cursor, idSize IdSize) (Class, error) {
	objID, err := cur.readID(idSize)
	if err != nil {
		return Class{}, err
	}
	stackTraceSerial, err := cur.readU32()
	if err != nil {
		return Class{}, err
	}
	superClassObjID, err := cur.readOptionalID(idSize)
	if err != nil {
		return Class{}, err
	}
	classLoaderObjID, err := cur.readOptionalID(idSize)
	if err != nil {
		return Class{}, err
	}
	signersObjID, err := cur.readOptionalID(idSize)
	if err != nil {
		return Class{}, err
	}
	protectionDomainObjID, err := cur.readOptionalID(idSize)
	if err != nil {
		return Class{}, err
	}
	// Two reserved ids follow in the JDK heap dumper's layout; both are
	// discarded.
	if _, err := cur.readID(idSize); err != nil {
		return Class{}, err
	}
	if _, err := cur.readID(idSize); err != nil {
		return Class{}, err
	}
	instanceSizeBytes, err := cur.readU32()
	if err != nil {
		return Class{}, err
	}
	constantPoolLen, err := cur.readU16()
	if err != nil {
		return Class{}, err
	}
	if constantPoolLen != 0 {
		return Class{}, cur.malformed("non-zero constant pool length in Class sub-record")
	}

	numStaticFields, err := cur.readU16()
	if err != nil {
		return Class{}, err
	}

	staticFieldsStart := cur.pos
	for i := uint16(0); i < numStaticFields; i++ {
		if _, err := parseStaticFieldEntry(cur, idSize); err != nil {
			return Class{}, err
		}
	}
	staticFieldsBytes := cur.buf[staticFieldsStart:cur.pos]

	numInstanceFields, err := cur.readU16()
	if err != nil {
		return Class{}, err
	}
	instanceFieldsByteLen := int(numInstanceFields) * (idSize.Bytes() + 1)
	instanceFieldsBytes, err := cur.take(instanceFieldsByteLen)
	if err != nil {
		return Class{}, err
	}

	return Class{
		ObjID:                 objID,
		StackTraceSerial:      Serial(stackTraceSerial),
		SuperClassObjID:       superClassObjID,
		ClassLoaderObjID:      classLoaderObjID,
		SignersObjID:          signersObjID,
		ProtectionDomainObjID: protectionDomainObjID,
		InstanceSizeBytes:     instanceSizeBytes,
		idSize:                idSize,
		numStaticFields:       numStaticFields,
		staticFieldsBytes:     staticFieldsBytes,
		numInstanceFields:     numInstanceFields,
		instanceFieldsBytes:   instanceFieldsBytes,
	}, nil
}

// StaticFields returns a lazy iterator over this class's static field
// table.
func (c Class) StaticFields() *ParsingIterator[StaticFieldEntry] {
	return newParsingIterator[StaticFieldEntry](c.staticFieldsBytes, 0, c.idSize, uint32(c.numStaticFields), func(cur *cursor, idSize IdSize) (StaticFieldEntry, error) {
		return parseStaticFieldEntry(cur, idSize)
	})
}

// InstanceFieldDescriptors returns a lazy iterator over the class's own
// (non-inherited) instance field descriptors, in declaration order.
func (c Class) InstanceFieldDescriptors() *ParsingIterator[FieldDescriptor] {
	return newParsingIterator[FieldDescriptor](c.instanceFieldsBytes, 0, c.idSize, uint32(c.numInstanceFields), func(cur *cursor, idSize IdSize) (FieldDescriptor, error) {
		return parseFieldDescriptor(cur, idSize)
	})
}

// NumInstanceFields returns the class's own instance field count, not
// counting inherited fields.
func (c Class) NumInstanceFields() int { return int(c.numInstanceFields) }
