package hprof

// ObjectArray is a heap-dump ObjectArray sub-record: an array of object
// references, stored as a borrowed span of ids (each possibly null).
type ObjectArray struct {
	ObjID            Id
	StackTraceSerial Serial
	ArrayClassObjID  Id

	idSize      IdSize
	numElements uint32
	contents    []byte
}

func parseObjectArray(cur *cursor, idSize IdSize) (ObjectArray, error) {
	objID, err := cur.readID(idSize)
	if err != nil {
		return ObjectArray{}, err
	}
	stackTraceSerial, err := cur.readU32()
	if err != nil {
		return ObjectArray{}, err
	}
	numElements, err := cur.readU32()
	if err != nil {
		return ObjectArray{}, err
	}
	arrayClassObjID, err := cur.readID(idSize)
	if err != nil {
		return ObjectArray{}, err
	}
	contentsLen := int(numElements) * idSize.Bytes()
	contents, err := cur.take(contentsLen)
	if err != nil {
		return ObjectArray{}, err
	}
	return ObjectArray{
		ObjID:            objID,
		StackTraceSerial: Serial(stackTraceSerial),
		ArrayClassObjID:  arrayClassObjID,
		idSize:           idSize,
		numElements:      numElements,
		contents:         contents,
	}, nil
}

// NumElements returns the array's element count.
func (a ObjectArray) NumElements() int { return int(a.numElements) }

// Elements returns a lazy iterator over the array's (possibly null)
// element ids.
func (a ObjectArray) Elements() *ParsingIterator[OptionalID] {
	return newParsingIterator[OptionalID](a.contents, 0, a.idSize, a.numElements, func(cur *cursor, idSize IdSize) (OptionalID, error) {
		return cur.readOptionalID(idSize)
	})
}

// PrimitiveArrayType is the element-type tag of a PrimitiveArray. Values
// match FieldType's numeric tags for the corresponding primitive types by
// construction (both derive from the JVM's basic-type tag set), excluding
// FieldTypeObjectID which primitive arrays can never carry.
type PrimitiveArrayType uint8

const (
	PrimitiveArrayBoolean PrimitiveArrayType = PrimitiveArrayType(FieldTypeBoolean)
	PrimitiveArrayChar    PrimitiveArrayType = PrimitiveArrayType(FieldTypeChar)
	PrimitiveArrayFloat   PrimitiveArrayType = PrimitiveArrayType(FieldTypeFloat)
	PrimitiveArrayDouble  PrimitiveArrayType = PrimitiveArrayType(FieldTypeDouble)
	PrimitiveArrayByte    PrimitiveArrayType = PrimitiveArrayType(FieldTypeByte)
	PrimitiveArrayShort   PrimitiveArrayType = PrimitiveArrayType(FieldTypeShort)
	PrimitiveArrayInt     PrimitiveArrayType = PrimitiveArrayType(FieldTypeInt)
	PrimitiveArrayLong    PrimitiveArrayType = PrimitiveArrayType(FieldTypeLong)
)

// JavaTypeName returns the Java source-level spelling of the element type.
func (t PrimitiveArrayType) JavaTypeName() string {
	return FieldType(t).JavaTypeName()
}

// byteWidth returns the on-disk width of one element of this type.
func (t PrimitiveArrayType) byteWidth() int {
	switch t {
	case PrimitiveArrayBoolean, PrimitiveArrayByte:
		return 1
	case PrimitiveArrayChar, PrimitiveArrayShort:
		return 2
	case PrimitiveArrayFloat, PrimitiveArrayInt:
		return 4
	case PrimitiveArrayDouble, PrimitiveArrayLong:
		return 8
	default:
		return 0
	}
}

func parsePrimitiveArrayType(cur *cursor) (PrimitiveArrayType, error) {
	b, err := cur.readByte()
	if err != nil {
		return 0, err
	}
	switch PrimitiveArrayType(b) {
	case PrimitiveArrayBoolean, PrimitiveArrayChar, PrimitiveArrayFloat, PrimitiveArrayDouble,
		PrimitiveArrayByte, PrimitiveArrayShort, PrimitiveArrayInt, PrimitiveArrayLong:
		return PrimitiveArrayType(b), nil
	default:
		return 0, cur.malformed("unexpected primitive array element type tag")
	}
}

// PrimitiveArray is a heap-dump PrimitiveArray sub-record: a homogeneous
// array of a single primitive type, stored as a borrowed byte span.
type PrimitiveArray struct {
	ObjID            Id
	StackTraceSerial Serial
	ElementType      PrimitiveArrayType

	numElements uint32
	elements    []byte
}

func parsePrimitiveArray(cur *cursor, idSize IdSize) (PrimitiveArray, error) {
	objID, err := cur.readID(idSize)
	if err != nil {
		return PrimitiveArray{}, err
	}
	stackTraceSerial, err := cur.readU32()
	if err != nil {
		return PrimitiveArray{}, err
	}
	numElements, err := cur.readU32()
	if err != nil {
		return PrimitiveArray{}, err
	}
	elemType, err := parsePrimitiveArrayType(cur)
	if err != nil {
		return PrimitiveArray{}, err
	}
	elementsLen := int(numElements) * elemType.byteWidth()
	elements, err := cur.take(elementsLen)
	if err != nil {
		return PrimitiveArray{}, err
	}
	return PrimitiveArray{
		ObjID:            objID,
		StackTraceSerial: Serial(stackTraceSerial),
		ElementType:      elemType,
		numElements:      numElements,
		elements:         elements,
	}, nil
}

// NumElements returns the array's element count.
func (a PrimitiveArray) NumElements() int { return int(a.numElements) }

func (a PrimitiveArray) iter() *cursor { return newCursor(a.elements) }

// Booleans decodes the array as booleans. Callers must check ElementType
// first; decoding against the wrong type yields garbage, not an error,
// since the element stream alone carries no type tag.
func (a PrimitiveArray) Booleans() ([]bool, error) {
	cur := a.iter()
	out := make([]bool, 0, a.numElements)
	for i := uint32(0); i < a.numElements; i++ {
		v, err := cur.readBool()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Chars decodes the array as chars (u16 code units).
func (a PrimitiveArray) Chars() ([]uint16, error) {
	cur := a.iter()
	out := make([]uint16, 0, a.numElements)
	for i := uint32(0); i < a.numElements; i++ {
		v, err := cur.readU16()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Floats decodes the array as float32s.
func (a PrimitiveArray) Floats() ([]float32, error) {
	cur := a.iter()
	out := make([]float32, 0, a.numElements)
	for i := uint32(0); i < a.numElements; i++ {
		v, err := cur.readF32()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Doubles decodes the array as float64s.
func (a PrimitiveArray) Doubles() ([]float64, error) {
	cur := a.iter()
	out := make([]float64, 0, a.numElements)
	for i := uint32(0); i < a.numElements; i++ {
		v, err := cur.readF64()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Bytes decodes the array as int8s.
func (a PrimitiveArray) Bytes() ([]int8, error) {
	cur := a.iter()
	out := make([]int8, 0, a.numElements)
	for i := uint32(0); i < a.numElements; i++ {
		v, err := cur.readI8()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Shorts decodes the array as int16s.
func (a PrimitiveArray) Shorts() ([]int16, error) {
	cur := a.iter()
	out := make([]int16, 0, a.numElements)
	for i := uint32(0); i < a.numElements; i++ {
		v, err := cur.readI16()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Ints decodes the array as int32s.
func (a PrimitiveArray) Ints() ([]int32, error) {
	cur := a.iter()
	out := make([]int32, 0, a.numElements)
	for i := uint32(0); i < a.numElements; i++ {
		v, err := cur.readI32()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Longs decodes the array as int64s.
func (a PrimitiveArray) Longs() ([]int64, error) {
	cur := a.iter()
	out := make([]int64, 0, a.numElements)
	for i := uint32(0); i < a.numElements; i++ {
		v, err := cur.readI64()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
