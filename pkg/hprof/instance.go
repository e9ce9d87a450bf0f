package hprof

// Instance is a heap-dump Instance sub-record: one object's field values, as
// a borrowed byte span to be decoded against its class's descriptor chain
// (own fields first, then each superclass's, per §4.5). Decoding is left to
// the denormalized class view rather than done here, since Instance alone
// has no way to know field types.
type Instance struct {
	ObjID            Id
	StackTraceSerial Serial
	ClassObjID       Id
	FieldBytes       []byte
}

func parseInstance(cur *cursor, idSize IdSize) (Instance, error) {
	objID, err := cur.readID(idSize)
	if err != nil {
		return Instance{}, err
	}
	stackTraceSerial, err := cur.readU32()
	if err != nil {
		return Instance{}, err
	}
	classObjID, err := cur.readID(idSize)
	if err != nil {
		return Instance{}, err
	}
	fieldsLen, err := cur.readU32()
	if err != nil {
		return Instance{}, err
	}
	fields, err := cur.take(int(fieldsLen))
	if err != nil {
		return Instance{}, err
	}
	return Instance{
		ObjID:            objID,
		StackTraceSerial: Serial(stackTraceSerial),
		ClassObjID:       classObjID,
		FieldBytes:       fields,
	}, nil
}

// DecodeFields decodes FieldBytes against an ordered list of field
// descriptors (typically the expanded descriptor chain for this instance's
// class, own fields first then each superclass's in order). It returns one
// FieldValue per descriptor, positionally matched.
func (in Instance) DecodeFields(idSize IdSize, descriptors []FieldDescriptor) ([]FieldValue, error) {
	cur := newCursor(in.FieldBytes)
	out := make([]FieldValue, 0, len(descriptors))
	for _, d := range descriptors {
		v, err := parseFieldValue(cur, idSize, d.Type)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
