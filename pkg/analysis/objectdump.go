package analysis

import (
	"fmt"
	"io"

	"github.com/hprofgraph/hprofviz/internal/apperrors"
	"github.com/hprofgraph/hprofviz/pkg/hprof"
)

// ObjectDump prints a human-readable rendering of one object's fields to
// w: for an Instance, its class name and each decoded field (object
// references resolved to the same InstanceOfClass/PrimitiveArray/ClassObj
// destination kinds §4.11 uses, but against in-memory maps instead of the
// on-disk index); for an ObjectArray, its element references; for a
// PrimitiveArray, its typed elements. This walks the heap dump twice: a
// first pass builds the obj_id->class_obj_id and obj_id->primitive_type
// maps the reference-resolution rule needs, and a second pass locates and
// prints objID's own sub-record. For large dumps this is expected to be
// slow and memory-hungry compared to the index-backed graph analyzer; it
// exists for one-off inspection of a single object, not bulk analysis.
func ObjectDump(buf []byte, objID hprof.Id, w io.Writer) error {
	header, recordStream, err := hprof.ParseHeader(buf)
	if err != nil {
		return err
	}
	headerLen := int64(len(buf) - len(recordStream))

	b := hprof.NewClassTableBuilder()
	objClass := make(map[hprof.Id]hprof.Id)
	primType := make(map[hprof.Id]hprof.PrimitiveArrayType)

	firstPass := hprof.NewRecordIterator(recordStream, header.IDSize, headerLen)
	for {
		r, ok, err := firstPass.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		switch r.Tag {
		case hprof.TagUtf8:
			u, _, err := r.AsUtf8()
			if err != nil {
				return err
			}
			b.AddUtf8(u)
		case hprof.TagLoadClass:
			lc, _, err := r.AsLoadClass()
			if err != nil {
				return err
			}
			if err := b.AddLoadClass(lc); err != nil {
				return err
			}
		default:
			if !r.IsHeapDumpEnvelope() {
				continue
			}
			subIt := r.SubRecords()
			for {
				sr, ok, err := subIt.Next()
				if err != nil {
					return err
				}
				if !ok {
					break
				}
				switch sr.Tag {
				case hprof.HeapTagClass:
					b.AddClass(sr.Class)
				case hprof.HeapTagInstance:
					objClass[sr.Instance.ObjID] = sr.Instance.ClassObjID
				case hprof.HeapTagObjectArray:
					objClass[sr.ObjectArray.ObjID] = sr.ObjectArray.ArrayClassObjID
				case hprof.HeapTagPrimitiveArray:
					primType[sr.PrimitiveArray.ObjID] = sr.PrimitiveArray.ElementType
				}
			}
		}
	}

	classTable, err := b.Build()
	if err != nil {
		return err
	}

	resolve := func(ref hprof.Id) string {
		if classID, ok := objClass[ref]; ok {
			if view, ok := classTable.Lookup(classID); ok {
				return fmt.Sprintf("instance of %s (0x%x)", view.Name, uint64(ref))
			}
			return fmt.Sprintf("instance of class 0x%x (0x%x)", uint64(classID), uint64(ref))
		}
		if t, ok := primType[ref]; ok {
			return fmt.Sprintf("%s[] (0x%x)", t.JavaTypeName(), uint64(ref))
		}
		if view, ok := classTable.Lookup(ref); ok {
			return fmt.Sprintf("class object %s (0x%x)", view.Name, uint64(ref))
		}
		return fmt.Sprintf("0x%x (no match)", uint64(ref))
	}

	secondPass := hprof.NewRecordIterator(recordStream, header.IDSize, headerLen)
	for {
		r, ok, err := secondPass.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if !r.IsHeapDumpEnvelope() {
			continue
		}
		subIt := r.SubRecords()
		for {
			sr, ok, err := subIt.Next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			switch sr.Tag {
			case hprof.HeapTagInstance:
				if sr.Instance.ObjID != objID {
					continue
				}
				return dumpInstance(w, classTable, sr.Instance, header.IDSize, resolve)
			case hprof.HeapTagObjectArray:
				if sr.ObjectArray.ObjID != objID {
					continue
				}
				return dumpObjectArray(w, sr.ObjectArray, resolve)
			case hprof.HeapTagPrimitiveArray:
				if sr.PrimitiveArray.ObjID != objID {
					continue
				}
				return dumpPrimitiveArray(w, sr.PrimitiveArray)
			}
		}
	}

	return apperrors.Malformed("object id not found in heap dump").WithID(uint64(objID))
}

func dumpInstance(w io.Writer, classTable *hprof.ClassTable, in hprof.Instance, idSize hprof.IdSize, resolve func(hprof.Id) string) error {
	view, ok := classTable.Lookup(in.ClassObjID)
	name := "(unknown class)"
	if ok {
		name = view.Name
	}
	if _, err := fmt.Fprintf(w, "instance 0x%x of %s\n", uint64(in.ObjID), name); err != nil {
		return err
	}

	descriptors, err := classTable.ExpandedDescriptors(in.ClassObjID)
	if err != nil {
		return err
	}
	values, err := in.DecodeFields(idSize, descriptors)
	if err != nil {
		return err
	}
	for i, v := range values {
		fieldName := classTable.FieldName(descriptors[i].NameID)
		if v.Type == hprof.FieldTypeObjectID {
			if ref, present := v.ObjectRef.Get(); present {
				if _, err := fmt.Fprintf(w, "  %s = %s\n", fieldName, resolve(ref)); err != nil {
					return err
				}
				continue
			}
			if _, err := fmt.Fprintf(w, "  %s = null\n", fieldName); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "  %s = %s\n", fieldName, formatFieldValue(v)); err != nil {
			return err
		}
	}
	return nil
}

func dumpObjectArray(w io.Writer, oa hprof.ObjectArray, resolve func(hprof.Id) string) error {
	if _, err := fmt.Fprintf(w, "object array 0x%x (%d elements)\n", uint64(oa.ObjID), oa.NumElements()); err != nil {
		return err
	}
	elems, err := hprof.Collect(oa.Elements())
	if err != nil {
		return err
	}
	for i, el := range elems {
		if ref, present := el.Get(); present {
			if _, err := fmt.Fprintf(w, "  [%d] = %s\n", i, resolve(ref)); err != nil {
				return err
			}
		} else if _, err := fmt.Fprintf(w, "  [%d] = null\n", i); err != nil {
			return err
		}
	}
	return nil
}

func dumpPrimitiveArray(w io.Writer, pa hprof.PrimitiveArray) error {
	if _, err := fmt.Fprintf(w, "%s[] 0x%x (%d elements)\n", pa.ElementType.JavaTypeName(), uint64(pa.ObjID), pa.NumElements()); err != nil {
		return err
	}

	switch pa.ElementType {
	case hprof.PrimitiveArrayBoolean:
		v, err := pa.Booleans()
		if err != nil {
			return err
		}
		return printSlice(w, v)
	case hprof.PrimitiveArrayChar:
		v, err := pa.Chars()
		if err != nil {
			return err
		}
		return printSlice(w, v)
	case hprof.PrimitiveArrayFloat:
		v, err := pa.Floats()
		if err != nil {
			return err
		}
		return printSlice(w, v)
	case hprof.PrimitiveArrayDouble:
		v, err := pa.Doubles()
		if err != nil {
			return err
		}
		return printSlice(w, v)
	case hprof.PrimitiveArrayByte:
		v, err := pa.Bytes()
		if err != nil {
			return err
		}
		return printSlice(w, v)
	case hprof.PrimitiveArrayShort:
		v, err := pa.Shorts()
		if err != nil {
			return err
		}
		return printSlice(w, v)
	case hprof.PrimitiveArrayInt:
		v, err := pa.Ints()
		if err != nil {
			return err
		}
		return printSlice(w, v)
	case hprof.PrimitiveArrayLong:
		v, err := pa.Longs()
		if err != nil {
			return err
		}
		return printSlice(w, v)
	default:
		return apperrors.Malformed("unexpected primitive array element type")
	}
}

func printSlice[T any](w io.Writer, v []T) error {
	for i, e := range v {
		if _, err := fmt.Fprintf(w, "  [%d] = %v\n", i, e); err != nil {
			return err
		}
	}
	return nil
}

func formatFieldValue(v hprof.FieldValue) string {
	switch v.Type {
	case hprof.FieldTypeBoolean:
		return fmt.Sprintf("%t", v.Boolean)
	case hprof.FieldTypeChar:
		return fmt.Sprintf("%q", rune(v.Char))
	case hprof.FieldTypeFloat:
		return fmt.Sprintf("%v", v.Float)
	case hprof.FieldTypeDouble:
		return fmt.Sprintf("%v", v.Double)
	case hprof.FieldTypeByte:
		return fmt.Sprintf("%d", v.Byte)
	case hprof.FieldTypeShort:
		return fmt.Sprintf("%d", v.Short)
	case hprof.FieldTypeInt:
		return fmt.Sprintf("%d", v.Int)
	case hprof.FieldTypeLong:
		return fmt.Sprintf("%d", v.Long)
	default:
		return "(unknown)"
	}
}
