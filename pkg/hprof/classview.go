package hprof

import (
	"sort"

	"github.com/hprofgraph/hprofviz/internal/apperrors"
	"github.com/hprofgraph/hprofviz/internal/collections"
)

// ClassView is a denormalized per-class summary, joined from a Class
// sub-record (structure), a LoadClass record (name id, matched by class
// object id), and a Utf8 record (the actual name bytes, matched by name
// id). None of those three records alone carries a displayable class name.
type ClassView struct {
	ObjID             Id
	Name              string
	SuperClassObjID   OptionalID
	InstanceSizeBytes uint32
	OwnFields         []FieldDescriptor

	raw Class
}

// StaticFields returns a lazy iterator over this class's own static
// fields.
func (v ClassView) StaticFields() *ParsingIterator[StaticFieldEntry] {
	return v.raw.StaticFields()
}

// ClassTable is the whole-file join of every Class, LoadClass, and Utf8
// record, keyed by class object id. Building it requires a full first pass
// over the record stream (§2 control flow: "first pass through records
// assembling class/UTF-8/LoadClass tables"), so it is assembled once and
// shared across the index and graph-analysis passes.
type ClassTable struct {
	byObjID map[Id]*ClassView
	names   map[Id]string
}

// ClassTableBuilder accumulates the three record kinds a ClassTable joins,
// then builds the table once all have been observed.
type ClassTableBuilder struct {
	classes      []Class
	classNameIDs map[Id]Id // class obj id -> class name id, from LoadClass
	names        map[Id]string

	// seenSerials tracks which class-serial numbers have already been
	// claimed by a LoadClass record. Serials are assigned sequentially
	// starting at 1, a small dense domain, unlike the sparse pointer-sized
	// object ids the rest of the table is keyed by - exactly the shape a
	// bitset is for.
	seenSerials *collections.Bitset
}

// NewClassTableBuilder returns an empty builder.
func NewClassTableBuilder() *ClassTableBuilder {
	return &ClassTableBuilder{
		classNameIDs: make(map[Id]Id),
		names:        make(map[Id]string),
		seenSerials:  collections.NewBitset(1024),
	}
}

// AddClass records a Class sub-record observed during the first pass.
func (b *ClassTableBuilder) AddClass(c Class) {
	b.classes = append(b.classes, c)
}

// AddLoadClass records a LoadClass record observed during the first pass.
// It rejects a class-serial number reused across two LoadClass records:
// per the format, each loaded class gets a distinct serial, so a repeat
// means the input is corrupt rather than merely carrying a duplicate.
func (b *ClassTableBuilder) AddLoadClass(lc LoadClassRecord) error {
	serial := int(lc.ClassSerial)
	if b.seenSerials.Test(serial) {
		return apperrors.Malformed("duplicate class-serial number in LoadClass record").WithID(uint64(lc.ClassSerial))
	}
	b.seenSerials.Set(serial)
	b.classNameIDs[lc.ClassObjectID] = lc.ClassNameID
	return nil
}

// AddUtf8 records a Utf8 record observed during the first pass. Only
// entries actually referenced as a class name end up used; the rest are
// simply never looked up.
func (b *ClassTableBuilder) AddUtf8(u Utf8Record) {
	b.names[u.NameID] = u.Text()
}

// Build joins the accumulated records into a ClassTable. A class whose
// name cannot be resolved (missing LoadClass or missing Utf8 record) gets
// a placeholder display name rather than failing the build: the only
// fatal join is the Class sub-record itself, enforced separately by
// ExpandedDescriptors.
func (b *ClassTableBuilder) Build() (*ClassTable, error) {
	table := &ClassTable{byObjID: make(map[Id]*ClassView, len(b.classes)), names: b.names}
	for _, c := range b.classes {
		name := "(unknown class)"
		if nameID, ok := b.classNameIDs[c.ObjID]; ok {
			if resolved, ok := b.names[nameID]; ok {
				name = resolved
			} else {
				name = "(utf8 not found)"
			}
		}
		descriptors, err := Collect(c.InstanceFieldDescriptors())
		if err != nil {
			return nil, err
		}
		table.byObjID[c.ObjID] = &ClassView{
			ObjID:             c.ObjID,
			Name:              name,
			SuperClassObjID:   c.SuperClassObjID,
			InstanceSizeBytes: c.InstanceSizeBytes,
			OwnFields:         descriptors,
			raw:               c,
		}
	}
	return table, nil
}

// Lookup returns the class view for a class object id, or ok=false if the
// id is not a known class object.
func (t *ClassTable) Lookup(objID Id) (ClassView, bool) {
	v, ok := t.byObjID[objID]
	if !ok {
		return ClassView{}, false
	}
	return *v, true
}

// Len returns the number of distinct classes in the table.
func (t *ClassTable) Len() int { return len(t.byObjID) }

// Each calls fn once per class in the table, ordered by object id so
// repeated calls over the same table produce output in the same order.
func (t *ClassTable) Each(fn func(ClassView)) {
	ids := make([]Id, 0, len(t.byObjID))
	for id := range t.byObjID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fn(*t.byObjID[id])
	}
}

// FieldName resolves a field or static-field's name id against the Utf8
// table observed during the first pass. A name id with no matching Utf8
// record (possible for malformed or truncated input outside the class
// table's own join) renders as a placeholder rather than failing the
// whole graph-rendering pass over one cosmetic label.
func (t *ClassTable) FieldName(nameID Id) string {
	if name, ok := t.names[nameID]; ok {
		return name
	}
	return "(utf8 not found)"
}

// ExpandedDescriptors returns the full field-descriptor chain for a class:
// the class's own instance field descriptors, followed by its
// superclass's, then its superclass's superclass's, and so on, terminating
// at an absent super-class obj-id. This is the order Instance.DecodeFields
// expects, per the invariant that an instance's field bytes are laid out
// "class, followed by super, super's super...".
//
// A super-class cycle is fatal per the invariant that cycles make the
// input corrupt; ExpandedDescriptors detects one by remembering every
// class id visited on the walk and failing on the first repeat.
func (t *ClassTable) ExpandedDescriptors(objID Id) ([]FieldDescriptor, error) {
	var out []FieldDescriptor
	seen := make(map[Id]bool)
	cur := objID
	for {
		view, ok := t.Lookup(cur)
		if !ok {
			return nil, apperrors.Malformed("instance class obj-id does not resolve to a class sub-record").WithID(uint64(cur))
		}
		if seen[cur] {
			return nil, apperrors.Malformed("super-class chain contains a cycle").WithID(uint64(cur))
		}
		seen[cur] = true

		out = append(out, view.OwnFields...)

		superID, present := view.SuperClassObjID.Get()
		if !present {
			return out, nil
		}
		cur = superID
	}
}
