package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hprofgraph/hprofviz/internal/apperrors"
	"github.com/hprofgraph/hprofviz/internal/logging"
	"github.com/hprofgraph/hprofviz/internal/parallel"
	"github.com/hprofgraph/hprofviz/pkg/hprof"
	"github.com/hprofgraph/hprofviz/pkg/index"
)

// Config controls graph construction.
type Config struct {
	Workers      parallel.Config
	MinEdgeCount uint64 // edges with a lower count are discarded; default 1
	Logger       logging.Logger
}

// DefaultConfig returns the default graph-analysis configuration.
func DefaultConfig() Config {
	return Config{Workers: parallel.DefaultConfig(), MinEdgeCount: 1}
}

// Analyze runs the two-pass reference-count graph algorithm over buf (a
// whole hprof file) using store for the scalable obj-id resolution the
// index-backed path relies on, and writes the resulting node and edge
// directives to w.
//
// First pass (sequential): assemble the Utf8/LoadClass/Class join (§4.5) so
// every class obj-id resolves to a display name and field descriptors.
//
// Second pass (parallel over top-level records): for each heap-dump
// envelope, build a local edge-count map, then fold it into the shared
// total under a mutex - the "build local, then reduce by summing" step the
// algorithm calls for, done at per-record rather than per-worker
// granularity, which keeps lock contention to once per envelope instead of
// once per sub-record.
func Analyze(ctx context.Context, buf []byte, store *index.Store, cfg Config, w DirectiveWriter) error {
	if cfg.MinEdgeCount == 0 {
		cfg.MinEdgeCount = 1
	}

	header, recordStream, err := hprof.ParseHeader(buf)
	if err != nil {
		return err
	}
	headerLen := int64(len(buf) - len(recordStream))

	classTable, err := buildClassTable(recordStream, header.IDSize, headerLen)
	if err != nil {
		return err
	}

	resolver := &destResolver{store: store, classes: classTable, log: cfg.Logger}

	edges := make(map[GraphEdge]uint64)
	var mu sync.Mutex

	it := hprof.NewRecordIterator(recordStream, header.IDSize, headerLen)
	bridge := parallel.NewRecordBridge(cfg.Workers, func() (hprof.Record, bool, error) {
		return it.Next()
	})

	err = bridge.Run(ctx, func(_ context.Context, r hprof.Record) error {
		if !r.IsHeapDumpEnvelope() {
			return nil
		}
		local, err := accumulateRecordEdges(r, header.IDSize, classTable, resolver)
		if err != nil {
			return err
		}
		mu.Lock()
		for e, c := range local {
			edges[e] += c
		}
		mu.Unlock()
		return nil
	})
	if err != nil {
		return err
	}

	return emit(classTable, edges, cfg.MinEdgeCount, w)
}

func buildClassTable(recordStream []byte, idSize hprof.IdSize, base int64) (*hprof.ClassTable, error) {
	b := hprof.NewClassTableBuilder()
	it := hprof.NewRecordIterator(recordStream, idSize, base)
	for {
		r, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		switch r.Tag {
		case hprof.TagUtf8:
			u, _, err := r.AsUtf8()
			if err != nil {
				return nil, err
			}
			b.AddUtf8(u)
		case hprof.TagLoadClass:
			lc, _, err := r.AsLoadClass()
			if err != nil {
				return nil, err
			}
			if err := b.AddLoadClass(lc); err != nil {
				return nil, err
			}
		default:
			if r.IsHeapDumpEnvelope() {
				subIt := r.SubRecords()
				for {
					sr, ok, err := subIt.Next()
					if err != nil {
						return nil, err
					}
					if !ok {
						break
					}
					if sr.Tag == hprof.HeapTagClass {
						b.AddClass(sr.Class)
					}
				}
			}
		}
	}
	return b.Build()
}

// destResolver implements the four-step reference-resolution rule: the
// index answers steps 1 and 2 (instance-of-class, primitive-array-type);
// step 3 falls back to the in-memory class table to recognize a reference
// that lands directly on a class object; step 4 is "no match, skip".
type destResolver struct {
	store   *index.Store
	classes *hprof.ClassTable
	log     logging.Logger
}

func (r *destResolver) resolve(obj hprof.Id) (HeapGraphDest, bool, error) {
	classID, ok, err := r.store.GetClassID(uint64(obj))
	if err != nil {
		return HeapGraphDest{}, false, err
	}
	if ok {
		return HeapGraphDest{Kind: DestInstanceOfClass, ClassObjID: hprof.Id(classID)}, true, nil
	}

	primType, ok, err := r.store.GetPrimArrayType(uint64(obj))
	if err != nil {
		return HeapGraphDest{}, false, err
	}
	if ok {
		return HeapGraphDest{Kind: DestPrimitiveArray, PrimType: hprof.PrimitiveArrayType(primType)}, true, nil
	}

	if _, ok := r.classes.Lookup(obj); ok {
		return HeapGraphDest{Kind: DestClassObj, ClassObjID: obj}, true, nil
	}

	if r.log != nil {
		r.log.Warn("no reference-graph destination match for object 0x%x", uint64(obj))
	}
	return HeapGraphDest{}, false, nil
}

func accumulateRecordEdges(r hprof.Record, idSize hprof.IdSize, classes *hprof.ClassTable, resolver *destResolver) (map[GraphEdge]uint64, error) {
	local := make(map[GraphEdge]uint64)
	bump := func(src HeapGraphSource, dest HeapGraphDest) {
		local[GraphEdge{Source: src, Dest: dest}]++
	}

	subIt := r.SubRecords()
	for {
		sr, ok, err := subIt.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		switch sr.Tag {
		case hprof.HeapTagGcRootUnknown:
			if err := resolveGcRoot(resolver, SourceGcRootUnknown, sr.GcRootUnknown.ObjID, bump); err != nil {
				return nil, err
			}
		case hprof.HeapTagGcRootThreadObj:
			if id, present := sr.GcRootThreadObj.ThreadObjID.Get(); present {
				if err := resolveGcRoot(resolver, SourceGcRootThreadObj, id, bump); err != nil {
					return nil, err
				}
			}
		case hprof.HeapTagGcRootJniGlobal:
			if err := resolveGcRoot(resolver, SourceGcRootJniGlobal, sr.GcRootJniGlobal.ObjID, bump); err != nil {
				return nil, err
			}
		case hprof.HeapTagGcRootJniLocalRef:
			if err := resolveGcRoot(resolver, SourceGcRootJniLocalRef, sr.GcRootJniLocalRef.ObjID, bump); err != nil {
				return nil, err
			}
		case hprof.HeapTagGcRootJavaStackFrame:
			if err := resolveGcRoot(resolver, SourceGcRootJavaStackFrame, sr.GcRootJavaStackFrame.ObjID, bump); err != nil {
				return nil, err
			}
		case hprof.HeapTagGcRootNativeStack:
			if err := resolveGcRoot(resolver, SourceGcRootNativeStack, sr.GcRootNativeStack.ObjID, bump); err != nil {
				return nil, err
			}
		case hprof.HeapTagGcRootSystemClass:
			if err := resolveGcRoot(resolver, SourceGcRootSystemClass, sr.GcRootSystemClass.ObjID, bump); err != nil {
				return nil, err
			}
		case hprof.HeapTagGcRootThreadBlock:
			if err := resolveGcRoot(resolver, SourceGcRootThreadBlock, sr.GcRootThreadBlock.ObjID, bump); err != nil {
				return nil, err
			}
		case hprof.HeapTagGcRootBusyMonitor:
			if err := resolveGcRoot(resolver, SourceGcRootBusyMonitor, sr.GcRootBusyMonitor.ObjID, bump); err != nil {
				return nil, err
			}
		case hprof.HeapTagPrimitiveArray:
			// primitive arrays never hold outgoing references

		case hprof.HeapTagClass:
			c := sr.Class
			fields, err := hprof.Collect(c.StaticFields())
			if err != nil {
				return nil, err
			}
			for offset, sf := range fields {
				if sf.Value.Type != hprof.FieldTypeObjectID {
					continue
				}
				ref, present := sf.Value.ObjectRef.Get()
				if !present {
					continue
				}
				dest, ok, err := resolver.resolve(ref)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				bump(HeapGraphSource{Kind: SourceStaticField, ClassObjID: c.ObjID, FieldOffset: offset}, dest)
			}

		case hprof.HeapTagInstance:
			in := sr.Instance
			descriptors, err := classes.ExpandedDescriptors(in.ClassObjID)
			if err != nil {
				return nil, err
			}
			values, err := in.DecodeFields(idSize, descriptors)
			if err != nil {
				return nil, err
			}
			for offset, v := range values {
				if v.Type != hprof.FieldTypeObjectID {
					continue
				}
				ref, present := v.ObjectRef.Get()
				if !present {
					continue
				}
				dest, ok, err := resolver.resolve(ref)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				bump(HeapGraphSource{Kind: SourceInstanceField, ClassObjID: in.ClassObjID, FieldOffset: offset}, dest)
			}

		case hprof.HeapTagObjectArray:
			oa := sr.ObjectArray
			elems, err := hprof.Collect(oa.Elements())
			if err != nil {
				return nil, err
			}
			for _, el := range elems {
				ref, present := el.Get()
				if !present {
					continue
				}
				dest, ok, err := resolver.resolve(ref)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				bump(HeapGraphSource{Kind: SourceObjectArray, ClassObjID: oa.ArrayClassObjID}, dest)
			}
		}
	}

	return local, nil
}

func resolveGcRoot(resolver *destResolver, kind SourceKind, obj hprof.Id, bump func(HeapGraphSource, HeapGraphDest)) error {
	dest, ok, err := resolver.resolve(obj)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	bump(HeapGraphSource{Kind: kind}, dest)
	return nil
}

// emit applies the minimum-edge-count filter and writes every node and edge
// directive the surviving edge set implies, in a deterministic order so
// repeated runs over the same input produce byte-identical output.
func emit(classes *hprof.ClassTable, edges map[GraphEdge]uint64, minEdgeCount uint64, w DirectiveWriter) error {
	type kept struct {
		edge  GraphEdge
		count uint64
	}
	var survivors []kept
	for e, c := range edges {
		if c >= minEdgeCount {
			survivors = append(survivors, kept{edge: e, count: c})
		}
	}

	classNodeIDs := make(map[hprof.Id]bool)
	gcRootKindsSeen := make(map[SourceKind]bool)
	primTypesSeen := make(map[hprof.PrimitiveArrayType]bool)

	for _, k := range survivors {
		switch k.edge.Source.Kind {
		case SourceStaticField, SourceInstanceField, SourceObjectArray:
			classNodeIDs[k.edge.Source.ClassObjID] = true
		default:
			gcRootKindsSeen[k.edge.Source.Kind] = true
		}
		switch k.edge.Dest.Kind {
		case DestInstanceOfClass, DestClassObj:
			classNodeIDs[k.edge.Dest.ClassObjID] = true
		case DestPrimitiveArray:
			primTypesSeen[k.edge.Dest.PrimType] = true
		}
	}

	if err := w.Begin(); err != nil {
		return err
	}

	classIDs := make([]hprof.Id, 0, len(classNodeIDs))
	for id := range classNodeIDs {
		classIDs = append(classIDs, id)
	}
	sort.Slice(classIDs, func(i, j int) bool { return classIDs[i] < classIDs[j] })
	for _, id := range classIDs {
		node, err := buildClassNode(classes, id)
		if err != nil {
			return err
		}
		if err := w.WriteClassNode(node); err != nil {
			return err
		}
	}

	kinds := make([]SourceKind, 0, len(gcRootKindsSeen))
	for k := range gcRootKindsSeen {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, k := range kinds {
		if err := w.WriteGcRootNode(GcRootNode{Kind: k}); err != nil {
			return err
		}
	}

	prims := make([]hprof.PrimitiveArrayType, 0, len(primTypesSeen))
	for t := range primTypesSeen {
		prims = append(prims, t)
	}
	sort.Slice(prims, func(i, j int) bool { return prims[i] < prims[j] })
	for _, t := range prims {
		if err := w.WritePrimArrayNode(PrimArrayNode{Type: t}); err != nil {
			return err
		}
	}

	sort.Slice(survivors, func(i, j int) bool {
		a, b := survivors[i].edge, survivors[j].edge
		an, bn := a.Source.NodeName(), b.Source.NodeName()
		if an != bn {
			return an < bn
		}
		return a.Dest.NodeName() < b.Dest.NodeName()
	})
	for _, k := range survivors {
		if err := w.WriteEdge(Edge{
			Source:     k.edge.Source,
			Dest:       k.edge.Dest,
			Count:      k.count,
			SourcePort: k.edge.Source.Port(),
		}); err != nil {
			return err
		}
	}

	return w.End()
}

func buildClassNode(classes *hprof.ClassTable, id hprof.Id) (ClassNode, error) {
	view, ok := classes.Lookup(id)
	if !ok {
		return ClassNode{}, apperrors.Malformed("reference-count graph references an unresolved class").WithID(uint64(id))
	}

	staticFields, err := hprof.Collect(view.StaticFields())
	if err != nil {
		return ClassNode{}, err
	}
	staticDirectives := make([]StaticFieldDirective, len(staticFields))
	for i, sf := range staticFields {
		staticDirectives[i] = StaticFieldDirective{
			Name:  classes.FieldName(sf.NameID),
			Value: formatFieldValue(sf.Value),
			Port:  staticFieldPort(i),
		}
	}

	instanceDirectives := make([]InstanceFieldDirective, len(view.OwnFields))
	for i, fd := range view.OwnFields {
		instanceDirectives[i] = InstanceFieldDirective{
			Name:     classes.FieldName(fd.NameID),
			TypeName: fd.Type.JavaTypeName(),
			Port:     instanceFieldPort(i),
		}
	}

	return ClassNode{
		ClassObjID:        view.ObjID,
		Name:              view.Name,
		SuperClassObjID:   view.SuperClassObjID,
		InstanceSizeBytes: view.InstanceSizeBytes,
		StaticFields:      staticDirectives,
		InstanceFields:    instanceDirectives,
		IsArrayType:       len(view.Name) > 0 && view.Name[0] == '[',
	}, nil
}

func formatFieldValue(v hprof.FieldValue) string {
	switch v.Type {
	case hprof.FieldTypeObjectID:
		if id, ok := v.ObjectRef.Get(); ok {
			return fmt.Sprintf("0x%x", uint64(id))
		}
		return "null"
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
		return "<unknown>"
	}
}
