package graph

import (
	"container/list"

	"github.com/hprofgraph/hprofviz/pkg/hprof"
)

// RootPathStep is one hop in a reachability path from a GC root down to a
// queried object: the object at this hop, its class's display name, and
// the field (or array) name of the reference that leads to the next hop
// (empty for the final, queried object).
type RootPathStep struct {
	ObjID     hprof.Id
	ClassName string
	FieldName string
}

// RootPath is the result of a successful reachability query: the root kind
// that anchors the chain, and the hop-by-hop path from that root down to
// the queried object (inclusive of both ends).
type RootPath struct {
	RootKind SourceKind
	Path     []RootPathStep
}

type refEdge struct {
	fromObjID hprof.Id
	fieldName string
}

// FindRootPath answers "why is this object still alive": a reverse-
// reference breadth-first search from objID back to the nearest GC root.
// It makes two sequential passes over buf - one building the class table,
// one building an in-memory reverse-adjacency map, an obj_id ->
// class_obj_id map, and the GC-root id sets - then does a plain BFS over the reverse map scoped to this one
// call - no on-disk index is consulted, matching the object-dump
// analyzer's in-memory, non-scalable posture for queries that only need
// one object's ancestry rather than the whole graph.
func FindRootPath(buf []byte, objID hprof.Id) (RootPath, bool, error) {
	header, recordStream, err := hprof.ParseHeader(buf)
	if err != nil {
		return RootPath{}, false, err
	}
	headerLen := int64(len(buf) - len(recordStream))

	classTable, err := buildClassTable(recordStream, header.IDSize, headerLen)
	if err != nil {
		return RootPath{}, false, err
	}

	reverse := make(map[hprof.Id][]refEdge)
	gcRoots := make(map[hprof.Id]SourceKind)
	objClass := make(map[hprof.Id]hprof.Id)

	addEdge := func(from, to hprof.Id, fieldName string) {
		reverse[to] = append(reverse[to], refEdge{fromObjID: from, fieldName: fieldName})
	}
	addRoot := func(kind SourceKind, id hprof.Id) {
		if _, exists := gcRoots[id]; !exists {
			gcRoots[id] = kind
		}
	}

	it := hprof.NewRecordIterator(recordStream, header.IDSize, headerLen)
	for {
		r, ok, err := it.Next()
		if err != nil {
			return RootPath{}, false, err
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
				return RootPath{}, false, err
			}
			if !ok {
				break
			}

			switch sr.Tag {
			case hprof.HeapTagGcRootUnknown:
				addRoot(SourceGcRootUnknown, sr.GcRootUnknown.ObjID)
			case hprof.HeapTagGcRootThreadObj:
				if id, present := sr.GcRootThreadObj.ThreadObjID.Get(); present {
					addRoot(SourceGcRootThreadObj, id)
				}
			case hprof.HeapTagGcRootJniGlobal:
				addRoot(SourceGcRootJniGlobal, sr.GcRootJniGlobal.ObjID)
			case hprof.HeapTagGcRootJniLocalRef:
				addRoot(SourceGcRootJniLocalRef, sr.GcRootJniLocalRef.ObjID)
			case hprof.HeapTagGcRootJavaStackFrame:
				addRoot(SourceGcRootJavaStackFrame, sr.GcRootJavaStackFrame.ObjID)
			case hprof.HeapTagGcRootNativeStack:
				addRoot(SourceGcRootNativeStack, sr.GcRootNativeStack.ObjID)
			case hprof.HeapTagGcRootSystemClass:
				addRoot(SourceGcRootSystemClass, sr.GcRootSystemClass.ObjID)
			case hprof.HeapTagGcRootThreadBlock:
				addRoot(SourceGcRootThreadBlock, sr.GcRootThreadBlock.ObjID)
			case hprof.HeapTagGcRootBusyMonitor:
				addRoot(SourceGcRootBusyMonitor, sr.GcRootBusyMonitor.ObjID)

			case hprof.HeapTagInstance:
				in := sr.Instance
				objClass[in.ObjID] = in.ClassObjID
				descriptors, err := classTable.ExpandedDescriptors(in.ClassObjID)
				if err != nil {
					return RootPath{}, false, err
				}
				values, err := in.DecodeFields(header.IDSize, descriptors)
				if err != nil {
					return RootPath{}, false, err
				}
				for i, v := range values {
					if v.Type != hprof.FieldTypeObjectID {
						continue
					}
					if ref, present := v.ObjectRef.Get(); present {
						addEdge(in.ObjID, ref, classTable.FieldName(descriptors[i].NameID))
					}
				}

			case hprof.HeapTagObjectArray:
				oa := sr.ObjectArray
				objClass[oa.ObjID] = oa.ArrayClassObjID
				elems, err := hprof.Collect(oa.Elements())
				if err != nil {
					return RootPath{}, false, err
				}
				for _, el := range elems {
					if ref, present := el.Get(); present {
						addEdge(oa.ObjID, ref, "[array element]")
					}
				}

			case hprof.HeapTagClass:
				c := sr.Class
				fields, err := hprof.Collect(c.StaticFields())
				if err != nil {
					return RootPath{}, false, err
				}
				for _, sf := range fields {
					if sf.Value.Type != hprof.FieldTypeObjectID {
						continue
					}
					if ref, present := sf.Value.ObjectRef.Get(); present {
						addEdge(c.ObjID, ref, classTable.FieldName(sf.NameID))
					}
				}
			}
		}
	}

	path, found := bfsToRoot(objID, reverse, gcRoots)
	if !found {
		return RootPath{}, false, nil
	}

	steps := make([]RootPathStep, len(path))
	for i, id := range path {
		name := "(class obj)"
		if classID, ok := objClass[id]; ok {
			if view, ok := classTable.Lookup(classID); ok {
				name = view.Name
			}
		} else if view, ok := classTable.Lookup(id); ok {
			name = view.Name
		}
		field := ""
		if i+1 < len(path) {
			field = edgeFieldName(reverse, id, path[i+1])
		}
		steps[i] = RootPathStep{ObjID: id, ClassName: name, FieldName: field}
	}

	return RootPath{RootKind: gcRoots[path[0]], Path: steps}, true, nil
}

// bfsToRoot runs a breadth-first search over the reverse-adjacency map
// starting at target, returning the path from the nearest GC root to
// target (root first, target last) once one is found. visited maps a node
// to the node that discovered it (its successor toward target); the path
// is reassembled by walking that chain from the discovered root back to
// target.
func bfsToRoot(target hprof.Id, reverse map[hprof.Id][]refEdge, gcRoots map[hprof.Id]SourceKind) ([]hprof.Id, bool) {
	if _, isRoot := gcRoots[target]; isRoot {
		return []hprof.Id{target}, true
	}

	visited := map[hprof.Id]hprof.Id{target: target}
	queue := list.New()
	queue.PushBack(target)

	for queue.Len() > 0 {
		front := queue.Remove(queue.Front()).(hprof.Id)
		for _, e := range reverse[front] {
			if _, seen := visited[e.fromObjID]; seen {
				continue
			}
			visited[e.fromObjID] = front
			if _, isRoot := gcRoots[e.fromObjID]; isRoot {
				return reconstructPath(visited, target, e.fromObjID), true
			}
			queue.PushBack(e.fromObjID)
		}
	}
	return nil, false
}

func reconstructPath(visited map[hprof.Id]hprof.Id, target, root hprof.Id) []hprof.Id {
	var path []hprof.Id
	cur := root
	for {
		path = append(path, cur)
		if cur == target {
			break
		}
		cur = visited[cur]
	}
	return path
}

func edgeFieldName(reverse map[hprof.Id][]refEdge, from, to hprof.Id) string {
	for _, e := range reverse[to] {
		if e.fromObjID == from {
			return e.fieldName
		}
	}
	return ""
}
