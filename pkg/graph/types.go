// Package graph builds a type-to-type reference-count graph over a heap
// dump and emits it as a stream of graph-rendering directives (nodes and
// weighted edges) to an arbitrary writer. It trades per-instance detail for
// a compressed view: instead of one node per object, edges are counted
// between the structural positions objects sit in (a GC root, a static
// field, an instance field, an object-array slot) and the type or kind of
// object found there.
package graph

import (
	"strconv"

	"github.com/hprofgraph/hprofviz/pkg/hprof"
)

// SourceKind identifies which variant of HeapGraphSource an edge's source
// is. Every polymorphic construct in this package is a tagged sum over a
// small closed set of cases, matched exhaustively rather than through
// subclassing.
type SourceKind uint8

const (
	SourceGcRootUnknown SourceKind = iota
	SourceGcRootThreadObj
	SourceGcRootJniGlobal
	SourceGcRootJniLocalRef
	SourceGcRootJavaStackFrame
	SourceGcRootNativeStack
	SourceGcRootSystemClass
	SourceGcRootThreadBlock
	SourceGcRootBusyMonitor
	SourceStaticField
	SourceInstanceField
	SourceObjectArray
)

// gcRootKinds lists the nine GC-root source kinds, for iterating "is this a
// GC-root source" checks without repeating the full switch everywhere.
var gcRootKinds = [...]SourceKind{
	SourceGcRootUnknown, SourceGcRootThreadObj, SourceGcRootJniGlobal,
	SourceGcRootJniLocalRef, SourceGcRootJavaStackFrame, SourceGcRootNativeStack,
	SourceGcRootSystemClass, SourceGcRootThreadBlock, SourceGcRootBusyMonitor,
}

// IsGcRoot reports whether k is one of the nine GC-root source kinds.
func (k SourceKind) IsGcRoot() bool {
	for _, g := range gcRootKinds {
		if g == k {
			return true
		}
	}
	return false
}

// String renders a gc-root SourceKind the way a caller reporting a
// reachability path would want it displayed.
func (k SourceKind) String() string {
	return k.gcRootName()
}

func (k SourceKind) gcRootName() string {
	switch k {
	case SourceGcRootUnknown:
		return "gc-root-unknown"
	case SourceGcRootThreadObj:
		return "gc-root-thread-obj"
	case SourceGcRootJniGlobal:
		return "gc-root-jni-global"
	case SourceGcRootJniLocalRef:
		return "gc-root-jni-local-ref"
	case SourceGcRootJavaStackFrame:
		return "gc-root-java-stack-frame"
	case SourceGcRootNativeStack:
		return "gc-root-native-stack"
	case SourceGcRootSystemClass:
		return "gc-root-system-class"
	case SourceGcRootThreadBlock:
		return "gc-root-thread-block"
	case SourceGcRootBusyMonitor:
		return "gc-root-busy-monitor"
	default:
		return "gc-root-unknown"
	}
}

// HeapGraphSource is the edge-key "source" side: either one of the nine
// GC-root kinds, or a structured reference site (a static field, an
// instance field, or an object-array) identified by the owning class and,
// for fields, the field's offset in its descriptor chain.
type HeapGraphSource struct {
	Kind        SourceKind
	ClassObjID  hprof.Id // meaningful for StaticField, InstanceField, ObjectArray
	FieldOffset int      // meaningful for StaticField, InstanceField
}

// NodeName returns the deterministic dot-quotable node name this source's
// node directive is emitted under. GC roots get a fixed per-kind name;
// field and array sources are attributed to their owning class's node.
func (s HeapGraphSource) NodeName() string {
	if s.Kind.IsGcRoot() {
		return s.Kind.gcRootName()
	}
	return classNodeName(s.ClassObjID)
}

// Port returns the source-side table cell this edge's tail should attach
// to, or "" if the source kind has no per-offset cell (GC roots).
func (s HeapGraphSource) Port() string {
	switch s.Kind {
	case SourceStaticField:
		return staticFieldPort(s.FieldOffset)
	case SourceInstanceField:
		return instanceFieldPort(s.FieldOffset)
	case SourceObjectArray:
		return arrayContentsPort
	default:
		return ""
	}
}

// DestKind identifies which variant of HeapGraphDest an edge's destination
// is.
type DestKind uint8

const (
	DestInstanceOfClass DestKind = iota
	DestClassObj
	DestPrimitiveArray
)

// HeapGraphDest is the edge-key "destination" side: a reference either
// lands on an instance of some class, on a class object itself (a
// reflective reference to `Foo.class`), or on a primitive array of some
// element type.
type HeapGraphDest struct {
	Kind       DestKind
	ClassObjID hprof.Id                  // meaningful for InstanceOfClass, ClassObj
	PrimType   hprof.PrimitiveArrayType // meaningful for PrimitiveArray
}

// NodeName returns the deterministic dot-quotable node name this
// destination's node directive is emitted under.
func (d HeapGraphDest) NodeName() string {
	switch d.Kind {
	case DestPrimitiveArray:
		return primArrayNodeName(d.PrimType)
	default:
		return classNodeName(d.ClassObjID)
	}
}

// GraphEdge is the full edge key the reference-count map is keyed by.
type GraphEdge struct {
	Source HeapGraphSource
	Dest   HeapGraphDest
}

func classNodeName(id hprof.Id) string {
	return "class-" + strconv.FormatUint(uint64(id), 10)
}

func primArrayNodeName(t hprof.PrimitiveArrayType) string {
	return "prim-array-" + t.JavaTypeName()
}

const arrayContentsPort = "array-contents"

func staticFieldPort(offset int) string {
	return "static-field-val-" + strconv.Itoa(offset)
}

func instanceFieldPort(offset int) string {
	return "instance-field-val-" + strconv.Itoa(offset)
}
