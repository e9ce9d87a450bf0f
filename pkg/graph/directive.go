package graph

import (
	"math"

	"github.com/hprofgraph/hprofviz/pkg/hprof"
)

// StaticFieldDirective describes one row of a class node's static-field
// table: the field's resolved name and a debug-formatted rendering of its
// value.
type StaticFieldDirective struct {
	Name  string
	Value string
	Port  string
}

// InstanceFieldDirective describes one row of a class node's
// instance-field-descriptor table: the field's resolved name and its Java
// type name.
type InstanceFieldDirective struct {
	Name     string
	TypeName string
	Port     string
}

// ClassNode is the node directive emitted once per unique class obj-id
// that appears as an edge source or destination. Per the invariant that
// node descriptor lists favor readability, InstanceFields holds the
// class's own (non-expanded) field descriptors, not the expanded
// superclass chain used to decode instance byte offsets.
type ClassNode struct {
	ClassObjID        hprof.Id
	Name              string
	SuperClassObjID   hprof.OptionalID
	InstanceSizeBytes uint32
	StaticFields      []StaticFieldDirective
	InstanceFields    []InstanceFieldDirective
	// IsArrayType is true when Name begins with "[", the JVM's descriptor
	// convention for array classes. A dedicated "array contents" table row
	// only makes sense for these, since non-array classes never have an
	// ObjectArray edge attributed to them.
	IsArrayType bool
}

// NodeName returns this node's deterministic directive name.
func (n ClassNode) NodeName() string { return classNodeName(n.ClassObjID) }

// GcRootNode is the node directive emitted once per GC-root kind that
// appears as an edge source.
type GcRootNode struct {
	Kind SourceKind
}

// NodeName returns this node's deterministic directive name.
func (n GcRootNode) NodeName() string { return n.Kind.gcRootName() }

// PrimArrayNode is the node directive emitted once per primitive-array
// element type that appears as an edge destination.
type PrimArrayNode struct {
	Type hprof.PrimitiveArrayType
}

// NodeName returns this node's deterministic directive name.
func (n PrimArrayNode) NodeName() string { return primArrayNodeName(n.Type) }

// Edge is the directive emitted for each surviving GraphEdge: a labeled,
// weighted connection from a source node (optionally a specific port on
// it) to a destination node.
type Edge struct {
	Source     HeapGraphSource
	Dest       HeapGraphDest
	Count      uint64
	SourcePort string // "" when the source kind has no per-offset cell
}

// PenWidth returns the edge's rendered line weight: an arbitrary aesthetic
// scaling of log10(count)^2/3 that keeps heavily-referenced edges visually
// dominant without the width exploding for the largest counts.
func (e Edge) PenWidth() float64 {
	l := math.Log10(float64(e.Count))
	return l * l / 3.0
}

// DirectiveWriter is the generic rendering seam the analyzer emits
// directives through: one concrete surface dialect per writer
// implementation (internal/dotwriter ships the one used by this module).
// Begin/End bracket a whole graph; node methods may be called in any
// order, but each node directive is emitted at most once per unique name.
type DirectiveWriter interface {
	Begin() error
	WriteClassNode(ClassNode) error
	WriteGcRootNode(GcRootNode) error
	WritePrimArrayNode(PrimArrayNode) error
	WriteEdge(Edge) error
	End() error
}
