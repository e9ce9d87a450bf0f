package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	began, ended bool
	classNodes   []ClassNode
	gcRootNodes  []GcRootNode
	primNodes    []PrimArrayNode
	edges        []Edge
}

func (w *recordingWriter) Begin() error { w.began = true; return nil }
func (w *recordingWriter) End() error   { w.ended = true; return nil }
func (w *recordingWriter) WriteClassNode(n ClassNode) error {
	w.classNodes = append(w.classNodes, n)
	return nil
}
func (w *recordingWriter) WriteGcRootNode(n GcRootNode) error {
	w.gcRootNodes = append(w.gcRootNodes, n)
	return nil
}
func (w *recordingWriter) WritePrimArrayNode(n PrimArrayNode) error {
	w.primNodes = append(w.primNodes, n)
	return nil
}
func (w *recordingWriter) WriteEdge(e Edge) error {
	w.edges = append(w.edges, e)
	return nil
}

func TestAnalyze(t *testing.T) {
	buf := buildReferenceDump(t)
	store := buildIndexStore(t, buf)

	w := &recordingWriter{}
	err := Analyze(context.Background(), buf, store, DefaultConfig(), w)
	require.NoError(t, err)

	assert.True(t, w.began)
	assert.True(t, w.ended)

	// Derived(20) and Holder(40) both appear as edge destinations/sources;
	// the [LDerived; array class (30) never receives an edge of its own
	// (only attributes edges to it as a source), but does end up in the
	// class-node set as an ObjectArray source. Primitive array type int
	// is never referenced by any instance field, so it contributes no
	// edge and no node.
	gotClassIDs := make(map[uint64]bool)
	for _, n := range w.classNodes {
		gotClassIDs[uint64(n.ClassObjID)] = true
	}
	assert.True(t, gotClassIDs[20], "Derived class node expected")
	assert.True(t, gotClassIDs[40], "Holder class node expected")
	assert.True(t, gotClassIDs[30], "array class node expected")
	assert.False(t, gotClassIDs[10], "Base never appears as a source or destination")

	assert.Empty(t, w.primNodes, "no edge ever resolves to the int[] primitive array")

	require.Len(t, w.gcRootNodes, 1)
	assert.Equal(t, SourceGcRootJavaStackFrame, w.gcRootNodes[0].Kind)

	// three distinct edges: gc-root -> Holder, Holder.target -> Derived,
	// array-contents -> Derived.
	require.Len(t, w.edges, 3)
	for _, e := range w.edges {
		assert.Equal(t, uint64(1), e.Count)
	}

	var sawGcRootEdge, sawFieldEdge, sawArrayEdge bool
	for _, e := range w.edges {
		switch e.Source.Kind {
		case SourceGcRootJavaStackFrame:
			sawGcRootEdge = true
			assert.Equal(t, DestInstanceOfClass, e.Dest.Kind)
			assert.Equal(t, uint64(40), uint64(e.Dest.ClassObjID))
		case SourceInstanceField:
			sawFieldEdge = true
			assert.Equal(t, uint64(40), uint64(e.Source.ClassObjID))
			assert.Equal(t, DestInstanceOfClass, e.Dest.Kind)
			assert.Equal(t, uint64(20), uint64(e.Dest.ClassObjID))
		case SourceObjectArray:
			sawArrayEdge = true
			assert.Equal(t, uint64(30), uint64(e.Source.ClassObjID))
			assert.Equal(t, DestInstanceOfClass, e.Dest.Kind)
			assert.Equal(t, uint64(20), uint64(e.Dest.ClassObjID))
		}
	}
	assert.True(t, sawGcRootEdge)
	assert.True(t, sawFieldEdge)
	assert.True(t, sawArrayEdge)
}

func TestAnalyze_MinEdgeCountFiltersEverything(t *testing.T) {
	buf := buildReferenceDump(t)
	store := buildIndexStore(t, buf)

	cfg := DefaultConfig()
	cfg.MinEdgeCount = 2
	w := &recordingWriter{}
	require.NoError(t, Analyze(context.Background(), buf, store, cfg, w))
	assert.Empty(t, w.edges)
	assert.Empty(t, w.classNodes)
}
