package dotwriter

import (
	"bytes"
	"testing"

	"github.com/hprofgraph/hprofviz/pkg/graph"
	"github.com/hprofgraph/hprofviz/pkg/hprof"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_FullGraph(t *testing.T) {
	var out bytes.Buffer
	w := New(&out)

	require.NoError(t, w.Begin())
	require.NoError(t, w.WriteClassNode(graph.ClassNode{
		ClassObjID:        20,
		Name:              "Derived",
		InstanceSizeBytes: 8,
		InstanceFields: []graph.InstanceFieldDirective{
			{Name: "ref", TypeName: "object", Port: "instance-field-val-0"},
		},
	}))
	require.NoError(t, w.WriteGcRootNode(graph.GcRootNode{Kind: graph.SourceGcRootJavaStackFrame}))
	require.NoError(t, w.WritePrimArrayNode(graph.PrimArrayNode{Type: hprof.PrimitiveArrayInt}))
	require.NoError(t, w.WriteEdge(graph.Edge{
		Source:     graph.HeapGraphSource{Kind: graph.SourceGcRootJavaStackFrame},
		Dest:       graph.HeapGraphDest{Kind: graph.DestInstanceOfClass, ClassObjID: 20},
		Count:      3,
		SourcePort: "",
	}))
	require.NoError(t, w.End())

	dot := out.String()
	assert.Contains(t, dot, "digraph G {")
	assert.Contains(t, dot, `"class-20"[shape=box, label=<`)
	assert.Contains(t, dot, "Derived (0x0000000000000014)")
	assert.Contains(t, dot, `PORT="instance-field-val-0"`)
	assert.Contains(t, dot, `"gc-root-java-stack-frame"[shape=box, label="gc-root-java-stack-frame"]`)
	assert.Contains(t, dot, `"prim-array-int"[shape=box, label="int[]"]`)
	assert.Contains(t, dot, `"gc-root-java-stack-frame" -> "class-20"[label="x3"`)
	assert.Contains(t, dot, "}\n")
}

func TestWriter_EdgeWithPort(t *testing.T) {
	var out bytes.Buffer
	w := New(&out)
	require.NoError(t, w.WriteEdge(graph.Edge{
		Source:     graph.HeapGraphSource{Kind: graph.SourceInstanceField, ClassObjID: 40, FieldOffset: 0},
		Dest:       graph.HeapGraphDest{Kind: graph.DestInstanceOfClass, ClassObjID: 20},
		Count:      1,
		SourcePort: "instance-field-val-0",
	}))
	assert.Contains(t, out.String(), `"class-40":instance-field-val-0 -> "class-20"`)
}

func TestWriter_StopsOnFirstError(t *testing.T) {
	w := New(&failingWriter{})
	err := w.Begin()
	require.Error(t, err)
	// a second call returns the same buffered error without writing again
	err2 := w.End()
	assert.Equal(t, err, err2)
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, assert.AnError
}
