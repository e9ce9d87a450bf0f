package graph

import (
	"testing"

	"github.com/hprofgraph/hprofviz/pkg/hprof"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRootPath(t *testing.T) {
	buf := buildReferenceDump(t)

	path, found, err := FindRootPath(buf, hprof.Id(100))
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, SourceGcRootJavaStackFrame, path.RootKind)
	require.Len(t, path.Path, 2)

	assert.Equal(t, hprof.Id(101), path.Path[0].ObjID)
	assert.Equal(t, "Holder", path.Path[0].ClassName)
	assert.Equal(t, "target", path.Path[0].FieldName)

	assert.Equal(t, hprof.Id(100), path.Path[1].ObjID)
	assert.Equal(t, "Derived", path.Path[1].ClassName)
	assert.Equal(t, "", path.Path[1].FieldName)
}

func TestFindRootPath_NoPathToRoot(t *testing.T) {
	buf := buildReferenceDump(t)

	// obj id 300 is the int[] primitive array: unreachable from any GC root.
	_, found, err := FindRootPath(buf, hprof.Id(300))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFindRootPath_ObjectIsItselfARoot(t *testing.T) {
	buf := buildReferenceDump(t)

	path, found, err := FindRootPath(buf, hprof.Id(101))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, SourceGcRootJavaStackFrame, path.RootKind)
	require.Len(t, path.Path, 1)
	assert.Equal(t, hprof.Id(101), path.Path[0].ObjID)
}
