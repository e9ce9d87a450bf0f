package analysis

import (
	"bytes"
	"testing"

	"github.com/hprofgraph/hprofviz/pkg/hprof"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectDump_Instance(t *testing.T) {
	buf := buildTwoClassDump(t)

	var out bytes.Buffer
	require.NoError(t, ObjectDump(buf, hprof.Id(100), &out))

	dump := out.String()
	assert.Contains(t, dump, "instance 0x64 of Derived")
}

func TestObjectDump_ObjectArrayResolvesElements(t *testing.T) {
	buf := buildTwoClassDump(t)

	var out bytes.Buffer
	require.NoError(t, ObjectDump(buf, hprof.Id(200), &out))

	dump := out.String()
	assert.Contains(t, dump, "object array 0x")
	assert.Contains(t, dump, "instance of Derived")
	assert.Contains(t, dump, "[1] = null")
}

func TestObjectDump_PrimitiveArray(t *testing.T) {
	buf := buildTwoClassDump(t)

	var out bytes.Buffer
	require.NoError(t, ObjectDump(buf, hprof.Id(300), &out))

	dump := out.String()
	assert.Contains(t, dump, "int[] 0x")
	assert.Contains(t, dump, "[0] = 1")
	assert.Contains(t, dump, "[2] = 3")
}

func TestObjectDump_UnknownObjectIDIsMalformed(t *testing.T) {
	buf := buildTwoClassDump(t)

	var out bytes.Buffer
	err := ObjectDump(buf, hprof.Id(999999), &out)
	require.Error(t, err)
}
