package analysis

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassHierarchy(t *testing.T) {
	buf := buildTwoClassDump(t)

	var out bytes.Buffer
	require.NoError(t, ClassHierarchy(buf, &out))

	dot := out.String()
	assert.Contains(t, dot, "digraph G {")
	assert.Contains(t, dot, "Base (0x000000000000000a)")
	assert.Contains(t, dot, "Derived (0x0000000000000014)")
	assert.Contains(t, dot, "20 -> 10;")
	assert.NotContains(t, dot, "30 -> ")
}
