package csvwriter

import (
	"bytes"
	"testing"

	"github.com/hprofgraph/hprofviz/pkg/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_WritesHeaderAndRows(t *testing.T) {
	var out bytes.Buffer
	w := New(&out)

	require.NoError(t, w.WriteRow(analysis.InstanceCountRow{
		ClassObjID:           20,
		ClassName:            "Derived",
		Count:                5,
		SizeKnown:            true,
		PerInstanceSizeBytes: 24,
		TotalBytes:           120,
	}))
	require.NoError(t, w.WriteRow(analysis.InstanceCountRow{
		ClassObjID: 30,
		ClassName:  "Unsized",
		Count:      2,
		SizeKnown:  false,
	}))
	require.NoError(t, w.Flush())

	lines := out.String()
	assert.Contains(t, lines, "count,per_instance_size_bytes,total_bytes,class_name,class_obj_id\n")
	assert.Contains(t, lines, "5,24,120,Derived,20\n")
	assert.Contains(t, lines, "2,,,Unsized,30\n")
}
