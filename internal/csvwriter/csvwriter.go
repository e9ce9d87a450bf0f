// Package csvwriter is the one concrete pkg/analysis.RowWriter
// implementation this module ships, rendering instance-counts rows as
// CSV. No third-party CSV writer appears anywhere in the retrieved
// reference corpus, so this ambient concern is served by the standard
// library rather than an imported package.
package csvwriter

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/hprofgraph/hprofviz/pkg/analysis"
)

// Writer adapts encoding/csv.Writer to analysis.RowWriter.
type Writer struct {
	csv         *csv.Writer
	wroteHeader bool
}

// New wraps w as an analysis.RowWriter.
func New(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

var header = []string{"count", "per_instance_size_bytes", "total_bytes", "class_name", "class_obj_id"}

// WriteRow writes one instance-counts row, writing the header row first if
// it hasn't been written yet. Size columns render blank when the row's
// class's size wasn't observed in the dump.
func (w *Writer) WriteRow(row analysis.InstanceCountRow) error {
	if !w.wroteHeader {
		if err := w.csv.Write(header); err != nil {
			return err
		}
		w.wroteHeader = true
	}

	perInstance, total := "", ""
	if row.SizeKnown {
		perInstance = strconv.FormatUint(uint64(row.PerInstanceSizeBytes), 10)
		total = strconv.FormatUint(row.TotalBytes, 10)
	}

	return w.csv.Write([]string{
		strconv.FormatUint(row.Count, 10),
		perInstance,
		total,
		row.ClassName,
		strconv.FormatUint(uint64(row.ClassObjID), 10),
	})
}

// Flush flushes any buffered rows to the underlying writer.
func (w *Writer) Flush() error {
	w.csv.Flush()
	return w.csv.Error()
}
