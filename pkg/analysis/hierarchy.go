package analysis

import (
	"fmt"
	"html"
	"io"

	"github.com/hprofgraph/hprofviz/pkg/hprof"
)

// ClassHierarchy renders the static class hierarchy - not the instance
// reference graph pkg/graph analyzes - as a directed graph of
// class -> superclass edges, to w as DOT text. Unlike the reference-count
// graph, this only needs the class-view/descriptor-chain layer: no index
// and no pass over instances, which makes it the cheapest of the
// analyzers to run.
func ClassHierarchy(buf []byte, w io.Writer) error {
	header, recordStream, err := hprof.ParseHeader(buf)
	if err != nil {
		return err
	}
	headerLen := int64(len(buf) - len(recordStream))

	b := hprof.NewClassTableBuilder()
	it := hprof.NewRecordIterator(recordStream, header.IDSize, headerLen)
	for {
		r, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		switch r.Tag {
		case hprof.TagUtf8:
			u, _, err := r.AsUtf8()
			if err != nil {
				return err
			}
			b.AddUtf8(u)
		case hprof.TagLoadClass:
			lc, _, err := r.AsLoadClass()
			if err != nil {
				return err
			}
			if err := b.AddLoadClass(lc); err != nil {
				return err
			}
		default:
			if !r.IsHeapDumpEnvelope() {
				continue
			}
			subIt := r.SubRecords()
			for {
				sr, ok, err := subIt.Next()
				if err != nil {
					return err
				}
				if !ok {
					break
				}
				if sr.Tag == hprof.HeapTagClass {
					b.AddClass(sr.Class)
				}
			}
		}
	}

	classTable, err := b.Build()
	if err != nil {
		return err
	}

	if _, err := io.WriteString(w, "digraph G {\n"); err != nil {
		return err
	}

	var writeErr error
	classTable.Each(func(c hprof.ClassView) {
		if writeErr != nil {
			return
		}
		writeErr = writeHierarchyNode(w, c)
	})
	if writeErr != nil {
		return writeErr
	}

	classTable.Each(func(c hprof.ClassView) {
		if writeErr != nil {
			return
		}
		if superID, ok := c.SuperClassObjID.Get(); ok {
			_, writeErr = fmt.Fprintf(w, "\t%d -> %d;\n", uint64(c.ObjID), uint64(superID))
		}
	})
	if writeErr != nil {
		return writeErr
	}

	_, err = io.WriteString(w, "}\n")
	return err
}

func writeHierarchyNode(w io.Writer, c hprof.ClassView) error {
	if _, err := fmt.Fprintf(w, "\t%d [shape=box, label=<\n", uint64(c.ObjID)); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "<TABLE BORDER=\"0\" CELLBORDER=\"1\">\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "<TR><TD COLSPAN=\"2\">%s (0x%016x)</TD></TR>\n", html.EscapeString(c.Name), uint64(c.ObjID)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "<TR><TD>Instance size (bytes)</TD><TD>%d</TD></TR>\n", c.InstanceSizeBytes); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "</TABLE>\n\t>];\n"); err != nil {
		return err
	}
	return nil
}
