// Package dotwriter renders reference-count graph directives as GraphViz
// DOT text, the one concrete implementation of pkg/graph.DirectiveWriter
// this module ships.
package dotwriter

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/hprofgraph/hprofviz/pkg/graph"
)

// Writer emits DOT directly to an underlying io.Writer as each directive
// arrives, rather than buffering a whole-graph template: node and edge
// counts for a large heap dump can run into the millions, and this keeps
// memory use flat regardless of graph size.
type Writer struct {
	w   io.Writer
	err error
}

// New wraps w as a graph.DirectiveWriter.
func New(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (dw *Writer) Begin() error {
	return dw.write("digraph G {\n")
}

func (dw *Writer) End() error {
	return dw.write("}\n")
}

// WriteClassNode renders a node as an HTML-like table: name/id, optional
// superclass row, instance size, then a static-fields section and an
// instance-field-descriptor section, each row carrying a PORT so edges can
// attach to the exact cell they reference.
func (dw *Writer) WriteClassNode(n graph.ClassNode) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\t%s[shape=box, label=<\n", quoteNode(n.NodeName()))
	b.WriteString("<TABLE BORDER=\"0\" CELLBORDER=\"1\">\n")
	fmt.Fprintf(&b, "<TR><TD COLSPAN=\"2\">%s (0x%016x)</TD></TR>\n", html.EscapeString(n.Name), uint64(n.ClassObjID))
	if superID, ok := n.SuperClassObjID.Get(); ok {
		fmt.Fprintf(&b, "<TR><TD COLSPAN=\"2\">Superclass: 0x%016x</TD></TR>\n", uint64(superID))
	}
	fmt.Fprintf(&b, "<TR><TD>Instance size (bytes)</TD><TD>%d</TD></TR>\n", n.InstanceSizeBytes)

	if len(n.StaticFields) > 0 {
		b.WriteString("<TR><TD COLSPAN=\"2\">Static fields</TD></TR>\n")
		for _, sf := range n.StaticFields {
			fmt.Fprintf(&b, "<TR><TD>%s</TD><TD PORT=\"%s\">%s</TD></TR>\n",
				html.EscapeString(sf.Name), sf.Port, html.EscapeString(sf.Value))
		}
	}

	if len(n.InstanceFields) > 0 {
		b.WriteString("<TR><TD COLSPAN=\"2\">Instance field descriptors</TD></TR>\n")
		for _, fd := range n.InstanceFields {
			fmt.Fprintf(&b, "<TR><TD>%s</TD><TD PORT=\"%s\">%s</TD></TR>\n",
				html.EscapeString(fd.Name), fd.Port, html.EscapeString(fd.TypeName))
		}
	}

	// Array classes get a dedicated "array contents" row so ObjectArray
	// edges have a specific exit port instead of leaving from anywhere on
	// the node.
	if n.IsArrayType {
		b.WriteString("<TR><TD COLSPAN=\"2\" PORT=\"array-contents\">(array contents)</TD></TR>\n")
	}

	b.WriteString("</TABLE>\n")
	b.WriteString("\t>];\n")
	return dw.write(b.String())
}

func (dw *Writer) WriteGcRootNode(n graph.GcRootNode) error {
	name := quoteNode(n.NodeName())
	return dw.write(fmt.Sprintf("\t%s[shape=box, label=%s]\n", name, name))
}

func (dw *Writer) WritePrimArrayNode(n graph.PrimArrayNode) error {
	return dw.write(fmt.Sprintf("\t%s[shape=box, label=\"%s[]\"]\n",
		quoteNode(n.NodeName()), html.EscapeString(n.Type.JavaTypeName())))
}

func (dw *Writer) WriteEdge(e graph.Edge) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\t%s", quoteNode(e.Source.NodeName()))
	if e.SourcePort != "" {
		fmt.Fprintf(&b, ":%s", e.SourcePort)
	}
	fmt.Fprintf(&b, " -> %s[label=\"x%d\"penwidth=\"%v\"", quoteNode(e.Dest.NodeName()), e.Count, e.PenWidth())
	b.WriteString("];\n")
	return dw.write(b.String())
}

func (dw *Writer) write(s string) error {
	if dw.err != nil {
		return dw.err
	}
	_, dw.err = io.WriteString(dw.w, s)
	return dw.err
}

func quoteNode(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `\"`) + `"`
}
