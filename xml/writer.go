package xml

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
)

type WriterOptions uint64

const (
	OptionCompact WriterOptions = 1 << iota
	OptionNoNamespace
)

func (w WriterOptions) Compact() bool {
	return w&OptionCompact > 0
}

func (w WriterOptions) NoNamespace() bool {
	return w&OptionNoNamespace > 0
}

// Writer serializes nodes found in query results.
type Writer struct {
	writer *bufio.Writer

	Indent string
	WriterOptions
}

// WriteNode returns the compact serialization of node.
func WriteNode(node Node) string {
	var buf bytes.Buffer
	ws := NewWriter(&buf)
	ws.WriterOptions |= OptionCompact
	ws.Write(node)
	return buf.String()
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{
		writer: bufio.NewWriter(w),
		Indent: "  ",
	}
}

func (w *Writer) Write(node Node) error {
	if err := w.writeNode(node, 0); err != nil {
		return err
	}
	return w.writer.Flush()
}

func (w *Writer) writeNode(node Node, depth int) error {
	switch node := node.(type) {
	case *Document:
		if node.Root() == nil {
			return nil
		}
		return w.writeNode(node.Root(), depth)
	case *Element:
		return w.writeElement(node, depth)
	case *Text:
		_, err := w.writer.WriteString(escapeText(node.Content))
		return err
	case *Attribute:
		w.writeName(node.QName)
		w.writer.WriteString(`="`)
		w.writer.WriteString(escapeText(node.Value()))
		w.writer.WriteString(`"`)
		return nil
	default:
		return fmt.Errorf("node: unknown type (%T)", node)
	}
}

func (w *Writer) writeElement(node *Element, depth int) error {
	prefix := w.getIndent(depth)
	w.writer.WriteString(prefix)
	w.writer.WriteRune('<')
	w.writeName(node.QName)
	for _, a := range node.Attrs {
		if w.NoNamespace() && (a.Space == attrXmlNS || a.Name == attrXmlNS) {
			continue
		}
		w.writer.WriteRune(' ')
		w.writeNode(a, depth)
	}
	if len(node.Nodes) == 0 {
		w.writer.WriteString("/>")
		return nil
	}
	w.writer.WriteRune('>')
	if node.Leaf() {
		w.writeNode(node.Nodes[0], depth+1)
	} else {
		for _, n := range node.Nodes {
			w.writeNL()
			if _, ok := n.(*Text); ok {
				w.writer.WriteString(w.getIndent(depth + 1))
			}
			if err := w.writeNode(n, depth+1); err != nil {
				return err
			}
		}
		w.writeNL()
		w.writer.WriteString(prefix)
	}
	w.writer.WriteString("</")
	w.writeName(node.QName)
	w.writer.WriteRune('>')
	return nil
}

func (w *Writer) writeName(name QName) {
	if w.NoNamespace() {
		w.writer.WriteString(name.LocalName())
	} else {
		w.writer.WriteString(name.QualifiedName())
	}
}

func (w *Writer) writeNL() {
	if w.Compact() {
		return
	}
	w.writer.WriteRune('\n')
}

func (w *Writer) getIndent(depth int) string {
	if w.Compact() {
		return ""
	}
	return strings.Repeat(w.Indent, depth)
}

var escaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	"&", "&amp;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeText(str string) string {
	return escaper.Replace(str)
}
