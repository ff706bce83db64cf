package storage

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
)

// XMLOption configures XML import.
type XMLOption func(*xmlOptions)

type xmlOptions struct {
	name string
	chop bool
}

// WithDocumentName sets the name of the created document node.
func WithDocumentName(name string) XMLOption {
	return func(o *xmlOptions) {
		o.name = name
	}
}

// WithChop enables or disables removal of whitespace-only text nodes.
// Chopping is enabled by default.
func WithChop(enabled bool) XMLOption {
	return func(o *xmlOptions) {
		o.chop = enabled
	}
}

// ParseXML reads an XML document and encodes it as a table.
func ParseXML(r io.Reader, opts ...XMLOption) (*Table, error) {
	o := xmlOptions{chop: true}
	for _, opt := range opts {
		opt(&o)
	}

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}

	imp := &importer{b: NewBuilder(), chop: o.chop}
	imp.b.OpenDocument(o.name)
	imp.tokens(doc.Child)
	imp.b.Close()
	return imp.b.Finish()
}

// ParseXMLString is a convenience wrapper around ParseXML.
func ParseXMLString(s string, opts ...XMLOption) (*Table, error) {
	return ParseXML(strings.NewReader(s), opts...)
}

type importer struct {
	b    *Builder
	chop bool
	text strings.Builder
}

func (imp *importer) flush() {
	if imp.text.Len() == 0 {
		return
	}
	s := imp.text.String()
	imp.text.Reset()
	if imp.chop && strings.TrimSpace(s) == "" {
		return
	}
	imp.b.Text(s)
}

func (imp *importer) tokens(toks []etree.Token) {
	for _, tok := range toks {
		switch t := tok.(type) {
		case *etree.CharData:
			imp.text.WriteString(t.Data)
		case *etree.Element:
			imp.flush()
			imp.element(t)
		case *etree.Comment:
			imp.flush()
			imp.b.Comment(t.Data)
		case *etree.ProcInst:
			if t.Target == "xml" {
				continue
			}
			imp.flush()
			imp.b.PI(t.Target, t.Inst)
		}
	}
	imp.flush()
}

func (imp *importer) element(el *etree.Element) {
	imp.b.OpenElement(el.FullTag())
	for i := range el.Attr {
		a := &el.Attr[i]
		if a.Space == "xmlns" || a.Space == "" && a.Key == "xmlns" {
			continue
		}
		imp.b.Attribute(a.FullKey(), a.Value)
	}
	imp.tokens(el.Child)
	imp.b.Close()
}
