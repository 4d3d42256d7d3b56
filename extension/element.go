package extension

import (
	"encoding/xml"
)

// Element is a minimal XML node used to build feed documents.
// Names are written verbatim, so prefixed names ("dc:creator") rely on the
// namespace being declared on the document root.
type Element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []*Element `xml:",any"`
}

// NewElement creates an element called name.
func NewElement(name string) *Element {
	return &Element{XMLName: xml.Name{Local: name}}
}

// Name returns the element name as written.
func (e *Element) Name() string {
	return e.XMLName.Local
}

// SetAttr sets or replaces an attribute and returns e.
func (e *Element) SetAttr(name, value string) *Element {
	for i := range e.Attrs {
		if e.Attrs[i].Name.Local == name {
			e.Attrs[i].Value = value
			return e
		}
	}
	e.Attrs = append(e.Attrs, xml.Attr{Name: xml.Name{Local: name}, Value: value})
	return e
}

// Attr returns the value of an attribute.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetText sets the character data and returns e.
func (e *Element) SetText(text string) *Element {
	e.Text = text
	return e
}

// Append adds child and returns it.
func (e *Element) Append(child *Element) *Element {
	e.Children = append(e.Children, child)
	return child
}

// AddChild appends a new child element with text and returns it.
func (e *Element) AddChild(name, text string) *Element {
	return e.Append(NewElement(name).SetText(text))
}

// AddChildIf appends a text child only when text is not empty.
func (e *Element) AddChildIf(name, text string) {
	if text != "" {
		e.AddChild(name, text)
	}
}

// Find returns the first direct child called name.
func (e *Element) Find(name string) *Element {
	for _, c := range e.Children {
		if c.XMLName.Local == name {
			return c
		}
	}
	return nil
}

// FindAll returns every direct child called name.
func (e *Element) FindAll(name string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.XMLName.Local == name {
			out = append(out, c)
		}
	}
	return out
}

// DeclareNamespace adds an xmlns declaration unless the prefix is already declared.
func (e *Element) DeclareNamespace(ns Namespace) {
	attr := "xmlns"
	if ns.Prefix != "" {
		attr += ":" + ns.Prefix
	}
	if _, ok := e.Attr(attr); ok {
		return
	}
	e.SetAttr(attr, ns.URI)
}

// Marshal encodes e as an indented XML document with declaration.
func (e *Element) Marshal() ([]byte, error) {
	body, err := xml.MarshalIndent(e, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
