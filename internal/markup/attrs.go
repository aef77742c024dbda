package markup

import (
	"html"
	"strings"
)

// Attr is one HTML attribute. A nil Value renders as a bare attribute.
type Attr struct {
	Name  string  `json:"name"`
	Value *string `json:"value,omitempty"`
}

// Attrs is an ordered attribute list with unique names.
type Attrs []Attr

// Value returns a pointer to v, for building attributes inline.
func Value(v string) *string { return &v }

// Index returns the position of name, or -1.
func (a Attrs) Index(name string) int {
	for i, attr := range a {
		if attr.Name == name {
			return i
		}
	}
	return -1
}

// Get returns the value stored under name and whether name is present.
func (a Attrs) Get(name string) (*string, bool) {
	if i := a.Index(name); i >= 0 {
		return a[i].Value, true
	}
	return nil, false
}

// Set replaces name in place or appends it.
func (a *Attrs) Set(name string, value *string) {
	if i := a.Index(name); i >= 0 {
		(*a)[i].Value = value
		return
	}
	*a = append(*a, Attr{Name: name, Value: value})
}

// Delete removes name and returns its value.
func (a *Attrs) Delete(name string) (*string, bool) {
	i := a.Index(name)
	if i < 0 {
		return nil, false
	}
	value := (*a)[i].Value
	*a = append((*a)[:i], (*a)[i+1:]...)
	return value, true
}

// Clone returns an independent copy.
func (a Attrs) Clone() Attrs {
	if a == nil {
		return nil
	}
	out := make(Attrs, len(a))
	for i, attr := range a {
		out[i] = Attr{Name: attr.Name}
		if attr.Value != nil {
			out[i].Value = Value(*attr.Value)
		}
	}
	return out
}

// Merge returns a copy of a with every attribute of other set on top, so
// other wins on conflicts while a keeps its order.
func (a Attrs) Merge(other Attrs) Attrs {
	out := a.Clone()
	for _, attr := range other.Clone() {
		out.Set(attr.Name, attr.Value)
	}
	return out
}

// String renders the attributes separated by single spaces, values quoted
// and escaped.
func (a Attrs) String() string {
	var b strings.Builder
	for i, attr := range a {
		if i > 0 {
			b.WriteByte(' ')
		}
		writeAttr(&b, attr.Name, attr.Value)
	}
	return b.String()
}

func writeAttr(b *strings.Builder, name string, value *string) {
	b.WriteString(name)
	if value != nil {
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(*value))
		b.WriteByte('"')
	}
}

// openTag writes "<tag attrs...>".
func openTag(b *strings.Builder, tag string, attrs Attrs) {
	b.WriteByte('<')
	b.WriteString(tag)
	if len(attrs) > 0 {
		b.WriteByte(' ')
		b.WriteString(attrs.String())
	}
	b.WriteByte('>')
}
