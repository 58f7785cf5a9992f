// Package directive models the instructions handed to the host build system.
//
// Resolution code only appends records to a List; rendering them as text
// lines or as a cgo source file happens in the adapters of this package.
package directive

import (
	"fmt"
	"io"
	"strings"
)

// Kind identifies a directive.
type Kind int

const (
	RerunIfEnvChanged Kind = iota
	LinkSearch
	LinkLib
	Define
	Include
)

var kindNames = [...]string{
	RerunIfEnvChanged: "rerun-if-env-changed",
	LinkSearch:        "link-search",
	LinkLib:           "link-lib",
	Define:            "define",
	Include:           "include",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// LinkKind selects static or dynamic linkage.
type LinkKind string

const (
	Static LinkKind = "static"
	Dylib  LinkKind = "dylib"
)

// Directive is one instruction for the build system.
//
//	RerunIfEnvChanged  Name = env key
//	LinkSearch         Value = directory
//	LinkLib            Link + Name = library
//	Define             Name [= Value]
//	Include            Value = directory
type Directive struct {
	Kind  Kind     `json:"kind"`
	Link  LinkKind `json:"link,omitempty"`
	Name  string   `json:"name,omitempty"`
	Value string   `json:"value,omitempty"`
}

// String renders d in the line protocol, e.g. "link-lib=static=magic".
func (d Directive) String() string {
	switch d.Kind {
	case RerunIfEnvChanged:
		return d.Kind.String() + "=" + d.Name
	case LinkSearch:
		return d.Kind.String() + "=native=" + d.Value
	case LinkLib:
		return d.Kind.String() + "=" + string(d.Link) + "=" + d.Name
	case Define:
		if d.Value == "" {
			return d.Kind.String() + "=" + d.Name
		}
		return d.Kind.String() + "=" + d.Name + "=" + d.Value
	case Include:
		return d.Kind.String() + "=" + d.Value
	}
	return d.Kind.String()
}

// List is an ordered sequence of directives.
type List []Directive

func (l *List) RerunIfEnvChanged(key string) {
	*l = append(*l, Directive{Kind: RerunIfEnvChanged, Name: key})
}

func (l *List) LinkSearch(dir string) {
	*l = append(*l, Directive{Kind: LinkSearch, Value: dir})
}

func (l *List) LinkLib(kind LinkKind, name string) {
	*l = append(*l, Directive{Kind: LinkLib, Link: kind, Name: name})
}

func (l *List) Define(name, value string) {
	*l = append(*l, Directive{Kind: Define, Name: name, Value: value})
}

func (l *List) Include(dir string) {
	*l = append(*l, Directive{Kind: Include, Value: dir})
}

// Append adds all directives of other.
func (l *List) Append(other List) {
	*l = append(*l, other...)
}

// Filter returns the directives of the given kind.
func (l List) Filter(kind Kind) List {
	var out List
	for _, d := range l {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// WriteLines writes one directive per line, each preceded by prefix.
func WriteLines(w io.Writer, prefix string, l List) error {
	var b strings.Builder
	for _, d := range l {
		b.WriteString(prefix)
		b.WriteString(d.String())
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}
