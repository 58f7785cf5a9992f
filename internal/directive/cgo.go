package directive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Flags holds the cgo compiler and linker flags derived from a List.
type Flags struct {
	CFLAGS  []string
	LDFLAGS []string
}

// CgoFlags folds l into cgo flags. A static library is referenced by its
// archive path when one of the preceding search directories holds it, so
// the linker cannot silently pick a shared object of the same name.
func CgoFlags(l List) Flags {
	var f Flags
	var searchDirs []string
	for _, d := range l {
		switch d.Kind {
		case Include:
			f.CFLAGS = appendUnique(f.CFLAGS, "-I"+d.Value)
		case Define:
			if d.Value == "" {
				f.CFLAGS = appendUnique(f.CFLAGS, "-D"+d.Name)
			} else {
				f.CFLAGS = appendUnique(f.CFLAGS, "-D"+d.Name+"="+d.Value)
			}
		case LinkSearch:
			searchDirs = append(searchDirs, d.Value)
			f.LDFLAGS = appendUnique(f.LDFLAGS, "-L"+d.Value)
		case LinkLib:
			f.LDFLAGS = appendUnique(f.LDFLAGS, linkFlag(d, searchDirs))
		}
	}
	return f
}

func linkFlag(d Directive, searchDirs []string) string {
	if d.Link == Static {
		archive := "lib" + d.Name + ".a"
		for _, dir := range searchDirs {
			p := filepath.Join(dir, archive)
			if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
				return filepath.ToSlash(p)
			}
		}
	}
	return "-l" + d.Name
}

func appendUnique(flags []string, flag string) []string {
	for _, f := range flags {
		if f == flag {
			return flags
		}
	}
	return append(flags, flag)
}

// CgoFile describes a generated Go source file carrying #cgo directives.
type CgoFile struct {
	Package    string
	Constraint string // optional //go:build expression
}

// Write renders l as a Go source file.
func (c CgoFile) Write(w io.Writer, l List) error {
	pkg := c.Package
	if pkg == "" {
		pkg = "main"
	}
	flags := CgoFlags(l)

	var b strings.Builder
	b.WriteString("// Code generated by magicsys; DO NOT EDIT.\n")
	if tracked := l.Filter(RerunIfEnvChanged); len(tracked) > 0 {
		b.WriteString("//\n// Regenerate when any of these variables change:\n")
		for _, d := range tracked {
			fmt.Fprintf(&b, "//\t%s\n", d.Name)
		}
	}
	b.WriteString("\n")
	if c.Constraint != "" {
		fmt.Fprintf(&b, "//go:build %s\n\n", c.Constraint)
	}
	fmt.Fprintf(&b, "package %s\n\n", pkg)
	if len(flags.CFLAGS) > 0 {
		fmt.Fprintf(&b, "// #cgo CFLAGS: %s\n", joinQuoted(flags.CFLAGS))
	}
	if len(flags.LDFLAGS) > 0 {
		fmt.Fprintf(&b, "// #cgo LDFLAGS: %s\n", joinQuoted(flags.LDFLAGS))
	}
	b.WriteString("import \"C\"\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteFile writes the generated source to path, creating its directory.
func (c CgoFile) WriteFile(path string, l List) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := c.Write(f, l); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func joinQuoted(flags []string) string {
	out := make([]string, len(flags))
	for i, f := range flags {
		if strings.ContainsAny(f, " \t") {
			out[i] = `"` + f + `"`
			continue
		}
		out[i] = f
	}
	return strings.Join(out, " ")
}
