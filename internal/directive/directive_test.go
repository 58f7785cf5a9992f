package directive

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestDirectiveString(t *testing.T) {
	tests := []struct {
		d    Directive
		want string
	}{
		{Directive{Kind: RerunIfEnvChanged, Name: "MAGIC_DIR"}, "rerun-if-env-changed=MAGIC_DIR"},
		{Directive{Kind: LinkSearch, Value: "/opt/magic/lib"}, "link-search=native=/opt/magic/lib"},
		{Directive{Kind: LinkLib, Link: Static, Name: "magic"}, "link-lib=static=magic"},
		{Directive{Kind: LinkLib, Link: Dylib, Name: "shlwapi"}, "link-lib=dylib=shlwapi"},
		{Directive{Kind: Define, Name: "VERSION", Value: "5.45"}, "define=VERSION=5.45"},
		{Directive{Kind: Define, Name: "NDEBUG"}, "define=NDEBUG"},
		{Directive{Kind: Include, Value: "/out/include"}, "include=/out/include"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.d.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestListOrder(t *testing.T) {
	var l List
	l.RerunIfEnvChanged("MAGIC_DIR")
	l.LinkSearch("/lib")
	l.LinkLib(Dylib, "magic")

	var other List
	other.Define("A", "1")
	l.Append(other)

	want := List{
		{Kind: RerunIfEnvChanged, Name: "MAGIC_DIR"},
		{Kind: LinkSearch, Value: "/lib"},
		{Kind: LinkLib, Link: Dylib, Name: "magic"},
		{Kind: Define, Name: "A", Value: "1"},
	}
	if !reflect.DeepEqual(l, want) {
		t.Errorf("list = %+v, want %+v", l, want)
	}
	if got := l.Filter(LinkLib); len(got) != 1 || got[0].Name != "magic" {
		t.Errorf("Filter(LinkLib) = %+v", got)
	}
}

func TestWriteLines(t *testing.T) {
	var l List
	l.RerunIfEnvChanged("MAGIC_DIR")
	l.LinkLib(Dylib, "magic")

	var buf bytes.Buffer
	if err := WriteLines(&buf, "cargo:", l); err != nil {
		t.Fatal(err)
	}
	want := "cargo:rerun-if-env-changed=MAGIC_DIR\ncargo:link-lib=dylib=magic\n"
	if got := buf.String(); got != want {
		t.Errorf("WriteLines() = %q, want %q", got, want)
	}
}

func TestCgoFlags(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "libmagic.a"), []byte("!<arch>\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var l List
	l.RerunIfEnvChanged("MAGIC_DIR")
	l.Include("/out/include")
	l.Define("VERSION", "5.45")
	l.Define("VERSION", "5.45")
	l.LinkSearch(dir)
	l.LinkLib(Static, "magic")
	l.LinkLib(Dylib, "shlwapi")
	l.LinkLib(Static, "z")

	got := CgoFlags(l)
	wantC := []string{"-I/out/include", "-DVERSION=5.45"}
	wantLD := []string{"-L" + dir, filepath.ToSlash(filepath.Join(dir, "libmagic.a")), "-lshlwapi", "-lz"}
	if !reflect.DeepEqual(got.CFLAGS, wantC) {
		t.Errorf("CFLAGS = %v, want %v", got.CFLAGS, wantC)
	}
	if !reflect.DeepEqual(got.LDFLAGS, wantLD) {
		t.Errorf("LDFLAGS = %v, want %v", got.LDFLAGS, wantLD)
	}
}

func TestCgoFileWrite(t *testing.T) {
	var l List
	l.RerunIfEnvChanged("MAGIC_DIR")
	l.Include("/path with space/include")
	l.LinkLib(Dylib, "magic")

	var buf bytes.Buffer
	c := CgoFile{Package: "magic", Constraint: "linux && amd64"}
	if err := c.Write(&buf, l); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"// Code generated by magicsys; DO NOT EDIT.\n",
		"//\tMAGIC_DIR\n",
		"//go:build linux && amd64\n\npackage magic\n",
		"// #cgo CFLAGS: \"-I/path with space/include\"\n",
		"// #cgo LDFLAGS: -lmagic\n",
		"import \"C\"\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("generated file missing %q:\n%s", want, out)
		}
	}
}

func TestCgoFileWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "zcgo_magic.go")
	var l List
	l.LinkLib(Dylib, "magic")
	if err := (CgoFile{}).WriteFile(path, l); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "package main\n") {
		t.Errorf("default package not main:\n%s", data)
	}
	if strings.Contains(string(data), "//go:build") {
		t.Errorf("unexpected build constraint:\n%s", data)
	}
}
