package source

import (
	"archive/tar"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

type entry struct {
	name string
	body string
	dir  bool
}

func makeTar(t *testing.T, entries []entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0644, Size: int64(len(e.body)), Typeflag: tar.TypeReg}
		if e.dir {
			hdr = &tar.Header{Name: e.name, Mode: 0755, Typeflag: tar.TypeDir}
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if !e.dir {
			if _, err := tw.Write([]byte(e.body)); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func makeArchive(t *testing.T, entries []entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := xw.Write(makeTar(t, entries)); err != nil {
		t.Fatal(err)
	}
	if err := xw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func makeZstdArchive(t *testing.T, entries []entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := zw.Write(makeTar(t, entries)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtract(t *testing.T) {
	data := makeArchive(t, []entry{
		{name: "file-5.45/", dir: true},
		{name: "file-5.45/src/magic.h.in", body: "#define MAGIC_VERSION X.YY\n"},
		{name: "file-5.45/src/magic.c", body: "int x;\n"},
	})
	archive := filepath.Join(t.TempDir(), "file-5.45.tar.xz")
	if err := os.WriteFile(archive, data, 0644); err != nil {
		t.Fatal(err)
	}

	dest := t.TempDir()
	if err := Extract(archive, dest); err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dest, "file-5.45", "src", "magic.h.in"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "#define MAGIC_VERSION X.YY\n" {
		t.Errorf("extracted content = %q", got)
	}
	if _, err := os.Stat(filepath.Join(dest, "file-5.45", "src", "magic.c")); err != nil {
		t.Errorf("magic.c not extracted: %v", err)
	}
}

func TestExtractZstd(t *testing.T) {
	data := makeZstdArchive(t, []entry{
		{name: "file-5.45/src/magic.h.in", body: "X.YY\n"},
	})
	archive := filepath.Join(t.TempDir(), "file-5.45.tar.zst")
	if err := os.WriteFile(archive, data, 0644); err != nil {
		t.Fatal(err)
	}
	dest := t.TempDir()
	if err := Extract(archive, dest); err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if got, err := os.ReadFile(filepath.Join(dest, "file-5.45", "src", "magic.h.in")); err != nil || string(got) != "X.YY\n" {
		t.Errorf("extracted content = %q, %v", got, err)
	}

	bad := makeZstdArchive(t, []entry{{name: "../evil.c", body: "x"}})
	if err := ExtractZstdReader(bytes.NewReader(bad), t.TempDir()); !errors.Is(err, ErrUnsafePath) {
		t.Errorf("ExtractZstdReader() error = %v, want ErrUnsafePath", err)
	}
}

func TestExtractRejectsTraversal(t *testing.T) {
	for _, name := range []string{"../evil.c", "src/../../evil.c", "/etc/evil"} {
		t.Run(name, func(t *testing.T) {
			data := makeArchive(t, []entry{{name: name, body: "x"}})
			err := ExtractReader(bytes.NewReader(data), t.TempDir())
			if !errors.Is(err, ErrUnsafePath) {
				t.Errorf("ExtractReader(%q) error = %v, want ErrUnsafePath", name, err)
			}
		})
	}
}

func TestExtractNotXZ(t *testing.T) {
	if err := ExtractReader(bytes.NewReader([]byte("plain text")), t.TempDir()); err == nil {
		t.Error("ExtractReader() of non-xz data expected error")
	}
	if err := Extract(filepath.Join(t.TempDir(), "missing.tar.xz"), t.TempDir()); err == nil {
		t.Error("Extract() of missing archive expected error")
	}
}

func TestIsArchive(t *testing.T) {
	tests := map[string]bool{
		"file-5.45.tar.xz":  true,
		"file.txz":          true,
		"file/src":          false,
		"file-5.45.tar.zst": true,
		"file.tzst":         true,
		"file-5.45.tar.gz":  false,
	}
	for in, want := range tests {
		if got := IsArchive(in); got != want {
			t.Errorf("IsArchive(%q) = %v, want %v", in, got, want)
		}
	}
}
