// Package source unpacks vendored C source archives.
package source

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// ErrUnsafePath is returned for archive entries that would land outside
// the destination directory.
var ErrUnsafePath = errors.New("source: unsafe path in archive")

var (
	xzSuffixes   = []string{".tar.xz", ".txz"}
	zstdSuffixes = []string{".tar.zst", ".tzst"}
)

func hasSuffix(path string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}

// IsArchive reports whether path names a supported source archive.
func IsArchive(path string) bool {
	return hasSuffix(path, xzSuffixes) || hasSuffix(path, zstdSuffixes)
}

// Extract unpacks the .tar.xz or .tar.zst archive at path into destDir.
func Extract(path, destDir string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if hasSuffix(path, zstdSuffixes) {
		return ExtractZstdReader(f, destDir)
	}
	return ExtractReader(f, destDir)
}

// ExtractReader unpacks an xz-compressed tar stream into destDir.
// Only regular files and directories are written.
func ExtractReader(r io.Reader, destDir string) error {
	xr, err := xz.NewReader(r)
	if err != nil {
		return fmt.Errorf("source: xz: %w", err)
	}
	return extractTar(xr, destDir)
}

// ExtractZstdReader unpacks a zstd-compressed tar stream into destDir.
func ExtractZstdReader(r io.Reader, destDir string) error {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("source: zstd: %w", err)
	}
	defer zr.Close()
	return extractTar(zr, destDir)
}

func extractTar(r io.Reader, destDir string) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return err
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if errors.Is(err, tar.ErrInsecurePath) {
			return fmt.Errorf("%w: %s", ErrUnsafePath, hdr.Name)
		}
		if err != nil {
			return fmt.Errorf("source: %w", err)
		}
		target, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		}
	}
}

func writeFile(path string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if perm == 0 {
		perm = 0644
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func safeJoin(root, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	p := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return p, nil
}
