package probe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goplus/magicsys/internal/directive"
	"github.com/goplus/magicsys/internal/target"
)

// ErrDisabled is returned when VCPKGRS_DISABLE is set.
var ErrDisabled = errors.New("vcpkg: disabled by VCPKGRS_DISABLE")

// Vcpkg probes a vcpkg installation tree.
//
// The tree root comes from VCPKG_ROOT (or VCPKG_INSTALLATION_ROOT, which
// hosted CI images set) and the triplet from VCPKGRS_TRIPLET or the target.
type Vcpkg struct {
	Env    Getter
	Target target.Triple
}

func (v *Vcpkg) Probe(ctx context.Context, name string) (*Result, error) {
	if get(v.Env, "VCPKGRS_DISABLE") != "" {
		return nil, ErrDisabled
	}
	root := get(v.Env, "VCPKG_ROOT")
	if root == "" {
		root = get(v.Env, "VCPKG_INSTALLATION_ROOT")
	}
	if root == "" {
		return nil, fmt.Errorf("vcpkg: %w: %s: VCPKG_ROOT is not set", ErrNotFound, name)
	}
	triplet := get(v.Env, "VCPKGRS_TRIPLET")
	if triplet == "" {
		t, err := Triplet(v.Target)
		if err != nil {
			return nil, err
		}
		triplet = t
	}

	version, err := installedVersion(root, name, triplet)
	if err != nil {
		return nil, err
	}

	installed := filepath.Join(root, "installed", triplet)
	libDir := filepath.Join(installed, "lib")
	link, err := findLib(libDir, libName(name), v.Target.IsWindows())
	if err != nil {
		return nil, err
	}

	kind := directive.Static
	if v.Target.IsWindows() && !strings.HasSuffix(triplet, "-static") && !strings.HasSuffix(triplet, "-static-md") {
		kind = directive.Dylib
	}

	var l directive.List
	l.LinkSearch(libDir)
	l.LinkLib(kind, link)
	l.Include(filepath.Join(installed, "include"))
	return &Result{Provider: "vcpkg", Version: version, Directives: l}, nil
}

// installedVersion reads the version from the package's info list file,
// named <port>_<version>_<triplet>.list.
func installedVersion(root, port, triplet string) (string, error) {
	pattern := filepath.Join(root, "installed", "vcpkg", "info", port+"_*_"+triplet+".list")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("vcpkg: %w: %s:%s", ErrNotFound, port, triplet)
	}
	base := strings.TrimSuffix(filepath.Base(matches[0]), ".list")
	base = strings.TrimPrefix(base, port+"_")
	return strings.TrimSuffix(base, "_"+triplet), nil
}

// findLib returns the link name of the library archive in dir.
func findLib(dir, lib string, windows bool) (string, error) {
	var candidates []string
	if windows {
		candidates = []string{lib + ".lib", "lib" + lib + ".lib"}
	} else {
		candidates = []string{"lib" + lib + ".a"}
	}
	for _, c := range candidates {
		if _, err := os.Stat(filepath.Join(dir, c)); err == nil {
			if windows {
				return strings.TrimSuffix(c, ".lib"), nil
			}
			return lib, nil
		}
	}
	return "", fmt.Errorf("vcpkg: %w: none of %s in %s", ErrNotFound, strings.Join(candidates, ", "), dir)
}

// Triplet maps a target triple to the default vcpkg triplet.
func Triplet(t target.Triple) (string, error) {
	var arch string
	switch t.Arch {
	case "x86_64":
		arch = "x64"
	case "i586", "i686":
		arch = "x86"
	case "aarch64":
		arch = "arm64"
	case "armv7", "thumbv7a":
		arch = "arm"
	default:
		return "", fmt.Errorf("vcpkg: unsupported architecture %q", t.Arch)
	}
	switch {
	case t.IsWindows() && t.Env == "gnu":
		return arch + "-mingw-dynamic", nil
	case t.IsWindows():
		return arch + "-windows", nil
	case t.IsApple() && t.OS == "darwin":
		return arch + "-osx", nil
	case t.OS == "linux" && t.Env != "android":
		return arch + "-linux", nil
	}
	return "", fmt.Errorf("vcpkg: no default triplet for %s", t)
}
