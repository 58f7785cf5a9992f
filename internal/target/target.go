// Package target parses and normalizes target triples.
package target

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrEmptyTriple is returned when an empty triple is parsed.
var ErrEmptyTriple = errors.New("target: empty triple")

// Triple is an arch-vendor-os[-env] platform identifier.
type Triple struct {
	Arch   string
	Vendor string
	OS     string
	Env    string
}

// knownOS lists the OS components that may appear in second position of a
// vendor-less triple such as "aarch64-linux-android".
var knownOS = map[string]bool{
	"linux":   true,
	"windows": true,
	"darwin":  true,
	"ios":     true,
	"android": true,
	"freebsd": true,
	"netbsd":  true,
	"openbsd": true,
	"none":    true,
	"wasi":    true,
}

// Parse splits triple into its components.
func Parse(triple string) (Triple, error) {
	triple = strings.TrimSpace(triple)
	if triple == "" {
		return Triple{}, ErrEmptyTriple
	}
	parts := strings.Split(triple, "-")
	switch {
	case len(parts) == 1:
		return Triple{}, fmt.Errorf("target: malformed triple %q", triple)
	case len(parts) == 2:
		return Triple{Arch: parts[0], Vendor: "unknown", OS: parts[1]}, nil
	case len(parts) == 3 && knownOS[parts[1]]:
		return Triple{Arch: parts[0], Vendor: "unknown", OS: parts[1], Env: parts[2]}, nil
	}
	return Triple{
		Arch:   parts[0],
		Vendor: parts[1],
		OS:     parts[2],
		Env:    strings.Join(parts[3:], "-"),
	}, nil
}

// String returns the canonical hyphen-joined form.
func (t Triple) String() string {
	s := t.Arch + "-" + t.Vendor + "-" + t.OS
	if t.Env != "" {
		s += "-" + t.Env
	}
	return s
}

// IsWindows reports whether the triple targets Windows.
func (t Triple) IsWindows() bool {
	return t.OS == "windows"
}

// IsApple reports whether the triple targets an Apple platform.
func (t Triple) IsApple() bool {
	return t.Vendor == "apple"
}

// Normalize uppercases triple and replaces every run of non-alphanumeric
// characters with a single underscore, so it can prefix an environment
// variable name. Normalize(Normalize(s)) == Normalize(s).
func Normalize(triple string) string {
	var b strings.Builder
	b.Grow(len(triple))
	sep := false
	for _, r := range strings.ToUpper(triple) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			sep = false
			continue
		}
		if !sep {
			b.WriteByte('_')
			sep = true
		}
	}
	return b.String()
}

// Host returns the triple of the platform the tool itself runs on.
func Host() Triple {
	return fromGo(runtime.GOOS, runtime.GOARCH)
}

func fromGo(goos, goarch string) Triple {
	arch := goarch
	switch goarch {
	case "amd64":
		arch = "x86_64"
	case "386":
		arch = "i686"
	case "arm64":
		arch = "aarch64"
	case "arm":
		arch = "armv7"
	case "ppc64le":
		arch = "powerpc64le"
	case "riscv64":
		arch = "riscv64gc"
	}
	switch goos {
	case "darwin":
		return Triple{Arch: arch, Vendor: "apple", OS: "darwin"}
	case "ios":
		return Triple{Arch: arch, Vendor: "apple", OS: "ios"}
	case "windows":
		return Triple{Arch: arch, Vendor: "pc", OS: "windows", Env: "msvc"}
	case "linux":
		env := "gnu"
		if goarch == "arm" {
			env = "gnueabihf"
		}
		return Triple{Arch: arch, Vendor: "unknown", OS: "linux", Env: env}
	case "android":
		return Triple{Arch: arch, Vendor: "unknown", OS: "linux", Env: "android"}
	}
	return Triple{Arch: arch, Vendor: "unknown", OS: goos}
}
