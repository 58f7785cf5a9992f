// Package probe queries system package managers for an installed native
// library. A probe either fails, which callers treat as an expected absence,
// or returns the directives needed to link against what it found.
package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goplus/magicsys/internal/directive"
)

// ErrNotFound reports that a package manager has no entry for a package.
var ErrNotFound = errors.New("package not found")

// Result describes a package found by a probe.
type Result struct {
	Provider   string
	Version    string
	Directives directive.List
}

// Prober looks a package up by name.
type Prober interface {
	Probe(ctx context.Context, name string) (*Result, error)
}

// Func adapts a function to Prober.
type Func func(ctx context.Context, name string) (*Result, error)

func (f Func) Probe(ctx context.Context, name string) (*Result, error) {
	return f(ctx, name)
}

// Chain tries each prober in order and returns the first success.
type Chain []Prober

func (c Chain) Probe(ctx context.Context, name string) (*Result, error) {
	if len(c) == 0 {
		return nil, fmt.Errorf("%w: %s: no package manager configured", ErrNotFound, name)
	}
	var errs []error
	for _, p := range c {
		res, err := p.Probe(ctx, name)
		if err == nil {
			return res, nil
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

// Getter resolves configuration values such as VCPKG_ROOT.
type Getter interface {
	Get(name string) (string, bool)
}

func get(g Getter, name string) string {
	if g == nil {
		return ""
	}
	v, _ := g.Get(name)
	return v
}

// libName strips the conventional "lib" prefix from a package name.
func libName(pkg string) string {
	if n := strings.TrimPrefix(pkg, "lib"); n != "" {
		return n
	}
	return pkg
}
