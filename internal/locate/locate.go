// Package locate decides how to link against an installed copy of the
// native library when it is not built from bundled sources.
//
// The policy is priority ordered: an explicit directory hint, then a
// package-manager probe, then a plain dynamic link request left to the
// system linker. Exactly one of them produces the result.
package locate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goplus/magicsys/internal/config"
	"github.com/goplus/magicsys/internal/directive"
	"github.com/goplus/magicsys/internal/env"
	"github.com/goplus/magicsys/internal/probe"
	"github.com/goplus/magicsys/internal/target"
	"github.com/qiniu/x/log"
)

var (
	// ErrDirNotFound is returned when the directory hint names a missing path.
	ErrDirNotFound = errors.New("library directory does not exist")
	// ErrArtifactMissing is returned when the requested linkage has no
	// artifact in the hinted directory.
	ErrArtifactMissing = errors.New("library artifact not found")
	// ErrNoArtifacts is returned when auto-detection finds neither artifact.
	ErrNoArtifacts = errors.New("no library artifact found")
	// ErrAmbiguous is returned when auto-detection finds both artifacts.
	ErrAmbiguous = errors.New("both static and shared libraries found")
)

// Outcome tells which branch of the policy produced a result.
type Outcome int

const (
	Directory Outcome = iota + 1
	PackageManager
	Fallback
	Bundled
)

var outcomeNames = [...]string{
	Directory:      "directory",
	PackageManager: "package-manager",
	Fallback:       "fallback",
	Bundled:        "bundled",
}

func (o Outcome) String() string {
	if o > 0 && int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// ParseOutcome is the inverse of Outcome.String.
func ParseOutcome(s string) (Outcome, error) {
	for i, name := range outcomeNames {
		if name != "" && name == s {
			return Outcome(i), nil
		}
	}
	return 0, fmt.Errorf("locate: unknown outcome %q", s)
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(text []byte) error {
	v, err := ParseOutcome(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// Result is what the locator decided.
type Result struct {
	Outcome    Outcome
	Provider   string // package manager, set for PackageManager
	Version    string
	Directives directive.List
}

// Locator resolves an installed library.
type Locator struct {
	Env    env.Getter
	Config *config.Config
	Target target.Triple
	Probe  probe.Prober // nil skips the package-manager branch
	Logger *log.Logger
}

// Locate runs the policy. Errors are fatal to the build; an unsuccessful
// probe is not an error.
func (l *Locator) Locate(ctx context.Context) (*Result, error) {
	cfg := l.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := l.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	if dir, ok := l.Env.Get(cfg.Keys.Dir); ok {
		return l.fromDir(cfg, dir)
	}

	if res, err := l.probe(ctx, cfg); err != nil {
		logger.Infof("Could not find %s with a package manager: %v", cfg.Package, err)
	} else {
		logger.Infof("found %s %s via %s", cfg.Package, res.Version, res.Provider)
		return res, nil
	}

	var d directive.List
	d.LinkLib(directive.Dylib, cfg.Library)
	return &Result{Outcome: Fallback, Directives: d}, nil
}

func (l *Locator) probe(ctx context.Context, cfg *config.Config) (*Result, error) {
	if l.Probe == nil {
		return nil, fmt.Errorf("%w: no package manager configured", probe.ErrNotFound)
	}
	found, err := l.Probe.Probe(ctx, cfg.Package)
	if err != nil {
		return nil, err
	}
	var d directive.List
	d.Append(found.Directives)
	for _, lib := range cfg.Quirks[l.Target.OS] {
		d.LinkLib(directive.Dylib, lib)
	}
	return &Result{
		Outcome:    PackageManager,
		Provider:   found.Provider,
		Version:    found.Version,
		Directives: d,
	}, nil
}

func (l *Locator) fromDir(cfg *config.Config, dir string) (*Result, error) {
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("%w: %s=%q", ErrDirNotFound, cfg.Keys.Dir, dir)
	}

	staticPath := filepath.Join(dir, cfg.Artifacts.Static)
	sharedPath := filepath.Join(dir, cfg.Artifacts.Shared)
	hasStatic, hasShared := isFile(staticPath), isFile(sharedPath)

	var kind directive.LinkKind
	switch want, _ := l.Env.Get(cfg.Keys.Static); {
	case want != "" && isFalse(want):
		if !hasShared {
			return nil, fmt.Errorf("%w: %s (%s=%s)", ErrArtifactMissing, sharedPath, cfg.Keys.Static, want)
		}
		kind = directive.Dylib
	case want != "":
		if !hasStatic {
			return nil, fmt.Errorf("%w: %s (%s=%s)", ErrArtifactMissing, staticPath, cfg.Keys.Static, want)
		}
		kind = directive.Static
	case hasStatic && hasShared:
		return nil, fmt.Errorf("%w in %s: specify %s=true|false", ErrAmbiguous, dir, cfg.Keys.Static)
	case hasStatic:
		kind = directive.Static
	case hasShared:
		kind = directive.Dylib
	default:
		return nil, fmt.Errorf("%w: neither %s nor %s in %s", ErrNoArtifacts, cfg.Artifacts.Static, cfg.Artifacts.Shared, dir)
	}

	var d directive.List
	d.LinkSearch(dir)
	d.LinkLib(kind, cfg.Library)
	return &Result{Outcome: Directory, Directives: d}, nil
}

// isFalse reports whether a linkage preference asks for shared linkage.
func isFalse(s string) bool {
	return strings.EqualFold(s, "false") || s == "0"
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
