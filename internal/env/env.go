package env

import (
	"errors"
	"os"

	"github.com/goplus/magicsys/internal/target"
)

// Variables provided by the invoking build system.
const (
	TargetKey = "TARGET"
	OutDirKey = "OUT_DIR"
)

// ErrNoTarget is returned when the build system did not provide TARGET.
var ErrNoTarget = errors.New("env: TARGET is not set by the build system")

// Lookup provides configuration values by key.
type Lookup interface {
	LookupEnv(key string) (string, bool)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(key string) (string, bool)

func (f LookupFunc) LookupEnv(key string) (string, bool) {
	return f(key)
}

// Map is an in-memory Lookup.
type Map map[string]string

func (m Map) LookupEnv(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// OS reads the process environment.
var OS Lookup = LookupFunc(os.LookupEnv)

// Getter resolves a bare configuration name to its effective value.
type Getter interface {
	Get(name string) (string, bool)
}

// Source tells which key supplied a resolved value.
type Source int

const (
	SourceNone Source = iota
	SourcePrefixed
	SourceBare
)

func (s Source) String() string {
	switch s {
	case SourcePrefixed:
		return "target"
	case SourceBare:
		return "global"
	}
	return "unset"
}

// Resolver implements two-tier lookup: {TRIPLE}_{NAME} wins over NAME.
// Every key it consults is declared through the track callback so the
// build system can re-run when one of them changes.
type Resolver struct {
	lookup  Lookup
	triple  string
	prefix  string
	track   func(key string)
	tracked []string
	seen    map[string]bool
}

// NewResolver reads TARGET from lookup. track may be nil.
func NewResolver(lookup Lookup, track func(key string)) (*Resolver, error) {
	triple, ok := lookup.LookupEnv(TargetKey)
	if !ok || triple == "" {
		return nil, ErrNoTarget
	}
	return &Resolver{
		lookup: lookup,
		triple: triple,
		prefix: target.Normalize(triple),
		track:  track,
		seen:   map[string]bool{},
	}, nil
}

// Triple returns the raw target triple.
func (r *Resolver) Triple() string {
	return r.triple
}

// PrefixedKey returns the target-specific key for name.
func (r *Resolver) PrefixedKey(name string) string {
	return r.prefix + "_" + name
}

// Get returns the effective value of name.
func (r *Resolver) Get(name string) (string, bool) {
	v, _, ok := r.Explain(name)
	return v, ok
}

// Explain is like Get and also reports which key supplied the value.
func (r *Resolver) Explain(name string) (string, Source, bool) {
	prefixed := r.PrefixedKey(name)
	r.declare(prefixed)
	r.declare(name)

	if v, ok := r.lookup.LookupEnv(prefixed); ok {
		return v, SourcePrefixed, true
	}
	if v, ok := r.lookup.LookupEnv(name); ok {
		return v, SourceBare, true
	}
	return "", SourceNone, false
}

// Lookup reads key verbatim, without the target prefix, and tracks it.
func (r *Resolver) Lookup(key string) (string, bool) {
	r.declare(key)
	return r.lookup.LookupEnv(key)
}

// Tracked returns every key declared so far, in declaration order.
func (r *Resolver) Tracked() []string {
	out := make([]string, len(r.tracked))
	copy(out, r.tracked)
	return out
}

func (r *Resolver) declare(key string) {
	if r.seen[key] {
		return
	}
	r.seen[key] = true
	r.tracked = append(r.tracked, key)
	if r.track != nil {
		r.track(key)
	}
}
