package probe

import (
	"context"
	"fmt"
	"strings"

	"github.com/goplus/magicsys/internal/cc"
	"github.com/goplus/magicsys/internal/directive"
)

// PkgConfig probes the pkg-config database.
//
// PKG_CONFIG selects the executable, PKG_CONFIG_PATH is forwarded to it and
// PKG_CONFIG_ALL_STATIC asks for static linkage. All three are read through
// Env, so target-prefixed overrides apply.
type PkgConfig struct {
	Env        Getter
	Runner     cc.Runner
	MinVersion string // optional lower bound, compared with GNU version ordering
}

func (p *PkgConfig) Probe(ctx context.Context, name string) (*Result, error) {
	tool := get(p.Env, "PKG_CONFIG")
	if tool == "" {
		tool = "pkg-config"
	}
	run := p.Runner
	if run == nil {
		run = cc.Exec
	}
	cmdEnv := map[string]string{}
	if path := get(p.Env, "PKG_CONFIG_PATH"); path != "" {
		cmdEnv["PKG_CONFIG_PATH"] = path
	}
	static := get(p.Env, "PKG_CONFIG_ALL_STATIC") != ""

	out, err := run.Run(ctx, &cc.Command{Name: tool, Args: []string{"--modversion", name}, Env: cmdEnv})
	if err != nil {
		return nil, fmt.Errorf("pkg-config: %w: %s: %v", ErrNotFound, name, err)
	}
	version := strings.TrimSpace(string(out))
	if p.MinVersion != "" && compareVersions(version, p.MinVersion) < 0 {
		return nil, fmt.Errorf("pkg-config: %s %s is older than required %s", name, version, p.MinVersion)
	}

	args := []string{"--cflags", "--libs"}
	if static {
		args = append(args, "--static")
	}
	args = append(args, name)
	out, err = run.Run(ctx, &cc.Command{Name: tool, Args: args, Env: cmdEnv})
	if err != nil {
		return nil, fmt.Errorf("pkg-config: %s: %w", name, err)
	}

	kind := directive.Dylib
	if static {
		kind = directive.Static
	}
	return &Result{
		Provider:   "pkg-config",
		Version:    version,
		Directives: parseFlags(string(out), kind),
	}, nil
}

// parseFlags translates pkg-config output into directives. Flags with no
// directive equivalent, such as -pthread, are dropped.
func parseFlags(out string, kind directive.LinkKind) directive.List {
	var l directive.List
	for _, f := range strings.Fields(out) {
		switch {
		case strings.HasPrefix(f, "-L") && len(f) > 2:
			l.LinkSearch(f[2:])
		case strings.HasPrefix(f, "-l") && len(f) > 2:
			l.LinkLib(kind, f[2:])
		case strings.HasPrefix(f, "-I") && len(f) > 2:
			l.Include(f[2:])
		case strings.HasPrefix(f, "-D") && len(f) > 2:
			name, value, _ := strings.Cut(f[2:], "=")
			l.Define(name, value)
		}
	}
	return l
}
