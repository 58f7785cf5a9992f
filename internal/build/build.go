// Package build runs one resolution: it builds the bundled sources or
// locates an installed library, and reports the directives for the host
// build system together with every environment key the decision read.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/goplus/magicsys/internal/bundle"
	"github.com/goplus/magicsys/internal/cc"
	"github.com/goplus/magicsys/internal/config"
	"github.com/goplus/magicsys/internal/directive"
	"github.com/goplus/magicsys/internal/env"
	"github.com/goplus/magicsys/internal/locate"
	"github.com/goplus/magicsys/internal/probe"
	"github.com/goplus/magicsys/internal/target"
	"github.com/qiniu/x/log"
)

// Options configures a Builder.
type Options struct {
	Lookup  env.Lookup     // defaults to the process environment
	Config  *config.Config // defaults to config.Default()
	Bundled bool           // build from vendored sources; also enabled by Config.Bundled
	Root    string         // base of relative source paths in bundled mode

	// Prober overrides the package-manager probe. When nil, vcpkg then
	// pkg-config are tried, both reading their settings through the resolver.
	Prober probe.Prober
	Runner cc.Runner
	Logger *log.Logger

	// Incremental reuses the recorded result when no tracked key changed.
	Incremental bool
}

// Result is the outcome of a build.
type Result struct {
	Outcome    locate.Outcome
	Target     string
	Provider   string
	Version    string
	Directives directive.List // change-tracking directives come first
	Cached     bool
}

// Builder resolves how to link the configured library for one target.
type Builder struct {
	opts   Options
	logger *log.Logger
}

// NewBuilder creates a Builder, filling unset options with the process
// environment, the default configuration and a discarding logger.
func NewBuilder(opts Options) *Builder {
	if opts.Lookup == nil {
		opts.Lookup = env.OS
	}
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Builder{opts: opts, logger: logger}
}

// Build resolves the library once.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	var tracked directive.List
	r, err := env.NewResolver(b.opts.Lookup, tracked.RerunIfEnvChanged)
	if err != nil {
		return nil, err
	}
	triple, err := target.Parse(r.Triple())
	if err != nil {
		return nil, err
	}
	cfg := b.opts.Config
	outDir, _ := b.opts.Lookup.LookupEnv(env.OutDirKey)

	if b.opts.Bundled || cfg.Bundled {
		b.logger.Infof("building bundled %s %s for %s", cfg.Package, cfg.Version, triple)
		l, err := bundle.Build(ctx, bundle.Options{
			OutDir: outDir,
			Root:   b.opts.Root,
			Config: cfg,
			Target: triple,
			Env:    r,
			Runner: b.opts.Runner,
			Logger: b.logger,
		})
		if err != nil {
			return nil, err
		}
		return &Result{
			Outcome:    locate.Bundled,
			Target:     r.Triple(),
			Version:    cfg.Version,
			Directives: append(tracked, l...),
		}, nil
	}

	statePath := ""
	if outDir != "" {
		statePath = filepath.Join(outDir, stateFile)
	}
	cfgHash, err := configHash(cfg)
	if err != nil {
		return nil, fmt.Errorf("build: hash config: %w", err)
	}
	if b.opts.Incremental && statePath != "" {
		state, err := loadBuildState(statePath)
		switch {
		case err == nil && state.upToDate(b.opts.Lookup, r.Triple(), cfgHash):
			b.logger.Infof("%s unchanged, reusing %s result", statePath, state.Outcome)
			return state.result(), nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			b.logger.Warnf("ignoring unreadable state %s: %v", statePath, err)
		}
	}

	prober := b.opts.Prober
	if prober == nil {
		prober = probe.Chain{
			&probe.Vcpkg{Env: r, Target: triple},
			&probe.PkgConfig{Env: r, Runner: b.opts.Runner, MinVersion: cfg.MinVersion},
		}
	}
	loc := &locate.Locator{
		Env:    r,
		Config: cfg,
		Target: triple,
		Probe:  prober,
		Logger: b.logger,
	}
	found, err := loc.Locate(ctx)
	if err != nil {
		return nil, err
	}
	b.logger.Debugf("%s resolved by %s", cfg.Package, found.Outcome)

	res := &Result{
		Outcome:    found.Outcome,
		Target:     r.Triple(),
		Provider:   found.Provider,
		Version:    found.Version,
		Directives: append(tracked, found.Directives...),
	}
	if statePath != "" {
		state := &buildState{
			Target:     res.Target,
			Config:     cfgHash,
			Outcome:    res.Outcome,
			Provider:   res.Provider,
			Version:    res.Version,
			Vars:       snapshot(b.opts.Lookup, r.Tracked()),
			Directives: res.Directives,
			BuildTime:  time.Now(),
		}
		if err := saveBuildState(statePath, state); err != nil {
			return nil, fmt.Errorf("build: save state: %w", err)
		}
	}
	return res, nil
}
