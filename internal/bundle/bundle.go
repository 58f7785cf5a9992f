// Package bundle compiles the vendored library sources into a static
// archive inside the build output directory.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/goplus/magicsys/internal/cc"
	"github.com/goplus/magicsys/internal/config"
	"github.com/goplus/magicsys/internal/directive"
	"github.com/goplus/magicsys/internal/env"
	"github.com/goplus/magicsys/internal/source"
	"github.com/goplus/magicsys/internal/target"
	"github.com/qiniu/x/log"
)

// ErrNoOutDir is returned when the build system did not provide OUT_DIR.
var ErrNoOutDir = errors.New("bundle: OUT_DIR is not set by the build system")

// Options configures a bundled build.
type Options struct {
	OutDir string
	Root   string // base of relative source paths, defaults to the working directory
	Config *config.Config
	Target target.Triple
	Env    env.Getter // supplies CC, AR, CFLAGS and NUM_JOBS; may be nil
	Jobs   int        // parallel compiles; 0 reads NUM_JOBS, then uses every CPU
	Runner cc.Runner
	Logger *log.Logger
}

// Units returns the translation units compiled for t, relative to the
// source directory.
func Units(cfg *config.Config, t target.Triple) []string {
	return cfg.Sources.For(t.Vendor)
}

// Build generates the public header and the shim header, compiles the
// sources and returns the directives linking the resulting archive.
func Build(ctx context.Context, opts Options) (directive.List, error) {
	if opts.OutDir == "" {
		return nil, ErrNoOutDir
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	srcDir, err := sourceDir(opts.Root, opts.OutDir, cfg.Source, logger)
	if err != nil {
		return nil, err
	}

	includeDir := filepath.Join(opts.OutDir, "include")
	if err := os.MkdirAll(includeDir, 0755); err != nil {
		return nil, fmt.Errorf("bundle: %w", err)
	}
	if err := writeHeader(cfg, filepath.Join(srcDir, cfg.Source.Template), filepath.Join(includeDir, cfg.Header)); err != nil {
		return nil, err
	}
	shim := filepath.Join(includeDir, cfg.Shim)
	if err := os.WriteFile(shim, []byte(cfg.ShimContent+"\n"), 0644); err != nil {
		return nil, fmt.Errorf("bundle: %w", err)
	}

	b := cc.New().
		Compiler(get(opts.Env, "CC")).
		Archiver(get(opts.Env, "AR")).
		CFlags(get(opts.Env, "CFLAGS")).
		OutDir(opts.OutDir).
		Jobs(jobs(opts)).
		Logger(logger).
		Include(srcDir).
		Include(includeDir).
		Flag("-include" + shim)
	if opts.Runner != nil {
		b.Runner(opts.Runner)
	}
	for _, d := range cfg.Defines {
		b.Define(d.Name, d.Value)
	}
	b.Define("VERSION", cfg.Version)
	for _, f := range Units(cfg, opts.Target) {
		b.File(filepath.Join(srcDir, f))
	}

	logger.Infof("compiling %d sources of %s %s", len(b.Sources()), cfg.Package, cfg.Version)
	lib, err := b.Compile(ctx, cfg.Library)
	if err != nil {
		return nil, fmt.Errorf("bundle: %w", err)
	}
	logger.Debug("archive", lib)

	var l directive.List
	l.LinkSearch(opts.OutDir)
	l.LinkLib(directive.Static, cfg.Library)
	l.Include(includeDir)
	return l, nil
}

// sourceDir returns the directory holding the C sources, extracting the
// configured archive into OUT_DIR/src first when there is one.
func sourceDir(root, outDir string, src config.Source, logger *log.Logger) (string, error) {
	if src.Archive == "" {
		return resolve(root, src.Dir), nil
	}
	archive := resolve(root, src.Archive)
	if !source.IsArchive(archive) {
		return "", fmt.Errorf("bundle: unsupported source archive %s", archive)
	}
	dest := filepath.Join(outDir, "src")
	if err := os.RemoveAll(dest); err != nil {
		return "", fmt.Errorf("bundle: %w", err)
	}
	logger.Infof("extracting %s", archive)
	if err := source.Extract(archive, dest); err != nil {
		return "", fmt.Errorf("bundle: %w", err)
	}
	return filepath.Join(dest, src.Subdir), nil
}

// writeHeader fills the version placeholder of the header template.
func writeHeader(cfg *config.Config, tmpl, out string) error {
	data, err := os.ReadFile(tmpl)
	if err != nil {
		return fmt.Errorf("bundle: read header template: %w", err)
	}
	text := string(data)
	if cfg.Placeholder != "" {
		text = strings.ReplaceAll(text, cfg.Placeholder, cfg.Version)
	}
	if err := os.WriteFile(out, []byte(text), 0644); err != nil {
		return fmt.Errorf("bundle: write header: %w", err)
	}
	return nil
}

func jobs(opts Options) int {
	if opts.Jobs > 0 {
		return opts.Jobs
	}
	if n, err := strconv.Atoi(get(opts.Env, "NUM_JOBS")); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

func resolve(root, path string) string {
	if filepath.IsAbs(path) || root == "" {
		return path
	}
	return filepath.Join(root, path)
}

func get(g env.Getter, name string) string {
	if g == nil {
		return ""
	}
	v, _ := g.Get(name)
	return v
}
