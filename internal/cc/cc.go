// Package cc compiles C translation units into a static archive.
package cc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/qiniu/x/log"
	"golang.org/x/sync/errgroup"
)

// ErrNoFiles is returned by Compile when no translation unit was added.
var ErrNoFiles = errors.New("cc: no source files")

type define struct {
	name  string
	value string
}

// Build wraps a C compilation with chainable configuration.
type Build struct {
	compiler string
	archiver string
	cflags   []string
	includes []string
	defines  []define
	flags    []string
	files    []string
	outDir   string
	pic      bool
	jobs     int
	env      map[string]string
	run      Runner
	logger   *log.Logger
}

// New creates a Build using "cc" and "ar" found in PATH.
func New() *Build {
	return &Build{
		compiler: "cc",
		archiver: "ar",
		pic:      true,
		jobs:     1,
		env:      map[string]string{},
		run:      Exec,
		logger:   log.New(io.Discard, "", 0),
	}
}

// Compiler sets the C compiler. An empty path keeps the current one.
func (b *Build) Compiler(path string) *Build {
	if path != "" {
		b.compiler = path
	}
	return b
}

// Archiver sets the static archiver. An empty path keeps the current one.
func (b *Build) Archiver(path string) *Build {
	if path != "" {
		b.archiver = path
	}
	return b
}

// CFlags adds flags taken from a CFLAGS-style string, placed before all others.
func (b *Build) CFlags(s string) *Build {
	b.cflags = append(b.cflags, strings.Fields(s)...)
	return b
}

func (b *Build) Include(dir string) *Build {
	b.includes = append(b.includes, dir)
	return b
}

func (b *Build) Define(name, value string) *Build {
	b.defines = append(b.defines, define{name: name, value: value})
	return b
}

func (b *Build) Flag(flag string) *Build {
	b.flags = append(b.flags, flag)
	return b
}

func (b *Build) File(path string) *Build {
	b.files = append(b.files, path)
	return b
}

func (b *Build) Files(paths ...string) *Build {
	b.files = append(b.files, paths...)
	return b
}

// PIC toggles position independent code; it is on by default.
func (b *Build) PIC(on bool) *Build {
	b.pic = on
	return b
}

// Jobs sets how many translation units are compiled at once.
func (b *Build) Jobs(n int) *Build {
	if n > 0 {
		b.jobs = n
	}
	return b
}

// OutDir sets where objects and the archive are written.
func (b *Build) OutDir(dir string) *Build {
	b.outDir = dir
	return b
}

func (b *Build) Env(key, value string) *Build {
	b.env[key] = value
	return b
}

func (b *Build) Runner(r Runner) *Build {
	b.run = r
	return b
}

func (b *Build) Logger(l *log.Logger) *Build {
	if l != nil {
		b.logger = l
	}
	return b
}

// Sources returns the translation units added so far.
func (b *Build) Sources() []string {
	out := make([]string, len(b.files))
	copy(out, b.files)
	return out
}

// Args returns the compiler arguments used for src, without -c/-o.
func (b *Build) Args() []string {
	args := make([]string, 0, len(b.cflags)+len(b.includes)+len(b.defines)+len(b.flags)+1)
	args = append(args, b.cflags...)
	if b.pic {
		args = append(args, "-fPIC")
	}
	for _, dir := range b.includes {
		args = append(args, "-I"+dir)
	}
	for _, d := range b.defines {
		if d.value == "" {
			args = append(args, "-D"+d.name)
			continue
		}
		args = append(args, "-D"+d.name+"="+d.value)
	}
	return append(args, b.flags...)
}

// Compile builds every file into an object and archives them as
// lib<name>.a in the output directory. It returns the archive path.
func (b *Build) Compile(ctx context.Context, name string) (string, error) {
	if len(b.files) == 0 {
		return "", ErrNoFiles
	}
	outDir := b.outDir
	if outDir == "" {
		outDir = "."
	}
	objDir := filepath.Join(outDir, name+".objs")
	if err := os.MkdirAll(objDir, 0755); err != nil {
		return "", fmt.Errorf("cc: create object dir: %w", err)
	}

	objs := make([]string, len(b.files))
	used := map[string]int{}
	for i, src := range b.files {
		objs[i] = filepath.Join(objDir, objectName(src, used))
	}

	base := b.Args()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.jobs)
	for i, src := range b.files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			args := make([]string, 0, len(base)+4)
			args = append(args, base...)
			args = append(args, "-c", src, "-o", objs[i])
			cmd := &Command{Name: b.compiler, Args: args, Env: b.env}
			b.logger.Debug(cmd.String())
			if _, err := b.run.Run(gctx, cmd); err != nil {
				return fmt.Errorf("cc: compile %s: %w", src, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	lib := filepath.Join(outDir, "lib"+name+".a")
	if err := os.Remove(lib); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("cc: remove stale archive: %w", err)
	}
	cmd := &Command{Name: b.archiver, Args: append([]string{"crs", lib}, objs...), Env: b.env}
	b.logger.Debug(cmd.String())
	if _, err := b.run.Run(ctx, cmd); err != nil {
		return "", fmt.Errorf("cc: archive %s: %w", lib, err)
	}
	return lib, nil
}

// objectName derives a unique object file name from src.
func objectName(src string, used map[string]int) string {
	stem := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	n := used[stem]
	used[stem] = n + 1
	if n == 0 {
		return stem + ".o"
	}
	return fmt.Sprintf("%s-%d.o", stem, n)
}
