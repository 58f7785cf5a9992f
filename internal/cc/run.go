package cc

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/sys/execabs"
)

// Command is one external tool invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  map[string]string // merged over the process environment
}

func (c *Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes a command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, cmd *Command) ([]byte, error)
}

// RunFunc adapts a function to Runner.
type RunFunc func(ctx context.Context, cmd *Command) ([]byte, error)

func (f RunFunc) Run(ctx context.Context, cmd *Command) ([]byte, error) {
	return f(ctx, cmd)
}

// Exec runs commands as child processes.
var Exec Runner = RunFunc(execRun)

func execRun(ctx context.Context, c *Command) ([]byte, error) {
	cmd := execabs.CommandContext(ctx, c.Name, c.Args...)
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	if len(c.Env) > 0 {
		cmd.Env = mergeEnv(os.Environ(), c.Env)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return stdout.Bytes(), fmt.Errorf("%s: %w", c.Name, err)
		}
		return stdout.Bytes(), fmt.Errorf("%s: %w: %s", c.Name, err, msg)
	}
	return stdout.Bytes(), nil
}

func mergeEnv(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range override {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}
