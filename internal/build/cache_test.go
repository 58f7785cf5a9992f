package build

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/goplus/magicsys/internal/config"
	"github.com/goplus/magicsys/internal/directive"
	"github.com/goplus/magicsys/internal/env"
	"github.com/goplus/magicsys/internal/locate"
)

func TestSaveAndLoadBuildState(t *testing.T) {
	tmpDir := t.TempDir()
	statePath := filepath.Join(tmpDir, "out", stateFile)

	now := time.Now().Truncate(time.Second)
	var l directive.List
	l.RerunIfEnvChanged("MAGIC_DIR")
	l.LinkSearch("/opt/magic/lib")
	l.LinkLib(directive.Static, "magic")
	state := &buildState{
		Target:     linuxTriple,
		Outcome:    locate.Directory,
		Vars:       []trackedVar{{Key: "MAGIC_DIR", Value: "/opt/magic/lib", Set: true}},
		Directives: l,
		BuildTime:  now,
	}

	if err := saveBuildState(statePath, state); err != nil {
		t.Fatalf("saveBuildState failed: %v", err)
	}

	loaded, err := loadBuildState(statePath)
	if err != nil {
		t.Fatalf("loadBuildState failed: %v", err)
	}
	if loaded.Outcome != locate.Directory || !reflect.DeepEqual(loaded.Directives, l) {
		t.Errorf("loaded = %+v, want %+v", loaded, state)
	}
	if !loaded.BuildTime.Truncate(time.Second).Equal(now) {
		t.Errorf("BuildTime mismatch: got %v, want %v", loaded.BuildTime, now)
	}
}

func TestLoadBuildState_NotExist(t *testing.T) {
	if _, err := loadBuildState(filepath.Join(t.TempDir(), "not_exist.json")); err == nil {
		t.Fatal("expected error for non-existent file, got nil")
	}
}

func TestLoadBuildState_InvalidJSON(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), stateFile)
	if err := os.WriteFile(statePath, []byte("invalid json"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	if _, err := loadBuildState(statePath); err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}

func TestUpToDate(t *testing.T) {
	keys := []string{"X86_64_UNKNOWN_LINUX_GNU_MAGIC_DIR", "MAGIC_DIR"}
	vars := env.Map{"MAGIC_DIR": "/a"}
	state := &buildState{
		Target:  linuxTriple,
		Config:  "cfg1",
		Outcome: locate.PackageManager,
		Vars:    snapshot(vars, keys),
	}

	tests := []struct {
		name   string
		vars   env.Map
		triple string
		config string
		want   bool
	}{
		{"unchanged", env.Map{"MAGIC_DIR": "/a"}, linuxTriple, "cfg1", true},
		{"value changed", env.Map{"MAGIC_DIR": "/b"}, linuxTriple, "cfg1", false},
		{"key removed", env.Map{}, linuxTriple, "cfg1", false},
		{"key added", env.Map{"MAGIC_DIR": "/a", "X86_64_UNKNOWN_LINUX_GNU_MAGIC_DIR": "/c"}, linuxTriple, "cfg1", false},
		{"set to empty", env.Map{"MAGIC_DIR": "/a", "X86_64_UNKNOWN_LINUX_GNU_MAGIC_DIR": ""}, linuxTriple, "cfg1", false},
		{"other target", env.Map{"MAGIC_DIR": "/a"}, "aarch64-apple-darwin", "cfg1", false},
		{"config changed", env.Map{"MAGIC_DIR": "/a"}, linuxTriple, "cfg2", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := state.upToDate(tt.vars, tt.triple, tt.config); got != tt.want {
				t.Errorf("upToDate() = %v, want %v", got, tt.want)
			}
		})
	}

	dir := *state
	dir.Outcome = locate.Directory
	if dir.upToDate(vars, linuxTriple, "cfg1") {
		t.Error("upToDate() reused a directory result")
	}
}

func TestConfigHash(t *testing.T) {
	a, err := configHash(config.Default())
	if err != nil {
		t.Fatal(err)
	}
	b, err := configHash(config.Default())
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("configHash() not stable: %s != %s", a, b)
	}

	cfg := config.Default()
	cfg.Library = "file"
	c, err := configHash(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if c == a {
		t.Error("configHash() ignores the library name")
	}
}
