package build

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/goplus/magicsys/internal/config"
	"github.com/goplus/magicsys/internal/directive"
	"github.com/goplus/magicsys/internal/env"
	"github.com/goplus/magicsys/internal/locate"
)

// Output directory layout:
//
//	OUT_DIR/
//	  .magicsys.json    # state of the last resolution
//	  include/          # bundled mode only
//	  libmagic.a
const stateFile = ".magicsys.json"

// trackedVar is the value a tracked key had when the state was recorded.
type trackedVar struct {
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
	Set   bool   `json:"set"`
}

// buildState records the result of one resolution and the environment it
// depended on.
type buildState struct {
	Target     string         `json:"target"`
	Config     string         `json:"config"`
	Outcome    locate.Outcome `json:"outcome"`
	Provider   string         `json:"provider,omitempty"`
	Version    string         `json:"version,omitempty"`
	Vars       []trackedVar   `json:"vars"`
	Directives directive.List `json:"directives"`
	BuildTime  time.Time      `json:"build_time"`
}

// snapshot captures the current value of every key.
func snapshot(lookup env.Lookup, keys []string) []trackedVar {
	vars := make([]trackedVar, 0, len(keys))
	for _, k := range keys {
		v, ok := lookup.LookupEnv(k)
		vars = append(vars, trackedVar{Key: k, Value: v, Set: ok})
	}
	return vars
}

// configHash identifies the library settings a state was recorded with.
func configHash(cfg *config.Config) (string, error) {
	data, err := cfg.Marshal()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// upToDate reports whether the state was recorded for triple with the same
// settings and no tracked key changed since. A directory result is never
// reused: its directory and artifacts must be checked on every run.
func (s *buildState) upToDate(lookup env.Lookup, triple, cfgHash string) bool {
	if s.Target != triple || s.Config != cfgHash || s.Outcome == locate.Directory {
		return false
	}
	for _, tv := range s.Vars {
		v, ok := lookup.LookupEnv(tv.Key)
		if ok != tv.Set || v != tv.Value {
			return false
		}
	}
	return true
}

func (s *buildState) result() *Result {
	return &Result{
		Outcome:    s.Outcome,
		Target:     s.Target,
		Provider:   s.Provider,
		Version:    s.Version,
		Directives: s.Directives,
		Cached:     true,
	}
}

func loadBuildState(path string) (*buildState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var state buildState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func saveBuildState(path string, state *buildState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
