// Package config holds the library-level settings of magicsys.
//
// The built-in defaults describe libmagic; a YAML file may override any of
// them, which keeps the resolver reusable for other single-library bindings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// Keys names the configuration values read through the environment resolver.
type Keys struct {
	Dir    string `yaml:"dir" toml:"dir"`
	Static string `yaml:"static" toml:"static"`
}

// Artifacts names the files expected inside a library directory.
type Artifacts struct {
	Static string `yaml:"static" toml:"static"`
	Shared string `yaml:"shared" toml:"shared"`
}

// Rule adjusts the translation units for one platform vendor.
type Rule struct {
	Include []string `yaml:"include,omitempty" toml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty" toml:"exclude,omitempty"`
}

// Sources is the declarative source table of the bundled build.
type Sources struct {
	Files   []string        `yaml:"files" toml:"files"`
	Vendors map[string]Rule `yaml:"vendors,omitempty" toml:"vendors,omitempty"`
}

// For returns the translation units compiled for vendor, in table order.
// Units a vendor rule includes come after the common ones.
func (s Sources) For(vendor string) []string {
	rule := s.Vendors[vendor]
	files := make([]string, 0, len(s.Files)+len(rule.Include))
	for _, f := range s.Files {
		if !slices.Contains(rule.Exclude, f) {
			files = append(files, f)
		}
	}
	for _, f := range rule.Include {
		if !slices.Contains(files, f) {
			files = append(files, f)
		}
	}
	return files
}

// Source locates the vendored C sources.
type Source struct {
	Dir      string `yaml:"dir" toml:"dir"`
	Template string `yaml:"template" toml:"template"`
	Archive  string `yaml:"archive,omitempty" toml:"archive,omitempty"` // optional .tar.xz or .tar.zst, extracted into OUT_DIR
	Subdir   string `yaml:"subdir,omitempty" toml:"subdir,omitempty"`   // source directory inside the archive
}

// Define is a preprocessor definition for the bundled build.
type Define struct {
	Name  string `yaml:"name" toml:"name"`
	Value string `yaml:"value" toml:"value"`
}

// Config describes one native library.
type Config struct {
	Library     string              `yaml:"library" toml:"library"`
	Package     string              `yaml:"package" toml:"package"`
	Version     string              `yaml:"version" toml:"version"`
	Placeholder string              `yaml:"placeholder" toml:"placeholder"`
	Header      string              `yaml:"header" toml:"header"`
	Shim        string              `yaml:"shim" toml:"shim"`
	ShimContent string              `yaml:"shimContent" toml:"shimContent"`
	Bundled     bool                `yaml:"bundled" toml:"bundled"`
	MinVersion  string              `yaml:"minVersion,omitempty" toml:"minVersion,omitempty"`
	Keys        Keys                `yaml:"keys" toml:"keys"`
	Artifacts   Artifacts           `yaml:"artifacts" toml:"artifacts"`
	Source      Source              `yaml:"source" toml:"source"`
	Defines     []Define            `yaml:"defines" toml:"defines"`
	Sources     Sources             `yaml:"sources" toml:"sources"`
	Quirks      map[string][]string `yaml:"quirks,omitempty" toml:"quirks,omitempty"`
}

// Default returns the libmagic configuration.
func Default() *Config {
	return &Config{
		Library:     "magic",
		Package:     "libmagic",
		Version:     "5.45",
		Placeholder: "X.YY",
		Header:      "magic.h",
		Shim:        "forcestrlcpyweak.h",
		ShimContent: "#pragma weak strlcpy",
		Keys: Keys{
			Dir:    "MAGIC_DIR",
			Static: "MAGIC_STATIC",
		},
		Artifacts: Artifacts{
			Static: "libmagic.a",
			Shared: "libmagic.so",
		},
		Source: Source{
			Dir:      "file/src",
			Template: "magic.h.in",
		},
		Defines: []Define{
			{Name: "HAVE_UNISTD_H", Value: "1"},
			{Name: "HAVE_INTTYPES_H", Value: "1"},
		},
		Sources: Sources{
			Files: []string{
				"buffer.c",
				"magic.c",
				"apprentice.c",
				"softmagic.c",
				"ascmagic.c",
				"encoding.c",
				"compress.c",
				"is_csv.c",
				"is_json.c",
				"is_simh.c",
				"is_tar.c",
				"readelf.c",
				"print.c",
				"fsmagic.c",
				"funcs.c",
				"apptype.c",
				"der.c",
				"cdf.c",
				"cdf_time.c",
				"readcdf.c",
				"fmtcheck.c",
				"strlcpy.c",
			},
			Vendors: map[string]Rule{
				// Apple's libc ships strlcpy.
				"apple": {Exclude: []string{"strlcpy.c"}},
			},
		},
		Quirks: map[string][]string{
			"windows": {"shlwapi"},
		},
	}
}

// Load reads a YAML or, by extension, TOML file and overlays it on the
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if filepath.Ext(path) == ".toml" {
		return ParseTOML(data)
	}
	return Parse(data)
}

// Parse overlays YAML data on the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ParseTOML is like Parse for TOML data.
func ParseTOML(data []byte) (*Config, error) {
	c := Default()
	if _, err := toml.Decode(string(data), c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that every required field is set.
func (c *Config) Validate() error {
	var errs []error
	required := []struct {
		name, value string
	}{
		{"library", c.Library},
		{"package", c.Package},
		{"keys.dir", c.Keys.Dir},
		{"keys.static", c.Keys.Static},
		{"artifacts.static", c.Artifacts.Static},
		{"artifacts.shared", c.Artifacts.Shared},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("config: %s is required", r.name))
		}
	}
	if !semver.IsValid("v" + c.Version) {
		errs = append(errs, fmt.Errorf("config: invalid version %q", c.Version))
	}
	if c.MinVersion != "" && !semver.IsValid("v"+c.MinVersion) {
		errs = append(errs, fmt.Errorf("config: invalid minVersion %q", c.MinVersion))
	}
	return errors.Join(errs...)
}

// Marshal renders c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
