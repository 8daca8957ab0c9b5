// Package config loads extbuild.yaml and the package version file.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/goplus/extbuild/internal/deps"
	"github.com/goplus/extbuild/pkgs/target"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable holding the config path.
const EnvConfig = "EXTBUILD_CONFIG"

// DefaultFile is looked up in the project root when no path is given.
const DefaultFile = "extbuild.yaml"

// Config is the parsed extbuild.yaml.
type Config struct {
	Package     string            `yaml:"package"`
	Version     string            `yaml:"version"`
	VersionFile string            `yaml:"version_file"`
	ModuleDir   string            `yaml:"module_dir"`
	BuildLib    string            `yaml:"build_lib"`
	BuildTemp   string            `yaml:"build_temp"`
	ExtSuffix   string            `yaml:"ext_suffix"`
	Interpreter string            `yaml:"interpreter"`
	Jobs        int               `yaml:"jobs"`
	KeepGoing   bool              `yaml:"keep_going"`
	Defines     map[string]string `yaml:"defines"`
	Dependency  Dependency        `yaml:"dependency"`
	Targets     []TargetDTO       `yaml:"targets"`

	// Root is the directory relative paths are resolved against.
	Root string `yaml:"-"`
}

// Dependency describes the source dependency fetched before building.
type Dependency struct {
	Name   string `yaml:"name"`
	Remote string `yaml:"remote"`
	Ref    string `yaml:"ref"`
	Dir    string `yaml:"dir"`
}

// TargetDTO is a target entry in the config file.
type TargetDTO struct {
	Name      string `yaml:"name"`
	SourceDir string `yaml:"source_dir"`
	Kind      string `yaml:"kind"`
}

// Default returns the configuration used when no file exists.
func Default(root string) *Config {
	return &Config{
		Package:     "pyflagser",
		VersionFile: filepath.Join("pyflagser", "_version.py"),
		ModuleDir:   "modules",
		BuildLib:    filepath.Join("build", "lib"),
		BuildTemp:   filepath.Join("build", "temp"),
		Jobs:        1,
		Dependency: Dependency{
			Name:   "pybind11",
			Remote: deps.DefaultRemote,
			Dir:    "pybind11",
		},
		Targets: []TargetDTO{{Name: "pyflagser", SourceDir: "."}},
		Root:    root,
	}
}

// Load reads the config file at path on top of the defaults. An empty path
// falls back to $EXTBUILD_CONFIG and then to extbuild.yaml in root; a
// missing default file is not an error.
func Load(root, path string) (*Config, error) {
	explicit := true
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		path = filepath.Join(root, DefaultFile)
		explicit = false
	}

	cfg := Default(root)
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to read config file"), "path", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to parse config file"), "path", path)
	}
	if abs, err := filepath.Abs(filepath.Dir(path)); err == nil {
		cfg.Root = abs
	}
	if err := cfg.validate(); err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Package == "" {
		return zerr.New("package must not be empty")
	}
	if c.Jobs < 0 {
		return zerr.With(zerr.New("jobs must not be negative"), "jobs", c.Jobs)
	}
	if c.Dependency.Dir == "" {
		return zerr.New("dependency.dir must not be empty")
	}
	if _, err := c.Descriptors(); err != nil {
		return err
	}
	return nil
}

// Abs resolves p against Root.
func (c *Config) Abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// Descriptors converts the configured targets, resolving source
// directories against Root.
func (c *Config) Descriptors() ([]target.Descriptor, error) {
	descs := make([]target.Descriptor, 0, len(c.Targets))
	for _, t := range c.Targets {
		kind, err := target.ParseKind(t.Kind)
		if err != nil {
			return nil, err
		}
		d, err := target.New(t.Name, c.Abs(t.SourceDir), kind)
		if err != nil {
			return nil, err
		}
		descs = append(descs, d)
	}
	if err := target.Unique(descs); err != nil {
		return nil, err
	}
	return descs, nil
}

// PackageVersion returns Version, or reads it from VersionFile.
func (c *Config) PackageVersion() (string, error) {
	if c.Version != "" {
		return c.Version, nil
	}
	return ReadVersion(c.Abs(c.VersionFile))
}

var versionRE = regexp.MustCompile(`(?m)^__version__\s*=\s*['"]([^'"]+)['"]`)

// ReadVersion extracts __version__ from a Python version file.
func ReadVersion(file string) (string, error) {
	data, err := os.ReadFile(file) //nolint:gosec // path is provided by user
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to read version file"), "path", file)
	}
	m := versionRE.FindSubmatch(data)
	if m == nil {
		return "", zerr.With(zerr.New("no __version__ assignment found"), "path", file)
	}
	return string(m[1]), nil
}
