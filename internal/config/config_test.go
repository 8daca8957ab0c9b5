package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goplus/extbuild/internal/deps"
	"github.com/goplus/extbuild/pkgs/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv(EnvConfig, "")
	root := t.TempDir()

	cfg, err := Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, "pyflagser", cfg.Package)
	assert.Equal(t, "modules", cfg.ModuleDir)
	assert.Equal(t, "pybind11", cfg.Dependency.Name)
	assert.Equal(t, deps.DefaultRemote, cfg.Dependency.Remote)
	assert.Equal(t, filepath.Join(root, "pybind11"), cfg.Abs(cfg.Dependency.Dir))

	descs, err := cfg.Descriptors()
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, "pyflagser", descs[0].Name)
	assert.Equal(t, root, descs[0].SourceDir)
	assert.Equal(t, target.SharedModule, descs[0].Kind)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(t.TempDir(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(`
package: mypkg
version: 1.2.3
module_dir: ext
jobs: 2
keep_going: true
defines:
  FLAGSER_USE_ZLIB: "OFF"
dependency:
  name: pybind11
  remote: https://example.com/pybind11.git
  ref: v2.11.1
  dir: third_party/pybind11
targets:
  - name: mypkg
    source_dir: src
  - name: helpers
    source_dir: helpers
    kind: static
`), 0o644))
	t.Setenv(EnvConfig, path)

	cfg, err := Load(t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, "mypkg", cfg.Package)
	assert.Equal(t, "ext", cfg.ModuleDir)
	assert.Equal(t, 2, cfg.Jobs)
	assert.True(t, cfg.KeepGoing)
	assert.Equal(t, map[string]string{"FLAGSER_USE_ZLIB": "OFF"}, cfg.Defines)
	assert.Equal(t, "v2.11.1", cfg.Dependency.Ref)
	// Unset keys keep their defaults.
	assert.Equal(t, filepath.Join("build", "temp"), cfg.BuildTemp)

	descs, err := cfg.Descriptors()
	require.NoError(t, err)
	require.Len(t, descs, 2)
	assert.Equal(t, filepath.Join(root, "src"), descs[0].SourceDir)
	assert.Equal(t, target.StaticLibrary, descs[1].Kind)

	v, err := cfg.PackageVersion()
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", v)
}

func TestLoadRejectsDuplicateTargets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extbuild.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
targets:
  - name: a
    source_dir: x
  - name: a
    source_dir: y
`), 0o644))

	_, err := Load("", path)
	require.Error(t, err)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extbuild.yaml")
	require.NoError(t, os.WriteFile(path, []byte("targets: [\n"), 0o644))

	_, err := Load("", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestReadVersion(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "_version.py")
	require.NoError(t, os.WriteFile(file, []byte("\"\"\"Version.\"\"\"\n# comment\n__version__ = '0.4.5'\n"), 0o644))

	v, err := ReadVersion(file)
	require.NoError(t, err)
	assert.Equal(t, "0.4.5", v)

	cfg := Default(dir)
	cfg.VersionFile = "_version.py"
	v, err = cfg.PackageVersion()
	require.NoError(t, err)
	assert.Equal(t, "0.4.5", v)

	require.NoError(t, os.WriteFile(file, []byte("VERSION = 1\n"), 0o644))
	_, err = ReadVersion(file)
	assert.Error(t, err)
}
