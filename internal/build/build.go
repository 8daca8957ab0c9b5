// Package build drives every target through toolchain check, dependency
// bootstrap, configure, compile and placement.
package build

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/goplus/extbuild/internal/deps"
	"github.com/goplus/extbuild/internal/env"
	"github.com/goplus/extbuild/internal/toolchain"
	"github.com/goplus/extbuild/pkgs/buildsys"
	"github.com/goplus/extbuild/pkgs/buildsys/cmake"
	"github.com/goplus/extbuild/pkgs/target"
	"github.com/qiniu/x/log"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// ErrSkipped marks targets that never started because an earlier target
// failed and the run was not told to keep going.
var ErrSkipped = zerr.New("not built because an earlier target failed")

// Tool is the external build tool: it can report its version and drive
// a configure/compile cycle.
type Tool interface {
	buildsys.BuildSystem
	toolchain.Prober
}

// Options control one build run.
type Options struct {
	Package     string // package the modules are installed under
	ModuleDir   string // directory inside Package holding the modules
	BuildLib    string
	BuildTemp   string
	ExtSuffix   string // "" means the platform default
	Interpreter string
	Version     string // package version, exported as VERSION_INFO
	Debug       bool
	Defines     map[string]string
	Jobs        int
	KeepGoing   bool
}

type Builder struct {
	tool     Tool
	store    deps.Store
	platform buildsys.Platform
	environ  []string
	opts     Options
}

// Option configures a Builder.
type Option func(*Builder)

// WithPlatform overrides the host platform.
func WithPlatform(p buildsys.Platform) Option {
	return func(b *Builder) {
		b.platform = p
	}
}

// WithEnviron sets the base environment handed to subprocesses in place
// of os.Environ.
func WithEnviron(environ []string) Option {
	return func(b *Builder) {
		b.environ = environ
	}
}

// NewBuilder returns a Builder. store may be nil when the build has no
// source dependency.
func NewBuilder(tool Tool, store deps.Store, opts Options, options ...Option) *Builder {
	b := &Builder{
		tool:     tool,
		store:    store,
		platform: buildsys.Host(),
		opts:     opts,
	}
	for _, o := range options {
		o(b)
	}
	if b.environ == nil {
		b.environ = os.Environ()
	}
	if b.opts.ExtSuffix == "" {
		b.opts.ExtSuffix = b.platform.ExtSuffix()
	}
	return b
}

// Build runs every target. The toolchain check and the dependency
// bootstrap happen once, before any target starts. Results are returned
// in the order of targets even when the run fails.
func (b *Builder) Build(ctx context.Context, targets []target.Descriptor) ([]TargetResult, error) {
	results := make([]TargetResult, len(targets))
	for i, t := range targets {
		results[i] = TargetResult{Target: t, State: Unchecked}
	}
	if err := target.Unique(targets); err != nil {
		return results, err
	}

	version, err := toolchain.Check(ctx, b.tool, b.platform, targets)
	if err != nil {
		failAll(results, err)
		return results, err
	}
	advanceAll(results, ToolchainVerified)

	if b.store != nil {
		fetched, err := deps.Ensure(ctx, b.store)
		if err != nil {
			failAll(results, err)
			return results, err
		}
		if fetched {
			log.Infof("build dependency fetched")
		}
	}
	advanceAll(results, DependencyReady)

	environ := env.NewToolchain(b.environ, b.opts.Version).Environ()
	leaves := make([]string, len(targets))
	for i, t := range targets {
		leaves[i] = leafName(t.Name)
	}
	run := func(ctx context.Context, r *TargetResult) error {
		return b.buildTarget(ctx, r, version, environ, leaves)
	}

	if b.opts.Jobs <= 1 {
		var errs []error
		for i := range results {
			if err := run(ctx, &results[i]); err != nil {
				if !b.opts.KeepGoing {
					skipRest(results[i+1:])
					return results, err
				}
				errs = append(errs, err)
			}
		}
		return results, errors.Join(errs...)
	}

	if b.opts.KeepGoing {
		var g errgroup.Group
		g.SetLimit(b.opts.Jobs)
		for i := range results {
			g.Go(func() error {
				// Failures are collected from results below.
				_ = run(ctx, &results[i])
				return nil
			})
		}
		_ = g.Wait()
		var errs []error
		for _, r := range results {
			if r.Err != nil {
				errs = append(errs, r.Err)
			}
		}
		return results, errors.Join(errs...)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Jobs)
	for i := range results {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].fail(fmt.Errorf("%s: %w", results[i].Target.Name, errors.Join(ErrSkipped, err)))
				return err
			}
			return run(gctx, &results[i])
		})
	}
	return results, g.Wait()
}

// buildTarget configures, compiles and places one target. leaves holds
// the module names of every target in the run, used to tell this target's
// artifacts from a sibling's in the shared output directory.
func (b *Builder) buildTarget(ctx context.Context, r *TargetResult, version cmake.Version, environ []string, leaves []string) (err error) {
	t := r.Target
	defer func() {
		if err != nil {
			err = fmt.Errorf("%s: %w", t.Name, err)
			r.fail(err)
		}
	}()

	outDir, err := filepath.Abs(ResolveOutputDir(ExtFullPath(b.opts.BuildLib, t.Name, b.opts.ExtSuffix), b.opts.Package, b.opts.ModuleDir))
	if err != nil {
		return err
	}
	buildDir, err := filepath.Abs(filepath.Join(b.opts.BuildTemp, t.Name))
	if err != nil {
		return err
	}
	r.OutputDir = outDir
	r.BuildDir = buildDir

	cfg := cmake.NewConfiguration(b.platform, t.Kind, b.opts.Debug, outDir, b.opts.Interpreter, b.opts.Defines)
	args := b.tool.ConfigureArgs(b.platform, cfg)

	log.Infof("configuring %s (%s)", t.Name, cfg.Mode)
	if err := b.tool.Configure(ctx, t.SourceDir, buildDir, args, environ); err != nil {
		return err
	}
	r.advance(Configured)

	var prior []string
	if rec, err := LoadRecord(buildDir); err == nil && rec.OutputDir == outDir {
		prior = rec.Artifacts
	}
	before, err := findArtifacts(outDir, t.Kind)
	if err != nil {
		return err
	}

	log.Infof("building %s", t.Name)
	if err := b.tool.Build(ctx, buildDir, cfg.Mode, environ); err != nil {
		return err
	}
	r.advance(Built)

	after, err := findArtifacts(outDir, t.Kind)
	if err != nil {
		return errors.Join(cmake.ErrCompileFailed, err)
	}
	artifacts := ownArtifacts(before, after, prior, leafName(t.Name), leaves)
	if len(artifacts) == 0 {
		werr := zerr.With(zerr.New("build produced no artifact in "+outDir), "output_dir", outDir)
		return errors.Join(cmake.ErrCompileFailed, werr)
	}
	r.Artifacts = artifacts
	r.advance(Placed)
	log.Infof("placed %s in %s", t.Name, outDir)

	rec := &Record{
		Target:        t.Name,
		Kind:          t.Kind.String(),
		Mode:          cfg.Mode.String(),
		SourceDir:     t.SourceDir,
		OutputDir:     outDir,
		ConfigureArgs: args,
		Artifacts:     artifacts,
		ToolVersion:   version.String(),
		BuildTime:     time.Now(),
	}
	if err := SaveRecord(buildDir, rec); err != nil {
		log.Warnf("%s: failed to save build record: %v", t.Name, err)
	}
	return nil
}

// ResolveOutputDir returns where the build tool must place the compiled
// module so the packaging system finds it: <dir(extPath)>/<pkg>/<moduleDir>.
func ResolveOutputDir(extPath, pkg, moduleDir string) string {
	return filepath.Join(filepath.Dir(extPath), pkg, moduleDir)
}

// ExtFullPath returns the path the packaging system expects for the
// extension name, with dots in name turned into directories.
func ExtFullPath(buildLib, name, suffix string) string {
	return filepath.Join(buildLib, filepath.FromSlash(strings.ReplaceAll(name, ".", "/"))+suffix)
}

var artifactExts = map[target.Kind][]string{
	target.SharedModule:  {".so", ".pyd", ".dylib", ".dll"},
	target.StaticLibrary: {".a", ".lib"},
}

// stamp identifies one version of a file on disk.
type stamp struct {
	modTime time.Time
	size    int64
}

// findArtifacts returns the files under dir that look like artifacts of
// the given kind. A missing dir holds no artifacts.
func findArtifacts(dir string, kind target.Kind) (map[string]stamp, error) {
	exts := artifactExts[kind]
	found := make(map[string]stamp)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == dir {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || !slices.Contains(exts, strings.ToLower(filepath.Ext(path))) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		found[path] = stamp{modTime: info.ModTime(), size: info.Size()}
		return nil
	})
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to scan output directory"), "output_dir", dir)
	}
	return found, nil
}

// ownArtifacts picks the files in after that the compile step of one
// target produced. A file belongs to the target when it was written by the
// compile, or when the target's previous build recorded it and the compile
// left it untouched. Files named after another target of the run never
// belong to this one.
func ownArtifacts(before, after map[string]stamp, prior []string, leaf string, leaves []string) []string {
	var own []string
	for path, st := range after {
		if stem := artifactStem(path); stem != leaf && slices.Contains(leaves, stem) {
			continue
		}
		old, existed := before[path]
		if !existed || !old.modTime.Equal(st.modTime) || old.size != st.size || slices.Contains(prior, path) {
			own = append(own, path)
		}
	}
	slices.Sort(own)
	return own
}

// leafName returns the module name of a dotted extension name.
func leafName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToLower(name)
}

// artifactStem returns the module name a compiled file was built for:
// "libfoo.a" and "foo.cpython-312-x86_64-linux-gnu.so" both give "foo".
func artifactStem(path string) string {
	base := strings.ToLower(filepath.Base(path))
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return strings.TrimPrefix(base, "lib")
}

func advanceAll(results []TargetResult, s State) {
	for i := range results {
		results[i].advance(s)
	}
}

func failAll(results []TargetResult, err error) {
	for i := range results {
		results[i].fail(err)
	}
}

func skipRest(results []TargetResult) {
	for i := range results {
		results[i].fail(fmt.Errorf("%s: %w", results[i].Target.Name, ErrSkipped))
	}
}
