package internal

import (
	"fmt"
	"os/exec"
	"strconv"

	"github.com/goplus/extbuild/internal/build"
	"github.com/goplus/extbuild/internal/config"
	"github.com/goplus/extbuild/internal/env"
	"github.com/goplus/extbuild/pkgs/buildsys"
	"github.com/goplus/extbuild/pkgs/buildsys/cmake"
	"github.com/goplus/extbuild/pkgs/target"
	"github.com/spf13/cobra"
)

var (
	buildDebug        bool
	buildLib          string
	buildTemp         string
	buildExtSuffix    string
	buildPython       string
	buildJobs         int
	buildKeepGoing    bool
	buildJobsPerBuild int
)

var buildCmd = &cobra.Command{
	Use:   "build [name=dir ...]",
	Short: "Build the extension modules",
	Long: `Build checks for CMake, fetches the build dependency and compiles every
extension module. Without arguments the targets come from extbuild.yaml.`,
	RunE: runBuild,
}

func init() {
	flags := buildCmd.Flags()
	flags.BoolVarP(&buildDebug, "debug", "g", false, "Build in Debug mode")
	flags.StringVar(&buildLib, "build-lib", "", "Directory the packaging system collects modules from")
	flags.StringVar(&buildTemp, "build-temp", "", "Directory for the CMake build trees")
	flags.StringVar(&buildExtSuffix, "ext-suffix", "", "Extension module file suffix (default .pyd on Windows, .so elsewhere)")
	flags.StringVar(&buildPython, "python", "", "Interpreter to configure the modules for")
	flags.IntVarP(&buildJobs, "jobs", "j", 0, "Number of targets built in parallel")
	flags.BoolVar(&buildKeepGoing, "keep-going", false, "Keep building other targets after a failure")
	flags.IntVar(&buildJobsPerBuild, "jobs-per-build", 0, "Parallelism passed to the native build tool")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	targets, err := buildTargets(cfg, args)
	if err != nil {
		return err
	}
	version, err := cfg.PackageVersion()
	if err != nil {
		return fmt.Errorf("failed to determine package version: %w", err)
	}

	opts := buildOptions(cmd, cfg)
	opts.Version = version

	platform := buildsys.Host()
	r := newRunner()
	tool := cmake.New(r, cmake.WithTrailingArgs(trailingArgs(platform, buildJobsPerBuild)...))
	builder := build.NewBuilder(tool, newStore(cfg, r), opts, build.WithPlatform(platform))

	results, err := builder.Build(cmd.Context(), targets)
	out := cmd.OutOrStdout()
	for _, res := range results {
		if res.State == build.Placed {
			fmt.Fprintf(out, "%s: %s\n", res.Target.Name, res.OutputDir)
		}
	}
	return err
}

// buildTargets parses name=dir arguments, falling back to the configured
// targets.
func buildTargets(cfg *config.Config, args []string) ([]target.Descriptor, error) {
	if len(args) == 0 {
		return cfg.Descriptors()
	}
	targets := make([]target.Descriptor, 0, len(args))
	for _, arg := range args {
		t, err := target.Parse(arg)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, target.Unique(targets)
}

// buildOptions merges flags over the config file. Relative paths from
// either source are resolved against the project root.
func buildOptions(cmd *cobra.Command, cfg *config.Config) build.Options {
	flags := cmd.Flags()
	opts := build.Options{
		Package:     cfg.Package,
		ModuleDir:   cfg.ModuleDir,
		BuildLib:    cfg.Abs(cfg.BuildLib),
		BuildTemp:   cfg.Abs(cfg.BuildTemp),
		ExtSuffix:   cfg.ExtSuffix,
		Interpreter: cfg.Interpreter,
		Debug:       buildDebug,
		Defines:     cfg.Defines,
		Jobs:        cfg.Jobs,
		KeepGoing:   cfg.KeepGoing,
	}
	if flags.Changed("build-lib") {
		opts.BuildLib = cfg.Abs(buildLib)
	}
	if flags.Changed("build-temp") {
		opts.BuildTemp = cfg.Abs(buildTemp)
	}
	if flags.Changed("ext-suffix") {
		opts.ExtSuffix = buildExtSuffix
	}
	if flags.Changed("python") {
		opts.Interpreter = buildPython
	}
	if flags.Changed("jobs") {
		opts.Jobs = buildJobs
	}
	if flags.Changed("keep-going") {
		opts.KeepGoing = buildKeepGoing
	}
	if opts.Interpreter == "" {
		opts.Interpreter = env.Interpreter(exec.LookPath)
	}
	return opts
}

// trailingArgs returns the native build tool arguments; n > 0 overrides
// the default parallelism.
func trailingArgs(p buildsys.Platform, n int) []string {
	if n <= 0 {
		return cmake.TrailingArgs(p)
	}
	if p.IsWindows() {
		return []string{"/m:" + strconv.Itoa(n)}
	}
	return []string{"-j" + strconv.Itoa(n)}
}
