package internal

import (
	"context"
	"os"
	"os/signal"

	"github.com/goplus/extbuild/internal/config"
	"github.com/goplus/extbuild/internal/deps"
	"github.com/goplus/extbuild/internal/runner"
	"github.com/goplus/extbuild/internal/vcs"
	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "extbuild",
	Short: "extbuild compiles native extension modules with CMake",
	Long: `extbuild is invoked at packaging time to compile native extension modules.
It checks for CMake, fetches the pybind11 headers with git and drives a
configure and build cycle per extension, placing the result where the
packaging system expects it.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetOutputLevel(log.Ldebug)
		} else {
			log.SetOutputLevel(log.Linfo)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to extbuild.yaml (default $"+config.EnvConfig+" or ./"+config.DefaultFile+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose build output")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return config.Load(wd, configPath)
}

// newRunner streams subprocess output only in verbose mode; otherwise it
// is captured and attached to errors.
func newRunner() runner.Runner {
	if verbose {
		return runner.New(os.Stderr)
	}
	return runner.New(nil)
}

func newStore(cfg *config.Config, r runner.Runner) *deps.DirStore {
	dep := cfg.Dependency
	s := deps.NewDirStore(dep.Name, cfg.Abs(dep.Dir), dep.Remote, vcs.NewGitVCS(vcs.WithRunner(r)))
	s.Ref = dep.Ref
	s.WorkDir = cfg.Root
	return s
}
