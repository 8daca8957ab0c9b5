package internal

import (
	"fmt"

	"github.com/goplus/extbuild/internal/toolchain"
	"github.com/goplus/extbuild/pkgs/buildsys"
	"github.com/goplus/extbuild/pkgs/buildsys/cmake"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that a usable CMake is installed",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	targets, err := cfg.Descriptors()
	if err != nil {
		return err
	}
	v, err := toolchain.Check(cmd.Context(), cmake.New(newRunner()), buildsys.Host(), targets)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "cmake version %s\n", v)
	return nil
}
