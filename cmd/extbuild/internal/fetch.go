package internal

import (
	"fmt"

	"github.com/goplus/extbuild/internal/deps"
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch the build dependency",
	Long:  `Fetch clones the build dependency and initializes submodules unless a usable copy is already present.`,
	Args:  cobra.NoArgs,
	RunE:  runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store := newStore(cfg, newRunner())
	fetched, err := deps.Ensure(cmd.Context(), store)
	if err != nil {
		return err
	}
	if fetched {
		fmt.Fprintf(cmd.OutOrStdout(), "%s fetched into %s\n", store.Name, store.Dest)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s already present in %s\n", store.Name, store.Dest)
	}
	return nil
}
