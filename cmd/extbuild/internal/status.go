package internal

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/goplus/extbuild/internal/build"
	"github.com/spf13/cobra"
)

var statusBuildTemp string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last successful build of each target",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusBuildTemp, "build-temp", "", "Directory holding the build trees")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	buildTemp := cfg.BuildTemp
	if statusBuildTemp != "" {
		buildTemp = statusBuildTemp
	}
	recs, err := build.Records(cfg.Abs(buildTemp))
	if err != nil {
		return fmt.Errorf("failed to read build records: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(recs) == 0 {
		fmt.Fprintln(out, "no targets built yet")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TARGET\tMODE\tCMAKE\tBUILT\tOUTPUT")
	for _, r := range recs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Target, r.Mode, r.ToolVersion, r.BuildTime.Format(time.DateTime), r.OutputDir)
	}
	return w.Flush()
}
