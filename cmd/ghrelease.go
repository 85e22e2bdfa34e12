package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tanq16/splitdl/internal/utils"
)

func newGHReleaseCmd() *cobra.Command {
	var outputPath string
	var manual bool

	cmd := &cobra.Command{
		Use:     "github-release [OWNER/REPO or URL] [--output OUTPUT_PATH] [--manual]",
		Short:   "Download the latest GitHub release asset for this platform",
		Aliases: []string{"ghrelease", "ghr", "gh-release"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job := utils.SplitJob{
				JobType:    "github-release",
				URL:        args[0],
				OutputPath: outputPath,
				Metadata:   map[string]any{"manual": manual},
			}
			return runJobs(cmd, []utils.SplitJob{job})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path")
	cmd.Flags().BoolVar(&manual, "manual", false, "Choose the asset from a list instead of matching the platform")
	return cmd
}
