package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/tanq16/splitdl/internal/utils"
)

func newHTTPCmd() *cobra.Command {
	var outputPath string
	var referer string

	cmd := &cobra.Command{
		Use:     "http [URL...] [--output OUTPUT_PATH]",
		Short:   "Download files via HTTP/HTTPS",
		Aliases: []string{"https"},
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputPath != "" && len(args) > 1 {
				return errors.New("--output can only be used with a single URL, use --output-dir instead")
			}
			var jobList []utils.SplitJob
			for _, url := range args {
				jobList = append(jobList, utils.SplitJob{
					JobType:    "http",
					URL:        url,
					OutputPath: outputPath,
					Referer:    referer,
					Metadata:   make(map[string]any),
				})
			}
			return runJobs(cmd, jobList)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (inferred from the server if not provided)")
	cmd.Flags().StringVar(&referer, "referer", "", "Referer header to send with every request")
	return cmd
}
