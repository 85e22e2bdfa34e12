package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tanq16/splitdl/internal/utils"
)

func newS3Cmd() *cobra.Command {
	var outputPath string
	var profile string

	cmd := &cobra.Command{
		Use:   "s3 [s3://BUCKET/KEY]",
		Short: "Download an object from AWS S3",
		Long: `Download an object from AWS S3 through presigned range requests.

Examples:
  splitdl s3 s3://mybucket/path/to/file.zip
  splitdl s3 s3://mybucket/file.zip --profile myprofile -o file.zip`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job := utils.SplitJob{
				JobType:    "s3",
				URL:        args[0],
				OutputPath: outputPath,
				Metadata:   map[string]any{"profile": profile},
			}
			return runJobs(cmd, []utils.SplitJob{job})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path")
	cmd.Flags().StringVar(&profile, "profile", "", "AWS profile to use (shared config default if empty)")
	return cmd
}
