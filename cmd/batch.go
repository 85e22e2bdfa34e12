package cmd

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tanq16/splitdl/internal/output"
	"github.com/tanq16/splitdl/internal/utils"
	"gopkg.in/yaml.v3"
)

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [YAML_FILE]",
		Short: "Process multiple downloads from a YAML file",
		Long: `Process multiple downloads from a YAML file keyed by source type.

Example:
  http:
    - link: https://example.com/a.iso
      op: isos/a.iso
  s3:
    - link: s3://bucket/key.tar
  gdrive:
    - link: https://drive.google.com/file/d/FILE_ID/view`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("error reading YAML file: %w", err)
			}
			var batchFile utils.BatchFile
			if err := yaml.Unmarshal(data, &batchFile); err != nil {
				return fmt.Errorf("error parsing YAML file: %w", err)
			}
			jobList, warnings := buildJobsFromBatch(batchFile)
			for _, w := range warnings {
				output.PrintWarning(w)
			}
			if len(jobList) == 0 {
				return errors.New("no valid jobs found in the batch file")
			}
			return runJobs(cmd, jobList)
		},
	}
	return cmd
}

// buildJobsFromBatch turns batch entries into jobs in a stable order and
// reports the entries it skipped.
func buildJobsFromBatch(batchFile utils.BatchFile) ([]utils.SplitJob, []string) {
	var jobList []utils.SplitJob
	var warnings []string
	sections := make([]string, 0, len(batchFile))
	for section := range batchFile {
		sections = append(sections, section)
	}
	slices.Sort(sections)

	for _, section := range sections {
		jobType := normalizeJobType(section)
		if jobType == "" {
			warnings = append(warnings, fmt.Sprintf("Unknown job type '%s', skipping", section))
			continue
		}
		for _, entry := range batchFile[section] {
			if entry.Link == "" {
				warnings = append(warnings, fmt.Sprintf("Empty link found in %s section, skipping", section))
				continue
			}
			jobList = append(jobList, utils.SplitJob{
				JobType:    jobType,
				URL:        entry.Link,
				OutputPath: entry.OutputPath,
				Referer:    entry.Referer,
				Metadata:   make(map[string]any),
			})
		}
	}
	return jobList, warnings
}

func normalizeJobType(jobType string) string {
	typeMap := map[string]string{
		"http":           "http",
		"https":          "http",
		"s3":             "s3",
		"gdrive":         "google-drive",
		"googledrive":    "google-drive",
		"google-drive":   "google-drive",
		"gd":             "google-drive",
		"ghr":            "github-release",
		"ghrelease":      "github-release",
		"gh-release":     "github-release",
		"github":         "github-release",
		"github-release": "github-release",
	}
	return typeMap[strings.ToLower(strings.TrimSpace(jobType))]
}
