package ghrelease

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/rs/zerolog/log"

	"github.com/tanq16/splitdl/internal/utils"
)

const githubAPIURL = "https://api.github.com"

// GitReleaseDownloader picks an asset from a repository's latest release.
// The asset's browser URL redirects to the storage host, which the engine
// follows like any other redirect.
type GitReleaseDownloader struct {
	OutputDir string
	APIURL    string
	// PromptIn and PromptOut carry the manual asset selection ("manual"
	// metadata). Nil means stdin and stdout.
	PromptIn  io.Reader
	PromptOut io.Writer
}

func (d *GitReleaseDownloader) ValidateJob(job *utils.SplitJob) error {
	owner, repo, err := parseGitHubURL(job.URL)
	if err != nil {
		return err
	}
	if job.Metadata == nil {
		job.Metadata = map[string]any{}
	}
	job.Metadata["owner"] = owner
	job.Metadata["repo"] = repo
	log.Info().Str("op", "github-release/initial").Msgf("job validated for %s/%s", owner, repo)
	return nil
}

func (d *GitReleaseDownloader) Target(ctx context.Context, job *utils.SplitJob) (*utils.DownloadTarget, error) {
	owner, _ := job.Metadata["owner"].(string)
	repo, _ := job.Metadata["repo"].(string)
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("job %s was not validated", job.URL)
	}
	manual, _ := job.Metadata["manual"].(bool)

	apiURL := d.APIURL
	if apiURL == "" {
		apiURL = githubAPIURL
	}
	client := utils.NewSplitHTTPClient(job.HTTPClientConfig)
	rel, err := getLatestRelease(ctx, client, apiURL, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("error fetching release info: %w", err)
	}

	var selected *asset
	if manual {
		in, out := d.PromptIn, d.PromptOut
		if in == nil {
			in = os.Stdin
		}
		if out == nil {
			out = os.Stdout
		}
		selected, err = promptAssetSelection(rel, in, out)
		if err != nil {
			return nil, err
		}
	} else {
		selected = selectAsset(rel.Assets, runtime.GOOS+runtime.GOARCH)
		if selected == nil {
			return nil, fmt.Errorf("could not automatically select asset for platform %s/%s, use --manual flag", runtime.GOOS, runtime.GOARCH)
		}
	}
	log.Debug().Str("op", "github-release/initial").Str("tag", rel.TagName).Str("asset", selected.Name).
		Int64("size", selected.Size).Msg("asset selected")

	dir, name := utils.SplitOutputPath(job.OutputPath, d.OutputDir)
	if name == "" {
		name = selected.Name
	}
	job.Metadata["tagName"] = rel.TagName
	return &utils.DownloadTarget{
		SourceURL:      selected.DownloadURL,
		DestinationDir: dir,
		Filename:       name,
	}, nil
}
