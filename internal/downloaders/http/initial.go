package splithttp

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/tanq16/splitdl/internal/utils"
)

// HTTPDownloader hands a plain http(s) URL to the engine. Size probing and
// redirects are the engine's job.
type HTTPDownloader struct {
	// OutputDir is used when the job has no directory of its own.
	OutputDir string
}

func (d *HTTPDownloader) ValidateJob(job *utils.SplitJob) error {
	parsedURL, err := url.Parse(job.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%w: %s", utils.ErrUnsupportedScheme, parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("invalid URL: missing host in %q", job.URL)
	}
	if job.Referer != "" {
		if _, err := url.Parse(job.Referer); err != nil {
			return fmt.Errorf("invalid referer: %w", err)
		}
	}
	log.Info().Str("op", "http/initial").Msgf("job validated for %s", job.URL)
	return nil
}

func (d *HTTPDownloader) Target(ctx context.Context, job *utils.SplitJob) (*utils.DownloadTarget, error) {
	dir, name := utils.SplitOutputPath(job.OutputPath, d.OutputDir)
	target := &utils.DownloadTarget{
		SourceURL:      job.URL,
		Referer:        job.Referer,
		DestinationDir: dir,
		Filename:       name,
	}
	log.Debug().Str("op", "http/initial").Str("dir", dir).Str("name", name).Msgf("target built for %s", job.URL)
	return target, nil
}
