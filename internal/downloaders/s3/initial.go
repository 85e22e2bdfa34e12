package s3

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/tanq16/splitdl/internal/utils"
)

// S3Downloader turns s3://bucket/key into presigned URLs so the object is
// fetched with ranged GETs like any other HTTP resource.
type S3Downloader struct {
	OutputDir string
	// NewClient builds the S3 client for a profile. Nil uses the shared AWS
	// configuration.
	NewClient func(ctx context.Context, profile string) (*s3.Client, error)
}

func (d *S3Downloader) ValidateJob(job *utils.SplitJob) error {
	bucket, key, err := parseS3URL(job.URL)
	if err != nil {
		return err
	}
	if key == "" || strings.HasSuffix(key, "/") {
		return fmt.Errorf("s3://%s/%s is not an object; only single objects can be split", bucket, key)
	}
	if job.Metadata == nil {
		job.Metadata = map[string]any{}
	}
	job.Metadata["bucket"] = bucket
	job.Metadata["key"] = key
	log.Info().Str("op", "s3/initial").Msgf("job validated for s3://%s/%s", bucket, key)
	return nil
}

func (d *S3Downloader) Target(ctx context.Context, job *utils.SplitJob) (*utils.DownloadTarget, error) {
	bucket, _ := job.Metadata["bucket"].(string)
	key, _ := job.Metadata["key"].(string)
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("job %s was not validated", job.URL)
	}
	profile, _ := job.Metadata["profile"].(string)

	newClient := d.NewClient
	if newClient == nil {
		newClient = getS3Client
	}
	client, err := newClient(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("error creating S3 client: %w", err)
	}
	get, head, err := presignObject(ctx, client, bucket, key)
	if err != nil {
		return nil, err
	}

	dir, name := utils.SplitOutputPath(job.OutputPath, d.OutputDir)
	if name == "" {
		name = path.Base(key)
	}
	log.Info().Str("op", "s3/initial").Msgf("presigned s3://%s/%s", bucket, key)
	return &utils.DownloadTarget{
		SourceURL:      get,
		ProbeURL:       head,
		DestinationDir: dir,
		Filename:       name,
	}, nil
}

func parseS3URL(url string) (string, string, error) {
	if !strings.HasPrefix(url, "s3://") {
		return "", "", fmt.Errorf("%w: expected s3://bucket/key, got %q", utils.ErrUnsupportedScheme, url)
	}
	url = strings.TrimPrefix(url, "s3://")
	parts := strings.SplitN(url, "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("invalid S3 URL format")
	}
	bucket := parts[0]
	key := ""
	if len(parts) > 1 {
		key = parts[1]
	}
	return bucket, key, nil
}
