package gdrive

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/tanq16/splitdl/internal/utils"
)

const defaultTokenFile = ".splitdl-token.json"

// GDriveDownloader resolves a Drive file link to its media endpoint. Auth is
// either an API key ("apiKey" metadata) or an OAuth client secret file
// ("credentialsFile" metadata).
type GDriveDownloader struct {
	OutputDir string
	APIURL    string
	TokenFile string
	// AuthIn and AuthOut carry the one-time authorization code prompt.
	AuthIn  io.Reader
	AuthOut io.Writer
}

func (d *GDriveDownloader) ValidateJob(job *utils.SplitJob) error {
	fileID, err := extractFileID(job.URL)
	if err != nil {
		return err
	}
	if job.Metadata == nil {
		job.Metadata = map[string]any{}
	}
	job.Metadata["fileID"] = fileID

	apiKey, _ := job.Metadata["apiKey"].(string)
	credentialsFile, _ := job.Metadata["credentialsFile"].(string)
	if apiKey == "" && credentialsFile == "" {
		return fmt.Errorf("either --api-key or --credentials must be provided")
	}
	if apiKey != "" && credentialsFile != "" {
		return fmt.Errorf("only one of --api-key or --credentials can be provided")
	}
	if credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); err != nil {
			return fmt.Errorf("credentials file not found: %w", err)
		}
	}
	log.Info().Str("op", "google-drive/initial").Msgf("job validated for %s", job.URL)
	return nil
}

func (d *GDriveDownloader) Target(ctx context.Context, job *utils.SplitJob) (*utils.DownloadTarget, error) {
	fileID, _ := job.Metadata["fileID"].(string)
	if fileID == "" {
		return nil, fmt.Errorf("job %s was not validated", job.URL)
	}
	a, err := d.authorize(ctx, job)
	if err != nil {
		return nil, err
	}

	apiURL := d.APIURL
	if apiURL == "" {
		apiURL = driveAPIURL
	}
	client := utils.NewSplitHTTPClient(job.HTTPClientConfig)
	metadata, err := getFileMetadata(ctx, client, apiURL, fileID, a)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("op", "google-drive/initial").Str("name", metadata.Name).Int64("size", metadata.size()).Msg("metadata retrieved")

	dir, name := utils.SplitOutputPath(job.OutputPath, d.OutputDir)
	if name == "" {
		name = metadata.Name
	}
	return &utils.DownloadTarget{
		SourceURL:      mediaURL(apiURL, fileID, a),
		Headers:        a.headers(),
		DestinationDir: dir,
		Filename:       name,
	}, nil
}

func (d *GDriveDownloader) authorize(ctx context.Context, job *utils.SplitJob) (auth, error) {
	if apiKey, _ := job.Metadata["apiKey"].(string); apiKey != "" {
		return auth{apiKey: apiKey}, nil
	}
	credentialsFile, _ := job.Metadata["credentialsFile"].(string)
	tokenFile := d.TokenFile
	if tokenFile == "" {
		tokenFile = defaultTokenFile
	}
	in, out := d.AuthIn, d.AuthOut
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	token, err := getAccessTokenFromCredentials(ctx, credentialsFile, tokenFile, in, out)
	if err != nil {
		return auth{}, err
	}
	return auth{accessToken: token}, nil
}
