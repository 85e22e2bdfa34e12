package s3

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// presignExpiry covers a full default part timeout with room to spare.
const presignExpiry = time.Hour

func getS3Client(ctx context.Context, profile string) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRetryMode(aws.RetryModeAdaptive),
	}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// presignObject returns a GET and a HEAD URL for the object. SigV4 signs the
// method, so the size probe needs its own signature.
func presignObject(ctx context.Context, client *s3.Client, bucket, key string) (string, string, error) {
	presigner := s3.NewPresignClient(client, s3.WithPresignExpires(presignExpiry))
	get, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", "", fmt.Errorf("error presigning GET for s3://%s/%s: %w", bucket, key, err)
	}
	head, err := presigner.PresignHeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", "", fmt.Errorf("error presigning HEAD for s3://%s/%s: %w", bucket, key, err)
	}
	log.Debug().Str("op", "s3/helpers").Str("method", get.Method).Msg("object presigned")
	return get.URL, head.URL, nil
}
