// Package reliability provides cache snapshot export/restore and the
// S3-compatible storage client used for off-site copies.
package reliability

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"plafond/internal/config"
)

// S3Client talks to any S3-compatible store (AWS S3, Cloudflare R2,
// MinIO). It satisfies sink.Uploader.
type S3Client struct {
	client   *s3.Client
	uploader *manager.Uploader
	log      zerolog.Logger
}

// NewS3Client creates a client from the application's S3 settings.
func NewS3Client(ctx context.Context, cfg *config.S3Config, log zerolog.Logger) (*S3Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("s3 is not configured")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			// R2 and MinIO addresses, which also want path-style keys
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Client{
		client:   client,
		uploader: manager.NewUploader(client),
		log:      log.With().Str("client", "s3").Logger(),
	}, nil
}

// Upload stores an object. Large bodies are sent multipart by the
// upload manager.
func (c *S3Client) Upload(ctx context.Context, bucket, key string, body io.Reader) error {
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", bucket, key, err)
	}

	c.log.Debug().Str("bucket", bucket).Str("key", key).Msg("Object uploaded")
	return nil
}

// Download fetches an object into memory. Snapshot archives are small
// (the cache is a few thousand rows at most).
func (c *S3Client) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read s3://%s/%s: %w", bucket, key, err)
	}

	c.log.Debug().Str("bucket", bucket).Str("key", key).Int("bytes", len(data)).Msg("Object downloaded")
	return data, nil
}
