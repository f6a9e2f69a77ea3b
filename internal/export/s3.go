package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/brfledger/utilitybilling/internal/config"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
)

// Uploader stores a finished export and returns its location
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte) (string, error)
}

type s3Uploader struct {
	client *s3.Client
	bucket string
}

// NewS3Uploader builds an S3 client from static keys when configured, else the default chain
func NewS3Uploader(ctx context.Context, cfg config.ExportConfig) (Uploader, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to load AWS configuration for exports").
			Mark(ierr.ErrConfiguration)
	}

	return &s3Uploader{client: s3.NewFromConfig(awsCfg), bucket: cfg.Bucket}, nil
}

func (u *s3Uploader) Upload(ctx context.Context, key string, body []byte) (string, error) {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to upload export to S3").
			WithReportableDetails(map[string]interface{}{"bucket": u.bucket, "key": key}).
			Mark(ierr.ErrInternal)
	}
	return fmt.Sprintf("s3://%s/%s", u.bucket, key), nil
}
