// Package storage uploads avatar images to an S3-compatible object store and
// hands back the public URL that gets persisted on the user document.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	appconfig "github.com/mkoval-dev/skycast/internal/config"
)

// AvatarStore wraps an S3 client and an uploader bound to one bucket.
type AvatarStore struct {
	uploader *manager.Uploader
	bucket   string
	baseURL  string
}

// NewAvatarStore builds the S3 client from static credentials against a
// custom endpoint (MinIO in development, any S3-compatible host in
// production). Path-style addressing is required for MinIO.
func NewAvatarStore(cfg appconfig.AvatarConfig) (*AvatarStore, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("avatar storage: endpoint, credentials and bucket must be set")
	}

	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	endpoint := fmt.Sprintf("%s://%s", scheme, cfg.Endpoint)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("avatar storage: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &AvatarStore{
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		baseURL:  fmt.Sprintf("%s/%s", endpoint, cfg.Bucket),
	}, nil
}

// Upload streams an image into the bucket under a random key and returns its
// public URL. The original filename only contributes its extension.
func (a *AvatarStore) Upload(ctx context.Context, filename, contentType string, body io.Reader) (string, error) {
	key := fmt.Sprintf("avatars/%s%s", uuid.NewString(), path.Ext(filename))
	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("avatar storage: upload: %w", err)
	}
	return fmt.Sprintf("%s/%s", a.baseURL, key), nil
}
