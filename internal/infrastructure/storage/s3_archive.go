// Package storage provides object storage implementations for attachment
// archiving.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/arflow/backend/internal/application/syncer"
	infraconfig "github.com/arflow/backend/internal/infrastructure/config"
)

// Ensure S3ArchiveStore implements ArchiveStore
var _ syncer.ArchiveStore = (*S3ArchiveStore)(nil)

// S3ArchiveStore archives attachment bytes to S3-compatible object storage
// (AWS S3, MinIO, RustFS, etc.)
type S3ArchiveStore struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
	logger    *zap.Logger
}

// S3ArchiveStoreOption is a functional option for configuring S3ArchiveStore
type S3ArchiveStoreOption func(*S3ArchiveStore)

// WithLogger sets a custom logger for S3ArchiveStore
func WithLogger(logger *zap.Logger) S3ArchiveStoreOption {
	return func(s *S3ArchiveStore) {
		s.logger = logger
	}
}

// NewS3ArchiveStore creates a new S3ArchiveStore from configuration
func NewS3ArchiveStore(cfg *infraconfig.StorageConfig, opts ...S3ArchiveStoreOption) (*S3ArchiveStore, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if endpoint, err := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL); err == nil && endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	store := &S3ArchiveStore{
		client:    client,
		bucket:    cfg.Bucket,
		keyPrefix: strings.Trim(cfg.KeyPrefix, "/"),
		logger:    zap.NewNop(),
	}

	for _, opt := range opts {
		opt(store)
	}

	return store, nil
}

// Put uploads one attachment body and returns the full object key
func (s *S3ArchiveStore) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	if key == "" {
		return "", errors.New("object key is required")
	}

	objectKey := key
	if s.keyPrefix != "" && !strings.HasPrefix(key, s.keyPrefix+"/") {
		objectKey = s.keyPrefix + "/" + strings.TrimPrefix(key, "/")
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
		Body:   bytes.NewReader(body),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to archive object %s: %w", objectKey, err)
	}

	s.logger.Debug("archived attachment",
		zap.String("bucket", s.bucket),
		zap.String("key", objectKey),
		zap.Int("size_bytes", len(body)))

	return objectKey, nil
}

// normalizeEndpoint ensures a custom endpoint carries a scheme. An empty
// endpoint means AWS S3 proper and is returned as-is.
func normalizeEndpoint(endpoint string, useSSL bool) (string, error) {
	if endpoint == "" {
		return "", nil
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if useSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if _, err := url.Parse(endpoint); err != nil {
		return "", fmt.Errorf("invalid storage endpoint: %w", err)
	}
	return endpoint, nil
}
