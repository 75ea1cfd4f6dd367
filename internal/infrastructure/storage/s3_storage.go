// Package storage keeps generated order documents in S3-compatible object
// storage, with an in-memory stand-in for development.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/integration"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// StepPut is the step name reported on integration errors.
const StepPut = "put_object"

// S3ArtifactStorage implements integration.ArtifactStorage using AWS S3 SDK v2.
// It works with any S3-compatible backend (AWS S3, MinIO, RustFS, etc.)
type S3ArtifactStorage struct {
	client *s3.Client
	bucket string
	logger *zap.Logger
}

// S3ArtifactStorageOption is a functional option for configuring S3ArtifactStorage
type S3ArtifactStorageOption func(*S3ArtifactStorage)

// WithLogger sets a custom logger for S3ArtifactStorage
func WithLogger(logger *zap.Logger) S3ArtifactStorageOption {
	return func(s *S3ArtifactStorage) {
		s.logger = logger.Named("storage")
	}
}

// NewS3ArtifactStorage creates a storage client from configuration.
// The SDK retryer is disabled; retries are the caller's decision.
func NewS3ArtifactStorage(ctx context.Context, cfg *config.StorageConfig, opts ...S3ArtifactStorageOption) (*S3ArtifactStorage, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("storage access key and secret key are required")
	}

	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	if endpoint != "" {
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			return nil, fmt.Errorf("invalid storage endpoint: %w", err)
		}
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
		awsconfig.WithHTTPClient(&http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		o.Retryer = aws.NopRetryer{}
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	storage := &S3ArtifactStorage{
		client: client,
		bucket: cfg.Bucket,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(storage)
	}
	return storage, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
// Call this during application startup to ensure the bucket is ready.
func (s *S3ArtifactStorage) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating storage bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		// Ignore "BucketAlreadyOwnedByYou" error (race condition)
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Put uploads data under key and returns an s3:// reference
func (s *S3ArtifactStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", integration.Rejected(integration.SystemStorage, StepPut, "storage key is required")
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		s.logger.Warn("Artifact upload failed",
			zap.String("bucket", s.bucket),
			zap.String("key", key),
			zap.Error(err),
		)
		return "", classify(err)
	}

	s.logger.Debug("Artifact stored", zap.String("key", key), zap.Int("bytes", len(data)))
	return Ref(s.bucket, key), nil
}

// Bucket returns the bucket name
func (s *S3ArtifactStorage) Bucket() string {
	return s.bucket
}

// Ref formats the reference recorded on an order for a stored object.
func Ref(bucket, key string) string {
	return "s3://" + bucket + "/" + key
}

// classify maps SDK errors onto the integration taxonomy. Responses with a
// 4xx status other than 408 and 429 are rejections; everything else,
// including transport failures, is unavailable.
func classify(err error) error {
	var respErr interface{ HTTPStatusCode() int }
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() != 0 {
		ierr := integration.FromStatus(integration.SystemStorage, StepPut, respErr.HTTPStatusCode(), nil)
		ierr.Err = err
		return ierr
	}
	return integration.FromTransport(integration.SystemStorage, StepPut, err)
}

var _ integration.ArtifactStorage = (*S3ArtifactStorage)(nil)
