// Package storage archives raw marketplace payloads to S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shiphub/backend/internal/domain/integration"
	infraconfig "github.com/shiphub/backend/internal/infrastructure/config"
)

var _ integration.PayloadArchive = (*S3PayloadArchive)(nil)

const keyTimeLayout = "20060102T150405.000000000Z"

// s3API is the subset of the S3 client used by the archive
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3PayloadArchive writes one JSON object per fetch at
// raw/{userId}/{marketplace}/{timestamp}.json.
type S3PayloadArchive struct {
	client s3API
	bucket string
	prefix string
	logger *zap.Logger
}

// S3PayloadArchiveOption is a functional option for configuring S3PayloadArchive
type S3PayloadArchiveOption func(*S3PayloadArchive)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3PayloadArchiveOption {
	return func(s *S3PayloadArchive) {
		s.logger = logger
	}
}

// WithKeyPrefix replaces the default "raw" key prefix
func WithKeyPrefix(prefix string) S3PayloadArchiveOption {
	return func(s *S3PayloadArchive) {
		s.prefix = strings.Trim(prefix, "/")
	}
}

// NewS3PayloadArchive creates an archive from configuration. Any
// S3-compatible backend (AWS S3, MinIO) works.
func NewS3PayloadArchive(ctx context.Context, cfg *infraconfig.StorageConfig, opts ...S3PayloadArchiveOption) (*S3PayloadArchive, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newS3PayloadArchive(client, cfg.Bucket, opts...), nil
}

func newS3PayloadArchive(client s3API, bucket string, opts ...S3PayloadArchiveOption) *S3PayloadArchive {
	a := &S3PayloadArchive{
		client: client,
		bucket: bucket,
		prefix: "raw",
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ObjectKey returns the key a payload fetched at fetchedAt is stored under
func (s *S3PayloadArchive) ObjectKey(userID uuid.UUID, marketplace integration.MarketplaceCode, fetchedAt time.Time) string {
	return path.Join(s.prefix, userID.String(), string(marketplace), fetchedAt.UTC().Format(keyTimeLayout)+".json")
}

// Archive stores the raw orders as a JSON array and returns the object key
func (s *S3PayloadArchive) Archive(
	ctx context.Context,
	userID uuid.UUID,
	marketplace integration.MarketplaceCode,
	fetchedAt time.Time,
	orders []integration.RawOrder,
) (string, error) {
	body, err := json.Marshal(orders)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}

	key := s.ObjectKey(userID, marketplace, fetchedAt)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("application/json"),
		Metadata: map[string]string{
			"user-id":     userID.String(),
			"marketplace": string(marketplace),
			"orders":      fmt.Sprint(len(orders)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload payload: %w", err)
	}
	return key, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *S3PayloadArchive) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating payload bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Bucket returns the bucket name
func (s *S3PayloadArchive) Bucket() string {
	return s.bucket
}
