package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/tristendillon/diagify/core/config"
	"github.com/tristendillon/diagify/core/logger"
)

// S3Store implements ObjectStore using Amazon S3.
type S3Store struct {
	client   *s3.Client
	bucket   string
	kmsKeyID string
}

// NewS3Store loads the default AWS credential chain.
func NewS3Store(ctx context.Context, bucket string, cfg config.Storage) (*S3Store, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewS3StoreFromConfig(awsCfg, bucket, cfg.KMSKeyID)
}

func NewS3StoreFromConfig(awsCfg aws.Config, bucket, kmsKeyID string, optFns ...func(*s3.Options)) (*S3Store, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	return &S3Store{
		client:   s3.NewFromConfig(awsCfg, optFns...),
		bucket:   strings.TrimSpace(bucket),
		kmsKeyID: strings.TrimSpace(kmsKeyID),
	}, nil
}

func (s *S3Store) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	objectKey := strings.TrimLeft(key, "/")
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if s.kmsKeyID != "" {
		input.ServerSideEncryption = s3types.ServerSideEncryptionAwsKms
		input.SSEKMSKeyId = aws.String(s.kmsKeyID)
	} else {
		input.ServerSideEncryption = s3types.ServerSideEncryptionAes256
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("s3 put object bucket=%s key=%s: %w", s.bucket, objectKey, err)
	}

	location := fmt.Sprintf("s3://%s/%s", s.bucket, objectKey)
	logger.Debug("Uploaded artifact to %s", location)
	return location, nil
}

var _ ObjectStore = (*S3Store)(nil)
