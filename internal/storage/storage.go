package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"paper-summarizer/internal/config"
	"paper-summarizer/internal/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

// BlobStorage stores uploaded files by path
type BlobStorage interface {
	// Upload writes data under path and returns the storage-relative path that was written
	Upload(ctx context.Context, path string, contentType string, data []byte) (string, error)
	// Delete removes the object at path
	Delete(ctx context.Context, path string) error
}

// s3API is the subset of the S3 client used here
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Ensure S3Storage implements BlobStorage
var _ BlobStorage = (*S3Storage)(nil)

// S3Storage writes to an S3-compatible bucket (Supabase Storage exposes one)
type S3Storage struct {
	client s3API
	bucket string
}

// NewS3Storage creates a storage client from config
func NewS3Storage(cfg config.StorageConfig) *S3Storage {
	awsCfg := aws.Config{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	return &S3Storage{client: client, bucket: cfg.Bucket}
}

// Upload puts the object without overwriting semantics of its own; callers make paths unique
func (s *S3Storage) Upload(ctx context.Context, path string, contentType string, data []byte) (string, error) {
	key := NormalizeKey(path)
	if key == "" {
		return "", fmt.Errorf("invalid object path %q", path)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"bucket": s.bucket, "path": key, "error": err}).Error("Storage upload failed")
		return "", fmt.Errorf("error uploading %s: %w", key, err)
	}

	logger.Log.WithFields(logrus.Fields{"bucket": s.bucket, "path": key, "bytes": len(data)}).Info("Uploaded file")
	return key, nil
}

// Delete removes an object
func (s *S3Storage) Delete(ctx context.Context, path string) error {
	key := NormalizeKey(path)
	if key == "" {
		return fmt.Errorf("invalid object path %q", path)
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("error deleting %s: %w", key, err)
	}
	return nil
}

// NormalizeKey turns a user-supplied path into a clean object key
func NormalizeKey(path string) string {
	key := strings.TrimSpace(strings.ReplaceAll(path, "\\", "/"))
	key = strings.TrimPrefix(key, "/")
	for strings.Contains(key, "//") {
		key = strings.ReplaceAll(key, "//", "/")
	}
	return key
}
