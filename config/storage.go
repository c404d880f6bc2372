package config

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectPutter is the subset of the S3 API used to store illustrations.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store holds the S3 client and bucket used for generated illustrations
type S3Store struct {
	Client        ObjectPutter
	BucketName    string
	Region        string
	PublicBaseURL string
}

// NewS3Store initializes the S3 client from the storage section. It returns
// nil without error when no bucket is configured.
func NewS3Store(ctx context.Context, cfg StorageConfig) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, nil
	}

	// Credentials come from the default chain (env, shared config, role)
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Store{
		Client:        s3.NewFromConfig(awsCfg),
		BucketName:    cfg.Bucket,
		Region:        cfg.Region,
		PublicBaseURL: cfg.PublicBaseURL,
	}, nil
}

// Upload stores data under key and returns its public URL.
func (s *S3Store) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.BucketName),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to s3: %w", key, err)
	}
	return s.PublicURL(key), nil
}

// PublicURL returns the URL an object is served from.
func (s *S3Store) PublicURL(key string) string {
	if s.PublicBaseURL != "" {
		return strings.TrimRight(s.PublicBaseURL, "/") + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.BucketName, s.Region, key)
}

// ObjectKey builds the key for an illustration generated at t.
func ObjectKey(id string, t time.Time) string {
	return fmt.Sprintf("illustrations/%s/%s.png", t.UTC().Format("2006/01/02"), id)
}
