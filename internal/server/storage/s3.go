// Package storage uploads listing images to S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/listings/internal/common"
	sc "github.com/dmitrijs2005/listings/internal/server/config"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// objectPutter is the part of *s3.Client used by S3Store.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store writes objects to one bucket and reports their public URLs.
type S3Store struct {
	bucket        string
	region        string
	endpoint      string
	publicBaseURL string
	client        objectPutter
}

// NewS3Store builds the S3 client from cfg. Credentials come from the
// static key pair when set, else the shared credentials file, else the
// default AWS chain.
func NewS3Store(ctx context.Context, cfg *sc.Config) (*S3Store, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.S3Region),
	}
	switch {
	case cfg.S3AccessKey != "":
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	case cfg.S3CredentialsFile != "":
		opts = append(opts, config.WithSharedCredentialsFiles([]string{cfg.S3CredentialsFile}))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		bucket:        cfg.S3Bucket,
		region:        cfg.S3Region,
		endpoint:      strings.TrimRight(cfg.S3BaseEndpoint, "/"),
		publicBaseURL: strings.TrimRight(cfg.S3PublicBaseURL, "/"),
		client:        client,
	}, nil
}

// Put uploads body under key and returns the object's URL. Every failure,
// including a missing bucket, wraps common.ErrStorageUnavailable.
func (s *S3Store) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	if s.bucket == "" {
		return "", fmt.Errorf("%w: bucket is not configured", common.ErrStorageUnavailable)
	}
	if key == "" {
		return "", errors.New("empty object key")
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("%w: put object: %v", common.ErrStorageUnavailable, err)
	}

	return s.ObjectURL(key), nil
}

// ObjectURL returns the public URL of key.
func (s *S3Store) ObjectURL(key string) string {
	escaped := escapeKey(key)
	switch {
	case s.publicBaseURL != "":
		return s.publicBaseURL + "/" + escaped
	case s.endpoint != "":
		return s.endpoint + "/" + s.bucket + "/" + escaped
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, escaped)
	}
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
