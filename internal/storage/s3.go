package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"homedeck/internal/config"
)

var _ Bucket = (*S3Bucket)(nil)

// s3API is the part of the S3 client the bucket uses.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Bucket stores objects in an S3-compatible bucket.
type S3Bucket struct {
	client  s3API
	bucket  string
	baseURL string
}

// NewS3Bucket returns a bucket for cfg. When publicBaseURL is empty, object
// URLs are derived from the endpoint and bucket name.
func NewS3Bucket(ctx context.Context, cfg config.S3Config, publicBaseURL string) (*S3Bucket, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: s3 bucket must not be empty")
	}
	if publicBaseURL == "" {
		publicBaseURL = defaultS3BaseURL(cfg)
	}
	return &S3Bucket{client: newS3Client(cfg), bucket: cfg.Bucket, baseURL: publicBaseURL}, nil
}

func newS3Client(cfg config.S3Config) *s3.Client {
	opts := []func(*s3.Options){
		func(o *s3.Options) {
			if cfg.Region != "" {
				o.Region = cfg.Region
			} else {
				o.Region = "us-east-1"
			}

			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}

			if cfg.UsePathStyle {
				o.UsePathStyle = true
			}

			if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
				o.Credentials = credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID, cfg.SecretAccessKey, "",
				)
			}
		},
	}

	return s3.New(s3.Options{}, opts...)
}

func defaultS3BaseURL(cfg config.S3Config) string {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	if cfg.Endpoint != "" {
		endpoint := strings.TrimRight(cfg.Endpoint, "/")
		if cfg.UsePathStyle {
			return endpoint + "/" + cfg.Bucket
		}
		scheme, host, found := strings.Cut(endpoint, "://")
		if !found {
			return "https://" + cfg.Bucket + "." + endpoint
		}
		return scheme + "://" + cfg.Bucket + "." + host
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
}

func (b *S3Bucket) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	cleaned, err := CleanKey(key)
	if err != nil {
		return err
	}
	in := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(cleaned),
		Body:   body,
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := b.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("putting object %q: %w", cleaned, err)
	}
	return nil
}

func (b *S3Bucket) Delete(ctx context.Context, key string) error {
	cleaned, err := CleanKey(key)
	if err != nil {
		return err
	}
	_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(cleaned),
	})
	if err != nil && !isS3NotFound(err) {
		return fmt.Errorf("deleting object %q: %w", cleaned, err)
	}
	return nil
}

func (b *S3Bucket) PublicURL(key string) string {
	return joinURL(b.baseURL, key)
}

func isS3NotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	return strings.Contains(err.Error(), "NoSuchKey")
}
