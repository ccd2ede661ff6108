package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Options configures the S3-compatible blob store client.
type Options struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	// PublicBaseURL overrides the URL prefix under which stored objects are
	// publicly retrievable. Defaults to path-style endpoint/bucket.
	PublicBaseURL  string
	DisableTLS     bool
	ForcePathStyle bool
}

// Store is a thin wrapper around the AWS SDK v2 S3 client. Objects are
// written public-read and addressed by a stable URL derived from their key.
type Store struct {
	api    *s3.Client
	bucket string
	base   string
}

// New initialises a Store from the provided options.
func New(opts Options) (*Store, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return nil, errors.New("blob: endpoint is required")
	}
	if opts.AccessKey == "" || opts.SecretKey == "" {
		return nil, errors.New("blob: access key and secret key are required")
	}
	if opts.Bucket == "" {
		return nil, errors.New("blob: bucket is required")
	}

	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}

	scheme := "https"
	if opts.DisableTLS {
		scheme = "http"
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = fmt.Sprintf("%s://%s", scheme, endpoint)
	}

	cfg, err := awsconfig.LoadDefaultConfig(
		context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")),
		awsconfig.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = opts.ForcePathStyle
		o.BaseEndpoint = aws.String(endpoint)
	})

	base := strings.TrimSuffix(opts.PublicBaseURL, "/")
	if base == "" {
		base = fmt.Sprintf("%s/%s", strings.TrimSuffix(endpoint, "/"), opts.Bucket)
	}

	return &Store{api: client, bucket: opts.Bucket, base: base}, nil
}

// Put uploads data under key with the given content type and returns the
// public retrieval URL. The object is readable at that URL as soon as Put
// returns.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if s == nil {
		return "", errors.New("nil blob store")
	}
	if key == "" {
		return "", errors.New("blob: key is required")
	}

	size := int64(len(data))
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          bytes.NewReader(data),
		ContentLength: &size,
		ContentType:   &contentType,
		ACL:           s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", err
	}

	return s.URL(key), nil
}

// Delete removes the object addressed by url. Unknown URLs are an error.
func (s *Store) Delete(ctx context.Context, url string) error {
	if s == nil {
		return errors.New("nil blob store")
	}
	key, err := s.Key(url)
	if err != nil {
		return err
	}

	_, err = s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	return err
}

// URL returns the public URL for an object key.
func (s *Store) URL(key string) string {
	return s.base + "/" + strings.TrimPrefix(key, "/")
}

// Key extracts the object key from a URL previously returned by Put.
func (s *Store) Key(url string) (string, error) {
	prefix := s.base + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", fmt.Errorf("blob: url %q is not addressed by this store", url)
	}
	key := strings.TrimPrefix(url, prefix)
	if key == "" {
		return "", errors.New("blob: empty object key")
	}
	return key, nil
}
