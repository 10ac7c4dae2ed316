package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config selects a bucket. Endpoint is set for S3-compatible stores.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PathStyle bool
	// PublicURL is the base objects are served from. Defaults to the
	// virtual-hosted AWS URL for the bucket.
	PublicURL string
	Prefix    string
}

// S3 uploads objects to a bucket.
type S3 struct {
	client   *s3.Client
	cfg      S3Config
	maxBytes int64
}

func NewS3(cfg S3Config, maxBytes int64) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 media: bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := s3.Options{
		Region:       cfg.Region,
		UsePathStyle: cfg.PathStyle,
	}
	if cfg.AccessKey != "" {
		creds := aws.Credentials{AccessKeyID: cfg.AccessKey, SecretAccessKey: cfg.SecretKey, Source: "folio"}
		opts.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil },
		))
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return &S3{client: s3.New(opts), cfg: cfg, maxBytes: maxBytes}, nil
}

func (s *S3) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	obj, err := Prepare(name, r, s.maxBytes)
	if err != nil {
		return "", err
	}
	key := s.cfg.Prefix + obj.Key

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(obj.Data),
		ContentType:   aws.String(obj.ContentType),
		ContentLength: aws.Int64(int64(len(obj.Data))),
		Metadata:      map[string]string{"original-filename": name},
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload %s: %w", key, err)
	}
	return s.objectURL(key), nil
}

func (s *S3) objectURL(key string) string {
	if s.cfg.PublicURL != "" {
		return strings.TrimSuffix(s.cfg.PublicURL, "/") + "/" + key
	}
	if s.cfg.Endpoint != "" {
		return strings.TrimSuffix(s.cfg.Endpoint, "/") + "/" + s.cfg.Bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
}
