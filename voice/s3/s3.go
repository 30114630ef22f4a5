// Package s3 stores synthesized audio in Amazon S3 or any S3-compatible
// object store (MinIO, R2, etc.).
package s3

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/psyuktha/L3AGI/voice"
)

// Client is the subset of the S3 API the uploader needs.
// The [s3.Client] type satisfies this interface.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader implements voice.Uploader.
type Uploader struct {
	client    Client
	bucket    string
	prefix    string
	publicURL string
}

var _ voice.Uploader = (*Uploader)(nil)

// Option configures an Uploader.
type Option func(*Uploader)

// WithPrefix is prepended to every object key.
func WithPrefix(p string) Option {
	return func(u *Uploader) { u.prefix = strings.Trim(p, "/") }
}

// WithPublicURL sets the base URL objects are served from, e.g. a CDN.
// Without it, virtual-hosted S3 URLs are returned.
func WithPublicURL(base string) Option {
	return func(u *Uploader) { u.publicURL = strings.TrimRight(base, "/") }
}

// New returns an Uploader writing to bucket through client.
func New(client Client, bucket string, opts ...Option) *Uploader {
	u := &Uploader{client: client, bucket: bucket}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// NewFromEnv loads AWS credentials from the default chain. A non-empty
// endpoint selects an S3-compatible store with path-style addressing.
func NewFromEnv(ctx context.Context, bucket, region, endpoint string, opts ...Option) (*Uploader, error) {
	var loadOpts []func(*config.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	if endpoint != "" {
		opts = append([]Option{WithPublicURL(strings.TrimRight(endpoint, "/") + "/" + bucket)}, opts...)
	}
	return New(client, bucket, opts...), nil
}

func (u *Uploader) key(k string) string {
	if u.prefix == "" {
		return k
	}
	return u.prefix + "/" + k
}

// Upload writes body under key and returns the object's URL.
func (u *Uploader) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	full := u.key(key)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(full),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3: put %s: %w", full, err)
	}
	if u.publicURL != "" {
		return u.publicURL + "/" + full, nil
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", u.bucket, full), nil
}
