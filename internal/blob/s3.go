package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cuongbtq/clipstack/internal/domain"
)

// S3Options configures an S3Store
type S3Options struct {
	Bucket       string
	UsePathStyle bool
	PresignTTL   time.Duration
}

// S3Store keeps objects in a single S3 bucket. Locators are the object URLs
// reported by the uploader.
type S3Store struct {
	client     *s3.Client
	uploader   *manager.Uploader
	presigner  *s3.PresignClient
	bucket     string
	presignTTL time.Duration
}

// NewS3Store creates an S3Store from an aws.Config
func NewS3Store(cfg aws.Config, opts S3Options) *S3Store {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = opts.UsePathStyle
	})

	return &S3Store{
		client:     client,
		uploader:   manager.NewUploader(client),
		presigner:  s3.NewPresignClient(client),
		bucket:     opts.Bucket,
		presignTTL: opts.PresignTTL,
	}
}

func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	out, err := s.uploader.Upload(ctx, input)
	if err != nil {
		return "", &domain.StorageError{Op: "put", Key: key, Err: err}
	}

	if out.Location != "" {
		return out.Location, nil
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

func (s *S3Store) Get(ctx context.Context, locator string) (io.ReadCloser, error) {
	key, err := s.keyFromLocator(locator)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, &domain.StorageError{Op: "get", Key: key, Err: err}
	}
	return out.Body, nil
}

// DownloadURL returns a presigned GET URL when a presign TTL is configured,
// otherwise the locator itself
func (s *S3Store) DownloadURL(ctx context.Context, locator string) (string, error) {
	if s.presignTTL <= 0 {
		return locator, nil
	}

	key, err := s.keyFromLocator(locator)
	if err != nil {
		return "", err
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignTTL))
	if err != nil {
		return "", &domain.StorageError{Op: "presign", Key: key, Err: err}
	}
	return req.URL, nil
}

// keyFromLocator accepts s3://bucket/key, virtual-hosted and path-style
// object URLs, and bare keys
func (s *S3Store) keyFromLocator(locator string) (string, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return "", fmt.Errorf("%w: invalid locator %q: %v", domain.ErrValidation, locator, err)
	}

	p := strings.TrimPrefix(u.Path, "/")
	switch u.Scheme {
	case "":
		if p == "" {
			return "", domain.ValidationError("empty locator")
		}
		return p, nil
	case "s3":
		if u.Host != s.bucket {
			return "", domain.ValidationError("locator %q is not in bucket %s", locator, s.bucket)
		}
		return p, nil
	case "http", "https":
		if strings.HasPrefix(u.Host, s.bucket+".") {
			return p, nil
		}
		if key, ok := strings.CutPrefix(p, s.bucket+"/"); ok {
			return key, nil
		}
		return "", domain.ValidationError("locator %q is not in bucket %s", locator, s.bucket)
	default:
		return "", domain.ValidationError("unsupported locator scheme %q", u.Scheme)
	}
}
