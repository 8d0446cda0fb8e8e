// Package media hands out presigned S3 upload URLs for product images.
package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const defaultPresignTTL = 15 * time.Minute

var ErrUnsupportedContentType = errors.New("unsupported image content type")

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

type Config struct {
	Bucket          string
	Region          string
	Endpoint        string // optional, for MinIO and other S3-compatible stores
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string // optional, where uploaded objects are served from
	PresignTTL      time.Duration
}

// Upload describes a presigned PUT the client performs itself.
type Upload struct {
	Method    string            `json:"method"`
	URL       string            `json:"url"`
	Headers   map[string]string `json:"headers"`
	Key       string            `json:"key"`
	PublicURL string            `json:"public_url"`
	ExpiresAt time.Time         `json:"expires_at"`
}

type S3ImageStore struct {
	presign   *s3.PresignClient
	bucket    string
	publicURL string
	ttl       time.Duration
	now       func() time.Time
}

func NewS3ImageStore(ctx context.Context, cfg Config) (*S3ImageStore, error) {
	const op = "media.NewS3ImageStore"

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%s: bucket is empty", op)
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = defaultPresignTTL
	}

	return &S3ImageStore{
		presign:   s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		publicURL: publicBase(cfg),
		ttl:       ttl,
		now:       time.Now,
	}, nil
}

func publicBase(cfg Config) string {
	switch {
	case cfg.PublicBaseURL != "":
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	case cfg.Endpoint != "":
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}

// ObjectKey returns a fresh key for an image of productID.
func ObjectKey(productID int64, ext string) string {
	return fmt.Sprintf("products/%d/%s%s", productID, uuid.New(), ext)
}

func (s *S3ImageStore) PresignProductImage(ctx context.Context, productID int64, contentType string) (Upload, error) {
	const op = "media.PresignProductImage"

	ext, ok := imageExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return Upload{}, fmt.Errorf("%s: %w: %q", op, ErrUnsupportedContentType, contentType)
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	key := ObjectKey(productID, ext)
	bucket := s.bucket

	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return Upload{}, fmt.Errorf("%s: %w", op, err)
	}

	headers := map[string]string{"Content-Type": contentType}
	for name, values := range req.SignedHeader {
		if len(values) > 0 && !strings.EqualFold(name, "host") {
			headers[http.CanonicalHeaderKey(name)] = values[0]
		}
	}

	return Upload{
		Method:    req.Method,
		URL:       req.URL,
		Headers:   headers,
		Key:       key,
		PublicURL: s.publicURL + "/" + (&url.URL{Path: key}).EscapedPath(),
		ExpiresAt: s.now().Add(s.ttl).UTC(),
	}, nil
}
