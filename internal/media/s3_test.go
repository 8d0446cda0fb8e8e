package media

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *S3ImageStore {
	t.Helper()
	t.Setenv("AWS_CONFIG_FILE", t.TempDir()+"/none")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", t.TempDir()+"/none")

	s, err := NewS3ImageStore(context.Background(), Config{
		Bucket:          "freshly-images",
		Region:          "us-east-1",
		Endpoint:        "http://127.0.0.1:9000",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio-secret",
		PresignTTL:      10 * time.Minute,
	})
	require.NoError(t, err)
	return s
}

func TestPresignProductImage(t *testing.T) {
	s := newTestStore(t)

	up, err := s.PresignProductImage(context.Background(), 42, "image/PNG")
	require.NoError(t, err)

	assert.Equal(t, "PUT", up.Method)
	assert.True(t, strings.HasPrefix(up.Key, "products/42/"))
	assert.True(t, strings.HasSuffix(up.Key, ".png"))
	assert.Equal(t, "image/png", up.Headers["Content-Type"])
	assert.Equal(t, "http://127.0.0.1:9000/freshly-images/"+up.Key, up.PublicURL)

	u, err := url.Parse(up.URL)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", u.Host)
	assert.Equal(t, "/freshly-images/"+up.Key, u.Path)
	assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestPresignProductImage_UnsupportedType(t *testing.T) {
	s := newTestStore(t)

	_, err := s.PresignProductImage(context.Background(), 1, "application/pdf")
	assert.ErrorIs(t, err, ErrUnsupportedContentType)
}

func TestNewS3ImageStore_RequiresBucket(t *testing.T) {
	_, err := NewS3ImageStore(context.Background(), Config{Region: "us-east-1"})
	assert.Error(t, err)
}

func TestPublicBase(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com", publicBase(Config{PublicBaseURL: "https://cdn.example.com/", Bucket: "b"}))
	assert.Equal(t, "https://b.s3.eu-west-1.amazonaws.com", publicBase(Config{Bucket: "b", Region: "eu-west-1"}))
}
