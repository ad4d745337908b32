package blob

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/cuongbtq/clipstack/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is a minimal path-style object server: PUT and GET /<bucket>/<key>
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		f.objects[r.URL.Path] = body
		f.types[r.URL.Path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`))
			return
		}
		_, _ = w.Write(body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestS3Store(t *testing.T, ttl time.Duration) (*S3Store, *fakeS3) {
	t.Helper()

	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := aws.Config{
		Region:                     "us-east-1",
		Credentials:                credentials.NewStaticCredentialsProvider("AKID", "SECRET", ""),
		BaseEndpoint:               aws.String(srv.URL),
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
		RetryMaxAttempts:           1,
	}

	return NewS3Store(cfg, S3Options{Bucket: "clips", UsePathStyle: true, PresignTTL: ttl}), fake
}

func TestS3Store_PutGet(t *testing.T) {
	store, fake := newTestS3Store(t, 0)

	locator, err := store.Put(context.Background(), "uploads/j-video1.mp4", strings.NewReader("first clip"), "video/mp4")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(locator, "/clips/uploads/j-video1.mp4"), locator)
	assert.Equal(t, "video/mp4", fake.types["/clips/uploads/j-video1.mp4"])

	rc, err := store.Get(context.Background(), locator)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "first clip", string(data))
}

func TestS3Store_GetMissing(t *testing.T) {
	store, _ := newTestS3Store(t, 0)

	_, err := store.Get(context.Background(), "s3://clips/uploads/none.mp4")
	require.Error(t, err)

	var storageErr *domain.StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, "uploads/none.mp4", storageErr.Key)
}

func TestS3Store_DownloadURL(t *testing.T) {
	t.Run("no presign returns locator", func(t *testing.T) {
		store, _ := newTestS3Store(t, 0)
		url, err := store.DownloadURL(context.Background(), "s3://clips/outputs/a.mp4")
		require.NoError(t, err)
		assert.Equal(t, "s3://clips/outputs/a.mp4", url)
	})

	t.Run("presigned", func(t *testing.T) {
		store, _ := newTestS3Store(t, time.Hour)
		url, err := store.DownloadURL(context.Background(), "s3://clips/outputs/a.mp4")
		require.NoError(t, err)
		assert.Contains(t, url, "/clips/outputs/a.mp4")
		assert.Contains(t, url, "X-Amz-Expires=3600")
		assert.Contains(t, url, "X-Amz-Signature=")
	})
}

func TestS3Store_KeyFromLocator(t *testing.T) {
	store := &S3Store{bucket: "clips"}

	tests := []struct {
		locator string
		want    string
		wantErr bool
	}{
		{locator: "s3://clips/uploads/a.mp4", want: "uploads/a.mp4"},
		{locator: "https://clips.s3.ap-southeast-2.amazonaws.com/uploads/a.mp4", want: "uploads/a.mp4"},
		{locator: "http://localhost:9000/clips/outputs/b%20c.mp4", want: "outputs/b c.mp4"},
		{locator: "uploads/raw.mp4", want: "uploads/raw.mp4"},
		{locator: "s3://other/uploads/a.mp4", wantErr: true},
		{locator: "https://example.com/elsewhere/a.mp4", wantErr: true},
		{locator: "ftp://clips/a.mp4", wantErr: true},
		{locator: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.locator, func(t *testing.T) {
			got, err := store.keyFromLocator(tt.locator)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
