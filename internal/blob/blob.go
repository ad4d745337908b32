package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cuongbtq/clipstack/internal/domain"
)

// Key prefixes
const (
	UploadPrefix = "uploads"
	OutputPrefix = "outputs"
)

// Store is the object store holding job inputs and outputs. Locators returned
// by Put are opaque to callers and are only passed back to Get or DownloadURL.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Get(ctx context.Context, locator string) (io.ReadCloser, error)
	DownloadURL(ctx context.Context, locator string) (string, error)
}

// InputKey names the stored copy of input n (1 or 2) of a job, keeping the
// client's file extension
func InputKey(jobID string, n int, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join(UploadPrefix, fmt.Sprintf("%s-video%d%s", jobID, n, ext))
}

// OutputKey names the artifact of one delivery of a job. deliveryID is unique
// per worker execution so redeliveries never overwrite each other.
func OutputKey(jobID, deliveryID string) string {
	return path.Join(OutputPrefix, fmt.Sprintf("%s-%s-merged.mp4", jobID, deliveryID))
}

// Download copies the object at locator into the local file dst
func Download(ctx context.Context, store Store, locator, dst string) (int64, error) {
	rc, err := store.Get(ctx, locator)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	f, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dst, err)
	}

	n, err := io.Copy(f, rc)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return n, &domain.StorageError{Op: "download", Key: locator, Err: err}
	}
	return n, nil
}

// Upload stores the local file src under key
func Upload(ctx context.Context, store Store, key, src, contentType string) (string, error) {
	f, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer f.Close()

	return store.Put(ctx, key, f, contentType)
}
