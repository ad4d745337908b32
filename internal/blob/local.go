package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cuongbtq/clipstack/internal/domain"
)

// DownloadRoute is the API path prefix serving LocalStore objects
const DownloadRoute = "/download/"

// LocalStore keeps objects under a root directory. Locators are file:// URLs.
type LocalStore struct {
	root string
}

// NewLocalStore creates the root directory if needed
func NewLocalStore(root string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &LocalStore{root: abs}, nil
}

func (l *LocalStore) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	dst, err := l.pathFor(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", &domain.StorageError{Op: "put", Key: key, Err: err}
	}

	// Write to a temp file first so readers never observe a partial object.
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".put-*")
	if err != nil {
		return "", &domain.StorageError{Op: "put", Key: key, Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", &domain.StorageError{Op: "put", Key: key, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return "", &domain.StorageError{Op: "put", Key: key, Err: err}
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", &domain.StorageError{Op: "put", Key: key, Err: err}
	}

	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(dst)}).String(), nil
}

func (l *LocalStore) Get(ctx context.Context, locator string) (io.ReadCloser, error) {
	key, err := l.keyFromLocator(locator)
	if err != nil {
		return nil, err
	}

	p, err := l.pathFor(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if err != nil {
		return nil, &domain.StorageError{Op: "get", Key: key, Err: err}
	}
	return f, nil
}

// DownloadURL returns the API route serving the object
func (l *LocalStore) DownloadURL(ctx context.Context, locator string) (string, error) {
	key, err := l.keyFromLocator(locator)
	if err != nil {
		return "", err
	}
	return DownloadRoute + key, nil
}

func (l *LocalStore) keyFromLocator(locator string) (string, error) {
	if !strings.HasPrefix(locator, "file://") {
		if locator == "" {
			return "", domain.ValidationError("empty locator")
		}
		return strings.TrimPrefix(locator, "/"), nil
	}

	u, err := url.Parse(locator)
	if err != nil {
		return "", fmt.Errorf("%w: invalid locator %q: %v", domain.ErrValidation, locator, err)
	}

	rel, err := filepath.Rel(l.root, filepath.FromSlash(u.Path))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", domain.ValidationError("locator %q is outside the storage root", locator)
	}
	return filepath.ToSlash(rel), nil
}

// pathFor maps a key to a file path, rejecting keys that escape the root
func (l *LocalStore) pathFor(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", domain.ValidationError("empty object key")
	}
	return filepath.Join(l.root, filepath.FromSlash(clean)), nil
}
