package service

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/cuongbtq/clipstack/internal/combiner"
	"github.com/cuongbtq/clipstack/internal/domain"
	"github.com/cuongbtq/clipstack/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.putErr != nil {
		return "", &domain.StorageError{Op: "put", Key: key, Err: m.putErr}
	}
	m.objects[key] = data
	return "mem://" + key, nil
}

func (m *memStore) Get(ctx context.Context, locator string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[strings.TrimPrefix(locator, "mem://")]
	if !ok {
		return nil, &domain.StorageError{Op: "get", Key: locator, Err: os.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStore) DownloadURL(ctx context.Context, locator string) (string, error) {
	return "https://download.test/" + strings.TrimPrefix(locator, "mem://"), nil
}

func (m *memStore) putCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

type fakeJobs struct {
	mu        sync.Mutex
	created   []*domain.Job
	failed    map[string]string
	records   map[string]*storage.JobRecord
	createErr error
	getErr    error
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{failed: map[string]string{}, records: map[string]*storage.JobRecord{}}
}

func (f *fakeJobs) CreateJob(ctx context.Context, job *domain.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, job)
	return nil
}

func (f *fakeJobs) MarkFailed(ctx context.Context, jobID, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[jobID] = errMsg
	return nil
}

func (f *fakeJobs) GetJob(ctx context.Context, jobID string) (*storage.JobRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	rec, ok := f.records[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type fakeCombiner struct {
	mu       sync.Mutex
	requests []combiner.Request
	err      error
}

func (f *fakeCombiner) Combine(ctx context.Context, req combiner.Request) error {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.err != nil {
		return &domain.ProcessingError{Err: f.err, Diagnostic: "Invalid data found when processing input"}
	}
	return os.WriteFile(req.Output, []byte("merged"), 0o644)
}

func part(name, contentType, content string) *FilePart {
	return &FilePart{
		Filename:    name,
		ContentType: contentType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

func failingPart(name string) *FilePart {
	return &FilePart{
		Filename:    name,
		ContentType: "video/mp4",
		Open: func() (io.ReadCloser, error) {
			return nil, fmt.Errorf("cannot open %s", name)
		},
	}
}

// mp4Header is the start of an ISO BMFF file with an mp42 brand
var mp4Header = "\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42isom" + strings.Repeat("\x00", 32)
