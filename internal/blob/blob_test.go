package blob

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputKey(t *testing.T) {
	assert.Equal(t, "uploads/job-1-video1.mp4", InputKey("job-1", 1, "clip.MP4"))
	assert.Equal(t, "uploads/job-1-video2.mov", InputKey("job-1", 2, "/tmp/some dir/b.mov"))
	assert.Equal(t, "uploads/job-1-video2", InputKey("job-1", 2, "noext"))
}

func TestOutputKey_DistinctPerDelivery(t *testing.T) {
	first := OutputKey("job-1", "d-1")
	second := OutputKey("job-1", "d-2")

	assert.Equal(t, "outputs/job-1-d-1-merged.mp4", first)
	assert.NotEqual(t, first, second)
}

func TestUploadDownload(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "in.mp4")
	require.NoError(t, os.WriteFile(src, []byte("video bytes"), 0o644))

	locator, err := Upload(context.Background(), store, "uploads/x-video1.mp4", src, "video/mp4")
	require.NoError(t, err)

	dst := filepath.Join(t.TempDir(), "out.mp4")
	n, err := Download(context.Background(), store, locator, dst)
	require.NoError(t, err)
	assert.Equal(t, int64(len("video bytes")), n)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "video bytes", string(data))
}

func TestUpload_MissingSource(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = Upload(context.Background(), store, "k", filepath.Join(t.TempDir(), "missing"), "")
	assert.Error(t, err)
}
