package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/cuongbtq/clipstack/internal/api/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCombine_DryRun(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains []string
	}{
		{
			name:     "default vertical first audio",
			args:     []string{"combine", "a.mp4", "b.mp4", "--dry-run"},
			contains: []string{"ffmpeg -y -i a.mp4 -i b.mp4", "hstack=inputs=2", "-map 0:a", "merged.mp4"},
		},
		{
			name:     "horizontal mixed audio",
			args:     []string{"combine", "a.mp4", "b.mp4", "--layout", "horizontal", "--audio", "audioBoth", "-o", "out.mp4", "--dry-run"},
			contains: []string{"vstack=inputs=2", "amix=inputs=2", "-map [a]", "out.mp4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestCombine_InvalidOptions(t *testing.T) {
	_, err := execute(t, "combine", "a.mp4", "b.mp4", "--audio", "audio3", "--dry-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid audio option")

	_, err = execute(t, "combine", "a.mp4", "b.mp4", "--layout", "diagonal", "--dry-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid layout option")

	_, err = execute(t, "combine", "only-one.mp4")
	require.Error(t, err)
}

func TestSubmit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "audio2", r.FormValue("audioOption"))
		_ = json.NewEncoder(w).Encode(dto.UploadResponse{Message: "Files uploaded and job queued", JobID: "job-42"})
	}))
	defer srv.Close()

	dir := t.TempDir()
	v1 := filepath.Join(dir, "a.mp4")
	v2 := filepath.Join(dir, "b.mp4")
	require.NoError(t, os.WriteFile(v1, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(v2, []byte("b"), 0o644))

	out, err := execute(t, "submit", v1, v2, "--audio", "audio2", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Files uploaded and job queued")
	assert.Contains(t, out, "Job ID: job-42")
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(dto.StatusResponse{Status: "failed", Error: "processing failed: exit status 1"})
	}))
	defer srv.Close()

	t.Run("table", func(t *testing.T) {
		out, err := execute(t, "status", "job-42", "--server", srv.URL)
		require.NoError(t, err)
		assert.Contains(t, out, "job-42")
		assert.Contains(t, out, "failed")
		assert.Contains(t, out, "exit status 1")
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "status", "job-42", "--server", srv.URL, "--format", "json")
		require.NoError(t, err)

		var resp dto.StatusResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, "failed", resp.Status)
	})
}

func TestStatus_Follow(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := dto.StatusResponse{Status: "processing"}
		if calls.Add(1) >= 3 {
			resp = dto.StatusResponse{Status: "completed", URL: "https://cdn.test/out.mp4"}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	out, err := execute(t, "status", "job-42", "--server", srv.URL, "--follow", "--interval", "1ms", "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Contains(t, out, "https://cdn.test/out.mp4")
}
