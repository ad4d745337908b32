package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/cuongbtq/clipstack/internal/api/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestClient_Submit(t *testing.T) {
	var got struct {
		video1, video2 string
		name1          string
		audio, layout  string
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		read := func(field string) (string, string) {
			f, fh, err := r.FormFile(field)
			require.NoError(t, err)
			defer f.Close()
			data, err := io.ReadAll(f)
			require.NoError(t, err)
			return string(data), fh.Filename
		}
		got.video1, got.name1 = read("video1")
		got.video2, _ = read("video2")
		got.audio = r.FormValue("audioOption")
		got.layout = r.FormValue("layoutOption")

		_ = json.NewEncoder(w).Encode(dto.UploadResponse{Message: "Files uploaded and job queued", JobID: "job-1"})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", srv.Client())
	resp, err := c.Submit(context.Background(), SubmitRequest{
		Video1: writeTemp(t, "left.mp4", "one"),
		Video2: writeTemp(t, "right.mp4", "two"),
		Audio:  "audioBoth",
		Layout: "horizontal",
	})
	require.NoError(t, err)

	assert.Equal(t, "job-1", resp.JobID)
	assert.Equal(t, "one", got.video1)
	assert.Equal(t, "left.mp4", got.name1)
	assert.Equal(t, "two", got.video2)
	assert.Equal(t, "audioBoth", got.audio)
	assert.Equal(t, "horizontal", got.layout)
}

func TestClient_SubmitMissingFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil).Submit(context.Background(), SubmitRequest{
		Video1: filepath.Join(t.TempDir(), "nope.mp4"),
		Video2: filepath.Join(t.TempDir(), "nope2.mp4"),
		Audio:  "audio1",
	})
	require.Error(t, err)
}

func TestClient_SubmitValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("Invalid audio option selected."))
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil).Submit(context.Background(), SubmitRequest{
		Video1: writeTemp(t, "a.mp4", "a"),
		Video2: writeTemp(t, "b.mp4", "b"),
		Audio:  "audio9",
	})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Invalid audio option selected.", apiErr.Message)
}

func TestClient_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/status/abc-123", r.URL.Path)
		_ = json.NewEncoder(w).Encode(dto.StatusResponse{Status: "completed", URL: "https://cdn.test/out.mp4"})
	}))
	defer srv.Close()

	resp, err := New(srv.URL, nil).Status(context.Background(), "abc-123")
	require.NoError(t, err)
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, "https://cdn.test/out.mp4", resp.URL)
}

func TestClient_StatusBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil).Status(context.Background(), "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
}
