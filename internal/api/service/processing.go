package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/cuongbtq/clipstack/internal/blob"
	"github.com/cuongbtq/clipstack/internal/combiner"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ProcessingService combines uploads within the request (sync and hybrid modes)
type ProcessingService struct {
	combiner  Combiner
	store     blob.Store
	uploadDir string
	outputDir string
	logger    *slog.Logger
}

// NewProcessingService creates a ProcessingService. store may be nil when only
// CombineLocal is used.
func NewProcessingService(c Combiner, store blob.Store, uploadDir, outputDir string, logger *slog.Logger) (*ProcessingService, error) {
	for _, dir := range []string{uploadDir, outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	return &ProcessingService{
		combiner:  c,
		store:     store,
		uploadDir: uploadDir,
		outputDir: outputDir,
		logger:    logger,
	}, nil
}

// CombineLocal saves both parts to the upload dir, combines them into the
// output dir and returns the output path
func (p *ProcessingService) CombineLocal(ctx context.Context, req SubmitRequest) (string, error) {
	opts, err := validate(req)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	inputs, err := p.saveParts(id, req)
	if err != nil {
		return "", err
	}
	defer removeAll(inputs[:])

	output := filepath.Join(p.outputDir, id+"-merged.mp4")
	if err := p.combine(ctx, inputs, output, opts); err != nil {
		return "", err
	}

	p.logger.Info("Files combined", slog.String("output", output))
	return output, nil
}

// CombineStored works like CombineLocal but also persists the inputs and the
// output to the blob store, returning a download URL for the output
func (p *ProcessingService) CombineStored(ctx context.Context, req SubmitRequest) (string, error) {
	if p.store == nil {
		return "", fmt.Errorf("blob store is not configured")
	}

	opts, err := validate(req)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	inputs, err := p.saveParts(id, req)
	if err != nil {
		return "", err
	}
	defer removeAll(inputs[:])

	g, gctx := errgroup.WithContext(ctx)
	for i, part := range []*FilePart{req.Video1, req.Video2} {
		g.Go(func() error {
			_, err := blob.Upload(gctx, p.store, blob.InputKey(id, i+1, part.Filename), inputs[i], contentType(part))
			return err
		})
	}

	output := filepath.Join(p.outputDir, id+"-merged.mp4")
	g.Go(func() error {
		return p.combine(gctx, inputs, output, opts)
	})

	if err := g.Wait(); err != nil {
		os.Remove(output)
		return "", err
	}
	defer os.Remove(output)

	locator, err := blob.Upload(ctx, p.store, blob.OutputKey(id, uuid.NewString()), output, "video/mp4")
	if err != nil {
		return "", err
	}

	url, err := p.store.DownloadURL(ctx, locator)
	if err != nil {
		return "", err
	}

	p.logger.Info("Files combined and stored",
		slog.String("job_id", id),
		slog.String("output", locator),
	)
	return url, nil
}

func (p *ProcessingService) combine(ctx context.Context, inputs [2]string, output string, opts options) error {
	return p.combiner.Combine(ctx, combiner.Request{
		Video1: inputs[0],
		Video2: inputs[1],
		Output: output,
		Layout: opts.layout,
		Audio:  opts.audio,
	})
}

// saveParts writes both parts into the upload dir under collision-free names
func (p *ProcessingService) saveParts(id string, req SubmitRequest) ([2]string, error) {
	var paths [2]string
	for i, part := range []*FilePart{req.Video1, req.Video2} {
		dst := filepath.Join(p.uploadDir, path.Base(blob.InputKey(id, i+1, part.Filename)))
		if err := savePart(part, dst); err != nil {
			removeAll(paths[:i])
			return paths, err
		}
		paths[i] = dst
	}
	return paths, nil
}

func savePart(part *FilePart, dst string) error {
	src, err := part.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", part.Filename, err)
	}
	defer src.Close()

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to save %s: %w", part.Filename, err)
	}
	return f.Close()
}

func removeAll(paths []string) {
	for _, p := range paths {
		if p != "" {
			os.Remove(p)
		}
	}
}
