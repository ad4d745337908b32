package combiner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/cuongbtq/clipstack/internal/domain"
)

const (
	defaultBinary      = "ffmpeg"
	defaultStderrLimit = 8 << 10

	horizontalGraph = "[0:v]scale=1080:960,setsar=1[top];[1:v]scale=1080:960,setsar=1[bottom];[top][bottom]vstack=inputs=2[v]"
	verticalGraph   = "[0:v]scale=540:1920,setsar=1[left];[1:v]scale=540:1920,setsar=1[right];[left][right]hstack=inputs=2[v]"
	audioMixGraph   = "[0:a][1:a]amix=inputs=2[a]"
)

// Request describes one combine run. Paths are local files.
type Request struct {
	Video1 string
	Video2 string
	Output string
	Layout domain.LayoutMode
	Audio  domain.AudioMode
}

// Combiner runs ffmpeg to stack two videos into one
type Combiner struct {
	binary      string
	stderrLimit int
	logger      *slog.Logger
}

// New creates a Combiner. An empty binary means "ffmpeg" from PATH.
func New(binary string, stderrLimit int, logger *slog.Logger) *Combiner {
	if binary == "" {
		binary = defaultBinary
	}
	if stderrLimit <= 0 {
		stderrLimit = defaultStderrLimit
	}
	return &Combiner{binary: binary, stderrLimit: stderrLimit, logger: logger}
}

// Binary returns the ffmpeg executable the combiner invokes
func (c *Combiner) Binary() string {
	return c.binary
}

// FilterGraph returns the -filter_complex value for a layout and audio mode
func FilterGraph(layout domain.LayoutMode, audio domain.AudioMode) string {
	graph := verticalGraph
	if layout == domain.LayoutHorizontal {
		graph = horizontalGraph
	}
	if audio == domain.AudioMixBoth {
		graph += ";" + audioMixGraph
	}
	return graph
}

func audioMap(audio domain.AudioMode) string {
	switch audio {
	case domain.AudioSecondOnly:
		return "1:a"
	case domain.AudioMixBoth:
		return "[a]"
	default:
		return "0:a"
	}
}

// Args returns the ffmpeg argument list for req, without the binary
func Args(req Request) []string {
	return []string{
		"-y",
		"-i", req.Video1,
		"-i", req.Video2,
		"-filter_complex", FilterGraph(req.Layout, req.Audio),
		"-map", "[v]",
		"-map", audioMap(req.Audio),
		"-c:a", "aac",
		req.Output,
	}
}

// Combine runs ffmpeg and blocks until it exits. On failure the partial output
// is removed and a *domain.ProcessingError carrying the stderr tail is returned.
func (c *Combiner) Combine(ctx context.Context, req Request) error {
	if req.Video1 == "" || req.Video2 == "" || req.Output == "" {
		return domain.ValidationError("combine requires two inputs and an output path")
	}

	args := Args(req)
	stderr := newTailBuffer(c.stderrLimit)

	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Stderr = stderr

	c.logger.Debug("Running ffmpeg",
		slog.String("binary", c.binary),
		slog.String("args", strings.Join(args, " ")),
	)

	start := time.Now()
	err := cmd.Run()
	if err == nil {
		c.logger.Debug("ffmpeg finished",
			slog.String("output", req.Output),
			slog.Duration("elapsed", time.Since(start)),
		)
		return nil
	}

	if rmErr := os.Remove(req.Output); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		c.logger.Warn("Failed to remove partial output",
			slog.String("output", req.Output),
			slog.Any("error", rmErr),
		)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%w (%v)", ctxErr, err)
	}

	return &domain.ProcessingError{
		Err:        err,
		Diagnostic: strings.TrimSpace(stderr.String()),
	}
}
