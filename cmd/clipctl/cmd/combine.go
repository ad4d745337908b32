package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/cuongbtq/clipstack/internal/combiner"
	"github.com/cuongbtq/clipstack/internal/domain"
	"github.com/cuongbtq/clipstack/shared/logger"
	"github.com/spf13/cobra"
)

func newCombineCmd() *cobra.Command {
	var (
		audio       string
		layout      string
		output      string
		ffmpegPath  string
		stderrLimit int
		dryRun      bool
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "combine <video1> <video2>",
		Short: "Combine two local clips with ffmpeg",
		Long:  `Stack two clips top/bottom (horizontal) or side by side (vertical) into a 1080x1920 video without going through the API.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			audioMode, err := domain.ParseAudioOption(audio)
			if err != nil {
				return err
			}
			layoutMode, err := domain.ParseLayoutOption(layout)
			if err != nil {
				return err
			}

			req := combiner.Request{
				Video1: args[0],
				Video2: args[1],
				Output: output,
				Layout: layoutMode,
				Audio:  audioMode,
			}

			if dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), ffmpegPath+" "+strings.Join(combiner.Args(req), " "))
				return nil
			}

			level := "warn"
			if verbose {
				level = "debug"
			}
			log, err := logger.New(&logger.Config{Level: level, Format: "console", Output: "stderr"})
			if err != nil {
				return err
			}
			defer log.Close()

			c := combiner.New(ffmpegPath, stderrLimit, log.Logger)
			if err := c.Combine(cmd.Context(), req); err != nil {
				log.Error("Combine failed", slog.String("output", output), slog.Any("error", err))
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&audio, "audio", domain.AudioOptionFirst, "audio option: audio1, audio2 or audioBoth")
	cmd.Flags().StringVar(&layout, "layout", "", "layout option: horizontal or vertical (default vertical)")
	cmd.Flags().StringVarP(&output, "out", "o", "merged.mp4", "output file")
	cmd.Flags().StringVar(&ffmpegPath, "ffmpeg", "ffmpeg", "ffmpeg binary")
	cmd.Flags().IntVar(&stderrLimit, "stderr-limit", 0, "bytes of ffmpeg stderr kept for error reports")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the ffmpeg command instead of running it")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log ffmpeg invocations")

	return cmd
}
