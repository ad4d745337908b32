package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/cuongbtq/clipstack/internal/apiclient"
	"github.com/cuongbtq/clipstack/internal/domain"
	"github.com/spf13/cobra"
)

func newSubmitCmd(opts *rootOptions) *cobra.Command {
	var audio, layout string

	cmd := &cobra.Command{
		Use:   "submit <video1> <video2>",
		Short: "Upload two clips to the API service",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client().Submit(cmd.Context(), apiclient.SubmitRequest{
				Video1: args[0],
				Video2: args[1],
				Audio:  audio,
				Layout: layout,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput() {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}

			fmt.Fprintln(out, resp.Message)
			if resp.JobID != "" {
				fmt.Fprintf(out, "Job ID: %s\n", resp.JobID)
			}
			if resp.Output != "" {
				fmt.Fprintf(out, "Output: %s\n", resp.Output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&audio, "audio", domain.AudioOptionFirst, "audio option: audio1, audio2 or audioBoth")
	cmd.Flags().StringVar(&layout, "layout", "", "layout option: horizontal or vertical")

	return cmd
}
