package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/cuongbtq/clipstack/internal/api/dto"
	"github.com/cuongbtq/clipstack/internal/domain"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var (
		follow   bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the status of a submitted job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := opts.client()
			jobID := args[0]

			for {
				resp, err := client.Status(cmd.Context(), jobID)
				if err != nil {
					return err
				}

				if !follow || resp.Status != domain.ReportProcessing {
					return printStatus(cmd.OutOrStdout(), jobID, resp, opts.jsonOutput())
				}

				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-time.After(interval):
				}
			}
		},
	}

	cmd.Flags().BoolVar(&follow, "follow", false, "poll until the job completes or fails")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "poll interval with --follow")

	return cmd
}

func printStatus(w io.Writer, jobID string, resp *dto.StatusResponse, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	table := tablewriter.NewWriter(w)
	table.Header("Job ID", "Status", "Detail")

	detail := resp.URL
	if resp.Error != "" {
		detail = resp.Error
	}
	if err := table.Append([]string{jobID, resp.Status, detail}); err != nil {
		return fmt.Errorf("failed to render status: %w", err)
	}
	return table.Render()
}
