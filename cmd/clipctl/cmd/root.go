package cmd

import (
	"os"
	"strings"

	"github.com/cuongbtq/clipstack/internal/apiclient"
	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:8080"

type rootOptions struct {
	server       string
	outputFormat string
}

// NewRootCmd builds the clipctl command tree
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "clipctl",
		Short:         "Combine two clips into one portrait video",
		Long:          `clipctl runs the combiner locally or talks to a clipstack API service to submit uploads and follow their status.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	server := os.Getenv("CLIPSTACK_SERVER")
	if server == "" {
		server = defaultServer
	}

	root.PersistentFlags().StringVar(&opts.server, "server", server, "API service URL (env CLIPSTACK_SERVER)")
	root.PersistentFlags().StringVar(&opts.outputFormat, "format", "table", "output format: table or json")

	root.AddCommand(newCombineCmd())
	root.AddCommand(newSubmitCmd(opts))
	root.AddCommand(newStatusCmd(opts))

	return root
}

func (o *rootOptions) client() *apiclient.Client {
	return apiclient.New(strings.TrimRight(o.server, "/"), nil)
}

func (o *rootOptions) jsonOutput() bool {
	return o.outputFormat == "json"
}
