// Command firereport produces the daily Nepal fire report and the website
// documents that summarize it.
//
// Usage:
//
//	firereport           # monitor, then publish
//	firereport monitor   # download detections and write the reports
//	firereport publish   # write data/today.json and data/archive.json
//	firereport serve     # serve the site documents and /metrics
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "firereport",
		Short: "Generate the daily Nepal fire report",
		Long: `firereport downloads the last 24 hours of MODIS active-fire detections,
counts them per district of Nepal, renders the map, spreadsheet and PDF
reports, and publishes the JSON documents read by the website.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCommand(cmd.Context(), "daily", daily)
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:           "monitor",
			Short:         "Fetch detections and write today's reports",
			Args:          cobra.NoArgs,
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runCommand(cmd.Context(), "monitor", monitor)
			},
		},
		&cobra.Command{
			Use:           "publish",
			Short:         "Publish today's reports to the website documents",
			Args:          cobra.NoArgs,
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runCommand(cmd.Context(), "publish", publish)
			},
		},
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the published documents, health checks and metrics",
			Long: `Serve the published documents with /healthz, /readyz and /metrics.

/metrics carries only the server's process and Go runtime metrics. Run
metrics belong to the daily commands; set METRICS_TEXTFILE to export them.`,
			Args:          cobra.NoArgs,
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd.Context())
			},
		},
	)
	return root
}
