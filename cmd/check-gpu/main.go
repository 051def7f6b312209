// Command check-gpu prints the compute backends available to the depth
// pipelines.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nvr-ai/go-depth/config"
	"github.com/nvr-ai/go-depth/diagnostics"
	"github.com/nvr-ai/go-depth/logging"
	"github.com/spf13/cobra"
)

var asJSON bool

var rootCmd = &cobra.Command{
	Use:   "check-gpu",
	Short: "Report available GPU backends",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		logger := logging.Must(logging.FromConfig(cfg))
		defer logger.Sync()

		report := diagnostics.Collect(diagnostics.DefaultSources(cfg.ORTLibrary), logger)
		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		report.Write(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	rootCmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
