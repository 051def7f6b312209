// Command download-models fetches the depth models for offline use.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nvr-ai/go-depth/config"
	"github.com/nvr-ai/go-depth/logging"
	"github.com/nvr-ai/go-depth/provision"
	"github.com/spf13/cobra"
)

var root string

var rootCmd = &cobra.Command{
	Use:   "download-models",
	Short: "Download and cache the depth models",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if root != "" {
			cfg.Root = root
		}

		logger := logging.Must(logging.FromConfig(cfg))

		p := provision.New(cfg, logger)
		p.Out = cmd.OutOrStdout()
		code := p.Run(cmd.Context())
		_ = logger.Sync()
		if code != 0 {
			os.Exit(code)
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVar(&root, "root", "", "installation root that models/ is created under (default $DEPTH_MODELS_ROOT or .)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
