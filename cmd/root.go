package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harborlight-fund/grantflow/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "grantflow",
	Short: "Grant application review and decision pipeline",
	Long:  "Tracks Letters of Interest and Applications through review, collects reviewer votes and budget assessments, and releases decisions to applicants.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
