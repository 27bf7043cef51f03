package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/floodrisk/internal/config"
)

var (
	cfg           *config.Config
	shutdownTrace func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "floodrisk",
	Short: "Multi-criteria raster flood-risk engine",
	Long: "Classifies elevation, slope, rainfall and proximity grids into risk categories, " +
		"derives factor weights from pairwise judgments (AHP) and combines them into one risk surface.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		shutdown, err := initTracing(cmd.Context(), cfg.Trace)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		shutdownTrace = shutdown

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if shutdownTrace != nil {
			if err := shutdownTrace(context.Background()); err != nil {
				zap.L().Warn("trace shutdown failed", zap.Error(err))
			}
		}
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
