package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/liskstats/aggregator/internal/control"
)

var resetCmd = &cobra.Command{
	Use:   "reset-cursor",
	Short: "Delete the persisted cache so the next run rebuilds from genesis",
	Run:   runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	pipeline, err := control.BuildPipeline(cfg, slog.Default())
	if err != nil {
		slog.Error("Failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer pipeline.Close()

	deleter, ok := pipeline.Store.(interface {
		Delete(ctx context.Context) error
	})
	if !ok {
		slog.Error("Cache backend does not support reset", "backend", cfg.Cache.Backend)
		os.Exit(1)
	}

	if err := deleter.Delete(context.Background()); err != nil {
		slog.Error("Failed to delete cache", "error", err)
		os.Exit(1)
	}

	fmt.Println("Cache deleted. The next update will rebuild from upstream history.")
}
