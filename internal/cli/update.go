package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/liskstats/aggregator/internal/control"
)

var fullResync bool

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Run one ingestion cycle and exit",
	Long:  `Runs a single guarded ingestion cycle: the gap guard picks a quick update or a full re-sync. With --full the cache is rebuilt from upstream history unconditionally.`,
	Run:   runUpdate,
}

func init() {
	updateCmd.Flags().BoolVar(&fullResync, "full", false, "force a full re-sync instead of the guarded decision")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	pipeline, err := control.BuildPipeline(cfg, slog.Default())
	if err != nil {
		slog.Error("Failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer pipeline.Close()

	ctx := context.Background()

	report, err := func() (any, error) {
		if fullResync {
			return pipeline.Engine.Rebuild(ctx)
		}
		return pipeline.Guard.Run(ctx)
	}()
	if err != nil {
		slog.Error("Update failed", "error", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))
}
