package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/liskstats/aggregator/internal/control"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last persisted cache summary",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	pipeline, err := control.BuildPipeline(cfg, slog.Default())
	if err != nil {
		slog.Error("Failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer pipeline.Close()

	cache, err := pipeline.Engine.CachedData(context.Background())
	if err != nil {
		slog.Error("Failed to load cache", "error", err)
		os.Exit(1)
	}
	if cache == nil {
		fmt.Println("No cache built yet.")
		return
	}

	fmt.Printf("Schema:             %s\n", cache.SchemaVersion)
	fmt.Printf("Total transactions: %d\n", cache.TotalTransactions)
	fmt.Printf("Days active:        %d\n", cache.TotalDaysActive)
	fmt.Printf("Cursor:             block %d, index %d\n", cache.Cursor.LastBlockNumber, cache.Cursor.LastTxIndex)
	fmt.Printf("Last update:        %s\n", cache.LastUpdate.Format("2006-01-02 15:04:05 UTC"))
	fmt.Println()

	days := make([]string, 0, len(cache.DailyStatus))
	for day := range cache.DailyStatus {
		days = append(days, day)
	}
	sort.Strings(days)
	if len(days) > 14 {
		days = days[len(days)-14:]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "DAY\tCOUNT\tSTATUS")
	for _, day := range days {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", day, cache.DailyTotals[day], cache.DailyStatus[day])
	}
	_ = w.Flush()
}
