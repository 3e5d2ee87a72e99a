package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/amishk599/vacancyfeed/internal/audit"
	"github.com/amishk599/vacancyfeed/internal/model"
	"github.com/spf13/cobra"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List stored records",
	Long:  "Reads the record store and prints a table of records with per-stage counts.",
	RunE:  runRecords,
}

func init() {
	rootCmd.AddCommand(recordsCmd)
}

func runRecords(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return err
	}

	records, err := loadRecords(context.Background(), cfg.Store.Type, cfg.Store.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load store: %v\n", err)
		return err
	}

	fmt.Printf("%-12s %-40s %-12s %-10s %s\n", "ID", "Title", "Summary", "Sent", "First seen")
	fmt.Println(strings.Repeat("─", 96))
	for _, r := range records {
		sent := "no"
		if r.Sent {
			sent = "yes"
		}
		fmt.Printf("%-12s %-40s %-12s %-10s %s\n",
			r.ID, truncateTitle(r.Title, 40), r.Summary.State, sent, r.FirstSeenAt.Format("2006-01-02"))
	}

	counts := audit.Count(records)
	fmt.Printf("\nTotal: %d records (%d awaiting summary, %d ready, %d withheld, %d published)\n",
		counts[audit.ViewAll], counts[audit.ViewAwaitingSummary], counts[audit.ViewReady],
		counts[audit.ViewWithheld], counts[audit.ViewPublished])
	fmt.Printf("Spend: %.2f %s\n", totalCost(records), cfg.Publish.CostUnit)
	return nil
}

func truncateTitle(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func totalCost(records []model.Record) float64 {
	var sum float64
	for _, r := range records {
		if r.CostEstimate != nil {
			sum += *r.CostEstimate
		}
	}
	return sum
}
