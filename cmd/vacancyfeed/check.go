package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/amishk599/vacancyfeed/internal/model"
	"github.com/amishk599/vacancyfeed/internal/pipeline"
	"github.com/amishk599/vacancyfeed/internal/store"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Dry-run ingestion, print new vacancies, exit",
	Long:  "Fetches and scrapes like `ingest` against an in-memory copy of the store, prints what would be added, and persists nothing.",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	logger.Info("check mode: nothing will be persisted")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	existing, err := loadRecords(ctx, cfg.Store.Type, cfg.Store.Path)
	if err != nil {
		logger.Error("failed to load store", "error", err)
		return err
	}
	mem, err := store.NewMemoryStoreFrom(existing)
	if err != nil {
		return err
	}

	report, err := setupIngest(cfg, mem, logger).Run(ctx)
	if err != nil {
		logger.Error("check failed", "error", err)
		return err
	}

	after, err := mem.Load(ctx)
	if err != nil {
		return err
	}
	printNewRecords(after[len(existing):])

	logger.Info("check complete",
		"fetched", report.Fetched,
		"skipped", report.Skipped,
		"filtered", report.Filtered,
		"new", report.Added,
		"scrape_failures", report.ScrapeFailures,
	)
	return nil
}

// loadRecords reads the persisted store once and closes it.
func loadRecords(ctx context.Context, kind, path string) ([]model.Record, error) {
	s, err := store.Open(kind, path)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.Load(ctx)
}

func printNewRecords(records []model.Record) {
	if len(records) == 0 {
		fmt.Println("No new vacancies.")
		return
	}
	fmt.Printf("%d new vacancies:\n\n", len(records))
	for _, r := range records {
		company := "company not specified"
		if r.Company != nil {
			company = *r.Company
		}
		desc := "ok"
		if r.Description.IsFailed() {
			desc = "FAILED: " + r.Description.Text()
		}
		fmt.Printf("  %s\n", r.Title)
		fmt.Printf("    %s · %s\n", company, pipeline.SalaryLine(r.SalaryFrom, r.SalaryTo, r.SalaryCurrency))
		fmt.Printf("    %s\n", r.URL)
		fmt.Printf("    description: %s\n", desc)
	}
	fmt.Println(strings.Repeat("─", 47))
}
