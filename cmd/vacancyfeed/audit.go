package main

import (
	"context"
	"fmt"
	"os"

	"github.com/amishk599/vacancyfeed/internal/audit"
	"github.com/amishk599/vacancyfeed/internal/config"
	"github.com/amishk599/vacancyfeed/internal/model"
	"github.com/amishk599/vacancyfeed/internal/pipeline"
	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Browse stored records interactively (TUI)",
	Long:  "Shows the view picker TUI, then launches the split-pane record browser with a message preview.",
	RunE:  runAuditCmd,
}

func init() {
	rootCmd.AddCommand(auditCmd)
}

func runAuditCmd(cmd *cobra.Command, args []string) error {
	// No logger here: log output before the alt-screen starts corrupts the display.
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return err
	}
	runAudit(cfg)
	return nil
}

func runAudit(cfg *config.Config) {
	records, err := audit.RunLoader(cfg.Store.Path, func(ctx context.Context) ([]model.Record, error) {
		return loadRecords(ctx, cfg.Store.Type, cfg.Store.Path)
	})
	if err != nil {
		fmt.Printf("Error loading records: %v\n", err)
		return
	}
	if len(records) == 0 {
		fmt.Println("The store is empty. Run `vacancyfeed ingest` first.")
		return
	}

	format := pipeline.FormatOptions{
		SupportURL: cfg.Publish.SupportURL,
		CostUnit:   cfg.Publish.CostUnit,
	}

	for {
		view, ok, err := audit.RunViewPicker(audit.Count(records))
		if err != nil {
			fmt.Printf("Picker error: %v\n", err)
			return
		}
		if !ok {
			return
		}

		wantQuit, err := audit.RunAuditTUI(view.String(), audit.Select(records, view), format)
		if err != nil {
			fmt.Printf("TUI error: %v\n", err)
		}
		if wantQuit {
			return
		}
		// else: loop → back to picker
	}
}
