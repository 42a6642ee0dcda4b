package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dairy-service/internal/app"
	"dairy-service/internal/domain"
)

var recurringDate string

// recurringCmd is meant for a daily scheduler.
var recurringCmd = &cobra.Command{
	Use:   "process-recurring",
	Short: "Generate the orders due from recurring templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		day := domain.Today()
		if recurringDate != "" {
			var err error
			if day, err = domain.ParseDay(recurringDate); err != nil {
				return fmt.Errorf("--date: %w", err)
			}
		}

		a, err := app.New(ctx, cfg, log, tel)
		if err != nil {
			return fmt.Errorf("init app: %w", err)
		}
		defer a.Close()

		result, err := a.Orders.ProcessRecurring(ctx, day)
		if err != nil {
			return fmt.Errorf("process recurring: %w", err)
		}
		log.Infow("recurring orders processed",
			"date", day, "created", len(result.Created), "skipped", len(result.Skipped), "advanced", result.Advanced)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	recurringCmd.Flags().StringVar(&recurringDate, "date", "", "Delivery date to process (YYYY-MM-DD, default today)")
}
