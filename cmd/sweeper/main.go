package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mecanica_marketplace/internal/adapter/persistence/repository"
	"mecanica_marketplace/internal/infrastructure/bootstrap"
	"mecanica_marketplace/internal/infrastructure/config"
	"mecanica_marketplace/internal/infrastructure/database"
	"mecanica_marketplace/internal/infrastructure/scheduler"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
)

var app *bootstrap.App

var rootCmd = &cobra.Command{
	Use:   "sweeper",
	Short: "Operational tooling for the marketplace job lifecycle",
	Long:  `sweeper runs the expiration sweep outside the API process and inspects job statistics.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cmd.Name() == "ensure-tables" {
			return
		}
		var err error
		app, err = bootstrap.Build(cmd.Context(), config.Load())
		if err != nil {
			log.Fatalf("Failed to build the engine: %v", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app != nil {
			app.Close()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one expiration sweep and print the report",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := scheduler.NewSweepScheduler(app.Engine, app.Config.SweepSchedule)
		if err != nil {
			log.Fatalf("Invalid schedule: %v", err)
		}
		report, err := s.RunOnce(cmd.Context())
		if err != nil {
			log.Fatalf("Sweep failed: %v", err)
		}
		printJSON(report)
		if len(report.Failures) > 0 {
			app.Close()
			os.Exit(1)
		}
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the expiration sweep on a cron schedule until interrupted",
	Run: func(cmd *cobra.Command, args []string) {
		expr, _ := cmd.Flags().GetString("cron")
		if expr == "" {
			expr = app.Config.SweepSchedule
		}
		s, err := scheduler.NewSweepScheduler(app.Engine, expr)
		if err != nil {
			log.Fatalf("Invalid schedule: %v", err)
		}
		s.Start()
		<-cmd.Context().Done()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.Stop(ctx)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print job statistics",
	Run: func(cmd *cobra.Command, args []string) {
		customerID, _ := cmd.Flags().GetString("customer-id")
		mechanicID, _ := cmd.Flags().GetString("mechanic-id")
		stats, err := app.Engine.GetJobStats(cmd.Context(), customerID, mechanicID)
		if err != nil {
			log.Fatalf("Failed to get stats: %v", err)
		}
		printJSON(stats)
	},
}

var ensureTablesCmd = &cobra.Command{
	Use:   "ensure-tables",
	Short: "Create the DynamoDB tables and indexes if missing",
	Run: func(cmd *cobra.Command, args []string) {
		ddb, err := database.ConnectDynamoDB(cmd.Context())
		if err != nil {
			log.Fatalf("Failed to connect to DynamoDB: %v", err)
		}
		if err := repository.EnsureTables(cmd.Context(), ddb); err != nil {
			log.Fatalf("Failed to ensure tables: %v", err)
		}
		fmt.Println("Tables ready")
	},
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}
}

func init() {
	scheduleCmd.Flags().String("cron", "", "cron expression, defaults to SWEEP_SCHEDULE")
	statsCmd.Flags().String("customer-id", "", "only jobs of this customer")
	statsCmd.Flags().String("mechanic-id", "", "only jobs of this mechanic")

	rootCmd.AddCommand(runCmd, scheduleCmd, statsCmd, ensureTablesCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
