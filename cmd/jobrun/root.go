package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"world-builder/internal/app"
	"world-builder/internal/domain"
	"world-builder/internal/infra/config"
	applog "world-builder/internal/infra/log"
)

var rootCmd = &cobra.Command{
	Use:   "jobrun",
	Short: "Manual runner for world-builder pipeline jobs",
	Long:  "Runs a single pipeline job to completion and prints its result as JSON. Flags override TARGET_DATE, TARGET_WEEK_START and TEST_USER_ID.",
}

func init() {
	run := &cobra.Command{
		Use:   "run <job>",
		Short: "Run one job",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
	run.Flags().String("date", "", "Target date YYYY-MM-DD (daily-update)")
	run.Flags().String("week-start", "", "Outgoing week start YYYY-MM-DD, a Monday (weekly-reset)")
	run.Flags().String("test-user", "", "External user id (notification-test)")
	rootCmd.AddCommand(run)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List jobs and their schedules",
		Run:   runList,
	})
}

func runJob(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	log.Logger = applog.NewLogger(cfg.AppEnv)

	opts := app.ManualOptions(cfg)
	if v, _ := cmd.Flags().GetString("date"); v != "" {
		opts.TargetDate = v
	}
	if v, _ := cmd.Flags().GetString("week-start"); v != "" {
		opts.TargetWeekStart = v
	}
	if v, _ := cmd.Flags().GetString("test-user"); v != "" {
		opts.TestUserID = v
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipelineApp, err := app.Build(ctx, cfg, log.Logger)
	if err != nil {
		return fmt.Errorf("сборка конвейера: %w", err)
	}
	defer pipelineApp.Close()

	res, err := pipelineApp.Runner.Run(ctx, domain.JobName(args[0]), opts)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("задание %s завершилось с ошибками: %d", args[0], len(res.Errors))
	}
	return nil
}

func runList(cmd *cobra.Command, _ []string) {
	cfg := config.Load()
	specs := map[domain.JobName]string{}
	for _, e := range app.Entries(cfg) {
		specs[e.Job] = e.Spec
	}
	for _, name := range domain.AllJobs {
		spec := specs[name]
		if spec == "" {
			spec = "manual"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s (%s)\n", name, spec, cfg.TZ)
	}
}

