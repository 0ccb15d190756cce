package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"world-builder/internal/app"
	"world-builder/internal/infra/config"
	httpinfra "world-builder/internal/infra/http"
	applog "world-builder/internal/infra/log"
	"world-builder/internal/infra/metrics"
	"world-builder/internal/usecase/schedule"
)

func main() {
	cfg := config.Load()
	log.Logger = applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipelineApp, err := app.Build(ctx, cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("worker: не удалось собрать конвейер")
	}
	defer pipelineApp.Close()

	scheduler := schedule.NewScheduler(ctx, pipelineApp.Runner, pipelineApp.Location, pipelineApp.Cache, log.Logger)
	if err := scheduler.Register(app.Entries(cfg)); err != nil {
		log.Fatal().Err(err).Msg("worker: некорректное расписание")
	}
	scheduler.Start()

	srv := httpinfra.NewServer(log.Logger, pipelineApp.Runner, pipelineApp.Runner.Registry().Names(), cfg.AdminToken)
	go func() {
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			log.Error().Err(err).Msg("worker: HTTP сервер остановлен")
			stop()
		}
	}()

	log.Info().Msg("worker: запущен")
	<-ctx.Done()
	log.Info().Msg("worker: остановка")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("worker: ошибка остановки HTTP сервера")
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("worker: задания не успели завершиться")
	}
}
