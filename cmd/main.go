package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"congresoreg/internal/api/api"
	"congresoreg/internal/config"
	emailWorker "congresoreg/internal/consumerWorker"
	"congresoreg/internal/mailer"
	"congresoreg/internal/metrics"
	"congresoreg/internal/rabbit"
	"congresoreg/internal/service"
	"congresoreg/internal/sheets"
	"congresoreg/internal/telegram"
	"congresoreg/internal/vision"

	"github.com/wb-go/wbf/zlog"
)

func main() {
	zlog.Init()
	log := zlog.Logger

	cfg := config.MustLoad(&log)
	port := cfg.Server.Port

	ctx := context.Background()

	store, err := sheets.New(ctx, cfg.Sheets.CredentialsFile, cfg.Sheets.SpreadsheetID, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize spreadsheet client")
	}
	if err := store.EnsureHeader(ctx, cfg.Sheets.DefaultTab); err != nil {
		log.Fatal().Err(err).Msg("destination tab schema check failed")
	}
	log.Info().Str("tab", cfg.Sheets.DefaultTab).Msg("Spreadsheet schema validated")

	notifier, err := telegram.New(cfg.Telegram.BotToken, cfg.Telegram.ChatID, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telegram notifier")
	}

	extractor, err := vision.New(ctx, cfg.Vision.APIKey, cfg.Vision.Model, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize vision extractor")
	}
	defer extractor.Close()

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	var publisher service.EventPublisher
	var worker *emailWorker.Reader
	if cfg.Rabbit.Enabled() {
		rmq, err := rabbit.NewRabbit(cfg.Rabbit.URL, cfg.Rabbit.Exchange, cfg.Rabbit.Queue)
		if err != nil {
			log.Fatal().Msgf("Failed to connect to RabbitMQ: %v", err)
		}
		defer rmq.Close()
		publisher = rmq

		if cfg.SMTP.Enabled() {
			mail := mailer.New(cfg.SMTP.Addr, cfg.SMTP.From, cfg.SMTP.Password, &log)
			worker = emailWorker.NewReader(rmq, mail)
			worker.Start(workerCtx)
		} else {
			log.Info().Msg("SMTP not configured, confirmation e-mails disabled")
		}
	} else {
		log.Info().Msg("RabbitMQ not configured, registration events disabled")
	}

	m := metrics.NewSubmissionMetrics()
	serviceInstance := service.NewService(store, extractor, notifier, publisher, m, cfg.Sheets.DefaultTab, &log)
	app := api.NewRouters(&api.Routers{Service: serviceInstance})

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info().Msgf("Starting server on %s", port)
		if err := app.Run(":" + port); err != nil {
			serverErrChan <- fmt.Errorf("failed to start server: %w", err)
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-signalChan:
		log.Info().Msgf("Received signal %s. Initiating shutdown...", sig)
	case err := <-serverErrChan:
		log.Error().Msgf("Server error: %v", err)
	}

	cancelWorkers()
	if worker != nil {
		worker.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if closer, ok := interface{}(app).(interface{ Close(context.Context) error }); ok {
		if err := closer.Close(shutdownCtx); err != nil {
			log.Error().Msgf("Error shutting down server: %v", err)
		}
	}

	log.Info().Msg("Shutdown complete")
}
