package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jasser00/bigdata/core/consumer"
	"github.com/jasser00/bigdata/core/server"
	"github.com/jasser00/bigdata/internal/config"
	"github.com/jasser00/bigdata/internal/db"
)

func main() {
	cfg := config.Load()

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl)

	pool, err := db.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	options := []server.ConfigOption{
		server.WithPostgres(pool),
		server.WithKafka(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID),
		server.WithCORSOrigins(cfg.CORSOrigins),
		server.WithPort(cfg.Port),
	}

	if cfg.AlertConsumerEnabled {
		options = append(options, server.WithAlertWorker(
			consumer.NewLogConsumer("MaintenanceAlerts"),
			cfg.AlertWorkers,
			cfg.AlertBatchSize,
		))
	}

	srv, err := server.NewServer(options...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create server")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("shutdown signal received")
		cancel()
	}()

	if err := srv.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}

	srv.Close()
	log.Info().Msg("server shutdown complete")
}
