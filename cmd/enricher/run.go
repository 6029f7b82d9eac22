package main

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"catenrich/internal/config"
	"catenrich/internal/service"
	"catenrich/internal/storage"
	"catenrich/pkg/graceful"
	"catenrich/pkg/kafkaclient"
)

func newRunCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Consume storage notifications from Kafka and enrich each new document",
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := config.LoadPipeline(cfg.PipelineFile)
			if err != nil {
				return err
			}
			cfg.Pipeline = defs
			if err := cfg.ValidateService(); err != nil {
				return err
			}
			ctx, cancel := graceful.Context(cmd.Context())
			defer cancel()
			return runService(ctx, cfg)
		},
	}
}

func runService(ctx context.Context, cfg *config.Config) error {
	client, err := newCategoriesClient(cfg.Categories)
	if err != nil {
		return err
	}
	pipeline, err := buildPipeline(client, cfg.Pipeline)
	if err != nil {
		return err
	}

	s3Service, err := storage.NewS3Service(cfg.Minio)
	if err != nil {
		return err
	}
	if err := s3Service.EnsureBucket(ctx, cfg.Minio.EnrichedBucket, ""); err != nil {
		return err
	}

	var ledger service.OutcomeRecorder
	if cfg.PostgresDSN != "" {
		l, err := storage.NewLedger(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer l.Close()
		ledger = l
	} else {
		log.Info("POSTGRES_DSN not set, outcome ledger disabled")
	}

	deadLetters := kafkaclient.NewProducer(cfg.Kafka.Broker, cfg.Kafka.DeadLetterTopic)
	defer func() {
		if err := deadLetters.Close(); err != nil {
			log.WithError(err).Warn("Failed to close dead-letter producer")
		}
	}()

	log.WithFields(log.Fields{
		"broker": cfg.Kafka.Broker,
		"topic":  cfg.Kafka.Topic,
		"group":  cfg.Kafka.GroupID,
	}).Info("Connecting to Kafka")
	consumer, err := kafkaclient.NewKafkaConsumer(cfg.Kafka.Topic, cfg.Kafka.GroupID, cfg.Kafka.Broker)
	if err != nil {
		return err
	}
	consumer.StartConsuming(ctx)
	defer consumer.Stop()

	enricher := service.NewEnricher(consumer, s3Service, pipeline, deadLetters, ledger, cfg.Minio.EnrichedBucket)
	err = enricher.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("Enricher stopped")
		return nil
	}
	return err
}
