package worker

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"thumbnail-server/internal/app"
	kafka_impl "thumbnail-server/internal/broker/kafka"
	"thumbnail-server/internal/config"
	warm_worker "thumbnail-server/internal/worker"

	"github.com/wb-go/wbf/zlog"
)

var ErrKafkaDisabled = errors.New("kafka is disabled; the warm worker has nothing to consume")

type Worker struct {
	cfg    *config.Config
	logger *zlog.Zerolog
	broker *kafka_impl.KafkaClient
	pool   *warm_worker.Pool
}

func NewWorker(ctx context.Context, cfg *config.Config, logger *zlog.Zerolog) (*Worker, error) {
	if !cfg.Kafka.Enabled {
		return nil, ErrKafkaDisabled
	}

	images, err := app.NewImageUsecase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	brokerClient := kafka_impl.NewKafkaClient(cfg)

	logger.Info().
		Strs("brokers", cfg.Kafka.Brokers).
		Str("topic", cfg.Kafka.WarmTopic).
		Str("group", cfg.Kafka.GroupID).
		Int("concurrency", cfg.Worker.Concurrency).
		Msg("Worker configuration")

	return &Worker{
		cfg:    cfg,
		logger: logger,
		broker: brokerClient,
		pool:   warm_worker.NewPool(brokerClient, brokerClient, images, cfg.DefaultRetryStrategy(), cfg.Worker.Concurrency, logger),
	}, nil
}

func (w *Worker) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		sig := <-sigChan
		w.logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal, stopping worker")
		cancel()
	}()

	w.pool.Run(ctx)

	if err := w.broker.Close(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to close broker")
	}

	w.logger.Info().Msg("Worker stopped gracefully")
	return nil
}
