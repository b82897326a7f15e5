package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	kafka_impl "thumbnail-server/internal/broker/kafka"
	"thumbnail-server/internal/config"
	image_h "thumbnail-server/internal/http-server/handler/image"
	"thumbnail-server/internal/http-server/router"
	warm_uc "thumbnail-server/internal/usecase/warm"

	"github.com/wb-go/wbf/zlog"
)

type App struct {
	cfg      *config.Config
	server   *http.Server
	logger   *zlog.Zerolog
	producer *kafka_impl.ProducerClient
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zlog.Zerolog) (*App, error) {
	images, err := NewImageUsecase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var (
		producer     *kafka_impl.ProducerClient
		imageHandler *image_h.ImageHandler
	)
	if cfg.Kafka.Enabled {
		producer = kafka_impl.NewProducerClient(cfg.Kafka.Brokers, cfg.Kafka.WarmTopic)
		warmUsecase := warm_uc.NewWarmUsecase(producer, cfg.DefaultRetryStrategy(), logger)
		imageHandler = image_h.NewImageHandler(images, warmUsecase, logger)
	} else {
		imageHandler = image_h.NewImageHandler(images, nil, logger)
	}

	mux := router.SetupRouter(&router.Handler{
		ImageHandler: imageHandler,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		cfg:      cfg,
		server:   server,
		logger:   logger,
		producer: producer,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info().Str("addr", a.cfg.Server.Addr).Bool("warming", a.producer != nil).Msg("Starting server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go a.handleSignals(cancel)

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		a.logger.Error().Err(err).Msg("Server error")
		return err
	case <-ctx.Done():
		a.logger.Info().Msg("Shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error().Err(err).Msg("Server shutdown failed")
		}

		if a.producer != nil {
			if err := a.producer.Close(); err != nil {
				a.logger.Error().Err(err).Msg("Failed to close producer")
			}
		}

		a.logger.Info().Msg("Server stopped gracefully")
		return nil
	}
}

func (a *App) handleSignals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	a.logger.Info().Str("signal", sig.String()).Msg("Received signal")
	cancel()
}
