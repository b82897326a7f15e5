package warm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"thumbnail-server/internal/domain"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

var ErrQueueUnavailable = errors.New("warm queue unavailable")

type taskProducer interface {
	Send(ctx context.Context, strategy retry.Strategy, key, value []byte) error
}

// WarmUsecase queues thumbnails to be rendered ahead of the first request.
type WarmUsecase struct {
	producer taskProducer
	retries  retry.Strategy
	logger   *zlog.Zerolog
}

func NewWarmUsecase(producer taskProducer, retries retry.Strategy, logger *zlog.Zerolog) *WarmUsecase {
	return &WarmUsecase{
		producer: producer,
		retries:  retries,
		logger:   logger,
	}
}

// Enqueue publishes a warm task keyed by the thumbnail name, so tasks for
// one thumbnail land on the same partition.
func (w *WarmUsecase) Enqueue(ctx context.Context, q domain.ImageQuery) (*domain.WarmTask, error) {
	if w == nil || w.producer == nil {
		return nil, ErrQueueUnavailable
	}

	task := &domain.WarmTask{
		ID:        uuid.New().String(),
		File:      q.File,
		Width:     q.Width,
		Height:    q.Height,
		CreatedAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal warm task: %w", err)
	}

	if err := w.producer.Send(ctx, w.retries, []byte(q.Key()), payload); err != nil {
		w.logger.Error().Err(err).Str("task_id", task.ID).Str("key", q.Key()).Msg("Failed to send warm task")
		return nil, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}

	w.logger.Info().Str("task_id", task.ID).Str("key", q.Key()).Msg("Warm task queued")
	return task, nil
}
