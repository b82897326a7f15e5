package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"thumbnail-server/internal/broker"
	"thumbnail-server/internal/domain"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

type thumbEnsurer interface {
	EnsureThumb(ctx context.Context, q domain.ImageQuery) (string, domain.ThumbStatus, error)
}

type eventProducer interface {
	Send(ctx context.Context, strategy retry.Strategy, key, value []byte) error
}

// Pool renders thumbnails for warm tasks read from the broker.
type Pool struct {
	consumer    broker.Consumer
	producer    eventProducer
	images      thumbEnsurer
	retries     retry.Strategy
	concurrency int
	logger      *zlog.Zerolog
	wg          sync.WaitGroup
}

func NewPool(consumer broker.Consumer, producer eventProducer, images thumbEnsurer, retries retry.Strategy, concurrency int, logger *zlog.Zerolog) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Pool{
		consumer:    consumer,
		producer:    producer,
		images:      images,
		retries:     retries,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Run blocks until ctx is cancelled and every worker has returned.
func (p *Pool) Run(ctx context.Context) {
	messages := make(chan kafka.Message, p.concurrency*2)

	go p.consumer.StartConsuming(ctx, messages, p.retries)

	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.processWorker(ctx, id, messages)
		}(i)
	}

	p.logger.Info().Int("concurrency", p.concurrency).Msg("Worker pool started")

	<-ctx.Done()
	p.wg.Wait()

	p.logger.Info().Msg("Worker pool stopped")
}

func (p *Pool) processWorker(ctx context.Context, id int, messages <-chan kafka.Message) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Debug().Int("worker_id", id).Msg("Worker stopping")
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			start := time.Now()
			if err := p.safeProcessMessage(ctx, id, msg); err != nil {
				p.logger.Error().
					Err(err).
					Int("worker_id", id).
					Int64("offset", msg.Offset).
					Msg("Failed to process message")
				continue
			}
			if err := p.consumer.Commit(ctx, msg); err != nil {
				p.logger.Error().
					Err(err).
					Int("worker_id", id).
					Int64("offset", msg.Offset).
					Msg("Failed to commit message")
				continue
			}
			p.logger.Debug().
				Int("worker_id", id).
				Int64("offset", msg.Offset).
				Dur("duration", time.Since(start)).
				Msg("Message processed and committed")
		}
	}
}

func (p *Pool) safeProcessMessage(ctx context.Context, workerID int, msg kafka.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Int("worker_id", workerID).
				Interface("panic", r).
				Int64("offset", msg.Offset).
				Msg("Panic recovered while processing message")
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.processMessage(ctx, msg)
}

// processMessage returns an error only when the outcome could not be
// reported; such messages stay uncommitted and are delivered again.
func (p *Pool) processMessage(ctx context.Context, msg kafka.Message) error {
	var task domain.WarmTask
	if err := json.Unmarshal(msg.Value, &task); err != nil {
		p.logger.Error().Err(err).Int64("offset", msg.Offset).Msg("Dropping undecodable warm task")
		return nil
	}

	event := domain.ThumbnailEvent{
		TaskID: task.ID,
		File:   task.File,
		Width:  task.Width,
		Height: task.Height,
	}

	if err := task.Query().Validate(); err != nil {
		p.logger.Warn().Err(err).Str("task_id", task.ID).Str("file", task.File).Msg("Rejecting invalid warm task")
		event.Status = domain.StatusFailed
		event.Error = err.Error()
		event.CreatedAt = time.Now().UTC()
		return p.sendEvent(ctx, event)
	}

	path, status, err := p.images.EnsureThumb(ctx, task.Query())
	event.Status = status
	event.CreatedAt = time.Now().UTC()
	if err != nil {
		event.Error = err.Error()
		p.logger.Error().Err(err).Str("task_id", task.ID).Str("file", task.File).Msg("Warm task failed")
	} else {
		event.Path = path
		p.logger.Info().
			Str("task_id", task.ID).
			Str("path", path).
			Str("status", string(status)).
			Msg("Warm task completed")
	}

	return p.sendEvent(ctx, event)
}

func (p *Pool) sendEvent(ctx context.Context, event domain.ThumbnailEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	key := domain.ThumbFilename(event.File, event.Width, event.Height)
	if err := p.producer.Send(ctx, p.retries, []byte(key), payload); err != nil {
		return fmt.Errorf("failed to send event: %w", err)
	}
	return nil
}
