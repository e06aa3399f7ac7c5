package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"travelchat/internal/model"
)

// SessionSyncWorker consumes sync jobs published to RabbitMQ and pushes them
// to the remote store.
type SessionSyncWorker struct {
	conn      *amqp.Connection
	syncer    Syncer
	queueName string
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSessionSyncWorker(conn *amqp.Connection, syncer Syncer, queueName string, logger *zap.Logger) *SessionSyncWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionSyncWorker{
		conn:      conn,
		syncer:    syncer,
		queueName: queueName,
		logger:    logger,
	}
}

func (w *SessionSyncWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := w.Handle(workerCtx, d.Body); err != nil {
					w.logger.Warn("drop sync job", zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

// Handle decodes one job body and runs it. The remote client never reports
// sync failures, so only undecodable bodies return an error.
func (w *SessionSyncWorker) Handle(ctx context.Context, body []byte) error {
	var job model.SyncJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("decode sync job failed: %w", err)
	}
	w.syncer.UpsertMany(ctx, job.Sessions, job.OwnerID)
	return nil
}

func (w *SessionSyncWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
