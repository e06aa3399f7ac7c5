package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"travelchat/internal/model"
)

// SyncPublisher queues session sync jobs for SessionSyncWorker.
type SyncPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewSyncPublisher(conn *amqp.Connection, queueName string) *SyncPublisher {
	return &SyncPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *SyncPublisher) Dispatch(ctx context.Context, job model.SyncJob) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		p.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal sync job failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish sync job failed: %w", err)
	}
	return nil
}
