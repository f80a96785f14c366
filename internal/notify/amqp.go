package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQPPublisher publishes notification events to RabbitMQ.  Each publish
// opens a short-lived connection; at this traffic volume that is simpler
// than managing a shared channel across reconnects, and a broker outage
// costs a notification, never a registration.
type AMQPPublisher struct {
	url string
	log *zap.Logger
}

func NewAMQPPublisher(url string, log *zap.Logger) *AMQPPublisher {
	return &AMQPPublisher{url: url, log: log}
}

func (p *AMQPPublisher) TicketConfirmed(ctx context.Context, ev TicketConfirmedEvent) error {
	return p.publish(ctx, QueueTicketConfirmed, ev)
}

func (p *AMQPPublisher) EventCancelled(ctx context.Context, ev EventCancelledEvent) error {
	return p.publish(ctx, QueueEventCancelled, ev)
}

func (p *AMQPPublisher) publish(ctx context.Context, queue string, ev any) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Warn("notify: broker dial failed", zap.String("queue", queue), zap.Error(err))
		return fmt.Errorf("amqp dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("notify: channel open failed", zap.String("queue", queue), zap.Error(err))
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable queue so notices survive a broker restart.
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		p.log.Warn("notify: queue declare failed", zap.String("queue", queue), zap.Error(err))
		return fmt.Errorf("amqp queue declare: %w", err)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		p.log.Warn("notify: publish failed", zap.String("queue", queue), zap.Error(err))
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}
