package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Consumer drains the notification queues and hands payloads to the
// Mailer.  It runs a reconnect loop with exponential backoff and only
// stops when its context is cancelled, so a broker restart never takes
// the worker down with it.
type Consumer struct {
	url    string
	mailer *Mailer
	log    *zap.Logger
}

func NewConsumer(url string, mailer *Mailer, log *zap.Logger) *Consumer {
	return &Consumer{url: url, mailer: mailer, log: log}
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("notify consumer: broker dial failed",
				zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := c.consume(ctx, conn); err != nil {
			c.log.Warn("notify consumer: consume loop ended", zap.Error(err))
		}
		_ = conn.Close()

		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("notify consumer: set QoS failed", zap.Error(err))
	}

	for _, q := range []string{QueueTicketConfirmed, QueueEventCancelled} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
	}

	confirmed, err := ch.Consume(QueueTicketConfirmed, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", QueueTicketConfirmed, err)
	}
	cancelled, err := ch.Consume(QueueEventCancelled, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", QueueEventCancelled, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-confirmed:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.handle(d, c.handleTicketConfirmed)
		case d, ok := <-cancelled:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.handle(d, c.handleEventCancelled)
		}
	}
}

// handle acks on success and rejects without requeue on failure so a
// poison message cannot wedge the queue.
func (c *Consumer) handle(d amqp.Delivery, fn func([]byte) error) {
	if err := fn(d.Body); err != nil {
		c.log.Warn("notify consumer: handle message failed", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

func (c *Consumer) handleTicketConfirmed(body []byte) error {
	var ev TicketConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal ticket confirmation: %w", err)
	}
	if err := c.mailer.SendTicketConfirmation(ev); err != nil {
		return err
	}
	c.log.Info("ticket confirmation delivered",
		zap.String("ticket", ev.TicketCode), zap.String("event", ev.EventTitle))
	return nil
}

func (c *Consumer) handleEventCancelled(body []byte) error {
	var ev EventCancelledEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal cancellation notice: %w", err)
	}
	if err := c.mailer.SendEventCancellation(ev); err != nil {
		return err
	}
	c.log.Info("cancellation notices delivered",
		zap.String("event", ev.EventTitle), zap.Int("recipients", len(ev.Emails)))
	return nil
}
