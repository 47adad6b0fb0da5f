package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/andymattgee/swe-blog/internal/logging"
)

// Handler processes one summary job. A returned error rejects the message
// without requeueing it.
type Handler func(ctx context.Context, ev SummaryRequestedEvent) error

// Consumer drains the entry.summarize queue.
type Consumer struct {
	URL     string
	Handle  Handler
	Log     logging.Logger
	Timeout time.Duration // per-message bound, 0 means one minute
}

// Run connects to RabbitMQ, declares the queue and consumes messages until
// ctx is cancelled. Connection failures are retried with exponential backoff
// capped at 30 seconds, so a broker outage never stops the server.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn(ctx, "summary-consumer: failed to dial broker", "err", err, "retry_in", backoff.String())
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warn(ctx, "summary-consumer: consume loop ended, reconnecting", "err", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// AI calls are slow; a small prefetch spreads work across consumers.
	if err := ch.Qos(4, 0, false); err != nil {
		c.Log.Warn(ctx, "summary-consumer: set QoS failed", "err", err)
	}
	if _, err := ch.QueueDeclare(SummaryQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(SummaryQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.HandleDelivery(ctx, d.Body); err != nil {
				c.Log.Error(ctx, "summary-consumer: handle message failed", "err", err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleDelivery decodes one message body and runs the handler under the
// per-message timeout.
func (c *Consumer) HandleDelivery(ctx context.Context, body []byte) error {
	var ev SummaryRequestedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.EntryID == 0 || ev.UserID == 0 {
		return errors.New("event without entry or user id")
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	hctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Handle(hctx, ev)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
