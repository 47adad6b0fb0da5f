package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/andymattgee/swe-blog/internal/logging"
)

// Publisher sends summary jobs to RabbitMQ. It dials lazily and keeps one
// connection open; a broken connection is dropped and redialled on the next
// publish. Errors are logged and returned so callers may ignore them.
type Publisher struct {
	url string
	log logging.Logger

	mu   sync.Mutex
	conn *amqp.Connection
}

func NewPublisher(url string, log logging.Logger) *Publisher {
	return &Publisher{url: url, log: log.With("component", "summary-publisher")}
}

// PublishSummaryRequested publishes ev as a persistent JSON message.
func (p *Publisher) PublishSummaryRequested(ctx context.Context, ev SummaryRequestedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ch, err := p.channel()
	if err != nil {
		p.log.Warn(ctx, "rabbitmq: channel unavailable", "err", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts; declaring is idempotent.
	if _, err := ch.QueueDeclare(SummaryQueueName, true, false, false, false, nil); err != nil {
		p.reset()
		p.log.Warn(ctx, "rabbitmq: queue declare failed", "err", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", SummaryQueueName, false, false, pub); err != nil {
		p.reset()
		p.log.Warn(ctx, "rabbitmq: publish failed", "err", err, "entry_id", ev.EntryID)
		return err
	}
	p.log.Debug(ctx, "summary job queued", "entry_id", ev.EntryID, "user_id", ev.UserID)
	return nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

func (p *Publisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return nil, fmt.Errorf("dial broker: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		_ = p.conn.Close()
		p.conn = nil
		return nil, fmt.Errorf("channel open: %w", err)
	}
	return ch, nil
}

func (p *Publisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
