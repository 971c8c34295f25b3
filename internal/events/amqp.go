package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultQueue is the durable queue progress events are published to
const DefaultQueue = "chatty.progress"

// Connection manages a RabbitMQ connection and reconnects when the broker
// drops it.
type Connection struct {
	url        string
	queue      string
	conn       *amqp.Connection
	channel    *amqp.Channel
	mu         sync.RWMutex
	closed     bool
	reconnects int
}

// NewConnection dials the broker and declares the progress queue
func NewConnection(rawURL, queue string) (*Connection, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	c := &Connection{url: rawURL, queue: queue}

	if err := c.connect(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Connection) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		c.queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{},
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare queue %s: %w", c.queue, err)
	}

	c.conn = conn
	c.channel = ch

	go c.watch(conn)

	slog.Info("connected to RabbitMQ", "url", redactURL(c.url), "queue", c.queue)
	return nil
}

// watch reconnects with capped exponential backoff when conn closes abnormally
func (c *Connection) watch(conn *amqp.Connection) {
	err, ok := <-conn.NotifyClose(make(chan *amqp.Error, 1))
	if !ok || err == nil {
		return
	}

	for attempt := 0; attempt < 10; attempt++ {
		c.mu.RLock()
		closed := c.closed
		c.mu.RUnlock()
		if closed {
			return
		}

		c.mu.Lock()
		c.reconnects++
		c.mu.Unlock()

		backoff := time.Duration(1<<attempt) * time.Second
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
		slog.Warn("RabbitMQ connection lost, reconnecting", "error", err, "attempt", attempt+1, "backoff", backoff)
		time.Sleep(backoff)

		if cerr := c.connect(); cerr != nil {
			slog.Error("reconnection failed", "error", cerr, "attempt", attempt+1)
			continue
		}
		return
	}

	slog.Error("giving up on RabbitMQ after 10 attempts")
}

// Queue returns the name of the declared queue
func (c *Connection) Queue() string {
	return c.queue
}

// IsConnected checks if the connection is active
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// PublishJSON publishes data as a persistent JSON message to the queue
func (c *Connection) PublishJSON(ctx context.Context, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	c.mu.RLock()
	ch := c.channel
	c.mu.RUnlock()
	if ch == nil {
		return errors.New("no open channel")
	}

	return ch.PublishWithContext(
		ctx,
		"",      // default exchange
		c.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// Close closes the channel and connection
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// AMQPPublisher publishes progress events to RabbitMQ
type AMQPPublisher struct {
	conn *Connection
}

// NewAMQPPublisher creates a publisher on an open connection
func NewAMQPPublisher(conn *Connection) *AMQPPublisher {
	return &AMQPPublisher{conn: conn}
}

// Publish implements Publisher
func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	if err := p.conn.PublishJSON(ctx, event); err != nil {
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}

	slog.Debug("published progress event",
		"event_id", event.ID,
		"type", event.Type,
		"learner_id", event.LearnerID,
	)
	return nil
}

// redactURL hides the password of an AMQP URL for logging
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "amqp://<invalid>"
	}
	return u.Redacted()
}
