//go:build integration

package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/felixgeelhaar/chatty/internal/events"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
)

// setupRabbitMQ creates a RabbitMQ container for testing
func setupRabbitMQ(t *testing.T) string {
	ctx := context.Background()

	container, err := rabbitmq.Run(ctx, "rabbitmq:3.12-management")
	if err != nil {
		t.Fatalf("failed to start RabbitMQ container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	amqpURL, err := container.AmqpURL(ctx)
	if err != nil {
		t.Fatalf("failed to get AMQP URL: %v", err)
	}
	return amqpURL
}

func TestIntegration_Connection_ConnectAndClose(t *testing.T) {
	amqpURL := setupRabbitMQ(t)

	conn, err := events.NewConnection(amqpURL, "")
	if err != nil {
		t.Fatalf("NewConnection() error = %v", err)
	}
	if !conn.IsConnected() {
		t.Error("expected connection to be active")
	}
	if conn.Queue() != events.DefaultQueue {
		t.Errorf("Queue() = %q, want %q", conn.Queue(), events.DefaultQueue)
	}
	if err := conn.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestIntegration_Connection_InvalidURL(t *testing.T) {
	if _, err := events.NewConnection("amqp://invalid:5672", ""); err == nil {
		t.Error("expected error for invalid URL")
	}
}

func TestIntegration_AMQPPublisher_Publish(t *testing.T) {
	amqpURL := setupRabbitMQ(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := events.NewConnection(amqpURL, "chatty.progress.test")
	if err != nil {
		t.Fatalf("NewConnection() error = %v", err)
	}
	defer conn.Close()

	publisher := events.NewResilientPublisher(events.NewAMQPPublisher(conn), events.DefaultResilientConfig())

	sent := events.New(events.TypeLevelCompleted, "42")
	sent.Level = "Elementary"
	sent.PreviousLevel = "Beginner"
	if err := publisher.Publish(ctx, sent); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	// Read the message back with a separate consumer connection.
	consumer, err := amqp.Dial(amqpURL)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer consumer.Close()

	ch, err := consumer.Channel()
	if err != nil {
		t.Fatalf("Channel() error = %v", err)
	}
	defer ch.Close()

	deliveries, err := ch.ConsumeWithContext(ctx, "chatty.progress.test", "", true, false, false, false, nil)
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}

	select {
	case d := <-deliveries:
		if d.ContentType != "application/json" {
			t.Errorf("ContentType = %q, want application/json", d.ContentType)
		}
		var got events.Event
		if err := json.Unmarshal(d.Body, &got); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if got.ID != sent.ID || got.Type != events.TypeLevelCompleted || got.PreviousLevel != "Beginner" {
			t.Errorf("received %+v, want %+v", got, sent)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}
