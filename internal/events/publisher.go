// internal/events/publisher.go
package events

import (
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/streadway/amqp"
)

// OrderEvent is published on every terminal transaction transition so
// downstream consumers (analytics, bookkeeping) can react without polling.
type OrderEvent struct {
	SessionID string    `json:"session_id"`
	Status    string    `json:"status"`
	Price     float64   `json:"price"`
	Items     []string  `json:"items"`
	Email     string    `json:"email,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher holds the RabbitMQ connection and channel. A nil *Publisher is
// valid and publishes nothing, so event publishing stays optional.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// NewPublisher connects to RabbitMQ and declares the order queue upfront.
func NewPublisher(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare %s: %w", queue, err)
	}

	return &Publisher{
		conn:    conn,
		channel: ch,
		queue:   queue,
	}, nil
}

// PublishOrder publishes a terminal order transition. Best-effort: callers
// log failures and move on.
func (p *Publisher) PublishOrder(event OrderEvent) error {
	if p == nil || p.channel == nil {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	err = p.channel.Publish(
		"",      // exchange: default exchange
		p.queue, // routing key: the queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish order event: %w", err)
	}
	return nil
}

// Close closes the RabbitMQ connection and channel.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors occurred during publisher close: %v", errs)
	}
	return nil
}
