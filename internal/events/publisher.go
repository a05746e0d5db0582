// Package events publishes committed order lifecycle transitions to RabbitMQ
// for downstream notification and reporting consumers. The HTTP API never
// depends on a broker being up: a nil publisher disables the whole layer.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mealdash/api/internal/service"
	amqp "github.com/rabbitmq/amqp091-go"
)

const exchangeName = "order_events"

// Publisher sends order status messages to a topic exchange. It implements
// service.EventPublisher.
type Publisher struct {
	conn *amqp.Connection
}

// Connect dials the broker and returns a ready publisher.
func Connect(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	return &Publisher{conn: conn}, nil
}

// PublishOrderStatus emits one persistent JSON message with routing key
// "order.status.<status>", so consumers can bind to individual transitions
// or to "order.status.*".
func (p *Publisher) PublishOrderStatus(ctx context.Context, msg service.OrderStatusMessage) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	routingKey := fmt.Sprintf("order.status.%s", msg.Status)
	err = ch.PublishWithContext(ctx, exchangeName, routingKey, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// Close shuts down the broker connection.
func (p *Publisher) Close() error {
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn.Close()
	}
	return nil
}
