package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"
)

// amqpChannel is the part of *amqp.Channel the publisher uses.
type amqpChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher forwards events as persistent JSON messages to a direct
// exchange, routed by event type.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       amqpChannel
	exchange string
}

// DialAMQP connects with retries and declares exchange.
func DialAMQP(url, exchange string, retries int, delay time.Duration) (*AMQPPublisher, error) {
	const op = "events.DialAMQP"
	if retries <= 0 {
		retries = 1
	}

	var (
		conn *amqp.Connection
		err  error
	)
	for attempt := 0; attempt < retries; attempt++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		time.Sleep(delay)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: declare exchange %s: %w", op, exchange, err)
	}

	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// Forward publishes event. The channel is not safe for concurrent use, so
// publishes are serialized.
func (p *AMQPPublisher) Forward(ctx context.Context, event Event) error {
	const op = "events.AMQPPublisher.Forward"
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.Publish(p.exchange, string(event.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    event.ID,
		Timestamp:    event.Timestamp,
		Type:         string(event.Type),
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close shuts the channel and the connection.
func (p *AMQPPublisher) Close() error {
	if p == nil {
		return nil
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
