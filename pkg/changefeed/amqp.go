package changefeed

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

const DEFAULT_EXCHANGE = "nework-changes"

// AMQPPublisher publishes changes on a topic exchange with routing key
// "nework.<table>"
type AMQPPublisher struct {
	mu       sync.Mutex // amqp channels are not safe for concurrent publishing
	ch       *amqp.Channel
	conn     *amqp.Connection
	exchange string
}

func NewAMQPPublisher(ch *amqp.Channel, conn *amqp.Connection, exchange string) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = DEFAULT_EXCHANGE
	}
	err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("error declaring exchange for rabbitmq: %w", err)
	}
	return &AMQPPublisher{ch: ch, conn: conn, exchange: exchange}, nil
}

func RoutingKey(table string) string {
	return "nework." + table
}

func (p *AMQPPublisher) Publish(ctx context.Context, change Change) error {
	body, err := Encode(change)
	if err != nil {
		return fmt.Errorf("error converting change to json: %w", err)
	}
	msg := amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(change.Table), false, false, msg)
}

func (p *AMQPPublisher) Close() error {
	p.ch.Close()
	return p.conn.Close()
}
