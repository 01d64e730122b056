package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	exchangeType = "topic"

	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 5 * time.Second
	confirmTimeout = 5 * time.Second
)

var errNotAcked = errors.New("event not acknowledged")

// AMQPPublisher publishes to a durable topic exchange with publisher
// confirms. Publishes are serialized on one channel.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	confirms chan amqp.Confirmation
	exchange string
	log      *zap.Logger
}

func NewAMQPPublisher(url, exchange string, log *zap.Logger) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(
		exchange,
		exchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if err := channel.Confirm(false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	log.Info("Connected to RabbitMQ", zap.String("exchange", exchange))

	return &AMQPPublisher{
		conn:     conn,
		channel:  channel,
		confirms: channel.NotifyPublish(make(chan amqp.Confirmation, 1)),
		exchange: exchange,
		log:      log,
	}, nil
}

// Publish sends event with its type as routing key, retrying with
// exponential backoff until confirmed.
func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	backoff := initialBackoff
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}
		}

		err := p.channel.PublishWithContext(ctx,
			p.exchange,
			event.EventType,
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:   "application/json",
				DeliveryMode:  amqp.Persistent,
				Timestamp:     time.Now(),
				MessageId:     event.EventID,
				CorrelationId: event.CorrelationID,
				Body:          body,
				Headers: amqp.Table{
					"event_type":    event.EventType,
					"event_version": event.EventVersion,
				},
			},
		)
		if err != nil {
			lastErr = err
			p.log.Warn("Failed to publish event, retrying", zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}

		select {
		case confirm := <-p.confirms:
			if confirm.Ack {
				p.log.Debug("Event published",
					zap.String("event_id", event.EventID),
					zap.String("event_type", event.EventType))
				return nil
			}
			lastErr = errNotAcked
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(confirmTimeout):
			lastErr = errors.New("confirmation timeout")
		}
		p.log.Warn("Event publish not confirmed, retrying", zap.Int("attempt", attempt+1), zap.Error(lastErr))
	}

	return fmt.Errorf("publish event after %d attempts: %w", maxRetries, lastErr)
}

func (p *AMQPPublisher) Healthy() bool {
	return p.conn != nil && !p.conn.IsClosed()
}

func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.log.Error("Failed to close channel", zap.Error(err))
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return err
		}
	}
	p.log.Info("Publisher closed")
	return nil
}
