package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPConfig configures the RabbitMQ broker connection and queue names.
type AMQPConfig struct {
	URL string

	MapRequestQueue   string
	MapResponseQueue  string
	TourRequestQueue  string
	TourResponseQueue string

	// ConnectAttempts and RetryDelay govern the dial retry loop.
	// Zero values default to 5 attempts, 5s apart.
	ConnectAttempts int
	RetryDelay      time.Duration
}

// AMQPBroker is the RabbitMQ-backed Broker. Requests are consumed from
// two durable queues with prefetch 1; responses are published
// persistently to the matching response queues.
type AMQPBroker struct {
	conn   *amqp.Connection
	pubCh  *amqp.Channel
	pubMu  sync.Mutex
	cfg    AMQPConfig
	logger *slog.Logger
}

// DialAMQP connects to RabbitMQ with retries and declares the four
// durable queues.
func DialAMQP(ctx context.Context, cfg AMQPConfig) (*AMQPBroker, error) {
	attempts := cfg.ConnectAttempts
	if attempts <= 0 {
		attempts = 5
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = 5 * time.Second
	}

	logger := slog.Default()

	var conn *amqp.Connection
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, err = amqp.Dial(cfg.URL)
		if err == nil {
			break
		}
		if attempt == attempts {
			return nil, fmt.Errorf("connecting to broker after %d attempts: %w", attempts, err)
		}
		logger.Warn("broker connection failed, retrying",
			"attempt", attempt, "max_attempts", attempts, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	pubCh, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening publish channel: %w", err)
	}

	b := &AMQPBroker{conn: conn, pubCh: pubCh, cfg: cfg, logger: logger}
	for _, name := range []string{
		cfg.MapRequestQueue, cfg.MapResponseQueue,
		cfg.TourRequestQueue, cfg.TourResponseQueue,
	} {
		if _, err := pubCh.QueueDeclare(name, true, false, false, false, nil); err != nil {
			conn.Close()
			return nil, fmt.Errorf("declaring queue %s: %w", name, err)
		}
	}

	logger.Info("connected to broker", "url", cfg.URL)
	return b, nil
}

// Consume starts consuming both request queues and merges them into a
// single delivery stream. Messages are acknowledged via Delivery.Ack
// after the orchestrator has published the response.
func (b *AMQPBroker) Consume(ctx context.Context) (<-chan Delivery, error) {
	ch, err := b.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("opening consume channel: %w", err)
	}
	// Fair dispatch: one unacknowledged message per consumer.
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("setting prefetch: %w", err)
	}

	mapMsgs, err := ch.Consume(b.cfg.MapRequestQueue, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("consuming %s: %w", b.cfg.MapRequestQueue, err)
	}
	tourMsgs, err := ch.Consume(b.cfg.TourRequestQueue, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("consuming %s: %w", b.cfg.TourRequestQueue, err)
	}

	out := make(chan Delivery)
	var wg sync.WaitGroup
	forward := func(kind JobKind, msgs <-chan amqp.Delivery) {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				d := Delivery{
					Kind: kind,
					Body: msg.Body,
					Ack: func() {
						if err := msg.Ack(false); err != nil {
							b.logger.Warn("acknowledging message failed", "error", err)
						}
					},
				}
				select {
				case <-ctx.Done():
					return
				case out <- d:
				}
			}
		}
	}

	wg.Add(2)
	go forward(KindBuildDistances, mapMsgs)
	go forward(KindSolveTour, tourMsgs)
	go func() {
		wg.Wait()
		ch.Close()
		close(out)
	}()

	return out, nil
}

// Publish sends a persistent JSON response to the response queue for kind.
func (b *AMQPBroker) Publish(ctx context.Context, kind JobKind, body []byte) error {
	var routingKey string
	switch kind {
	case KindBuildDistances:
		routingKey = b.cfg.MapResponseQueue
	case KindSolveTour:
		routingKey = b.cfg.TourResponseQueue
	default:
		return fmt.Errorf("unknown job kind %q", kind)
	}

	// amqp channels are not safe for concurrent publishes.
	b.pubMu.Lock()
	defer b.pubMu.Unlock()
	return b.pubCh.PublishWithContext(ctx, "", routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Close shuts down the broker connection and all its channels.
func (b *AMQPBroker) Close() error {
	return b.conn.Close()
}
