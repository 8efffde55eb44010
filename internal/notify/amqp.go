package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ExchangeKind is the exchange type events are published to. Consumers bind
// with routing patterns such as "order.*" or "#".
const ExchangeKind = "topic"

// handshakeTimeout caps the AMQP handshake when Send has no deadline.
const handshakeTimeout = 30 * time.Second

var (
	errNack = errors.New("broker nacked publish")
	// ErrBrokerBackoff is returned while the sink waits before redialing a
	// broker that could not be reached.
	ErrBrokerBackoff = errors.New("amqp: broker unavailable, waiting to redial")
)

// AMQPSink publishes events to a durable topic exchange with publisher
// confirms. The connection is opened lazily and reopened after any
// failure. Dialing honours the Send context; after a failed dial the sink
// refuses events until an exponential backoff elapses.
type AMQPSink struct {
	url      string
	exchange string
	log      *zap.Logger

	minBackoff time.Duration
	maxBackoff time.Duration

	mu      sync.Mutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	acks    <-chan amqp.Confirmation
	backoff time.Duration
	retryAt time.Time
}

func NewAMQPSink(url, exchange string, log *zap.Logger) *AMQPSink {
	return &AMQPSink{
		url:        url,
		exchange:   exchange,
		log:        log,
		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
	}
}

func (s *AMQPSink) Name() string { return "amqp" }

func (s *AMQPSink) Send(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.connect(ctx); err != nil {
		return err
	}
	err = s.ch.PublishWithContext(ctx, s.exchange, ev.Topic.RoutingKey(), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID.String(),
		Type:         string(ev.Topic),
		Timestamp:    ev.OccurredAt,
		Body:         body,
	})
	if err != nil {
		s.reset()
		return err
	}
	select {
	case conf, ok := <-s.acks:
		if !ok {
			s.reset()
			return amqp.ErrClosed
		}
		if !conf.Ack {
			return errNack
		}
		return nil
	case <-ctx.Done():
		// The confirm for this publish may still arrive; start clean.
		s.reset()
		return ctx.Err()
	}
}

// connect must be called with mu held.
func (s *AMQPSink) connect(ctx context.Context) error {
	if s.conn != nil && !s.conn.IsClosed() && s.ch != nil && !s.ch.IsClosed() {
		return nil
	}
	s.reset()
	if now := time.Now(); now.Before(s.retryAt) {
		return fmt.Errorf("%w (%s left)", ErrBrokerBackoff, s.retryAt.Sub(now).Round(time.Millisecond))
	}
	if err := s.open(ctx); err != nil {
		s.backoff = min(max(2*s.backoff, s.minBackoff), s.maxBackoff)
		s.retryAt = time.Now().Add(s.backoff)
		s.log.Warn("notify: amqp dial failed",
			zap.String("exchange", s.exchange), zap.Duration("retry_in", s.backoff), zap.Error(err))
		return err
	}
	s.backoff, s.retryAt = 0, time.Time{}
	s.log.Info("notify: amqp connected", zap.String("exchange", s.exchange))
	return nil
}

// open dials the broker. The TCP connect and the AMQP handshake are both
// bounded by ctx.
func (s *AMQPSink) open(ctx context.Context) error {
	conn, err := amqp.DialConfig(s.url, amqp.Config{
		Locale: "en_US",
		Dial: func(network, addr string) (net.Conn, error) {
			c, err := (&net.Dialer{}).DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			// Cleared by the client once the handshake completes.
			dl, ok := ctx.Deadline()
			if !ok {
				dl = time.Now().Add(handshakeTimeout)
			}
			if err := c.SetDeadline(dl); err != nil {
				_ = c.Close()
				return nil, err
			}
			return c, nil
		},
	})
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}
	if err := ch.ExchangeDeclare(s.exchange, ExchangeKind, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return err
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return err
	}
	s.conn, s.ch = conn, ch
	s.acks = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	return nil
}

func (s *AMQPSink) reset() {
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.conn, s.ch, s.acks = nil, nil, nil
}

// Close drops the broker connection.
func (s *AMQPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}
