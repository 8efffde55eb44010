package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/cafe-pos/internal/config"
	"github.com/iliyamo/cafe-pos/internal/notify"
)

const maxBackoff = 30 * time.Second

// StartAuditConsumer binds cfg.AuditQueue to every routing key of the
// events exchange and appends one AuditLine per delivery to
// cfg.AuditLogPath. It reconnects with exponential backoff and returns
// only when ctx is done.
func StartAuditConsumer(ctx context.Context, cfg config.NotifyConfig, log *zap.Logger) error {
	if cfg.AMQPURL == "" {
		return errors.New("audit consumer: no broker url")
	}
	log = log.Named("audit-consumer")
	backoff := time.Second
	for {
		conn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			log.Warn("dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = time.Second

		err = consume(ctx, conn, cfg, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consume(ctx context.Context, conn *amqp.Connection, cfg config.NotifyConfig, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("set qos failed", zap.Error(err))
	}
	if err := ch.ExchangeDeclare(cfg.AMQPExchange, notify.ExchangeKind, true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.AuditQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(cfg.AuditQueue, "#", cfg.AMQPExchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, cfg.AuditQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	log.Info("consuming", zap.String("queue", cfg.AuditQueue), zap.String("exchange", cfg.AMQPExchange))

	for d := range msgs {
		if err := appendAudit(cfg.AuditLogPath, d.Body); err != nil {
			log.Error("handle delivery failed", zap.String("message_id", d.MessageId), zap.Error(err))
			// Dropped rather than requeued so a poison message cannot spin.
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func appendAudit(path string, body []byte) error {
	line, err := AuditLine(body)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}
