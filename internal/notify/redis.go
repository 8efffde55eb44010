package notify

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisSink publishes events on Redis pub/sub so every API instance can
// relay them to its own WebSocket clients.
type RedisSink struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisSink(rdb *redis.Client, prefix string) *RedisSink {
	return &RedisSink{rdb: rdb, prefix: prefix}
}

func (s *RedisSink) Name() string { return "redis" }

// Channel is the pub/sub channel used for topic.
func (s *RedisSink) Channel(topic Topic) string { return s.prefix + ":" + string(topic) }

func (s *RedisSink) Send(ctx context.Context, ev Event) error {
	msg, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.rdb.Publish(ctx, s.Channel(ev.Topic), msg).Err()
}

// RunRedisRelay forwards every message on prefix:* to hub until ctx is
// cancelled.
func RunRedisRelay(ctx context.Context, rdb *redis.Client, prefix string, hub *Hub, log *zap.Logger) error {
	ps := rdb.PSubscribe(ctx, prefix+":*")
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		return err
	}
	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			topic := Topic(strings.TrimPrefix(m.Channel, prefix+":"))
			if n := hub.Broadcast(topic, []byte(m.Payload)); n == 0 {
				log.Debug("notify: relayed event had no subscribers", zap.String("topic", string(topic)))
			}
		}
	}
}
