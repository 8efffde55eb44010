package notify

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/websocket"
)

const writeWait = 10 * time.Second

// Hub is the in-process WebSocket fan-out. Every subscriber has a bounded
// buffer; a subscriber that falls behind loses messages instead of slowing
// the broadcaster.
type Hub struct {
	log    *zap.Logger
	buffer int

	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// NewHub returns a Hub whose subscribers buffer up to buffer messages.
func NewHub(log *zap.Logger, buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{log: log, buffer: buffer, subs: make(map[*Subscription]struct{})}
}

// Subscription receives the raw JSON envelopes of its topics.
type Subscription struct {
	hub     *Hub
	topics  map[Topic]bool
	ch      chan []byte
	dropped atomic.Int64
	once    sync.Once
}

// Messages is closed once the subscription is closed.
func (s *Subscription) Messages() <-chan []byte { return s.ch }

// Dropped counts messages lost because the buffer was full.
func (s *Subscription) Dropped() int64 { return s.dropped.Load() }

// Close unregisters the subscription.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		close(s.ch)
		s.hub.mu.Unlock()
	})
}

// Subscribe registers interest in topics.
func (h *Hub) Subscribe(topics ...Topic) *Subscription {
	s := &Subscription{hub: h, topics: make(map[Topic]bool, len(topics)), ch: make(chan []byte, h.buffer)}
	for _, t := range topics {
		s.topics[t] = true
	}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Broadcast offers msg to every subscriber of topic and returns how many
// accepted it.
func (h *Hub) Broadcast(topic Topic, msg []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for s := range h.subs {
		if !s.topics[topic] {
			continue
		}
		select {
		case s.ch <- msg:
			delivered++
		default:
			s.dropped.Add(1)
		}
	}
	return delivered
}

func (h *Hub) Name() string { return "websocket" }

// Send implements Sink.
func (h *Hub) Send(_ context.Context, ev Event) error {
	msg, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	h.Broadcast(ev.Topic, msg)
	return nil
}

// Serve pumps sub to ws until either side goes away. first, when not nil,
// is written before anything else.
func (h *Hub) Serve(ws *websocket.Conn, sub *Subscription, first []byte) {
	defer sub.Close()
	defer ws.Close()

	if first != nil {
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := websocket.Message.Send(ws, string(first)); err != nil {
			return
		}
	}

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		var discard string
		for {
			if err := websocket.Message.Receive(ws, &discard); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-sub.Messages():
			if !ok {
				return
			}
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := websocket.Message.Send(ws, string(msg)); err != nil {
				h.log.Debug("ws: write failed", zap.Error(err))
				return
			}
		case <-gone:
			return
		}
	}
}
