package notify

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/cafe-pos/internal/model"
)

// silentBroker accepts TCP connections and never speaks AMQP.
func silentBroker(t *testing.T) (string, *atomic.Int32) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var (
		accepted atomic.Int32
		mu       sync.Mutex
		conns    []net.Conn
	)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			accepted.Add(1)
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return "amqp://guest:guest@" + ln.Addr().String() + "/", &accepted
}

func orderEvent(t *testing.T, id int) Event {
	t.Helper()
	ev, err := NewEvent(TopicOrders, model.System, map[string]int{"id": id})
	require.NoError(t, err)
	return ev
}

func TestAMQPSinkDialHonoursSendDeadline(t *testing.T) {
	url, accepted := silentBroker(t)
	sink := NewAMQPSink(url, "cafe.events", zap.NewNop())
	defer sink.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := sink.Send(ctx, orderEvent(t, 1))
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second, "handshake must give up at the send deadline")

	// Within the backoff window the broker is not redialed.
	start = time.Now()
	err = sink.Send(context.Background(), orderEvent(t, 2))
	assert.ErrorIs(t, err, ErrBrokerBackoff)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
	require.Eventually(t, func() bool { return accepted.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), accepted.Load())
}

func TestAMQPSinkBackoffGrowsAndRedials(t *testing.T) {
	url, accepted := silentBroker(t)
	sink := NewAMQPSink(url, "cafe.events", zap.NewNop())
	sink.minBackoff, sink.maxBackoff = 20*time.Millisecond, 40*time.Millisecond
	defer sink.Close()

	send := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		return sink.Send(ctx, orderEvent(t, 1))
	}

	require.Error(t, send())
	assert.ErrorIs(t, send(), ErrBrokerBackoff)

	time.Sleep(30 * time.Millisecond)
	err := send()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBrokerBackoff)
	require.Eventually(t, func() bool { return accepted.Load() == 2 }, time.Second, 5*time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, 40*time.Millisecond, sink.backoff)
}

func TestStalledBrokerDoesNotDelayLiveFeed(t *testing.T) {
	url, _ := silentBroker(t)
	hub := NewHub(zap.NewNop(), 16)
	sub := hub.Subscribe(TopicOrders)
	defer sub.Close()

	broker := NewAMQPSink(url, "cafe.events", zap.NewNop())
	defer broker.Close()
	d := NewDispatcher(zap.NewNop(), 16, 300*time.Millisecond, hub, broker)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { d.Run(ctx); close(done) }()
	defer func() { cancel(); <-done }()

	for i := 0; i < 10; i++ {
		d.Publish(context.Background(), model.System, TopicOrders, map[string]int{"id": i})
	}

	received := 0
	deadline := time.After(time.Second)
	for received < 10 {
		select {
		case <-sub.Messages():
			received++
		case <-deadline:
			t.Fatalf("websocket subscriber received %d of 10 events within 1s", received)
		}
	}
}
