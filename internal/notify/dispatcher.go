package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cafe-pos/internal/model"
)

// Dispatcher is the Publisher used in production. Publish only enqueues.
// Every sink has its own queue and Run goroutine, so a stalled transport
// never delays the others. When a sink's queue is full the event is dropped
// for that sink with a warning. Sink errors are logged and otherwise ignored.
type Dispatcher struct {
	log     *zap.Logger
	lanes   []lane
	timeout time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

type lane struct {
	sink  Sink
	queue chan Event
}

// NewDispatcher returns a Dispatcher that buffers up to size events per
// sink. timeout bounds each sink call.
func NewDispatcher(log *zap.Logger, size int, timeout time.Duration, sinks ...Sink) *Dispatcher {
	if size < 1 {
		size = 1
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	d := &Dispatcher{
		log:     log,
		timeout: timeout,
		done:    make(chan struct{}),
	}
	for _, s := range sinks {
		d.lanes = append(d.lanes, lane{sink: s, queue: make(chan Event, size)})
	}
	return d
}

// Publish implements Publisher. It never blocks.
func (d *Dispatcher) Publish(_ context.Context, actor model.Actor, topic Topic, payload any) {
	ev, err := NewEvent(topic, actor, payload)
	if err != nil {
		d.log.Error("notify: encode event", zap.String("topic", string(topic)), zap.Error(err))
		return
	}
	select {
	case <-d.done:
		return
	default:
	}
	for _, l := range d.lanes {
		select {
		case l.queue <- ev:
		default:
			d.log.Warn("notify: queue full, dropping event",
				zap.String("sink", l.sink.Name()),
				zap.String("topic", string(topic)),
				zap.String("event_id", ev.ID.String()))
		}
	}
}

// Run delivers queued events until ctx is cancelled or Close is called,
// then flushes whatever is still queued. It returns once every sink has
// been flushed.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, l := range d.lanes {
		wg.Add(1)
		go func(l lane) {
			defer wg.Done()
			d.serve(ctx, l)
		}(l)
	}
	wg.Wait()
}

// Close stops Run. Later Publish calls are ignored.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.done) })
}

func (d *Dispatcher) serve(ctx context.Context, l lane) {
	for {
		select {
		case ev := <-l.queue:
			d.deliver(l.sink, ev)
		case <-ctx.Done():
			d.drain(l)
			return
		case <-d.done:
			d.drain(l)
			return
		}
	}
}

func (d *Dispatcher) drain(l lane) {
	for {
		select {
		case ev := <-l.queue:
			d.deliver(l.sink, ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(s Sink, ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := s.Send(ctx, ev); err != nil {
		d.log.Warn("notify: sink failed",
			zap.String("sink", s.Name()),
			zap.String("topic", string(ev.Topic)),
			zap.String("event_id", ev.ID.String()),
			zap.Error(err))
	}
}
