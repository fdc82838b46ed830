// Package event implements the outbound event bridge: fire-and-forget
// {viewId, eventName, params} notifications delivered to at most one sink.
package event

import (
	"sync"

	"github.com/dcmaui/uibridge/internal/logging/events"
)

// SystemViewID is the reserved view id used for events that concern the
// bridge itself rather than a particular view.
const SystemViewID = "system"

// Event is one outbound notification.
type Event struct {
	ViewID string         `json:"viewId"`
	Name   string         `json:"eventName"`
	Params map[string]any `json:"params,omitempty"`
}

// Sink receives outbound events. Deliver is called from the bridge's
// forwarder goroutine, never from the emitter.
type Sink interface {
	Deliver(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

func (f SinkFunc) Deliver(evt Event) { f(evt) }

// Subscription is the handle returned by Attach. Closing it detaches the sink
// if it is still the current one.
type Subscription struct {
	bridge *Bridge
	sink   Sink
}

func (s *Subscription) Close() {
	if s == nil || s.bridge == nil {
		return
	}
	s.bridge.detach(s.sink)
}

type delivery struct {
	sink Sink
	evt  Event
}

// Bridge fans events out to the single registered sink. Emission never blocks
// the caller: events are handed to a forwarder goroutine, and when no sink is
// attached at emit time the event is dropped outright. A sink attached later
// does not receive earlier events; there is no buffering or replay.
type Bridge struct {
	mu   sync.Mutex
	sink Sink

	queue chan delivery
	done  chan struct{}
	once  sync.Once
}

func New() *Bridge {
	b := &Bridge{
		queue: make(chan delivery, 64),
		done:  make(chan struct{}),
	}
	go b.forward()
	return b
}

func (b *Bridge) forward() {
	for {
		select {
		case <-b.done:
			return
		case d := <-b.queue:
			d.sink.Deliver(d.evt)
		}
	}
}

// Attach registers sink as the outbound receiver, replacing any current one.
func (b *Bridge) Attach(sink Sink) *Subscription {
	b.mu.Lock()
	b.sink = sink
	b.mu.Unlock()
	events.Bridge.SinkAttached()
	return &Subscription{bridge: b, sink: sink}
}

func (b *Bridge) detach(sink Sink) {
	b.mu.Lock()
	if b.sink == sink {
		b.sink = nil
	}
	b.mu.Unlock()
	events.Bridge.SinkDetached()
}

// HasSink reports whether a sink is currently attached.
func (b *Bridge) HasSink() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sink != nil
}

// Send emits one event. The sink is captured at emit time: with none attached
// the event is dropped, and a full queue also drops rather than block the
// emitter.
func (b *Bridge) Send(viewID, name string, params map[string]any) {
	b.mu.Lock()
	sink := b.sink
	b.mu.Unlock()
	if sink == nil {
		events.Bridge.Dropped(viewID, name)
		return
	}
	d := delivery{sink: sink, evt: Event{ViewID: viewID, Name: name, Params: params}}
	select {
	case b.queue <- d:
	default:
		events.Bridge.Dropped(viewID, name)
	}
}

// Close stops the forwarder goroutine. Pending queued events are discarded.
func (b *Bridge) Close() {
	b.once.Do(func() { close(b.done) })
}
